package playback

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyiyo/formcoach-backend/internal/core/tts"
	"github.com/steveyiyo/formcoach-backend/pkg/ws"
)

// longClip synthesizes ten seconds of 24kHz PCM16 for any text.
type longClip struct{}

func (longClip) Synthesize(_ context.Context, req tts.Request) (*tts.Audio, error) {
	return &tts.Audio{Data: make([]byte, 480000), MIMEType: "audio/pcm", Text: req.Text}, nil
}

func dialVoice(t *testing.T, hub *ws.Hub, id string) *websocket.Conn {
	t.Helper()
	up := websocket.Upgrader{}
	attached := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		wc := hub.Add(id, c)
		close(attached)
		defer func() {
			hub.Remove(id, wc)
			c.Close()
		}()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	<-attached
	return client
}

func TestSerializerStopsClipBeforeFallbackOverWebsocket(t *testing.T) {
	hub := ws.NewHub()
	client := dialVoice(t, hub, "s1")
	voice := ws.NewVoice(hub, "s1")

	cfg := testConfig()
	// long enough for the spoken fallback, far short of the clip
	cfg.PlaybackTimeout = time.Second
	s := New(cfg, longClip{}, voice, voice, quietLogger())
	defer s.Close()

	s.Enqueue("Hold")

	var types []string
	for len(types) < 3 {
		_ = client.SetReadDeadline(time.Now().Add(3 * time.Second))
		var m map[string]any
		require.NoError(t, client.ReadJSON(&m))
		types = append(types, m["type"].(string))
	}
	assert.Equal(t, []string{"audio", "stop", "speak"}, types)

	// the fallback utterance runs to completion; nothing stops it
	_ = client.SetReadDeadline(time.Now().Add(1500 * time.Millisecond))
	var extra map[string]any
	assert.Error(t, client.ReadJSON(&extra))
	assert.Equal(t, 1, s.Stats().Fallback)
}
