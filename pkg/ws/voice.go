package ws

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/steveyiyo/formcoach-backend/internal/core/tts"
)

// Voice plays coaching speech through a session's websocket client. Remote
// clips are pushed as "audio" messages; on-device speech is requested with
// "speak" messages. The client reports nothing back, so Voice waits for the
// expected duration of each utterance.
type Voice struct {
	hub *Hub
	id  string
}

func NewVoice(h *Hub, sessionID string) *Voice {
	return &Voice{hub: h, id: sessionID}
}

type audioMsg struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	MIME     string `json:"mime"`
	AudioB64 string `json:"audio_b64"`
}

type speakMsg struct {
	Type   string  `json:"type"`
	Text   string  `json:"text"`
	Locale string  `json:"locale"`
	Rate   float64 `json:"rate"`
}

type stopMsg struct {
	Type string `json:"type"`
}

// Play pushes the clip and blocks until it should have finished. If ctx ends
// first the client is told to stop.
func (v *Voice) Play(ctx context.Context, a *tts.Audio) error {
	if err := v.hub.Send(v.id, audioMsg{
		Type:     "audio",
		Text:     a.Text,
		MIME:     a.MIMEType,
		AudioB64: base64.StdEncoding.EncodeToString(a.Data),
	}); err != nil {
		return err
	}
	return v.await(ctx, a.Duration())
}

// Speak asks the client to read text aloud with its own speech engine.
func (v *Voice) Speak(ctx context.Context, text, locale string, rate float64) error {
	if err := v.hub.Send(v.id, speakMsg{Type: "speak", Text: text, Locale: locale, Rate: rate}); err != nil {
		return err
	}
	return v.await(ctx, SpeechDuration(text, rate))
}

func (v *Voice) await(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		_ = v.hub.Send(v.id, stopMsg{Type: "stop"})
		return ctx.Err()
	}
}

// SpeechDuration estimates how long on-device speech takes to say text at
// the given rate, where 1.0 is roughly 2.5 words per second.
func SpeechDuration(text string, rate float64) time.Duration {
	if rate <= 0 {
		rate = 1
	}
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	secs := float64(words) / (2.5 * rate)
	return 300*time.Millisecond + time.Duration(secs*float64(time.Second))
}
