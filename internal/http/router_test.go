package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyiyo/formcoach-backend/internal/config"
	"github.com/steveyiyo/formcoach-backend/internal/core/session"
	"github.com/steveyiyo/formcoach-backend/internal/core/tts"
	"github.com/steveyiyo/formcoach-backend/internal/repo/memory"
	"github.com/steveyiyo/formcoach-backend/pkg/types"
	"github.com/steveyiyo/formcoach-backend/pkg/ws"
)

type stubSynth struct {
	err error
}

func (s stubSynth) Synthesize(_ context.Context, req tts.Request) (*tts.Audio, error) {
	if s.err != nil {
		return nil, s.err
	}
	// 4800 bytes of 24kHz PCM16 is 100ms.
	return &tts.Audio{Data: make([]byte, 4800), MIMEType: "audio/pcm"}, nil
}

func newTestRouter(t *testing.T, synth tts.Synthesizer) (*gin.Engine, *session.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tuning := config.DefaultTuning()
	tuning.Playback.Gap = time.Millisecond
	svc := session.NewService(memory.NewSessionRepo(), ws.NewHub(), synth, session.Options{
		Coach:      tuning.Coach,
		Thresholds: tuning.Pose,
		Playback:   tuning.Playback,
		Logger:     log,
	})
	t.Cleanup(svc.Close)
	return NewRouter(config.Config{Port: "8080"}, svc, synth, log), svc
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, r http.Handler, req types.CreateSessionReq) types.CreateSessionResp {
	t.Helper()
	w := do(r, http.MethodPost, "/v1/sessions", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out types.CreateSessionResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out["error"]
}

func TestCreateSession(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	out := createSession(t, r, types.CreateSessionReq{Exercise: "squat", TargetReps: 10})

	assert.True(t, strings.HasPrefix(out.SessionID, "sess_"))
	assert.Equal(t, "ws://localhost:8080/v1/stream?sess="+out.SessionID, out.WSURL)
	assert.Equal(t, "squat", out.Exercise)
	assert.Contains(t, out.Stages, "hold")

	w := do(r, http.MethodGet, "/v1/sessions/"+out.SessionID+"/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sum types.SummaryResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
	assert.Equal(t, "squat", sum.Exercise)
	assert.Equal(t, 10, sum.TargetReps)
	assert.Zero(t, sum.FramesAnalyzed)
}

func TestCreateSessionRejectsBadRequests(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	w := do(r, http.MethodPost, "/v1/sessions", types.CreateSessionReq{Exercise: "juggling"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "unknown_exercise", errorCode(t, w))

	w = do(r, http.MethodPost, "/v1/sessions", map[string]any{"target_reps": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", errorCode(t, w))

	w = do(r, http.MethodPost, "/v1/sessions", map[string]any{"exercise": "squat", "target_reps": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionControls(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	id := createSession(t, r, types.CreateSessionReq{Exercise: "bicep_curl"}).SessionID

	for _, action := range []string{"mute", "clear", "reset"} {
		w := do(r, http.MethodPost, "/v1/sessions/"+id+"/"+action, nil)
		assert.Equal(t, http.StatusNoContent, w.Code, action)
	}
	var sum types.SummaryResp
	w := do(r, http.MethodGet, "/v1/sessions/"+id+"/summary", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
	assert.True(t, sum.Muted)

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodPost, "/v1/sessions/"+id+"/unmute", nil).Code)
	w = do(r, http.MethodGet, "/v1/sessions/"+id+"/summary", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
	assert.False(t, sum.Muted)

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/v1/sessions/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/v1/sessions/"+id+"/summary", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/v1/sessions/"+id+"/mute", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/v1/sessions/"+id, nil).Code)
}

func TestListExercises(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	w := do(r, http.MethodGet, "/v1/exercises", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var out []types.ExerciseResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	names := map[string][]string{}
	for _, e := range out {
		names[e.Name] = e.Stages
	}
	assert.Contains(t, names, "arm_raise")
	assert.ElementsMatch(t, []string{"down", "up"}, names["arm_raise"])
}

func TestTTSEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	w := do(r, http.MethodPost, "/v1/tts", types.TTSReq{Text: "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	r, _ = newTestRouter(t, stubSynth{})
	w = do(r, http.MethodPost, "/v1/tts", types.TTSReq{Text: "Lower your hips"})
	require.Equal(t, http.StatusOK, w.Code)
	var out types.TTSResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "audio/pcm", out.MIME)
	assert.Equal(t, int64(100), out.DurationMs)
	assert.NotEmpty(t, out.AudioB64)

	w = do(r, http.MethodPost, "/v1/tts", types.TTSReq{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r, _ = newTestRouter(t, stubSynth{err: tts.ErrNotSuccessful})
	w = do(r, http.MethodPost, "/v1/tts", types.TTSReq{Text: "Lower your hips"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "tts_failed", errorCode(t, w))
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	w := do(r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStreamRequiresLiveSession(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/v1/stream", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/v1/stream?sess=nope", nil).Code)
}

func TestStreamCoachesFrames(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	srv := httptest.NewServer(r)
	defer srv.Close()

	id := createSession(t, r, types.CreateSessionReq{Exercise: "arm_raise", TargetReps: 8}).SessionID
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/stream?sess="+id, nil)
	require.NoError(t, err)
	defer conn.Close()

	// readUntil returns the first message of the wanted type, collecting the
	// coach events seen on the way.
	events := map[string]bool{}
	readUntil := func(want string) map[string]any {
		for {
			_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
			var m map[string]any
			require.NoError(t, conn.ReadJSON(&m))
			if m["type"] == "coach" {
				events[m["event"].(string)] = true
			}
			if m["type"] == want {
				return m
			}
		}
	}
	readUntil("hello")

	frame := map[string]any{
		"type":          "frame",
		"ts":            1234,
		"target_stage":  "up",
		"current_stage": "down",
		"reps":          1,
		"joints": map[string]any{
			"left_shoulder":  map[string]float64{"x": 0.60, "y": 0.30, "visibility": 0.9},
			"right_shoulder": map[string]float64{"x": 0.40, "y": 0.30, "visibility": 0.9},
			"left_elbow":     map[string]float64{"x": 0.62, "y": 0.45, "visibility": 0.9},
			"right_elbow":    map[string]float64{"x": 0.38, "y": 0.45, "visibility": 0.9},
			"left_wrist":     map[string]float64{"x": 0.63, "y": 0.58, "visibility": 0.9},
			"right_wrist":    map[string]float64{"x": 0.37, "y": 0.58, "visibility": 0.9},
			"left_hip":       map[string]float64{"x": 0.57, "y": 0.60, "visibility": 0.9},
			"right_hip":      map[string]float64{"x": 0.43, "y": 0.60, "visibility": 0.9},
		},
	}
	require.NoError(t, conn.WriteJSON(frame))

	overlay := readUntil("overlay")
	assert.EqualValues(t, 1234, overlay["ts"])
	target, ok := overlay["target"].(map[string]any)
	require.True(t, ok, "overlay has a target pose")
	assert.Contains(t, target, "left_wrist")
	assert.NotEmpty(t, overlay["corrections"])

	assert.True(t, events["session_start"])

	w := do(r, http.MethodGet, "/v1/sessions/"+id+"/summary", nil)
	var sum types.SummaryResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sum))
	assert.Equal(t, int64(1), sum.FramesAnalyzed)
	assert.Equal(t, 1, sum.Reps)
	assert.Equal(t, 1, sum.Messages["session_start"])
	assert.Equal(t, 1, sum.Messages["exercise_start"])
}
