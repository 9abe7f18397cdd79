package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient calls a self-hosted speech service exposing /tts and /clone.
type HTTPClient struct {
	base    string
	hc      *http.Client
	timeout time.Duration
}

// NewHTTPClient returns a client for the service at base. timeout bounds
// each plain synthesis request.
func NewHTTPClient(base string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		base:    strings.TrimRight(base, "/"),
		hc:      &http.Client{},
		timeout: timeout,
	}
}

type synthesizeBody struct {
	Text     string `json:"text"`
	Speaker  string `json:"speaker,omitempty"`
	Instruct string `json:"instruct,omitempty"`
}

type cloneBody struct {
	Text        string `json:"text"`
	RefAudioURL string `json:"ref_audio_url"`
	RefText     string `json:"ref_text"`
	NumSteps    int    `json:"num_steps,omitempty"`
}

type audioResponse struct {
	Success bool   `json:"success"`
	Audio   string `json:"audio"`
	MIME    string `json:"mime"`
	Error   string `json:"error"`
}

// Synthesize implements Synthesizer.
func (c *HTTPClient) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	return c.post(ctx, "/tts", c.timeout, synthesizeBody{
		Text:     req.Text,
		Speaker:  req.Voice,
		Instruct: req.Instruction,
	})
}

// CloneReference is the sample a cloned voice imitates.
type CloneReference struct {
	AudioURL   string
	Transcript string
	// Steps trades latency for quality; 0 uses the service default.
	Steps int
}

// Clone synthesizes text in the voice of ref.
func (c *HTTPClient) Clone(ctx context.Context, text string, ref CloneReference, timeout time.Duration) (*Audio, error) {
	return c.post(ctx, "/clone", timeout, cloneBody{
		Text:        text,
		RefAudioURL: ref.AudioURL,
		RefText:     ref.Transcript,
		NumSteps:    ref.Steps,
	})
}

func (c *HTTPClient) post(ctx context.Context, path string, timeout time.Duration, body any) (*Audio, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("tts %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("tts %s: status %d", path, resp.StatusCode)
	}

	var out audioResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("tts %s: decode response: %w", path, err)
	}
	if !out.Success {
		if out.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrNotSuccessful, out.Error)
		}
		return nil, ErrNotSuccessful
	}
	data, err := base64.StdEncoding.DecodeString(out.Audio)
	if err != nil {
		return nil, fmt.Errorf("tts %s: decode audio: %w", path, err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyAudio
	}
	mt := out.MIME
	if mt == "" {
		mt = "audio/wav"
	}
	return &Audio{Data: data, MIMEType: mt, SampleRate: rateFromMIME(mt)}, nil
}

// CloneVoice is a Synthesizer that always speaks in a cloned voice.
type CloneVoice struct {
	client  *HTTPClient
	ref     CloneReference
	timeout time.Duration
}

// NewCloneVoice binds a reference sample to client. timeout bounds each
// request; cloning is slower than plain synthesis.
func NewCloneVoice(client *HTTPClient, ref CloneReference, timeout time.Duration) *CloneVoice {
	return &CloneVoice{client: client, ref: ref, timeout: timeout}
}

// Synthesize implements Synthesizer. Voice and Instruction are ignored.
func (v *CloneVoice) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	return v.client.Clone(ctx, req.Text, v.ref, v.timeout)
}
