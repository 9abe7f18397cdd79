// Package gemini synthesizes coaching speech with the Gemini TTS models.
package gemini

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/steveyiyo/formcoach-backend/internal/core/tts"
)

// DefaultVoice is a prebuilt Gemini voice with a clear, upbeat delivery.
const DefaultVoice = "Puck"

var errNoAudio = errors.New("gemini: response has no audio")

type Client struct {
	c     *genai.Client
	model string
	voice string
}

// New creates a client for model. timeout bounds each request.
func New(apiKey, model, voice string, timeout time.Duration) (*Client, error) {
	tr := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		TLSClientConfig:   &tls.Config{MinVersion: tls.VersionTLS12},
		ForceAttemptHTTP2: false,
		MaxIdleConns:      100,
		IdleConnTimeout:   90 * time.Second,
	}
	hc := &http.Client{Transport: tr, Timeout: timeout + 5*time.Second}
	reqTimeout := timeout
	cl, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
		HTTPOptions: genai.HTTPOptions{
			Timeout: &reqTimeout,
		},
	})
	if err != nil {
		return nil, err
	}
	if voice == "" {
		voice = DefaultVoice
	}
	return &Client{c: cl, model: model, voice: voice}, nil
}

// Synthesize implements tts.Synthesizer. The instruction is spoken as a
// style direction ahead of the text, which is how the TTS models take style.
func (g *Client) Synthesize(ctx context.Context, req tts.Request) (*tts.Audio, error) {
	voice := req.Voice
	if voice == "" {
		voice = g.voice
	}
	resp, err := g.c.Models.GenerateContent(ctx, g.model, genai.Text(prompt(req)), speechConfig(voice))
	if err != nil {
		return nil, err
	}
	audio, ok := parseAudio(resp)
	if !ok {
		return nil, errNoAudio
	}
	return audio, nil
}

func prompt(req tts.Request) string {
	if req.Instruction == "" {
		return req.Text
	}
	return strings.TrimRight(req.Instruction, ": ") + ": " + req.Text
}

func speechConfig(voice string) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseModalities: []string{string(genai.ModalityAudio)},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}
}

// parseAudio returns the first inline audio part. Gemini answers with raw
// 16-bit PCM and declares the rate in the MIME type.
func parseAudio(resp *genai.GenerateContentResponse) (*tts.Audio, bool) {
	if resp == nil {
		return nil, false
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p.InlineData == nil || len(p.InlineData.Data) == 0 {
				continue
			}
			if !strings.HasPrefix(p.InlineData.MIMEType, "audio/") {
				continue
			}
			if strings.Contains(p.InlineData.MIMEType, "wav") {
				return &tts.Audio{Data: p.InlineData.Data, MIMEType: p.InlineData.MIMEType}, true
			}
			return tts.NewPCMAudio(p.InlineData.Data, p.InlineData.MIMEType), true
		}
	}
	return nil, false
}
