// Package tts talks to remote speech-synthesis services.
package tts

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotSuccessful is returned when the service answers but reports failure.
	ErrNotSuccessful = errors.New("tts: synthesis not successful")
	// ErrEmptyAudio is returned when the service sends no audio payload.
	ErrEmptyAudio = errors.New("tts: empty audio")
)

// Request is one utterance to synthesize.
type Request struct {
	Text string
	// Voice selects a speaker; empty uses the service default.
	Voice string
	// Instruction is an optional style hint such as "calm, encouraging".
	Instruction string
}

// Synthesizer turns text into audio. Implementations bound every call with
// their own timeout and never retry.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (*Audio, error)
}

// Audio is a decoded waveform.
type Audio struct {
	Data     []byte
	MIMEType string
	// Text is the utterance the clip speaks, when known.
	Text string
	// SampleRate applies to raw PCM payloads; WAV payloads carry their own.
	SampleRate int
}

// Duration estimates how long the clip plays.
func (a *Audio) Duration() time.Duration {
	if a == nil || len(a.Data) == 0 {
		return 0
	}
	if d, ok := wavDuration(a.Data); ok {
		return d
	}
	rate := a.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	// 16-bit mono PCM.
	samples := len(a.Data) / 2
	return time.Duration(samples) * time.Second / time.Duration(rate)
}
