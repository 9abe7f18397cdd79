// Package playback serializes spoken coaching feedback so that at most one
// utterance is audible at a time.
//
// Utterances are queued in a small bounded FIFO and drained by a single
// consumer goroutine. Each one is synthesized by a remote service and played
// with a watchdog; any failure on that path falls back to on-device speech
// once, and the queue moves on. Nothing is retried.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/steveyiyo/formcoach-backend/internal/core/tts"
)

// Player plays a synthesized clip and returns when it has finished or ctx
// is done. Cancelling ctx must stop the clip.
type Player interface {
	Play(ctx context.Context, audio *tts.Audio) error
}

// Fallback speaks text with the client's on-device speech engine.
type Fallback interface {
	Speak(ctx context.Context, text, locale string, rate float64) error
}

// Config tunes a Serializer.
type Config struct {
	// Capacity bounds the queue; the oldest entry is evicted on overflow.
	Capacity int `yaml:"capacity"`
	// Voice and Instruction are passed to the synthesizer.
	Voice       string `yaml:"voice"`
	Instruction string `yaml:"instruction"`
	// Locale and Rate are passed to the fallback voice.
	Locale string  `yaml:"locale"`
	Rate   float64 `yaml:"rate"`
	// PlaybackTimeout is the watchdog on one clip or fallback utterance.
	PlaybackTimeout time.Duration `yaml:"playback_timeout"`
	// Gap is the pause between two utterances.
	Gap time.Duration `yaml:"gap"`
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		Capacity:        4,
		Locale:          "en-US",
		Rate:            1.0,
		PlaybackTimeout: 20 * time.Second,
		Gap:             150 * time.Millisecond,
	}
}

// Stats counts utterance outcomes over the serializer's lifetime.
type Stats struct {
	Spoken   int `json:"spoken"`
	Fallback int `json:"fallback"`
	Failed   int `json:"failed"`
	Dropped  int `json:"dropped"`
	Cleared  int `json:"cleared"`
}

var errNoSynthesizer = errors.New("playback: no synthesizer configured")

// stopGrace bounds how long a cancelled output may take to stop. Whatever it
// sends while stopping must reach the client before the next utterance does.
const stopGrace = 250 * time.Millisecond

var tracer = otel.Tracer("github.com/steveyiyo/formcoach-backend/internal/core/playback")

// Serializer owns one session's speech queue.
type Serializer struct {
	cfg      Config
	synth    tts.Synthesizer
	player   Player
	fallback Fallback
	log      *slog.Logger

	mu       sync.Mutex
	queue    []string
	speaking bool
	muted    bool
	closed   bool
	cancel   context.CancelFunc
	stats    Stats

	wake      chan struct{}
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New starts a serializer. synth may be nil, in which case every utterance
// goes straight to the fallback voice.
func New(cfg Config, synth tts.Synthesizer, player Player, fallback Fallback, log *slog.Logger) *Serializer {
	def := DefaultConfig()
	if cfg.Capacity <= 0 {
		cfg.Capacity = def.Capacity
	}
	if cfg.Locale == "" {
		cfg.Locale = def.Locale
	}
	if cfg.Rate <= 0 {
		cfg.Rate = def.Rate
	}
	if cfg.PlaybackTimeout <= 0 {
		cfg.PlaybackTimeout = def.PlaybackTimeout
	}
	if cfg.Gap < 0 {
		cfg.Gap = 0
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Serializer{
		cfg:      cfg,
		synth:    synth,
		player:   player,
		fallback: fallback,
		log:      log,
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

// Enqueue queues text for playback. Text already waiting in the queue is not
// queued twice, and a full queue drops its oldest entry.
func (s *Serializer) Enqueue(text string) {
	if text == "" {
		return
	}
	s.mu.Lock()
	switch {
	case s.closed || s.muted:
		s.dropLocked("muted")
		s.mu.Unlock()
		return
	case contains(s.queue, text):
		s.dropLocked("duplicate")
		s.mu.Unlock()
		return
	}
	if len(s.queue) >= s.cfg.Capacity {
		s.queue = append(s.queue[:0], s.queue[len(s.queue)-s.cfg.Capacity+1:]...)
		s.dropLocked("evicted")
	}
	s.queue = append(s.queue, text)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Clear empties the queue and stops the utterance in flight, if any. It is
// safe to call at any time.
func (s *Serializer) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Serializer) clearLocked() {
	s.stats.Cleared += len(s.queue)
	if len(s.queue) > 0 {
		utterances.WithLabelValues("cleared").Add(float64(len(s.queue)))
	}
	s.queue = s.queue[:0]
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.speaking = false
}

// Mute clears the queue and drops further utterances until Unmute.
func (s *Serializer) Mute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = true
	s.clearLocked()
}

// Unmute resumes accepting utterances.
func (s *Serializer) Unmute() {
	s.mu.Lock()
	s.muted = false
	s.mu.Unlock()
}

// Muted reports whether the serializer is muted.
func (s *Serializer) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// IsSpeaking reports whether an utterance is in flight.
func (s *Serializer) IsSpeaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaking
}

// Pending returns the queued texts, oldest first.
func (s *Serializer) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queue...)
}

// Stats returns a snapshot of the outcome counters.
func (s *Serializer) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Close stops playback and the consumer goroutine. The serializer drops
// everything enqueued afterwards.
func (s *Serializer) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.clearLocked()
		s.mu.Unlock()
		close(s.quit)
	})
	<-s.done
}

func (s *Serializer) run() {
	defer close(s.done)
	for {
		ctx, text, ok := s.next()
		if !ok {
			select {
			case <-s.wake:
				continue
			case <-s.quit:
				return
			}
		}

		s.speak(ctx, text)
		s.finish()

		select {
		case <-time.After(s.cfg.Gap):
		case <-s.quit:
			return
		}
	}
}

// next dequeues one utterance and marks the serializer as speaking.
func (s *Serializer) next() (context.Context, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.queue) == 0 {
		return nil, "", false
	}
	text := s.queue[0]
	s.queue = append(s.queue[:0], s.queue[1:]...)
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.speaking = true
	return ctx, text, true
}

func (s *Serializer) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.speaking = false
}

func (s *Serializer) speak(ctx context.Context, text string) {
	ctx, span := tracer.Start(ctx, "playback.utterance",
		trace.WithAttributes(attribute.Int("text.length", len(text))))
	defer span.End()

	err := s.speakRemote(ctx, text)
	if err == nil {
		s.record("remote", span)
		return
	}
	if ctx.Err() == context.Canceled {
		s.record("interrupted", span)
		return
	}
	s.log.Warn("playback: remote speech failed, using fallback voice", "err", err)
	span.RecordError(err)

	if err := s.speakFallback(ctx, text); err != nil {
		if ctx.Err() == context.Canceled {
			s.record("interrupted", span)
			return
		}
		s.log.Warn("playback: fallback voice failed", "err", err)
		span.SetStatus(codes.Error, err.Error())
		s.record("failed", span)
		return
	}
	s.record("fallback", span)
}

func (s *Serializer) speakRemote(ctx context.Context, text string) error {
	if s.synth == nil {
		return errNoSynthesizer
	}
	start := time.Now()
	audio, err := s.synth.Synthesize(ctx, tts.Request{
		Text:        text,
		Voice:       s.cfg.Voice,
		Instruction: s.cfg.Instruction,
	})
	synthesisSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	if audio.Text == "" {
		audio.Text = text
	}
	if s.player == nil {
		return errors.New("playback: no player")
	}
	return s.watch(ctx, func(ctx context.Context) error { return s.player.Play(ctx, audio) })
}

func (s *Serializer) speakFallback(ctx context.Context, text string) error {
	if s.fallback == nil {
		return errors.New("playback: no fallback voice")
	}
	return s.watch(ctx, func(ctx context.Context) error {
		return s.fallback.Speak(ctx, text, s.cfg.Locale, s.cfg.Rate)
	})
}

// watch races fn against the playback watchdog so a stuck output device
// cannot wedge the queue. Once ctx is done, fn gets stopGrace to wind down
// before watch returns.
func (s *Serializer) watch(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PlaybackTimeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	t := time.NewTimer(stopGrace)
	defer t.Stop()
	select {
	case err := <-done:
		if err == nil {
			return nil
		}
	case <-t.C:
		s.log.Warn("playback: output still running after cancel", "grace", stopGrace)
	}
	return fmt.Errorf("playback watchdog: %w", ctx.Err())
}

func (s *Serializer) record(outcome string, span trace.Span) {
	span.SetAttributes(attribute.String("outcome", outcome))
	utterances.WithLabelValues(outcome).Inc()
	s.mu.Lock()
	defer s.mu.Unlock()
	switch outcome {
	case "remote":
		s.stats.Spoken++
	case "fallback":
		s.stats.Fallback++
	case "failed":
		s.stats.Failed++
	case "interrupted":
		s.stats.Cleared++
	}
}

func (s *Serializer) dropLocked(reason string) {
	s.stats.Dropped++
	utterances.WithLabelValues("dropped_" + reason).Inc()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
