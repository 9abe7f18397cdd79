package coach

import (
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config tunes the scheduler. Zero values are replaced by defaults.
type Config struct {
	// Intervals overrides the minimum time between two messages of a type.
	Intervals map[EventType]time.Duration `yaml:"intervals"`
	// EncouragementDrop is the probability a good_form message is dropped.
	EncouragementDrop float64 `yaml:"encouragement_drop"`
	// WarnRamp and BadRamp are the consecutive form issues that must precede
	// a warn_form or bad_form message.
	WarnRamp int `yaml:"warn_ramp"`
	BadRamp  int `yaml:"bad_ramp"`
	// RecentTexts is the size of the anti-repeat window.
	RecentTexts int `yaml:"recent_texts"`
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		Intervals:         map[EventType]time.Duration{},
		EncouragementDrop: 0.9,
		WarnRamp:          2,
		BadRamp:           1,
		RecentTexts:       5,
	}
}

// Clock supplies the scheduler's notion of now.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithRand replaces the source used for encouragement sampling. f must
// return values in [0,1).
func WithRand(f func() float64) Option {
	return func(s *Scheduler) { s.rand = f }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// Scheduler decides which coaching candidates become messages. It combines a
// per-type rate limiter, a consecutive form issue ramp, sampling of
// encouragement, and an anti-repeat window over recently emitted texts.
//
// A Scheduler belongs to one coaching session. It is safe for concurrent use,
// though the per-frame caller is normally its only user.
type Scheduler struct {
	cfg   Config
	clock Clock
	rand  func() float64
	log   *slog.Logger

	mu         sync.Mutex
	lastEmit   map[EventType]time.Time
	formIssues int
	recent     []string
}

// NewScheduler creates a scheduler for a new session.
func NewScheduler(cfg Config, opts ...Option) *Scheduler {
	def := DefaultConfig()
	if cfg.Intervals == nil {
		cfg.Intervals = def.Intervals
	}
	if cfg.EncouragementDrop < 0 || cfg.EncouragementDrop > 1 {
		cfg.EncouragementDrop = def.EncouragementDrop
	}
	if cfg.WarnRamp <= 0 {
		cfg.WarnRamp = def.WarnRamp
	}
	if cfg.BadRamp <= 0 {
		cfg.BadRamp = def.BadRamp
	}
	if cfg.RecentTexts <= 0 {
		cfg.RecentTexts = def.RecentTexts
	}
	s := &Scheduler{
		cfg:   cfg,
		clock: systemClock{},
		rand:  rand.Float64,
		log:   slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.Reset()
	return s
}

// Reset clears all history, as on a session restart. Form corrections stay
// quiet for one interval after a reset so the user can get into position;
// that settle window, not the form ramp, is what keeps the first two form
// issues of a session silent. Later in a session the ramp alone gates them,
// so the second consecutive bad_form after a good_form may be spoken.
func (s *Scheduler) Reset() {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastEmit = map[EventType]time.Time{
		WarnForm: now,
		BadForm:  now,
	}
	s.formIssues = 0
	s.recent = s.recent[:0]
}

// Interval returns the minimum time between two messages of type t.
func (s *Scheduler) Interval(t EventType) time.Duration {
	if d, ok := s.cfg.Intervals[t]; ok && d >= 0 {
		return d
	}
	return rules[t].interval
}

// FormIssues returns the current run of consecutive non-good form frames.
func (s *Scheduler) FormIssues() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.formIssues
}

// Recent returns the anti-repeat window, oldest first.
func (s *Scheduler) Recent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.recent...)
}

// TryEmit offers text as a candidate message of type t. It returns nil when
// the candidate is suppressed; suppression is the normal outcome and callers
// simply try again on a later frame.
func (s *Scheduler) TryEmit(t EventType, text string) *Message {
	return s.TryEmitFunc(t, func([]string) string { return text })
}

// TryEmitFunc is TryEmit with lazily generated text. gen receives the
// anti-repeat window so it can prefer a fresh phrasing; it is only called
// once the candidate has passed rate limiting, the ramp and sampling.
func (s *Scheduler) TryEmitFunc(t EventType, gen func(recent []string) string) *Message {
	r, ok := rules[t]
	if !ok {
		s.log.Debug("coach: unknown event type", "event", string(t))
		messagesSuppressed.WithLabelValues("unknown", reasonUnknown).Inc()
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()

	// Any form issue extends the run; good form ends it.
	prior := s.formIssues
	switch {
	case t == GoodForm:
		s.formIssues = 0
	case t.isFormIssue():
		s.formIssues++
	}

	if last, ok := s.lastEmit[t]; ok && now.Sub(last) < s.Interval(t) {
		return s.suppress(t, reasonRateLimited)
	}

	switch t {
	case WarnForm:
		if prior < s.cfg.WarnRamp {
			return s.suppress(t, reasonRamp)
		}
	case BadForm:
		if prior < s.cfg.BadRamp {
			return s.suppress(t, reasonRamp)
		}
	case GoodForm:
		if s.rand() < s.cfg.EncouragementDrop {
			return s.suppress(t, reasonSampled)
		}
	}

	text := gen(append([]string(nil), s.recent...))
	if text == "" {
		return s.suppress(t, reasonEmpty)
	}
	if !r.repeatable && contains(s.recent, text) {
		return s.suppress(t, reasonRepeat)
	}

	s.lastEmit[t] = now
	s.remember(text)
	messagesEmitted.WithLabelValues(string(t)).Inc()
	return &Message{
		ID:        uuid.NewString(),
		Text:      text,
		Type:      t,
		Timestamp: now,
		Priority:  r.priority,
	}
}

func (s *Scheduler) suppress(t EventType, reason string) *Message {
	messagesSuppressed.WithLabelValues(string(t), reason).Inc()
	return nil
}

func (s *Scheduler) remember(text string) {
	s.recent = append(s.recent, text)
	if over := len(s.recent) - s.cfg.RecentTexts; over > 0 {
		s.recent = append(s.recent[:0], s.recent[over:]...)
	}
}
