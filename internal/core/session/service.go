// Package session owns the live coaching sessions: one scheduler, one
// per-frame coach and one speech serializer per session.
package session

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/steveyiyo/formcoach-backend/internal/core/coach"
	"github.com/steveyiyo/formcoach-backend/internal/core/playback"
	"github.com/steveyiyo/formcoach-backend/internal/core/pose"
	"github.com/steveyiyo/formcoach-backend/internal/core/tts"
	"github.com/steveyiyo/formcoach-backend/internal/repo/memory"
	"github.com/steveyiyo/formcoach-backend/pkg/types"
	"github.com/steveyiyo/formcoach-backend/pkg/ws"
)

var (
	ErrNotFound        = errors.New("session not found")
	ErrUnknownExercise = errors.New("unknown exercise")
)

// MinVisibility is the landmark visibility below which a joint is treated
// as occluded.
const MinVisibility = 0.5

// Options carries the tuning every new session starts from.
type Options struct {
	Coach      coach.Config
	Thresholds pose.Thresholds
	Playback   playback.Config
	Registry   *pose.Registry
	Logger     *slog.Logger
}

// live is the runtime half of a session. The coach is driven by the stream
// goroutine but reset from HTTP handlers, so it sits behind mu.
type live struct {
	mu    sync.Mutex
	coach *coach.Coach
	voice *playback.Serializer
}

type Service struct {
	Repo  *memory.SessionRepo
	Hub   *ws.Hub
	Synth tts.Synthesizer

	opts Options
	log  *slog.Logger

	mu    sync.RWMutex
	lives map[string]*live
}

// NewService creates the session service. synth may be nil, in which case
// all speech uses the client's on-device voice.
func NewService(repo *memory.SessionRepo, hub *ws.Hub, synth tts.Synthesizer, opts Options) *Service {
	if opts.Registry == nil {
		opts.Registry = pose.DefaultRegistry
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		Repo:  repo,
		Hub:   hub,
		Synth: synth,
		opts:  opts,
		log:   opts.Logger,
		lives: map[string]*live{},
	}
}

// Registry returns the exercise registry sessions are validated against.
func (s *Service) Registry() *pose.Registry { return s.opts.Registry }

func (s *Service) Create(req types.CreateSessionReq) (*memory.Session, error) {
	if _, ok := s.opts.Registry.Lookup(req.Exercise); !ok {
		return nil, ErrUnknownExercise
	}
	id := "sess_" + uuid.NewString()
	sess := memory.NewSession(id, req.Exercise, req.TargetReps)
	sess.Locale = req.Locale
	sess.Voice = req.Voice

	pcfg := s.opts.Playback
	if req.Locale != "" {
		pcfg.Locale = req.Locale
	}
	if req.Voice != "" {
		pcfg.Voice = req.Voice
	}
	voice := ws.NewVoice(s.Hub, id)
	log := s.log.With("session", id)
	ser := playback.New(pcfg, s.Synth, voice, voice, log)
	if req.Muted {
		ser.Mute()
	}
	sched := coach.NewScheduler(s.opts.Coach, coach.WithLogger(log))
	c := coach.NewCoach(sched,
		coach.WithRegistry(s.opts.Registry),
		coach.WithThresholds(s.opts.Thresholds),
		coach.WithSpeaker(ser),
	)

	s.Repo.Save(sess)
	s.mu.Lock()
	s.lives[id] = &live{coach: c, voice: ser}
	s.mu.Unlock()
	log.Info("session created", "exercise", req.Exercise, "target_reps", req.TargetReps)
	return sess, nil
}

func (s *Service) get(id string) (*live, error) {
	s.mu.RLock()
	l, ok := s.lives[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return l, nil
}

// Exists reports whether id is a live session.
func (s *Service) Exists(id string) bool {
	_, err := s.get(id)
	return err == nil
}

// Start greets a newly connected client with session_start.
func (s *Service) Start(id string) error {
	l, err := s.get(id)
	if err != nil {
		return err
	}
	l.mu.Lock()
	m := l.coach.Announce(coach.SessionStart)
	l.mu.Unlock()
	s.publish(id, m)
	return nil
}

// Process runs one frame through the session's coach. Emitted messages are
// recorded and returned for delivery; their speech is already queued.
func (s *Service) Process(id string, f coach.Frame) (coach.Result, error) {
	l, err := s.get(id)
	if err != nil {
		return coach.Result{}, err
	}
	sess, ok := s.Repo.Get(id)
	if !ok {
		return coach.Result{}, ErrNotFound
	}
	if f.Exercise == "" {
		f.Exercise = sess.Exercise
	}
	if f.TargetReps == 0 {
		f.TargetReps = sess.TargetReps
	}

	l.mu.Lock()
	res := l.coach.Process(f)
	l.mu.Unlock()

	s.Repo.IncFrame(id, f.Reps)
	for _, m := range res.Messages {
		s.Repo.AppendMessage(id, types.NewCoachMsg(m))
	}
	return res, nil
}

func (s *Service) Summary(id string) (types.SummaryResp, bool) {
	sess, ok := s.Repo.Get(id)
	if !ok {
		return types.SummaryResp{}, false
	}
	a := sess.Activity()
	out := types.SummaryResp{
		SessionID:      sess.ID,
		Exercise:       sess.Exercise,
		TargetReps:     sess.TargetReps,
		FramesAnalyzed: a.Frames,
		Reps:           a.Reps,
		Messages:       a.Counts,
		Recent:         a.Messages,
	}
	if l, err := s.get(id); err == nil {
		out.Utterances = l.voice.Stats()
		out.Muted = l.voice.Muted()
	}
	return out, true
}

func (s *Service) Mute(id string) error {
	return s.withVoice(id, (*playback.Serializer).Mute)
}

func (s *Service) Unmute(id string) error {
	return s.withVoice(id, (*playback.Serializer).Unmute)
}

// Clear drops pending speech and stops the current utterance.
func (s *Service) Clear(id string) error {
	return s.withVoice(id, (*playback.Serializer).Clear)
}

// Reset restarts coaching: scheduler history, rep tracking and speech.
func (s *Service) Reset(id string) error {
	l, err := s.get(id)
	if err != nil {
		return err
	}
	l.voice.Clear()
	l.mu.Lock()
	l.coach.Reset()
	l.mu.Unlock()
	return nil
}

func (s *Service) withVoice(id string, fn func(*playback.Serializer)) error {
	l, err := s.get(id)
	if err != nil {
		return err
	}
	fn(l.voice)
	return nil
}

// End announces session_complete, disposes the session's speech and
// forgets the session.
func (s *Service) End(id string) error {
	s.mu.Lock()
	l, ok := s.lives[id]
	delete(s.lives, id)
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	l.voice.Close()
	l.mu.Lock()
	m := l.coach.Announce(coach.SessionComplete)
	l.mu.Unlock()
	s.publish(id, m)

	s.Repo.Delete(id)
	s.log.Info("session ended", "session", id)
	return nil
}

// Close ends every live session.
func (s *Service) Close() {
	s.mu.RLock()
	ids := make([]string, 0, len(s.lives))
	for id := range s.lives {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	for _, id := range ids {
		_ = s.End(id)
	}
}

// publish records m and pushes it to the session's client, if connected.
func (s *Service) publish(id string, m *coach.Message) {
	if m == nil {
		return
	}
	msg := types.NewCoachMsg(m)
	s.Repo.AppendMessage(id, msg)
	if err := s.Hub.Send(id, msg); err != nil && !errors.Is(err, ws.ErrNotConnected) {
		s.log.Warn("session: push message", "session", id, "err", err)
	}
}
