package memory

import (
	"sync"
	"time"

	"github.com/steveyiyo/formcoach-backend/pkg/types"
)

// RecentMessages bounds the message history kept per session.
const RecentMessages = 20

type Session struct {
	ID         string
	CreatedAt  time.Time
	Exercise   string
	TargetReps int
	Locale     string
	Voice      string

	mu       sync.Mutex
	frames   int64
	reps     int
	counts   map[string]int
	messages []types.CoachMsg
}

func NewSession(id, exercise string, targetReps int) *Session {
	return &Session{
		ID:         id,
		CreatedAt:  time.Now(),
		Exercise:   exercise,
		TargetReps: targetReps,
		counts:     map[string]int{},
	}
}

// Activity is a snapshot of a session's counters.
type Activity struct {
	Frames   int64
	Reps     int
	Counts   map[string]int
	Messages []types.CoachMsg
}

func (s *Session) Activity() Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		counts[k] = v
	}
	return Activity{
		Frames:   s.frames,
		Reps:     s.reps,
		Counts:   counts,
		Messages: append([]types.CoachMsg(nil), s.messages...),
	}
}

type SessionRepo struct {
	m sync.Map
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{}
}

func (r *SessionRepo) Save(s *Session) {
	r.m.Store(s.ID, s)
}

func (r *SessionRepo) Get(id string) (*Session, bool) {
	v, ok := r.m.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

func (r *SessionRepo) Delete(id string) {
	r.m.Delete(id)
}

// AppendMessage counts m and keeps it in the bounded history.
func (r *SessionRepo) AppendMessage(id string, m types.CoachMsg) {
	s, ok := r.Get(id)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[string(m.Event)]++
	s.messages = append(s.messages, m)
	if n := len(s.messages); n > RecentMessages {
		s.messages = append(s.messages[:0], s.messages[n-RecentMessages:]...)
	}
}

// IncFrame counts one analysed frame and records the latest rep count.
func (r *SessionRepo) IncFrame(id string, reps int) {
	s, ok := r.Get(id)
	if !ok {
		return
	}
	s.mu.Lock()
	s.frames++
	s.reps = reps
	s.mu.Unlock()
}
