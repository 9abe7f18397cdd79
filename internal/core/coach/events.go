// Package coach turns per-frame form analysis into a throttled stream of
// coaching messages.
package coach

import (
	"time"
)

// EventType classifies a coaching situation.
type EventType string

const (
	GoodForm EventType = "good_form"
	WarnForm EventType = "warn_form"
	BadForm  EventType = "bad_form"
	HoldForm EventType = "hold_form"

	MovementTooFast EventType = "movement_too_fast"
	MovementTooSlow EventType = "movement_too_slow"
	MovementSmooth  EventType = "movement_smooth"
	MovementJerky   EventType = "movement_jerky"
	NoMotion        EventType = "no_motion"

	RepCompleted      EventType = "rep_completed"
	TargetRepsReached EventType = "target_reps_reached"
	Halfway           EventType = "halfway"
	AlmostDone        EventType = "almost_done"
	ExerciseStart     EventType = "exercise_start"
	ExerciseComplete  EventType = "exercise_complete"
	SessionStart      EventType = "session_start"
	SessionComplete   EventType = "session_complete"
)

// Priority tells the UI how prominently to show a message.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type rule struct {
	interval time.Duration
	priority Priority
	// repeatable messages skip the anti-repeat window.
	repeatable bool
}

// rules is the closed set of event types. Hold and count feedback is short
// interval and may repeat; warnings are medium; encouragement is long.
var rules = map[EventType]rule{
	GoodForm: {10 * time.Second, PriorityLow, false},
	WarnForm: {2500 * time.Millisecond, PriorityMedium, false},
	BadForm:  {2 * time.Second, PriorityHigh, false},
	HoldForm: {700 * time.Millisecond, PriorityMedium, true},

	MovementTooFast: {2500 * time.Millisecond, PriorityMedium, false},
	MovementTooSlow: {2500 * time.Millisecond, PriorityMedium, false},
	MovementSmooth:  {12 * time.Second, PriorityLow, false},
	MovementJerky:   {3 * time.Second, PriorityMedium, false},
	NoMotion:        {8 * time.Second, PriorityLow, false},

	RepCompleted:      {600 * time.Millisecond, PriorityMedium, true},
	TargetRepsReached: {5 * time.Second, PriorityHigh, false},
	Halfway:           {5 * time.Second, PriorityLow, false},
	AlmostDone:        {5 * time.Second, PriorityLow, false},
	ExerciseStart:     {time.Second, PriorityHigh, false},
	ExerciseComplete:  {time.Second, PriorityHigh, false},
	SessionStart:      {time.Second, PriorityHigh, false},
	SessionComplete:   {time.Second, PriorityHigh, false},
}

// EventTypes returns every known event type.
func EventTypes() []EventType {
	out := make([]EventType, 0, len(rules))
	for t := range rules {
		out = append(out, t)
	}
	return out
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	_, ok := rules[t]
	return ok
}

// Priority returns the display priority for t.
func (t EventType) Priority() Priority {
	return rules[t].priority
}

// isFormIssue reports whether t counts toward the consecutive form issue ramp.
func (t EventType) isFormIssue() bool {
	return t == WarnForm || t == BadForm
}

// Message is one coaching utterance. It is created per emission and never
// mutated afterwards.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Priority  Priority  `json:"priority"`
}
