package coach

import (
	"log/slog"
	"math/rand/v2"
	"strconv"

	"github.com/steveyiyo/formcoach-backend/internal/core/pose"
)

// Tempo is the classifier's judgement of movement speed.
type Tempo string

const (
	TempoUnknown Tempo = ""
	TempoTooFast Tempo = "too_fast"
	TempoTooSlow Tempo = "too_slow"
	TempoSmooth  Tempo = "smooth"
	TempoJerky   Tempo = "jerky"
	TempoStill   Tempo = "no_motion"
)

var tempoEvents = map[Tempo]EventType{
	TempoTooFast: MovementTooFast,
	TempoTooSlow: MovementTooSlow,
	TempoSmooth:  MovementSmooth,
	TempoJerky:   MovementJerky,
	TempoStill:   NoMotion,
}

// HoldStage is the stage name classifiers use for isometric holds.
const HoldStage = "hold"

// Classification is what the external stage/rep classifier reports for a
// frame.
type Classification struct {
	Exercise     string        `json:"exercise"`
	CurrentStage string        `json:"current_stage"`
	TargetStage  string        `json:"target_stage"`
	FormSeverity pose.Severity `json:"form_severity"`
	Tempo        Tempo         `json:"tempo"`
	Reps         int           `json:"reps"`
	TargetReps   int           `json:"target_reps"`
}

// Frame is one analysed video frame.
type Frame struct {
	Skeleton pose.Skeleton
	Classification
}

// Result is everything the rendering layer needs for one frame.
type Result struct {
	// Target is nil when no overlay can be drawn this frame.
	Target pose.TargetPose
	// Corrections excludes joints graded ok.
	Corrections []pose.JointCorrection
	Messages    []*Message
}

// Speaker receives the text of every emitted message for playback.
type Speaker interface {
	Enqueue(text string)
}

// CoachOption configures a Coach.
type CoachOption func(*Coach)

// WithRegistry sets the exercise registry. Defaults to pose.DefaultRegistry.
func WithRegistry(r *pose.Registry) CoachOption {
	return func(c *Coach) { c.registry = r }
}

// WithThresholds sets the correction thresholds.
func WithThresholds(t pose.Thresholds) CoachOption {
	return func(c *Coach) { c.thresholds = t }
}

// WithSpeaker routes emitted message text to sp.
func WithSpeaker(sp Speaker) CoachOption {
	return func(c *Coach) { c.speaker = sp }
}

// WithPicker sets how stock phrases are chosen; pick returns an index in [0,n).
func WithPicker(pick func(n int) int) CoachOption {
	return func(c *Coach) { c.pick = pick }
}

// Coach drives the pipeline for one session: landmarks to profile, target
// pose, corrections, candidate events, and finally the scheduler. It is used
// from a single per-frame goroutine.
type Coach struct {
	sched      *Scheduler
	registry   *pose.Registry
	thresholds pose.Thresholds
	speaker    Speaker
	pick       func(n int) int

	exercise  string
	reps      int
	completed bool
}

// NewCoach wires a coach to its session scheduler.
func NewCoach(s *Scheduler, opts ...CoachOption) *Coach {
	c := &Coach{
		sched:      s,
		registry:   pose.DefaultRegistry,
		thresholds: pose.DefaultThresholds,
		pick:       rand.IntN,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Scheduler returns the session scheduler.
func (c *Coach) Scheduler() *Scheduler { return c.sched }

// Reset restarts the session: scheduler history and rep tracking.
func (c *Coach) Reset() {
	c.sched.Reset()
	c.exercise = ""
	c.reps = 0
	c.completed = false
}

// Announce emits a stock lifecycle message such as SessionStart.
func (c *Coach) Announce(t EventType) *Message {
	return c.emit(nil, t, c.stock(t))
}

// Process analyses one frame.
func (c *Coach) Process(f Frame) Result {
	var res Result

	if f.Exercise != "" && f.Exercise != c.exercise {
		c.exercise = f.Exercise
		c.reps = 0
		c.completed = false
		c.emit(&res, ExerciseStart, func([]string) string { return exerciseStartText(f.Exercise) })
	}

	profile := pose.Profile(f.Skeleton)
	tp, ok := c.registry.Synthesize(f.Skeleton, f.Exercise, f.TargetStage, profile)
	c.countFrame(f.Exercise, ok)
	if ok {
		res.Target = tp
		res.Corrections = pose.Surfaced(c.thresholds.Correct(f.Skeleton, tp))
	} else {
		slog.Debug("coach: no target pose", "exercise", f.Exercise, "stage", f.TargetStage)
	}

	c.form(&res, f, ok)
	if t, ok := tempoEvents[f.Tempo]; ok {
		c.emit(&res, t, c.stock(t))
	}
	c.repEvents(&res, f)
	return res
}

func (c *Coach) form(res *Result, f Frame, haveTarget bool) {
	if !haveTarget && f.FormSeverity == "" {
		return
	}
	worst, hasWorst := pose.Worst(res.Corrections)

	if f.TargetStage == HoldStage && f.CurrentStage == HoldStage {
		c.emit(res, HoldForm, func(recent []string) string {
			if hasWorst {
				return correctionText(worst)
			}
			return Phrase(HoldForm, recent, c.pick)
		})
		return
	}

	sev := f.FormSeverity
	if hasWorst && worst.Severity.Rank() > sev.Rank() {
		sev = worst.Severity
	}
	t := GoodForm
	switch sev {
	case pose.SeverityError:
		t = BadForm
	case pose.SeverityWarn:
		t = WarnForm
	}
	c.emit(res, t, func(recent []string) string {
		if hasWorst && t != GoodForm {
			if text := correctionText(worst); !contains(recent, text) {
				return text
			}
		}
		return Phrase(t, recent, c.pick)
	})
}

func (c *Coach) repEvents(res *Result, f Frame) {
	if f.Reps < c.reps {
		// The classifier restarted its count.
		c.reps = f.Reps
		return
	}
	if f.Reps == c.reps {
		return
	}
	c.reps = f.Reps
	n := f.Reps
	c.emit(res, RepCompleted, func([]string) string { return strconv.Itoa(n) })

	target := f.TargetReps
	if target <= 0 || c.completed {
		return
	}
	switch {
	case n >= target:
		c.completed = true
		c.emit(res, TargetRepsReached, c.stock(TargetRepsReached))
		c.emit(res, ExerciseComplete, c.stock(ExerciseComplete))
	case target >= 6 && n == target/2:
		c.emit(res, Halfway, c.stock(Halfway))
	case target > 4 && target-n == 2:
		c.emit(res, AlmostDone, c.stock(AlmostDone))
	}
}

func (c *Coach) stock(t EventType) func([]string) string {
	return func(recent []string) string { return Phrase(t, recent, c.pick) }
}

func (c *Coach) emit(res *Result, t EventType, gen func([]string) string) *Message {
	m := c.sched.TryEmitFunc(t, gen)
	if m == nil {
		return nil
	}
	if res != nil {
		res.Messages = append(res.Messages, m)
	}
	if c.speaker != nil {
		c.speaker.Enqueue(m.Text)
	}
	return m
}

func (c *Coach) countFrame(exercise string, overlay bool) {
	if _, ok := c.registry.Lookup(exercise); !ok {
		exercise = "unknown"
	}
	framesAnalyzed.WithLabelValues(exercise, strconv.FormatBool(overlay)).Inc()
}
