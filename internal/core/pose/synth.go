package pose

import (
	"errors"
	"sort"
	"sync"
)

// Offset places the distal joint of a segment relative to its proximal joint.
// Dir is a direction in body space: X points away from the body midline, Y
// points down the screen. It does not need to be unit length. Fraction scales
// the user's measured segment length, so values below 1 express
// foreshortening toward or away from the camera.
type Offset struct {
	Dir      Point   `yaml:"dir" json:"dir"`
	Fraction float64 `yaml:"fraction" json:"fraction"`
}

// StagePose lists the segment offsets that differ from a relaxed standing
// pose for one exercise stage.
type StagePose map[Segment]Offset

// Exercise is a named set of target stages.
type Exercise struct {
	Name   string               `yaml:"name" json:"name"`
	Stages map[string]StagePose `yaml:"stages" json:"stages"`
}

// StageNames returns the exercise's stages in sorted order.
func (e Exercise) StageNames() []string {
	out := make([]string, 0, len(e.Stages))
	for s := range e.Stages {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// standing is used for every segment a stage does not mention.
var standing = Offset{Dir: Point{X: 0.05, Y: 1}, Fraction: 1}

var (
	ErrNoExerciseName = errors.New("exercise name is empty")
	ErrNoStages       = errors.New("exercise has no stages")
)

// TargetPose maps each joint to where it should be for the target stage.
type TargetPose map[Joint]Point

// Registry maps exercise types to their stage tables. It is safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	exercises map[string]Exercise
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{exercises: map[string]Exercise{}}
}

// Register adds or replaces an exercise.
func (r *Registry) Register(e Exercise) error {
	if e.Name == "" {
		return ErrNoExerciseName
	}
	if len(e.Stages) == 0 {
		return ErrNoStages
	}
	r.mu.Lock()
	r.exercises[e.Name] = e
	r.mu.Unlock()
	return nil
}

// Lookup returns the exercise registered under name.
func (r *Registry) Lookup(name string) (Exercise, bool) {
	r.mu.RLock()
	e, ok := r.exercises[name]
	r.mu.RUnlock()
	return e, ok
}

// Exercises returns all registered exercises sorted by name.
func (r *Registry) Exercises() []Exercise {
	r.mu.RLock()
	out := make([]Exercise, 0, len(r.exercises))
	for _, e := range r.exercises {
		out = append(out, e)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Synthesize builds the target pose for exercise at stage, scaled by profile
// and anchored at the user's current shoulders and hips. It returns false when
// an anchor joint is missing or the exercise or stage is unknown; callers show
// no overlay for that frame.
func (r *Registry) Synthesize(s Skeleton, exercise, stage string, profile BoneLengthProfile) (TargetPose, bool) {
	ex, ok := r.Lookup(exercise)
	if !ok {
		return nil, false
	}
	sp, ok := ex.Stages[stage]
	if !ok {
		return nil, false
	}

	tp := make(TargetPose, len(Joints))
	for _, j := range Anchors {
		p, ok := s.At(j)
		if !ok {
			return nil, false
		}
		tp[j] = p
	}

	// Outward is +x for the left side unless the image is mirrored.
	outward := 1.0
	if tp[LeftShoulder].X < tp[RightShoulder].X {
		outward = -1
	}

	for _, b := range bones {
		off, ok := sp[b.seg]
		if !ok {
			off = standing
		}
		side := outward
		if b.right {
			side = -outward
		}
		dir := unit(Point{X: off.Dir.X * side, Y: off.Dir.Y})
		tp[b.to] = tp[b.from].Add(dir.Scale(off.Fraction * profile.Length(b.seg)))
	}
	return tp, true
}

func unit(p Point) Point {
	n := p.Norm()
	if n == 0 {
		return Point{}
	}
	return p.Scale(1 / n)
}

// DefaultRegistry holds the built-in exercises.
var DefaultRegistry = builtinRegistry()

// Synthesize uses DefaultRegistry.
func Synthesize(s Skeleton, exercise, stage string, profile BoneLengthProfile) (TargetPose, bool) {
	return DefaultRegistry.Synthesize(s, exercise, stage, profile)
}
