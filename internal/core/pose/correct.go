package pose

import "math"

// Severity grades how far a joint is from its target.
type Severity string

const (
	SeverityOK    Severity = "ok"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Rank orders severities: ok < warn < error. Unknown values rank as ok.
func (s Severity) Rank() int {
	switch s {
	case SeverityWarn:
		return 1
	case SeverityError:
		return 2
	}
	return 0
}

// Direction hints, in screen terms.
const (
	HintUp    = "up"
	HintDown  = "down"
	HintLeft  = "left"
	HintRight = "right"
)

// Thresholds tune correction grading. Distances are normalized units.
type Thresholds struct {
	// Warn and Error are the distances at which a joint becomes warn or error.
	Warn  float64 `yaml:"warn"`
	Error float64 `yaml:"error"`
	// HintMin is the smallest per-axis offset that earns a direction hint.
	HintMin float64 `yaml:"hint_min"`
	// HintRatio drops the minor axis hint when it is smaller than this
	// fraction of the major axis offset.
	HintRatio float64 `yaml:"hint_ratio"`
}

// DefaultThresholds are tuned for MediaPipe output on a 720p stream.
var DefaultThresholds = Thresholds{
	Warn:      0.05,
	Error:     0.10,
	HintMin:   0.02,
	HintRatio: 0.4,
}

// JointCorrection is the offset from a joint's current to its target position.
type JointCorrection struct {
	Joint     Joint    `json:"joint"`
	Current   Point    `json:"current"`
	Target    Point    `json:"target"`
	Distance  float64  `json:"distance"`
	Direction []string `json:"direction,omitempty"`
	Severity  Severity `json:"severity"`
}

// Classify grades a distance.
func (t Thresholds) Classify(d float64) Severity {
	switch {
	case d >= t.Error:
		return SeverityError
	case d >= t.Warn:
		return SeverityWarn
	}
	return SeverityOK
}

// Hints turns the offset from current to target into at most two direction
// words, largest axis first.
func (t Thresholds) Hints(current, target Point) []string {
	delta := target.Sub(current)
	ax, ay := math.Abs(delta.X), math.Abs(delta.Y)
	major := math.Max(ax, ay)
	if major < t.HintMin {
		return nil
	}

	var xHint, yHint string
	if ax >= t.HintMin && ax >= t.HintRatio*major {
		xHint = HintRight
		if delta.X < 0 {
			xHint = HintLeft
		}
	}
	if ay >= t.HintMin && ay >= t.HintRatio*major {
		yHint = HintDown
		if delta.Y < 0 {
			yHint = HintUp
		}
	}

	hints := make([]string, 0, 2)
	if ay > ax {
		xHint, yHint = yHint, xHint
	}
	for _, h := range []string{xHint, yHint} {
		if h != "" {
			hints = append(hints, h)
		}
	}
	return hints
}

// Correct compares every joint present in both s and tp. Corrections graded
// ok are included; use Surfaced before rendering or speaking them.
func (t Thresholds) Correct(s Skeleton, tp TargetPose) []JointCorrection {
	out := make([]JointCorrection, 0, len(tp))
	for _, j := range Joints {
		target, ok := tp[j]
		if !ok {
			continue
		}
		current, ok := s.At(j)
		if !ok {
			continue
		}
		d := current.Dist(target)
		out = append(out, JointCorrection{
			Joint:     j,
			Current:   current,
			Target:    target,
			Distance:  d,
			Direction: t.Hints(current, target),
			Severity:  t.Classify(d),
		})
	}
	return out
}

// Correct uses DefaultThresholds.
func Correct(s Skeleton, tp TargetPose) []JointCorrection {
	return DefaultThresholds.Correct(s, tp)
}

// Surfaced drops corrections graded ok.
func Surfaced(cs []JointCorrection) []JointCorrection {
	out := make([]JointCorrection, 0, len(cs))
	for _, c := range cs {
		if c.Severity != SeverityOK {
			out = append(out, c)
		}
	}
	return out
}

// Worst returns the correction with the largest distance.
func Worst(cs []JointCorrection) (JointCorrection, bool) {
	if len(cs) == 0 {
		return JointCorrection{}, false
	}
	w := cs[0]
	for _, c := range cs[1:] {
		if c.Distance > w.Distance {
			w = c
		}
	}
	return w, true
}
