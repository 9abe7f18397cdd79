// Package pose turns one frame of body landmarks into overlay geometry: a
// per-frame bone-length profile, a synthesized target pose for the current
// exercise stage, and per-joint correction vectors.
//
// Coordinates are normalized camera space in [0,1] with y growing downward.
// Every function here is pure and bounded to a fixed joint set so it can run
// on every video frame.
package pose

import "math"

// Joint names a tracked body joint.
type Joint string

const (
	LeftShoulder  Joint = "left_shoulder"
	RightShoulder Joint = "right_shoulder"
	LeftElbow     Joint = "left_elbow"
	RightElbow    Joint = "right_elbow"
	LeftWrist     Joint = "left_wrist"
	RightWrist    Joint = "right_wrist"
	LeftHip       Joint = "left_hip"
	RightHip      Joint = "right_hip"
	LeftKnee      Joint = "left_knee"
	RightKnee     Joint = "right_knee"
	LeftAnkle     Joint = "left_ankle"
	RightAnkle    Joint = "right_ankle"
)

// Joints lists every joint in a stable order.
var Joints = []Joint{
	LeftShoulder, RightShoulder,
	LeftElbow, RightElbow,
	LeftWrist, RightWrist,
	LeftHip, RightHip,
	LeftKnee, RightKnee,
	LeftAnkle, RightAnkle,
}

// Anchors are preserved unchanged between the live and the target pose.
var Anchors = []Joint{LeftShoulder, RightShoulder, LeftHip, RightHip}

// MediaPipe pose landmark indices for the joints above.
var mediaPipeIndex = map[int]Joint{
	11: LeftShoulder, 12: RightShoulder,
	13: LeftElbow, 14: RightElbow,
	15: LeftWrist, 16: RightWrist,
	23: LeftHip, 24: RightHip,
	25: LeftKnee, 26: RightKnee,
	27: LeftAnkle, 28: RightAnkle,
}

// Label is the spoken form of a joint name, e.g. "left elbow".
func (j Joint) Label() string {
	b := []byte(j)
	for i := range b {
		if b[i] == '_' {
			b[i] = ' '
		}
	}
	return string(b)
}

// Known reports whether j is one of the tracked joints.
func (j Joint) Known() bool {
	for _, k := range Joints {
		if k == j {
			return true
		}
	}
	return false
}

// Point is a 2D position in normalized camera space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Add(q Point) Point     { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point     { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Scale(k float64) Point { return Point{p.X * k, p.Y * k} }
func (p Point) Norm() float64         { return math.Hypot(p.X, p.Y) }
func (p Point) Dist(q Point) float64  { return p.Sub(q).Norm() }

// Landmark is a detected joint position. Z is optional depth and does not
// take part in any distance computed by this package.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z,omitempty"`
	Visibility float64 `json:"visibility,omitempty"`
}

// Point drops depth.
func (l Landmark) Point() Point { return Point{X: l.X, Y: l.Y} }

// Skeleton is one frame of detected joints. Absent joints are occluded.
type Skeleton map[Joint]Landmark

// At returns the 2D position of j and whether it was detected.
func (s Skeleton) At(j Joint) (Point, bool) {
	l, ok := s[j]
	if !ok {
		return Point{}, false
	}
	return l.Point(), true
}

// Scaled returns a copy with every coordinate multiplied by k.
func (s Skeleton) Scaled(k float64) Skeleton {
	out := make(Skeleton, len(s))
	for j, l := range s {
		out[j] = Landmark{X: l.X * k, Y: l.Y * k, Z: l.Z * k, Visibility: l.Visibility}
	}
	return out
}

// FromMediaPipe builds a Skeleton from the 33-point MediaPipe pose output,
// skipping joints whose visibility is below minVisibility. A zero visibility
// is read as "not reported" and kept.
func FromMediaPipe(points []Landmark, minVisibility float64) Skeleton {
	s := make(Skeleton, len(mediaPipeIndex))
	for idx, j := range mediaPipeIndex {
		if idx >= len(points) {
			continue
		}
		l := points[idx]
		if l.Visibility != 0 && l.Visibility < minVisibility {
			continue
		}
		s[j] = l
	}
	return s
}

// FromNamed builds a Skeleton from joint-name keyed landmarks, applying the
// same visibility rule as FromMediaPipe. Unknown names are ignored.
func FromNamed(named map[string]Landmark, minVisibility float64) Skeleton {
	s := make(Skeleton, len(named))
	for name, l := range named {
		j := Joint(name)
		if !j.Known() {
			continue
		}
		if l.Visibility != 0 && l.Visibility < minVisibility {
			continue
		}
		s[j] = l
	}
	return s
}
