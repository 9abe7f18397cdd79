package pose

// Segment names one limb bone measured by the profiler.
type Segment string

const (
	LeftUpperArm  Segment = "left_upper_arm"
	RightUpperArm Segment = "right_upper_arm"
	LeftForearm   Segment = "left_forearm"
	RightForearm  Segment = "right_forearm"
	LeftThigh     Segment = "left_thigh"
	RightThigh    Segment = "right_thigh"
	LeftShin      Segment = "left_shin"
	RightShin     Segment = "right_shin"
)

// Default segment lengths in normalized units, used when an endpoint joint is
// occluded. They match an adult standing roughly two metres from the camera.
const (
	DefaultUpperArm = 0.15
	DefaultForearm  = 0.13
	DefaultThigh    = 0.20
	DefaultShin     = 0.19
)

type bone struct {
	seg      Segment
	from, to Joint
	right    bool
}

// bones is also the chaining order used by the synthesizer: every segment
// starts at an anchor or at the end joint of an earlier segment.
var bones = []bone{
	{LeftUpperArm, LeftShoulder, LeftElbow, false},
	{RightUpperArm, RightShoulder, RightElbow, true},
	{LeftForearm, LeftElbow, LeftWrist, false},
	{RightForearm, RightElbow, RightWrist, true},
	{LeftThigh, LeftHip, LeftKnee, false},
	{RightThigh, RightHip, RightKnee, true},
	{LeftShin, LeftKnee, LeftAnkle, false},
	{RightShin, RightKnee, RightAnkle, true},
}

// BoneLengthProfile holds the user's limb lengths measured on one frame.
type BoneLengthProfile struct {
	LeftUpperArm  float64 `json:"left_upper_arm"`
	RightUpperArm float64 `json:"right_upper_arm"`
	LeftForearm   float64 `json:"left_forearm"`
	RightForearm  float64 `json:"right_forearm"`
	LeftThigh     float64 `json:"left_thigh"`
	RightThigh    float64 `json:"right_thigh"`
	LeftShin      float64 `json:"left_shin"`
	RightShin     float64 `json:"right_shin"`
}

// DefaultProfile is the profile of a fully occluded skeleton.
func DefaultProfile() BoneLengthProfile {
	return BoneLengthProfile{
		LeftUpperArm:  DefaultUpperArm,
		RightUpperArm: DefaultUpperArm,
		LeftForearm:   DefaultForearm,
		RightForearm:  DefaultForearm,
		LeftThigh:     DefaultThigh,
		RightThigh:    DefaultThigh,
		LeftShin:      DefaultShin,
		RightShin:     DefaultShin,
	}
}

// Length returns the measured length of seg, or 0 for an unknown segment.
func (p BoneLengthProfile) Length(seg Segment) float64 {
	switch seg {
	case LeftUpperArm:
		return p.LeftUpperArm
	case RightUpperArm:
		return p.RightUpperArm
	case LeftForearm:
		return p.LeftForearm
	case RightForearm:
		return p.RightForearm
	case LeftThigh:
		return p.LeftThigh
	case RightThigh:
		return p.RightThigh
	case LeftShin:
		return p.LeftShin
	case RightShin:
		return p.RightShin
	}
	return 0
}

func (p *BoneLengthProfile) set(seg Segment, v float64) {
	switch seg {
	case LeftUpperArm:
		p.LeftUpperArm = v
	case RightUpperArm:
		p.RightUpperArm = v
	case LeftForearm:
		p.LeftForearm = v
	case RightForearm:
		p.RightForearm = v
	case LeftThigh:
		p.LeftThigh = v
	case RightThigh:
		p.RightThigh = v
	case LeftShin:
		p.LeftShin = v
	case RightShin:
		p.RightShin = v
	}
}

// Profile measures every limb segment on s. A segment whose endpoints are not
// both detected, or that measures zero, takes its default length. Profile is
// recomputed on every frame so target poses follow the user toward and away
// from the camera.
func Profile(s Skeleton) BoneLengthProfile {
	p := DefaultProfile()
	for _, b := range bones {
		from, ok := s.At(b.from)
		if !ok {
			continue
		}
		to, ok := s.At(b.to)
		if !ok {
			continue
		}
		if d := from.Dist(to); d > 0 {
			p.set(b.seg, d)
		}
	}
	return p
}
