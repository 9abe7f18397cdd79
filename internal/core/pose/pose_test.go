package pose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// standingSkeleton is a front-facing, non-mirrored user: their left side is
// on the image right.
func standingSkeleton() Skeleton {
	return Skeleton{
		LeftShoulder:  {X: 0.60, Y: 0.30},
		RightShoulder: {X: 0.40, Y: 0.30},
		LeftElbow:     {X: 0.62, Y: 0.45},
		RightElbow:    {X: 0.38, Y: 0.45},
		LeftWrist:     {X: 0.63, Y: 0.58},
		RightWrist:    {X: 0.37, Y: 0.58},
		LeftHip:       {X: 0.56, Y: 0.60},
		RightHip:      {X: 0.44, Y: 0.60},
		LeftKnee:      {X: 0.57, Y: 0.80},
		RightKnee:     {X: 0.43, Y: 0.80},
		LeftAnkle:     {X: 0.57, Y: 0.98},
		RightAnkle:    {X: 0.43, Y: 0.98},
	}
}

func TestProfileMeasuresSegments(t *testing.T) {
	s := standingSkeleton()
	p := Profile(s)

	assert.InDelta(t, math.Hypot(0.02, 0.15), p.LeftUpperArm, 1e-9)
	assert.InDelta(t, math.Hypot(0.01, 0.13), p.LeftForearm, 1e-9)
	assert.InDelta(t, math.Hypot(0.01, 0.20), p.RightThigh, 1e-9)
	assert.InDelta(t, 0.18, p.RightShin, 1e-9)
}

func TestProfileFallsBackToDefaults(t *testing.T) {
	assert.Equal(t, DefaultProfile(), Profile(Skeleton{}))

	s := standingSkeleton()
	delete(s, LeftElbow)
	p := Profile(s)
	assert.Equal(t, DefaultUpperArm, p.LeftUpperArm)
	assert.Equal(t, DefaultForearm, p.LeftForearm)
	assert.NotEqual(t, DefaultUpperArm, p.RightUpperArm)
}

func TestProfileTracksCameraDistance(t *testing.T) {
	s := standingSkeleton()
	near := Profile(s.Scaled(1.5))
	far := Profile(s)
	assert.InDelta(t, far.LeftThigh*1.5, near.LeftThigh, 1e-9)
}

func TestSynthesizeKeepsAnchors(t *testing.T) {
	s := standingSkeleton()
	for _, ex := range DefaultRegistry.Exercises() {
		for _, stage := range ex.StageNames() {
			tp, ok := Synthesize(s, ex.Name, stage, Profile(s))
			require.True(t, ok, "%s/%s", ex.Name, stage)
			for _, j := range Anchors {
				p, _ := s.At(j)
				assert.Zero(t, tp[j].Dist(p), "%s/%s %s", ex.Name, stage, j)
			}
			assert.Len(t, tp, len(Joints))
		}
	}
}

func TestSynthesizeScaleInvariance(t *testing.T) {
	s := standingSkeleton()
	segLen := func(tp TargetPose, a, b Joint) float64 { return tp[a].Dist(tp[b]) }

	for _, k := range []float64{0.5, 0.8, 1.7} {
		scaled := s.Scaled(k)
		base, ok := Synthesize(s, "shoulder_press", "up", Profile(s))
		require.True(t, ok)
		got, ok := Synthesize(scaled, "shoulder_press", "up", Profile(scaled))
		require.True(t, ok)

		baseRatio := segLen(base, LeftShoulder, LeftElbow) / segLen(base, LeftHip, LeftKnee)
		gotRatio := segLen(got, LeftShoulder, LeftElbow) / segLen(got, LeftHip, LeftKnee)
		assert.InDelta(t, baseRatio, gotRatio, 1e-9, "k=%v", k)

		for _, j := range Joints {
			assert.InDelta(t, base[j].X*k, got[j].X, 1e-9)
			assert.InDelta(t, base[j].Y*k, got[j].Y, 1e-9)
		}
	}
}

func TestSynthesizeArmRaiseWithoutArms(t *testing.T) {
	s := standingSkeleton()
	for _, j := range []Joint{LeftElbow, RightElbow, LeftWrist, RightWrist} {
		delete(s, j)
	}

	tp, ok := Synthesize(s, "arm_raise", "up", Profile(s))
	require.True(t, ok)

	ls, _ := s.At(LeftShoulder)
	rs, _ := s.At(RightShoulder)
	// Arms straight out at shoulder height, default lengths.
	assert.InDelta(t, ls.X+DefaultUpperArm, tp[LeftElbow].X, 1e-9)
	assert.InDelta(t, ls.Y, tp[LeftElbow].Y, 1e-9)
	assert.InDelta(t, ls.X+DefaultUpperArm+DefaultForearm, tp[LeftWrist].X, 1e-9)
	assert.InDelta(t, rs.X-DefaultUpperArm, tp[RightElbow].X, 1e-9)
}

func TestSynthesizeMirroredImage(t *testing.T) {
	s := standingSkeleton()
	mirrored := Skeleton{}
	for j, l := range s {
		mirrored[j] = Landmark{X: 1 - l.X, Y: l.Y}
	}
	tp, ok := Synthesize(mirrored, "arm_raise", "up", Profile(mirrored))
	require.True(t, ok)
	assert.Less(t, tp[LeftElbow].X, tp[LeftShoulder].X)
	assert.Greater(t, tp[RightElbow].X, tp[RightShoulder].X)
}

func TestSynthesizeMissingData(t *testing.T) {
	s := standingSkeleton()

	_, ok := Synthesize(s, "handstand", "up", Profile(s))
	assert.False(t, ok, "unknown exercise")

	_, ok = Synthesize(s, "squat", "sideways", Profile(s))
	assert.False(t, ok, "unknown stage")

	for _, j := range Anchors {
		partial := standingSkeleton()
		delete(partial, j)
		_, ok := Synthesize(partial, "squat", "down", Profile(partial))
		assert.False(t, ok, "missing anchor %s", j)
	}
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	assert.ErrorIs(t, r.Register(Exercise{}), ErrNoExerciseName)
	assert.ErrorIs(t, r.Register(Exercise{Name: "plank"}), ErrNoStages)

	require.NoError(t, r.Register(Exercise{
		Name:   "t_pose",
		Stages: map[string]StagePose{"hold": arms(off(1, 0, 1), off(1, 0, 1))},
	}))
	s := standingSkeleton()
	tp, ok := r.Synthesize(s, "t_pose", "hold", Profile(s))
	require.True(t, ok)
	assert.InDelta(t, tp[LeftShoulder].Y, tp[LeftWrist].Y, 1e-9)

	_, ok = r.Synthesize(s, "squat", "down", Profile(s))
	assert.False(t, ok, "registries are independent")
}

func TestCorrectSeverityAndHints(t *testing.T) {
	s := Skeleton{
		LeftElbow:  {X: 0.50, Y: 0.50},
		RightElbow: {X: 0.50, Y: 0.50},
		LeftWrist:  {X: 0.50, Y: 0.50},
	}
	tp := TargetPose{
		LeftElbow:  {X: 0.53, Y: 0.50}, // 0.03: ok
		RightElbow: {X: 0.44, Y: 0.47}, // ~0.067: warn
		LeftWrist:  {X: 0.58, Y: 0.40}, // ~0.128: error
		LeftKnee:   {X: 0.1, Y: 0.1},   // not detected
	}

	cs := Correct(s, tp)
	require.Len(t, cs, 3)

	byJoint := map[Joint]JointCorrection{}
	for _, c := range cs {
		byJoint[c.Joint] = c
	}
	assert.Equal(t, SeverityOK, byJoint[LeftElbow].Severity)
	assert.Equal(t, SeverityWarn, byJoint[RightElbow].Severity)
	assert.Equal(t, []string{HintLeft, HintUp}, byJoint[RightElbow].Direction)
	assert.Equal(t, SeverityError, byJoint[LeftWrist].Severity)
	assert.Equal(t, []string{HintUp, HintRight}, byJoint[LeftWrist].Direction)

	surfaced := Surfaced(cs)
	assert.Len(t, surfaced, 2)
	worst, ok := Worst(surfaced)
	require.True(t, ok)
	assert.Equal(t, LeftWrist, worst.Joint)
}

func TestHintsDropMinorAxis(t *testing.T) {
	th := DefaultThresholds
	assert.Equal(t, []string{HintDown}, th.Hints(Point{0.5, 0.5}, Point{0.52, 0.7}))
	assert.Nil(t, th.Hints(Point{0.5, 0.5}, Point{0.51, 0.49}))
	assert.Equal(t, []string{HintRight, HintDown}, th.Hints(Point{0.5, 0.5}, Point{0.6, 0.55}))
}

func TestSeverityMonotonic(t *testing.T) {
	th := DefaultThresholds
	prev := 0
	for d := 0.0; d < 0.3; d += 0.005 {
		r := th.Classify(d).Rank()
		assert.GreaterOrEqual(t, r, prev, "d=%v", d)
		prev = r
	}

	// Lowering the error threshold never downgrades an error joint.
	d := 0.12
	require.Equal(t, SeverityError, th.Classify(d))
	for e := th.Error; e > th.Warn; e -= 0.01 {
		lower := th
		lower.Error = e
		assert.Equal(t, SeverityError, lower.Classify(d))
	}
}

func TestFromMediaPipe(t *testing.T) {
	points := make([]Landmark, 33)
	points[11] = Landmark{X: 0.6, Y: 0.3, Visibility: 0.9}
	points[12] = Landmark{X: 0.4, Y: 0.3, Visibility: 0.2}
	points[13] = Landmark{X: 0.6, Y: 0.45}

	s := FromMediaPipe(points, 0.5)
	_, ok := s.At(LeftShoulder)
	assert.True(t, ok)
	_, ok = s.At(RightShoulder)
	assert.False(t, ok, "low visibility")
	_, ok = s.At(LeftElbow)
	assert.True(t, ok, "unreported visibility")

	assert.Len(t, FromMediaPipe(points[:12], 0.5), 1)
}

func TestFromNamed(t *testing.T) {
	s := FromNamed(map[string]Landmark{
		"left_hip": {X: 0.5, Y: 0.6},
		"nose":     {X: 0.5, Y: 0.1},
	}, 0.5)
	assert.Len(t, s, 1)
	assert.Equal(t, "left hip", LeftHip.Label())
}
