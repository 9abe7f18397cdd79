package pose

// Built-in exercises. Adding one is a table entry: stages list only the
// segments that leave the standing pose, both sides symmetric.

func off(x, y, fraction float64) Offset {
	return Offset{Dir: Point{X: x, Y: y}, Fraction: fraction}
}

func arms(upper, fore Offset) StagePose {
	return StagePose{
		LeftUpperArm: upper, RightUpperArm: upper,
		LeftForearm: fore, RightForearm: fore,
	}
}

func legs(thigh, shin Offset) StagePose {
	return StagePose{
		LeftThigh: thigh, RightThigh: thigh,
		LeftShin: shin, RightShin: shin,
	}
}

func merge(parts ...StagePose) StagePose {
	out := StagePose{}
	for _, p := range parts {
		for k, v := range p {
			out[k] = v
		}
	}
	return out
}

func builtinExercises() []Exercise {
	squatDown := merge(
		legs(off(0.35, 1, 0.55), off(0.05, 1, 1)),
		arms(off(0.1, 1, 0.35), off(0, 1, 0.3)),
	)
	lungeDown := StagePose{
		LeftThigh:  off(0.1, 1, 0.6),
		LeftShin:   off(0, 1, 1),
		RightThigh: off(0, 1, 0.8),
		RightShin:  off(-0.1, 1, 0.5),
	}
	return []Exercise{
		{
			Name: "arm_raise",
			Stages: map[string]StagePose{
				"down": arms(off(0.15, 1, 1), off(0.1, 1, 1)),
				"up":   arms(off(1, 0, 1), off(1, 0, 1)),
			},
		},
		{
			Name: "bicep_curl",
			Stages: map[string]StagePose{
				"down": arms(off(0.05, 1, 1), off(0.05, 1, 1)),
				"up":   arms(off(0.05, 1, 1), off(0.1, -1, 0.85)),
			},
		},
		{
			Name: "shoulder_press",
			Stages: map[string]StagePose{
				"down": arms(off(1, 0.1, 1), off(0, -1, 1)),
				"up":   arms(off(0.3, -1, 1), off(0.05, -1, 1)),
			},
		},
		{
			Name: "squat",
			Stages: map[string]StagePose{
				"up":   {},
				"down": squatDown,
				"hold": squatDown,
			},
		},
		{
			Name: "lunge",
			Stages: map[string]StagePose{
				"up":   {},
				"down": lungeDown,
			},
		},
	}
}

func builtinRegistry() *Registry {
	r := NewRegistry()
	for _, e := range builtinExercises() {
		_ = r.Register(e)
	}
	return r
}
