package coach

import (
	"fmt"
	"strings"

	"github.com/steveyiyo/formcoach-backend/internal/core/pose"
)

// phrases holds the stock wording per event type. Form corrections that name
// a joint are built by correctionText instead.
var phrases = map[EventType][]string{
	GoodForm: {
		"Great form, keep it up!",
		"Nice and clean.",
		"That's exactly right.",
		"Looking strong!",
	},
	WarnForm: {
		"Watch your form.",
		"Almost there, tighten it up.",
		"Small adjustment needed.",
	},
	BadForm: {
		"Check your posture.",
		"Reset your position.",
		"Slow down and fix your form.",
	},
	HoldForm: {
		"Hold it.",
		"Stay right there.",
		"Keep holding.",
	},
	MovementTooFast: {
		"Slow it down.",
		"Control the movement.",
		"Take your time on each rep.",
	},
	MovementTooSlow: {
		"Pick up the pace a little.",
		"A bit faster.",
	},
	MovementSmooth: {
		"Smooth and controlled, nice.",
		"Great tempo.",
	},
	MovementJerky: {
		"Keep the motion smooth.",
		"Avoid jerking, stay fluid.",
	},
	NoMotion: {
		"Ready when you are.",
		"Let's keep moving.",
	},
	TargetRepsReached: {
		"That's all your reps!",
		"Target reached, well done!",
	},
	Halfway: {
		"Halfway there!",
		"Half done, keep going.",
	},
	AlmostDone: {
		"Almost done, two more!",
		"Just two left!",
	},
	ExerciseComplete: {
		"Exercise complete. Great work!",
	},
	SessionStart: {
		"Let's get started.",
	},
	SessionComplete: {
		"Session complete. Nice job today!",
	},
}

// Phrase picks a stock phrase for t, preferring one that is not in recent.
// pick chooses an index in [0,n). It returns "" when t has no phrases.
func Phrase(t EventType, recent []string, pick func(n int) int) string {
	options := phrases[t]
	if len(options) == 0 {
		return ""
	}
	fresh := make([]string, 0, len(options))
	for _, p := range options {
		if !contains(recent, p) {
			fresh = append(fresh, p)
		}
	}
	if len(fresh) == 0 {
		fresh = options
	}
	return fresh[pick(len(fresh))]
}

// correctionText tells the user which way to move their worst joint, e.g.
// "Move your left wrist up and right."
func correctionText(c pose.JointCorrection) string {
	if len(c.Direction) == 0 {
		return fmt.Sprintf("Adjust your %s.", c.Joint.Label())
	}
	return fmt.Sprintf("Move your %s %s.", c.Joint.Label(), strings.Join(c.Direction, " and "))
}

func exerciseStartText(exercise string) string {
	return fmt.Sprintf("Starting %s.", strings.ReplaceAll(exercise, "_", " "))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
