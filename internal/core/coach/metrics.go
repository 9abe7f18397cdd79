package coach

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formcoach_messages_emitted_total",
		Help: "Coaching messages emitted by event type",
	}, []string{"event"})

	messagesSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formcoach_messages_suppressed_total",
		Help: "Coaching messages suppressed by event type and reason",
	}, []string{"event", "reason"})

	framesAnalyzed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formcoach_frames_analyzed_total",
		Help: "Frames analysed by exercise and whether a target pose was available",
	}, []string{"exercise", "overlay"})
)

// Suppression reasons.
const (
	reasonUnknown     = "unknown_type"
	reasonRateLimited = "rate_limited"
	reasonRamp        = "ramp"
	reasonSampled     = "sampled"
	reasonRepeat      = "repeat"
	reasonEmpty       = "empty"
)
