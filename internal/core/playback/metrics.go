package playback

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	utterances = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "formcoach_utterances_total",
		Help: "Coaching utterances by outcome",
	}, []string{"outcome"})

	synthesisSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "formcoach_synthesis_duration_seconds",
		Help:    "Remote speech synthesis latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)
