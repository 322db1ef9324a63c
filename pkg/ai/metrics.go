package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	completionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "promptvault",
		Subsystem: "ai",
		Name:      "completion_duration_seconds",
		Help:      "Duration of language model completion requests",
	}, []string{"provider", "model"})

	completionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promptvault",
		Subsystem: "ai",
		Name:      "completion_failures_total",
		Help:      "Number of failed language model completion requests",
	}, []string{"provider", "model"})

	fallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "promptvault",
		Subsystem: "ai",
		Name:      "fallbacks_total",
		Help:      "Number of degraded results substituted for failed evaluations",
	}, []string{"kind", "stage"})
)
