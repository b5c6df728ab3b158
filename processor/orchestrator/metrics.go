package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for session progression. Registered on the default
// registry so the service's /metrics endpoint picks them up.
var (
	phaseTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ironloop",
		Subsystem: "orchestrator",
		Name:      "phase_transitions_total",
		Help:      "Phase transitions applied, labeled by the phase entered.",
	}, []string{"phase"})

	rollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ironloop",
		Subsystem: "orchestrator",
		Name:      "rollbacks_total",
		Help:      "Verification rollbacks, labeled by the rollback target phase.",
	}, []string{"target"})

	verificationCompletion = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ironloop",
		Subsystem: "orchestrator",
		Name:      "verification_completion_percent",
		Help:      "Weighted completion percentage observed at each verification.",
		Buckets:   prometheus.LinearBuckets(0, 10, 11),
	})

	sessionsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ironloop",
		Subsystem: "orchestrator",
		Name:      "sessions_completed_total",
		Help:      "Sessions that reached the terminal phase.",
	})
)
