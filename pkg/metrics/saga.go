package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Saga outcomes recorded by SagaMetrics.
const (
	SagaCompleted   = "completed"
	SagaCompensated = "compensated"
	SagaFailed      = "failed"
	SagaReplayed    = "replayed"
	SagaRecovered   = "recovered"
)

// SagaMetrics counts workflow outcomes and how long runs take.
type SagaMetrics struct {
	outcomes *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewSagaMetrics registers the saga metrics on the provided registerer.
func NewSagaMetrics(reg prometheus.Registerer) *SagaMetrics {
	if reg == nil {
		return &SagaMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "saga_outcomes_total",
		Help: "Saga runs by final outcome.",
	}, []string{"saga", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "saga_duration_seconds",
		Help:    "Duration of saga runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"saga"})
	reg.MustRegister(outcomes, duration)
	return &SagaMetrics{outcomes: outcomes, duration: duration}
}

// Observe records one run of saga ending in outcome.
func (m *SagaMetrics) Observe(saga, outcome string, elapsed time.Duration) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(saga), outcome).Inc()
	if elapsed > 0 {
		m.duration.WithLabelValues(normalizeLabel(saga)).Observe(elapsed.Seconds())
	}
}
