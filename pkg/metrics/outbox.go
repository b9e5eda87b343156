package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Relay outcomes recorded by OutboxMetrics.
const (
	OutboxPublished = "published"
	OutboxRetried   = "retried"
	OutboxParked    = "parked"
)

// OutboxMetrics tracks the outbox relay.
type OutboxMetrics struct {
	events  *prometheus.CounterVec
	publish *prometheus.HistogramVec
	lag     prometheus.Histogram
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_total",
		Help: "Outbox rows handled by the relay, by event type and outcome.",
	}, []string{"event_type", "outcome"})
	publish := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_publish_duration_seconds",
		Help:    "Time spent waiting for Pub/Sub to acknowledge a publish.",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
	lag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_delivery_lag_seconds",
		Help:    "Age of an outbox row when it was published.",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
	})
	reg.MustRegister(events, publish, lag)
	return &OutboxMetrics{events: events, publish: publish, lag: lag}
}

// Observe counts one relayed row.
func (m *OutboxMetrics) Observe(eventType, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(eventType), outcome).Inc()
}

// ObservePublish records a successful publish to topic of a row created at
// createdAt.
func (m *OutboxMetrics) ObservePublish(topic string, elapsed time.Duration, createdAt, now time.Time) {
	if m == nil || m.publish == nil {
		return
	}
	m.publish.WithLabelValues(normalizeLabel(topic)).Observe(elapsed.Seconds())
	if !createdAt.IsZero() && now.After(createdAt) {
		m.lag.Observe(now.Sub(createdAt).Seconds())
	}
}
