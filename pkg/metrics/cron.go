package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	JobSucceeded = "succeeded"
	JobFailed    = "failed"

	CycleRan     = "ran"
	CycleSkipped = "skipped"
)

// CronJobMetrics covers the cron worker: one series per sweep, plus the
// cycles a dyno skipped because another held the lock.
type CronJobMetrics struct {
	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	cycles      *prometheus.CounterVec
}

// NewCronJobMetrics registers on reg. A nil reg gives a collector whose
// methods do nothing.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_runs_total",
			Help: "Cron job executions by outcome.",
		}, []string{"job", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "cron_job_duration_seconds",
			Help: "Wall time of one cron job run.",
			// sweeps range from milliseconds to the two minute job timeout
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"job"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cron_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run of each cron job.",
		}, []string{"job"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_cycles_total",
			Help: "Cron cycles by whether this dyno held the lock.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.runs, m.duration, m.lastSuccess, m.cycles)
	return m
}

// Observe records one run of job that ended at finished.
func (c *CronJobMetrics) Observe(job string, elapsed time.Duration, finished time.Time, err error) {
	if c == nil || c.runs == nil {
		return
	}
	job = normalizeLabel(job)
	c.duration.WithLabelValues(job).Observe(elapsed.Seconds())
	outcome := JobSucceeded
	if err != nil {
		outcome = JobFailed
	}
	c.runs.WithLabelValues(job, outcome).Inc()
	if err == nil {
		c.lastSuccess.WithLabelValues(job).Set(float64(finished.Unix()))
	}
}

// ObserveCycle counts a cycle as ran or skipped.
func (c *CronJobMetrics) ObserveCycle(ran bool) {
	if c == nil || c.cycles == nil {
		return
	}
	outcome := CycleSkipped
	if ran {
		outcome = CycleRan
	}
	c.cycles.WithLabelValues(outcome).Inc()
}

// normalizeLabel keeps blank job, topic and saga names from becoming an
// empty label value.
func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
