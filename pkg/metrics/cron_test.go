package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	finished := time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC)
	metrics.Observe("notification-cleanup", 250*time.Millisecond, finished, nil)
	metrics.Observe("notification-cleanup", 100*time.Millisecond, finished.Add(time.Minute), errors.New("db down"))

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	runs := findMetricFamily(mfs, "cron_job_runs_total")
	if runs == nil {
		t.Fatal("cron_job_runs_total not exported")
	}
	var succeeded, failed float64
	for _, metric := range runs.GetMetric() {
		switch {
		case matchesLabel(metric.GetLabel(), "outcome", JobSucceeded):
			succeeded = metric.GetCounter().GetValue()
		case matchesLabel(metric.GetLabel(), "outcome", JobFailed):
			failed = metric.GetCounter().GetValue()
		}
	}
	if succeeded != 1 || failed != 1 {
		t.Fatalf("unexpected outcomes succeeded=%f failed=%f", succeeded, failed)
	}

	if got, err := fetchHistogramSum(mfs, "cron_job_duration_seconds", "job", "notification-cleanup"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0.3 {
		t.Fatalf("expected both runs in duration sum, got %f", got)
	}

	if got, err := fetchGaugeValue(mfs, "cron_job_last_success_timestamp_seconds", "job", "notification-cleanup"); err != nil {
		t.Fatalf("fetch last success: %v", err)
	} else if got != float64(finished.Unix()) {
		t.Fatalf("failed run must not move last success, got %f", got)
	}
}

func TestCronJobMetricsCountsSkippedCycles(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	metrics.ObserveCycle(true)
	metrics.ObserveCycle(false)
	metrics.ObserveCycle(false)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	cycles := findMetricFamily(mfs, "cron_cycles_total")
	if cycles == nil {
		t.Fatal("cron_cycles_total not exported")
	}
	got := map[string]float64{}
	for _, metric := range cycles.GetMetric() {
		for _, label := range metric.GetLabel() {
			got[label.GetValue()] = metric.GetCounter().GetValue()
		}
	}
	if got[CycleRan] != 1 || got[CycleSkipped] != 2 {
		t.Fatalf("unexpected cycle counts %v", got)
	}
}

func TestBlankLabelsReportAsUnknown(t *testing.T) {
	reg := prometheus.NewRegistry()
	cron := NewCronJobMetrics(reg)
	sagas := NewSagaMetrics(reg)
	finished := time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC)
	cron.Observe("", time.Second, finished, nil)
	sagas.Observe("", SagaCompleted, time.Second)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchGaugeValue(mfs, "cron_job_last_success_timestamp_seconds", "job", "unknown"); err != nil || got != float64(finished.Unix()) {
		t.Fatalf("expected unknown job label, got %f err=%v", got, err)
	}
	if _, err := fetchHistogramSum(mfs, "saga_duration_seconds", "saga", "unknown"); err != nil {
		t.Fatalf("expected unknown saga label: %v", err)
	}
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var metrics *CronJobMetrics
	metrics.Observe("outbox-retention", time.Second, time.Now(), nil)
	metrics.ObserveCycle(true)
	empty := NewCronJobMetrics(nil)
	empty.Observe("", time.Second, time.Now(), errors.New("x"))
	empty.ObserveCycle(false)
}

func fetchGaugeValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetGauge().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("gauge %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
