package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/angelmondragon/siteboss-backend/internal/procurement"
	"github.com/angelmondragon/siteboss-backend/pkg/logger"
)

type fakeRecoverer struct {
	staleBefore time.Time
	limit       int
	report      *procurement.RecoveryReport
	err         error
}

func (f *fakeRecoverer) Recover(_ context.Context, staleBefore time.Time, limit int) (*procurement.RecoveryReport, error) {
	f.staleBefore = staleBefore
	f.limit = limit
	return f.report, f.err
}

func newSagaRecoveryJob(t *testing.T, rec *fakeRecoverer, staleAfter time.Duration) *sagaRecoveryJob {
	t.Helper()
	jobIface, err := NewSagaRecoveryJob(SagaRecoveryJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Recoverer:  rec,
		StaleAfter: staleAfter,
	})
	if err != nil {
		t.Fatalf("NewSagaRecoveryJob: %v", err)
	}
	return jobIface.(*sagaRecoveryJob)
}

func TestSagaRecoveryJobUsesStaleWindow(t *testing.T) {
	now := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	rec := &fakeRecoverer{report: &procurement.RecoveryReport{Scanned: 2, Compensated: 2}}
	job := newSagaRecoveryJob(t, rec, 15*time.Minute)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-15 * time.Minute); !rec.staleBefore.Equal(want) {
		t.Fatalf("expected stale before %s, got %s", want, rec.staleBefore)
	}
	if rec.limit != defaultSagaBatch {
		t.Fatalf("expected batch %d, got %d", defaultSagaBatch, rec.limit)
	}
}

func TestSagaRecoveryJobDefaultsWindow(t *testing.T) {
	now := time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)
	rec := &fakeRecoverer{report: &procurement.RecoveryReport{}}
	job := newSagaRecoveryJob(t, rec, 0)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-defaultSagaStaleAfter); !rec.staleBefore.Equal(want) {
		t.Fatalf("expected stale before %s, got %s", want, rec.staleBefore)
	}
}

func TestSagaRecoveryJobReportsPartialFailure(t *testing.T) {
	rec := &fakeRecoverer{
		report: &procurement.RecoveryReport{Scanned: 3, Compensated: 2, Failed: 1},
		err:    errors.New("ledger locked"),
	}
	job := newSagaRecoveryJob(t, rec, 0)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewSagaRecoveryJobRequiresRecoverer(t *testing.T) {
	_, err := NewSagaRecoveryJob(SagaRecoveryJobParams{Logger: logger.New(logger.Options{Output: io.Discard})})
	if err == nil {
		t.Fatal("expected error")
	}
}
