package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/pkg/logger"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeSweepRepo struct {
	cutoffs []time.Time
	rows    int64
	err     error
}

func (f *fakeSweepRepo) DeleteOlderThan(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.rows, f.err
}

func (f *fakeSweepRepo) DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	return f.DeleteOlderThan(ctx, tx, cutoff)
}

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func runAt(t *testing.T, job Job, now time.Time) error {
	t.Helper()
	rj, ok := job.(*retentionJob)
	if !ok {
		t.Fatalf("expected *retentionJob, got %T", job)
	}
	rj.now = func() time.Time { return now }
	return job.Run(context.Background())
}

func TestNotificationCleanupDefaultsToThirtyDays(t *testing.T) {
	now := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	repo := &fakeSweepRepo{rows: 42}
	job, err := NewNotificationCleanupJob(quietLogger(), fakeTxRunner{}, repo, 0)
	if err != nil {
		t.Fatalf("NewNotificationCleanupJob: %v", err)
	}
	if job.Name() != "notification-cleanup" {
		t.Fatalf("unexpected name %q", job.Name())
	}
	if err := runAt(t, job, now); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(repo.cutoffs) != 1 || !repo.cutoffs[0].Equal(now.Add(-notificationRetention)) {
		t.Fatalf("unexpected cutoffs %v", repo.cutoffs)
	}
}

func TestOutboxRetentionUsesConfiguredWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := &fakeSweepRepo{rows: 7}
	job, err := NewOutboxRetentionJob(quietLogger(), fakeTxRunner{}, repo, 48*time.Hour)
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	if err := runAt(t, job, now); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-48 * time.Hour); !repo.cutoffs[0].Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, repo.cutoffs[0])
	}
}

func TestRetentionJobPropagatesSweepErrors(t *testing.T) {
	repo := &fakeSweepRepo{err: errors.New("relation does not exist")}
	job, err := NewOutboxRetentionJob(quietLogger(), fakeTxRunner{}, repo, 0)
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	err = job.Run(context.Background())
	if err == nil || err.Error() != "outbox-retention: relation does not exist" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestNewRetentionJobValidates(t *testing.T) {
	sweep := (&fakeSweepRepo{}).DeleteOlderThan
	cases := map[string]RetentionJobParams{
		"name":      {Logger: quietLogger(), DB: fakeTxRunner{}, Sweep: sweep, Retention: time.Hour},
		"logger":    {Name: "x", DB: fakeTxRunner{}, Sweep: sweep, Retention: time.Hour},
		"db":        {Name: "x", Logger: quietLogger(), Sweep: sweep, Retention: time.Hour},
		"sweeper":   {Name: "x", Logger: quietLogger(), DB: fakeTxRunner{}, Retention: time.Hour},
		"retention": {Name: "x", Logger: quietLogger(), DB: fakeTxRunner{}, Sweep: sweep},
	}
	for name, params := range cases {
		if _, err := NewRetentionJob(params); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if _, err := NewNotificationCleanupJob(quietLogger(), fakeTxRunner{}, nil, 0); err == nil {
		t.Fatal("expected missing repository error")
	}
}
