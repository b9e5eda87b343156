package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/angelmondragon/siteboss-backend/pkg/logger"
	"github.com/angelmondragon/siteboss-backend/pkg/metrics"
)

type fakeLock struct {
	held       bool
	acquireErr error
	releases   int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquireErr != nil {
		return false, f.acquireErr
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.releases++
	return nil
}

type testJob struct {
	name  string
	err   error
	panic bool
	runs  int
	ctxOK bool
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(ctx context.Context) error {
	t.runs++
	_, t.ctxOK = ctx.Deadline()
	if t.panic {
		panic("nil map write")
	}
	return t.err
}

func newTestService(t *testing.T, lock Lock, jobs ...Job) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry:   NewRegistry(jobs...),
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.NewRegistry()),
		JobTimeout: time.Second,
	})
	require.NoError(t, err)
	return service
}

func TestRunCycleRunsEveryJobAndCombinesFailures(t *testing.T) {
	ok := &testJob{name: "notification_cleanup"}
	failing := &testJob{name: "outbox_retention", err: errors.New("boom")}
	panicking := &testJob{name: "saga_recovery", panic: true}
	lock := &fakeLock{}
	service := newTestService(t, lock, ok, failing, panicking)

	err := service.runCycle(context.Background())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorContains(t, err, "outbox_retention")
	assert.ErrorContains(t, err, "saga_recovery panicked")

	for _, job := range []*testJob{ok, failing, panicking} {
		assert.Equal(t, 1, job.runs, job.name)
		assert.True(t, job.ctxOK, "job %s should run under a deadline", job.name)
	}
	assert.Equal(t, 1, lock.releases)
	assert.False(t, lock.held)
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "notification_cleanup"}
	service := newTestService(t, &fakeLock{held: true}, job)

	require.NoError(t, service.runCycle(context.Background()))
	assert.Zero(t, job.runs)
}

func TestRunCycleSurfacesLockErrors(t *testing.T) {
	job := &testJob{name: "notification_cleanup"}
	service := newTestService(t, &fakeLock{acquireErr: errors.New("redis down")}, job)

	require.ErrorContains(t, service.runCycle(context.Background()), "lock acquire")
	assert.Zero(t, job.runs)
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "notification_cleanup"}
	service := newTestService(t, &fakeLock{}, job)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, service.Run(ctx), context.Canceled)
	assert.Equal(t, 1, job.runs)
}

func TestNewServiceDefaults(t *testing.T) {
	service, err := NewService(ServiceParams{
		Logger: logger.New(logger.Options{Output: io.Discard}),
		Lock:   &fakeLock{},
	})
	require.NoError(t, err)
	assert.Equal(t, defaultInterval, service.interval)
	assert.Equal(t, defaultJobTimeout, service.jobTimeout)

	_, err = NewService(ServiceParams{Lock: &fakeLock{}})
	assert.Error(t, err)
}
