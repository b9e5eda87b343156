package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/pkg/logger"
)

const (
	notificationRetention = 30 * 24 * time.Hour
	outboxRetention       = 30 * 24 * time.Hour
)

// Sweeper deletes rows older than cutoff and returns how many went.
type Sweeper func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

// RetentionJobParams configure a job that prunes one table by age.
type RetentionJobParams struct {
	Name      string
	Logger    *logger.Logger
	DB        txRunner
	Sweep     Sweeper
	Retention time.Duration
}

// NewRetentionJob runs Sweep inside a transaction with cutoff = now - Retention.
func NewRetentionJob(params RetentionJobParams) (Job, error) {
	switch {
	case params.Name == "":
		return nil, errors.New("job name required")
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Sweep == nil:
		return nil, fmt.Errorf("%s: sweeper required", params.Name)
	case params.Retention <= 0:
		return nil, fmt.Errorf("%s: retention must be positive", params.Name)
	}
	return &retentionJob{params: params, now: time.Now}, nil
}

type notificationSweeper interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewNotificationCleanupJob prunes informational notifications. Rows that
// still carry an action are kept by the repository. Zero retention means
// thirty days.
func NewNotificationCleanupJob(logg *logger.Logger, db txRunner, repo notificationSweeper, retention time.Duration) (Job, error) {
	if repo == nil {
		return nil, errors.New("notifications repository required")
	}
	return NewRetentionJob(RetentionJobParams{
		Name:      "notification-cleanup",
		Logger:    logg,
		DB:        db,
		Sweep:     repo.DeleteOlderThan,
		Retention: orDefault(retention, notificationRetention),
	})
}

type outboxSweeper interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob prunes published outbox rows. Parked rows stay for
// inspection. Zero retention means thirty days.
func NewOutboxRetentionJob(logg *logger.Logger, db txRunner, repo outboxSweeper, retention time.Duration) (Job, error) {
	if repo == nil {
		return nil, errors.New("outbox repository required")
	}
	return NewRetentionJob(RetentionJobParams{
		Name:      "outbox-retention",
		Logger:    logg,
		DB:        db,
		Sweep:     repo.DeletePublishedBefore,
		Retention: orDefault(retention, outboxRetention),
	})
}

type retentionJob struct {
	params RetentionJobParams
	now    func() time.Time
}

func (j *retentionJob) Name() string { return j.params.Name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.params.Retention)
	var deleted int64
	err := j.params.DB.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.params.Sweep(ctx, tx, cutoff)
		deleted = n
		return err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", j.params.Name, err)
	}

	logg := j.params.Logger
	logg.Info(logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"retention":    j.params.Retention.String(),
		"rows_deleted": deleted,
	}), "retention sweep complete")
	return nil
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
