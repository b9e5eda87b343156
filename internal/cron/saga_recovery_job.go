package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/siteboss-backend/internal/procurement"
	"github.com/angelmondragon/siteboss-backend/pkg/logger"
)

const (
	defaultSagaStaleAfter = 10 * time.Minute
	defaultSagaBatch      = 100
)

type SagaRecoveryJobParams struct {
	Logger     *logger.Logger
	Recoverer  sagaRecoverer
	StaleAfter time.Duration
	BatchSize  int
}

type sagaRecoverer interface {
	Recover(ctx context.Context, staleBefore time.Time, limit int) (*procurement.RecoveryReport, error)
}

// NewSagaRecoveryJob compensates material request approvals that stopped
// mid-way, so the owner can act on the request again.
func NewSagaRecoveryJob(params SagaRecoveryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Recoverer == nil {
		return nil, fmt.Errorf("saga recoverer required")
	}
	staleAfter := params.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultSagaStaleAfter
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultSagaBatch
	}
	return &sagaRecoveryJob{
		logg:       params.Logger,
		recoverer:  params.Recoverer,
		staleAfter: staleAfter,
		batch:      batch,
		now:        time.Now,
	}, nil
}

type sagaRecoveryJob struct {
	logg       *logger.Logger
	recoverer  sagaRecoverer
	staleAfter time.Duration
	batch      int
	now        func() time.Time
}

func (j *sagaRecoveryJob) Name() string { return "material-request-recovery" }

func (j *sagaRecoveryJob) Run(ctx context.Context) error {
	staleBefore := j.now().UTC().Add(-j.staleAfter)
	report, err := j.recoverer.Recover(ctx, staleBefore, j.batch)
	if report != nil {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"stale_before": staleBefore,
			"scanned":      report.Scanned,
			"compensated":  report.Compensated,
			"completed":    report.Completed,
			"failed":       report.Failed,
		})
		j.logg.Info(logCtx, "material request recovery complete")
	}
	if err != nil {
		return fmt.Errorf("material request recovery: %w", err)
	}
	return nil
}
