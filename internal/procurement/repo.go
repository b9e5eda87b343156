package procurement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/internal/repo"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
)

// Repository persists material request saga rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByNotification(ctx context.Context, ownerID, notificationID uuid.UUID) (*models.MaterialRequestSaga, error)
	Create(ctx context.Context, saga *models.MaterialRequestSaga) error
	// Advance stores saga's step, status and created ids, but only while the
	// row is still RUNNING at step from.
	Advance(ctx context.Context, saga *models.MaterialRequestSaga, from enums.SagaStep) (bool, error)
	Finish(ctx context.Context, id uuid.UUID, from, to enums.SagaStatus, lastError *string) (bool, error)
	Restart(ctx context.Context, saga *models.MaterialRequestSaga) (bool, error)
	ListStale(ctx context.Context, before time.Time, limit int) ([]models.MaterialRequestSaga, error)
}

var table = repo.NewTable[models.MaterialRequestSaga]("material request", nil)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByNotification returns nil when the notification was never acted on.
func (r *repository) FindByNotification(ctx context.Context, ownerID, notificationID uuid.UUID) (*models.MaterialRequestSaga, error) {
	var saga models.MaterialRequestSaga
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND notification_id = ?", ownerID, notificationID).
		First(&saga).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, table.MapError("find", err)
	}
	return &saga, nil
}

func (r *repository) Create(ctx context.Context, saga *models.MaterialRequestSaga) error {
	return table.Create(ctx, r.db, saga)
}

func (r *repository) Advance(ctx context.Context, saga *models.MaterialRequestSaga, from enums.SagaStep) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.MaterialRequestSaga{}).
		Where("id = ? AND status = ? AND step = ?", saga.ID, enums.SagaStatusRunning, from).
		Updates(map[string]any{
			"step":           saga.Step,
			"status":         saga.Status,
			"transaction_id": saga.TransactionID,
			"order_id":       saga.OrderID,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return false, table.MapError("advance", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Finish moves a saga from status from to status to.
func (r *repository) Finish(ctx context.Context, id uuid.UUID, from, to enums.SagaStatus, lastError *string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.MaterialRequestSaga{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"last_error": lastError,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, table.MapError("finish", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// Restart reopens a compensated saga for a new attempt with saga's inputs.
func (r *repository) Restart(ctx context.Context, saga *models.MaterialRequestSaga) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.MaterialRequestSaga{}).
		Where("id = ? AND status = ?", saga.ID, enums.SagaStatusCompensated).
		Updates(map[string]any{
			"status":         enums.SagaStatusRunning,
			"step":           enums.SagaStepStarted,
			"item":           saga.Item,
			"quantity_label": saga.QuantityLabel,
			"cost":           saga.Cost,
			"project_id":     saga.ProjectID,
			"transaction_id": nil,
			"order_id":       nil,
			"last_error":     nil,
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return false, table.MapError("restart", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ListStale returns RUNNING sagas untouched since before, oldest first.
func (r *repository) ListStale(ctx context.Context, before time.Time, limit int) ([]models.MaterialRequestSaga, error) {
	var rows []models.MaterialRequestSaga
	q := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", enums.SagaStatusRunning, before).
		Order("updated_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, table.MapError("list stale", err)
	}
	return rows, nil
}
