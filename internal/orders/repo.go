package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/internal/repo"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	"github.com/angelmondragon/siteboss-backend/pkg/pagination"
)

// ArrivedETA replaces the eta label once an order is delivered.
const ArrivedETA = "Arrived"

// Repository defines persistence operations for material orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context, filter repo.Filter) ([]models.Order, *pagination.Cursor, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	MarkDelivered(ctx context.Context, ownerID, id uuid.UUID, at time.Time) (bool, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	// DeleteUndelivered removes the order unless it was delivered. It reports
	// whether a row was removed.
	DeleteUndelivered(ctx context.Context, ownerID, id uuid.UUID) (bool, error)
}

var table = repo.NewTable("order", func(o models.Order) pagination.Cursor {
	return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
})

type repository struct {
	db *gorm.DB
}

// NewRepository creates an orders repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) List(ctx context.Context, filter repo.Filter) ([]models.Order, *pagination.Cursor, error) {
	return table.List(ctx, r.db, filter)
}

func (r *repository) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Order, error) {
	return table.Get(ctx, r.db, ownerID, id)
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return table.Create(ctx, r.db, order)
}

// MarkDelivered flips a not yet delivered order. It reports false when the
// order was already delivered.
func (r *repository) MarkDelivered(ctx context.Context, ownerID, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND owner_id = ? AND status <> ?", id, ownerID, enums.OrderStatusDelivered).
		Updates(map[string]any{
			"status":       enums.OrderStatusDelivered,
			"eta":          ArrivedETA,
			"delivered_at": at,
		})
	if result.Error != nil {
		return false, table.MapError("deliver", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return table.Delete(ctx, r.db, ownerID, id)
}

func (r *repository) DeleteUndelivered(ctx context.Context, ownerID, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ? AND status <> ?", id, ownerID, enums.OrderStatusDelivered).
		Delete(&models.Order{})
	if result.Error != nil {
		return false, table.MapError("delete", result.Error)
	}
	return result.RowsAffected == 1, nil
}
