package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/internal/repo"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/pagination"
)

// Repository exposes persistence helpers for notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	List(ctx context.Context, filter repo.Filter) ([]models.Notification, *pagination.Cursor, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Notification, error)
	Count(ctx context.Context, ownerID uuid.UUID) (int64, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	ProjectName(ctx context.Context, ownerID, projectID uuid.UUID) (string, error)
	NotificationsEnabled(ctx context.Context, ownerID uuid.UUID) (bool, error)
}

var table = repo.NewTable("notification", func(n models.Notification) pagination.Cursor {
	return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
})

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	return table.Create(ctx, r.db, notification)
}

func (r *repositoryImpl) List(ctx context.Context, filter repo.Filter) ([]models.Notification, *pagination.Cursor, error) {
	return table.List(ctx, r.db, filter)
}

func (r *repositoryImpl) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Notification, error) {
	return table.Get(ctx, r.db, ownerID, id)
}

func (r *repositoryImpl) Count(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return table.Count(ctx, r.db, repo.Filter{OwnerID: ownerID})
}

func (r *repositoryImpl) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return table.Delete(ctx, r.db, ownerID, id)
}

// DeleteOlderThan prunes informational notifications created before cutoff.
// Rows carrying an action stay until someone acts on them.
func (r *repositoryImpl) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	result := conn.WithContext(ctx).
		Where("created_at < ? AND action IS NULL", cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, table.MapError("prune", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *repositoryImpl) ProjectName(ctx context.Context, ownerID, projectID uuid.UUID) (string, error) {
	return repo.ProjectName(ctx, r.db, ownerID, projectID)
}

// NotificationsEnabled reads the owner's profile switch. A missing owner
// reads as disabled.
func (r *repositoryImpl) NotificationsEnabled(ctx context.Context, ownerID uuid.UUID) (bool, error) {
	var owner models.Owner
	err := r.db.WithContext(ctx).
		Select("notifications_enabled").
		Where("id = ?", ownerID).
		First(&owner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, table.MapError("owner lookup", err)
	}
	return owner.NotificationsEnabled, nil
}
