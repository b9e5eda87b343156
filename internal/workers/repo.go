package workers

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

// Repository exposes persistence helpers for workers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context, filter repo.Filter) ([]models.Worker, *pagination.Cursor, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Worker, error)
	FindByMobile(ctx context.Context, mobile string) (*models.Worker, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Worker, error)
	MobileTaken(ctx context.Context, mobile string) (bool, error)
	ProjectOwned(ctx context.Context, ownerID, projectID uuid.UUID) (bool, error)
	Create(ctx context.Context, worker *models.Worker) error
	Update(ctx context.Context, ownerID, id uuid.UUID, patch map[string]any) (*models.Worker, error)
	TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

var table = repo.NewTable("worker", func(w models.Worker) pagination.Cursor {
	return pagination.Cursor{CreatedAt: w.CreatedAt, ID: w.ID}
})

type repository struct {
	db *gorm.DB
}

// NewRepository returns a workers repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) List(ctx context.Context, filter repo.Filter) ([]models.Worker, *pagination.Cursor, error) {
	return table.List(ctx, r.db, filter)
}

func (r *repository) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Worker, error) {
	return table.Get(ctx, r.db, ownerID, id)
}

// FindByMobile looks a worker up across every owner. It returns nil when
// no worker has the number.
func (r *repository) FindByMobile(ctx context.Context, mobile string) (*models.Worker, error) {
	var worker models.Worker
	err := r.db.WithContext(ctx).Where("mobile = ?", mobile).First(&worker).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, table.MapError("find", err)
	}
	return &worker, nil
}

// FindByID loads a worker without owner scope, for session restore.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Worker, error) {
	var worker models.Worker
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&worker).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, table.MapError("find", err)
	}
	return &worker, nil
}

// MobileTaken reports whether any worker or owner already uses mobile.
func (r *repository) MobileTaken(ctx context.Context, mobile string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Worker{}).Where("mobile = ?", mobile).Count(&count).Error; err != nil {
		return false, table.MapError("check mobile", err)
	}
	if count > 0 {
		return true, nil
	}
	if err := r.db.WithContext(ctx).Model(&models.Owner{}).Where("mobile = ?", mobile).Count(&count).Error; err != nil {
		return false, table.MapError("check mobile", err)
	}
	return count > 0, nil
}

func (r *repository) ProjectOwned(ctx context.Context, ownerID, projectID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ? AND owner_id = ?", projectID, ownerID).
		Count(&count).Error
	if err != nil {
		return false, table.MapError("check project", err)
	}
	return count > 0, nil
}

func (r *repository) Create(ctx context.Context, worker *models.Worker) error {
	return table.Create(ctx, r.db, worker)
}

func (r *repository) Update(ctx context.Context, ownerID, id uuid.UUID, patch map[string]any) (*models.Worker, error) {
	return table.Update(ctx, r.db, ownerID, id, patch)
}

func (r *repository) TouchLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.Worker{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
	return table.MapError("touch login", err)
}

func (r *repository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return table.Delete(ctx, r.db, ownerID, id)
}

func (r *repository) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return table.Count(ctx, r.db, repo.Filter{OwnerID: ownerID})
}
