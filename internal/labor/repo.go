package labor

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/internal/repo"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/pagination"
)

// Repository exposes persistence helpers for the attendance roster.
type Repository interface {
	List(ctx context.Context, filter repo.Filter) ([]models.LaborEntry, *pagination.Cursor, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.LaborEntry, error)
	Create(ctx context.Context, entry *models.LaborEntry) error
	Toggle(ctx context.Context, ownerID, id uuid.UUID) (*models.LaborEntry, error)
	Count(ctx context.Context, filter repo.Filter) (int64, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

var table = repo.NewTable("labor entry", func(l models.LaborEntry) pagination.Cursor {
	return pagination.Cursor{CreatedAt: l.CreatedAt, ID: l.ID}
})

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, filter repo.Filter) ([]models.LaborEntry, *pagination.Cursor, error) {
	return table.List(ctx, r.db, filter)
}

func (r *repository) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.LaborEntry, error) {
	return table.Get(ctx, r.db, ownerID, id)
}

func (r *repository) Create(ctx context.Context, entry *models.LaborEntry) error {
	return table.Create(ctx, r.db, entry)
}

// Toggle flips attendance in place.
func (r *repository) Toggle(ctx context.Context, ownerID, id uuid.UUID) (*models.LaborEntry, error) {
	return table.Update(ctx, r.db, ownerID, id, map[string]any{"present": gorm.Expr("NOT present")})
}

func (r *repository) Count(ctx context.Context, filter repo.Filter) (int64, error) {
	return table.Count(ctx, r.db, filter)
}

func (r *repository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return table.Delete(ctx, r.db, ownerID, id)
}
