package projects

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/internal/repo"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	"github.com/angelmondragon/siteboss-backend/pkg/pagination"
)

// Repository exposes persistence helpers for projects.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context, params listParams) ([]models.Project, *pagination.Cursor, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Project, error)
	Create(ctx context.Context, project *models.Project) error
	Update(ctx context.Context, ownerID, id uuid.UUID, patch map[string]any) (*models.Project, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

type listParams struct {
	OwnerID uuid.UUID
	Status  enums.ProjectStatus
	Limit   int
	Cursor  *pagination.Cursor
}

var table = repo.NewTable("project", func(p models.Project) pagination.Cursor {
	return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
})

type repository struct {
	db *gorm.DB
}

// NewRepository returns a projects repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) List(ctx context.Context, params listParams) ([]models.Project, *pagination.Cursor, error) {
	filter := repo.Filter{OwnerID: params.OwnerID, Limit: params.Limit, Cursor: params.Cursor}
	if params.Status != "" {
		filter.Where = map[string]any{"status": params.Status}
	}
	return table.List(ctx, r.db, filter)
}

func (r *repository) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Project, error) {
	return table.Get(ctx, r.db, ownerID, id)
}

func (r *repository) Create(ctx context.Context, project *models.Project) error {
	return table.Create(ctx, r.db, project)
}

func (r *repository) Update(ctx context.Context, ownerID, id uuid.UUID, patch map[string]any) (*models.Project, error) {
	return table.Update(ctx, r.db, ownerID, id, patch)
}

func (r *repository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return table.Delete(ctx, r.db, ownerID, id)
}
