package issues

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

// Repository exposes persistence helpers for site issues.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context, filter repo.Filter) ([]models.Issue, *pagination.Cursor, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Issue, error)
	Create(ctx context.Context, issue *models.Issue) error
	Resolve(ctx context.Context, ownerID, id uuid.UUID, at time.Time) (bool, error)
	CountOpen(ctx context.Context, scope repo.Filter) (int64, error)
	ProjectName(ctx context.Context, ownerID, projectID uuid.UUID) (string, error)
}

var table = repo.NewTable("issue", func(i models.Issue) pagination.Cursor {
	return pagination.Cursor{CreatedAt: i.CreatedAt, ID: i.ID}
})

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

func (r *repository) List(ctx context.Context, filter repo.Filter) ([]models.Issue, *pagination.Cursor, error) {
	return table.List(ctx, r.db, filter)
}

func (r *repository) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Issue, error) {
	return table.Get(ctx, r.db, ownerID, id)
}

func (r *repository) Create(ctx context.Context, issue *models.Issue) error {
	return table.Create(ctx, r.db, issue)
}

// Resolve moves an OPEN issue to RESOLVED. It reports false when the issue
// was not open.
func (r *repository) Resolve(ctx context.Context, ownerID, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Issue{}).
		Where("id = ? AND owner_id = ? AND status = ?", id, ownerID, enums.IssueStatusOpen).
		Updates(map[string]any{"status": enums.IssueStatusResolved, "resolved_at": at})
	if result.Error != nil {
		return false, table.MapError("resolve", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) CountOpen(ctx context.Context, scope repo.Filter) (int64, error) {
	scope.Where = map[string]any{"status": enums.IssueStatusOpen}
	return table.Count(ctx, r.db, scope)
}

func (r *repository) ProjectName(ctx context.Context, ownerID, projectID uuid.UUID) (string, error) {
	return repo.ProjectName(ctx, r.db, ownerID, projectID)
}
