package dashboard

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/internal/repo"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
)

// Repository runs the owner-wide aggregate queries behind the console.
type Repository interface {
	CountProjects(ctx context.Context, ownerID uuid.UUID, status enums.ProjectStatus) (int64, error)
	CountWorkers(ctx context.Context, ownerID uuid.UUID) (int64, error)
	SumExpenses(ctx context.Context, ownerID uuid.UUID) (decimal.Decimal, error)
	CountNotifications(ctx context.Context, ownerID uuid.UUID) (int64, error)
	CountOpenIssues(ctx context.Context, ownerID uuid.UUID) (int64, error)
	MappedProjects(ctx context.Context, ownerID uuid.UUID) ([]models.Project, error)
	WorkersPerProject(ctx context.Context, ownerID uuid.UUID) (map[uuid.UUID]int64, error)
	OpenIssuesPerProject(ctx context.Context, ownerID uuid.UUID) (map[uuid.UUID]int64, error)
}

var (
	projects      = repo.NewTable[models.Project]("project", nil)
	workers       = repo.NewTable[models.Worker]("worker", nil)
	transactions  = repo.NewTable[models.Transaction]("transaction", nil)
	notifications = repo.NewTable[models.Notification]("notification", nil)
	issues        = repo.NewTable[models.Issue]("issue", nil)
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CountProjects(ctx context.Context, ownerID uuid.UUID, status enums.ProjectStatus) (int64, error) {
	filter := repo.Filter{OwnerID: ownerID}
	if status != "" {
		filter.Where = map[string]any{"status": status}
	}
	return projects.Count(ctx, r.db, filter)
}

func (r *repository) CountWorkers(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return workers.Count(ctx, r.db, repo.Filter{OwnerID: ownerID})
}

func (r *repository) SumExpenses(ctx context.Context, ownerID uuid.UUID) (decimal.Decimal, error) {
	var out struct {
		Total decimal.Decimal
	}
	scope := repo.Filter{OwnerID: ownerID, Where: map[string]any{"type": enums.TransactionTypeExpense}}
	err := transactions.Scope(r.db.WithContext(ctx).Model(&models.Transaction{}), scope).
		Select("COALESCE(SUM(amount), 0) AS total").
		Scan(&out).Error
	if err != nil {
		return decimal.Zero, transactions.MapError("sum expenses", err)
	}
	return out.Total, nil
}

func (r *repository) CountNotifications(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return notifications.Count(ctx, r.db, repo.Filter{OwnerID: ownerID})
}

func (r *repository) CountOpenIssues(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	return issues.Count(ctx, r.db, repo.Filter{OwnerID: ownerID, Where: map[string]any{"status": enums.IssueStatusOpen}})
}

func (r *repository) MappedProjects(ctx context.Context, ownerID uuid.UUID) ([]models.Project, error) {
	var rows []models.Project
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND latitude IS NOT NULL AND longitude IS NOT NULL", ownerID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, projects.MapError("list mapped", err)
	}
	return rows, nil
}

type projectCount struct {
	ProjectID uuid.UUID
	Count     int64
}

func (r *repository) WorkersPerProject(ctx context.Context, ownerID uuid.UUID) (map[uuid.UUID]int64, error) {
	var rows []projectCount
	err := r.db.WithContext(ctx).
		Model(&models.Worker{}).
		Select("project_id, COUNT(*) AS count").
		Where("owner_id = ? AND project_id IS NOT NULL", ownerID).
		Group("project_id").
		Scan(&rows).Error
	if err != nil {
		return nil, workers.MapError("count per project", err)
	}
	return toCountMap(rows), nil
}

func (r *repository) OpenIssuesPerProject(ctx context.Context, ownerID uuid.UUID) (map[uuid.UUID]int64, error) {
	var rows []projectCount
	err := r.db.WithContext(ctx).
		Model(&models.Issue{}).
		Select("project_id, COUNT(*) AS count").
		Where("owner_id = ? AND status = ? AND project_id IS NOT NULL", ownerID, enums.IssueStatusOpen).
		Group("project_id").
		Scan(&rows).Error
	if err != nil {
		return nil, issues.MapError("count per project", err)
	}
	return toCountMap(rows), nil
}

func toCountMap(rows []projectCount) map[uuid.UUID]int64 {
	out := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		out[row.ProjectID] = row.Count
	}
	return out
}
