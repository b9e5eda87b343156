package transactions

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/internal/repo"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	"github.com/angelmondragon/siteboss-backend/pkg/pagination"
)

//go:generate mockgen -source=repo.go -destination=repository_mock.go -package=transactions

// Repository exposes persistence helpers for transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context, filter ListFilter) ([]models.Transaction, *pagination.Cursor, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Transaction, error)
	Create(ctx context.Context, txn *models.Transaction) error
	SettlePending(ctx context.Context, ownerID, id uuid.UUID, to enums.TransactionStatus) (bool, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	Totals(ctx context.Context, scope repo.Filter) ([]TotalRow, error)
}

// ListFilter narrows the transaction list.
type ListFilter struct {
	Scope  repo.Filter
	Type   enums.TransactionType
	Status enums.TransactionStatus
}

// TotalRow is one type/status bucket of the financial summary.
type TotalRow struct {
	Type   enums.TransactionType
	Status enums.TransactionStatus
	Total  decimal.Decimal
	Count  int64
}

var table = repo.NewTable("transaction", func(t models.Transaction) pagination.Cursor {
	return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
})

type repository struct {
	db *gorm.DB
}

// NewRepository returns a transactions repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Transaction, *pagination.Cursor, error) {
	scope := filter.Scope
	where := map[string]any{}
	if filter.Type != "" {
		where["type"] = filter.Type
	}
	if filter.Status != "" {
		where["status"] = filter.Status
	}
	if len(where) > 0 {
		scope.Where = where
	}
	return table.List(ctx, r.db, scope)
}

func (r *repository) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Transaction, error) {
	return table.Get(ctx, r.db, ownerID, id)
}

func (r *repository) Create(ctx context.Context, txn *models.Transaction) error {
	return table.Create(ctx, r.db, txn)
}

// SettlePending moves a PENDING transaction to status. It reports false when
// the row was not pending.
func (r *repository) SettlePending(ctx context.Context, ownerID, id uuid.UUID, to enums.TransactionStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("id = ? AND owner_id = ? AND status = ?", id, ownerID, enums.TransactionStatusPending).
		Update("status", to)
	if result.Error != nil {
		return false, table.MapError("settle", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return table.Delete(ctx, r.db, ownerID, id)
}

func (r *repository) Totals(ctx context.Context, scope repo.Filter) ([]TotalRow, error) {
	var rows []TotalRow
	err := table.Scope(r.db.WithContext(ctx).Model(&models.Transaction{}), scope).
		Select("type, status, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Group("type, status").
		Scan(&rows).Error
	if err != nil {
		return nil, table.MapError("summarize", err)
	}
	return rows, nil
}
