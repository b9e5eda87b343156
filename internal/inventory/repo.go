package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/internal/repo"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/pagination"
)

// Repository exposes persistence helpers for stock items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context, filter repo.Filter) ([]models.InventoryItem, *pagination.Cursor, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*models.InventoryItem, error)
	Create(ctx context.Context, item *models.InventoryItem) error
	AddFloored(ctx context.Context, ownerID, id uuid.UUID, delta decimal.Decimal) (*models.InventoryItem, error)
	FindByNameFold(ctx context.Context, scope repo.Filter, name string) (*models.InventoryItem, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

var table = repo.NewTable("inventory item", func(i models.InventoryItem) pagination.Cursor {
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

func (r *repository) List(ctx context.Context, filter repo.Filter) ([]models.InventoryItem, *pagination.Cursor, error) {
	return table.List(ctx, r.db, filter)
}

func (r *repository) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.InventoryItem, error) {
	return table.Get(ctx, r.db, ownerID, id)
}

func (r *repository) Create(ctx context.Context, item *models.InventoryItem) error {
	return table.Create(ctx, r.db, item)
}

// AddFloored adds delta to the stored quantity in one statement, never
// letting it drop below zero.
func (r *repository) AddFloored(ctx context.Context, ownerID, id uuid.UUID, delta decimal.Decimal) (*models.InventoryItem, error) {
	expr := gorm.Expr("CASE WHEN quantity + ? < 0 THEN 0 ELSE quantity + ? END", delta, delta)
	return table.Update(ctx, r.db, ownerID, id, map[string]any{"quantity": expr})
}

// FindByNameFold returns the oldest item in scope whose name contains name,
// ignoring case. It returns nil when nothing matches.
func (r *repository) FindByNameFold(ctx context.Context, scope repo.Filter, name string) (*models.InventoryItem, error) {
	scope.Clauses = append(scope.Clauses, repo.ContainsFold("name", name))
	var item models.InventoryItem
	err := table.Scope(r.db.WithContext(ctx).Model(&models.InventoryItem{}), scope).
		Order("created_at ASC, id ASC").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, table.MapError("match", err)
	}
	return &item, nil
}

func (r *repository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return table.Delete(ctx, r.db, ownerID, id)
}
