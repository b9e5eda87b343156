package inventory

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/internal/access"
	"github.com/angelmondragon/siteboss-backend/internal/repo"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/pagination"
)

// DefaultUnit labels stock created without a unit.
const DefaultUnit = "Units"

var stockRoles = []enums.Role{enums.RoleOwner, enums.RoleStoreKeeper, enums.RoleSupervisor}

// Service defines stock operations for the store desk.
type Service interface {
	List(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error)
	Create(ctx context.Context, actor access.Actor, input CreateItemInput) (*ItemDTO, error)
	Adjust(ctx context.Context, actor access.Actor, id uuid.UUID, input AdjustInput) (*ItemDTO, error)
	LogUsage(ctx context.Context, actor access.Actor, id uuid.UUID, input UsageInput) (*ItemDTO, error)
	Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error
	Stocker
}

// Stocker receives delivered material inside a caller's transaction.
type Stocker interface {
	ReceiveTx(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, projectID *uuid.UUID, name string, qty decimal.Decimal) (*models.InventoryItem, error)
}

type ListParams struct {
	pagination.Params
	ProjectID *uuid.UUID
	Query     string
}

type ListResult struct {
	Items  []ItemDTO `json:"items"`
	Cursor string    `json:"cursor"`
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error) {
	if err := actor.Require(stockRoles...); err != nil {
		return nil, err
	}
	filter := repo.ForActor(actor, params.ProjectID)
	filter.Limit = params.Limit
	if q := strings.TrimSpace(params.Query); q != "" {
		filter.Clauses = append(filter.Clauses, repo.ContainsFold("name", q))
	}
	cursor, err := repo.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	filter.Cursor = cursor

	rows, next, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ListResult{Items: FromModels(rows), Cursor: repo.EncodeNext(next)}, nil
}

func (s *service) Create(ctx context.Context, actor access.Actor, input CreateItemInput) (*ItemDTO, error) {
	if err := actor.Require(enums.RoleOwner, enums.RoleStoreKeeper); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.Required("name")
	}
	qty := input.Quantity.Value
	if qty.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		unit = DefaultUnit
	}
	projectID := input.ProjectID
	if scope, scoped := actor.ProjectScope(); scoped {
		projectID = scope
	}

	item := &models.InventoryItem{
		OwnerID:   actor.OwnerID,
		ProjectID: projectID,
		Name:      name,
		Quantity:  qty,
		Unit:      unit,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	return FromModel(item), nil
}

// Adjust applies a signed delta. The stored quantity never goes below zero.
func (s *service) Adjust(ctx context.Context, actor access.Actor, id uuid.UUID, input AdjustInput) (*ItemDTO, error) {
	if err := actor.Require(enums.RoleOwner, enums.RoleStoreKeeper); err != nil {
		return nil, err
	}
	if !input.Delta.Set {
		return nil, pkgerrors.Required("delta")
	}
	return s.apply(ctx, actor, id, input.Delta.Value)
}

// LogUsage subtracts consumed material, flooring at zero.
func (s *service) LogUsage(ctx context.Context, actor access.Actor, id uuid.UUID, input UsageInput) (*ItemDTO, error) {
	if err := actor.Require(stockRoles...); err != nil {
		return nil, err
	}
	if !input.Amount.Set {
		return nil, pkgerrors.Required("amount")
	}
	if input.Amount.Value.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	return s.apply(ctx, actor, id, input.Amount.Value.Neg())
}

func (s *service) Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	if err := actor.Require(enums.RoleOwner, enums.RoleStoreKeeper); err != nil {
		return err
	}
	if _, err := s.visible(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, actor.OwnerID, id)
}

// ReceiveTx adds qty to the first item whose name contains name, or creates
// one when nothing in the project matches.
func (s *service) ReceiveTx(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID, projectID *uuid.UUID, name string, qty decimal.Decimal) (*models.InventoryItem, error) {
	r := s.repo.WithTx(tx)
	scope := repo.Filter{OwnerID: ownerID}
	if projectID != nil {
		scope.ProjectScoped = true
		scope.ProjectID = projectID
	}
	match, err := r.FindByNameFold(ctx, scope, name)
	if err != nil {
		return nil, err
	}
	if match != nil {
		return r.AddFloored(ctx, ownerID, match.ID, qty)
	}
	item := &models.InventoryItem{
		OwnerID:   ownerID,
		ProjectID: projectID,
		Name:      name,
		Quantity:  decimal.Max(qty, decimal.Zero),
		Unit:      DefaultUnit,
	}
	if err := r.Create(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) apply(ctx context.Context, actor access.Actor, id uuid.UUID, delta decimal.Decimal) (*ItemDTO, error) {
	if _, err := s.visible(ctx, actor, id); err != nil {
		return nil, err
	}
	item, err := s.repo.AddFloored(ctx, actor.OwnerID, id, delta)
	if err != nil {
		return nil, err
	}
	return FromModel(item), nil
}

func (s *service) visible(ctx context.Context, actor access.Actor, id uuid.UUID) (*models.InventoryItem, error) {
	item, err := s.repo.Get(ctx, actor.OwnerID, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanSee(item.ProjectID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
	}
	return item, nil
}
