package transactions

import (
	"context"
	"fmt"
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

// Service defines ledger operations.
type Service interface {
	List(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error)
	Create(ctx context.Context, actor access.Actor, input CreateTransactionInput) (*TransactionDTO, error)
	RecordExpense(ctx context.Context, actor access.Actor, input ExpenseInput) (*TransactionDTO, error)
	Settle(ctx context.Context, actor access.Actor, id uuid.UUID) (*TransactionDTO, error)
	Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error
	Summary(ctx context.Context, actor access.Actor, projectID *uuid.UUID) (*Summary, error)
	Recorder
}

// Recorder writes ledger rows inside a caller-owned transaction.
type Recorder interface {
	RecordTx(ctx context.Context, tx *gorm.DB, txn *models.Transaction) error
	DeleteTx(ctx context.Context, tx *gorm.DB, ownerID, id uuid.UUID) error
}

// ListParams filters the transaction list.
type ListParams struct {
	pagination.Params
	Type      string
	Status    string
	ProjectID *uuid.UUID
}

type ListResult struct {
	Items  []TransactionDTO `json:"items"`
	Cursor string           `json:"cursor"`
}

type service struct {
	repo Repository
}

// NewService wires transaction dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transactions repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, actor access.Actor, params ListParams) (*ListResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	filter := ListFilter{Scope: repo.ForActor(actor, params.ProjectID)}
	filter.Scope.Limit = params.Limit

	if params.Type != "" {
		parsed, err := enums.ParseTransactionType(params.Type)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type filter")
		}
		filter.Type = parsed
	}
	if params.Status != "" {
		parsed, err := enums.ParseTransactionStatus(params.Status)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filter.Status = parsed
	}
	cursor, err := repo.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	filter.Scope.Cursor = cursor

	rows, next, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ListResult{Items: FromModels(rows), Cursor: repo.EncodeNext(next)}, nil
}

func (s *service) Create(ctx context.Context, actor access.Actor, input CreateTransactionInput) (*TransactionDTO, error) {
	if err := actor.Require(enums.RoleOwner); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.Required("title")
	}
	amount, err := requireAmount(input.Amount.Value, input.Amount.Set)
	if err != nil {
		return nil, err
	}
	txType, err := enums.ParseTransactionType(strings.TrimSpace(input.Type))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type")
	}
	category := strings.TrimSpace(input.Category)
	if category == "" {
		category = defaultOwnerCategory
	}

	txn := &models.Transaction{
		OwnerID:       actor.OwnerID,
		ProjectID:     input.ProjectID,
		Title:         title,
		Amount:        amount,
		Type:          txType,
		Status:        txType.SettledStatus(),
		Category:      category,
		CreatedByRole: actor.Role,
		CreatedByName: actor.Name,
	}
	if err := s.repo.Create(ctx, txn); err != nil {
		return nil, err
	}
	return FromModel(txn), nil
}

func (s *service) RecordExpense(ctx context.Context, actor access.Actor, input ExpenseInput) (*TransactionDTO, error) {
	if err := actor.Require(enums.RoleSupervisor); err != nil {
		return nil, err
	}
	projectID, err := actor.RequireProject(nil)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.Required("title")
	}
	amount, err := requireAmount(input.Amount.Value, input.Amount.Set)
	if err != nil {
		return nil, err
	}
	category, err := expenseCategory(input.Category)
	if err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		OwnerID:       actor.OwnerID,
		ProjectID:     &projectID,
		Title:         title,
		Amount:        amount,
		Type:          enums.TransactionTypeExpense,
		Status:        enums.TransactionStatusPending,
		Category:      category,
		CreatedByRole: enums.RoleSupervisor,
		CreatedByName: actor.Name,
	}
	if err := s.repo.Create(ctx, txn); err != nil {
		return nil, err
	}
	return FromModel(txn), nil
}

// Settle marks a pending transaction paid or received according to its type.
func (s *service) Settle(ctx context.Context, actor access.Actor, id uuid.UUID) (*TransactionDTO, error) {
	if err := actor.Require(enums.RoleOwner); err != nil {
		return nil, err
	}
	current, err := s.repo.Get(ctx, actor.OwnerID, id)
	if err != nil {
		return nil, err
	}
	if current.Status != enums.TransactionStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("transaction already %s", current.Status))
	}

	target := current.Type.SettledStatus()
	moved, err := s.repo.SettlePending(ctx, actor.OwnerID, id, target)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "transaction is no longer pending")
	}
	current.Status = target
	return FromModel(current), nil
}

func (s *service) Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	if err := actor.Require(enums.RoleOwner); err != nil {
		return err
	}
	return s.repo.Delete(ctx, actor.OwnerID, id)
}

func (s *service) Summary(ctx context.Context, actor access.Actor, projectID *uuid.UUID) (*Summary, error) {
	if err := actor.Require(enums.RoleOwner); err != nil {
		return nil, err
	}
	rows, err := s.repo.Totals(ctx, repo.ForActor(actor, projectID))
	if err != nil {
		return nil, err
	}
	return summarize(rows), nil
}

// RecordTx inserts txn using tx. Used by workflows spanning several tables.
func (s *service) RecordTx(ctx context.Context, tx *gorm.DB, txn *models.Transaction) error {
	return s.repo.WithTx(tx).Create(ctx, txn)
}

func (s *service) DeleteTx(ctx context.Context, tx *gorm.DB, ownerID, id uuid.UUID) error {
	return s.repo.WithTx(tx).Delete(ctx, ownerID, id)
}

func summarize(rows []TotalRow) *Summary {
	out := &Summary{Income: decimal.Zero, Expense: decimal.Zero, Pending: decimal.Zero}
	for _, row := range rows {
		switch row.Type {
		case enums.TransactionTypeIncome:
			out.Income = out.Income.Add(row.Total)
		case enums.TransactionTypeExpense:
			out.Expense = out.Expense.Add(row.Total)
		}
		if row.Status == enums.TransactionStatusPending {
			out.Pending = out.Pending.Add(row.Total)
			out.PendingCount += row.Count
		}
	}
	out.Balance = out.Income.Sub(out.Expense)
	return out
}

func requireAmount(value decimal.Decimal, set bool) (decimal.Decimal, error) {
	if !set {
		return decimal.Zero, pkgerrors.Required("amount")
	}
	if value.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	return value.Round(2), nil
}

func expenseCategory(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultSupervisorCategory, nil
	}
	for _, candidate := range ExpenseCategories {
		if strings.EqualFold(candidate, raw) {
			return candidate, nil
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown expense category %q", raw)).
		WithDetails(map[string]any{"category": ExpenseCategories})
}
