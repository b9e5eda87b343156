package transactions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	"github.com/angelmondragon/siteboss-backend/pkg/types"
)

// Supervisor expense categories offered on site.
var ExpenseCategories = []string{"Fuel", "Tea/Snacks", "Transport", "Material", "Repair"}

const (
	defaultOwnerCategory      = "Material"
	defaultSupervisorCategory = "Fuel"
)

type TransactionDTO struct {
	ID            uuid.UUID               `json:"id"`
	ProjectID     *uuid.UUID              `json:"project_id,omitempty"`
	Title         string                  `json:"title"`
	Amount        decimal.Decimal         `json:"amount"`
	Type          enums.TransactionType   `json:"type"`
	Status        enums.TransactionStatus `json:"status"`
	Category      string                  `json:"category"`
	CreatedByRole enums.Role              `json:"created_by_role"`
	CreatedByName string                  `json:"created_by_name"`
	CreatedAt     time.Time               `json:"created_at"`
}

func FromModel(t *models.Transaction) *TransactionDTO {
	if t == nil {
		return nil
	}
	return &TransactionDTO{
		ID:            t.ID,
		ProjectID:     t.ProjectID,
		Title:         t.Title,
		Amount:        t.Amount,
		Type:          t.Type,
		Status:        t.Status,
		Category:      t.Category,
		CreatedByRole: t.CreatedByRole,
		CreatedByName: t.CreatedByName,
		CreatedAt:     t.CreatedAt,
	}
}

func FromModels(rows []models.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

// CreateTransactionInput is the owner's ledger entry form.
type CreateTransactionInput struct {
	Title     string            `json:"title" validate:"required"`
	Amount    types.LooseAmount `json:"amount"`
	Type      string            `json:"type" validate:"required"`
	Category  string            `json:"category"`
	ProjectID *uuid.UUID        `json:"project_id"`
}

// ExpenseInput is a supervisor's on-site spend.
type ExpenseInput struct {
	Title    string            `json:"title" validate:"required"`
	Amount   types.LooseAmount `json:"amount"`
	Category string            `json:"category"`
}

// Summary is the financial overview shown to owners.
type Summary struct {
	Income       decimal.Decimal `json:"income"`
	Expense      decimal.Decimal `json:"expense"`
	Pending      decimal.Decimal `json:"pending"`
	PendingCount int64           `json:"pending_count"`
	Balance      decimal.Decimal `json:"balance"`
}
