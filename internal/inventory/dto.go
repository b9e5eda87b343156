package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/types"
)

type ItemDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProjectID *uuid.UUID      `json:"project_id,omitempty"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func FromModel(i *models.InventoryItem) *ItemDTO {
	if i == nil {
		return nil
	}
	return &ItemDTO{
		ID:        i.ID,
		ProjectID: i.ProjectID,
		Name:      i.Name,
		Quantity:  i.Quantity,
		Unit:      i.Unit,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

func FromModels(rows []models.InventoryItem) []ItemDTO {
	out := make([]ItemDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

type CreateItemInput struct {
	Name      string            `json:"name" validate:"required"`
	Quantity  types.LooseAmount `json:"quantity"`
	Unit      string            `json:"unit"`
	ProjectID *uuid.UUID        `json:"project_id"`
}

// AdjustInput carries a signed stock correction.
type AdjustInput struct {
	Delta types.LooseAmount `json:"delta"`
}

// UsageInput records material consumed on site.
type UsageInput struct {
	Amount types.LooseAmount `json:"amount"`
}
