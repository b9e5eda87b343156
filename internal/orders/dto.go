package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/siteboss-backend/internal/inventory"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
)

// OrderDTO is the order shape served to the owner and store desk.
type OrderDTO struct {
	ID            uuid.UUID           `json:"id"`
	ProjectID     *uuid.UUID          `json:"project_id,omitempty"`
	TransactionID *uuid.UUID          `json:"transaction_id,omitempty"`
	Item          string              `json:"item"`
	Quantity      string              `json:"quantity"`
	Status        enums.OrderStatus   `json:"status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	ETA           string              `json:"eta"`
	DeliveredAt   *time.Time          `json:"delivered_at,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	return &OrderDTO{
		ID:            o.ID,
		ProjectID:     o.ProjectID,
		TransactionID: o.TransactionID,
		Item:          o.Item,
		Quantity:      o.Quantity,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		ETA:           o.ETA,
		DeliveredAt:   o.DeliveredAt,
		CreatedAt:     o.CreatedAt,
	}
}

func FromModels(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

// Delivery is the result of receiving an order into stock.
type Delivery struct {
	Order     OrderDTO          `json:"order"`
	Inventory inventory.ItemDTO `json:"inventory"`
	Received  int64             `json:"received"`
}
