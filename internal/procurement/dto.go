package procurement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/siteboss-backend/internal/orders"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	"github.com/angelmondragon/siteboss-backend/pkg/types"
)

// Outcome says what acting on a notification did.
type Outcome string

const (
	OutcomeOrdered   Outcome = "ordered"
	OutcomeDismissed Outcome = "dismissed"
)

// ActInput is the owner's answer to a notification. Cost is only read for
// material requests.
type ActInput struct {
	Cost types.LooseAmount `json:"cost"`
}

type SagaDTO struct {
	ID             uuid.UUID        `json:"id"`
	NotificationID uuid.UUID        `json:"notification_id"`
	ProjectID      *uuid.UUID       `json:"project_id,omitempty"`
	Item           string           `json:"item"`
	QuantityLabel  string           `json:"quantity_label"`
	Cost           decimal.Decimal  `json:"cost"`
	Status         enums.SagaStatus `json:"status"`
	Step           enums.SagaStep   `json:"step"`
	TransactionID  *uuid.UUID       `json:"transaction_id,omitempty"`
	OrderID        *uuid.UUID       `json:"order_id,omitempty"`
	LastError      *string          `json:"last_error,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func FromModel(s *models.MaterialRequestSaga) *SagaDTO {
	if s == nil {
		return nil
	}
	return &SagaDTO{
		ID:             s.ID,
		NotificationID: s.NotificationID,
		ProjectID:      s.ProjectID,
		Item:           s.Item,
		QuantityLabel:  s.QuantityLabel,
		Cost:           s.Cost,
		Status:         s.Status,
		Step:           s.Step,
		TransactionID:  s.TransactionID,
		OrderID:        s.OrderID,
		LastError:      s.LastError,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// ActResult reports the effect of acting on a notification. Replayed is
// set when a completed approval was returned without new writes.
type ActResult struct {
	Outcome  Outcome          `json:"outcome"`
	Replayed bool             `json:"replayed"`
	Saga     *SagaDTO         `json:"saga,omitempty"`
	Order    *orders.OrderDTO `json:"order,omitempty"`
}

// RecoveryReport summarizes one pass over stalled sagas.
type RecoveryReport struct {
	Scanned     int `json:"scanned"`
	Compensated int `json:"compensated"`
	Completed   int `json:"completed"`
	Failed      int `json:"failed"`
}
