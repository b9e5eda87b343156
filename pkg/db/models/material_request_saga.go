package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/pkg/enums"
)

// MaterialRequestSaga records the progress of one material request approval.
type MaterialRequestSaga struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID        uuid.UUID        `gorm:"column:owner_id;type:uuid;not null"`
	NotificationID uuid.UUID        `gorm:"column:notification_id;type:uuid;not null;uniqueIndex"`
	ProjectID      *uuid.UUID       `gorm:"column:project_id;type:uuid"`
	Item           string           `gorm:"column:item;not null"`
	QuantityLabel  string           `gorm:"column:quantity_label;not null"`
	Cost           decimal.Decimal  `gorm:"column:cost;type:numeric(14,2);not null"`
	Status         enums.SagaStatus `gorm:"column:status;type:saga_status;not null"`
	Step           enums.SagaStep   `gorm:"column:step;type:saga_step;not null"`
	TransactionID  *uuid.UUID       `gorm:"column:transaction_id;type:uuid"`
	OrderID        *uuid.UUID       `gorm:"column:order_id;type:uuid"`
	LastError      *string          `gorm:"column:last_error"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *MaterialRequestSaga) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}
