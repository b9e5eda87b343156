package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/pkg/enums"
)

// Order is a material purchase on its way to a site.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID       uuid.UUID           `gorm:"column:owner_id;type:uuid;not null"`
	ProjectID     *uuid.UUID          `gorm:"column:project_id;type:uuid"`
	TransactionID *uuid.UUID          `gorm:"column:transaction_id;type:uuid"`
	Item          string              `gorm:"column:item;not null"`
	Quantity      string              `gorm:"column:quantity;not null"`
	Status        enums.OrderStatus   `gorm:"column:status;type:order_status;not null"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:order_payment_status;not null"`
	ETA           string              `gorm:"column:eta;not null"`
	DeliveredAt   *time.Time          `gorm:"column:delivered_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}
