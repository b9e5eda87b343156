package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/pkg/enums"
)

// Transaction is a money movement recorded against an owner and optionally a project.
type Transaction struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID       uuid.UUID               `gorm:"column:owner_id;type:uuid;not null"`
	ProjectID     *uuid.UUID              `gorm:"column:project_id;type:uuid"`
	Title         string                  `gorm:"column:title;not null"`
	Amount        decimal.Decimal         `gorm:"column:amount;type:numeric(14,2);not null"`
	Type          enums.TransactionType   `gorm:"column:type;type:transaction_type;not null"`
	Status        enums.TransactionStatus `gorm:"column:status;type:transaction_status;not null"`
	Category      string                  `gorm:"column:category;not null"`
	CreatedByRole enums.Role              `gorm:"column:created_by_role;type:account_role;not null"`
	CreatedByName string                  `gorm:"column:created_by_name;not null"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	assignID(&t.ID)
	return nil
}
