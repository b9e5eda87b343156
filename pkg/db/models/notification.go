package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/pkg/enums"
)

// Notification is an owner-facing alert, optionally carrying an action.
type Notification struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID     uuid.UUID              `gorm:"column:owner_id;type:uuid;not null"`
	ProjectID   *uuid.UUID             `gorm:"column:project_id;type:uuid"`
	Type        enums.NotificationType `gorm:"column:type;type:notification_type;not null"`
	Title       string                 `gorm:"column:title;not null"`
	Message     string                 `gorm:"column:message;not null"`
	Action      *string                `gorm:"column:action"`
	Item        *string                `gorm:"column:item"`
	RequestedBy string                 `gorm:"column:requested_by;not null"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	assignID(&n.ID)
	return nil
}
