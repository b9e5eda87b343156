package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/pkg/enums"
)

// Owner is the account that owns projects, staff and financials.
type Owner struct {
	ID                   uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                 string            `gorm:"column:name;not null"`
	Mobile               string            `gorm:"column:mobile;not null;uniqueIndex"`
	CompanyName          string            `gorm:"column:company_name;not null"`
	PasswordHash         string            `gorm:"column:password_hash;not null"`
	NotificationsEnabled bool              `gorm:"column:notifications_enabled;not null"`
	DefaultView          enums.DefaultView `gorm:"column:default_view;not null"`
	LastLoginAt          *time.Time        `gorm:"column:last_login_at"`
	CreatedAt            time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Owner) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}
