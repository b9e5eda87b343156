package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/pkg/enums"
)

// LaborEntry is one day laborer on a site roster.
type LaborEntry struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID   uuid.UUID       `gorm:"column:owner_id;type:uuid;not null"`
	ProjectID uuid.UUID       `gorm:"column:project_id;type:uuid;not null"`
	Name      string          `gorm:"column:name;not null"`
	Type      enums.LaborType `gorm:"column:type;type:labor_type;not null"`
	Present   bool            `gorm:"column:present;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *LaborEntry) BeforeCreate(*gorm.DB) error {
	assignID(&l.ID)
	return nil
}
