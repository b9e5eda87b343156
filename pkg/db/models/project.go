package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/pkg/enums"
)

// Project is a construction site owned by exactly one owner.
type Project struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID   uuid.UUID           `gorm:"column:owner_id;type:uuid;not null"`
	Name      string              `gorm:"column:name;not null"`
	Location  string              `gorm:"column:location;not null"`
	Latitude  *float64            `gorm:"column:latitude"`
	Longitude *float64            `gorm:"column:longitude"`
	Budget    decimal.Decimal     `gorm:"column:budget;type:numeric(14,2);not null"`
	StartDate time.Time           `gorm:"column:start_date;type:date;not null"`
	Status    enums.ProjectStatus `gorm:"column:status;type:project_status;not null"`
	Progress  int                 `gorm:"column:progress;not null"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Project) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// HasCoordinates reports whether the site can be pinned on a map.
func (p Project) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}
