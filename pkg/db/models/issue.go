package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/pkg/enums"
)

// Issue is a site problem raised by a supervisor.
type Issue struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID    uuid.UUID           `gorm:"column:owner_id;type:uuid;not null"`
	ProjectID  *uuid.UUID          `gorm:"column:project_id;type:uuid"`
	Title      string              `gorm:"column:title;not null"`
	Priority   enums.IssuePriority `gorm:"column:priority;type:issue_priority;not null"`
	Status     enums.IssueStatus   `gorm:"column:status;type:issue_status;not null"`
	Reporter   string              `gorm:"column:reporter;not null"`
	SiteName   string              `gorm:"column:site_name;not null"`
	ResolvedAt *time.Time          `gorm:"column:resolved_at"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (i *Issue) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	return nil
}
