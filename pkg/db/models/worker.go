package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/pkg/enums"
)

// Worker is a site staff member that logs in with their mobile number.
type Worker struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID        uuid.UUID          `gorm:"column:owner_id;type:uuid;not null"`
	ProjectID      *uuid.UUID         `gorm:"column:project_id;type:uuid"`
	Name           string             `gorm:"column:name;not null"`
	Mobile         string             `gorm:"column:mobile;not null;uniqueIndex"`
	Role           enums.Role         `gorm:"column:role;type:account_role;not null"`
	Status         enums.WorkerStatus `gorm:"column:status;type:worker_status;not null"`
	AccessCodeHash *string            `gorm:"column:access_code_hash"`
	LastLoginAt    *time.Time         `gorm:"column:last_login_at"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (w *Worker) BeforeCreate(*gorm.DB) error {
	assignID(&w.ID)
	return nil
}

// Active reports whether the worker may sign in.
func (w Worker) Active() bool {
	return w.Status == enums.WorkerStatusActive
}
