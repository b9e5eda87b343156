package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/siteboss-backend/pkg/enums"
)

// FeedPost is a site update shared on a project feed.
type FeedPost struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID   uuid.UUID  `gorm:"column:owner_id;type:uuid;not null"`
	ProjectID uuid.UUID  `gorm:"column:project_id;type:uuid;not null"`
	Author    string     `gorm:"column:author;not null"`
	Role      enums.Role `gorm:"column:role;type:account_role;not null"`
	Content   string     `gorm:"column:content;not null"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (f *FeedPost) BeforeCreate(*gorm.DB) error {
	assignID(&f.ID)
	return nil
}
