package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
)

// OwnerDTO is the transport shape that omits the password hash.
type OwnerDTO struct {
	ID                   uuid.UUID         `json:"id"`
	Name                 string            `json:"name"`
	Mobile               string            `json:"mobile"`
	CompanyName          string            `json:"company_name"`
	Role                 enums.Role        `json:"role"`
	NotificationsEnabled bool              `json:"notifications_enabled"`
	DefaultView          enums.DefaultView `json:"default_view"`
	LastLoginAt          *time.Time        `json:"last_login_at,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

func FromModel(o *models.Owner) *OwnerDTO {
	if o == nil {
		return nil
	}

	return &OwnerDTO{
		ID:                   o.ID,
		Name:                 o.Name,
		Mobile:               o.Mobile,
		CompanyName:          o.CompanyName,
		Role:                 enums.RoleOwner,
		NotificationsEnabled: o.NotificationsEnabled,
		DefaultView:          o.DefaultView,
		LastLoginAt:          o.LastLoginAt,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}

// UpdateProfileInput carries the profile screen's editable fields. Nil
// fields are left untouched.
type UpdateProfileInput struct {
	Name                 *string `json:"name"`
	CompanyName          *string `json:"company_name"`
	NotificationsEnabled *bool   `json:"notifications_enabled"`
	DefaultView          *string `json:"default_view"`
}
