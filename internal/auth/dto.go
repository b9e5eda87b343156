package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/siteboss-backend/internal/access"
	"github.com/angelmondragon/siteboss-backend/pkg/db/models"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
)

// LoginRequest captures the credentials sent to the login endpoint. Owners
// send a password, workers send their access code.
type LoginRequest struct {
	Mobile     string `json:"mobile" validate:"required"`
	Password   string `json:"password"`
	AccessCode string `json:"access_code"`
}

// RegisterRequest is the owner signup form.
type RegisterRequest struct {
	Name        string `json:"name" validate:"required"`
	Mobile      string `json:"mobile" validate:"required,mobile"`
	CompanyName string `json:"company_name" validate:"required"`
	Password    string `json:"password" validate:"required,min=8"`
}

// RefreshRequest carries the refresh token issued at login.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// SessionUser is the signed-in account as the client sees it.
type SessionUser struct {
	ID          uuid.UUID          `json:"id"`
	OwnerID     uuid.UUID          `json:"owner_id"`
	Name        string             `json:"name"`
	Mobile      string             `json:"mobile"`
	Role        enums.Role         `json:"role"`
	ProjectID   *uuid.UUID         `json:"project_id,omitempty"`
	CompanyName string             `json:"company_name,omitempty"`
	DefaultView *enums.DefaultView `json:"default_view,omitempty"`
	LastLoginAt *time.Time         `json:"last_login_at,omitempty"`
}

// LoginResponse contains the tokens, account and dashboard produced by a
// successful login or signup.
type LoginResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	User         *SessionUser     `json:"user"`
	Dashboard    access.Dashboard `json:"dashboard"`
}

type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SessionState is the restore result. It is never an error: any failure
// reports Authenticated false.
type SessionState struct {
	Authenticated bool              `json:"authenticated"`
	User          *SessionUser      `json:"user,omitempty"`
	Dashboard     *access.Dashboard `json:"dashboard,omitempty"`
}

func ownerUser(o *models.Owner) *SessionUser {
	view := o.DefaultView
	return &SessionUser{
		ID:          o.ID,
		OwnerID:     o.ID,
		Name:        o.Name,
		Mobile:      o.Mobile,
		Role:        enums.RoleOwner,
		CompanyName: o.CompanyName,
		DefaultView: &view,
		LastLoginAt: o.LastLoginAt,
	}
}

func workerUser(w *models.Worker) *SessionUser {
	return &SessionUser{
		ID:          w.ID,
		OwnerID:     w.OwnerID,
		Name:        w.Name,
		Mobile:      w.Mobile,
		Role:        w.Role,
		ProjectID:   w.ProjectID,
		LastLoginAt: w.LastLoginAt,
	}
}
