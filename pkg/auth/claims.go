package auth

import (
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	OwnerID   uuid.UUID
	Role      enums.Role
	ProjectID *uuid.UUID
	Name      string
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to clients. For owners
// UserID and OwnerID are the same; workers carry the owner that employs them.
type AccessTokenClaims struct {
	UserID    uuid.UUID  `json:"user_id"`
	OwnerID   uuid.UUID  `json:"owner_id"`
	Role      enums.Role `json:"role"`
	ProjectID *uuid.UUID `json:"project_id,omitempty"`
	Name      string     `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Payload converts parsed claims back into a mint payload, keeping the jti.
func (c AccessTokenClaims) Payload() AccessTokenPayload {
	return AccessTokenPayload{
		UserID:    c.UserID,
		OwnerID:   c.OwnerID,
		Role:      c.Role,
		ProjectID: c.ProjectID,
		Name:      c.Name,
		JTI:       c.ID,
	}
}
