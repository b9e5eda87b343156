package access

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
	"github.com/angelmondragon/siteboss-backend/pkg/outbox"
)

// Actor is the authenticated caller, built once per request from the access
// token and handed to every service call.
type Actor struct {
	UserID    uuid.UUID
	OwnerID   uuid.UUID
	Role      enums.Role
	ProjectID *uuid.UUID
	Name      string
}

// Validate rejects actors that cannot be scoped to a tenant.
func (a Actor) Validate() error {
	if a.OwnerID == uuid.Nil || a.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated actor required")
	}
	if !a.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "unknown role")
	}
	return nil
}

func (a Actor) IsOwner() bool {
	return a.Role == enums.RoleOwner
}

// ProjectScope returns the project filter implied by the actor. Owners are
// unscoped; workers only see their assigned project, or rows without a
// project when unassigned.
func (a Actor) ProjectScope() (id *uuid.UUID, scoped bool) {
	if a.Role.IsWorker() {
		return a.ProjectID, true
	}
	return nil, false
}

// RequireProject returns the worker's project, or the explicit project an
// owner passed in.
func (a Actor) RequireProject(requested *uuid.UUID) (uuid.UUID, error) {
	if a.Role.IsWorker() {
		if a.ProjectID == nil {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "no project assigned")
		}
		return *a.ProjectID, nil
	}
	if requested == nil || *requested == uuid.Nil {
		return uuid.Nil, pkgerrors.Required("project_id")
	}
	return *requested, nil
}

// Require fails unless the actor holds one of roles.
func (a Actor) Require(roles ...enums.Role) error {
	if err := a.Validate(); err != nil {
		return err
	}
	for _, role := range roles {
		if a.Role == role {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted")
}

// CanSee reports whether a row tagged with projectID is inside the actor's scope.
func (a Actor) CanSee(projectID *uuid.UUID) bool {
	scope, scoped := a.ProjectScope()
	if !scoped {
		return true
	}
	if scope == nil || projectID == nil {
		return scope == nil && projectID == nil
	}
	return *scope == *projectID
}

// Ref is the actor as recorded on outbox events.
func (a Actor) Ref() *outbox.ActorRef {
	return &outbox.ActorRef{UserID: a.UserID, OwnerID: a.OwnerID, Role: string(a.Role)}
}
