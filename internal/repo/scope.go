package repo

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/siteboss-backend/internal/access"
)

// ForActor builds the owner and project scope an actor may read. Workers are
// pinned to their own project and the requested projectID is ignored for them.
func ForActor(actor access.Actor, projectID *uuid.UUID) Filter {
	scope := Filter{OwnerID: actor.OwnerID}
	if id, scoped := actor.ProjectScope(); scoped {
		scope.ProjectScoped = true
		scope.ProjectID = id
		return scope
	}
	if projectID != nil {
		scope.ProjectScoped = true
		scope.ProjectID = projectID
	}
	return scope
}
