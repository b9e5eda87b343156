// Package accesstest builds actors for service tests.
package accesstest

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/siteboss-backend/internal/access"
	"github.com/angelmondragon/siteboss-backend/pkg/enums"
)

// Owner returns a fresh owner actor.
func Owner() access.Actor {
	id := uuid.New()
	return access.Actor{UserID: id, OwnerID: id, Role: enums.RoleOwner, Name: "Asha Builder"}
}

// Supervisor returns a supervisor of owner pinned to projectID.
func Supervisor(owner access.Actor, projectID uuid.UUID) access.Actor {
	return access.Actor{UserID: uuid.New(), OwnerID: owner.OwnerID, Role: enums.RoleSupervisor, ProjectID: &projectID, Name: "Ravi Site"}
}

// StoreKeeper returns a store keeper of owner pinned to projectID.
func StoreKeeper(owner access.Actor, projectID uuid.UUID) access.Actor {
	return access.Actor{UserID: uuid.New(), OwnerID: owner.OwnerID, Role: enums.RoleStoreKeeper, ProjectID: &projectID, Name: "Meena Store"}
}
