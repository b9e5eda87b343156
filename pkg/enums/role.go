package enums

// Role maps to the account_role enum in Postgres.
type Role string

const (
	RoleOwner       Role = "OWNER"
	RoleSupervisor  Role = "SUPERVISOR"
	RoleStoreKeeper Role = "STORE_KEEPER"
)

var validRoles = values[Role]{
	RoleOwner,
	RoleSupervisor,
	RoleStoreKeeper,
}

// IsValid reports whether the value matches the canonical role enum.
func (r Role) IsValid() bool {
	return validRoles.has(r)
}

// ParseRole converts raw input into Role.
func ParseRole(value string) (Role, error) {
	return validRoles.parse("role", value)
}

// IsWorker reports whether the role belongs to site staff rather than an owner.
func (r Role) IsWorker() bool {
	return r == RoleSupervisor || r == RoleStoreKeeper
}
