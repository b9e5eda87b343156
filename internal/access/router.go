package access

import (
	"fmt"

	"github.com/angelmondragon/siteboss-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/siteboss-backend/pkg/errors"
)

// View names the top-level screen tree a role lands on.
type View string

const (
	ViewOwnerConsole    View = "owner_console"
	ViewSupervisorSite  View = "supervisor_site"
	ViewStoreKeeperDesk View = "store_keeper_desk"
)

// Module is one area of a dashboard.
type Module string

const (
	ModuleProjects      Module = "projects"
	ModuleFinancials    Module = "financials"
	ModuleWorkers       Module = "workers"
	ModuleLiveMap       Module = "live_map"
	ModuleNotifications Module = "notifications"
	ModuleProfile       Module = "profile"
	ModuleAttendance    Module = "attendance"
	ModuleIssues        Module = "issues"
	ModuleExpenses      Module = "expenses"
	ModuleMaterials     Module = "material_requests"
	ModuleFeed          Module = "feed"
	ModuleOrders        Module = "orders"
	ModuleInventory     Module = "inventory"
)

// Dashboard describes what the client mounts after sign in.
type Dashboard struct {
	Role    enums.Role `json:"role"`
	View    View       `json:"view"`
	Home    string     `json:"home"`
	Modules []Module   `json:"modules"`
}

// Route picks the dashboard for role. Every role is handled explicitly and an
// unknown role has no dashboard.
func Route(role enums.Role) (Dashboard, error) {
	switch role {
	case enums.RoleOwner:
		return Dashboard{
			Role: role,
			View: ViewOwnerConsole,
			Home: "/owner",
			Modules: []Module{
				ModuleProjects, ModuleFinancials, ModuleWorkers,
				ModuleLiveMap, ModuleNotifications, ModuleProfile,
			},
		}, nil
	case enums.RoleSupervisor:
		return Dashboard{
			Role: role,
			View: ViewSupervisorSite,
			Home: "/site",
			Modules: []Module{
				ModuleAttendance, ModuleIssues, ModuleExpenses,
				ModuleMaterials, ModuleInventory, ModuleFeed,
			},
		}, nil
	case enums.RoleStoreKeeper:
		return Dashboard{
			Role:    role,
			View:    ViewStoreKeeperDesk,
			Home:    "/store",
			Modules: []Module{ModuleOrders, ModuleInventory},
		}, nil
	default:
		return Dashboard{}, pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("no dashboard for role %q", role))
	}
}
