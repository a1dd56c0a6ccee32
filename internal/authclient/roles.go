package authclient

// Role is an access level assigned by the auth backend.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
	RoleGuest  Role = "guest"
)

// Permission strings issued by the auth backend.
const (
	PermReadCanvas   = "read:canvas"
	PermWriteCanvas  = "write:canvas"
	PermDeleteCanvas = "delete:canvas"

	PermCreateProject = "create:project"
	PermEditProject   = "edit:project"
	PermDeleteProject = "delete:project"
	PermCreateEntity  = "create:entity"
	PermEditEntity    = "edit:entity"
	PermDeleteEntity  = "delete:entity"
	PermCreateNote    = "create:note"
	PermEditNote      = "edit:note"
	PermDeleteNote    = "delete:note"
	PermCreateChart   = "create:chart"
	PermEditChart     = "edit:chart"
	PermDeleteChart   = "delete:chart"

	PermCreatePlan  = "create:plan"
	PermExecutePlan = "execute:plan"
	PermManagePlan  = "manage:plan"

	PermAdmin       = "admin"
	PermManageUsers = "manage:users"
)

// RolePermissions mirrors the backend's role → permission mapping, for
// local gating when the backend is unreachable or not configured.
var RolePermissions = map[Role][]string{
	RoleAdmin: {
		PermReadCanvas, PermWriteCanvas, PermDeleteCanvas,
		PermCreateProject, PermEditProject, PermDeleteProject,
		PermCreateEntity, PermEditEntity, PermDeleteEntity,
		PermCreateNote, PermEditNote, PermDeleteNote,
		PermCreateChart, PermEditChart, PermDeleteChart,
		PermCreatePlan, PermExecutePlan, PermManagePlan,
		PermAdmin, PermManageUsers,
	},
	RoleEditor: {
		PermReadCanvas, PermWriteCanvas,
		PermCreateProject, PermEditProject,
		PermCreateEntity, PermEditEntity,
		PermCreateNote, PermEditNote,
		PermCreateChart, PermEditChart,
		PermCreatePlan, PermExecutePlan,
	},
	RoleViewer: {PermReadCanvas},
	RoleGuest:  {},
}

// HasPermission reports whether a permission list contains perm, or
// the blanket admin permission.
func HasPermission(perms []string, perm string) bool {
	for _, p := range perms {
		if p == perm || p == PermAdmin {
			return true
		}
	}
	return false
}
