// Package rbac resolves a user's effective role in an organization and gates tenant-scoped
// operations on that role.
package rbac

// Role is the closed, ordered set of effective tenant roles. A higher value satisfies every
// lower requirement.
type Role int

const (
	RoleNone Role = iota
	RoleEmployee
	RoleRecruiter
	RoleOrgAdmin
	RolePlatformAdmin
)

var roleNames = [...]string{"none", "employee", "recruiter", "org_admin", "platform_admin"}

func (r Role) String() string {
	if r < RoleNone || r > RolePlatformAdmin {
		return "unknown"
	}
	return roleNames[r]
}

// Satisfies reports whether r meets the minimum role min.
func (r Role) Satisfies(min Role) bool {
	return r >= min
}
