package rbac

// RequireOrgAdmin accepts PlatformAdmin and OrgAdmin.
func RequireOrgAdmin(role Role) error { return gate(role, RoleOrgAdmin) }

// RequireRecruiterOrAbove accepts PlatformAdmin, OrgAdmin and Recruiter.
func RequireRecruiterOrAbove(role Role) error { return gate(role, RoleRecruiter) }

// RequireMember accepts any role but None.
func RequireMember(role Role) error { return gate(role, RoleEmployee) }

func gate(role, min Role) error {
	if !role.Satisfies(min) {
		return ErrForbidden
	}
	return nil
}
