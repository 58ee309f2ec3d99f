package rbac

import (
	"context"

	membershipdomain "referral-network-hub/backend/internal/membership/domain"
	membershiprepo "referral-network-hub/backend/internal/membership/repository"
	orgdomain "referral-network-hub/backend/internal/organization/domain"
	"referral-network-hub/backend/internal/platform/apperr"
	userdomain "referral-network-hub/backend/internal/user/domain"
)

var (
	ErrOrganizationNotFoundOrInactive = apperr.New(apperr.CodeOrganizationNotFoundOrInactive, "organization not found or inactive")
	ErrForbidden                      = apperr.New(apperr.CodeForbidden, "insufficient role for this organization")
)

// OrgGetter returns an organization by id, or nil if it does not exist.
type OrgGetter interface {
	GetOrganizationByID(ctx context.Context, id string) (*orgdomain.Org, error)
}

// Subject is the identity whose role is resolved.
type Subject struct {
	UserID   string
	Category userdomain.Category
}

// Resolver answers "what is this user's role in organization X". It only reads.
type Resolver struct {
	orgs        OrgGetter
	memberships membershiprepo.Reader
}

// NewResolver returns a Resolver over the organization and membership readers.
func NewResolver(orgs OrgGetter, memberships membershiprepo.Reader) *Resolver {
	return &Resolver{orgs: orgs, memberships: memberships}
}

// precedence is the membership lookup order after the platform check. First match wins.
var precedence = []struct {
	kind membershipdomain.Kind
	role Role
}{
	{membershipdomain.KindOrgAdmin, RoleOrgAdmin},
	{membershipdomain.KindRecruiter, RoleRecruiter},
	{membershipdomain.KindEmployee, RoleEmployee},
}

// Resolve returns the subject's effective role in orgID. The organization must exist and be
// active; that is checked before any role rule.
func (r *Resolver) Resolve(ctx context.Context, sub Subject, orgID string) (Role, error) {
	if orgID == "" {
		return RoleNone, ErrOrganizationNotFoundOrInactive
	}
	org, err := r.orgs.GetOrganizationByID(ctx, orgID)
	if err != nil {
		return RoleNone, apperr.Store(err)
	}
	if org == nil || !org.IsActive {
		return RoleNone, ErrOrganizationNotFoundOrInactive
	}
	if sub.Category.IsPlatform() {
		return RolePlatformAdmin, nil
	}
	for _, p := range precedence {
		ok, err := r.memberships.HasActiveMembership(ctx, p.kind, sub.UserID, orgID)
		if err != nil {
			return RoleNone, apperr.Store(err)
		}
		if ok {
			return p.role, nil
		}
	}
	return RoleNone, nil
}

// Require resolves the role and fails with ErrForbidden unless it satisfies min.
func (r *Resolver) Require(ctx context.Context, sub Subject, orgID string, min Role) (Role, error) {
	role, err := r.Resolve(ctx, sub, orgID)
	if err != nil {
		return RoleNone, err
	}
	if !role.Satisfies(min) {
		return role, ErrForbidden
	}
	return role, nil
}
