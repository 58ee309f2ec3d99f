package domain

import (
	"time"

	membershipdomain "referral-network-hub/backend/internal/membership/domain"
	userdomain "referral-network-hub/backend/internal/user/domain"
)

// Category is the kind of account an invite grants.
type Category string

const (
	CategoryPlatformAdmin Category = "platform_admin"
	CategoryOrgAdmin      Category = "org_admin"
	CategoryOrgRecruiter  Category = "org_recruiter"
	CategoryEmployee      Category = "employee"
)

// userCategories maps invite categories to the user category created on acceptance.
var userCategories = map[Category]userdomain.Category{
	CategoryPlatformAdmin: userdomain.CategoryPlatformAdmin,
	CategoryOrgAdmin:      userdomain.CategoryOrganizationAdmin,
	CategoryOrgRecruiter:  userdomain.CategoryOrgRecruiter,
	CategoryEmployee:      userdomain.CategoryEmployeeReferrer,
}

// Valid reports whether c is one of the four invite categories.
func (c Category) Valid() bool {
	_, ok := userCategories[c]
	return ok
}

// UserCategory returns the user category an accepted invite of this category registers.
func (c Category) UserCategory() (userdomain.Category, bool) {
	uc, ok := userCategories[c]
	return uc, ok
}

// MembershipKind returns the membership relation an accepted invite grants in its organization.
// platform_admin grants none.
func (c Category) MembershipKind() (membershipdomain.Kind, bool) {
	switch c {
	case CategoryOrgAdmin:
		return membershipdomain.KindOrgAdmin, true
	case CategoryOrgRecruiter:
		return membershipdomain.KindRecruiter, true
	case CategoryEmployee:
		return membershipdomain.KindEmployee, true
	}
	return "", false
}

// RequiresOrganization reports whether the invite must be scoped to an organization. Recruiter
// and employee invites are; org_admin invites may be pre-bound to one or left unbound.
func (c Category) RequiresOrganization() bool {
	return c == CategoryOrgRecruiter || c == CategoryEmployee
}

// Status is the invite lifecycle state. Transitions only leave pending.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRevoked  Status = "revoked"
	StatusExpired  Status = "expired"
)

// Invite is the durable invite record. The raw token is never stored.
type Invite struct {
	ID             string
	Category       Category
	Email          string
	TokenHash      string
	Status         Status
	OrganizationID string
	IssuedBy       string
	Role           string
	Metadata       map[string]string // opaque, threaded through unchanged
	ExpiresAt      time.Time
	AcceptedAt     *time.Time
	AcceptedBy     string
	RevokedAt      *time.Time
	RevokedBy      string
	CreatedAt      time.Time
}

// PastExpiry reports whether the invite's expiry has passed at now.
func (i *Invite) PastExpiry(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
