package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Category is the closed set of user categories.
type Category string

const (
	CategoryPlatformSuperAdmin Category = "platform_super_admin"
	CategoryPlatformAdmin      Category = "platform_admin"
	CategoryOrganizationAdmin  Category = "organization_admin"
	CategoryOrgRecruiter       Category = "org_recruiter"
	CategoryEmployeeReferrer   Category = "employee_referrer"
	CategoryJobSeeker          Category = "job_seeker"
	CategoryReferralProvider   Category = "referral_provider"
)

var categories = map[Category]bool{
	CategoryPlatformSuperAdmin: true,
	CategoryPlatformAdmin:      true,
	CategoryOrganizationAdmin:  true,
	CategoryOrgRecruiter:       true,
	CategoryEmployeeReferrer:   true,
	CategoryJobSeeker:          true,
	CategoryReferralProvider:   true,
}

// ParseCategory returns the category for s, or false if s is not one of the seven categories.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	return c, categories[c]
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool { return categories[c] }

// IsPlatform reports whether c bypasses organization membership checks.
func (c Category) IsPlatform() bool {
	return c == CategoryPlatformSuperAdmin || c == CategoryPlatformAdmin
}

// RequiresSession reports whether logins of this category are tracked in the session ledger.
// Super admins are exempt.
func (c Category) RequiresSession() bool {
	return c != CategoryPlatformSuperAdmin
}

// SelfRegistrable reports whether c may be chosen on public registration.
func (c Category) SelfRegistrable() bool {
	return c == CategoryJobSeeker || c == CategoryReferralProvider
}

// User is the identity record.
type User struct {
	ID             string
	Category       Category
	Email          string
	PasswordHash   string // empty for OAuth-only accounts
	OAuthProvider  string
	OAuthID        string
	FirstName      string
	LastName       string
	Phone          string
	IsActive       bool
	IsBlocked      bool
	BlockReason    string
	EmailVerified  bool
	TokenVersion   int64
	OrganizationID string // optional home organization
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Profile holds the optional profile fields supplied on registration.
type Profile struct {
	FirstName string
	LastName  string
	Phone     string
}

// HasPassword reports whether the user can log in with a password.
func (u *User) HasPassword() bool { return u.PasswordHash != "" }

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if !u.Category.Valid() {
		return errors.New("unknown user category")
	}
	if u.PasswordHash != "" && u.OAuthProvider != "" {
		return errors.New("user must have either a password or an oauth identity, not both")
	}
	if u.OAuthProvider != "" && u.OAuthID == "" {
		return errors.New("oauth id is required with an oauth provider")
	}
	return nil
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// NormalizeEmail trims and lower-cases an address. Emails are stored and compared in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email has a plausible address shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}
