package domain

import "time"

// Kind names one of the three tenant membership relations.
type Kind string

const (
	KindOrgAdmin  Kind = "organization_admins"
	KindRecruiter Kind = "recruiters"
	KindEmployee  Kind = "employees"
)

// Valid reports whether k is one of the three relations.
func (k Kind) Valid() bool {
	return k == KindOrgAdmin || k == KindRecruiter || k == KindEmployee
}

// Membership is one (user, organization, active) fact in a membership relation.
type Membership struct {
	ID        string
	Kind      Kind
	UserID    string
	OrgID     string
	IsActive  bool
	CreatedAt time.Time
}
