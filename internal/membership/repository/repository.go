package repository

import (
	"context"

	"referral-network-hub/backend/internal/membership/domain"
)

// Reader answers membership questions for the permission resolver. Implementations must not write.
type Reader interface {
	HasActiveMembership(ctx context.Context, kind domain.Kind, userID, orgID string) (bool, error)
}

// Repository adds the write used when an invite is accepted.
type Repository interface {
	Reader
	// Grant records an active membership. Granting an existing pair reactivates it.
	Grant(ctx context.Context, m *domain.Membership) error
}
