package repository

import (
	"context"
	"errors"
	"time"

	"referral-network-hub/backend/internal/invite/domain"
)

// ErrPendingExists is returned by Create when the email already has a pending invite.
var ErrPendingExists = errors.New("pending invite already exists for email")

// Repository defines persistence for invites.
type Repository interface {
	Create(ctx context.Context, inv *domain.Invite) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Invite, error)
	GetPendingByEmail(ctx context.Context, email string) (*domain.Invite, error)
	// Transition moves a pending invite to a terminal status, stamping actorID where the status
	// records one. Reports whether the row was still pending.
	Transition(ctx context.Context, id string, to domain.Status, actorID string, at time.Time) (bool, error)
	// ExpireStale moves pending invites past expiry to expired.
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}
