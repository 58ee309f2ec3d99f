package repository

import (
	"context"
	"time"

	"referral-network-hub/backend/internal/refreshtoken/domain"
)

// Repository defines persistence for refresh tokens.
type Repository interface {
	Create(ctx context.Context, t *domain.RefreshToken) error
	// GetByHash returns the row for tokenHash, or nil if not found.
	GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	// Rotate revokes the row for oldHash and links it to newHash, only if it is not revoked yet.
	// Reports whether this call won the swap.
	Rotate(ctx context.Context, oldHash, newHash string, at time.Time) (bool, error)
	// Revoke revokes a single row. No-op if already revoked.
	Revoke(ctx context.Context, tokenHash string, at time.Time) error
	RevokeBySession(ctx context.Context, sessionID string, at time.Time) (int64, error)
	RevokeByUser(ctx context.Context, userID string, at time.Time) (int64, error)
	// DeleteExpired removes rows that expired before cutoff.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
