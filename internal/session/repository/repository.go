package repository

import (
	"context"
	"errors"
	"time"

	"referral-network-hub/backend/internal/session/domain"
)

// ErrUserNotFound is returned by CreateCapped when the owning user row does not exist.
var ErrUserNotFound = errors.New("session owner not found")

// Repository defines persistence for sessions.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// CreateCapped inserts s after expiring the user's least recently active sessions until fewer
	// than maxActive remain. The whole sequence is serialized per user. Returns the evicted sessions.
	CreateCapped(ctx context.Context, s *domain.Session, maxActive int, now time.Time) ([]*domain.Session, error)
	// Touch sets last_activity_at for an active session. No-op otherwise.
	Touch(ctx context.Context, id string, at time.Time) error
	// End moves an active session to the given terminal status and returns it. Returns nil, nil
	// when the session is missing or already terminal.
	End(ctx context.Context, id string, status domain.Status, at time.Time) (*domain.Session, error)
	ListActive(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error)
	CountActive(ctx context.Context, userID string, now time.Time) (int64, error)
	// ExpireStale marks active sessions past their expiry as expired and returns the affected owners.
	ExpireStale(ctx context.Context, now time.Time) ([]string, error)
}
