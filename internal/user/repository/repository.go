package repository

import (
	"context"
	"errors"
	"time"

	"referral-network-hub/backend/internal/user/domain"
)

// ErrNotFound is returned by methods that must address an existing user row.
var ErrNotFound = errors.New("user not found")

// ErrEmailTaken is returned by Create when the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// Delete removes a user that was created by a registration that could not complete.
	Delete(ctx context.Context, id string) error
	UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error
	// IncrementTokenVersion bumps token_version by one and returns the new value. O(1).
	IncrementTokenVersion(ctx context.Context, id string) (int64, error)
	GetTokenVersion(ctx context.Context, id string) (int64, error)
}
