package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"referral-network-hub/backend/internal/refreshtoken/domain"
)

// MemoryRepository is an in-process Repository used by tests.
type MemoryRepository struct {
	mu     sync.Mutex
	byHash map[string]*domain.RefreshToken
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byHash: make(map[string]*domain.RefreshToken)}
}

func (r *MemoryRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byHash[t.TokenHash]; ok {
		return errors.New("refresh token hash already exists")
	}
	cp := *t
	r.byHash[t.TokenHash] = &cp
	return nil
}

func (r *MemoryRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byHash[tokenHash]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *MemoryRepository) Rotate(ctx context.Context, oldHash, newHash string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byHash[oldHash]
	if !ok || t.Revoked {
		return false, nil
	}
	revoke(t, at)
	t.ReplacedByHash = newHash
	return true, nil
}

func (r *MemoryRepository) Revoke(ctx context.Context, tokenHash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byHash[tokenHash]; ok && !t.Revoked {
		revoke(t, at)
	}
	return nil
}

func (r *MemoryRepository) RevokeBySession(ctx context.Context, sessionID string, at time.Time) (int64, error) {
	return r.revokeWhere(func(t *domain.RefreshToken) bool { return t.SessionID == sessionID }, at), nil
}

func (r *MemoryRepository) RevokeByUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	return r.revokeWhere(func(t *domain.RefreshToken) bool { return t.UserID == userID }, at), nil
}

func (r *MemoryRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for h, t := range r.byHash {
		if t.ExpiresAt.Before(cutoff) {
			delete(r.byHash, h)
			n++
		}
	}
	return n, nil
}

// All returns copies of every row. Test helper.
func (r *MemoryRepository) All() []*domain.RefreshToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.RefreshToken, 0, len(r.byHash))
	for _, t := range r.byHash {
		cp := *t
		out = append(out, &cp)
	}
	return out
}

func (r *MemoryRepository) revokeWhere(match func(*domain.RefreshToken) bool, at time.Time) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.byHash {
		if !t.Revoked && match(t) {
			revoke(t, at)
			n++
		}
	}
	return n
}

func revoke(t *domain.RefreshToken, at time.Time) {
	t.Revoked = true
	ts := at
	t.RevokedAt = &ts
}
