package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"referral-network-hub/backend/internal/user/domain"
)

// MemoryRepository is an in-process Repository used by tests and local tooling.
type MemoryRepository struct {
	mu      sync.Mutex
	byID    map[string]*domain.User
	byEmail map[string]string
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*domain.User), byEmail: make(map[string]string)}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copyOf(id), nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copyOf(r.byEmail[strings.ToLower(email)]), nil
}

func (r *MemoryRepository) Create(ctx context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, ok := r.byEmail[email]; ok {
		return ErrEmailTaken
	}
	cp := *u
	cp.Email = email
	r.byID[u.ID] = &cp
	r.byEmail[email] = u.ID
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.byID[id]; ok {
		delete(r.byEmail, u.Email)
		delete(r.byID, id)
	}
	return nil
}

func (r *MemoryRepository) UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = at
	return nil
}

func (r *MemoryRepository) IncrementTokenVersion(ctx context.Context, id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return 0, ErrNotFound
	}
	u.TokenVersion++
	return u.TokenVersion, nil
}

func (r *MemoryRepository) GetTokenVersion(ctx context.Context, id string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return 0, ErrNotFound
	}
	return u.TokenVersion, nil
}

// Put stores u as is, replacing any existing row. Test setup helper.
func (r *MemoryRepository) Put(u *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	cp.Email = strings.ToLower(u.Email)
	r.byID[u.ID] = &cp
	r.byEmail[cp.Email] = u.ID
}

func (r *MemoryRepository) copyOf(id string) *domain.User {
	u, ok := r.byID[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}
