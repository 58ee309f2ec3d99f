package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"referral-network-hub/backend/internal/invite/domain"
)

// MemoryRepository is an in-process Repository used by tests and local tooling. It enforces the
// same one-pending-per-email rule as the database index.
type MemoryRepository struct {
	mu     sync.Mutex
	byID   map[string]*domain.Invite
	byHash map[string]string
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[string]*domain.Invite), byHash: make(map[string]string)}
}

func (r *MemoryRepository) Create(ctx context.Context, inv *domain.Invite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	email := strings.ToLower(inv.Email)
	if inv.Status == domain.StatusPending && r.pendingLocked(email) != nil {
		return ErrPendingExists
	}
	if _, ok := r.byHash[inv.TokenHash]; ok {
		return fmt.Errorf("invite token hash collision")
	}
	cp := copyInvite(inv)
	cp.Email = email
	r.byID[cp.ID] = cp
	r.byHash[cp.TokenHash] = cp.ID
	return nil
}

func (r *MemoryRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byHash[tokenHash]
	if !ok {
		return nil, nil
	}
	return copyInvite(r.byID[id]), nil
}

func (r *MemoryRepository) GetPendingByEmail(ctx context.Context, email string) (*domain.Invite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inv := r.pendingLocked(strings.ToLower(email)); inv != nil {
		return copyInvite(inv), nil
	}
	return nil, nil
}

func (r *MemoryRepository) Transition(ctx context.Context, id string, to domain.Status, actorID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.byID[id]
	if !ok || inv.Status != domain.StatusPending {
		return false, nil
	}
	switch to {
	case domain.StatusAccepted:
		inv.AcceptedAt, inv.AcceptedBy = &at, actorID
	case domain.StatusRevoked:
		inv.RevokedAt, inv.RevokedBy = &at, actorID
	case domain.StatusExpired:
	default:
		return false, fmt.Errorf("invite: invalid transition to %q", to)
	}
	inv.Status = to
	return true, nil
}

func (r *MemoryRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, inv := range r.byID {
		if inv.Status == domain.StatusPending && inv.PastExpiry(now) {
			inv.Status = domain.StatusExpired
			n++
		}
	}
	return n, nil
}

// Get returns a copy of the invite with id, for test assertions.
func (r *MemoryRepository) Get(id string) *domain.Invite {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyInvite(r.byID[id])
}

func (r *MemoryRepository) pendingLocked(email string) *domain.Invite {
	for _, inv := range r.byID {
		if inv.Status == domain.StatusPending && inv.Email == email {
			return inv
		}
	}
	return nil
}

func copyInvite(inv *domain.Invite) *domain.Invite {
	if inv == nil {
		return nil
	}
	cp := *inv
	if inv.Metadata != nil {
		cp.Metadata = make(map[string]string, len(inv.Metadata))
		for k, v := range inv.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
