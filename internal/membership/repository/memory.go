package repository

import (
	"context"
	"sync"

	"referral-network-hub/backend/internal/membership/domain"
)

// MemoryRepository is an in-process Repository used by tests.
type MemoryRepository struct {
	mu    sync.Mutex
	facts map[string]bool // kind/user/org -> active
}

// NewMemoryRepository returns an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{facts: make(map[string]bool)}
}

func memKey(kind domain.Kind, userID, orgID string) string {
	return string(kind) + "/" + userID + "/" + orgID
}

func (r *MemoryRepository) HasActiveMembership(ctx context.Context, kind domain.Kind, userID, orgID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.facts[memKey(kind, userID, orgID)], nil
}

func (r *MemoryRepository) Grant(ctx context.Context, m *domain.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.facts[memKey(m.Kind, m.UserID, m.OrgID)] = true
	return nil
}

// Set records a fact with an explicit active flag. Test setup helper.
func (r *MemoryRepository) Set(kind domain.Kind, userID, orgID string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.facts[memKey(kind, userID, orgID)] = active
}
