package repository

import (
	"context"
	"sync"

	"referral-network-hub/backend/internal/organization/domain"
)

// MemoryRepository is an in-process Repository used by tests.
type MemoryRepository struct {
	mu   sync.Mutex
	orgs map[string]*domain.Org
}

// NewMemoryRepository returns a MemoryRepository seeded with orgs.
func NewMemoryRepository(orgs ...*domain.Org) *MemoryRepository {
	r := &MemoryRepository{orgs: make(map[string]*domain.Org)}
	for _, o := range orgs {
		cp := *o
		r.orgs[o.ID] = &cp
	}
	return r
}

func (r *MemoryRepository) GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orgs[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (r *MemoryRepository) CreateOrganization(ctx context.Context, o *domain.Org) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orgs[o.ID]; !ok {
		cp := *o
		r.orgs[o.ID] = &cp
	}
	return nil
}
