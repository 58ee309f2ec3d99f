package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"referral-network-hub/backend/internal/session/domain"
)

// MemoryRepository is an in-process Repository used by tests. A single mutex stands in for the
// per-user row lock, so CreateCapped is serialized.
type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	// Owners, when non-nil, lists the users CreateCapped accepts.
	Owners map[string]bool
}

// NewMemoryRepository returns an empty MemoryRepository that accepts any owner.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[string]*domain.Session)}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) CreateCapped(ctx context.Context, s *domain.Session, maxActive int, now time.Time) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Owners != nil && !r.Owners[s.UserID] {
		return nil, ErrUserNotFound
	}
	active := r.activeLocked(s.UserID, now)
	var evicted []*domain.Session
	for i := 0; len(active)-i >= maxActive && i < len(active); i++ {
		victim := r.sessions[active[i].ID]
		victim.Status = domain.StatusExpired
		at := now
		victim.EndedAt = &at
		cp := *victim
		evicted = append(evicted, &cp)
	}
	cp := *s
	r.sessions[s.ID] = &cp
	return evicted, nil
}

func (r *MemoryRepository) Touch(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok && s.Status == domain.StatusActive {
		s.LastActivityAt = at
	}
	return nil
}

func (r *MemoryRepository) End(ctx context.Context, id string, status domain.Status, at time.Time) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.Status != domain.StatusActive {
		return nil, nil
	}
	s.Status = status
	s.EndedAt = &at
	cp := *s
	return &cp, nil
}

func (r *MemoryRepository) ListActive(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeLocked(userID, now), nil
}

func (r *MemoryRepository) CountActive(ctx context.Context, userID string, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.activeLocked(userID, now))), nil
}

func (r *MemoryRepository) ExpireStale(ctx context.Context, now time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var owners []string
	for _, s := range r.sessions {
		if s.Status == domain.StatusActive && !now.Before(s.ExpiresAt) {
			s.Status = domain.StatusExpired
			at := now
			s.EndedAt = &at
			if !seen[s.UserID] {
				seen[s.UserID] = true
				owners = append(owners, s.UserID)
			}
		}
	}
	return owners, nil
}

// activeLocked returns copies of the user's live sessions, least recently active first.
func (r *MemoryRepository) activeLocked(userID string, now time.Time) []*domain.Session {
	var out []*domain.Session
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsActive(now) {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastActivityAt.Equal(out[j].LastActivityAt) {
			return out[i].LoginAt.Before(out[j].LoginAt)
		}
		return out[i].LastActivityAt.Before(out[j].LastActivityAt)
	})
	return out
}
