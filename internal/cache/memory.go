package cache

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	v       int64
	expires time.Time
}

// MemoryStore implements Store in process. Used by tests and single-instance deployments
// without Redis.
type MemoryStore struct {
	mu  sync.Mutex
	m   map[string]memEntry
	ttl time.Duration
	now func() time.Time
}

// NewMemoryStore returns an empty MemoryStore whose entries live for ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{m: make(map[string]memEntry), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) live(key string) (memEntry, bool) {
	e, ok := s.m[key]
	if !ok {
		return memEntry{}, false
	}
	if !s.now().Before(e.expires) {
		delete(s.m, key)
		return memEntry{}, false
	}
	return e, true
}

func (s *MemoryStore) Get(ctx context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	return e.v, ok, nil
}

func (s *MemoryStore) Raise(ctx context.Context, key string, v int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.live(key); ok && e.v >= v {
		return nil
	}
	s.m[key] = memEntry{v: v, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Populate(ctx context.Context, key string, v int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(key); ok {
		return nil
	}
	s.m[key] = memEntry{v: v, expires: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }
