package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_PopulateDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	key := TokenVersionKey("u1")

	if _, ok, _ := s.Get(ctx, key); ok {
		t.Fatal("expected miss on empty store")
	}
	_ = s.Raise(ctx, key, 2)
	_ = s.Populate(ctx, key, 1) // slow reader with a stale value
	if v, ok, _ := s.Get(ctx, key); !ok || v != 2 {
		t.Errorf("Get = %d, %v; want 2, true", v, ok)
	}
}

func TestMemoryStore_RaiseIsMonotonic(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	key := TokenVersionKey("u1")
	_ = s.Raise(ctx, key, 5)
	_ = s.Raise(ctx, key, 4)
	if v, _, _ := s.Get(ctx, key); v != 5 {
		t.Errorf("after out-of-order raise got %d, want 5", v)
	}
	_ = s.Raise(ctx, key, 6)
	if v, _, _ := s.Get(ctx, key); v != 6 {
		t.Errorf("got %d, want 6", v)
	}
}

func TestMemoryStore_DeleteAndExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Minute)
	now := time.Now()
	s.now = func() time.Time { return now }
	key := SessionCountKey("u1")

	_ = s.Populate(ctx, key, 3)
	_ = s.Delete(ctx, key)
	if _, ok, _ := s.Get(ctx, key); ok {
		t.Error("expected miss after Delete")
	}

	_ = s.Populate(ctx, key, 3)
	now = now.Add(2 * time.Minute)
	if _, ok, _ := s.Get(ctx, key); ok {
		t.Error("expected miss after ttl")
	}
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	if _, err := NewRedisStore("not a url", time.Minute); err == nil {
		t.Error("expected error for invalid redis url")
	}
}
