package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"referral-network-hub/backend/internal/refreshtoken/domain"
)

func TestMemoryRepository_RotateIsCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	now := time.Now()
	_ = r.Create(ctx, &domain.RefreshToken{ID: "t1", UserID: "u1", SessionID: "s1", TokenHash: "h1", ExpiresAt: now.Add(time.Hour)})

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := r.Rotate(ctx, "h1", "h2", now)
			if err != nil {
				t.Errorf("Rotate: %v", err)
			}
			if ok {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("rotation winners = %d, want 1", wins)
	}
	got, _ := r.GetByHash(ctx, "h1")
	if !got.Revoked || got.ReplacedByHash != "h2" || got.RevokedAt == nil {
		t.Errorf("rotated row = %+v", got)
	}
}

func TestMemoryRepository_RevokeScopes(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	exp := time.Now().Add(time.Hour)
	for _, row := range []*domain.RefreshToken{
		{ID: "a", UserID: "u1", SessionID: "s1", TokenHash: "ha", ExpiresAt: exp},
		{ID: "b", UserID: "u1", SessionID: "s1", TokenHash: "hb", ExpiresAt: exp},
		{ID: "c", UserID: "u1", SessionID: "s2", TokenHash: "hc", ExpiresAt: exp},
		{ID: "d", UserID: "u2", SessionID: "s3", TokenHash: "hd", ExpiresAt: exp},
	} {
		_ = r.Create(ctx, row)
	}
	if n, _ := r.RevokeBySession(ctx, "s1", time.Now()); n != 2 {
		t.Errorf("RevokeBySession = %d, want 2", n)
	}
	if c, _ := r.GetByHash(ctx, "hc"); c.Revoked {
		t.Error("token of another session was revoked")
	}
	if n, _ := r.RevokeByUser(ctx, "u1", time.Now()); n != 1 {
		t.Errorf("RevokeByUser = %d, want 1 (only s2 left)", n)
	}
	if d, _ := r.GetByHash(ctx, "hd"); d.Revoked {
		t.Error("token of another user was revoked")
	}
}

func TestMemoryRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	now := time.Now()
	_ = r.Create(ctx, &domain.RefreshToken{ID: "old", TokenHash: "h-old", ExpiresAt: now.Add(-time.Minute)})
	_ = r.Create(ctx, &domain.RefreshToken{ID: "new", TokenHash: "h-new", ExpiresAt: now.Add(time.Minute)})
	if n, _ := r.DeleteExpired(ctx, now); n != 1 {
		t.Errorf("DeleteExpired = %d, want 1", n)
	}
	if got, _ := r.GetByHash(ctx, "h-old"); got != nil {
		t.Error("expired row still present")
	}
}

func TestRefreshToken_Usable(t *testing.T) {
	now := time.Now()
	if !(&domain.RefreshToken{ExpiresAt: now.Add(time.Second)}).Usable(now) {
		t.Error("fresh token should be usable")
	}
	if (&domain.RefreshToken{ExpiresAt: now.Add(time.Second), Revoked: true}).Usable(now) {
		t.Error("revoked token should not be usable")
	}
	if (&domain.RefreshToken{ExpiresAt: now}).Usable(now) {
		t.Error("expired token should not be usable")
	}
}
