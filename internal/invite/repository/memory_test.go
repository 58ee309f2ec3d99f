package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"referral-network-hub/backend/internal/invite/domain"
)

func pending(id, email, hash string, exp time.Time) *domain.Invite {
	return &domain.Invite{ID: id, Category: domain.CategoryEmployee, Email: email, TokenHash: hash, Status: domain.StatusPending, ExpiresAt: exp}
}

func TestMemoryRepository_OnePendingPerEmail(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	exp := time.Now().Add(time.Hour)
	if err := r.Create(ctx, pending("i1", "A@example.com", "h1", exp)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.Create(ctx, pending("i2", "a@example.com", "h2", exp)); !errors.Is(err, ErrPendingExists) {
		t.Fatalf("second pending: want ErrPendingExists, got %v", err)
	}
	ok, err := r.Transition(ctx, "i1", domain.StatusRevoked, "admin", time.Now())
	if err != nil || !ok {
		t.Fatalf("Transition: %v, %v", ok, err)
	}
	if err := r.Create(ctx, pending("i2", "a@example.com", "h2", exp)); err != nil {
		t.Fatalf("pending after revoke: %v", err)
	}
}

func TestMemoryRepository_TransitionOnlyLeavesPending(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	_ = r.Create(ctx, pending("i1", "a@example.com", "h1", time.Now().Add(time.Hour)))

	ok, _ := r.Transition(ctx, "i1", domain.StatusAccepted, "u1", time.Now())
	if !ok {
		t.Fatal("first transition should win")
	}
	for _, to := range []domain.Status{domain.StatusAccepted, domain.StatusRevoked, domain.StatusExpired} {
		if ok, _ := r.Transition(ctx, "i1", to, "x", time.Now()); ok {
			t.Errorf("transition accepted -> %s should not apply", to)
		}
	}
	got := r.Get("i1")
	if got.Status != domain.StatusAccepted || got.AcceptedBy != "u1" || got.AcceptedAt == nil {
		t.Errorf("invite = %+v", got)
	}
}

func TestMemoryRepository_ExpireStale(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	now := time.Now()
	_ = r.Create(ctx, pending("old", "a@example.com", "h1", now.Add(-time.Minute)))
	_ = r.Create(ctx, pending("new", "b@example.com", "h2", now.Add(time.Hour)))

	n, err := r.ExpireStale(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("ExpireStale = %d, %v; want 1", n, err)
	}
	if r.Get("old").Status != domain.StatusExpired || r.Get("new").Status != domain.StatusPending {
		t.Error("only the stale invite should expire")
	}
	if inv, _ := r.GetPendingByEmail(ctx, "a@example.com"); inv != nil {
		t.Error("expired invite still reported as pending")
	}
}
