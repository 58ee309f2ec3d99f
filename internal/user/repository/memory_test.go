package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"referral-network-hub/backend/internal/user/domain"
)

func TestMemoryRepository_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	u := &domain.User{ID: "u1", Email: "Alice@Example.com", Category: domain.CategoryJobSeeker, IsActive: true}
	if err := r.Create(ctx, u); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := r.GetByEmail(ctx, "alice@example.com")
	if err != nil || got == nil || got.ID != "u1" {
		t.Fatalf("GetByEmail: got %+v, %v", got, err)
	}
	if err := r.Create(ctx, &domain.User{ID: "u2", Email: "ALICE@example.com"}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate email: want ErrEmailTaken, got %v", err)
	}
	missing, err := r.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetByID(missing) = %+v, %v; want nil, nil", missing, err)
	}
}

func TestMemoryRepository_TokenVersion(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	r.Put(&domain.User{ID: "u1", Email: "a@b.io", TokenVersion: 2})

	v, err := r.IncrementTokenVersion(ctx, "u1")
	if err != nil || v != 3 {
		t.Fatalf("IncrementTokenVersion = %d, %v; want 3", v, err)
	}
	if v, _ := r.GetTokenVersion(ctx, "u1"); v != 3 {
		t.Errorf("GetTokenVersion = %d, want 3", v)
	}
	if _, err := r.IncrementTokenVersion(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing user: want ErrNotFound, got %v", err)
	}
}

func TestMemoryRepository_UpdatePasswordAndDelete(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRepository()
	r.Put(&domain.User{ID: "u1", Email: "a@b.io", PasswordHash: "old"})
	if err := r.UpdatePasswordHash(ctx, "u1", "new", time.Now()); err != nil {
		t.Fatalf("UpdatePasswordHash: %v", err)
	}
	u, _ := r.GetByID(ctx, "u1")
	if u.PasswordHash != "new" {
		t.Errorf("PasswordHash = %q, want new", u.PasswordHash)
	}
	if err := r.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if u, _ := r.GetByEmail(ctx, "a@b.io"); u != nil {
		t.Error("user still present after Delete")
	}
}
