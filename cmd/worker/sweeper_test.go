package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	invitedomain "referral-network-hub/backend/internal/invite/domain"
	inviterepo "referral-network-hub/backend/internal/invite/repository"
	inviteservice "referral-network-hub/backend/internal/invite/service"
	refreshdomain "referral-network-hub/backend/internal/refreshtoken/domain"
	refreshrepo "referral-network-hub/backend/internal/refreshtoken/repository"
)

type stubSessions struct {
	n   int
	err error
}

func (s stubSessions) SweepExpired(context.Context) (int, error) { return s.n, s.err }

type stubInvites struct {
	n   int64
	err error
}

func (s stubInvites) SweepExpired(context.Context) (int64, error) { return s.n, s.err }

type stubRefresh struct {
	cutoff time.Time
	n      int64
}

func (s *stubRefresh) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return s.n, nil
}

func TestSweeper_PassCountsEverySweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	refresh := &stubRefresh{n: 7}
	s := &sweeper{
		sessions: stubSessions{n: 2},
		invites:  stubInvites{n: 3},
		refresh:  refresh,
		log:      zerolog.Nop(),
		now:      func() time.Time { return now },
	}
	res := s.pass(context.Background())
	assert.Equal(t, sweepResult{sessionUsers: 2, invites: 3, refreshTokens: 7}, res)
	assert.Equal(t, now, refresh.cutoff)
}

func TestSweeper_FailingSweepDoesNotStopOthers(t *testing.T) {
	refresh := &stubRefresh{n: 1}
	s := &sweeper{
		sessions: stubSessions{err: errors.New("db down")},
		invites:  stubInvites{n: 4},
		refresh:  refresh,
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	res := s.pass(context.Background())
	assert.Equal(t, int64(4), res.invites)
	assert.Equal(t, int64(1), res.refreshTokens)
}

func TestSweeper_LoopStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &sweeper{
		sessions: stubSessions{},
		invites:  stubInvites{},
		refresh:  &stubRefresh{},
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	done := make(chan struct{})
	go func() {
		s.loop(ctx, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after cancel")
	}
}

func TestSweeper_WithMemoryRepositories(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	invites := inviterepo.NewMemoryRepository()
	require.NoError(t, invites.Create(ctx, &invitedomain.Invite{
		ID: "i1", Email: "a@example.com", Category: invitedomain.CategoryEmployee, OrganizationID: "o1",
		TokenHash: "h1", Status: invitedomain.StatusPending, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}))
	refresh := refreshrepo.NewMemoryRepository()
	require.NoError(t, refresh.Create(ctx, &refreshdomain.RefreshToken{
		ID: "r1", UserID: "u1", TokenHash: "t1", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}))

	s := &sweeper{
		sessions: stubSessions{},
		invites:  inviteservice.NewLedger(inviteservice.Deps{Repo: invites}, zerolog.Nop()),
		refresh:  refresh,
		log:      zerolog.Nop(),
		now:      func() time.Time { return now },
	}
	res := s.pass(ctx)
	assert.Equal(t, int64(1), res.invites)
	assert.Equal(t, int64(1), res.refreshTokens)

	inv, err := invites.GetByTokenHash(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, invitedomain.StatusExpired, inv.Status)
}
