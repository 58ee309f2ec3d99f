package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// SessionSweeper expires active sessions past their expiry.
type SessionSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// InviteSweeper expires pending invites past their expiry.
type InviteSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// RefreshPruner deletes refresh token rows that expired before cutoff.
type RefreshPruner interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// sweepTimeout bounds one pass so a stuck database does not stack passes.
const sweepTimeout = time.Minute

type sweeper struct {
	sessions SessionSweeper
	invites  InviteSweeper
	refresh  RefreshPruner
	log      zerolog.Logger
	now      func() time.Time
}

// sweepResult counts what one pass changed.
type sweepResult struct {
	sessionUsers  int
	invites       int64
	refreshTokens int64
}

// loop runs a pass immediately and then every interval until ctx is done.
func (s *sweeper) loop(ctx context.Context, interval time.Duration) {
	s.pass(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pass(ctx)
		}
	}
}

// pass runs every sweep once. A failing sweep is logged and does not stop the others.
func (s *sweeper) pass(ctx context.Context) sweepResult {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	var res sweepResult
	var err error
	if res.sessionUsers, err = s.sessions.SweepExpired(ctx); err != nil {
		s.log.Error().Err(err).Msg("sweep sessions")
	}
	if res.invites, err = s.invites.SweepExpired(ctx); err != nil {
		s.log.Error().Err(err).Msg("sweep invites")
	}
	if res.refreshTokens, err = s.refresh.DeleteExpired(ctx, s.now()); err != nil {
		s.log.Error().Err(err).Msg("prune refresh tokens")
	}
	s.log.Info().
		Int("session_users", res.sessionUsers).
		Int64("invites", res.invites).
		Int64("refresh_tokens", res.refreshTokens).
		Msg("sweep complete")
	return res
}
