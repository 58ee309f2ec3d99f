// Worker expires stale sessions and invites and prunes expired refresh tokens every SWEEP_INTERVAL.
// It needs DATABASE_URL and, when the server uses Redis, the same REDIS_URL so cached session
// counts are dropped for affected users.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"referral-network-hub/backend/internal/cache"
	"referral-network-hub/backend/internal/config"
	"referral-network-hub/backend/internal/db"
	inviterepo "referral-network-hub/backend/internal/invite/repository"
	inviteservice "referral-network-hub/backend/internal/invite/service"
	"referral-network-hub/backend/internal/logging"
	refreshrepo "referral-network-hub/backend/internal/refreshtoken/repository"
	sessionrepo "referral-network-hub/backend/internal/session/repository"
	sessionservice "referral-network-hub/backend/internal/session/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadStorage()
	if err != nil {
		logger := logging.New("", "info")
		logger.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.Env, cfg.LogLevel).With().Str("component", "sweeper").Logger()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer conn.Close()

	var store cache.Store = cache.NewMemoryStore(cache.DefaultTTL)
	if cfg.RedisURL != "" {
		rs, err := cache.NewRedisStore(cfg.RedisURL, cache.DefaultTTL)
		if err != nil {
			logger.Fatal().Err(err).Msg("open redis")
		}
		defer rs.Close()
		store = rs
	}

	s := &sweeper{
		sessions: sessionservice.NewLedger(sessionrepo.NewPostgresRepository(conn), store, cfg.MaxActiveSessions, nil, logger),
		invites:  inviteservice.NewLedger(inviteservice.Deps{Repo: inviterepo.NewPostgresRepository(conn)}, logger),
		refresh:  refreshrepo.NewPostgresRepository(conn),
		log:      logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	logger.Info().Dur("interval", cfg.SweepInterval).Msg("sweeper started")
	s.loop(ctx, cfg.SweepInterval)
	logger.Info().Msg("sweeper stopped")
}
