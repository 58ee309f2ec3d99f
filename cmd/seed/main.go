// seed creates the first platform super admin and a demo organization. Idempotent: existing rows
// are left alone, so it is safe to run on every deploy.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"referral-network-hub/backend/internal/config"
	"referral-network-hub/backend/internal/db"
	"referral-network-hub/backend/internal/logging"
	membershiprepo "referral-network-hub/backend/internal/membership/repository"
	orgrepo "referral-network-hub/backend/internal/organization/repository"
	"referral-network-hub/backend/internal/security"
	userrepo "referral-network-hub/backend/internal/user/repository"
)

func main() {
	opts := options{}
	flag.StringVar(&opts.AdminEmail, "admin-email", envOr("SEED_ADMIN_EMAIL", "admin@referral-hub.local"), "super admin email")
	flag.StringVar(&opts.AdminPassword, "admin-password", os.Getenv("SEED_ADMIN_PASSWORD"), "super admin password (or SEED_ADMIN_PASSWORD)")
	flag.StringVar(&opts.OrgID, "org-id", "demo-org", "demo organization id; empty skips the organization")
	flag.StringVar(&opts.OrgName, "org-name", "Demo Organization", "demo organization name")
	flag.StringVar(&opts.OrgAdminEmail, "org-admin-email", "", "optional organization admin for the demo organization; shares the admin password")
	flag.Parse()

	cfg, err := config.LoadStorage()
	if err != nil {
		logger := logging.New("", "info")
		logger.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.Env, cfg.LogLevel).With().Str("component", "seed").Logger()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s := &seeder{
		users:       userrepo.NewPostgresRepository(conn),
		orgs:        orgrepo.NewPostgresRepository(conn),
		memberships: membershiprepo.NewPostgresRepository(conn),
		hasher:      security.NewHasher(cfg.BcryptCost),
		log:         logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
	if err := s.run(ctx, opts); err != nil {
		logger.Fatal().Err(err).Msg("seed")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
