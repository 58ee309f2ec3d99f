// migrate applies or rolls back the embedded SQL schema: go run ./cmd/migrate -direction up.
package main

import (
	"flag"

	"referral-network-hub/backend/internal/config"
	"referral-network-hub/backend/internal/db/migrate"
	"referral-network-hub/backend/internal/logging"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.LoadStorage()
	if err != nil {
		logger := logging.New("", "info")
		logger.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(cfg.Env, cfg.LogLevel).With().Str("component", "migrate").Logger()

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		logger.Fatal().Err(err).Str("direction", *direction).Msg("migrate")
	}
	version, dirty, err := migrate.Version(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("read schema version")
	}
	logger.Info().Str("direction", *direction).Uint("version", version).Bool("dirty", dirty).Msg("schema migrated")
}
