package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"referral-network-hub/backend/internal/audit"
	auditrepo "referral-network-hub/backend/internal/audit/repository"
	"referral-network-hub/backend/internal/cache"
	"referral-network-hub/backend/internal/config"
	"referral-network-hub/backend/internal/db"
	healthcheck "referral-network-hub/backend/internal/health"
	"referral-network-hub/backend/internal/httpapi"
	identityservice "referral-network-hub/backend/internal/identity/service"
	"referral-network-hub/backend/internal/invite/notifier"
	inviterepo "referral-network-hub/backend/internal/invite/repository"
	inviteservice "referral-network-hub/backend/internal/invite/service"
	"referral-network-hub/backend/internal/logging"
	membershiprepo "referral-network-hub/backend/internal/membership/repository"
	orgrepo "referral-network-hub/backend/internal/organization/repository"
	"referral-network-hub/backend/internal/platform/rbac"
	"referral-network-hub/backend/internal/policy/engine"
	refreshrepo "referral-network-hub/backend/internal/refreshtoken/repository"
	"referral-network-hub/backend/internal/security"
	"referral-network-hub/backend/internal/server"
	"referral-network-hub/backend/internal/server/interceptors"
	sessionrepo "referral-network-hub/backend/internal/session/repository"
	sessionservice "referral-network-hub/backend/internal/session/service"
	telemetryotel "referral-network-hub/backend/internal/telemetry/otel"
	userrepo "referral-network-hub/backend/internal/user/repository"
)

const (
	serviceName     = "referral-hub-auth"
	shutdownTimeout = 10 * time.Second
	readinessPeriod = 15 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("", "info")
		boot.Fatal().Err(err).Msg("load config")
	}
	if err := run(ctx, cfg); err != nil {
		boot := logging.New(cfg.Env, cfg.LogLevel)
		boot.Fatal().Err(err).Msg("server exited")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure)
	if err != nil {
		return err
	}
	providers.SetGlobal()
	logger := logging.New(cfg.Env, cfg.LogLevel, telemetryotel.NewLogHook(providers.LoggerProvider, zerolog.WarnLevel))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	metrics, err := telemetryotel.NewAuthMetrics(providers.MeterProvider)
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error().Err(err).Msg("close database")
		}
	}()

	store, closeStore, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	policy, err := engine.LoadInvitePolicy(ctx, cfg.InvitePolicyFile)
	if err != nil {
		return err
	}

	inviteEvents := newInviteNotifier(cfg, logger)
	defer func() {
		if err := inviteEvents.Close(); err != nil {
			logger.Warn().Err(err).Msg("close invite notifier")
		}
	}()

	gateway, invites := wire(cfg, database, store, policy, inviteEvents, metrics, logger)

	checker := healthcheck.NewChecker(logger).
		AddPinger("postgres", database).
		Add("cache", store.Ping).
		AddPolicy("invite_policy", policy)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewDBStatsCollector(database, "referral_hub"))

	api := httpapi.New(httpapi.Deps{
		Gateway:   gateway,
		Invites:   invites,
		Readiness: checker,
		Registry:  registry,
		Logger:    logger,
	})
	httpSrv := api.NewServer(cfg.HTTPAddr)

	healthSrv := health.NewServer()
	grpcSrv := server.NewServer(server.Deps{Auth: gateway, Health: healthSrv, Logger: logger})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http api listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		logger.Info().Str("addr", cfg.GRPCAddr).Msg("grpc server listening")
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		checker.Watch(gctx, healthSrv, readinessPeriod)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		healthSrv.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown http api")
		}
		grpcSrv.GracefulStop()
		return nil
	})
	return g.Wait()
}

// wire builds the repositories, ledgers and the gateway over one database handle.
func wire(
	cfg *config.Config,
	database *sql.DB,
	store cache.Store,
	policy engine.InviteDecider,
	inviteEvents notifier.Notifier,
	metrics *telemetryotel.AuthMetrics,
	logger zerolog.Logger,
) (*identityservice.AuthService, *inviteservice.Ledger) {
	users := userrepo.NewPostgresRepository(database)
	orgs := orgrepo.NewPostgresRepository(database)
	memberships := membershiprepo.NewPostgresRepository(database)
	refresh := refreshrepo.NewPostgresRepository(database)
	sessions := sessionrepo.NewPostgresRepository(database)
	invitesRepo := inviterepo.NewPostgresRepository(database)

	auditLog := audit.NewLogger(auditrepo.NewPostgresRepository(database), interceptors.ClientIPFromContext, logger)
	codec := security.NewTokenCodec(cfg.AccessSecret(), cfg.RefreshSecret(), cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	roles := rbac.NewResolver(orgs, memberships)

	ledger := sessionservice.NewLedger(sessions, store, cfg.MaxActiveSessions, metrics, logger)
	issuer := identityservice.NewTokenIssuer(identityservice.IssuerDeps{
		Codec:      codec,
		Sessions:   ledger,
		Refresh:    refresh,
		Users:      users,
		Cache:      store,
		Audit:      auditLog,
		Metrics:    metrics,
		SessionTTL: cfg.SessionTTL,
	}, logger)

	invites := inviteservice.NewLedger(inviteservice.Deps{
		Repo:     invitesRepo,
		Users:    users,
		Roles:    roles,
		Policy:   policy,
		Notifier: inviteEvents,
		Audit:    auditLog,
		Metrics:  metrics,
		TTLs: inviteservice.TTLs{
			PlatformAdmin: cfg.InviteTTLPlatformAdmin,
			OrgAdmin:      cfg.InviteTTLOrgAdmin,
			Recruiter:     cfg.InviteTTLRecruiter,
			Employee:      cfg.InviteTTLEmployee,
		},
	}, logger)

	gateway := identityservice.NewAuthService(identityservice.Deps{
		Users:       users,
		Memberships: memberships,
		Issuer:      issuer,
		Codec:       codec,
		Sessions:    ledger,
		Invites:     invites,
		Roles:       roles,
		Hasher:      security.NewHasher(cfg.BcryptCost),
		Audit:       auditLog,
		Metrics:     metrics,
	}, identityservice.Options{
		RequireEmailVerified: cfg.RequireEmailVerified,
		RequestTimeout:       cfg.RequestTimeout,
	}, logger)
	return gateway, invites
}

// openCache returns Redis when REDIS_URL is set and an in-process store otherwise.
func openCache(cfg *config.Config) (cache.Store, func(), error) {
	if cfg.RedisURL == "" {
		return cache.NewMemoryStore(cache.DefaultTTL), func() {}, nil
	}
	rs, err := cache.NewRedisStore(cfg.RedisURL, cache.DefaultTTL)
	if err != nil {
		return nil, nil, err
	}
	return rs, func() { _ = rs.Close() }, nil
}

// newInviteNotifier publishes invite events to Kafka in the background when brokers are configured.
func newInviteNotifier(cfg *config.Config, logger zerolog.Logger) notifier.Notifier {
	kn := notifier.NewKafkaNotifier(cfg.KafkaBrokersList(), cfg.InviteKafkaTopic)
	if kn == nil {
		logger.Info().Msg("KAFKA_BROKERS not set; invite events disabled")
		return notifier.Nop{}
	}
	return notifier.NewAsync(kn, logger)
}
