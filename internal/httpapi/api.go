// Package httpapi is the JSON transport over the auth gateway and the invite ledger.
package httpapi

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	identityservice "referral-network-hub/backend/internal/identity/service"
	inviteservice "referral-network-hub/backend/internal/invite/service"
	"referral-network-hub/backend/internal/platform/rbac"
	"referral-network-hub/backend/internal/server/interceptors"
	sessiondomain "referral-network-hub/backend/internal/session/domain"
)

// Gateway is the auth gateway surface the API calls. *identityservice.AuthService implements it.
type Gateway interface {
	interceptors.Authenticator
	Register(ctx context.Context, req identityservice.RegisterRequest) (*identityservice.AuthResult, error)
	RegisterViaInvite(ctx context.Context, req identityservice.InviteRegisterRequest) (*identityservice.AuthResult, error)
	Login(ctx context.Context, req identityservice.LoginRequest) (*identityservice.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string, client identityservice.ClientInfo) (*identityservice.TokenPair, error)
	Logout(ctx context.Context, userID, sessionID string) error
	ResolveTenantRole(ctx context.Context, id *identityservice.Identity, orgID string) (rbac.Role, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
	InvalidateAll(ctx context.Context, userID string) error
	ListSessions(ctx context.Context, userID string) ([]*sessiondomain.Session, error)
}

// Invites is the invite ledger surface the API calls. *inviteservice.Ledger implements it.
type Invites interface {
	CreateInvite(ctx context.Context, issuer rbac.Subject, req inviteservice.CreateRequest) (*inviteservice.Created, error)
	Validate(ctx context.Context, token string) (*inviteservice.Details, error)
	Revoke(ctx context.Context, token string, revoker rbac.Subject) error
}

// Readiness reports whether dependencies are usable. *health.Checker implements it.
type Readiness interface {
	Ready(ctx context.Context) error
}

// Deps groups the API's collaborators. Readiness may be nil; Registry defaults to a fresh registry.
type Deps struct {
	Gateway   Gateway
	Invites   Invites
	Readiness Readiness
	Registry  *prometheus.Registry
	Logger    zerolog.Logger
}

// API serves the HTTP routes.
type API struct {
	gateway   Gateway
	invites   Invites
	readiness Readiness
	registry  *prometheus.Registry
	metrics   *httpMetrics
	log       zerolog.Logger
}

// New returns an API. It registers its request metrics with d.Registry.
func New(d Deps) *API {
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	return &API{
		gateway:   d.Gateway,
		invites:   d.Invites,
		readiness: d.Readiness,
		registry:  d.Registry,
		metrics:   newHTTPMetrics(d.Registry),
		log:       d.Logger.With().Str("component", "httpapi").Logger(),
	}
}

// Routes constructs the chi router containing all endpoints, wrapped for tracing.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(a.metrics.middleware)
	r.Use(clientIP)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", a.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/register", a.handleRegister)
		r.Post("/auth/register/invite", a.handleRegisterInvite)
		r.Post("/auth/login", a.handleLogin)
		r.Post("/auth/refresh", a.handleRefresh)
		r.Get("/invites/{token}", a.handleGetInvite)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)
			r.Post("/auth/logout", a.handleLogout)
			r.Get("/auth/me", a.handleMe)
			r.Post("/auth/invalidate", a.handleInvalidate)
			r.Post("/auth/password", a.handleChangePassword)
			r.Get("/auth/sessions", a.handleSessions)
			r.Post("/invites", a.handleCreateInvite)
			r.Delete("/invites/{token}", a.handleRevokeInvite)
			r.Get("/orgs/{orgID}/role", a.handleRole)
		})
	})

	return otelhttp.NewHandler(r, "httpapi")
}

// NewServer returns an http.Server for the API on addr.
func (a *API) NewServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           a.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	if a.readiness != nil {
		if err := a.readiness.Ready(r.Context()); err != nil {
			a.log.Warn().Err(err).Msg("readiness check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// requireAuth authenticates the Authorization header through the gateway.
func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := interceptors.ParseBearer(r.Header.Get("Authorization"))
		if !ok {
			a.respondError(w, identityservice.ErrMissingToken)
			return
		}
		id, err := a.gateway.AuthenticateRequest(r.Context(), token)
		if err != nil {
			a.respondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(interceptors.WithIdentity(r.Context(), id)))
	})
}

// clientIP stores the caller's address (after RealIP) for audit entries.
func clientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(interceptors.WithClientIP(r.Context(), remoteHost(r))))
	})
}

func remoteHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func clientInfo(r *http.Request) identityservice.ClientInfo {
	return identityservice.ClientInfo{UserAgent: r.UserAgent(), IP: remoteHost(r)}
}
