// Package server builds the gRPC server: the standard health service behind the interceptor chain.
package server

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"referral-network-hub/backend/internal/server/interceptors"
)

// Health check methods are public and not logged.
var healthMethods = map[string]bool{
	"/grpc.health.v1.Health/Check": true,
	"/grpc.health.v1.Health/List":  true,
	"/grpc.health.v1.Health/Watch": true,
}

// Deps holds the gRPC server's collaborators.
type Deps struct {
	// Auth authenticates bearer tokens on protected methods.
	Auth interceptors.Authenticator
	// Health is the health service whose status the readiness watcher updates.
	Health *health.Server
	Logger zerolog.Logger
	// PublicMethods are full method names callable without a token, in addition to the health methods.
	PublicMethods map[string]bool
}

// NewServer returns a gRPC server with tracing, client IP capture, request logging and bearer
// authentication, and registers the services.
func NewServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	public := make(map[string]bool, len(healthMethods)+len(deps.PublicMethods))
	for m := range healthMethods {
		public[m] = true
	}
	for m, ok := range deps.PublicMethods {
		public[m] = ok
	}
	opts = append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.ClientIPUnary(),
			interceptors.LoggingUnary(deps.Logger, healthMethods),
			interceptors.AuthUnary(deps.Auth, public),
		),
	}, opts...)
	s := grpc.NewServer(opts...)
	RegisterServices(s, deps)
	return s
}

// RegisterServices registers the gRPC services with the given registrar.
//
//   - grpc.health.v1.Health → google.golang.org/grpc/health, status driven by internal/health
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	h := deps.Health
	if h == nil {
		h = health.NewServer()
	}
	healthpb.RegisterHealthServer(s, h)
}
