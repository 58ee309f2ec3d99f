// Package health reports readiness of the stores and the policy engine the service depends on.
// The same checks back the HTTP /readyz endpoint and the gRPC health service.
package health

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// CheckFunc returns nil when the dependency is usable.
type CheckFunc func(ctx context.Context) error

// Pinger is implemented by *sql.DB and the cache stores.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker is implemented by the OPA invite policy.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// DefaultCheckTimeout bounds a single round of checks.
const DefaultCheckTimeout = 2 * time.Second

// Checker runs named dependency checks.
type Checker struct {
	checks  map[string]CheckFunc
	timeout time.Duration
	log     zerolog.Logger
}

// NewChecker returns a Checker without checks; a Checker with no checks is always ready.
func NewChecker(logger zerolog.Logger) *Checker {
	return &Checker{
		checks:  make(map[string]CheckFunc),
		timeout: DefaultCheckTimeout,
		log:     logger.With().Str("component", "health").Logger(),
	}
}

// Add registers a check under name. Nil checks are ignored.
func (c *Checker) Add(name string, fn CheckFunc) *Checker {
	if fn != nil {
		c.checks[name] = fn
	}
	return c
}

// AddPinger registers p.PingContext under name.
func (c *Checker) AddPinger(name string, p Pinger) *Checker {
	if p == nil {
		return c
	}
	return c.Add(name, p.PingContext)
}

// AddPolicy registers the policy engine's self check.
func (c *Checker) AddPolicy(name string, p PolicyChecker) *Checker {
	if p == nil {
		return c
	}
	return c.Add(name, p.HealthCheck)
}

// Check runs every check and returns the failures by name.
func (c *Checker) Check(ctx context.Context) map[string]error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	failed := make(map[string]error)
	for name, fn := range c.checks {
		if err := fn(ctx); err != nil {
			failed[name] = err
		}
	}
	return failed
}

// Ready returns nil when every check passes, or an error naming the failing dependencies.
func (c *Checker) Ready(ctx context.Context) error {
	failed := c.Check(ctx)
	if len(failed) == 0 {
		return nil
	}
	names := make([]string, 0, len(failed))
	for name := range failed {
		names = append(names, name)
	}
	sort.Strings(names)
	errs := make([]error, 0, len(names))
	for _, name := range names {
		errs = append(errs, fmt.Errorf("%s: %w", name, failed[name]))
	}
	return errors.Join(errs...)
}

// Watch updates srv's overall serving status from Ready every interval until ctx is done.
func (c *Checker) Watch(ctx context.Context, srv *health.Server, interval time.Duration) {
	c.update(ctx, srv)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			srv.Shutdown()
			return
		case <-ticker.C:
			c.update(ctx, srv)
		}
	}
}

func (c *Checker) update(ctx context.Context, srv *health.Server) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := c.Ready(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		c.log.Warn().Err(err).Msg("not ready")
	}
	srv.SetServingStatus("", status)
}
