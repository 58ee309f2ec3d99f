package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "referral-hub/auth"

// AuthMetrics records auth engine counters. A nil *AuthMetrics records nothing.
type AuthMetrics struct {
	logins    metric.Int64Counter
	rotations metric.Int64Counter
	reuse     metric.Int64Counter
	evicted   metric.Int64Counter
	invites   metric.Int64Counter
}

// NewAuthMetrics registers the auth counters on mp.
func NewAuthMetrics(mp metric.MeterProvider) (*AuthMetrics, error) {
	m := mp.Meter(meterName)
	logins, err := m.Int64Counter("auth.logins", metric.WithDescription("Login attempts by outcome"))
	if err != nil {
		return nil, err
	}
	rotations, err := m.Int64Counter("auth.refresh.rotations", metric.WithDescription("Successful refresh token rotations"))
	if err != nil {
		return nil, err
	}
	reuse, err := m.Int64Counter("auth.refresh.reuse_detected", metric.WithDescription("Revoked refresh tokens presented again"))
	if err != nil {
		return nil, err
	}
	evicted, err := m.Int64Counter("auth.sessions.evicted", metric.WithDescription("Sessions expired to honor the per-user cap"))
	if err != nil {
		return nil, err
	}
	invites, err := m.Int64Counter("auth.invites.created", metric.WithDescription("Invites issued by category"))
	if err != nil {
		return nil, err
	}
	return &AuthMetrics{logins: logins, rotations: rotations, reuse: reuse, evicted: evicted, invites: invites}, nil
}

// Login counts one login attempt. outcome is "success" or a stable error code.
func (m *AuthMetrics) Login(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *AuthMetrics) RefreshRotated(ctx context.Context) {
	if m == nil {
		return
	}
	m.rotations.Add(ctx, 1)
}

func (m *AuthMetrics) ReuseDetected(ctx context.Context) {
	if m == nil {
		return
	}
	m.reuse.Add(ctx, 1)
}

func (m *AuthMetrics) SessionsEvicted(ctx context.Context, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.evicted.Add(ctx, int64(n))
}

func (m *AuthMetrics) InviteCreated(ctx context.Context, category string) {
	if m == nil {
		return
	}
	m.invites.Add(ctx, 1, metric.WithAttributes(attribute.String("category", category)))
}
