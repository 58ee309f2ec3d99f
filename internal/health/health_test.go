package health

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

type fakePolicy struct{ err error }

func (f fakePolicy) HealthCheck(context.Context) error { return f.err }

func TestChecker_ReadyWhenAllPass(t *testing.T) {
	c := NewChecker(zerolog.Nop()).
		AddPinger("postgres", fakePinger{}).
		AddPinger("redis", fakePinger{}).
		AddPolicy("opa", fakePolicy{})
	if err := c.Ready(context.Background()); err != nil {
		t.Fatalf("Ready: %v", err)
	}
}

func TestChecker_NamesFailures(t *testing.T) {
	c := NewChecker(zerolog.Nop()).
		AddPinger("postgres", fakePinger{err: errors.New("connection refused")}).
		AddPinger("redis", fakePinger{}).
		AddPolicy("opa", fakePolicy{err: errors.New("query failed")})

	failed := c.Check(context.Background())
	if len(failed) != 2 {
		t.Fatalf("failed = %v, want postgres and opa", failed)
	}
	err := c.Ready(context.Background())
	if err == nil {
		t.Fatal("Ready: want error")
	}
	if !strings.Contains(err.Error(), "postgres") || !strings.Contains(err.Error(), "opa") {
		t.Errorf("Ready error %q should name postgres and opa", err)
	}
}

func TestChecker_NilDependenciesSkipped(t *testing.T) {
	c := NewChecker(zerolog.Nop()).AddPinger("postgres", nil).AddPolicy("opa", nil).Add("x", nil)
	if len(c.checks) != 0 {
		t.Errorf("checks = %d, want 0", len(c.checks))
	}
}

func TestChecker_UpdateSetsServingStatus(t *testing.T) {
	srv := health.NewServer()
	pinger := &fakePinger{err: errors.New("down")}
	c := NewChecker(zerolog.Nop()).Add("postgres", func(ctx context.Context) error { return pinger.err })

	c.update(context.Background(), srv)
	resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", resp.Status)
	}

	pinger.err = nil
	c.update(context.Background(), srv)
	resp, _ = srv.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", resp.Status)
	}
}
