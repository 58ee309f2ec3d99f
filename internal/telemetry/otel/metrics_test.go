package otel

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestAuthMetrics_RecordsCounters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewAuthMetrics(mp)
	if err != nil {
		t.Fatalf("NewAuthMetrics: %v", err)
	}
	ctx := context.Background()
	m.Login(ctx, "success")
	m.Login(ctx, "INVALID_CREDENTIALS")
	m.SessionsEvicted(ctx, 2)
	m.SessionsEvicted(ctx, 0)
	m.ReuseDetected(ctx)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	totals := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			sum, ok := metric.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				totals[metric.Name] += dp.Value
			}
		}
	}
	if totals["auth.logins"] != 2 {
		t.Errorf("auth.logins = %d, want 2", totals["auth.logins"])
	}
	if totals["auth.sessions.evicted"] != 2 {
		t.Errorf("auth.sessions.evicted = %d, want 2", totals["auth.sessions.evicted"])
	}
	if totals["auth.refresh.reuse_detected"] != 1 {
		t.Errorf("auth.refresh.reuse_detected = %d, want 1", totals["auth.refresh.reuse_detected"])
	}
}

func TestAuthMetrics_NilIsNoop(t *testing.T) {
	var m *AuthMetrics
	ctx := context.Background()
	m.Login(ctx, "success")
	m.RefreshRotated(ctx)
	m.ReuseDetected(ctx)
	m.SessionsEvicted(ctx, 1)
	m.InviteCreated(ctx, "employee")
}
