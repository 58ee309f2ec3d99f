package interceptors

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoggingUnary(t *testing.T) {
	var buf bytes.Buffer
	skip := map[string]bool{"/grpc.health.v1.Health/Check": true}
	intercept := LoggingUnary(zerolog.New(&buf), skip)
	ctx := WithClientIP(context.Background(), "203.0.113.7")

	ok := func(context.Context, interface{}) (interface{}, error) { return "ok", nil }
	fail := func(context.Context, interface{}) (interface{}, error) {
		return nil, status.Error(codes.Unavailable, "STORE_UNAVAILABLE: storage temporarily unavailable")
	}

	if _, err := intercept(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, ok); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Fatalf("skipped method was logged: %s", buf.String())
	}

	if _, err := intercept(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Ok"}, ok); err != nil {
		t.Fatal(err)
	}
	if _, err := intercept(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/svc/Fail"}, fail); status.Code(err) != codes.Unavailable {
		t.Fatalf("error not passed through: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2: %s", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"level":"info"`) || !strings.Contains(lines[0], `"method":"/svc/Ok"`) || !strings.Contains(lines[0], `"client_ip":"203.0.113.7"`) {
		t.Errorf("ok line = %s", lines[0])
	}
	if !strings.Contains(lines[1], `"level":"error"`) || !strings.Contains(lines[1], `"code":"Unavailable"`) {
		t.Errorf("fail line = %s", lines[1])
	}
}
