package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
)

func TestError_IsMatchesByCode(t *testing.T) {
	sentinel := New(CodeTokenRevoked, "token revoked")
	other := New(CodeTokenRevoked, "different message")
	if !errors.Is(other, sentinel) {
		t.Error("errors with the same code should match")
	}
	if errors.Is(New(CodeTokenExpired, "x"), sentinel) {
		t.Error("errors with different codes should not match")
	}
	wrapped := fmt.Errorf("rotate: %w", other)
	if !errors.Is(wrapped, sentinel) {
		t.Error("wrapped error should match by code")
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(fmt.Errorf("x: %w", New(CodeEmailTaken, "taken"))); got != CodeEmailTaken {
		t.Errorf("CodeOf = %q, want %q", got, CodeEmailTaken)
	}
	if got := CodeOf(errors.New("boom")); got != CodeInternal {
		t.Errorf("CodeOf plain error = %q, want %q", got, CodeInternal)
	}
}

func TestPublicMessage_DoesNotLeakCause(t *testing.T) {
	err := Store(errors.New(`pq: relation "users" does not exist`))
	if got := PublicMessage(err); got != "storage temporarily unavailable" {
		t.Errorf("PublicMessage = %q", got)
	}
	if got := PublicMessage(errors.New("select * from users")); got != "internal error" {
		t.Errorf("PublicMessage plain = %q", got)
	}
}

func TestStore_IsRetryableAndNotUnauthorized(t *testing.T) {
	err := Store(errors.New("connection refused"))
	code := CodeOf(err)
	if !code.Retryable() {
		t.Error("store errors should be retryable")
	}
	if code.HTTPStatus() != http.StatusServiceUnavailable {
		t.Errorf("HTTPStatus = %d, want 503", code.HTTPStatus())
	}
	if code.GRPCCode() != codes.Unavailable {
		t.Errorf("GRPCCode = %v, want Unavailable", code.GRPCCode())
	}
}

func TestCode_HTTPStatus(t *testing.T) {
	testCases := []struct {
		code Code
		want int
	}{
		{CodeInvalidCredentials, http.StatusUnauthorized},
		{CodeTokenVersionMismatch, http.StatusUnauthorized},
		{CodeAccountBlocked, http.StatusForbidden},
		{CodeUnauthorized, http.StatusForbidden},
		{CodeInviteAlreadyPending, http.StatusConflict},
		{CodeInviteNotPending, http.StatusGone},
		{CodeOrganizationNotFoundOrInactive, http.StatusNotFound},
		{CodeInvalidEmail, http.StatusBadRequest},
		{CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range testCases {
		t.Run(string(tc.code), func(t *testing.T) {
			if got := tc.code.HTTPStatus(); got != tc.want {
				t.Errorf("HTTPStatus = %d, want %d", got, tc.want)
			}
			if tc.code.Retryable() {
				t.Errorf("%s should not be retryable", tc.code)
			}
		})
	}
}

func TestIsDeadline(t *testing.T) {
	if !IsDeadline(fmt.Errorf("query: %w", context.DeadlineExceeded)) {
		t.Error("wrapped deadline should be detected")
	}
	if IsDeadline(errors.New("boom")) {
		t.Error("plain error is not a deadline")
	}
}
