package security

import "time"

// Test secrets for unit tests only. Do not use in production.
const (
	testAccessSecret  = "test-access-secret-0123456789abcdef0123456789"
	testRefreshSecret = "test-refresh-secret-0123456789abcdef012345678"
)

// NewTestTokenCodec returns a TokenCodec using fixed test secrets, a 1h access TTL and a 7d refresh TTL.
// For unit tests only. Callers must not use in production.
func NewTestTokenCodec() *TokenCodec {
	return NewTokenCodec([]byte(testAccessSecret), []byte(testRefreshSecret), "test-issuer", "test-audience", time.Hour, 7*24*time.Hour)
}

// WithClock returns a copy of c that reads the current time from now. Used by tests to mint expired tokens.
func (c *TokenCodec) WithClock(now func() time.Time) *TokenCodec {
	cp := *c
	cp.now = now
	return &cp
}
