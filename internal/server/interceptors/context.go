package interceptors

import (
	"context"

	identityservice "referral-network-hub/backend/internal/identity/service"
)

type contextKey struct{ name string }

var (
	identityKey = contextKey{"identity"}
	clientIPKey = contextKey{"client_ip"}
)

// WithIdentity returns a context carrying the authenticated caller.
// Handlers read it via IdentityFrom or the GetUserID, GetOrgID, GetSessionID helpers.
func WithIdentity(ctx context.Context, id *identityservice.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the authenticated caller and true if set.
func IdentityFrom(ctx context.Context) (*identityservice.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*identityservice.Identity)
	return id, ok && id != nil
}

// GetUserID returns the user_id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	id, ok := IdentityFrom(ctx)
	if !ok {
		return "", false
	}
	return id.UserID, true
}

// GetOrgID returns the caller's home organization id. Exempt and unaffiliated users have none.
func GetOrgID(ctx context.Context) (string, bool) {
	id, ok := IdentityFrom(ctx)
	if !ok || id.OrganizationID == "" {
		return "", false
	}
	return id.OrganizationID, true
}

// GetSessionID returns the session_id from context and true if set; otherwise "", false.
func GetSessionID(ctx context.Context) (string, bool) {
	id, ok := IdentityFrom(ctx)
	if !ok || id.SessionID == "" {
		return "", false
	}
	return id.SessionID, true
}

// WithClientIP returns a context carrying the caller's address for audit entries.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFromContext returns the address stored by WithClientIP, or "". It satisfies
// audit.IPExtractor.
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}
