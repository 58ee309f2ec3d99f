package domain

import "time"

// RefreshToken is the durable record of one issued refresh token. The token string itself is
// never stored; rows are addressed by its SHA-256 hash.
type RefreshToken struct {
	ID             string
	UserID         string
	SessionID      string // empty for session-exempt users
	TokenHash      string
	TokenVersion   int64
	ExpiresAt      time.Time
	Revoked        bool
	RevokedAt      *time.Time
	ReplacedByHash string // forward pointer in the rotation chain
	CreatedAt      time.Time
}

// Usable reports not revoked and now before expiry. Token version is checked by the issuer.
func (t *RefreshToken) Usable(now time.Time) bool {
	return t != nil && !t.Revoked && now.Before(t.ExpiresAt)
}
