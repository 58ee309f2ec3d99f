package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"referral-network-hub/backend/internal/platform/apperr"
)

var (
	ErrTokenExpired          = apperr.New(apperr.CodeTokenExpired, "token expired")
	ErrTokenMalformed        = apperr.New(apperr.CodeTokenMalformed, "token malformed")
	ErrTokenSignatureInvalid = apperr.New(apperr.CodeTokenSignatureInvalid, "token signature invalid")
)

// signingMethod is the only algorithm accepted at verify time.
var signingMethod = jwt.SigningMethodHS256

// AccessParams are the inputs embedded in an access token.
type AccessParams struct {
	UserID         string
	Category       string
	Email          string
	SessionID      string // empty for session-exempt categories
	TokenVersion   int64
	OrganizationID string
}

// RefreshParams are the inputs embedded in a refresh token.
type RefreshParams struct {
	UserID       string
	SessionID    string
	TokenVersion int64
}

// AccessClaims holds JWT claims for the access token. Subject is the user id.
type AccessClaims struct {
	jwt.RegisteredClaims
	Category       string `json:"category"`
	Email          string `json:"email"`
	SessionID      string `json:"session_id,omitempty"`
	TokenVersion   int64  `json:"token_version"`
	OrganizationID string `json:"org_id,omitempty"`
}

// RefreshClaims holds JWT claims for the refresh token. The jti carries 256 random bits.
type RefreshClaims struct {
	jwt.RegisteredClaims
	SessionID    string `json:"session_id,omitempty"`
	TokenVersion int64  `json:"token_version"`
}

// TokenCodec issues and verifies HS256 access and refresh tokens. Each kind has its own
// secret and TTL; issuer and audience are pinned on verify.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	audience      string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenCodec returns a TokenCodec. The access and refresh secrets must differ.
func NewTokenCodec(accessSecret, refreshSecret []byte, issuer, audience string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		accessSecret:  accessSecret,
		refreshSecret: refreshSecret,
		issuer:        issuer,
		audience:      audience,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// AccessTTL returns the access-token lifetime.
func (c *TokenCodec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the refresh-token lifetime.
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccessToken signs a short-lived access token. No side effects.
func (c *TokenCodec) IssueAccessToken(p AccessParams) (token string, expiresAt time.Time, err error) {
	jti, err := randomHex(16)
	if err != nil {
		return "", time.Time{}, err
	}
	now := c.now()
	expiresAt = now.Add(c.accessTTL)
	claims := AccessClaims{
		RegisteredClaims: c.registered(jti, p.UserID, now, expiresAt),
		Category:         p.Category,
		Email:            p.Email,
		SessionID:        p.SessionID,
		TokenVersion:     p.TokenVersion,
		OrganizationID:   p.OrganizationID,
	}
	token, err = jwt.NewWithClaims(signingMethod, claims).SignedString(c.accessSecret)
	return token, expiresAt, err
}

// IssueRefreshToken signs a long-lived refresh token.
func (c *TokenCodec) IssueRefreshToken(p RefreshParams) (token string, expiresAt time.Time, err error) {
	jti, err := randomHex(OpaqueTokenBytes)
	if err != nil {
		return "", time.Time{}, err
	}
	now := c.now()
	expiresAt = now.Add(c.refreshTTL)
	claims := RefreshClaims{
		RegisteredClaims: c.registered(jti, p.UserID, now, expiresAt),
		SessionID:        p.SessionID,
		TokenVersion:     p.TokenVersion,
	}
	token, err = jwt.NewWithClaims(signingMethod, claims).SignedString(c.refreshSecret)
	return token, expiresAt, err
}

// VerifyAccessToken parses and validates an access token (alg, signature, exp, iss, aud).
func (c *TokenCodec) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.parse(tokenString, claims, c.accessSecret); err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// VerifyRefreshToken parses and validates a refresh token with the refresh secret.
func (c *TokenCodec) VerifyRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.parse(tokenString, claims, c.refreshSecret); err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// IsTokenVersionCurrent reports exact equality; any mismatch is a hard rejection.
func IsTokenVersionCurrent(tokenVersion, userCurrentVersion int64) bool {
	return tokenVersion == userCurrentVersion
}

func (c *TokenCodec) registered(jti, subject string, now, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        jti,
		Subject:   subject,
		Issuer:    c.issuer,
		Audience:  jwt.ClaimStrings{c.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (c *TokenCodec) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	if tokenString == "" {
		return ErrTokenMalformed
	}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != signingMethod {
			return nil, ErrTokenSignatureInvalid
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return classify(err)
	}
	return nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable), errors.Is(err, ErrTokenSignatureInvalid):
		return ErrTokenSignatureInvalid
	default:
		return ErrTokenMalformed
	}
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
