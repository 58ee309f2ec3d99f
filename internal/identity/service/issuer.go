package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"referral-network-hub/backend/internal/audit"
	auditdomain "referral-network-hub/backend/internal/audit/domain"
	"referral-network-hub/backend/internal/cache"
	"referral-network-hub/backend/internal/platform/apperr"
	refreshdomain "referral-network-hub/backend/internal/refreshtoken/domain"
	refreshrepo "referral-network-hub/backend/internal/refreshtoken/repository"
	"referral-network-hub/backend/internal/security"
	sessiondomain "referral-network-hub/backend/internal/session/domain"
	sessionrepo "referral-network-hub/backend/internal/session/repository"
	sessionservice "referral-network-hub/backend/internal/session/service"
	telemetryotel "referral-network-hub/backend/internal/telemetry/otel"
	userdomain "referral-network-hub/backend/internal/user/domain"
	userrepo "referral-network-hub/backend/internal/user/repository"
)

// ClientInfo describes the caller a token pair is issued to.
type ClientInfo struct {
	UserAgent string
	IP        string
}

// TokenPair is the result of issuance or rotation.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
	ExpiresIn       int64  // access-token lifetime in seconds
	SessionID       string // empty for session-exempt users
}

// UserStore is the subset of the user repository the issuer needs.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	IncrementTokenVersion(ctx context.Context, id string) (int64, error)
	GetTokenVersion(ctx context.Context, id string) (int64, error)
}

// TokenIssuer mints and rotates token pairs over the codec, the session ledger and the refresh
// token store. It owns the per-user token version.
type TokenIssuer struct {
	codec      *security.TokenCodec
	sessions   *sessionservice.Ledger
	refresh    refreshrepo.Repository
	users      UserStore
	cache      cache.Store
	parse      sessiondomain.DeviceParser
	audit      audit.AuditLogger
	metrics    *telemetryotel.AuthMetrics
	sessionTTL time.Duration
	log        zerolog.Logger
	now        func() time.Time
}

// IssuerDeps groups the issuer's collaborators. Cache, DeviceParser, Audit and Metrics may be nil.
type IssuerDeps struct {
	Codec        *security.TokenCodec
	Sessions     *sessionservice.Ledger
	Refresh      refreshrepo.Repository
	Users        UserStore
	Cache        cache.Store
	DeviceParser sessiondomain.DeviceParser
	Audit        audit.AuditLogger
	Metrics      *telemetryotel.AuthMetrics
	SessionTTL   time.Duration
}

// NewTokenIssuer returns a TokenIssuer.
func NewTokenIssuer(d IssuerDeps, logger zerolog.Logger) *TokenIssuer {
	if d.DeviceParser == nil {
		d.DeviceParser = func(ua string) sessiondomain.Device { return sessiondomain.Device{UserAgent: ua} }
	}
	if d.Audit == nil {
		d.Audit = audit.Nop{}
	}
	if d.SessionTTL <= 0 {
		d.SessionTTL = d.Codec.RefreshTTL()
	}
	return &TokenIssuer{
		codec:      d.Codec,
		sessions:   d.Sessions,
		refresh:    d.Refresh,
		users:      d.Users,
		cache:      d.Cache,
		parse:      d.DeviceParser,
		audit:      d.Audit,
		metrics:    d.Metrics,
		sessionTTL: d.SessionTTL,
		log:        logger.With().Str("component", "token_issuer").Logger(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// IssueTokenPair creates a session (unless the user's category is exempt), mints an access and
// refresh token carrying the user's current token version and persists the refresh token row.
func (t *TokenIssuer) IssueTokenPair(ctx context.Context, u *userdomain.User, client ClientInfo) (*TokenPair, error) {
	version, err := t.CurrentTokenVersion(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	var sessionID string
	if u.Category.RequiresSession() {
		created, err := t.sessions.CreateSession(ctx, u.ID, t.parse(client.UserAgent), client.IP, t.sessionTTL)
		if err != nil {
			if errors.Is(err, sessionrepo.ErrUserNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, apperr.Store(err)
		}
		sessionID = created.Session.ID
	}
	return t.mint(ctx, u, sessionID, version)
}

// Rotate exchanges a refresh token for a new pair within the same session. Presenting a token
// that was already rotated or revoked revokes every refresh token of its session and the session
// itself, then fails with a generic invalid-token error.
func (t *TokenIssuer) Rotate(ctx context.Context, refreshToken string, client ClientInfo) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	claims, err := t.codec.VerifyRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, security.ErrTokenExpired) {
			return nil, ErrRefreshTokenExpired
		}
		return nil, ErrInvalidRefreshToken
	}
	oldHash := security.HashToken(refreshToken)
	row, err := t.refresh.GetByHash(ctx, oldHash)
	if err != nil {
		return nil, apperr.Store(err)
	}
	if row == nil || !security.TokenHashEqual(refreshToken, row.TokenHash) || row.UserID != claims.Subject || row.SessionID != claims.SessionID {
		return nil, ErrInvalidRefreshToken
	}
	now := t.now()
	if row.Revoked {
		t.containReuse(ctx, row, client)
		return nil, revokedReuse()
	}
	if !now.Before(row.ExpiresAt) {
		return nil, ErrRefreshTokenExpired
	}

	u, err := t.users.GetByID(ctx, row.UserID)
	if err != nil {
		return nil, apperr.Store(err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	version, err := t.CurrentTokenVersion(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if !security.IsTokenVersionCurrent(row.TokenVersion, version) {
		t.revokeRow(ctx, oldHash, now)
		return nil, ErrTokenVersionMismatch
	}
	if err := checkEligible(u, false); err != nil {
		return nil, err
	}
	if row.SessionID != "" {
		s, err := t.sessions.Get(ctx, row.SessionID)
		if err != nil {
			return nil, apperr.Store(err)
		}
		if !t.sessions.IsActive(s) {
			t.revokeRow(ctx, oldHash, now)
			return nil, ErrSessionExpired
		}
	}

	next, nextExp, err := t.codec.IssueRefreshToken(security.RefreshParams{UserID: u.ID, SessionID: row.SessionID, TokenVersion: version})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "sign refresh token", err)
	}
	// The successor is stored before the old row is swapped out, so a failed write leaves the
	// presented token valid for a retry instead of looking like reuse.
	nextHash := security.HashToken(next)
	if err := t.refresh.Create(ctx, t.row(u.ID, row.SessionID, nextHash, version, nextExp, now)); err != nil {
		return nil, apperr.Store(err)
	}
	won, err := t.refresh.Rotate(ctx, oldHash, nextHash, now)
	if err != nil {
		t.revokeRow(ctx, nextHash, now)
		return nil, apperr.Store(err)
	}
	if !won {
		// A concurrent rotation of the same token got there first; that caller holds the successor.
		t.revokeRow(ctx, nextHash, now)
		return nil, revokedReuse()
	}
	if row.SessionID != "" {
		if err := t.sessions.Touch(ctx, row.SessionID); err != nil {
			t.log.Warn().Err(err).Str("session_id", row.SessionID).Msg("session touch failed")
		}
	}
	access, accessExp, err := t.codec.IssueAccessToken(t.accessParams(u, row.SessionID, version))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "sign access token", err)
	}
	t.metrics.RefreshRotated(ctx)
	return &TokenPair{
		AccessToken:     access,
		RefreshToken:    next,
		AccessExpiresAt: accessExp,
		ExpiresIn:       int64(t.codec.AccessTTL() / time.Second),
		SessionID:       row.SessionID,
	}, nil
}

// InvalidateAll bumps the user's token version so every outstanding access and refresh token
// fails its next check. One row update; nothing is enumerated. The cache is raised before
// returning. If the raise fails the cached entry is dropped so reads fall through to the
// database, and the failure is still reported.
func (t *TokenIssuer) InvalidateAll(ctx context.Context, userID string) (int64, error) {
	v, err := t.users.IncrementTokenVersion(ctx, userID)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, apperr.Store(err)
	}
	if t.cache != nil {
		key := cache.TokenVersionKey(userID)
		if err := t.cache.Raise(ctx, key, v); err != nil {
			if derr := t.cache.Delete(ctx, key); derr != nil {
				t.log.Error().Err(derr).Str("user_id", userID).Msg("token version cache delete failed after raise error")
			}
			return 0, apperr.Store(err)
		}
	}
	return v, nil
}

// CurrentTokenVersion reads the user's token version through the cache. A miss populates the
// cache without overwriting a newer value; a cache error falls back to the database.
func (t *TokenIssuer) CurrentTokenVersion(ctx context.Context, userID string) (int64, error) {
	key := cache.TokenVersionKey(userID)
	if t.cache != nil {
		v, ok, err := t.cache.Get(ctx, key)
		if err == nil && ok {
			return v, nil
		}
		if err != nil {
			t.log.Warn().Err(err).Msg("token version cache read failed")
		}
	}
	v, err := t.users.GetTokenVersion(ctx, userID)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, apperr.Store(err)
	}
	if t.cache != nil {
		if err := t.cache.Populate(ctx, key, v); err != nil {
			t.log.Warn().Err(err).Msg("token version cache populate failed")
		}
	}
	return v, nil
}

// LogoutSession ends the session as logged_out and revokes that session's refresh tokens. Other
// sessions of the user are untouched. Users without a session have all their refresh tokens revoked.
func (t *TokenIssuer) LogoutSession(ctx context.Context, userID, sessionID string) error {
	now := t.now()
	if sessionID == "" {
		if _, err := t.refresh.RevokeByUser(ctx, userID, now); err != nil {
			return apperr.Store(err)
		}
		return nil
	}
	s, err := t.sessions.Get(ctx, sessionID)
	if err != nil {
		return apperr.Store(err)
	}
	if s == nil || s.UserID != userID {
		return ErrSessionNotFound
	}
	if err := t.sessions.Logout(ctx, sessionID); err != nil {
		return apperr.Store(err)
	}
	if _, err := t.refresh.RevokeBySession(ctx, sessionID, now); err != nil {
		return apperr.Store(err)
	}
	return nil
}

func (t *TokenIssuer) mint(ctx context.Context, u *userdomain.User, sessionID string, version int64) (*TokenPair, error) {
	now := t.now()
	access, accessExp, err := t.codec.IssueAccessToken(t.accessParams(u, sessionID, version))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "sign access token", err)
	}
	refresh, refreshExp, err := t.codec.IssueRefreshToken(security.RefreshParams{UserID: u.ID, SessionID: sessionID, TokenVersion: version})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "sign refresh token", err)
	}
	if err := t.refresh.Create(ctx, t.row(u.ID, sessionID, security.HashToken(refresh), version, refreshExp, now)); err != nil {
		return nil, apperr.Store(err)
	}
	return &TokenPair{
		AccessToken:     access,
		RefreshToken:    refresh,
		AccessExpiresAt: accessExp,
		ExpiresIn:       int64(t.codec.AccessTTL() / time.Second),
		SessionID:       sessionID,
	}, nil
}

func (t *TokenIssuer) accessParams(u *userdomain.User, sessionID string, version int64) security.AccessParams {
	return security.AccessParams{
		UserID:         u.ID,
		Category:       string(u.Category),
		Email:          u.Email,
		SessionID:      sessionID,
		TokenVersion:   version,
		OrganizationID: u.OrganizationID,
	}
}

func (t *TokenIssuer) row(userID, sessionID, hash string, version int64, exp, now time.Time) *refreshdomain.RefreshToken {
	return &refreshdomain.RefreshToken{
		ID:           uuid.New().String(),
		UserID:       userID,
		SessionID:    sessionID,
		TokenHash:    hash,
		TokenVersion: version,
		ExpiresAt:    exp,
		CreatedAt:    now,
	}
}

// containReuse revokes everything the presented token could still reach. Failures are logged;
// the caller is rejected either way.
func (t *TokenIssuer) containReuse(ctx context.Context, row *refreshdomain.RefreshToken, client ClientInfo) {
	now := t.now()
	t.metrics.ReuseDetected(ctx)
	ev := t.log.Warn().Str("user_id", row.UserID).Str("session_id", row.SessionID)
	if row.SessionID == "" {
		n, err := t.refresh.RevokeByUser(ctx, row.UserID, now)
		if err != nil {
			t.log.Error().Err(err).Str("user_id", row.UserID).Msg("reuse containment: revoke by user failed")
		}
		ev.Int64("revoked", n).Msg("refresh token reuse detected")
	} else {
		n, err := t.refresh.RevokeBySession(ctx, row.SessionID, now)
		if err != nil {
			t.log.Error().Err(err).Str("session_id", row.SessionID).Msg("reuse containment: revoke by session failed")
		}
		if err := t.sessions.Revoke(ctx, row.SessionID); err != nil {
			t.log.Error().Err(err).Str("session_id", row.SessionID).Msg("reuse containment: session revoke failed")
		}
		ev.Int64("revoked", n).Msg("refresh token reuse detected")
	}
	t.audit.LogEvent(ctx, "", row.UserID, auditdomain.ActionRefreshReuse, auditdomain.ResourceSession, "user_agent="+client.UserAgent)
}

func (t *TokenIssuer) revokeRow(ctx context.Context, hash string, at time.Time) {
	if err := t.refresh.Revoke(ctx, hash, at); err != nil {
		t.log.Warn().Err(err).Msg("refresh token revoke failed")
	}
}
