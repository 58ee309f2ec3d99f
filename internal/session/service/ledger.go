// Package service implements the session ledger: per-user session cap enforcement and liveness.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"referral-network-hub/backend/internal/cache"
	"referral-network-hub/backend/internal/session/domain"
	"referral-network-hub/backend/internal/session/repository"
	telemetryotel "referral-network-hub/backend/internal/telemetry/otel"
)

// DefaultMaxActiveSessions is used when the configured cap is not positive.
const DefaultMaxActiveSessions = 5

// Created is the result of CreateSession. Evicted lists the sessions ended to stay under the cap.
type Created struct {
	Session *domain.Session
	Evicted []*domain.Session
}

// Ledger owns session lifecycle transitions and the concurrent-session cap.
type Ledger struct {
	repo      repository.Repository
	cache     cache.Store
	maxActive int
	metrics   *telemetryotel.AuthMetrics
	log       zerolog.Logger
	now       func() time.Time
}

// NewLedger returns a Ledger. store may be nil to disable count caching.
func NewLedger(repo repository.Repository, store cache.Store, maxActive int, metrics *telemetryotel.AuthMetrics, logger zerolog.Logger) *Ledger {
	if maxActive <= 0 {
		maxActive = DefaultMaxActiveSessions
	}
	return &Ledger{
		repo:      repo,
		cache:     store,
		maxActive: maxActive,
		metrics:   metrics,
		log:       logger.With().Str("component", "session_ledger").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the ledger's time source. Tests use it to give sessions distinct timestamps.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// MaxActive returns the configured cap.
func (l *Ledger) MaxActive() int { return l.maxActive }

// CreateSession evicts the least recently active sessions as needed and inserts a new one, so the
// user never holds more than MaxActive active sessions.
func (l *Ledger) CreateSession(ctx context.Context, userID string, device domain.Device, ip string, ttl time.Duration) (*Created, error) {
	now := l.now()
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	s := &domain.Session{
		ID:             uuid.New().String(),
		UserID:         userID,
		Status:         domain.StatusActive,
		Device:         device,
		IPAddress:      ip,
		LoginAt:        now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(ttl),
	}
	evicted, err := l.repo.CreateCapped(ctx, s, l.maxActive, now)
	if err != nil {
		return nil, err
	}
	l.invalidateCount(ctx, userID)
	if len(evicted) > 0 {
		l.metrics.SessionsEvicted(ctx, len(evicted))
		l.log.Info().Str("user_id", userID).Int("evicted", len(evicted)).Msg("session cap reached; evicted oldest")
	}
	return &Created{Session: s, Evicted: evicted}, nil
}

// Get returns the session or nil if it does not exist.
func (l *Ledger) Get(ctx context.Context, id string) (*domain.Session, error) {
	return l.repo.GetByID(ctx, id)
}

// Touch records activity. It does not fail for sessions that are no longer active; callers must
// reject those on their own.
func (l *Ledger) Touch(ctx context.Context, id string) error {
	return l.repo.Touch(ctx, id, l.now())
}

// IsActive reports status=active and now before expiry.
func (l *Ledger) IsActive(s *domain.Session) bool {
	return s.IsActive(l.now())
}

// Logout ends the session as logged_out. Idempotent.
func (l *Ledger) Logout(ctx context.Context, id string) error {
	return l.end(ctx, id, domain.StatusLoggedOut)
}

// Revoke ends the session as revoked. Idempotent.
func (l *Ledger) Revoke(ctx context.Context, id string) error {
	return l.end(ctx, id, domain.StatusRevoked)
}

// Expire ends the session as expired. Idempotent.
func (l *Ledger) Expire(ctx context.Context, id string) error {
	return l.end(ctx, id, domain.StatusExpired)
}

// ActiveSessions lists the user's live sessions, least recently active first.
func (l *Ledger) ActiveSessions(ctx context.Context, userID string) ([]*domain.Session, error) {
	return l.repo.ListActive(ctx, userID, l.now())
}

// ActiveCount returns the number of live sessions, reading through the cache.
func (l *Ledger) ActiveCount(ctx context.Context, userID string) (int64, error) {
	key := cache.SessionCountKey(userID)
	if l.cache != nil {
		n, ok, err := l.cache.Get(ctx, key)
		if err == nil && ok {
			return n, nil
		}
		if err != nil {
			l.log.Warn().Err(err).Msg("session count cache read failed")
		}
	}
	n, err := l.repo.CountActive(ctx, userID, l.now())
	if err != nil {
		return 0, err
	}
	if l.cache != nil {
		if err := l.cache.Populate(ctx, key, n); err != nil {
			l.log.Warn().Err(err).Msg("session count cache populate failed")
		}
	}
	return n, nil
}

// SweepExpired marks every active session past its expiry as expired. Returns the number of
// affected users.
func (l *Ledger) SweepExpired(ctx context.Context) (int, error) {
	owners, err := l.repo.ExpireStale(ctx, l.now())
	if err != nil {
		return 0, err
	}
	for _, uid := range owners {
		l.invalidateCount(ctx, uid)
	}
	return len(owners), nil
}

func (l *Ledger) end(ctx context.Context, id string, status domain.Status) error {
	s, err := l.repo.End(ctx, id, status, l.now())
	if err != nil {
		return err
	}
	if s != nil {
		l.invalidateCount(ctx, s.UserID)
	}
	return nil
}

func (l *Ledger) invalidateCount(ctx context.Context, userID string) {
	if l.cache == nil {
		return
	}
	if err := l.cache.Delete(ctx, cache.SessionCountKey(userID)); err != nil {
		l.log.Warn().Err(err).Str("user_id", userID).Msg("session count cache invalidation failed")
	}
}
