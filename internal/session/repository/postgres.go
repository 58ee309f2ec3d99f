package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"referral-network-hub/backend/internal/db"
	"referral-network-hub/backend/internal/session/domain"
)

const sessionColumns = `id, user_id, status, browser, os, device_type, user_agent, ip_address,
	login_at, last_activity_at, expires_at, ended_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(conn *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// CreateCapped locks the owner's user row, expires the oldest active sessions while the count is
// at or above maxActive, then inserts s. Concurrent logins for the same user queue on the lock.
func (r *PostgresRepository) CreateCapped(ctx context.Context, s *domain.Session, maxActive int, now time.Time) ([]*domain.Session, error) {
	var evicted []*domain.Session
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var owner string
		err := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, s.UserID).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		active, err := listActive(ctx, tx, s.UserID, now)
		if err != nil {
			return err
		}
		for i := 0; len(active)-i >= maxActive && i < len(active); i++ {
			victim := active[i]
			if _, err := tx.ExecContext(ctx,
				`UPDATE sessions SET status = 'expired', ended_at = $2 WHERE id = $1 AND status = 'active'`,
				victim.ID, now,
			); err != nil {
				return fmt.Errorf("evict session: %w", err)
			}
			victim.Status = domain.StatusExpired
			victim.EndedAt = &now
			evicted = append(evicted, victim)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO sessions (`+sessionColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			s.ID, s.UserID, string(s.Status), s.Device.Browser, s.Device.OS, s.Device.DeviceType,
			s.Device.UserAgent, s.IPAddress, s.LoginAt, s.LastActivityAt, s.ExpiresAt, db.NullTime(s.EndedAt),
		)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return evicted, nil
}

// Touch updates last_activity_at when the session is still active.
func (r *PostgresRepository) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET last_activity_at = $2 WHERE id = $1 AND status = 'active'`, id, at)
	return err
}

// End performs the conditional terminal transition active -> status.
func (r *PostgresRepository) End(ctx context.Context, id string, status domain.Status, at time.Time) (*domain.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		`UPDATE sessions SET status = $2, ended_at = $3 WHERE id = $1 AND status = 'active' RETURNING `+sessionColumns,
		id, string(status), at,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// ListActive returns the user's active, unexpired sessions ordered by last activity, oldest first.
func (r *PostgresRepository) ListActive(ctx context.Context, userID string, now time.Time) ([]*domain.Session, error) {
	return listActive(ctx, r.db, userID, now)
}

// CountActive counts the user's active, unexpired sessions.
func (r *PostgresRepository) CountActive(ctx context.Context, userID string, now time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM sessions WHERE user_id = $1 AND status = 'active' AND expires_at > $2`, userID, now,
	).Scan(&n)
	return n, err
}

// ExpireStale moves active sessions past expiry to expired.
func (r *PostgresRepository) ExpireStale(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`UPDATE sessions SET status = 'expired', ended_at = $1 WHERE status = 'active' AND expires_at <= $1 RETURNING user_id`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seen := make(map[string]bool)
	var owners []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		if !seen[uid] {
			seen[uid] = true
			owners = append(owners, uid)
		}
	}
	return owners, rows.Err()
}

func listActive(ctx context.Context, q db.DBTX, userID string, now time.Time) ([]*domain.Session, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = $1 AND status = 'active' AND expires_at > $2
		ORDER BY last_activity_at ASC, login_at ASC`, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*domain.Session, error) {
	var s domain.Session
	var status string
	var ended sql.NullTime
	err := row.Scan(&s.ID, &s.UserID, &status, &s.Device.Browser, &s.Device.OS, &s.Device.DeviceType,
		&s.Device.UserAgent, &s.IPAddress, &s.LoginAt, &s.LastActivityAt, &s.ExpiresAt, &ended)
	if err != nil {
		return nil, err
	}
	s.Status = domain.Status(status)
	s.EndedAt = db.TimePtr(ended)
	return &s, nil
}
