package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"referral-network-hub/backend/internal/db"
	"referral-network-hub/backend/internal/refreshtoken/domain"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a refresh token repository that uses the given db for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists the row. The row must have ID and TokenHash set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO refresh_tokens
		(id, user_id, session_id, token_hash, token_version, expires_at, revoked, revoked_at, replaced_by_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.UserID, db.NullString(t.SessionID), t.TokenHash, t.TokenVersion, t.ExpiresAt,
		t.Revoked, db.NullTime(t.RevokedAt), db.NullString(t.ReplacedByHash), t.CreatedAt,
	)
	return err
}

// GetByHash returns the row for tokenHash, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	var sessionID, replacedBy sql.NullString
	var revokedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `SELECT id, user_id, session_id, token_hash, token_version, expires_at,
		revoked, revoked_at, replaced_by_hash, created_at FROM refresh_tokens WHERE token_hash = $1`, tokenHash,
	).Scan(&t.ID, &t.UserID, &sessionID, &t.TokenHash, &t.TokenVersion, &t.ExpiresAt,
		&t.Revoked, &revokedAt, &replacedBy, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.SessionID = sessionID.String
	t.ReplacedByHash = replacedBy.String
	t.RevokedAt = db.TimePtr(revokedAt)
	return &t, nil
}

// Rotate is a compare-and-swap on the revoked flag; exactly one concurrent caller wins.
func (r *PostgresRepository) Rotate(ctx context.Context, oldHash, newHash string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = $3, replaced_by_hash = $2
		WHERE token_hash = $1 AND revoked = FALSE`, oldHash, newHash, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, tokenHash string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE token_hash = $1 AND revoked = FALSE`, tokenHash, at)
	return err
}

// RevokeBySession revokes every unrevoked token of the session and returns how many changed.
func (r *PostgresRepository) RevokeBySession(ctx context.Context, sessionID string, at time.Time) (int64, error) {
	return r.exec(ctx, `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE session_id = $1 AND revoked = FALSE`, sessionID, at)
}

// RevokeByUser revokes every unrevoked token of the user and returns how many changed.
func (r *PostgresRepository) RevokeByUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	return r.exec(ctx, `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND revoked = FALSE`, userID, at)
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, cutoff)
}

func (r *PostgresRepository) exec(ctx context.Context, q string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
