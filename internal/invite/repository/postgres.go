package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"referral-network-hub/backend/internal/db"
	"referral-network-hub/backend/internal/invite/domain"
)

const inviteColumns = `id, category, email, token_hash, status, organization_id, issued_by, role, metadata,
	expires_at, accepted_at, accepted_by, revoked_at, revoked_by, created_at`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an invite repository that uses the given db for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists the invite. A violation of the one-pending-per-email index yields ErrPendingExists.
func (r *PostgresRepository) Create(ctx context.Context, inv *domain.Invite) error {
	meta, err := json.Marshal(metadataOrEmpty(inv.Metadata))
	if err != nil {
		return fmt.Errorf("encode invite metadata: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO invites (`+inviteColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		inv.ID, string(inv.Category), strings.ToLower(inv.Email), inv.TokenHash, string(inv.Status),
		db.NullString(inv.OrganizationID), inv.IssuedBy, inv.Role, meta, inv.ExpiresAt,
		db.NullTime(inv.AcceptedAt), db.NullString(inv.AcceptedBy), db.NullTime(inv.RevokedAt),
		db.NullString(inv.RevokedBy), inv.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "invites_one_pending_per_email" {
		return ErrPendingExists
	}
	return err
}

// GetByTokenHash returns the invite for tokenHash, or nil if not found.
func (r *PostgresRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Invite, error) {
	return r.getOne(ctx, `SELECT `+inviteColumns+` FROM invites WHERE token_hash = $1`, tokenHash)
}

// GetPendingByEmail returns the pending invite for email, or nil.
func (r *PostgresRepository) GetPendingByEmail(ctx context.Context, email string) (*domain.Invite, error) {
	return r.getOne(ctx, `SELECT `+inviteColumns+` FROM invites WHERE email = $1 AND status = 'pending'`, strings.ToLower(email))
}

// Transition is conditional on status = 'pending', so terminal states are never left.
func (r *PostgresRepository) Transition(ctx context.Context, id string, to domain.Status, actorID string, at time.Time) (bool, error) {
	var (
		res sql.Result
		err error
	)
	switch to {
	case domain.StatusAccepted:
		res, err = r.db.ExecContext(ctx, `UPDATE invites SET status = 'accepted', accepted_at = $2, accepted_by = $3
			WHERE id = $1 AND status = 'pending'`, id, at, db.NullString(actorID))
	case domain.StatusRevoked:
		res, err = r.db.ExecContext(ctx, `UPDATE invites SET status = 'revoked', revoked_at = $2, revoked_by = $3
			WHERE id = $1 AND status = 'pending'`, id, at, db.NullString(actorID))
	case domain.StatusExpired:
		res, err = r.db.ExecContext(ctx, `UPDATE invites SET status = 'expired' WHERE id = $1 AND status = 'pending'`, id)
	default:
		return false, fmt.Errorf("invite: invalid transition to %q", to)
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ExpireStale moves pending invites past expiry to expired.
func (r *PostgresRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE invites SET status = 'expired' WHERE status = 'pending' AND expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) getOne(ctx context.Context, q string, arg string) (*domain.Invite, error) {
	var inv domain.Invite
	var category, status string
	var org, acceptedBy, revokedBy sql.NullString
	var acceptedAt, revokedAt sql.NullTime
	var meta []byte
	err := r.db.QueryRowContext(ctx, q, arg).Scan(&inv.ID, &category, &inv.Email, &inv.TokenHash, &status, &org,
		&inv.IssuedBy, &inv.Role, &meta, &inv.ExpiresAt, &acceptedAt, &acceptedBy, &revokedAt, &revokedBy, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	inv.Category = domain.Category(category)
	inv.Status = domain.Status(status)
	inv.OrganizationID = org.String
	inv.AcceptedBy = acceptedBy.String
	inv.RevokedBy = revokedBy.String
	inv.AcceptedAt = db.TimePtr(acceptedAt)
	inv.RevokedAt = db.TimePtr(revokedAt)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &inv.Metadata); err != nil {
			return nil, fmt.Errorf("decode invite metadata: %w", err)
		}
	}
	return &inv, nil
}

func metadataOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
