package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"referral-network-hub/backend/internal/db"
	"referral-network-hub/backend/internal/user/domain"
)

const userColumns = `id, category, email, password_hash, oauth_provider, oauth_id, first_name, last_name, phone,
	is_active, is_blocked, block_reason, email_verified, token_version, organization_id, created_at, updated_at`

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail returns the user with the given email (case-insensitive), or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
	return scanUser(row)
}

// Create persists the user. The user must have ID set. Returns ErrEmailTaken on a unique violation.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		u.ID, string(u.Category), strings.ToLower(u.Email), db.NullString(u.PasswordHash),
		db.NullString(u.OAuthProvider), db.NullString(u.OAuthID), u.FirstName, u.LastName, u.Phone,
		u.IsActive, u.IsBlocked, u.BlockReason, u.EmailVerified, u.TokenVersion,
		db.NullString(u.OrganizationID), u.CreatedAt, u.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

// Delete removes the user row. Missing rows are not an error.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

// UpdatePasswordHash replaces the credential hash. Returns ErrNotFound if no row was updated.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, hash, at)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementTokenVersion atomically bumps token_version and returns the new value.
func (r *PostgresRepository) IncrementTokenVersion(ctx context.Context, id string) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx,
		`UPDATE users SET token_version = token_version + 1, updated_at = now() WHERE id = $1 RETURNING token_version`, id,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return v, err
}

// GetTokenVersion returns the user's current token_version, or ErrNotFound.
func (r *PostgresRepository) GetTokenVersion(ctx context.Context, id string) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx, `SELECT token_version FROM users WHERE id = $1`, id).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return v, err
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var category string
	var passwordHash, provider, oauthID, org sql.NullString
	err := row.Scan(&u.ID, &category, &u.Email, &passwordHash, &provider, &oauthID, &u.FirstName, &u.LastName, &u.Phone,
		&u.IsActive, &u.IsBlocked, &u.BlockReason, &u.EmailVerified, &u.TokenVersion, &org, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Category = domain.Category(category)
	u.PasswordHash = passwordHash.String
	u.OAuthProvider = provider.String
	u.OAuthID = oauthID.String
	u.OrganizationID = org.String
	return &u, nil
}
