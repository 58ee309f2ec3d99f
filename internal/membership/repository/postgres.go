package repository

import (
	"context"
	"fmt"

	"referral-network-hub/backend/internal/db"
	"referral-network-hub/backend/internal/membership/domain"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a membership repository that uses the given db for persistence.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// HasActiveMembership reports whether an active row for (userID, orgID) exists in the relation.
func (r *PostgresRepository) HasActiveMembership(ctx context.Context, kind domain.Kind, userID, orgID string) (bool, error) {
	if !kind.Valid() {
		return false, fmt.Errorf("membership: unknown relation %q", kind)
	}
	var ok bool
	// kind is one of three fixed table names, checked above.
	q := `SELECT EXISTS (SELECT 1 FROM ` + string(kind) + ` WHERE user_id = $1 AND organization_id = $2 AND is_active)`
	if err := r.db.QueryRowContext(ctx, q, userID, orgID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// Grant inserts the membership or reactivates an existing (user, organization) pair.
func (r *PostgresRepository) Grant(ctx context.Context, m *domain.Membership) error {
	if !m.Kind.Valid() {
		return fmt.Errorf("membership: unknown relation %q", m.Kind)
	}
	q := `INSERT INTO ` + string(m.Kind) + ` (id, user_id, organization_id, is_active, created_at)
		VALUES ($1, $2, $3, TRUE, $4)
		ON CONFLICT (user_id, organization_id) DO UPDATE SET is_active = TRUE`
	_, err := r.db.ExecContext(ctx, q, m.ID, m.UserID, m.OrgID, m.CreatedAt)
	return err
}
