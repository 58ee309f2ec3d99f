package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	membershipdomain "referral-network-hub/backend/internal/membership/domain"
	membershiprepo "referral-network-hub/backend/internal/membership/repository"
	orgdomain "referral-network-hub/backend/internal/organization/domain"
	orgrepo "referral-network-hub/backend/internal/organization/repository"
	"referral-network-hub/backend/internal/security"
	userdomain "referral-network-hub/backend/internal/user/domain"
	userrepo "referral-network-hub/backend/internal/user/repository"
)

// minSeedPassword keeps the bootstrap credentials out of trivially guessable territory.
const minSeedPassword = 12

type options struct {
	AdminEmail    string
	AdminPassword string
	OrgID         string
	OrgName       string
	OrgAdminEmail string
}

type seeder struct {
	users       userrepo.Repository
	orgs        orgrepo.Repository
	memberships membershiprepo.Repository
	hasher      security.PasswordHasher
	log         zerolog.Logger
	now         func() time.Time
}

func (s *seeder) run(ctx context.Context, o options) error {
	if len(o.AdminPassword) < minSeedPassword {
		return fmt.Errorf("admin password must be at least %d characters", minSeedPassword)
	}
	hash, err := s.hasher.Hash([]byte(o.AdminPassword))
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.ensureUser(ctx, o.AdminEmail, userdomain.CategoryPlatformSuperAdmin, hash, ""); err != nil {
		return err
	}
	if o.OrgID == "" {
		return nil
	}
	if err := s.ensureOrg(ctx, o.OrgID, o.OrgName); err != nil {
		return err
	}
	if o.OrgAdminEmail == "" {
		return nil
	}
	orgAdmin, err := s.ensureUser(ctx, o.OrgAdminEmail, userdomain.CategoryOrganizationAdmin, hash, o.OrgID)
	if err != nil {
		return err
	}
	if err := s.memberships.Grant(ctx, &membershipdomain.Membership{
		ID:        uuid.NewString(),
		Kind:      membershipdomain.KindOrgAdmin,
		UserID:    orgAdmin.ID,
		OrgID:     o.OrgID,
		IsActive:  true,
		CreatedAt: s.now(),
	}); err != nil {
		return fmt.Errorf("grant org admin: %w", err)
	}
	s.log.Info().Str("org_id", o.OrgID).Str("user_id", orgAdmin.ID).Msg("organization admin granted")
	return nil
}

func (s *seeder) ensureUser(ctx context.Context, email string, category userdomain.Category, hash, orgID string) (*userdomain.User, error) {
	email = userdomain.NormalizeEmail(email)
	if !userdomain.ValidEmail(email) {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("look up %s: %w", email, err)
	}
	if existing != nil {
		if existing.Category != category {
			return nil, fmt.Errorf("%s already exists as %s", email, existing.Category)
		}
		s.log.Info().Str("user_id", existing.ID).Str("category", string(category)).Msg("user already seeded")
		return existing, nil
	}
	now := s.now()
	u := &userdomain.User{
		ID:             uuid.NewString(),
		Category:       category,
		Email:          email,
		PasswordHash:   hash,
		IsActive:       true,
		EmailVerified:  true,
		OrganizationID: orgID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrEmailTaken) {
			return s.users.GetByEmail(ctx, email)
		}
		return nil, fmt.Errorf("create %s: %w", email, err)
	}
	s.log.Info().Str("user_id", u.ID).Str("category", string(category)).Msg("user created")
	return u, nil
}

func (s *seeder) ensureOrg(ctx context.Context, id, name string) error {
	existing, err := s.orgs.GetOrganizationByID(ctx, id)
	if err != nil {
		return fmt.Errorf("look up organization: %w", err)
	}
	if existing != nil {
		s.log.Info().Str("org_id", id).Msg("organization already seeded")
		return nil
	}
	org := &orgdomain.Org{ID: id, Name: name, IsActive: true, CreatedAt: s.now()}
	if err := org.Validate(); err != nil {
		return err
	}
	if err := s.orgs.CreateOrganization(ctx, org); err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	s.log.Info().Str("org_id", id).Msg("organization created")
	return nil
}
