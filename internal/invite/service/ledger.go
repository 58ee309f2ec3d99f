// Package service implements the invite ledger: issuance, validation, acceptance and revocation
// of single-use invite tokens.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"referral-network-hub/backend/internal/audit"
	auditdomain "referral-network-hub/backend/internal/audit/domain"
	"referral-network-hub/backend/internal/invite/domain"
	"referral-network-hub/backend/internal/invite/notifier"
	"referral-network-hub/backend/internal/invite/repository"
	"referral-network-hub/backend/internal/platform/apperr"
	"referral-network-hub/backend/internal/platform/rbac"
	"referral-network-hub/backend/internal/policy/engine"
	"referral-network-hub/backend/internal/security"
	telemetryotel "referral-network-hub/backend/internal/telemetry/otel"
	userdomain "referral-network-hub/backend/internal/user/domain"
)

var (
	ErrUnauthorized           = apperr.New(apperr.CodeUnauthorized, "not allowed to manage this invite")
	ErrEmailAlreadyRegistered = apperr.New(apperr.CodeEmailTaken, "email already registered")
	ErrInviteAlreadyPending   = apperr.New(apperr.CodeInviteAlreadyPending, "a pending invite already exists for this email")
	ErrInvalidEmail           = apperr.New(apperr.CodeInvalidEmail, "invalid email")
	ErrInvalidCategory        = apperr.New(apperr.CodeValidation, "unknown invite category")
	ErrOrganizationRequired   = apperr.New(apperr.CodeValidation, "organization is required for this invite category")
	ErrInviteNotFound         = apperr.New(apperr.CodeInviteNotFound, "invite not found")
	ErrInviteExpired          = apperr.New(apperr.CodeInviteExpired, "invite expired")
	ErrInviteNotPending       = apperr.New(apperr.CodeInviteNotPending, "invite is no longer pending")
)

// TTLs are the invite lifetimes per category.
type TTLs struct {
	PlatformAdmin time.Duration
	OrgAdmin      time.Duration
	Recruiter     time.Duration
	Employee      time.Duration
}

// DefaultTTLs returns 48h for platform admins, 7 days for org admins and 72h otherwise.
func DefaultTTLs() TTLs {
	return TTLs{PlatformAdmin: 48 * time.Hour, OrgAdmin: 7 * 24 * time.Hour, Recruiter: 72 * time.Hour, Employee: 72 * time.Hour}
}

func (t TTLs) For(c domain.Category) time.Duration {
	var d time.Duration
	switch c {
	case domain.CategoryPlatformAdmin:
		d = t.PlatformAdmin
	case domain.CategoryOrgAdmin:
		d = t.OrgAdmin
	case domain.CategoryOrgRecruiter:
		d = t.Recruiter
	case domain.CategoryEmployee:
		d = t.Employee
	}
	if d <= 0 {
		return DefaultTTLs().For(c)
	}
	return d
}

// UserLookup is the minimal user repository needed by the ledger.
type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
}

// RoleResolver resolves an actor's role in an organization.
type RoleResolver interface {
	Resolve(ctx context.Context, sub rbac.Subject, orgID string) (rbac.Role, error)
}

// CreateRequest describes an invite to issue.
type CreateRequest struct {
	Email          string
	Category       domain.Category
	OrganizationID string
	Role           string
	Metadata       map[string]string
}

// Created is the result of CreateInvite. Token is the raw invite token and is returned only here.
type Created struct {
	Invite *domain.Invite
	Token  string
}

// Details is what a valid invite exposes to the registration path.
type Details struct {
	ID             string
	Email          string
	Category       domain.Category
	OrganizationID string
	Role           string
	Metadata       map[string]string
	IssuedBy       string
	ExpiresAt      time.Time
}

// Ledger owns the invite lifecycle. State only leaves pending, and only through conditional updates.
type Ledger struct {
	repo     repository.Repository
	users    UserLookup
	roles    RoleResolver
	policy   engine.InviteDecider
	notifier notifier.Notifier
	audit    audit.AuditLogger
	metrics  *telemetryotel.AuthMetrics
	ttls     TTLs
	log      zerolog.Logger
	now      func() time.Time
}

// Deps groups the ledger's collaborators. Notifier, Audit and Metrics may be nil.
type Deps struct {
	Repo     repository.Repository
	Users    UserLookup
	Roles    RoleResolver
	Policy   engine.InviteDecider
	Notifier notifier.Notifier
	Audit    audit.AuditLogger
	Metrics  *telemetryotel.AuthMetrics
	TTLs     TTLs
}

// NewLedger returns a Ledger.
func NewLedger(d Deps, logger zerolog.Logger) *Ledger {
	if d.Notifier == nil {
		d.Notifier = notifier.Nop{}
	}
	if d.Audit == nil {
		d.Audit = audit.Nop{}
	}
	return &Ledger{
		repo:     d.Repo,
		users:    d.Users,
		roles:    d.Roles,
		policy:   d.Policy,
		notifier: d.Notifier,
		audit:    d.Audit,
		metrics:  d.Metrics,
		ttls:     d.TTLs,
		log:      logger.With().Str("component", "invite_ledger").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// UserCategoryFor maps an invite category to the user category registered on acceptance.
func UserCategoryFor(c domain.Category) (userdomain.Category, bool) {
	return c.UserCategory()
}

// CreateInvite authorizes issuer, then stores a new pending invite and hands the raw token to the
// notifier. A stale pending invite for the same email is expired first so it does not block.
func (l *Ledger) CreateInvite(ctx context.Context, issuer rbac.Subject, req CreateRequest) (*Created, error) {
	email := userdomain.NormalizeEmail(req.Email)
	if !userdomain.ValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !req.Category.Valid() {
		return nil, ErrInvalidCategory
	}
	orgID := strings.TrimSpace(req.OrganizationID)
	if req.Category.RequiresOrganization() && orgID == "" {
		return nil, ErrOrganizationRequired
	}
	role, err := l.actorRole(ctx, issuer, orgID, true)
	if err != nil {
		return nil, err
	}
	allowed, err := l.policy.CanIssue(ctx, engine.InviteInput{
		Actor:  engine.Actor{ID: issuer.UserID, Category: string(issuer.Category), OrgRole: role.String()},
		Invite: engine.InviteFacts{Category: string(req.Category), OrganizationID: orgID, IssuedBy: issuer.UserID},
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "invite policy evaluation failed", err)
	}
	if !allowed {
		return nil, ErrUnauthorized
	}

	existing, err := l.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Store(err)
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	now := l.now()
	pending, err := l.repo.GetPendingByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Store(err)
	}
	if pending != nil {
		if !pending.PastExpiry(now) {
			return nil, ErrInviteAlreadyPending
		}
		if _, err := l.repo.Transition(ctx, pending.ID, domain.StatusExpired, "", now); err != nil {
			return nil, apperr.Store(err)
		}
	}

	token, err := security.NewOpaqueToken()
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "generate invite token", err)
	}
	inv := &domain.Invite{
		ID:             uuid.New().String(),
		Category:       req.Category,
		Email:          email,
		TokenHash:      security.HashToken(token),
		Status:         domain.StatusPending,
		OrganizationID: orgID,
		IssuedBy:       issuer.UserID,
		Role:           strings.TrimSpace(req.Role),
		Metadata:       req.Metadata,
		ExpiresAt:      now.Add(l.ttls.For(req.Category)),
		CreatedAt:      now,
	}
	if err := l.repo.Create(ctx, inv); err != nil {
		if errors.Is(err, repository.ErrPendingExists) {
			return nil, ErrInviteAlreadyPending
		}
		return nil, apperr.Store(err)
	}

	if err := l.notifier.InviteCreated(ctx, notifier.InviteCreated{
		InviteID:       inv.ID,
		Email:          inv.Email,
		Category:       string(inv.Category),
		OrganizationID: inv.OrganizationID,
		IssuedBy:       inv.IssuedBy,
		Token:          token,
		Metadata:       inv.Metadata,
		ExpiresAt:      inv.ExpiresAt,
	}); err != nil {
		l.log.Warn().Err(err).Str("invite_id", inv.ID).Msg("invite notification failed")
	}
	l.metrics.InviteCreated(ctx, string(inv.Category))
	l.audit.LogEvent(ctx, inv.OrganizationID, issuer.UserID, auditdomain.ActionInviteCreated, auditdomain.ResourceInvite, inv.ID)
	return &Created{Invite: inv, Token: token}, nil
}

// Validate returns the invite's details if the token names a pending, unexpired invite. A pending
// invite found past expiry is moved to expired.
func (l *Ledger) Validate(ctx context.Context, token string) (*Details, error) {
	inv, err := l.pending(ctx, token)
	if err != nil {
		return nil, err
	}
	return &Details{
		ID:             inv.ID,
		Email:          inv.Email,
		Category:       inv.Category,
		OrganizationID: inv.OrganizationID,
		Role:           inv.Role,
		Metadata:       inv.Metadata,
		IssuedBy:       inv.IssuedBy,
		ExpiresAt:      inv.ExpiresAt,
	}, nil
}

// Accept moves a pending invite to accepted for newUserID. Only one caller can win.
func (l *Ledger) Accept(ctx context.Context, token, newUserID string) error {
	inv, err := l.pending(ctx, token)
	if err != nil {
		return err
	}
	ok, err := l.repo.Transition(ctx, inv.ID, domain.StatusAccepted, newUserID, l.now())
	if err != nil {
		return apperr.Store(err)
	}
	if !ok {
		return ErrInviteNotPending
	}
	l.audit.LogEvent(ctx, inv.OrganizationID, newUserID, auditdomain.ActionInviteAccepted, auditdomain.ResourceInvite, inv.ID)
	return nil
}

// Revoke moves a pending invite to revoked if the policy allows revoker to.
func (l *Ledger) Revoke(ctx context.Context, token string, revoker rbac.Subject) error {
	inv, err := l.lookup(ctx, token)
	if err != nil {
		return err
	}
	role, err := l.actorRole(ctx, revoker, inv.OrganizationID, false)
	if err != nil {
		return err
	}
	allowed, err := l.policy.CanRevoke(ctx, engine.InviteInput{
		Actor:  engine.Actor{ID: revoker.UserID, Category: string(revoker.Category), OrgRole: role.String()},
		Invite: engine.InviteFacts{Category: string(inv.Category), OrganizationID: inv.OrganizationID, IssuedBy: inv.IssuedBy},
	})
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "invite policy evaluation failed", err)
	}
	if !allowed {
		return ErrUnauthorized
	}
	if inv.Status != domain.StatusPending {
		return ErrInviteNotPending
	}
	ok, err := l.repo.Transition(ctx, inv.ID, domain.StatusRevoked, revoker.UserID, l.now())
	if err != nil {
		return apperr.Store(err)
	}
	if !ok {
		return ErrInviteNotPending
	}
	l.audit.LogEvent(ctx, inv.OrganizationID, revoker.UserID, auditdomain.ActionInviteRevoked, auditdomain.ResourceInvite, inv.ID)
	return nil
}

// SweepExpired moves every pending invite past expiry to expired.
func (l *Ledger) SweepExpired(ctx context.Context) (int64, error) {
	n, err := l.repo.ExpireStale(ctx, l.now())
	if err != nil {
		return 0, apperr.Store(err)
	}
	return n, nil
}

func (l *Ledger) lookup(ctx context.Context, token string) (*domain.Invite, error) {
	if token == "" {
		return nil, ErrInviteNotFound
	}
	inv, err := l.repo.GetByTokenHash(ctx, security.HashToken(token))
	if err != nil {
		return nil, apperr.Store(err)
	}
	if inv == nil {
		return nil, ErrInviteNotFound
	}
	return inv, nil
}

func (l *Ledger) pending(ctx context.Context, token string) (*domain.Invite, error) {
	inv, err := l.lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	switch inv.Status {
	case domain.StatusPending:
	case domain.StatusExpired:
		return nil, ErrInviteExpired
	default:
		return nil, ErrInviteNotPending
	}
	if inv.PastExpiry(l.now()) {
		if _, err := l.repo.Transition(ctx, inv.ID, domain.StatusExpired, "", l.now()); err != nil {
			l.log.Warn().Err(err).Str("invite_id", inv.ID).Msg("expire invite failed")
		}
		return nil, ErrInviteExpired
	}
	return inv, nil
}

// actorRole resolves the actor's role in orgID for the policy input. Invites without an
// organization resolve to none. When strict is false an unknown or inactive organization also
// resolves to none, so revocation of orphaned invites is still decided by category rules.
func (l *Ledger) actorRole(ctx context.Context, actor rbac.Subject, orgID string, strict bool) (rbac.Role, error) {
	if orgID == "" {
		return rbac.RoleNone, nil
	}
	role, err := l.roles.Resolve(ctx, actor, orgID)
	if errors.Is(err, rbac.ErrOrganizationNotFoundOrInactive) && !strict {
		return rbac.RoleNone, nil
	}
	return role, err
}
