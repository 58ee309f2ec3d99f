// Package service is the auth gateway: the only entry point transports call for registration,
// login, token refresh, logout and per-request authentication.
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
	inviteservice "referral-network-hub/backend/internal/invite/service"
	membershipdomain "referral-network-hub/backend/internal/membership/domain"
	membershiprepo "referral-network-hub/backend/internal/membership/repository"
	"referral-network-hub/backend/internal/platform/apperr"
	"referral-network-hub/backend/internal/platform/rbac"
	"referral-network-hub/backend/internal/security"
	sessiondomain "referral-network-hub/backend/internal/session/domain"
	sessionservice "referral-network-hub/backend/internal/session/service"
	telemetryotel "referral-network-hub/backend/internal/telemetry/otel"
	userdomain "referral-network-hub/backend/internal/user/domain"
	userrepo "referral-network-hub/backend/internal/user/repository"
)

// DefaultRequestTimeout bounds every gateway operation when none is configured.
const DefaultRequestTimeout = 5 * time.Second

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID         string
	Category       userdomain.Category
	Email          string
	OrganizationID string
	SessionID      string // empty for session-exempt users
}

// Subject returns the identity as an rbac subject.
func (i *Identity) Subject() rbac.Subject {
	return rbac.Subject{UserID: i.UserID, Category: i.Category}
}

// AuthResult is returned by registration and login. Tokens is nil when the account must verify
// its email before it can sign in.
type AuthResult struct {
	User   *userdomain.User
	Tokens *TokenPair
}

// RegisterRequest is a public self-registration.
type RegisterRequest struct {
	Category userdomain.Category
	Email    string
	Password string
	Profile  userdomain.Profile
	Client   ClientInfo
}

// InviteRegisterRequest registers the invited email with the invite's category.
type InviteRegisterRequest struct {
	Token    string
	Password string
	Profile  userdomain.Profile
	Client   ClientInfo
}

// LoginRequest is an email and password sign-in.
type LoginRequest struct {
	Email    string
	Password string
	Client   ClientInfo
}

// InviteRedeemer is the part of the invite ledger registration uses.
type InviteRedeemer interface {
	Validate(ctx context.Context, token string) (*inviteservice.Details, error)
	Accept(ctx context.Context, token, newUserID string) error
}

// RoleResolver resolves a subject's role in an organization.
type RoleResolver interface {
	Resolve(ctx context.Context, sub rbac.Subject, orgID string) (rbac.Role, error)
}

// Options tune gateway behavior.
type Options struct {
	RequireEmailVerified bool
	RequestTimeout       time.Duration
}

// Deps groups the gateway's collaborators. Audit and Metrics may be nil.
type Deps struct {
	Users       userrepo.Repository
	Memberships membershiprepo.Repository
	Issuer      *TokenIssuer
	Codec       *security.TokenCodec
	Sessions    *sessionservice.Ledger
	Invites     InviteRedeemer
	Roles       RoleResolver
	Hasher      security.PasswordHasher
	Audit       audit.AuditLogger
	Metrics     *telemetryotel.AuthMetrics
}

// AuthService implements the auth gateway operations.
type AuthService struct {
	users       userrepo.Repository
	memberships membershiprepo.Repository
	issuer      *TokenIssuer
	codec       *security.TokenCodec
	sessions    *sessionservice.Ledger
	invites     InviteRedeemer
	roles       RoleResolver
	hasher      security.PasswordHasher
	audit       audit.AuditLogger
	metrics     *telemetryotel.AuthMetrics
	opts        Options
	log         zerolog.Logger
	now         func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(d Deps, opts Options, logger zerolog.Logger) *AuthService {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if d.Audit == nil {
		d.Audit = audit.Nop{}
	}
	return &AuthService{
		users:       d.Users,
		memberships: d.Memberships,
		issuer:      d.Issuer,
		codec:       d.Codec,
		sessions:    d.Sessions,
		invites:     d.Invites,
		roles:       d.Roles,
		hasher:      d.Hasher,
		audit:       d.Audit,
		metrics:     d.Metrics,
		opts:        opts,
		log:         logger.With().Str("component", "auth_gateway").Logger(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a job-seeker or referral-provider account and signs it in. Privileged
// categories are only reachable through invites.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	if !req.Category.SelfRegistrable() {
		return nil, ErrCategoryNotAllowed
	}
	u, err := s.createUser(ctx, req.Category, req.Email, req.Password, req.Profile, "", false)
	if err != nil {
		return nil, err
	}
	s.audit.LogEvent(ctx, "", u.ID, auditdomain.ActionRegister, auditdomain.ResourceUser, string(u.Category))
	if s.opts.RequireEmailVerified {
		return &AuthResult{User: u}, nil
	}
	pair, err := s.issuer.IssueTokenPair(ctx, u, req.Client)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u, Tokens: pair}, nil
}

// RegisterViaInvite registers the invited email with the category the invite maps to, accepts
// the invite and grants the matching membership. If the invite can no longer be accepted the new
// user is removed again.
func (s *AuthService) RegisterViaInvite(ctx context.Context, req InviteRegisterRequest) (*AuthResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	inv, err := s.invites.Validate(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	category, ok := inviteservice.UserCategoryFor(inv.Category)
	if !ok {
		return nil, apperr.New(apperr.CodeValidation, "invite category cannot register a user")
	}
	u, err := s.createUser(ctx, category, inv.Email, req.Password, req.Profile, inv.OrganizationID, true)
	if err != nil {
		return nil, err
	}
	if err := s.grantMembership(ctx, inv, u.ID); err != nil {
		s.undoRegistration(ctx, u.ID)
		return nil, apperr.Store(err)
	}
	if err := s.invites.Accept(ctx, req.Token, u.ID); err != nil {
		s.undoRegistration(ctx, u.ID)
		return nil, err
	}
	s.audit.LogEvent(ctx, inv.OrganizationID, u.ID, auditdomain.ActionRegister, auditdomain.ResourceUser, "invite="+inv.ID)
	pair, err := s.issuer.IssueTokenPair(ctx, u, req.Client)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u, Tokens: pair}, nil
}

// Login verifies email and password, checks the account may sign in and issues a token pair.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	u, pair, err := s.login(ctx, req)
	s.recordLogin(ctx, u, pair, err)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u, Tokens: pair}, nil
}

// login returns the matched user alongside any failure so the attempt can be audited.
func (s *AuthService) login(ctx context.Context, req LoginRequest) (*userdomain.User, *TokenPair, error) {
	email := userdomain.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, nil, ErrInvalidCredentials
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, apperr.Store(err)
	}
	if u == nil {
		s.hasher.Burn([]byte(req.Password))
		return nil, nil, ErrInvalidCredentials
	}
	if !u.HasPassword() {
		if u.OAuthProvider != "" {
			return u, nil, ErrOAuthOnlyAccount
		}
		return u, nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(u.PasswordHash, []byte(req.Password)); err != nil {
		return u, nil, ErrInvalidCredentials
	}
	if err := checkEligible(u, s.opts.RequireEmailVerified); err != nil {
		return u, nil, err
	}
	pair, err := s.issuer.IssueTokenPair(ctx, u, req.Client)
	if err != nil {
		return u, nil, err
	}
	return u, pair, nil
}

// Refresh rotates a refresh token. Deadlines fail closed as an invalid token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, client ClientInfo) (*TokenPair, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	pair, err := s.issuer.Rotate(ctx, refreshToken, client)
	if err != nil {
		return nil, failClosed(ctx, err, ErrInvalidRefreshToken)
	}
	return pair, nil
}

// Logout ends one session and revokes its refresh tokens.
func (s *AuthService) Logout(ctx context.Context, userID, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	if err := s.issuer.LogoutSession(ctx, userID, sessionID); err != nil {
		return err
	}
	s.audit.LogEvent(ctx, "", userID, auditdomain.ActionLogout, auditdomain.ResourceSession, sessionID)
	return nil
}

// AuthenticateRequest verifies a bearer access token and returns the caller's identity. The
// token's version must equal the user's current version, the account must be active and, for
// session-tracked categories, the session must be live. Any deadline fails closed.
func (s *AuthService) AuthenticateRequest(ctx context.Context, bearerToken string) (*Identity, error) {
	if bearerToken == "" {
		return nil, ErrMissingToken
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	id, err := s.authenticate(ctx, bearerToken)
	if err != nil {
		return nil, failClosed(ctx, err, ErrInvalidToken)
	}
	return id, nil
}

func (s *AuthService) authenticate(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.codec.VerifyAccessToken(token)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, apperr.Store(err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	version, err := s.issuer.CurrentTokenVersion(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	if !security.IsTokenVersionCurrent(claims.TokenVersion, version) {
		return nil, ErrTokenVersionMismatch
	}
	if err := checkEligible(u, false); err != nil {
		return nil, err
	}
	if u.Category.RequiresSession() {
		if err := s.checkSession(ctx, u.ID, claims.SessionID); err != nil {
			return nil, err
		}
	}
	return &Identity{
		UserID:         u.ID,
		Category:       u.Category,
		Email:          u.Email,
		OrganizationID: u.OrganizationID,
		SessionID:      claims.SessionID,
	}, nil
}

func (s *AuthService) checkSession(ctx context.Context, userID, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidToken
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return apperr.Store(err)
	}
	if sess == nil || sess.UserID != userID {
		return ErrSessionNotFound
	}
	switch {
	case sess.Status == sessiondomain.StatusLoggedOut || sess.Status == sessiondomain.StatusRevoked:
		return ErrTokenRevoked
	case !s.sessions.IsActive(sess):
		return ErrSessionExpired
	}
	if err := s.sessions.Touch(ctx, sessionID); err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID).Msg("session touch failed")
	}
	return nil
}

// ResolveTenantRole returns the authenticated caller's role in orgID.
func (s *AuthService) ResolveTenantRole(ctx context.Context, id *Identity, orgID string) (rbac.Role, error) {
	if id == nil {
		return rbac.RoleNone, ErrMissingToken
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()
	return s.roles.Resolve(ctx, id.Subject(), orgID)
}

// ChangePassword replaces the password after verifying the current one, then invalidates every
// outstanding token of the user.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return apperr.Store(err)
	}
	if u == nil {
		return ErrUserNotFound
	}
	if !u.HasPassword() {
		return ErrOAuthOnlyAccount
	}
	if err := s.hasher.Compare(u.PasswordHash, []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	hashed, err := s.hasher.Hash([]byte(next))
	if err != nil {
		return apperr.Wrap(apperr.CodeInternal, "hash password", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hashed, s.now()); err != nil {
		return apperr.Store(err)
	}
	if _, err := s.issuer.InvalidateAll(ctx, userID); err != nil {
		return err
	}
	s.audit.LogEvent(ctx, "", userID, auditdomain.ActionPasswordChanged, auditdomain.ResourceUser, "")
	return nil
}

// InvalidateAll revokes every outstanding token of the user in one step.
func (s *AuthService) InvalidateAll(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	v, err := s.issuer.InvalidateAll(ctx, userID)
	if err != nil {
		return err
	}
	s.log.Info().Str("user_id", userID).Int64("token_version", v).Msg("all tokens invalidated")
	s.audit.LogEvent(ctx, "", userID, auditdomain.ActionInvalidateAll, auditdomain.ResourceAuthentication, "")
	return nil
}

// ListSessions returns the user's live sessions, least recently active first.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]*sessiondomain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	list, err := s.sessions.ActiveSessions(ctx, userID)
	if err != nil {
		return nil, apperr.Store(err)
	}
	return list, nil
}

func (s *AuthService) createUser(ctx context.Context, category userdomain.Category, email, password string, p userdomain.Profile, orgID string, verified bool) (*userdomain.User, error) {
	email = userdomain.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Store(err)
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "hash password", err)
	}
	now := s.now()
	u := &userdomain.User{
		ID:             uuid.New().String(),
		Category:       category,
		Email:          email,
		PasswordHash:   hashed,
		FirstName:      strings.TrimSpace(p.FirstName),
		LastName:       strings.TrimSpace(p.LastName),
		Phone:          strings.TrimSpace(p.Phone),
		IsActive:       true,
		EmailVerified:  verified,
		OrganizationID: orgID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := u.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, err.Error(), err)
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrEmailTaken) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, apperr.Store(err)
	}
	return u, nil
}

func (s *AuthService) grantMembership(ctx context.Context, inv *inviteservice.Details, userID string) error {
	kind, ok := inv.Category.MembershipKind()
	if !ok || inv.OrganizationID == "" {
		return nil
	}
	return s.memberships.Grant(ctx, &membershipdomain.Membership{
		ID:        uuid.New().String(),
		Kind:      kind,
		UserID:    userID,
		OrgID:     inv.OrganizationID,
		IsActive:  true,
		CreatedAt: s.now(),
	})
}

func (s *AuthService) undoRegistration(ctx context.Context, userID string) {
	if err := s.users.Delete(context.WithoutCancel(ctx), userID); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("rollback of invite registration failed")
	}
}

func (s *AuthService) recordLogin(ctx context.Context, u *userdomain.User, pair *TokenPair, err error) {
	var userID, orgID string
	if u != nil {
		userID, orgID = u.ID, u.OrganizationID
	}
	if err != nil {
		code := string(apperr.CodeOf(err))
		s.metrics.Login(ctx, code)
		s.audit.LogEvent(ctx, orgID, userID, auditdomain.ActionLoginFailure, auditdomain.ResourceAuthentication, code)
		return
	}
	s.metrics.Login(ctx, "success")
	s.audit.LogEvent(ctx, orgID, userID, auditdomain.ActionLoginSuccess, auditdomain.ResourceAuthentication, pair.SessionID)
}

// failClosed turns a deadline or cancellation into the given invalid-token error so a slow store
// never authenticates a caller.
func failClosed(ctx context.Context, err, invalid error) error {
	if apperr.IsDeadline(err) || ctx.Err() != nil {
		return apperr.Wrap(apperr.CodeOf(invalid), apperr.PublicMessage(invalid), err)
	}
	return err
}
