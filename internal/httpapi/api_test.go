package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identityservice "referral-network-hub/backend/internal/identity/service"
	invitedomain "referral-network-hub/backend/internal/invite/domain"
	inviteservice "referral-network-hub/backend/internal/invite/service"
	"referral-network-hub/backend/internal/platform/apperr"
	"referral-network-hub/backend/internal/platform/rbac"
	sessiondomain "referral-network-hub/backend/internal/session/domain"
	userdomain "referral-network-hub/backend/internal/user/domain"
)

type fakeGateway struct {
	identity *identityservice.Identity
	authErr  error
	err      error

	gotRegister identityservice.RegisterRequest
	gotLogout   [2]string
	gotIP       string
}

func (f *fakeGateway) AuthenticateRequest(ctx context.Context, token string) (*identityservice.Identity, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	if token != "good" {
		return nil, identityservice.ErrInvalidToken
	}
	return f.identity, nil
}

func (f *fakeGateway) Register(ctx context.Context, req identityservice.RegisterRequest) (*identityservice.AuthResult, error) {
	f.gotRegister = req
	if f.err != nil {
		return nil, f.err
	}
	return &identityservice.AuthResult{
		User:   &userdomain.User{ID: "u1", Category: req.Category, Email: req.Email},
		Tokens: &identityservice.TokenPair{AccessToken: "a", RefreshToken: "r", ExpiresIn: 3600, SessionID: "s1"},
	}, nil
}

func (f *fakeGateway) RegisterViaInvite(ctx context.Context, req identityservice.InviteRegisterRequest) (*identityservice.AuthResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &identityservice.AuthResult{User: &userdomain.User{ID: "u2", Category: userdomain.CategoryEmployeeReferrer}}, nil
}

func (f *fakeGateway) Login(ctx context.Context, req identityservice.LoginRequest) (*identityservice.AuthResult, error) {
	f.gotIP = req.Client.IP
	if f.err != nil {
		return nil, f.err
	}
	return &identityservice.AuthResult{User: &userdomain.User{ID: "u1"}, Tokens: &identityservice.TokenPair{AccessToken: "a"}}, nil
}

func (f *fakeGateway) Refresh(ctx context.Context, token string, client identityservice.ClientInfo) (*identityservice.TokenPair, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &identityservice.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil
}

func (f *fakeGateway) Logout(ctx context.Context, userID, sessionID string) error {
	f.gotLogout = [2]string{userID, sessionID}
	return f.err
}

func (f *fakeGateway) ResolveTenantRole(ctx context.Context, id *identityservice.Identity, orgID string) (rbac.Role, error) {
	if orgID == "missing" {
		return rbac.RoleNone, rbac.ErrOrganizationNotFoundOrInactive
	}
	return rbac.RoleRecruiter, nil
}

func (f *fakeGateway) ChangePassword(ctx context.Context, userID, current, next string) error {
	return f.err
}

func (f *fakeGateway) InvalidateAll(ctx context.Context, userID string) error { return f.err }

func (f *fakeGateway) ListSessions(ctx context.Context, userID string) ([]*sessiondomain.Session, error) {
	return []*sessiondomain.Session{{ID: "s1", Device: sessiondomain.Device{Browser: "Firefox"}}, {ID: "s2"}}, nil
}

type fakeInvites struct {
	err        error
	gotIssuer  rbac.Subject
	gotRevoker rbac.Subject
}

func (f *fakeInvites) CreateInvite(ctx context.Context, issuer rbac.Subject, req inviteservice.CreateRequest) (*inviteservice.Created, error) {
	f.gotIssuer = issuer
	if f.err != nil {
		return nil, f.err
	}
	return &inviteservice.Created{
		Invite: &invitedomain.Invite{ID: "i1", Email: req.Email, Category: req.Category, ExpiresAt: time.Now().Add(time.Hour)},
		Token:  "raw-token",
	}, nil
}

func (f *fakeInvites) Validate(ctx context.Context, token string) (*inviteservice.Details, error) {
	if token != "raw-token" {
		return nil, inviteservice.ErrInviteNotFound
	}
	return &inviteservice.Details{ID: "i1", Email: "e@acme.test", Category: invitedomain.CategoryEmployee}, nil
}

func (f *fakeInvites) Revoke(ctx context.Context, token string, revoker rbac.Subject) error {
	f.gotRevoker = revoker
	return f.err
}

type fakeReadiness struct{ err error }

func (f fakeReadiness) Ready(context.Context) error { return f.err }

type fixture struct {
	gw      *fakeGateway
	invites *fakeInvites
	ready   *fakeReadiness
	handler http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		gw:      &fakeGateway{identity: &identityservice.Identity{UserID: "u1", Category: userdomain.CategoryOrganizationAdmin, Email: "u1@acme.test", SessionID: "s1"}},
		invites: &fakeInvites{},
		ready:   &fakeReadiness{},
	}
	api := New(Deps{Gateway: f.gw, Invites: f.invites, Readiness: f.ready, Registry: prometheus.NewRegistry(), Logger: zerolog.Nop()})
	f.handler = api.Routes()
	return f
}

func (f *fixture) do(method, path, body, auth string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRegister_Created(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/v1/auth/register", `{"category":"job_seeker","email":"a@example.com","password":"pw","first_name":"Ann"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var body authResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "u1", body.User.ID)
	require.NotNil(t, body.Tokens)
	assert.Equal(t, "Bearer", body.Tokens.TokenType)
	assert.Equal(t, int64(3600), body.Tokens.ExpiresIn)
	assert.Equal(t, "Ann", f.gw.gotRegister.Profile.FirstName)
	assert.Equal(t, userdomain.CategoryJobSeeker, f.gw.gotRegister.Category)
}

func TestRegister_BadBody(t *testing.T) {
	f := newFixture()
	for _, body := range []string{`{`, `{"unknown":1}`} {
		rec := f.do(http.MethodPost, "/v1/auth/register", body, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(apperr.CodeValidation), decodeError(t, rec).Code)
	}
}

func TestErrorMapping(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   apperr.Code
	}{
		{"bad credentials", identityservice.ErrInvalidCredentials, http.StatusUnauthorized, apperr.CodeInvalidCredentials},
		{"blocked", identityservice.ErrAccountBlocked, http.StatusForbidden, apperr.CodeAccountBlocked},
		{"email taken", identityservice.ErrEmailAlreadyRegistered, http.StatusConflict, apperr.CodeEmailTaken},
		{"store down", apperr.Store(errors.New("pq: connection refused")), http.StatusServiceUnavailable, apperr.CodeStoreUnavailable},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, apperr.CodeInternal},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			f.gw.err = tc.err
			rec := f.do(http.MethodPost, "/v1/auth/login", `{"email":"a@example.com","password":"pw"}`, "")
			assert.Equal(t, tc.wantStatus, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, string(tc.wantCode), body.Code)
			assert.NotContains(t, body.Message, "connection refused")
			assert.NotContains(t, body.Message, "boom")
		})
	}
}

func TestStoreErrorSetsRetryAfter(t *testing.T) {
	f := newFixture()
	f.gw.err = apperr.Store(errors.New("down"))
	rec := f.do(http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"r"}`, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestReuseDetectionLooksLikeInvalidToken(t *testing.T) {
	f := newFixture()
	f.gw.err = apperr.Wrap(apperr.CodeInvalidToken, "invalid refresh token", identityservice.ErrRefreshTokenRevoked)
	rec := f.do(http.MethodPost, "/v1/auth/refresh", `{"refresh_token":"r"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "INVALID_TOKEN", body.Code)
	assert.Equal(t, "invalid refresh token", body.Message)
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	f := newFixture()
	for _, auth := range []string{"", "bearer good", "Bearer  good", "Basic good"} {
		rec := f.do(http.MethodGet, "/v1/auth/me", "", auth)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "auth %q", auth)
		assert.Equal(t, "MISSING_TOKEN", decodeError(t, rec).Code)
	}
	rec := f.do(http.MethodGet, "/v1/auth/me", "", "Bearer bad")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", decodeError(t, rec).Code)

	f.gw.authErr = apperr.Store(errors.New("down"))
	rec = f.do(http.MethodGet, "/v1/auth/me", "", "Bearer good")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "a store failure is not a 401")
}

func TestMe(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodGet, "/v1/auth/me", "", "Bearer good")
	require.Equal(t, http.StatusOK, rec.Code)
	var body identityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "u1", body.UserID)
	assert.Equal(t, "s1", body.SessionID)
}

func TestLogoutUsesCallerSession(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/v1/auth/logout", "", "Bearer good")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, [2]string{"u1", "s1"}, f.gw.gotLogout)
}

func TestSessionsMarksCurrent(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodGet, "/v1/auth/sessions", "", "Bearer good")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Sessions []sessionResponse `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Sessions, 2)
	assert.True(t, body.Sessions[0].Current)
	assert.False(t, body.Sessions[1].Current)
	assert.Equal(t, "Firefox", body.Sessions[0].Browser)
}

func TestRole(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodGet, "/v1/orgs/o1/role", "", "Bearer good")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"organization_id":"o1","role":"recruiter"}`, rec.Body.String())

	rec = f.do(http.MethodGet, "/v1/orgs/missing/role", "", "Bearer good")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ORGANIZATION_NOT_FOUND_OR_INACTIVE", decodeError(t, rec).Code)
}

func TestInvites(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/v1/invites", `{"email":"e@acme.test","category":"employee","organization_id":"o1"}`, "Bearer good")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created createdInviteResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "raw-token", created.Token)
	assert.Equal(t, rbac.Subject{UserID: "u1", Category: userdomain.CategoryOrganizationAdmin}, f.invites.gotIssuer)

	rec = f.do(http.MethodGet, "/v1/invites/raw-token", "", "")
	assert.Equal(t, http.StatusOK, rec.Code, "invite lookup is public")
	rec = f.do(http.MethodGet, "/v1/invites/other", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(http.MethodDelete, "/v1/invites/raw-token", "", "Bearer good")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "u1", f.invites.gotRevoker.UserID)

	f.invites.err = inviteservice.ErrUnauthorized
	rec = f.do(http.MethodPost, "/v1/invites", `{"email":"e@acme.test","category":"org_admin","organization_id":"o1"}`, "Bearer good")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture()
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/healthz", "", "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/readyz", "", "").Code)

	f.ready.err = errors.New("postgres: down")
	assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodGet, "/readyz", "", "").Code)

	rec := f.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{code="200",method="GET",route="/healthz"}`)
}

func TestClientIPReachesGateway(t *testing.T) {
	f := newFixture()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(`{"email":"a@example.com","password":"pw"}`))
	req.Header.Set("X-Real-IP", "203.0.113.5")
	f.handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "203.0.113.5", f.gw.gotIP)
}
