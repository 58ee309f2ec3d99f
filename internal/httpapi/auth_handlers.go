package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	identityservice "referral-network-hub/backend/internal/identity/service"
	"referral-network-hub/backend/internal/server/interceptors"
	sessiondomain "referral-network-hub/backend/internal/session/domain"
	userdomain "referral-network-hub/backend/internal/user/domain"
)

type profileFields struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

func (p profileFields) profile() userdomain.Profile {
	return userdomain.Profile{FirstName: p.FirstName, LastName: p.LastName, Phone: p.Phone}
}

type registerRequest struct {
	Category string `json:"category"`
	Email    string `json:"email"`
	Password string `json:"password"`
	profileFields
}

type inviteRegisterRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
	profileFields
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type userResponse struct {
	ID             string `json:"id"`
	Category       string `json:"category"`
	Email          string `json:"email"`
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	EmailVerified  bool   `json:"email_verified"`
	OrganizationID string `json:"organization_id,omitempty"`
}

type tokensResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiresAt    time.Time `json:"expires_at"`
	SessionID    string    `json:"session_id,omitempty"`
}

type authResponse struct {
	User   userResponse    `json:"user"`
	Tokens *tokensResponse `json:"tokens,omitempty"`
}

type identityResponse struct {
	UserID         string `json:"user_id"`
	Category       string `json:"category"`
	Email          string `json:"email"`
	OrganizationID string `json:"organization_id,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
}

type sessionResponse struct {
	ID             string    `json:"id"`
	Browser        string    `json:"browser,omitempty"`
	OS             string    `json:"os,omitempty"`
	DeviceType     string    `json:"device_type,omitempty"`
	IPAddress      string    `json:"ip_address,omitempty"`
	LoginAt        time.Time `json:"login_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	Current        bool      `json:"current"`
}

func toUser(u *userdomain.User) userResponse {
	return userResponse{
		ID:             u.ID,
		Category:       string(u.Category),
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		EmailVerified:  u.EmailVerified,
		OrganizationID: u.OrganizationID,
	}
}

func toTokens(p *identityservice.TokenPair) *tokensResponse {
	if p == nil {
		return nil
	}
	return &tokensResponse{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    p.ExpiresIn,
		ExpiresAt:    p.AccessExpiresAt,
		SessionID:    p.SessionID,
	}
}

func toAuth(res *identityservice.AuthResult) authResponse {
	return authResponse{User: toUser(res.User), Tokens: toTokens(res.Tokens)}
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondError(w, err)
		return
	}
	res, err := a.gateway.Register(r.Context(), identityservice.RegisterRequest{
		Category: userdomain.Category(req.Category),
		Email:    req.Email,
		Password: req.Password,
		Profile:  req.profile(),
		Client:   clientInfo(r),
	})
	if err != nil {
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toAuth(res))
}

func (a *API) handleRegisterInvite(w http.ResponseWriter, r *http.Request) {
	var req inviteRegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondError(w, err)
		return
	}
	res, err := a.gateway.RegisterViaInvite(r.Context(), identityservice.InviteRegisterRequest{
		Token:    req.Token,
		Password: req.Password,
		Profile:  req.profile(),
		Client:   clientInfo(r),
	})
	if err != nil {
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toAuth(res))
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondError(w, err)
		return
	}
	res, err := a.gateway.Login(r.Context(), identityservice.LoginRequest{Email: req.Email, Password: req.Password, Client: clientInfo(r)})
	if err != nil {
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toAuth(res))
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondError(w, err)
		return
	}
	pair, err := a.gateway.Refresh(r.Context(), req.RefreshToken, clientInfo(r))
	if err != nil {
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toTokens(pair))
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	id, _ := interceptors.IdentityFrom(r.Context())
	if err := a.gateway.Logout(r.Context(), id.UserID, id.SessionID); err != nil {
		a.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := interceptors.IdentityFrom(r.Context())
	respondJSON(w, http.StatusOK, identityResponse{
		UserID:         id.UserID,
		Category:       string(id.Category),
		Email:          id.Email,
		OrganizationID: id.OrganizationID,
		SessionID:      id.SessionID,
	})
}

func (a *API) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	id, _ := interceptors.IdentityFrom(r.Context())
	if err := a.gateway.InvalidateAll(r.Context(), id.UserID); err != nil {
		a.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondError(w, err)
		return
	}
	id, _ := interceptors.IdentityFrom(r.Context())
	if err := a.gateway.ChangePassword(r.Context(), id.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		a.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleSessions(w http.ResponseWriter, r *http.Request) {
	id, _ := interceptors.IdentityFrom(r.Context())
	list, err := a.gateway.ListSessions(r.Context(), id.UserID)
	if err != nil {
		a.respondError(w, err)
		return
	}
	out := make([]sessionResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toSession(s, id.SessionID))
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func toSession(s *sessiondomain.Session, current string) sessionResponse {
	return sessionResponse{
		ID:             s.ID,
		Browser:        s.Device.Browser,
		OS:             s.Device.OS,
		DeviceType:     s.Device.DeviceType,
		IPAddress:      s.IPAddress,
		LoginAt:        s.LoginAt,
		LastActivityAt: s.LastActivityAt,
		ExpiresAt:      s.ExpiresAt,
		Current:        s.ID == current,
	}
}

func (a *API) handleRole(w http.ResponseWriter, r *http.Request) {
	id, _ := interceptors.IdentityFrom(r.Context())
	orgID := chi.URLParam(r, "orgID")
	role, err := a.gateway.ResolveTenantRole(r.Context(), id, orgID)
	if err != nil {
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"organization_id": orgID, "role": role.String()})
}
