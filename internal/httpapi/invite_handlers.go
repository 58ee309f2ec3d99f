package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	invitedomain "referral-network-hub/backend/internal/invite/domain"
	inviteservice "referral-network-hub/backend/internal/invite/service"
	"referral-network-hub/backend/internal/server/interceptors"
)

type createInviteRequest struct {
	Email          string            `json:"email"`
	Category       string            `json:"category"`
	OrganizationID string            `json:"organization_id"`
	Role           string            `json:"role"`
	Metadata       map[string]string `json:"metadata"`
}

type createdInviteResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Category  string    `json:"category"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type inviteDetailsResponse struct {
	ID             string            `json:"id"`
	Email          string            `json:"email"`
	Category       string            `json:"category"`
	OrganizationID string            `json:"organization_id,omitempty"`
	Role           string            `json:"role,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	ExpiresAt      time.Time         `json:"expires_at"`
}

func (a *API) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	var req createInviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.respondError(w, err)
		return
	}
	id, _ := interceptors.IdentityFrom(r.Context())
	created, err := a.invites.CreateInvite(r.Context(), id.Subject(), inviteservice.CreateRequest{
		Email:          req.Email,
		Category:       invitedomain.Category(req.Category),
		OrganizationID: req.OrganizationID,
		Role:           req.Role,
		Metadata:       req.Metadata,
	})
	if err != nil {
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, createdInviteResponse{
		ID:        created.Invite.ID,
		Email:     created.Invite.Email,
		Category:  string(created.Invite.Category),
		Token:     created.Token,
		ExpiresAt: created.Invite.ExpiresAt,
	})
}

func (a *API) handleGetInvite(w http.ResponseWriter, r *http.Request) {
	d, err := a.invites.Validate(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		a.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, inviteDetailsResponse{
		ID:             d.ID,
		Email:          d.Email,
		Category:       string(d.Category),
		OrganizationID: d.OrganizationID,
		Role:           d.Role,
		Metadata:       d.Metadata,
		ExpiresAt:      d.ExpiresAt,
	})
}

func (a *API) handleRevokeInvite(w http.ResponseWriter, r *http.Request) {
	id, _ := interceptors.IdentityFrom(r.Context())
	if err := a.invites.Revoke(r.Context(), chi.URLParam(r, "token"), id.Subject()); err != nil {
		a.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
