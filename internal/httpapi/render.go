package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"referral-network-hub/backend/internal/platform/apperr"
)

var errBadBody = apperr.New(apperr.CodeValidation, "invalid request body")

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return apperr.Wrap(apperr.CodeValidation, errBadBody.Message, err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError renders err from the stable code table. Causes are logged, never returned.
func (a *API) respondError(w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	code := apperr.CodeOf(err)
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		a.log.Error().Err(err).Str("code", string(code)).Msg("request failed")
	}
	if code.Retryable() {
		w.Header().Set("Retry-After", "1")
	}
	respondJSON(w, status, errorBody{Code: string(code), Message: apperr.PublicMessage(err)})
}
