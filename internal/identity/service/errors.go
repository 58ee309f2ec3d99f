package service

import "referral-network-hub/backend/internal/platform/apperr"

// Sentinel errors for the auth gateway and token issuer; transports map them by code.
var (
	ErrInvalidCredentials     = apperr.New(apperr.CodeInvalidCredentials, "invalid email or password")
	ErrOAuthOnlyAccount       = apperr.New(apperr.CodeOAuthOnlyAccount, "account signs in with an external provider")
	ErrAccountInactive        = apperr.New(apperr.CodeAccountInactive, "account is inactive")
	ErrAccountBlocked         = apperr.New(apperr.CodeAccountBlocked, "account is blocked")
	ErrEmailUnverified        = apperr.New(apperr.CodeEmailUnverified, "email address not verified")
	ErrEmailAlreadyRegistered = apperr.New(apperr.CodeEmailTaken, "email already registered")
	ErrInvalidEmail           = apperr.New(apperr.CodeInvalidEmail, "invalid email")
	ErrCategoryNotAllowed     = apperr.New(apperr.CodeForbidden, "this account type cannot self-register")
	ErrUserNotFound           = apperr.New(apperr.CodeUserNotFound, "user not found")

	ErrMissingToken         = apperr.New(apperr.CodeMissingToken, "missing bearer token")
	ErrInvalidToken         = apperr.New(apperr.CodeInvalidToken, "invalid token")
	ErrInvalidRefreshToken  = apperr.New(apperr.CodeInvalidToken, "invalid refresh token")
	ErrRefreshTokenExpired  = apperr.New(apperr.CodeTokenExpired, "refresh token expired")
	ErrRefreshTokenRevoked  = apperr.New(apperr.CodeTokenRevoked, "refresh token revoked")
	ErrTokenRevoked         = apperr.New(apperr.CodeTokenRevoked, "token revoked")
	ErrTokenVersionMismatch = apperr.New(apperr.CodeTokenVersionMismatch, "token no longer valid")

	ErrSessionNotFound = apperr.New(apperr.CodeSessionNotFound, "session not found")
	ErrSessionExpired  = apperr.New(apperr.CodeSessionExpired, "session expired")
)

// weakPassword reports a password policy failure with a specific message.
func weakPassword(msg string) error {
	return apperr.New(apperr.CodeValidation, msg)
}

// revokedReuse is returned when a revoked refresh token is presented. It reads as the generic
// INVALID_TOKEN to clients and still matches ErrRefreshTokenRevoked with errors.Is.
func revokedReuse() error {
	return apperr.Wrap(apperr.CodeInvalidToken, "invalid refresh token", ErrRefreshTokenRevoked)
}
