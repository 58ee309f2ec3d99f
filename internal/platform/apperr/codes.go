// Package apperr provides the stable machine-readable error codes returned by the auth API.
package apperr

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Code is a machine-readable error code. Values are part of the public API and must not change.
type Code string

const (
	CodeInternal         Code = "INTERNAL"
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
	CodeValidation       Code = "VALIDATION_FAILED"

	// Credential errors
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeOAuthOnlyAccount   Code = "OAUTH_ONLY_ACCOUNT"

	// Token errors
	CodeMissingToken          Code = "MISSING_TOKEN"
	CodeInvalidToken          Code = "INVALID_TOKEN"
	CodeTokenExpired          Code = "TOKEN_EXPIRED"
	CodeTokenMalformed        Code = "TOKEN_MALFORMED"
	CodeTokenSignatureInvalid Code = "TOKEN_SIGNATURE_INVALID"
	CodeTokenRevoked          Code = "TOKEN_REVOKED"
	CodeTokenVersionMismatch  Code = "TOKEN_VERSION_MISMATCH"

	// Account state errors
	CodeUserNotFound    Code = "USER_NOT_FOUND"
	CodeAccountInactive Code = "ACCOUNT_INACTIVE"
	CodeAccountBlocked  Code = "ACCOUNT_BLOCKED"
	CodeEmailUnverified Code = "EMAIL_UNVERIFIED"

	// Session errors
	CodeSessionNotFound Code = "SESSION_NOT_FOUND"
	CodeSessionExpired  Code = "SESSION_EXPIRED"

	// Invite errors
	CodeInviteNotFound       Code = "INVITE_NOT_FOUND"
	CodeInviteExpired        Code = "INVITE_EXPIRED"
	CodeInviteNotPending     Code = "INVITE_NOT_PENDING"
	CodeInviteAlreadyPending Code = "INVITE_ALREADY_PENDING"
	CodeEmailTaken           Code = "EMAIL_TAKEN"
	CodeInvalidEmail         Code = "INVALID_EMAIL"

	// Authorization errors
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"

	// Tenant errors
	CodeOrganizationNotFoundOrInactive Code = "ORGANIZATION_NOT_FOUND_OR_INACTIVE"
)

// HTTPStatus maps a code to the HTTP status returned by the JSON API.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation, CodeInvalidEmail:
		return http.StatusBadRequest
	case CodeInvalidCredentials,
		CodeOAuthOnlyAccount,
		CodeMissingToken,
		CodeInvalidToken,
		CodeTokenExpired,
		CodeTokenMalformed,
		CodeTokenSignatureInvalid,
		CodeTokenRevoked,
		CodeTokenVersionMismatch,
		CodeUserNotFound,
		CodeSessionNotFound,
		CodeSessionExpired:
		return http.StatusUnauthorized
	case CodeAccountInactive, CodeAccountBlocked, CodeEmailUnverified, CodeUnauthorized, CodeForbidden:
		return http.StatusForbidden
	case CodeInviteNotFound, CodeOrganizationNotFoundOrInactive:
		return http.StatusNotFound
	case CodeInviteAlreadyPending, CodeEmailTaken:
		return http.StatusConflict
	case CodeInviteExpired, CodeInviteNotPending:
		return http.StatusGone
	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GRPCCode maps a code to a gRPC status code.
func (c Code) GRPCCode() codes.Code {
	switch c.HTTPStatus() {
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusUnauthorized:
		return codes.Unauthenticated
	case http.StatusForbidden:
		return codes.PermissionDenied
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusConflict:
		return codes.AlreadyExists
	case http.StatusGone:
		return codes.FailedPrecondition
	case http.StatusServiceUnavailable:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// Retryable reports whether the caller's transport may retry the same request unchanged.
// Only storage availability failures are retryable; verification failures need new credentials.
func (c Code) Retryable() bool {
	return c == CodeStoreUnavailable
}
