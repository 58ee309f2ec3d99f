package domain

import "time"

// Actions recorded by the auth and invite paths.
const (
	ActionRegister        = "register"
	ActionLoginSuccess    = "login_success"
	ActionLoginFailure    = "login_failure"
	ActionLogout          = "logout"
	ActionRefreshReuse    = "refresh_reuse_detected"
	ActionInvalidateAll   = "invalidate_all"
	ActionPasswordChanged = "password_changed"
	ActionInviteCreated   = "invite_created"
	ActionInviteAccepted  = "invite_accepted"
	ActionInviteRevoked   = "invite_revoked"
)

// Resources audit events are recorded against.
const (
	ResourceAuthentication = "authentication"
	ResourceSession        = "session"
	ResourceInvite         = "invite"
	ResourceUser           = "user"
)

// AuditLog represents an audit event.
type AuditLog struct {
	ID        string
	OrgID     string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}
