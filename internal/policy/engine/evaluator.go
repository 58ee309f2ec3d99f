package engine

import "context"

// Actor is the user attempting to issue or revoke an invite. OrgRole is the actor's role resolved
// in the invite's organization, or "none".
type Actor struct {
	ID       string
	Category string
	OrgRole  string
}

// InviteFacts describes the invite being issued or revoked.
type InviteFacts struct {
	Category       string
	OrganizationID string
	IssuedBy       string
}

// InviteInput is the policy input document.
type InviteInput struct {
	Actor  Actor
	Invite InviteFacts
}

// InviteDecider decides invite issuance and revocation.
type InviteDecider interface {
	CanIssue(ctx context.Context, in InviteInput) (bool, error)
	CanRevoke(ctx context.Context, in InviteInput) (bool, error)
}
