// Package notifier hands newly issued invites to the out-of-band delivery pipeline (email sender).
package notifier

import (
	"context"
	"time"
)

// EventInviteCreated is the event type written for a newly issued invite.
const EventInviteCreated = "invite.created"

// InviteCreated is the delivery payload. Token is the raw invite token and must only travel to the
// delivery pipeline; it is never logged.
type InviteCreated struct {
	Type           string            `json:"type"`
	InviteID       string            `json:"invite_id"`
	Email          string            `json:"email"`
	Category       string            `json:"category"`
	OrganizationID string            `json:"organization_id,omitempty"`
	IssuedBy       string            `json:"issued_by"`
	Token          string            `json:"token"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	ExpiresAt      time.Time         `json:"expires_at"`
}

// Notifier delivers invite events. Callers use it best-effort: log and ignore errors.
type Notifier interface {
	InviteCreated(ctx context.Context, ev InviteCreated) error
	// Close releases resources. Safe to call if already closed.
	Close() error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) InviteCreated(context.Context, InviteCreated) error { return nil }
func (Nop) Close() error                                       { return nil }
