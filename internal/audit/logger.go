package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"referral-network-hub/backend/internal/audit/domain"
	auditrepo "referral-network-hub/backend/internal/audit/repository"
)

// SentinelOrgID stands in for the organization on events not tied to a tenant, such as failed logins.
const SentinelOrgID = "_system"

// IPExtractor reads the caller's address from a request context.
type IPExtractor func(context.Context) string

// AuditLogger records security events. Writes never fail the operation being audited.
type AuditLogger interface {
	LogEvent(ctx context.Context, orgID, userID, action, resource, metadata string)
}

// Logger persists events to the audit_logs table.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	log         zerolog.Logger
	now         func() time.Time
}

// NewLogger returns a Logger over repo. Without an ipExtractor, or when it yields nothing, the
// address is stored as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, logger zerolog.Logger) *Logger {
	return &Logger{
		repo:        repo,
		ipExtractor: ipExtractor,
		log:         logger.With().Str("component", "audit").Logger(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// LogEvent stores one entry on a context detached from the caller's cancellation.
func (l *Logger) LogEvent(ctx context.Context, orgID, userID, action, resource, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	ip := ""
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if ip == "" {
		ip = "unknown"
	}
	if orgID == "" {
		orgID = SentinelOrgID
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		OrgID:     orgID,
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: l.now(),
	}
	if err := l.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		l.log.Warn().Err(err).Str("action", action).Str("resource", resource).Msg("audit write failed")
	}
}

// Nop discards audit events.
type Nop struct{}

func (Nop) LogEvent(context.Context, string, string, string, string, string) {}
