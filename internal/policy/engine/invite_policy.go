package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/v1/rego"
)

const (
	issueQuery  = "data.referral.invites.allow_issue"
	revokeQuery = "data.referral.invites.allow_revoke"
)

// DefaultInvitePolicy encodes who may invite whom and who may revoke an invite.
const DefaultInvitePolicy = `package referral.invites

default allow_issue := false

default allow_revoke := false

platform_categories := {"platform_super_admin", "platform_admin"}

allow_issue if {
	input.invite.category == "platform_admin"
	input.actor.category == "platform_super_admin"
}

allow_issue if {
	input.invite.category == "org_admin"
	input.actor.category in platform_categories
}

allow_issue if {
	input.invite.category == "org_recruiter"
	input.invite.organization_id != ""
	input.actor.category == "organization_admin"
	input.actor.org_role == "org_admin"
}

allow_issue if {
	input.invite.category == "employee"
	input.invite.organization_id != ""
	input.actor.category in {"organization_admin", "org_recruiter"}
	input.actor.org_role in {"org_admin", "recruiter"}
}

allow_revoke if input.actor.category == "platform_super_admin"

allow_revoke if {
	input.actor.category == "platform_admin"
	input.invite.category != "platform_admin"
}

allow_revoke if {
	input.invite.organization_id != ""
	input.actor.org_role == "org_admin"
}

allow_revoke if {
	input.actor.id != ""
	input.actor.id == input.invite.issued_by
}
`

// InvitePolicy evaluates the invite rules with an in-process OPA engine. Queries are prepared
// once; evaluation errors deny.
type InvitePolicy struct {
	issue  rego.PreparedEvalQuery
	revoke rego.PreparedEvalQuery
}

// NewInvitePolicy compiles module (DefaultInvitePolicy when empty) and prepares both queries.
func NewInvitePolicy(ctx context.Context, module string) (*InvitePolicy, error) {
	if module == "" {
		module = DefaultInvitePolicy
	}
	issue, err := rego.New(rego.Query(issueQuery), rego.Module("invites.rego", module)).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("policy: prepare issue query: %w", err)
	}
	revoke, err := rego.New(rego.Query(revokeQuery), rego.Module("invites.rego", module)).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("policy: prepare revoke query: %w", err)
	}
	return &InvitePolicy{issue: issue, revoke: revoke}, nil
}

// LoadInvitePolicy reads a Rego module from path. An empty path yields the default policy.
func LoadInvitePolicy(ctx context.Context, path string) (*InvitePolicy, error) {
	if path == "" {
		return NewInvitePolicy(ctx, "")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read %s: %w", path, err)
	}
	return NewInvitePolicy(ctx, string(b))
}

func (p *InvitePolicy) CanIssue(ctx context.Context, in InviteInput) (bool, error) {
	return eval(ctx, p.issue, in)
}

func (p *InvitePolicy) CanRevoke(ctx context.Context, in InviteInput) (bool, error) {
	return eval(ctx, p.revoke, in)
}

// HealthCheck evaluates a fixed input to prove the prepared queries still run.
func (p *InvitePolicy) HealthCheck(ctx context.Context) error {
	ok, err := p.CanIssue(ctx, InviteInput{
		Actor:  Actor{ID: "health", Category: "platform_super_admin", OrgRole: "platform_admin"},
		Invite: InviteFacts{Category: "platform_admin"},
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("policy: health input was denied")
	}
	return nil
}

func eval(ctx context.Context, q rego.PreparedEvalQuery, in InviteInput) (bool, error) {
	rs, err := q.Eval(ctx, rego.EvalInput(toInput(in)))
	if err != nil {
		return false, fmt.Errorf("policy: eval: %w", err)
	}
	return rs.Allowed(), nil
}

func toInput(in InviteInput) map[string]interface{} {
	return map[string]interface{}{
		"actor": map[string]interface{}{
			"id":       in.Actor.ID,
			"category": in.Actor.Category,
			"org_role": in.Actor.OrgRole,
		},
		"invite": map[string]interface{}{
			"category":        in.Invite.Category,
			"organization_id": in.Invite.OrganizationID,
			"issued_by":       in.Invite.IssuedBy,
		},
	}
}
