package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newPolicy(t *testing.T) *InvitePolicy {
	t.Helper()
	p, err := NewInvitePolicy(context.Background(), "")
	if err != nil {
		t.Fatalf("NewInvitePolicy: %v", err)
	}
	return p
}

func TestInvitePolicy_Issue(t *testing.T) {
	p := newPolicy(t)
	testCases := []struct {
		name   string
		actor  Actor
		invite InviteFacts
		want   bool
	}{
		{"super admin issues platform admin", Actor{"sa", "platform_super_admin", "none"}, InviteFacts{Category: "platform_admin"}, true},
		{"platform admin cannot issue platform admin", Actor{"pa", "platform_admin", "none"}, InviteFacts{Category: "platform_admin"}, false},
		{"super admin issues org admin", Actor{"sa", "platform_super_admin", "none"}, InviteFacts{Category: "org_admin"}, true},
		{"platform admin issues bound org admin", Actor{"pa", "platform_admin", "platform_admin"}, InviteFacts{Category: "org_admin", OrganizationID: "o1"}, true},
		{"org admin cannot issue org admin", Actor{"oa", "organization_admin", "org_admin"}, InviteFacts{Category: "org_admin", OrganizationID: "o1"}, false},
		{"org admin issues recruiter in own org", Actor{"oa", "organization_admin", "org_admin"}, InviteFacts{Category: "org_recruiter", OrganizationID: "o1"}, true},
		{"org admin cannot issue recruiter elsewhere", Actor{"oa", "organization_admin", "none"}, InviteFacts{Category: "org_recruiter", OrganizationID: "o2"}, false},
		{"recruiter invite needs an org", Actor{"oa", "organization_admin", "org_admin"}, InviteFacts{Category: "org_recruiter"}, false},
		{"recruiter cannot issue recruiter", Actor{"r", "org_recruiter", "recruiter"}, InviteFacts{Category: "org_recruiter", OrganizationID: "o1"}, false},
		{"platform admin cannot issue recruiter", Actor{"pa", "platform_admin", "platform_admin"}, InviteFacts{Category: "org_recruiter", OrganizationID: "o1"}, false},
		{"recruiter issues employee in own org", Actor{"r", "org_recruiter", "recruiter"}, InviteFacts{Category: "employee", OrganizationID: "o1"}, true},
		{"org admin issues employee in own org", Actor{"oa", "organization_admin", "org_admin"}, InviteFacts{Category: "employee", OrganizationID: "o1"}, true},
		{"employee cannot issue employee", Actor{"e", "employee_referrer", "employee"}, InviteFacts{Category: "employee", OrganizationID: "o1"}, false},
		{"recruiter cannot issue employee elsewhere", Actor{"r", "org_recruiter", "none"}, InviteFacts{Category: "employee", OrganizationID: "o2"}, false},
		{"job seeker issues nothing", Actor{"js", "job_seeker", "none"}, InviteFacts{Category: "org_admin"}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := p.CanIssue(context.Background(), InviteInput{Actor: tc.actor, Invite: tc.invite})
			if err != nil {
				t.Fatalf("CanIssue: %v", err)
			}
			if got != tc.want {
				t.Errorf("CanIssue = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestInvitePolicy_Revoke(t *testing.T) {
	p := newPolicy(t)
	testCases := []struct {
		name   string
		actor  Actor
		invite InviteFacts
		want   bool
	}{
		{"super admin revokes anything", Actor{"sa", "platform_super_admin", "none"}, InviteFacts{Category: "platform_admin", IssuedBy: "x"}, true},
		{"platform admin revokes org admin invite", Actor{"pa", "platform_admin", "none"}, InviteFacts{Category: "org_admin", IssuedBy: "x"}, true},
		{"platform admin cannot revoke platform admin invite", Actor{"pa", "platform_admin", "none"}, InviteFacts{Category: "platform_admin", IssuedBy: "sa"}, false},
		{"org admin revokes own org invite", Actor{"oa", "organization_admin", "org_admin"}, InviteFacts{Category: "employee", OrganizationID: "o1", IssuedBy: "r"}, true},
		{"org admin of another org", Actor{"oa1", "organization_admin", "none"}, InviteFacts{Category: "org_recruiter", OrganizationID: "o2", IssuedBy: "oa2"}, false},
		{"issuer revokes own invite", Actor{"r", "org_recruiter", "recruiter"}, InviteFacts{Category: "employee", OrganizationID: "o1", IssuedBy: "r"}, true},
		{"recruiter cannot revoke others", Actor{"r", "org_recruiter", "recruiter"}, InviteFacts{Category: "employee", OrganizationID: "o1", IssuedBy: "r2"}, false},
		{"empty actor id never matches", Actor{"", "job_seeker", "none"}, InviteFacts{Category: "employee", IssuedBy: ""}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := p.CanRevoke(context.Background(), InviteInput{Actor: tc.actor, Invite: tc.invite})
			if err != nil {
				t.Fatalf("CanRevoke: %v", err)
			}
			if got != tc.want {
				t.Errorf("CanRevoke = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestInvitePolicy_HealthCheck(t *testing.T) {
	if err := newPolicy(t).HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
}

func TestNewInvitePolicy_RejectsInvalidModule(t *testing.T) {
	if _, err := NewInvitePolicy(context.Background(), "package broken\n\nallow if {"); err == nil {
		t.Error("expected compile error for invalid module")
	}
}

func TestLoadInvitePolicy_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deny.rego")
	deny := "package referral.invites\n\ndefault allow_issue := false\n\ndefault allow_revoke := false\n"
	if err := os.WriteFile(path, []byte(deny), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	p, err := LoadInvitePolicy(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadInvitePolicy: %v", err)
	}
	ok, err := p.CanIssue(context.Background(), InviteInput{
		Actor:  Actor{ID: "sa", Category: "platform_super_admin"},
		Invite: InviteFacts{Category: "platform_admin"},
	})
	if err != nil || ok {
		t.Errorf("deny-all policy: CanIssue = %v, %v", ok, err)
	}
	if _, err := LoadInvitePolicy(context.Background(), filepath.Join(t.TempDir(), "missing.rego")); err == nil {
		t.Error("expected error for missing file")
	}
}
