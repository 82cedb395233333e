package consent

import (
	"context"
	"testing"

	"consentdesk/internal/membership"
	"consentdesk/internal/rbac"
)

func TestEligibility_ElevatedRolesAlwaysSign(t *testing.T) {
	g := NewEligibilityGuard(membership.NewMemoryRoster())
	doc := Document{TenantID: "tn", Target: TargetRule{Kind: TargetRole, Role: rbac.RoleGuardian}}

	for _, role := range []string{rbac.RoleAdmin, rbac.RoleSuperAdmin, rbac.RoleVerifier} {
		ok, err := g.CanSign(context.Background(), doc, "u", role)
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if !ok {
			t.Fatalf("expected %s to be eligible regardless of rule", role)
		}
	}
}

func TestEligibility_RoleRule(t *testing.T) {
	g := NewEligibilityGuard(membership.NewMemoryRoster())
	doc := Document{TenantID: "tn", Target: TargetRule{Kind: TargetRole, Role: rbac.RoleGuardian}}

	ok, _ := g.CanSign(context.Background(), doc, "u", rbac.RoleGuardian)
	if !ok {
		t.Fatalf("expected matching role to be eligible")
	}
	ok, _ = g.CanSign(context.Background(), doc, "u", rbac.RoleStudent)
	if ok {
		t.Fatalf("expected mismatching role to be ineligible")
	}
}

func TestEligibility_GroupRule(t *testing.T) {
	roster := membership.NewMemoryRoster()
	roster.AddGroupMember("tn", "g1", "kid1")
	roster.AddGuardian("tn", "kid1", "parentA")

	g := NewEligibilityGuard(roster)
	doc := Document{TenantID: "tn", Target: TargetRule{Kind: TargetGroup, GroupID: "g1"}}

	ok, _ := g.CanSign(context.Background(), doc, "parentA", rbac.RoleGuardian)
	if !ok {
		t.Fatalf("expected guardian of active member to be eligible")
	}

	// Self-signing student
	ok, _ = g.CanSign(context.Background(), doc, "kid1", rbac.RoleStudent)
	if !ok {
		t.Fatalf("expected group member to be eligible for themself")
	}

	ok, _ = g.CanSign(context.Background(), doc, "stranger", rbac.RoleGuardian)
	if ok {
		t.Fatalf("expected unrelated user to be ineligible")
	}
}

func TestEligibility_UnrestrictedAllowsTenant(t *testing.T) {
	g := NewEligibilityGuard(membership.NewMemoryRoster())
	doc := Document{TenantID: "tn", Target: TargetRule{Kind: TargetUnrestricted}}

	ok, _ := g.CanSign(context.Background(), doc, "anyone", rbac.RoleStudent)
	if !ok {
		t.Fatalf("expected anyone in tenant to be eligible")
	}
}
