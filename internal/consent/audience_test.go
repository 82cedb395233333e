package consent

import (
	"context"
	"testing"

	"consentdesk/internal/membership"
)

func TestAudience_UnrestrictedIsEmpty(t *testing.T) {
	r := NewAudienceResolver(membership.NewMemoryRoster())

	aud, err := r.Resolve(context.Background(), Document{
		TenantID: "tn",
		Target:   TargetRule{Kind: TargetUnrestricted},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(aud) != 0 {
		t.Fatalf("expected empty audience, got %v", aud)
	}
}

func TestAudience_GroupDistinctGuardians(t *testing.T) {
	roster := membership.NewMemoryRoster()
	// Three members; guardian A covers two of them.
	roster.AddGroupMember("tn", "g1", "m1")
	roster.AddGroupMember("tn", "g1", "m2")
	roster.AddGroupMember("tn", "g1", "m3")
	roster.AddGuardian("tn", "m1", "A")
	roster.AddGuardian("tn", "m2", "A")
	roster.AddGuardian("tn", "m2", "B")
	roster.AddGuardian("tn", "m3", "C")

	r := NewAudienceResolver(roster)
	doc := Document{TenantID: "tn", Target: TargetRule{Kind: TargetGroup, GroupID: "g1"}}

	aud, err := r.Resolve(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(aud) != 3 {
		t.Fatalf("expected audience {A,B,C}, got %v", aud)
	}
	for _, id := range []string{"A", "B", "C"} {
		if _, ok := aud[id]; !ok {
			t.Fatalf("expected %s in audience", id)
		}
	}
}

func TestAudience_RecomputeIsIdempotent(t *testing.T) {
	roster := membership.NewMemoryRoster()
	roster.AddUserWithRole("tn", "teacher", "t1")
	roster.AddUserWithRole("tn", "teacher", "t2")

	r := NewAudienceResolver(roster)
	doc := Document{TenantID: "tn", Target: TargetRule{Kind: TargetRole, Role: "teacher"}}

	first, err := r.Resolve(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	second, err := r.Resolve(context.Background(), doc)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("expected identical sets, got %v vs %v", first, second)
	}
	for id := range first {
		if _, ok := second[id]; !ok {
			t.Fatalf("expected %s in both sets", id)
		}
	}
}

func TestAudience_EmptyGroupIsValid(t *testing.T) {
	roster := membership.NewMemoryRoster()
	roster.AddGroup("tn", "empty")

	r := NewAudienceResolver(roster)
	doc := Document{TenantID: "tn", Target: TargetRule{Kind: TargetGroup, GroupID: "empty"}}

	aud, err := r.Resolve(context.Background(), doc)
	if err != nil {
		t.Fatalf("expected empty group to resolve without error, got %v", err)
	}
	if len(aud) != 0 {
		t.Fatalf("expected empty audience, got %v", aud)
	}
}
