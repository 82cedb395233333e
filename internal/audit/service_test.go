package audit

import (
	"context"
	"testing"
)

func TestService_AppendRequiresTenantAndType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Type: EventTypeAdminAction}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Event{TenantID: "tn"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_AppendsImmutableEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogAdminAction(context.Background(), "tn", "u", "admin", "1.2.3.4", "doc1", "cancelled document", "{}"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	if evs[0].IPAddress != "1.2.3.4" {
		t.Fatalf("expected ip captured")
	}
	if evs[0].Type != EventTypeAdminAction {
		t.Fatalf("expected admin_action")
	}
	if evs[0].DocumentID != "doc1" {
		t.Fatalf("expected document id captured")
	}
}

func TestMemoryRepo_ByDocument(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	_ = svc.LogSignature(context.Background(), "tn", "u1", "guardian", "", "doc1", "sig1")
	_ = svc.LogSignature(context.Background(), "tn", "u2", "guardian", "", "doc2", "sig2")
	_ = svc.LogAdminAction(context.Background(), "tn", "adm", "admin", "", "doc1", "cancelled document", "")
	_ = svc.LogSignature(context.Background(), "other", "u3", "guardian", "", "doc1", "sig3")

	trail := repo.ByDocument("tn", "doc1")
	if len(trail) != 2 {
		t.Fatalf("expected 2 events for doc1, got %d", len(trail))
	}
	if trail[0].Type != EventTypeSignature || trail[1].Type != EventTypeAdminAction {
		t.Fatalf("expected append order preserved, got %+v", trail)
	}
}

func TestService_LogSignature(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogSignature(context.Background(), "tn", "u", "guardian", "", "doc1", "sig1"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	evs := repo.Events()
	if len(evs) != 1 || evs[0].Type != EventTypeSignature || evs[0].SignatureID != "sig1" {
		t.Fatalf("unexpected events: %+v", evs)
	}
}
