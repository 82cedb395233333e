package audit

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory append-only event log useful for tests. Like the
// SQL repository it never mutates or drops an appended event.
type MemoryRepo struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e Event) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns all appended events in append order.
func (r *MemoryRepo) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ByDocument returns the trail of one document within a tenant, in append
// order.
func (r *MemoryRepo) ByDocument(tenantID, documentID string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.TenantID == tenantID && e.DocumentID == documentID {
			out = append(out, e)
		}
	}
	return out
}
