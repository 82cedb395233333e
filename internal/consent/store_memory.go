package consent

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store useful for tests and early development.
// It honors the same semantics as SQLStore: a per-document lock serializes
// Mutate calls, and staged writes are applied only when fn returns nil.
//
// NOTE: This is not intended for production; replace with SQLStore.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]*memDocument // tenant/doc id
}

type memDocument struct {
	mu   sync.Mutex
	doc  Document
	sigs []SignatureRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string]*memDocument{}}
}

func (s *MemoryStore) docKey(tenantID, documentID string) string {
	return tenantID + "/" + documentID
}

func (s *MemoryStore) get(tenantID, documentID string) (*memDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[s.docKey(tenantID, documentID)]
	return d, ok
}

func (s *MemoryStore) InsertDocument(ctx context.Context, doc Document) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[s.docKey(doc.TenantID, doc.ID)] = &memDocument{doc: doc}
	return nil
}

func (s *MemoryStore) GetDocument(ctx context.Context, tenantID, documentID string) (Document, error) {
	_ = ctx
	d, ok := s.get(tenantID, documentID)
	if !ok {
		return Document{}, ErrNotFound
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc, nil
}

func (s *MemoryStore) ListDocuments(ctx context.Context, tenantID string) ([]Document, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Document
	for _, d := range s.docs {
		d.mu.Lock()
		if d.doc.TenantID == tenantID {
			out = append(out, d.doc)
		}
		d.mu.Unlock()
	}
	return out, nil
}

func (s *MemoryStore) ListSignatures(ctx context.Context, tenantID, documentID string) ([]SignatureRecord, error) {
	_ = ctx
	d, ok := s.get(tenantID, documentID)
	if !ok {
		return nil, ErrNotFound
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]SignatureRecord, len(d.sigs))
	copy(out, d.sigs)
	return out, nil
}

func (s *MemoryStore) CountSignatures(ctx context.Context, tenantID, documentID string) (int, error) {
	_ = ctx
	d, ok := s.get(tenantID, documentID)
	if !ok {
		return 0, ErrNotFound
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sigs), nil
}

func (s *MemoryStore) FindSignatureByToken(ctx context.Context, tenantID, token string) (SignatureRecord, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.docs {
		d.mu.Lock()
		if d.doc.TenantID == tenantID {
			for _, sig := range d.sigs {
				if sig.VerificationToken == token {
					d.mu.Unlock()
					return sig, true, nil
				}
			}
		}
		d.mu.Unlock()
	}
	return SignatureRecord{}, false, nil
}

func (s *MemoryStore) Mutate(ctx context.Context, tenantID, documentID string, fn MutateFunc) error {
	d, ok := s.get(tenantID, documentID)
	if !ok {
		return ErrNotFound
	}

	// The per-document lock plays the role of the row lock: concurrent sign
	// attempts on the same document are fully serialized.
	d.mu.Lock()
	defer d.mu.Unlock()

	tx := &memDocumentTx{entry: d, doc: d.doc}
	if err := fn(ctx, tx); err != nil {
		return err // staged writes discarded
	}
	tx.apply()
	return nil
}

type memDocumentTx struct {
	entry *memDocument
	doc   Document

	stagedSigs  []SignatureRecord
	stagedState *DocumentState
	completedAt *time.Time
	updatedAt   time.Time
}

func (t *memDocumentTx) Document() Document { return t.doc }

func (t *memDocumentTx) FindSignature(ctx context.Context, userID string) (SignatureRecord, bool, error) {
	_ = ctx
	for _, sig := range t.entry.sigs {
		if sig.UserID == userID {
			return sig, true, nil
		}
	}
	for _, sig := range t.stagedSigs {
		if sig.UserID == userID {
			return sig, true, nil
		}
	}
	return SignatureRecord{}, false, nil
}

func (t *memDocumentTx) InsertSignature(ctx context.Context, rec SignatureRecord) error {
	_ = ctx
	t.stagedSigs = append(t.stagedSigs, rec)
	return nil
}

func (t *memDocumentTx) CountSignatures(ctx context.Context) (int, error) {
	_ = ctx
	return len(t.entry.sigs) + len(t.stagedSigs), nil
}

func (t *memDocumentTx) SetState(ctx context.Context, state DocumentState, completedAt *time.Time, now time.Time) error {
	_ = ctx
	t.stagedState = &state
	t.completedAt = completedAt
	t.updatedAt = now
	return nil
}

func (t *memDocumentTx) apply() {
	t.entry.sigs = append(t.entry.sigs, t.stagedSigs...)
	if t.stagedState != nil {
		t.entry.doc.State = *t.stagedState
		t.entry.doc.UpdatedAt = t.updatedAt
		if t.completedAt != nil && t.entry.doc.CompletedAt == nil {
			t.entry.doc.CompletedAt = t.completedAt
		}
	}
}
