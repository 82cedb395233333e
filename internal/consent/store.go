package consent

import (
	"context"
	"time"
)

// Store is the persistence contract for documents and their signature ledger.
//
// All reads are tenant-scoped; a document id from another tenant behaves as
// not found. The signature ledger is append-only: no Update/Delete methods
// exist by design.
type Store interface {
	InsertDocument(ctx context.Context, doc Document) error
	GetDocument(ctx context.Context, tenantID, documentID string) (Document, error)
	ListDocuments(ctx context.Context, tenantID string) ([]Document, error)

	ListSignatures(ctx context.Context, tenantID, documentID string) ([]SignatureRecord, error)
	CountSignatures(ctx context.Context, tenantID, documentID string) (int, error)
	FindSignatureByToken(ctx context.Context, tenantID, token string) (SignatureRecord, bool, error)

	// Mutate runs fn while holding an exclusive lock on the document,
	// serializing concurrent attempts per document. fn sees the current
	// document under lock; its writes take effect atomically iff it returns
	// nil, and are discarded otherwise.
	Mutate(ctx context.Context, tenantID, documentID string, fn MutateFunc) error
}

type MutateFunc func(ctx context.Context, tx DocumentTx) error

// DocumentTx is the view of one locked document inside Mutate.
type DocumentTx interface {
	// Document returns the document as of lock acquisition.
	Document() Document

	FindSignature(ctx context.Context, userID string) (SignatureRecord, bool, error)
	InsertSignature(ctx context.Context, rec SignatureRecord) error

	// CountSignatures counts ledger entries, including any inserted in this
	// transaction. Completion decisions recount rows instead of maintaining a
	// counter field; the ledger is the single source of truth.
	CountSignatures(ctx context.Context) (int, error)

	// SetState transitions the document. completedAt must be non-nil exactly
	// when state is StateCompleted.
	SetState(ctx context.Context, state DocumentState, completedAt *time.Time, now time.Time) error
}
