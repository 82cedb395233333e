package consent

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"consentdesk/pkg/utils"
)

// SQLStore persists documents and signatures in Postgres.
//
// NOTE: This store assumes the following tables exist:
// - documents
// - document_signatures (immutable append-only)
//
// It also assumes the uniqueness constraint backing the ledger invariant:
// UNIQUE (document_id, user_id) on document_signatures, plus
// UNIQUE (tenant_id, verification_token).
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const documentColumns = `
id, tenant_id, title, body, target_kind, target_role, target_group_id,
state, created_at, updated_at, expires_at, completed_at
`

func scanDocument(row *sql.Row) (Document, error) {
	var d Document
	var role, groupID sql.NullString
	var expiresAt, completedAt sql.NullTime
	if err := row.Scan(
		&d.ID,
		&d.TenantID,
		&d.Title,
		&d.Body,
		&d.Target.Kind,
		&role,
		&groupID,
		&d.State,
		&d.CreatedAt,
		&d.UpdatedAt,
		&expiresAt,
		&completedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	d.Target.Role = role.String
	d.Target.GroupID = groupID.String
	if expiresAt.Valid {
		t := expiresAt.Time
		d.ExpiresAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		d.CompletedAt = &t
	}
	return d, nil
}

func (s *SQLStore) InsertDocument(ctx context.Context, doc Document) error {
	const q = `
INSERT INTO documents (
  id, tenant_id, title, body, target_kind, target_role, target_group_id,
  state, created_at, updated_at, expires_at, completed_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
)
`
	_, err := s.db.ExecContext(ctx, q,
		doc.ID,
		doc.TenantID,
		doc.Title,
		doc.Body,
		doc.Target.Kind,
		nullIfEmpty(doc.Target.Role),
		nullIfEmpty(doc.Target.GroupID),
		doc.State,
		doc.CreatedAt,
		doc.UpdatedAt,
		doc.ExpiresAt,
		doc.CompletedAt,
	)
	return err
}

func (s *SQLStore) GetDocument(ctx context.Context, tenantID, documentID string) (Document, error) {
	const q = `
SELECT ` + documentColumns + `
FROM documents
WHERE tenant_id = $1 AND id = $2
`
	return scanDocument(s.db.QueryRowContext(ctx, q, tenantID, documentID))
}

func (s *SQLStore) ListDocuments(ctx context.Context, tenantID string) ([]Document, error) {
	const q = `
SELECT ` + documentColumns + `
FROM documents
WHERE tenant_id = $1
ORDER BY created_at DESC
`
	rows, err := s.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		var role, groupID sql.NullString
		var expiresAt, completedAt sql.NullTime
		if err := rows.Scan(
			&d.ID,
			&d.TenantID,
			&d.Title,
			&d.Body,
			&d.Target.Kind,
			&role,
			&groupID,
			&d.State,
			&d.CreatedAt,
			&d.UpdatedAt,
			&expiresAt,
			&completedAt,
		); err != nil {
			return nil, err
		}
		d.Target.Role = role.String
		d.Target.GroupID = groupID.String
		if expiresAt.Valid {
			t := expiresAt.Time
			d.ExpiresAt = &t
		}
		if completedAt.Valid {
			t := completedAt.Time
			d.CompletedAt = &t
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

const signatureColumns = `
id, tenant_id, document_id, user_id, kind, artifact, ip_address, user_agent,
verification_token, signed_at
`

func (s *SQLStore) ListSignatures(ctx context.Context, tenantID, documentID string) ([]SignatureRecord, error) {
	const q = `
SELECT ` + signatureColumns + `
FROM document_signatures
WHERE tenant_id = $1 AND document_id = $2
ORDER BY signed_at ASC
`
	rows, err := s.db.QueryContext(ctx, q, tenantID, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SignatureRecord
	for rows.Next() {
		var r SignatureRecord
		if err := rows.Scan(
			&r.ID,
			&r.TenantID,
			&r.DocumentID,
			&r.UserID,
			&r.Kind,
			&r.Artifact,
			&r.IPAddress,
			&r.UserAgent,
			&r.VerificationToken,
			&r.SignedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) CountSignatures(ctx context.Context, tenantID, documentID string) (int, error) {
	const q = `
SELECT COUNT(*)
FROM document_signatures
WHERE tenant_id = $1 AND document_id = $2
`
	var n int
	if err := s.db.QueryRowContext(ctx, q, tenantID, documentID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLStore) FindSignatureByToken(ctx context.Context, tenantID, token string) (SignatureRecord, bool, error) {
	const q = `
SELECT ` + signatureColumns + `
FROM document_signatures
WHERE tenant_id = $1 AND verification_token = $2
LIMIT 1
`
	var r SignatureRecord
	err := s.db.QueryRowContext(ctx, q, tenantID, token).Scan(
		&r.ID,
		&r.TenantID,
		&r.DocumentID,
		&r.UserID,
		&r.Kind,
		&r.Artifact,
		&r.IPAddress,
		&r.UserAgent,
		&r.VerificationToken,
		&r.SignedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SignatureRecord{}, false, nil
		}
		return SignatureRecord{}, false, err
	}
	return r, true, nil
}

// Mutate locks the document row and runs fn inside one transaction. The row
// lock is the serialization point for concurrent sign attempts on the same
// document; two "final" signatures cannot both observe the same count.
func (s *SQLStore) Mutate(ctx context.Context, tenantID, documentID string, fn MutateFunc) error {
	return utils.WithTx(ctx, s.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		doc, err := lockDocument(ctx, tx, tenantID, documentID)
		if err != nil {
			return err
		}
		return fn(ctx, &sqlDocumentTx{tx: tx, doc: doc})
	})
}

func lockDocument(ctx context.Context, tx *sql.Tx, tenantID, documentID string) (Document, error) {
	const q = `
SELECT ` + documentColumns + `
FROM documents
WHERE tenant_id = $1 AND id = $2
FOR UPDATE
`
	return scanDocument(tx.QueryRowContext(ctx, q, tenantID, documentID))
}

type sqlDocumentTx struct {
	tx  *sql.Tx
	doc Document
}

func (t *sqlDocumentTx) Document() Document { return t.doc }

func (t *sqlDocumentTx) FindSignature(ctx context.Context, userID string) (SignatureRecord, bool, error) {
	const q = `
SELECT ` + signatureColumns + `
FROM document_signatures
WHERE tenant_id = $1 AND document_id = $2 AND user_id = $3
LIMIT 1
`
	var r SignatureRecord
	err := t.tx.QueryRowContext(ctx, q, t.doc.TenantID, t.doc.ID, userID).Scan(
		&r.ID,
		&r.TenantID,
		&r.DocumentID,
		&r.UserID,
		&r.Kind,
		&r.Artifact,
		&r.IPAddress,
		&r.UserAgent,
		&r.VerificationToken,
		&r.SignedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SignatureRecord{}, false, nil
		}
		return SignatureRecord{}, false, err
	}
	return r, true, nil
}

func (t *sqlDocumentTx) InsertSignature(ctx context.Context, rec SignatureRecord) error {
	const q = `
INSERT INTO document_signatures (
  id, tenant_id, document_id, user_id, kind, artifact, ip_address, user_agent,
  verification_token, signed_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)
`
	_, err := t.tx.ExecContext(ctx, q,
		rec.ID,
		rec.TenantID,
		rec.DocumentID,
		rec.UserID,
		rec.Kind,
		rec.Artifact,
		rec.IPAddress,
		rec.UserAgent,
		rec.VerificationToken,
		rec.SignedAt,
	)
	return err
}

func (t *sqlDocumentTx) CountSignatures(ctx context.Context) (int, error) {
	const q = `
SELECT COUNT(*)
FROM document_signatures
WHERE tenant_id = $1 AND document_id = $2
`
	var n int
	if err := t.tx.QueryRowContext(ctx, q, t.doc.TenantID, t.doc.ID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (t *sqlDocumentTx) SetState(ctx context.Context, state DocumentState, completedAt *time.Time, now time.Time) error {
	const q = `
UPDATE documents
SET state = $3, completed_at = COALESCE(completed_at, $4), updated_at = $5
WHERE tenant_id = $1 AND id = $2
`
	_, err := t.tx.ExecContext(ctx, q, t.doc.TenantID, t.doc.ID, state, completedAt, now)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
