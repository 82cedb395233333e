package audit

import (
	"context"
	"database/sql"
)

// SQLRepo persists audit events to Postgres.
//
// NOTE: assumes an INSERT-only audit_events table; see models.go.
type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo { return &SQLRepo{db: db} }

func (r *SQLRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, tenant_id, type, actor_user_id, actor_role, ip_address,
  document_id, signature_id, message, metadata, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.TenantID,
		e.Type,
		e.ActorUserID,
		e.ActorRole,
		e.IPAddress,
		e.DocumentID,
		e.SignatureID,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}
