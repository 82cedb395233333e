package membership

import (
	"context"
	"database/sql"
)

// SQLRoster reads membership from Postgres.
//
// NOTE: This roster assumes the following tables exist:
// - users (id, tenant_id, role, status)
// - school_groups (id, tenant_id, status)
// - group_members (tenant_id, group_id, member_id, status)
// - guardianships (tenant_id, member_id, guardian_id, status)
//
// status = 'active' rows are the only ones that count toward audiences.
type SQLRoster struct {
	db *sql.DB
}

func NewSQLRoster(db *sql.DB) *SQLRoster {
	return &SQLRoster{db: db}
}

func (r *SQLRoster) ActiveGuardiansOfGroup(ctx context.Context, tenantID, groupID string) ([]string, error) {
	// Distinct guardians across all active members; the DISTINCT collapses
	// guardians who cover more than one member of the group.
	const q = `
SELECT DISTINCT g.guardian_id
FROM group_members m
JOIN guardianships g
  ON g.tenant_id = m.tenant_id AND g.member_id = m.member_id AND g.status = 'active'
WHERE m.tenant_id = $1 AND m.group_id = $2 AND m.status = 'active'
`
	return r.queryIDs(ctx, q, tenantID, groupID)
}

func (r *SQLRoster) ActiveMembersOfGroup(ctx context.Context, tenantID, groupID string) ([]string, error) {
	const q = `
SELECT member_id
FROM group_members
WHERE tenant_id = $1 AND group_id = $2 AND status = 'active'
`
	return r.queryIDs(ctx, q, tenantID, groupID)
}

func (r *SQLRoster) UsersWithRole(ctx context.Context, tenantID, role string) ([]string, error) {
	const q = `
SELECT id
FROM users
WHERE tenant_id = $1 AND role = $2 AND status = 'active'
`
	return r.queryIDs(ctx, q, tenantID, role)
}

func (r *SQLRoster) GroupExists(ctx context.Context, tenantID, groupID string) (bool, error) {
	const q = `
SELECT 1
FROM school_groups
WHERE tenant_id = $1 AND id = $2
LIMIT 1
`
	var one int
	err := r.db.QueryRowContext(ctx, q, tenantID, groupID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *SQLRoster) queryIDs(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
