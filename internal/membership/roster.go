package membership

import "context"

// Roster is the read-only membership source the consent core depends on.
//
// All queries are tenant-scoped and reflect live membership: group rosters and
// role assignments change over time, and audience decisions must always see the
// current state. Implementations must never cache results across calls.
type Roster interface {
	// ActiveGuardiansOfGroup returns the distinct guardians of all currently
	// active members of the group. One guardian may cover several members; the
	// result contains each guardian once.
	ActiveGuardiansOfGroup(ctx context.Context, tenantID, groupID string) ([]string, error)

	// ActiveMembersOfGroup returns the currently active members of the group.
	ActiveMembersOfGroup(ctx context.Context, tenantID, groupID string) ([]string, error)

	// UsersWithRole returns all active users in the tenant holding the role.
	UsersWithRole(ctx context.Context, tenantID, role string) ([]string, error)

	// GroupExists reports whether the group belongs to the tenant.
	GroupExists(ctx context.Context, tenantID, groupID string) (bool, error)
}
