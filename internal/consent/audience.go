package consent

import (
	"context"

	"consentdesk/internal/membership"
)

// AudienceResolver computes the set of users expected to sign a document.
//
// The audience is deliberately dynamic: it is a pure function of the targeting
// rule and live membership, recomputed at every evaluation. Snapshotting the
// roster at publish time would go stale the moment a student joins a group or
// a user changes role.
type AudienceResolver struct {
	roster membership.Roster
}

func NewAudienceResolver(roster membership.Roster) *AudienceResolver {
	return &AudienceResolver{roster: roster}
}

// Resolve returns the distinct user ids expected to sign doc right now.
//
// Unrestricted documents have no quorum and resolve to the empty set. An empty
// set for a role or group rule is also valid; it means the document cannot
// complete until membership appears.
func (r *AudienceResolver) Resolve(ctx context.Context, doc Document) (map[string]struct{}, error) {
	var ids []string
	var err error

	switch doc.Target.Kind {
	case TargetRole:
		ids, err = r.roster.UsersWithRole(ctx, doc.TenantID, doc.Target.Role)
	case TargetGroup:
		ids, err = r.roster.ActiveGuardiansOfGroup(ctx, doc.TenantID, doc.Target.GroupID)
	default:
		return map[string]struct{}{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}
