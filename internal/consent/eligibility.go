package consent

import (
	"context"

	"consentdesk/internal/membership"
	"consentdesk/internal/rbac"
)

// EligibilityGuard decides whether a user may sign a document at all,
// independently of whether they already have. All per-endpoint eligibility
// checks route through here; nothing else re-derives these rules.
type EligibilityGuard struct {
	roster membership.Roster
}

func NewEligibilityGuard(roster membership.Roster) *EligibilityGuard {
	return &EligibilityGuard{roster: roster}
}

// CanSign applies the eligibility rules in order, first match wins:
//  1. Elevated roles may always sign (internal verification included).
//  2. Role rule: the user's role must equal it.
//  3. Group rule: guardian of an active member, or the member themself.
//  4. Unrestricted: everyone in the tenant is eligible.
//
// Ineligibility is an answer, not an error; the error return is for roster
// failures only.
func (g *EligibilityGuard) CanSign(ctx context.Context, doc Document, userID, role string) (bool, error) {
	if rbac.IsElevated(role) {
		return true, nil
	}

	switch doc.Target.Kind {
	case TargetRole:
		return role == doc.Target.Role, nil

	case TargetGroup:
		guardians, err := g.roster.ActiveGuardiansOfGroup(ctx, doc.TenantID, doc.Target.GroupID)
		if err != nil {
			return false, err
		}
		for _, id := range guardians {
			if id == userID {
				return true, nil
			}
		}
		// Self-signing students: an active member of the group may sign for
		// themself.
		members, err := g.roster.ActiveMembersOfGroup(ctx, doc.TenantID, doc.Target.GroupID)
		if err != nil {
			return false, err
		}
		for _, id := range members {
			if id == userID {
				return true, nil
			}
		}
		return false, nil

	default:
		return true, nil
	}
}
