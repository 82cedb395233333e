package membership

import (
	"context"
	"sync"
)

// MemoryRoster is a simple in-memory roster useful for tests and early development.
//
// NOTE: This is not intended for production; replace with SQLRoster.
type MemoryRoster struct {
	mu sync.Mutex

	groups    map[string]map[string]struct{} // tenant/group -> active member ids
	guardians map[string]map[string]struct{} // tenant/member -> active guardian ids
	roles     map[string]map[string]struct{} // tenant/role -> active user ids
}

func NewMemoryRoster() *MemoryRoster {
	return &MemoryRoster{
		groups:    map[string]map[string]struct{}{},
		guardians: map[string]map[string]struct{}{},
		roles:     map[string]map[string]struct{}{},
	}
}

func key(tenantID, sub string) string { return tenantID + "/" + sub }

// AddGroupMember registers an active member of a group.
func (r *MemoryRoster) AddGroupMember(tenantID, groupID, memberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(tenantID, groupID)
	if r.groups[k] == nil {
		r.groups[k] = map[string]struct{}{}
	}
	r.groups[k][memberID] = struct{}{}
}

// RemoveGroupMember deactivates a member of a group.
func (r *MemoryRoster) RemoveGroupMember(tenantID, groupID, memberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups[key(tenantID, groupID)], memberID)
}

// AddGuardian registers an active guardianship.
func (r *MemoryRoster) AddGuardian(tenantID, memberID, guardianID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(tenantID, memberID)
	if r.guardians[k] == nil {
		r.guardians[k] = map[string]struct{}{}
	}
	r.guardians[k][guardianID] = struct{}{}
}

// AddUserWithRole registers an active user holding a role.
func (r *MemoryRoster) AddUserWithRole(tenantID, role, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(tenantID, role)
	if r.roles[k] == nil {
		r.roles[k] = map[string]struct{}{}
	}
	r.roles[k][userID] = struct{}{}
}

// AddGroup registers an empty group so GroupExists succeeds.
func (r *MemoryRoster) AddGroup(tenantID, groupID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(tenantID, groupID)
	if r.groups[k] == nil {
		r.groups[k] = map[string]struct{}{}
	}
}

func (r *MemoryRoster) ActiveGuardiansOfGroup(ctx context.Context, tenantID, groupID string) ([]string, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := map[string]struct{}{}
	var out []string
	for memberID := range r.groups[key(tenantID, groupID)] {
		for guardianID := range r.guardians[key(tenantID, memberID)] {
			if _, dup := seen[guardianID]; dup {
				continue
			}
			seen[guardianID] = struct{}{}
			out = append(out, guardianID)
		}
	}
	return out, nil
}

func (r *MemoryRoster) ActiveMembersOfGroup(ctx context.Context, tenantID, groupID string) ([]string, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for memberID := range r.groups[key(tenantID, groupID)] {
		out = append(out, memberID)
	}
	return out, nil
}

func (r *MemoryRoster) UsersWithRole(ctx context.Context, tenantID, role string) ([]string, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for userID := range r.roles[key(tenantID, role)] {
		out = append(out, userID)
	}
	return out, nil
}

func (r *MemoryRoster) GroupExists(ctx context.Context, tenantID, groupID string) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.groups[key(tenantID, groupID)]
	return ok, nil
}
