// Package auth defines the access-control capability consumed by the
// wager engine. Privileged operations gate on these checks before
// mutating any state; the engine does not bake roles into its data
// model.
package auth

// Roles answers capability checks for a caller id.
type Roles interface {
	IsOracle(caller string) bool
	IsOwner(caller string) bool
}

// StaticRoles is a fixed role assignment loaded from configuration.
type StaticRoles struct {
	oracles map[string]bool
	owners  map[string]bool
}

// NewStaticRoles builds a role table from oracle and owner id lists.
func NewStaticRoles(oracles, owners []string) *StaticRoles {
	r := &StaticRoles{
		oracles: make(map[string]bool, len(oracles)),
		owners:  make(map[string]bool, len(owners)),
	}
	for _, id := range oracles {
		r.oracles[id] = true
	}
	for _, id := range owners {
		r.owners[id] = true
	}
	return r
}

func (r *StaticRoles) IsOracle(caller string) bool { return r.oracles[caller] }
func (r *StaticRoles) IsOwner(caller string) bool  { return r.owners[caller] }
