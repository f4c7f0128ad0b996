// game/role.go
package game

import "math/rand"

// Role is one of the four playable roles. A player holds RoleNone until
// the game starts.
type Role string

const (
	RoleNone     Role = ""
	RoleKiller   Role = "killer"
	RoleSeer     Role = "seer"
	RoleGuardian Role = "guardian"
	RoleVillager Role = "villager"
)

func (r Role) String() string {
	return string(r)
}

// Description is the private briefing sent to a player when their role is
// assigned.
func (r Role) Description() string {
	switch r {
	case RoleKiller:
		return "You are the KILLER. Eliminate the town without being caught."
	case RoleSeer:
		return "You are the SEER. Each night, investigate one player to learn whether they are the killer."
	case RoleGuardian:
		return "You are the GUARDIAN. Each night, protect one player from the killer."
	case RoleVillager:
		return "You are a VILLAGER. Find the killer through discussion and voting."
	}
	return ""
}

// IsSpecial reports whether the role has a night action.
func (r Role) IsSpecial() bool {
	switch r {
	case RoleKiller, RoleSeer, RoleGuardian:
		return true
	}
	return false
}

// Quota is the host-configured count of each special role. Villagers fill
// the remaining seats.
type Quota struct {
	Killers   int `json:"killers" mapstructure:"killers"`
	Seers     int `json:"seers" mapstructure:"seers"`
	Guardians int `json:"guardians" mapstructure:"guardians"`
}

// Total returns the number of special-role seats the quota demands.
func (q Quota) Total() int {
	return q.Killers + q.Seers + q.Guardians
}

// Valid reports whether every count is non-negative and at least one
// Killer is configured.
func (q Quota) Valid() bool {
	return q.Killers >= 1 && q.Seers >= 0 && q.Guardians >= 0
}

// AssignRoles builds the role multiset for playerCount seats (quota roles
// padded with Villagers) and shuffles it uniformly. The caller assigns the
// result positionally in roster order. At least one Villager must remain
// so the Killer has a target pool.
func AssignRoles(playerCount int, quota Quota) ([]Role, error) {
	if playerCount < quota.Total()+1 {
		return nil, ErrInsufficientPlayers
	}

	roles := make([]Role, 0, playerCount)
	for i := 0; i < quota.Killers; i++ {
		roles = append(roles, RoleKiller)
	}
	for i := 0; i < quota.Seers; i++ {
		roles = append(roles, RoleSeer)
	}
	for i := 0; i < quota.Guardians; i++ {
		roles = append(roles, RoleGuardian)
	}
	for len(roles) < playerCount {
		roles = append(roles, RoleVillager)
	}

	// Fisher-Yates, inclusive bounds
	for i := len(roles) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		roles[i], roles[j] = roles[j], roles[i]
	}

	return roles, nil
}
