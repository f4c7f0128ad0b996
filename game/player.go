// game/player.go
package game

// Player is one seat in a room's roster. A record is created on join and
// owned exclusively by its room; once the game starts it is never removed,
// only marked disconnected, so role counts stay intact.
type Player struct {
	Handle    string `json:"handle"`
	Name      string `json:"name"`
	Role      Role   `json:"role,omitempty"`
	Alive     bool   `json:"alive"`
	Connected bool   `json:"connected"`
	HasActed  bool   `json:"-"`
	HasVoted  bool   `json:"-"`
}

// FindByHandle returns the roster entry for handle, or nil.
func FindByHandle(roster []*Player, handle string) *Player {
	for _, p := range roster {
		if p.Handle == handle {
			return p
		}
	}
	return nil
}

// FindByRole returns the first living roster entry holding role, or nil.
func FindByRole(roster []*Player, role Role) *Player {
	for _, p := range roster {
		if p.Role == role && p.Alive {
			return p
		}
	}
	return nil
}

// CountAlive returns the number of living players.
func CountAlive(roster []*Player) int {
	n := 0
	for _, p := range roster {
		if p.Alive {
			n++
		}
	}
	return n
}
