// game/night.go
package game

// NightAction is one special role's submission for the current night.
type NightAction struct {
	Actor  string // handle of the acting player
	Target string // handle of the chosen target
}

// NightOutcome is the single broadcast-visible result kind of a night.
type NightOutcome string

const (
	OutcomeNoDeath   NightOutcome = "no_death"
	OutcomeDeath     NightOutcome = "death"
	OutcomeProtected NightOutcome = "protected"
)

// Investigation is the Seer's private answer. Target may be nil if the
// submitted handle no longer maps to a roster entry.
type Investigation struct {
	Seer     string
	Target   *Player
	IsKiller bool
}

// NightResult describes one resolved night. Victim is set only for
// OutcomeDeath; the victim's role is never part of the broadcast.
type NightResult struct {
	Outcome       NightOutcome
	Victim        *Player
	Investigation *Investigation
}

// ResolveNight applies one night's collected actions to the roster.
// Rules, in order: no killer target means no death; a guardian protecting
// the killer's target negates the kill; otherwise the target dies if still
// alive (a dead target is legal input with no effect). The seer's answer
// is resolved regardless of death or protection and is delivered privately
// by the caller.
func ResolveNight(buffer map[Role]NightAction, roster []*Player) NightResult {
	result := NightResult{Outcome: OutcomeNoDeath}

	if seer, ok := buffer[RoleSeer]; ok {
		target := FindByHandle(roster, seer.Target)
		result.Investigation = &Investigation{
			Seer:     seer.Actor,
			Target:   target,
			IsKiller: target != nil && target.Role == RoleKiller,
		}
	}

	kill, hasKill := buffer[RoleKiller]
	if !hasKill {
		return result
	}

	if guard, ok := buffer[RoleGuardian]; ok && guard.Target == kill.Target {
		result.Outcome = OutcomeProtected
		return result
	}

	if victim := FindByHandle(roster, kill.Target); victim != nil && victim.Alive {
		victim.Alive = false
		result.Outcome = OutcomeDeath
		result.Victim = victim
	}

	return result
}
