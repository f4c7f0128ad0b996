// game/win.go
package game

// Verdict is the outcome of a win-condition check.
type Verdict string

const (
	VerdictUndecided  Verdict = "undecided"
	VerdictTownWins   Verdict = "town"
	VerdictKillersWin Verdict = "killers"
)

func (v Verdict) String() string {
	return string(v)
}

// Decided reports whether the verdict ends the game.
func (v Verdict) Decided() bool {
	return v != VerdictUndecided
}

// EvaluateWin checks the roster for a finished game: the town wins when no
// Killer is left alive, the killers win when they match or outnumber the
// living non-Killers. Called after every resolver run and never elsewhere.
func EvaluateWin(roster []*Player) Verdict {
	killers := 0
	others := 0
	for _, p := range roster {
		if !p.Alive {
			continue
		}
		if p.Role == RoleKiller {
			killers++
		} else {
			others++
		}
	}

	if killers == 0 {
		return VerdictTownWins
	}
	if killers >= others {
		return VerdictKillersWin
	}
	return VerdictUndecided
}
