// game/phase.go
package game

// Phase is the room's lifecycle stage. Exactly one is active at a time.
type Phase string

const (
	PhaseLobby  Phase = "lobby"
	PhaseNight  Phase = "night"
	PhaseDay    Phase = "day"
	PhaseVoting Phase = "voting"
	PhaseEnded  Phase = "ended"
)

func (p Phase) String() string {
	return string(p)
}

// CanTransitionTo reports whether the phase machine allows moving from p
// to target. Ended is terminal.
func (p Phase) CanTransitionTo(target Phase) bool {
	switch p {
	case PhaseLobby:
		return target == PhaseNight
	case PhaseNight:
		return target == PhaseDay || target == PhaseEnded
	case PhaseDay:
		return target == PhaseVoting
	case PhaseVoting:
		return target == PhaseNight || target == PhaseEnded
	}
	return false
}
