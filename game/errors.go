// game/errors.go
package game

// GameError is the recoverable error taxonomy for player-facing rejections.
// Every value is reported only to the originating sender and never mutates
// room state.
type GameError string

func (e GameError) Error() string {
	return string(e)
}

const (
	ErrRoomNotFound        GameError = "room not found"
	ErrGameAlreadyStarted  GameError = "the game has already started"
	ErrDuplicateName       GameError = "that name is already taken in this room"
	ErrNotInRoom           GameError = "you are not in a room"
	ErrNotHost             GameError = "only the host can do that"
	ErrInsufficientPlayers GameError = "not enough players for the configured roles"
	ErrWrongPhase          GameError = "that action is not allowed in the current phase"
	ErrWrongRole           GameError = "your role cannot perform that action"
	ErrAlreadyActed        GameError = "you already acted this night"
	ErrAlreadyVoted        GameError = "you already voted this round"
	ErrInvalidTarget       GameError = "invalid target"
	ErrTargetRequired      GameError = "a target is required"
)

// Kind returns the stable wire identifier for the error, for clients that
// switch on error category rather than message text.
func (e GameError) Kind() string {
	switch e {
	case ErrRoomNotFound:
		return "room_not_found"
	case ErrGameAlreadyStarted:
		return "game_already_started"
	case ErrDuplicateName:
		return "duplicate_name"
	case ErrNotInRoom:
		return "not_in_room"
	case ErrNotHost:
		return "not_host"
	case ErrInsufficientPlayers:
		return "insufficient_players"
	case ErrWrongPhase:
		return "wrong_phase"
	case ErrWrongRole:
		return "wrong_role"
	case ErrAlreadyActed:
		return "already_acted"
	case ErrAlreadyVoted:
		return "already_voted"
	case ErrInvalidTarget:
		return "invalid_target"
	case ErrTargetRequired:
		return "target_required"
	}
	return "internal"
}
