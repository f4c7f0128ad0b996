// models/models.go
package models

import (
	"time"

	"github.com/wfunc/nightfall/game"
)

// PlayerInfo is the roster entry included in room snapshots. Role is only
// populated when it is safe to reveal: to the player themself, or in the
// final game-over roster.
type PlayerInfo struct {
	Handle    string    `json:"handle"`
	Name      string    `json:"name"`
	Alive     bool      `json:"alive"`
	Connected bool      `json:"connected"`
	Role      game.Role `json:"role,omitempty"`
}

// RoomSnapshot is the shared view of a room sent on create/join/update.
type RoomSnapshot struct {
	Code    string       `json:"code"`
	Phase   game.Phase   `json:"phase"`
	Round   int          `json:"round"`
	Quota   game.Quota   `json:"quota"`
	Host    string       `json:"host"`
	Players []PlayerInfo `json:"players"`
}

// --- inbound payloads ---

type CreateRoomRequest struct {
	PlayerName string `json:"player_name"`
}

type JoinRoomRequest struct {
	RoomCode   string `json:"room_code"`
	PlayerName string `json:"player_name"`
}

type UpdateQuotaRequest struct {
	Quota game.Quota `json:"quota"`
}

type NightActionRequest struct {
	Target string `json:"target"`
}

type CastVoteRequest struct {
	Target string `json:"target"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

// --- outbound payloads ---

type RoomCreatedEvent struct {
	Code string       `json:"code"`
	Room RoomSnapshot `json:"room"`
}

type RoomUpdatedEvent struct {
	Room RoomSnapshot `json:"room"`
}

type RoomClosedEvent struct {
	Message string `json:"message"`
}

type RoleAssignedEvent struct {
	Role        game.Role `json:"role"`
	Description string    `json:"description"`
}

type PhaseChangeEvent struct {
	Phase     game.Phase `json:"phase"`
	Round     int        `json:"round"`
	Narrative string     `json:"narrative,omitempty"`
}

type InvestigationResultEvent struct {
	TargetName string `json:"target_name"`
	IsKiller   bool   `json:"is_killer"`
}

type VoteUpdateEvent struct {
	Votes int `json:"votes"`
	Total int `json:"total"`
}

// VotingResultEvent carries the full tally (by display name) for
// transparency, alongside the narrative.
type VotingResultEvent struct {
	Narrative string         `json:"narrative"`
	Tally     map[string]int `json:"tally"`
}

// PlayerDiedEvent is delivered privately to the victim; their own role is
// revealed to them on death.
type PlayerDiedEvent struct {
	Message string    `json:"message"`
	Role    game.Role `json:"role"`
}

type PlayerLeftEvent struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type PlayerDisconnectedEvent struct {
	Name string `json:"name"`
}

type GameOverEvent struct {
	Winner    game.Verdict `json:"winner"`
	Message   string       `json:"message"`
	Players   []PlayerInfo `json:"players"`
	Narrative string       `json:"narrative,omitempty"`
}

type ChatMessageEvent struct {
	PlayerName string    `json:"player_name"`
	Message    string    `json:"message"`
	Alive      bool      `json:"alive"`
	Timestamp  time.Time `json:"timestamp"`
}

type ErrorEvent struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// RoundRecord is one entry in a room's per-game history, persisted with
// the game record when the room ends.
type RoundRecord struct {
	Round     int    `json:"round"`
	Phase     string `json:"phase"`
	Narrative string `json:"narrative"`
}
