package room

import (
	"time"

	"github.com/wfunc/nightfall/game"
	"github.com/wfunc/nightfall/models"
)

// Messenger delivers outbound events. Defined here to break the import
// cycle between room and broadcast.
type Messenger interface {
	BroadcastToRoom(code string, msgID uint16, data []byte) error
	SendToPlayer(handle string, msgID uint16, data []byte) error
}

// Scheduler fires a callback after a delay. Timer expiry re-enters the
// room as an ordinary inbox trigger, so the core has no cancellation
// logic of its own.
type Scheduler interface {
	After(delay time.Duration, callback func()) int64
}

// Archiver persists a finished game. Implementations must not be relied
// on for resuming live rooms; archived records are history only. A nil
// Archiver disables archiving.
type Archiver interface {
	ArchiveGame(code string, winner game.Verdict, players []models.PlayerInfo, history []models.RoundRecord, duration time.Duration) error
}
