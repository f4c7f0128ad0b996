// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/wfunc/nightfall/models"
)

// Database archives finished games and per-player standings. It is write-
// mostly: live rooms are never reconstructed from storage.
type Database interface {
	SaveGameRecord(record *models.GormGameRecord) error
	RecordOutcome(playerName string, won bool) error
	TopStandings(limit int) ([]models.GormPlayerStanding, error)
	RecentGames(limit int) ([]models.GormGameRecord, error)
	Close() error
}

var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
