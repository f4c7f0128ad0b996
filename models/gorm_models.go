// models/gorm_models.go
package models

import (
	"gorm.io/gorm"
)

// GormGameRecord archives one finished game. Live rooms are never loaded
// back from this table; it exists for history and leaderboards only.
type GormGameRecord struct {
	gorm.Model
	RoomCode string                 `gorm:"index;not null"`
	Winner   string                 `gorm:"not null"`
	Rounds   int                    `gorm:"default:0"`
	Players  map[string]interface{} `gorm:"type:jsonb;not null"`
	History  map[string]interface{} `gorm:"type:jsonb"`
	Duration int                    `gorm:"default:0"` // seconds from start to game over
}

// GormPlayerStanding tracks per-name win/loss counts across games.
type GormPlayerStanding struct {
	gorm.Model
	Name   string `gorm:"uniqueIndex;not null"`
	Games  int    `gorm:"default:0"`
	Wins   int    `gorm:"default:0"`
	Losses int    `gorm:"default:0"`
}
