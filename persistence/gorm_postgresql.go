// persistence/gorm_postgresql.go
package persistence

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/nightfall/models"
)

// GormPostgreSQL is the GORM-backed Database implementation.
type GormPostgreSQL struct {
	db *gorm.DB
}

func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.GormGameRecord{}, &models.GormPlayerStanding{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func (p *GormPostgreSQL) SaveGameRecord(record *models.GormGameRecord) error {
	return p.db.Create(record).Error
}

// RecordOutcome upserts one player's standing inside a transaction so the
// games/wins counters never drift apart.
func (p *GormPostgreSQL) RecordOutcome(playerName string, won bool) error {
	return p.db.Transaction(func(tx *gorm.DB) error {
		var standing models.GormPlayerStanding
		result := tx.Where("name = ?", playerName).First(&standing)

		if result.Error == gorm.ErrRecordNotFound {
			standing = models.GormPlayerStanding{Name: playerName, Games: 1}
			if won {
				standing.Wins = 1
			} else {
				standing.Losses = 1
			}
			return tx.Create(&standing).Error
		} else if result.Error != nil {
			return result.Error
		}

		updates := map[string]interface{}{
			"games": gorm.Expr("games + 1"),
		}
		if won {
			updates["wins"] = gorm.Expr("wins + 1")
		} else {
			updates["losses"] = gorm.Expr("losses + 1")
		}
		return tx.Model(&standing).Updates(updates).Error
	})
}

func (p *GormPostgreSQL) TopStandings(limit int) ([]models.GormPlayerStanding, error) {
	var standings []models.GormPlayerStanding
	err := p.db.Order("wins DESC, games ASC").Limit(limit).Find(&standings).Error
	return standings, err
}

func (p *GormPostgreSQL) RecentGames(limit int) ([]models.GormGameRecord, error) {
	var records []models.GormGameRecord
	err := p.db.Order("created_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
