// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// PostgreSQL driver
	_ "github.com/lib/pq"

	"github.com/wfunc/nightfall/models"
)

// PostgreSQL is the plain database/sql Database implementation, for
// deployments that prefer raw SQL over GORM.
type PostgreSQL struct {
	db *sql.DB
}

func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS game_records (
            id SERIAL PRIMARY KEY,
            room_code TEXT NOT NULL,
            winner TEXT NOT NULL,
            rounds INT NOT NULL DEFAULT 0,
            players JSONB NOT NULL,
            history JSONB,
            duration INT NOT NULL DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE TABLE IF NOT EXISTS player_standings (
            id SERIAL PRIMARY KEY,
            name TEXT UNIQUE NOT NULL,
            games INT NOT NULL DEFAULT 0,
            wins INT NOT NULL DEFAULT 0,
            losses INT NOT NULL DEFAULT 0,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )`)
	return err
}

func (p *PostgreSQL) SaveGameRecord(record *models.GormGameRecord) error {
	players, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}
	history, err := json.Marshal(record.History)
	if err != nil {
		return err
	}

	_, err = p.db.Exec(`
        INSERT INTO game_records (room_code, winner, rounds, players, history, duration)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		record.RoomCode, record.Winner, record.Rounds, players, history, record.Duration)
	return err
}

func (p *PostgreSQL) RecordOutcome(playerName string, won bool) error {
	wins := 0
	losses := 0
	if won {
		wins = 1
	} else {
		losses = 1
	}

	_, err := p.db.Exec(`
        INSERT INTO player_standings (name, games, wins, losses)
        VALUES ($1, 1, $2, $3)
        ON CONFLICT (name) DO UPDATE SET
            games = player_standings.games + 1,
            wins = player_standings.wins + $2,
            losses = player_standings.losses + $3,
            updated_at = CURRENT_TIMESTAMP`,
		playerName, wins, losses)
	return err
}

func (p *PostgreSQL) TopStandings(limit int) ([]models.GormPlayerStanding, error) {
	rows, err := p.db.Query(`
        SELECT name, games, wins, losses FROM player_standings
        ORDER BY wins DESC, games ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var standings []models.GormPlayerStanding
	for rows.Next() {
		var s models.GormPlayerStanding
		if err := rows.Scan(&s.Name, &s.Games, &s.Wins, &s.Losses); err != nil {
			return nil, err
		}
		standings = append(standings, s)
	}
	return standings, rows.Err()
}

func (p *PostgreSQL) RecentGames(limit int) ([]models.GormGameRecord, error) {
	rows, err := p.db.Query(`
        SELECT room_code, winner, rounds, players, history, duration FROM game_records
        ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.GormGameRecord
	for rows.Next() {
		var rec models.GormGameRecord
		var players, history []byte
		if err := rows.Scan(&rec.RoomCode, &rec.Winner, &rec.Rounds, &players, &history, &rec.Duration); err != nil {
			return nil, err
		}
		if len(players) > 0 {
			if err := json.Unmarshal(players, &rec.Players); err != nil {
				return nil, err
			}
		}
		if len(history) > 0 {
			if err := json.Unmarshal(history, &rec.History); err != nil {
				return nil, err
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
