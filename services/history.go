// services/history.go
package services

import (
	"time"

	"github.com/wfunc/nightfall/game"
	"github.com/wfunc/nightfall/logger"
	"github.com/wfunc/nightfall/models"
	"github.com/wfunc/nightfall/monitor"
	"github.com/wfunc/nightfall/persistence"
)

// HistoryService archives finished games and answers leaderboard queries.
// It implements room.Archiver.
type HistoryService struct {
	db      persistence.Database
	monitor *monitor.Monitor
}

func NewHistoryService(db persistence.Database, mon *monitor.Monitor) *HistoryService {
	return &HistoryService{db: db, monitor: mon}
}

// ArchiveGame persists the final roster and round history, and credits a
// win or loss to every seat. A player is on the winning side when their
// role matches the verdict: killers for a killer victory, everyone else
// for a town victory.
func (s *HistoryService) ArchiveGame(code string, winner game.Verdict, players []models.PlayerInfo, history []models.RoundRecord, duration time.Duration) error {
	if s.monitor != nil {
		s.monitor.IncGamesCompleted(winner.String())
	}

	playerData := make(map[string]interface{}, len(players))
	for _, p := range players {
		playerData[p.Name] = map[string]interface{}{
			"role":  p.Role.String(),
			"alive": p.Alive,
		}
	}

	rounds := make([]interface{}, 0, len(history))
	for _, h := range history {
		rounds = append(rounds, map[string]interface{}{
			"round":     h.Round,
			"phase":     h.Phase,
			"narrative": h.Narrative,
		})
	}

	record := &models.GormGameRecord{
		RoomCode: code,
		Winner:   winner.String(),
		Rounds:   lastRound(history),
		Players:  playerData,
		History:  map[string]interface{}{"rounds": rounds},
		Duration: int(duration.Seconds()),
	}
	if err := s.db.SaveGameRecord(record); err != nil {
		return err
	}

	for _, p := range players {
		won := (winner == game.VerdictKillersWin) == (p.Role == game.RoleKiller)
		if err := s.db.RecordOutcome(p.Name, won); err != nil {
			// standings are best-effort; the game record is what matters
			logger.Log.Warnf("failed to record outcome for %s: %v", p.Name, err)
		}
	}
	return nil
}

// Leaderboard returns the top standings by wins.
func (s *HistoryService) Leaderboard(limit int) ([]models.GormPlayerStanding, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.db.TopStandings(limit)
}

// RecentGames returns the most recently archived games.
func (s *HistoryService) RecentGames(limit int) ([]models.GormGameRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.db.RecentGames(limit)
}

func lastRound(history []models.RoundRecord) int {
	n := 0
	for _, h := range history {
		if h.Round > n {
			n = h.Round
		}
	}
	return n
}
