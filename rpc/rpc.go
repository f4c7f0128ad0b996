package rpc

import (
	"net"
	"net/rpc"

	"github.com/wfunc/nightfall/logger"
	"github.com/wfunc/nightfall/models"
	"github.com/wfunc/nightfall/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
}

func NewServer(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		address:  addr,
	}, nil
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.address)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if _, ok := err.(*net.OpError); ok {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// HistoryService exposes archived-game queries over net/rpc for ops
// tooling: leaderboards and recent results.
type HistoryService struct {
	history *services.HistoryService
}

func NewHistoryService(hs *services.HistoryService) *HistoryService {
	return &HistoryService{history: hs}
}

type LeaderboardArgs struct {
	Limit int
}

type LeaderboardReply struct {
	Standings []models.GormPlayerStanding
}

func (hs *HistoryService) GetLeaderboard(args *LeaderboardArgs, reply *LeaderboardReply) error {
	standings, err := hs.history.Leaderboard(args.Limit)
	if err != nil {
		return err
	}
	reply.Standings = standings
	return nil
}

type RecentGamesArgs struct {
	Limit int
}

type RecentGamesReply struct {
	Games []models.GormGameRecord
}

func (hs *HistoryService) GetRecentGames(args *RecentGamesArgs, reply *RecentGamesReply) error {
	games, err := hs.history.RecentGames(args.Limit)
	if err != nil {
		return err
	}
	reply.Games = games
	return nil
}
