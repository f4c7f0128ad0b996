package server

import (
	"encoding/json"
	"net/http"
	"net/rpc"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wfunc/nightfall/broadcast"
	"github.com/wfunc/nightfall/config"
	"github.com/wfunc/nightfall/game"
	"github.com/wfunc/nightfall/logger"
	"github.com/wfunc/nightfall/models"
	"github.com/wfunc/nightfall/monitor"
	"github.com/wfunc/nightfall/network"
	"github.com/wfunc/nightfall/persistence"
	"github.com/wfunc/nightfall/room"
	nightfall_rpc "github.com/wfunc/nightfall/rpc"
	"github.com/wfunc/nightfall/services"
	"github.com/wfunc/nightfall/session"
	"github.com/wfunc/nightfall/timer"
)

type GameServer struct {
	addr           string
	metricsAddr    string
	upgrader       websocket.Upgrader
	registry       *room.Registry
	sessionManager *session.Manager
	broadcaster    *broadcast.RoomBroadcaster
	monitor        *monitor.Monitor
	rpcServer      *nightfall_rpc.Server
	shutdownChan   chan struct{}
}

// NewGameServer wires the registry, broadcaster, timers, metrics and the
// optional archive database into one server. db may be nil; games are then
// simply not archived.
func NewGameServer(cfg *config.Config, db persistence.Database) *GameServer {
	s := &GameServer{
		addr:           cfg.Server.HTTPAddress,
		metricsAddr:    cfg.Server.MetricsAddress,
		sessionManager: session.NewManager(),
		monitor:        monitor.NewMonitor("nightfall"),
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.broadcaster = broadcast.NewRoomBroadcaster(s.sessionManager)

	timers := timer.NewTimerManager()

	var archiver room.Archiver
	var history *services.HistoryService
	if db != nil {
		history = services.NewHistoryService(db, s.monitor)
		archiver = history
	}

	s.registry = room.NewRegistry(s.broadcaster, timers, archiver, cfg.Game.RoomCodeLength, room.Options{
		DiscussionTimeout: time.Duration(cfg.Game.DiscussionSeconds) * time.Second,
		PostVotePause:     time.Duration(cfg.Game.PostVoteSeconds) * time.Second,
		MinPlayers:        cfg.Game.MinPlayers,
	})
	s.broadcaster.SetMembershipSource(s.registry)

	// keep the room gauge honest even across async retirements
	timers.AddTimer(5*time.Second, 5*time.Second, func() {
		s.monitor.SetActiveRooms(s.registry.Count())
	})

	if history != nil && cfg.Server.RPCAddress != "" {
		rpcServer, err := nightfall_rpc.NewServer(cfg.Server.RPCAddress)
		if err != nil {
			logger.Log.Fatalf("Failed to create RPC server: %v", err)
		}
		s.rpcServer = rpcServer
		rpc.Register(nightfall_rpc.NewHistoryService(history))
	}

	return s
}

func (s *GameServer) Start() error {
	if s.rpcServer != nil {
		go s.rpcServer.Start()
	}
	if s.metricsAddr != "" {
		s.monitor.StartServer(s.metricsAddr)
	}

	http.HandleFunc("/ws", s.handleWebSocket)
	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	if s.rpcServer != nil {
		s.rpcServer.Stop()
	}
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(conn)
}

func (s *GameServer) handleConnection(conn *websocket.Conn) {
	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), wsConn)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlinePlayers()

	logger.Log.Infof("New connection from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		s.registry.Leave(sess.GetID())
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecOnlinePlayers()
		s.monitor.SetActiveRooms(s.registry.Count())
		wsConn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			packet, err := wsConn.ReadPacket()
			if err != nil {
				return
			}
			s.handlePacket(sess, packet)
		}
	}
}

func (s *GameServer) handlePacket(sess *session.Session, packet *network.Packet) {
	start := time.Now()
	s.monitor.IncMessagesReceived()
	defer func() {
		s.monitor.ObserveMessageLatency(time.Since(start))
	}()

	switch packet.MsgID {
	case network.MsgTypeHeartbeat:
		sess.LastActive = time.Now()
	case network.MsgTypeCreateRoom:
		s.handleCreateRoom(sess, packet)
	case network.MsgTypeJoinRoom:
		s.handleJoinRoom(sess, packet)
	case network.MsgTypeLeaveRoom:
		s.registry.Leave(sess.GetID())
		s.monitor.SetActiveRooms(s.registry.Count())
	default:
		// everything else is an in-room action, routed to the sender's
		// room and processed on that room's own goroutine
		if err := s.registry.Route(sess.GetID(), packet.MsgID, packet.Data); err != nil {
			s.sendError(sess, err)
		}
	}
}

func (s *GameServer) handleCreateRoom(sess *session.Session, packet *network.Packet) {
	var req models.CreateRoomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil || req.PlayerName == "" {
		s.sendError(sess, game.ErrTargetRequired)
		return
	}

	// creating abandons any seat the handle still holds
	s.registry.Leave(sess.GetID())

	snap, err := s.registry.CreateRoom(req.PlayerName, sess.GetID())
	if err != nil {
		s.sendError(sess, err)
		return
	}
	sess.SetName(req.PlayerName)
	s.monitor.SetActiveRooms(s.registry.Count())

	data, _ := json.Marshal(models.RoomCreatedEvent{Code: snap.Code, Room: snap})
	sess.Send(network.MsgTypeRoomCreated, data)
}

func (s *GameServer) handleJoinRoom(sess *session.Session, packet *network.Packet) {
	var req models.JoinRoomRequest
	if err := json.Unmarshal(packet.Data, &req); err != nil || req.PlayerName == "" || req.RoomCode == "" {
		s.sendError(sess, game.ErrTargetRequired)
		return
	}

	if err := s.registry.JoinRoom(req.RoomCode, req.PlayerName, sess.GetID()); err != nil {
		s.sendError(sess, err)
		return
	}
	sess.SetName(req.PlayerName)
	logger.Log.Infof("%s joined room %s", req.PlayerName, req.RoomCode)
}

func (s *GameServer) sendError(sess *session.Session, err error) {
	kind := "internal"
	if ge, ok := err.(game.GameError); ok {
		kind = ge.Kind()
	}
	data, _ := json.Marshal(models.ErrorEvent{Kind: kind, Message: err.Error()})
	sess.Send(network.MsgTypeError, data)
}
