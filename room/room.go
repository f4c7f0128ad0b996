// room/room.go
package room

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wfunc/nightfall/game"
	"github.com/wfunc/nightfall/logger"
	"github.com/wfunc/nightfall/models"
	"github.com/wfunc/nightfall/network"
)

// Internal command kinds, outside the network id ranges.
const (
	opJoin uint16 = 1001 + iota
	opLeave
	opDiscussionExpired
	opNightBegins
)

// command is one unit of work for the room's actor loop. Player commands
// carry the inbound packet payload; internal triggers carry the round they
// were scheduled in so stale timers are ignored.
type command struct {
	kind   uint16
	sender string
	name   string
	data   []byte
	round  int
	reply  chan error
}

// Options tunes per-room behavior. Zero durations disable the
// corresponding timer.
type Options struct {
	DiscussionTimeout time.Duration // Day -> Voting without host input
	PostVotePause     time.Duration // delay between voting result and next night
	MinPlayers        int
}

// Room owns one game: the roster, the current phase, the pending night and
// vote buffers, and the per-game history. All mutation happens on the
// room's own goroutine; the inbox serializes every inbound message, so the
// aggregate needs no internal locking.
type Room struct {
	Code      string
	phase     game.Phase
	round     int
	quota     game.Quota
	players   []*game.Player
	host      string
	startedAt time.Time

	nightBuffer  map[game.Role]game.NightAction
	voteBuffer   map[string]string
	voteResolved bool
	history      []models.RoundRecord

	opts      Options
	messenger Messenger
	scheduler Scheduler
	archiver  Archiver
	registry  *Registry

	inbox     chan command
	closeChan chan struct{}
	frozen    bool
}

func newRoom(code, hostName, hostHandle string, reg *Registry) *Room {
	r := &Room{
		Code:  code,
		phase: game.PhaseLobby,
		quota: game.Quota{Killers: 1, Seers: 1, Guardians: 1},
		players: []*game.Player{
			{Handle: hostHandle, Name: hostName, Alive: true, Connected: true},
		},
		host:        hostHandle,
		nightBuffer: make(map[game.Role]game.NightAction),
		voteBuffer:  make(map[string]string),
		opts:        reg.opts,
		messenger:   reg.messenger,
		scheduler:   reg.scheduler,
		archiver:    reg.archiver,
		registry:    reg,
		inbox:       make(chan command, 64),
		closeChan:   make(chan struct{}),
	}
	go r.loop()
	return r
}

// loop drains the inbox one command at a time, in arrival order. It is the
// only goroutine that touches room state.
func (r *Room) loop() {
	for {
		select {
		case cmd := <-r.inbox:
			r.handle(cmd)
		case <-r.closeChan:
			return
		}
	}
}

// Close stops the actor loop. Called by the registry on retirement.
func (r *Room) Close() {
	close(r.closeChan)
}

// Submit queues a player command for serialized processing. A full inbox
// drops the command; the sender will retry or time out client-side.
func (r *Room) Submit(sender string, msgID uint16, data []byte) {
	select {
	case r.inbox <- command{kind: msgID, sender: sender, data: data}:
	default:
		logger.Log.Warnf("room %s inbox full, dropping message %d from %s", r.Code, msgID, sender)
	}
}

// ask queues a command and waits for its result. Used by the registry for
// join/leave, where the caller needs the outcome.
func (r *Room) ask(cmd command) error {
	cmd.reply = make(chan error, 1)
	select {
	case r.inbox <- cmd:
	case <-r.closeChan:
		return game.ErrRoomNotFound
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-r.closeChan:
		return game.ErrRoomNotFound
	}
}

// handle validates and applies one command via the phase dispatch table.
// Guard rejections go only to the sender and leave room state untouched.
func (r *Room) handle(cmd command) {
	if r.frozen {
		logger.Log.Errorf("room %s is frozen, ignoring message %d", r.Code, cmd.kind)
		r.reply(cmd, game.ErrWrongPhase)
		return
	}

	h, ok := dispatch[r.phase][cmd.kind]
	if !ok {
		r.reply(cmd, game.ErrWrongPhase)
		return
	}

	r.reply(cmd, h(r, cmd))
}

func (r *Room) reply(cmd command, err error) {
	if cmd.reply != nil {
		cmd.reply <- err
		return
	}
	if err != nil {
		r.sendError(cmd.sender, err)
	}
}

// dispatch is the single validation table: phase x message kind. A kind
// missing from the current phase's row is rejected as WrongPhase.
var dispatch = map[game.Phase]map[uint16]func(*Room, command) error{
	game.PhaseLobby: {
		opJoin:                     (*Room).handleJoin,
		opLeave:                    (*Room).handleLeave,
		network.MsgTypeUpdateQuota: (*Room).handleUpdateQuota,
		network.MsgTypeStartGame:   (*Room).handleStartGame,
		network.MsgTypeChat:        (*Room).handleChat,
	},
	game.PhaseNight: {
		opJoin:                     (*Room).rejectJoinStarted,
		opLeave:                    (*Room).handleLeave,
		network.MsgTypeNightAction: (*Room).handleNightAction,
		network.MsgTypeChat:        (*Room).handleChat,
	},
	game.PhaseDay: {
		opJoin:                     (*Room).rejectJoinStarted,
		opLeave:                    (*Room).handleLeave,
		network.MsgTypeStartVoting: (*Room).handleStartVoting,
		network.MsgTypeChat:        (*Room).handleChat,
		opDiscussionExpired:        (*Room).handleDiscussionExpired,
	},
	game.PhaseVoting: {
		opJoin:                  (*Room).rejectJoinStarted,
		opLeave:                 (*Room).handleLeave,
		network.MsgTypeCastVote: (*Room).handleCastVote,
		network.MsgTypeChat:     (*Room).handleChat,
		opNightBegins:           (*Room).handleNightBegins,
	},
	game.PhaseEnded: {
		opJoin:  (*Room).rejectJoinStarted,
		opLeave: (*Room).handleLeave,
	},
}

func (r *Room) rejectJoinStarted(cmd command) error {
	// idempotent re-join still works for a handle that already holds a seat
	if p := game.FindByHandle(r.players, cmd.sender); p != nil {
		r.sendToPlayer(cmd.sender, network.MsgTypeRoomUpdated, models.RoomUpdatedEvent{Room: r.snapshot(false)})
		return nil
	}
	return game.ErrGameAlreadyStarted
}

// --- lobby handlers ---

func (r *Room) handleJoin(cmd command) error {
	// idempotent re-join for a handle that already holds a seat
	if p := game.FindByHandle(r.players, cmd.sender); p != nil {
		r.sendToPlayer(cmd.sender, network.MsgTypeRoomUpdated, models.RoomUpdatedEvent{Room: r.snapshot(false)})
		return nil
	}
	for _, p := range r.players {
		if p.Name == cmd.name {
			return game.ErrDuplicateName
		}
	}

	r.players = append(r.players, &game.Player{
		Handle:    cmd.sender,
		Name:      cmd.name,
		Alive:     true,
		Connected: true,
	})
	r.broadcastRoomUpdated()
	logger.Log.Infof("%s joined room %s (%d players)", cmd.name, r.Code, len(r.players))
	return nil
}

func (r *Room) handleUpdateQuota(cmd command) error {
	if cmd.sender != r.host {
		return game.ErrNotHost
	}
	var req models.UpdateQuotaRequest
	if err := json.Unmarshal(cmd.data, &req); err != nil || !req.Quota.Valid() {
		return game.ErrInvalidTarget
	}
	// seat-count feasibility is checked at start, not here
	r.quota = req.Quota
	r.broadcastRoomUpdated()
	return nil
}

func (r *Room) handleStartGame(cmd command) error {
	if cmd.sender != r.host {
		return game.ErrNotHost
	}
	if len(r.players) < r.opts.MinPlayers {
		return game.ErrInsufficientPlayers
	}

	roles, err := game.AssignRoles(len(r.players), r.quota)
	if err != nil {
		return err
	}

	for i, p := range r.players {
		p.Role = roles[i]
		p.Alive = true
		p.HasActed = false
		p.HasVoted = false
		// each player learns only their own role
		r.sendToPlayer(p.Handle, network.MsgTypeRoleAssigned, models.RoleAssignedEvent{
			Role:        p.Role,
			Description: p.Role.Description(),
		})
	}

	r.round = 1
	r.startedAt = time.Now()
	r.history = r.history[:0]
	r.enterNight()
	logger.Log.Infof("game started in room %s with %d players", r.Code, len(r.players))
	return nil
}

// --- night handlers ---

func (r *Room) handleNightAction(cmd command) error {
	p := game.FindByHandle(r.players, cmd.sender)
	if p == nil {
		return game.ErrNotInRoom
	}
	if !p.Alive {
		return game.ErrWrongRole
	}
	if !p.Role.IsSpecial() {
		return game.ErrWrongRole
	}
	if p.HasActed {
		return game.ErrAlreadyActed
	}

	var req models.NightActionRequest
	if err := json.Unmarshal(cmd.data, &req); err != nil || req.Target == "" {
		return game.ErrTargetRequired
	}
	// a dead target is legal for the killer (no effect at resolution),
	// but the handle must at least be in the roster
	if game.FindByHandle(r.players, req.Target) == nil {
		return game.ErrInvalidTarget
	}

	r.nightBuffer[p.Role] = game.NightAction{Actor: p.Handle, Target: req.Target}
	p.HasActed = true
	r.sendToPlayer(cmd.sender, network.MsgTypeActionConfirmed, map[string]string{"message": "action recorded"})

	r.checkNightComplete()
	return nil
}

// checkNightComplete resolves the night once every living, still-connected
// special-role player has acted. Disconnected seats never block a round.
func (r *Room) checkNightComplete() {
	for _, p := range r.players {
		if p.Alive && p.Connected && p.Role.IsSpecial() && !p.HasActed {
			return
		}
	}
	r.resolveNight()
}

func (r *Room) resolveNight() {
	if r.phase != game.PhaseNight {
		r.freeze(fmt.Sprintf("night resolver invoked during %s", r.phase))
		return
	}
	result := game.ResolveNight(r.nightBuffer, r.players)

	if inv := result.Investigation; inv != nil {
		targetName := "unknown"
		if inv.Target != nil {
			targetName = inv.Target.Name
		}
		r.sendToPlayer(inv.Seer, network.MsgTypeInvestigationResult, models.InvestigationResultEvent{
			TargetName: targetName,
			IsKiller:   inv.IsKiller,
		})
	}

	var narrative string
	switch result.Outcome {
	case game.OutcomeDeath:
		narrative = fmt.Sprintf("%s was killed during the night.", result.Victim.Name)
		r.sendToPlayer(result.Victim.Handle, network.MsgTypePlayerDied, models.PlayerDiedEvent{
			Message: "You were killed during the night.",
			Role:    result.Victim.Role,
		})
	case game.OutcomeProtected:
		narrative = "The guardian protected someone tonight. Nobody died."
	default:
		narrative = "A quiet night. Nobody died."
	}
	r.record("night", narrative)

	if verdict := game.EvaluateWin(r.players); verdict.Decided() {
		r.endGame(verdict, narrative)
		return
	}

	// day is never skipped: every night resolves into discussion
	if !r.setPhase(game.PhaseDay) {
		return
	}
	for _, p := range r.players {
		p.HasActed = false
	}
	r.broadcast(network.MsgTypePhaseChange, models.PhaseChangeEvent{
		Phase:     game.PhaseDay,
		Round:     r.round,
		Narrative: narrative,
	})

	if r.opts.DiscussionTimeout > 0 && r.scheduler != nil {
		round := r.round
		r.scheduler.After(r.opts.DiscussionTimeout, func() {
			r.trigger(opDiscussionExpired, round)
		})
	}
}

// --- day handlers ---

func (r *Room) handleStartVoting(cmd command) error {
	if cmd.sender != r.host {
		return game.ErrNotHost
	}
	r.enterVoting()
	return nil
}

func (r *Room) handleDiscussionExpired(cmd command) error {
	if cmd.round != r.round {
		return nil // stale timer from an earlier round
	}
	r.enterVoting()
	return nil
}

func (r *Room) enterVoting() {
	if !r.setPhase(game.PhaseVoting) {
		return
	}
	r.voteBuffer = make(map[string]string)
	r.voteResolved = false
	for _, p := range r.players {
		p.HasVoted = false
	}
	r.broadcast(network.MsgTypePhaseChange, models.PhaseChangeEvent{
		Phase: game.PhaseVoting,
		Round: r.round,
	})
}

// --- voting handlers ---

func (r *Room) handleCastVote(cmd command) error {
	p := game.FindByHandle(r.players, cmd.sender)
	if p == nil {
		return game.ErrNotInRoom
	}
	if !p.Alive {
		return game.ErrWrongRole
	}
	if p.HasVoted {
		return game.ErrAlreadyVoted
	}

	var req models.CastVoteRequest
	if err := json.Unmarshal(cmd.data, &req); err != nil || req.Target == "" {
		return game.ErrTargetRequired
	}
	target := game.FindByHandle(r.players, req.Target)
	if target == nil || !target.Alive || target.Handle == p.Handle {
		return game.ErrInvalidTarget
	}

	r.voteBuffer[p.Handle] = target.Handle
	p.HasVoted = true
	r.sendToPlayer(cmd.sender, network.MsgTypeVoteConfirmed, map[string]string{"message": "vote recorded"})

	voted, total := r.voteProgress()
	if voted < total {
		r.broadcast(network.MsgTypeVoteUpdate, models.VoteUpdateEvent{Votes: voted, Total: total})
		return nil
	}
	r.resolveVoting()
	return nil
}

func (r *Room) voteProgress() (voted, total int) {
	for _, p := range r.players {
		if !p.Alive || !p.Connected {
			continue
		}
		total++
		if p.HasVoted {
			voted++
		}
	}
	return voted, total
}

func (r *Room) resolveVoting() {
	if r.phase != game.PhaseVoting {
		r.freeze(fmt.Sprintf("vote resolver invoked during %s", r.phase))
		return
	}
	// the room stays in Voting through the post-vote pause; a disconnect
	// in that window must not resolve the consumed ballot again
	if r.voteResolved {
		return
	}
	r.voteResolved = true
	result := game.ResolveVote(r.voteBuffer, r.players)

	var narrative string
	if result.Eliminated != nil {
		narrative = fmt.Sprintf("%s was eliminated by vote. Their role was %s.",
			result.Eliminated.Name, strings.ToUpper(result.Eliminated.Role.String()))
		r.sendToPlayer(result.Eliminated.Handle, network.MsgTypePlayerDied, models.PlayerDiedEvent{
			Message: "You were eliminated by vote.",
			Role:    result.Eliminated.Role,
		})
	} else {
		narrative = "No consensus was reached. Nobody was eliminated."
	}
	r.record("voting", narrative)

	r.broadcast(network.MsgTypeVotingResult, models.VotingResultEvent{
		Narrative: narrative,
		Tally:     r.tallyByName(result.Tally),
	})

	if verdict := game.EvaluateWin(r.players); verdict.Decided() {
		r.endGame(verdict, narrative)
		return
	}

	// the next night begins after a short pause so everyone can read the
	// result; the timer re-enters the room as an ordinary trigger
	round := r.round
	if r.opts.PostVotePause > 0 && r.scheduler != nil {
		r.scheduler.After(r.opts.PostVotePause, func() {
			r.trigger(opNightBegins, round)
		})
		return
	}
	r.beginNextNight()
}

// handleNightBegins fires when the post-vote pause elapses. The room is
// still in Voting until then; new votes are impossible because every
// living player has already voted.
func (r *Room) handleNightBegins(cmd command) error {
	if cmd.round != r.round {
		return nil // stale timer
	}
	r.beginNextNight()
	return nil
}

func (r *Room) beginNextNight() {
	r.round++
	r.enterNight()
}

func (r *Room) enterNight() {
	if !r.setPhase(game.PhaseNight) {
		return
	}
	r.nightBuffer = make(map[game.Role]game.NightAction)
	r.voteBuffer = make(map[string]string)
	for _, p := range r.players {
		p.HasActed = false
		p.HasVoted = false
	}
	r.broadcast(network.MsgTypePhaseChange, models.PhaseChangeEvent{
		Phase: game.PhaseNight,
		Round: r.round,
	})
	// a night with no living connected special role pending resolves
	// immediately; without this check no message would ever complete it
	r.checkNightComplete()
}

// --- shared handlers ---

func (r *Room) handleChat(cmd command) error {
	p := game.FindByHandle(r.players, cmd.sender)
	if p == nil {
		return game.ErrNotInRoom
	}
	// the dead are silent during discussion
	if r.phase == game.PhaseDay && !p.Alive {
		return game.ErrWrongPhase
	}

	var req models.ChatRequest
	if err := json.Unmarshal(cmd.data, &req); err != nil || req.Message == "" {
		return nil
	}
	r.broadcast(network.MsgTypeChatMessage, models.ChatMessageEvent{
		PlayerName: p.Name,
		Message:    req.Message,
		Alive:      p.Alive,
		Timestamp:  time.Now(),
	})
	return nil
}

// handleLeave removes a lobby seat, or marks an in-game seat disconnected
// while preserving its role and aliveness. Returning errRetireRoom tells
// the registry to retire the room.
func (r *Room) handleLeave(cmd command) error {
	p := game.FindByHandle(r.players, cmd.sender)
	if p == nil {
		return game.ErrNotInRoom
	}

	if r.phase == game.PhaseLobby {
		if cmd.sender == r.host {
			r.broadcast(network.MsgTypeRoomClosed, models.RoomClosedEvent{Message: "The host left the room."})
			return errRetireRoom
		}
		for i, q := range r.players {
			if q.Handle == cmd.sender {
				r.players = append(r.players[:i], r.players[i+1:]...)
				break
			}
		}
		if len(r.players) == 0 {
			return errRetireRoom
		}
		r.broadcast(network.MsgTypePlayerLeft, models.PlayerLeftEvent{Name: p.Name, Count: len(r.players)})
		r.broadcastRoomUpdated()
		return nil
	}

	if r.phase == game.PhaseEnded {
		p.Connected = false
		return nil
	}

	// in-game: the seat stays, the game goes on without them
	p.Connected = false
	r.broadcast(network.MsgTypePlayerDisconnected, models.PlayerDisconnectedEvent{Name: p.Name})
	logger.Log.Infof("%s disconnected from room %s mid-game", p.Name, r.Code)

	// their pending action or vote no longer blocks the round
	switch r.phase {
	case game.PhaseNight:
		r.checkNightComplete()
	case game.PhaseVoting:
		if voted, total := r.voteProgress(); total > 0 && voted >= total {
			r.resolveVoting()
		}
	}
	return nil
}

// --- endgame ---

func (r *Room) endGame(verdict game.Verdict, narrative string) {
	if !r.setPhase(game.PhaseEnded) {
		return
	}

	var message string
	if verdict == game.VerdictTownWins {
		message = "The town wins! Every killer has been eliminated."
	} else {
		message = "The killers win! They have taken over the town."
	}
	r.record("ended", message)

	roster := r.rosterInfo(true)
	r.broadcast(network.MsgTypeGameOver, models.GameOverEvent{
		Winner:    verdict,
		Message:   message,
		Players:   roster,
		Narrative: narrative,
	})
	logger.Log.Infof("game over in room %s: %s after %d round(s)", r.Code, verdict, r.round)

	if r.archiver != nil {
		duration := time.Since(r.startedAt)
		if err := r.archiver.ArchiveGame(r.Code, verdict, roster, r.history, duration); err != nil {
			logger.Log.Errorf("failed to archive game for room %s: %v", r.Code, err)
		}
	}

	// the final snapshot has been delivered; the room can go away
	r.registry.retireAsync(r.Code)
}

// setPhase moves the room through the phase machine. An illegal
// transition freezes the room instead of applying it.
func (r *Room) setPhase(next game.Phase) bool {
	if !r.phase.CanTransitionTo(next) {
		r.freeze(fmt.Sprintf("illegal transition %s -> %s", r.phase, next))
		return false
	}
	r.phase = next
	return true
}

// freeze stops the room in place after an internal invariant violation.
// Producing no result at all beats producing a wrong one.
func (r *Room) freeze(reason string) {
	r.frozen = true
	logger.Log.Errorf("room %s frozen: %s", r.Code, reason)
}

// --- helpers ---

func (r *Room) record(phase, narrative string) {
	r.history = append(r.history, models.RoundRecord{
		Round:     r.round,
		Phase:     phase,
		Narrative: narrative,
	})
}

func (r *Room) trigger(kind uint16, round int) {
	select {
	case r.inbox <- command{kind: kind, round: round}:
	case <-r.closeChan:
	}
}

func (r *Room) tallyByName(tally map[string]int) map[string]int {
	named := make(map[string]int, len(tally))
	for handle, count := range tally {
		if p := game.FindByHandle(r.players, handle); p != nil {
			named[p.Name] = count
		}
	}
	return named
}

func (r *Room) rosterInfo(revealRoles bool) []models.PlayerInfo {
	infos := make([]models.PlayerInfo, 0, len(r.players))
	for _, p := range r.players {
		info := models.PlayerInfo{
			Handle:    p.Handle,
			Name:      p.Name,
			Alive:     p.Alive,
			Connected: p.Connected,
		}
		if revealRoles {
			info.Role = p.Role
		}
		infos = append(infos, info)
	}
	return infos
}

func (r *Room) snapshot(revealRoles bool) models.RoomSnapshot {
	return models.RoomSnapshot{
		Code:    r.Code,
		Phase:   r.phase,
		Round:   r.round,
		Quota:   r.quota,
		Host:    r.host,
		Players: r.rosterInfo(revealRoles),
	}
}

func (r *Room) broadcastRoomUpdated() {
	r.broadcast(network.MsgTypeRoomUpdated, models.RoomUpdatedEvent{Room: r.snapshot(false)})
}

func (r *Room) broadcast(msgID uint16, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("room %s: marshal broadcast %d: %v", r.Code, msgID, err)
		return
	}
	if err := r.messenger.BroadcastToRoom(r.Code, msgID, data); err != nil {
		logger.Log.Warnf("room %s: broadcast %d: %v", r.Code, msgID, err)
	}
}

func (r *Room) sendToPlayer(handle string, msgID uint16, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorf("room %s: marshal send %d: %v", r.Code, msgID, err)
		return
	}
	if err := r.messenger.SendToPlayer(handle, msgID, data); err != nil {
		logger.Log.Debugf("room %s: send %d to %s: %v", r.Code, msgID, handle, err)
	}
}

func (r *Room) sendError(handle string, err error) {
	kind := "internal"
	if ge, ok := err.(game.GameError); ok {
		kind = ge.Kind()
	}
	r.sendToPlayer(handle, network.MsgTypeError, models.ErrorEvent{Kind: kind, Message: err.Error()})
}
