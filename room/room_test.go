package room

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/nightfall/game"
	"github.com/wfunc/nightfall/models"
	"github.com/wfunc/nightfall/network"
)

// captured is one message recorded by the mock messenger.
type captured struct {
	MsgID uint16
	Data  []byte
}

// MockMessenger records everything a room emits, per target.
type MockMessenger struct {
	mu         sync.Mutex
	broadcasts []captured
	direct     map[string][]captured
}

func NewMockMessenger() *MockMessenger {
	return &MockMessenger{direct: make(map[string][]captured)}
}

func (m *MockMessenger) BroadcastToRoom(code string, msgID uint16, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcasts = append(m.broadcasts, captured{msgID, data})
	return nil
}

func (m *MockMessenger) SendToPlayer(handle string, msgID uint16, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.direct[handle] = append(m.direct[handle], captured{msgID, data})
	return nil
}

// lastDirect returns the most recent direct message of the given kind sent
// to handle, or nil.
func (m *MockMessenger) lastDirect(handle string, msgID uint16) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.direct[handle]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].MsgID == msgID {
			return msgs[i].Data
		}
	}
	return nil
}

func (m *MockMessenger) lastBroadcast(msgID uint16) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.broadcasts) - 1; i >= 0; i-- {
		if m.broadcasts[i].MsgID == msgID {
			return m.broadcasts[i].Data
		}
	}
	return nil
}

func (m *MockMessenger) countBroadcasts(msgID uint16) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.broadcasts {
		if b.MsgID == msgID {
			n++
		}
	}
	return n
}

// MockScheduler records callbacks instead of firing them, so tests control
// timer expiry.
type MockScheduler struct {
	mu        sync.Mutex
	callbacks []func()
}

func (s *MockScheduler) After(delay time.Duration, callback func()) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, callback)
	return int64(len(s.callbacks))
}

func (s *MockScheduler) fireAll() {
	s.mu.Lock()
	cbs := s.callbacks
	s.callbacks = nil
	s.mu.Unlock()
	for _, cb := range cbs {
		cb()
	}
}

func newTestRegistry(m Messenger) *Registry {
	return NewRegistry(m, nil, nil, 6, Options{MinPlayers: 3})
}

// submitSync pushes a player command through the room's inbox and waits
// for the handler's verdict.
func submitSync(r *Room, sender string, msgID uint16, payload interface{}) error {
	data, _ := json.Marshal(payload)
	return r.ask(command{kind: msgID, sender: sender, data: data})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRegistry_CreateAndJoin(t *testing.T) {
	messenger := NewMockMessenger()
	reg := newTestRegistry(messenger)

	snap, err := reg.CreateRoom("Host", "h-host")
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if len(snap.Code) != 6 {
		t.Errorf("Expected a 6-character code, got %q", snap.Code)
	}
	if snap.Phase != game.PhaseLobby {
		t.Errorf("Expected a lobby room, got phase %s", snap.Phase)
	}
	if reg.Count() != 1 {
		t.Errorf("Expected 1 room, got %d", reg.Count())
	}

	if err := reg.JoinRoom(snap.Code, "Alice", "h-alice"); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	if err := reg.JoinRoom(snap.Code, "Alice", "h-other"); err != game.ErrDuplicateName {
		t.Errorf("Expected ErrDuplicateName, got %v", err)
	}
	if err := reg.JoinRoom("ZZZZZZ", "Bob", "h-bob"); err != game.ErrRoomNotFound {
		t.Errorf("Expected ErrRoomNotFound, got %v", err)
	}

	// re-joining with the same handle is idempotent
	if err := reg.JoinRoom(snap.Code, "Alice", "h-alice"); err != nil {
		t.Errorf("Re-join should be idempotent, got %v", err)
	}
	r, _ := reg.RoomFor("h-alice")
	if len(r.players) != 2 {
		t.Errorf("Expected 2 seats after idempotent re-join, got %d", len(r.players))
	}
}

func TestRegistry_RouteUnknownHandle(t *testing.T) {
	reg := newTestRegistry(NewMockMessenger())
	if err := reg.Route("h-stranger", network.MsgTypeCastVote, nil); err != game.ErrNotInRoom {
		t.Errorf("Expected ErrNotInRoom, got %v", err)
	}
}

func TestRegistry_HostLeavingLobbyRetiresRoom(t *testing.T) {
	messenger := NewMockMessenger()
	reg := newTestRegistry(messenger)

	snap, _ := reg.CreateRoom("Host", "h-host")
	reg.JoinRoom(snap.Code, "Alice", "h-alice")

	reg.Leave("h-host")

	if reg.Count() != 0 {
		t.Errorf("Expected the room to be retired, got %d rooms", reg.Count())
	}
	if messenger.lastBroadcast(network.MsgTypeRoomClosed) == nil {
		t.Error("Expected a room_closed broadcast")
	}
}

func TestRegistry_NonHostLeaveKeepsLobby(t *testing.T) {
	messenger := NewMockMessenger()
	reg := newTestRegistry(messenger)

	snap, _ := reg.CreateRoom("Host", "h-host")
	reg.JoinRoom(snap.Code, "Alice", "h-alice")
	reg.Leave("h-alice")

	if reg.Count() != 1 {
		t.Fatalf("Expected the room to survive, got %d rooms", reg.Count())
	}
	r, _ := reg.RoomFor("h-host")
	if len(r.players) != 1 {
		t.Errorf("Expected 1 seat after leave, got %d", len(r.players))
	}
	var left models.PlayerLeftEvent
	if data := messenger.lastBroadcast(network.MsgTypePlayerLeft); data == nil {
		t.Fatal("Expected a player_left broadcast")
	} else if json.Unmarshal(data, &left); left.Name != "Alice" || left.Count != 1 {
		t.Errorf("Unexpected player_left payload: %+v", left)
	}
}

type seat struct {
	name   string
	handle string
}

// startGameRoom seats every player (the first is the host), applies the
// quota and starts the game. Returns the room and the roles discovered
// from each player's private role_assigned message.
func startGameRoom(t *testing.T, reg *Registry, messenger *MockMessenger, seats []seat, quota game.Quota) (*Room, map[string]game.Role) {
	t.Helper()

	host := seats[0]
	snap, err := reg.CreateRoom(host.name, host.handle)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	for _, p := range seats[1:] {
		if err := reg.JoinRoom(snap.Code, p.name, p.handle); err != nil {
			t.Fatalf("JoinRoom(%s) failed: %v", p.name, err)
		}
	}

	r, _ := reg.RoomFor(host.handle)
	if err := submitSync(r, host.handle, network.MsgTypeUpdateQuota, models.UpdateQuotaRequest{
		Quota: quota,
	}); err != nil {
		t.Fatalf("UpdateQuota failed: %v", err)
	}
	if err := submitSync(r, host.handle, network.MsgTypeStartGame, nil); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	roles := make(map[string]game.Role)
	for _, p := range seats {
		data := messenger.lastDirect(p.handle, network.MsgTypeRoleAssigned)
		if data == nil {
			t.Fatalf("No role_assigned delivered to %s", p.handle)
		}
		var ev models.RoleAssignedEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("Bad role_assigned payload: %v", err)
		}
		roles[p.handle] = ev.Role
	}
	return r, roles
}

// startFourPlayerGame starts a four-seat game with one killer and one
// seer, the fixture most tests share.
func startFourPlayerGame(t *testing.T, reg *Registry, messenger *MockMessenger) (*Room, map[string]game.Role) {
	t.Helper()
	return startGameRoom(t, reg, messenger, []seat{
		{"Host", "h-host"}, {"Alice", "h-alice"}, {"Bob", "h-bob"}, {"Carol", "h-carol"},
	}, game.Quota{Killers: 1, Seers: 1})
}

func rolesByKind(roles map[string]game.Role) map[game.Role][]string {
	byKind := make(map[game.Role][]string)
	for handle, role := range roles {
		byKind[role] = append(byKind[role], handle)
	}
	return byKind
}

func TestRoom_StartGameGuards(t *testing.T) {
	messenger := NewMockMessenger()
	reg := newTestRegistry(messenger)

	snap, _ := reg.CreateRoom("Host", "h-host")
	reg.JoinRoom(snap.Code, "Alice", "h-alice")
	r, _ := reg.RoomFor("h-host")

	if err := submitSync(r, "h-alice", network.MsgTypeStartGame, nil); err != game.ErrNotHost {
		t.Errorf("Expected ErrNotHost for non-host start, got %v", err)
	}
	if err := submitSync(r, "h-host", network.MsgTypeStartGame, nil); err != game.ErrInsufficientPlayers {
		t.Errorf("Expected ErrInsufficientPlayers with 2 players, got %v", err)
	}

	reg.JoinRoom(snap.Code, "Bob", "h-bob")
	// default quota needs killer+seer+guardian+1 = 4 seats
	if err := submitSync(r, "h-host", network.MsgTypeStartGame, nil); err != game.ErrInsufficientPlayers {
		t.Errorf("Expected ErrInsufficientPlayers against the quota, got %v", err)
	}

	if err := submitSync(r, "h-host", network.MsgTypeUpdateQuota, models.UpdateQuotaRequest{
		Quota: game.Quota{Killers: 1},
	}); err != nil {
		t.Fatalf("UpdateQuota failed: %v", err)
	}
	if err := submitSync(r, "h-host", network.MsgTypeStartGame, nil); err != nil {
		t.Fatalf("StartGame should succeed with 3 players and 1 killer, got %v", err)
	}

	// quota edits are lobby-only
	if err := submitSync(r, "h-host", network.MsgTypeUpdateQuota, models.UpdateQuotaRequest{
		Quota: game.Quota{Killers: 2},
	}); err != game.ErrWrongPhase {
		t.Errorf("Expected ErrWrongPhase editing quota mid-game, got %v", err)
	}
}

func TestRegistry_JoinAfterStart(t *testing.T) {
	messenger := NewMockMessenger()
	reg := newTestRegistry(messenger)
	r, _ := startFourPlayerGame(t, reg, messenger)

	if err := reg.JoinRoom(r.Code, "Dave", "h-dave"); err != game.ErrGameAlreadyStarted {
		t.Errorf("Expected ErrGameAlreadyStarted, got %v", err)
	}
}

func TestRoom_NightActionIdempotent(t *testing.T) {
	messenger := NewMockMessenger()
	reg := newTestRegistry(messenger)
	r, roles := startFourPlayerGame(t, reg, messenger)
	byKind := rolesByKind(roles)

	killer := byKind[game.RoleKiller][0]
	villagers := byKind[game.RoleVillager]

	err := submitSync(r, killer, network.MsgTypeNightAction, models.NightActionRequest{Target: villagers[0]})
	if err != nil {
		t.Fatalf("First night action failed: %v", err)
	}

	err = submitSync(r, killer, network.MsgTypeNightAction, models.NightActionRequest{Target: villagers[1]})
	if err != game.ErrAlreadyActed {
		t.Errorf("Expected ErrAlreadyActed, got %v", err)
	}
	if stored := r.nightBuffer[game.RoleKiller].Target; stored != villagers[0] {
		t.Errorf("Stored target changed on rejected resubmission: %s", stored)
	}
}

func TestRoom_NightActionGuards(t *testing.T) {
	messenger := NewMockMessenger()
	reg := newTestRegistry(messenger)
	r, roles := startFourPlayerGame(t, reg, messenger)
	byKind := rolesByKind(roles)

	villager := byKind[game.RoleVillager][0]
	killer := byKind[game.RoleKiller][0]

	if err := submitSync(r, villager, network.MsgTypeNightAction, models.NightActionRequest{Target: killer}); err != game.ErrWrongRole {
		t.Errorf("Expected ErrWrongRole for a villager night action, got %v", err)
	}
	if err := submitSync(r, killer, network.MsgTypeNightAction, models.NightActionRequest{}); err != game.ErrTargetRequired {
		t.Errorf("Expected ErrTargetRequired, got %v", err)
	}
	if err := submitSync(r, killer, network.MsgTypeNightAction, models.NightActionRequest{Target: "h-nobody"}); err != game.ErrInvalidTarget {
		t.Errorf("Expected ErrInvalidTarget, got %v", err)
	}
	if err := submitSync(r, killer, network.MsgTypeCastVote, models.CastVoteRequest{Target: villager}); err != game.ErrWrongPhase {
		t.Errorf("Expected ErrWrongPhase voting at night, got %v", err)
	}
}

func TestRoom_EndToEndTownVictory(t *testing.T) {
	messenger := NewMockMessenger()
	reg := newTestRegistry(messenger)
	r, roles := startFourPlayerGame(t, reg, messenger)
	byKind := rolesByKind(roles)

	killer := byKind[game.RoleKiller][0]
	seer := byKind[game.RoleSeer][0]
	villagers := byKind[game.RoleVillager]
	if len(villagers) != 2 {
		t.Fatalf("Expected exactly 2 villagers, got %d", len(villagers))
	}

	// kill a villager who is not the host so the host can open voting
	victim := villagers[0]
	if victim == "h-host" {
		victim = villagers[1]
	}

	if err := submitSync(r, killer, network.MsgTypeNightAction, models.NightActionRequest{Target: victim}); err != nil {
		t.Fatalf("Killer action failed: %v", err)
	}
	if err := submitSync(r, seer, network.MsgTypeNightAction, models.NightActionRequest{Target: killer}); err != nil {
		t.Fatalf("Seer action failed: %v", err)
	}

	// night resolves once both special roles acted
	var phase models.PhaseChangeEvent
	data := messenger.lastBroadcast(network.MsgTypePhaseChange)
	if data == nil {
		t.Fatal("Expected a phase_change broadcast after night resolution")
	}
	json.Unmarshal(data, &phase)
	if phase.Phase != game.PhaseDay || phase.Round != 1 {
		t.Fatalf("Expected Day round 1, got %s round %d", phase.Phase, phase.Round)
	}
	if phase.Narrative == "" {
		t.Error("Expected a night narrative in the day phase_change")
	}

	var inv models.InvestigationResultEvent
	if data := messenger.lastDirect(seer, network.MsgTypeInvestigationResult); data == nil {
		t.Fatal("Expected a private investigation result for the seer")
	} else if json.Unmarshal(data, &inv); !inv.IsKiller {
		t.Error("Seer investigating the killer should learn is_killer = true")
	}
	if game.CountAlive(r.players) != 3 {
		t.Fatalf("Expected 3 living players after the night, got %d", game.CountAlive(r.players))
	}

	if err := submitSync(r, "h-host", network.MsgTypeStartVoting, nil); err != nil {
		t.Fatalf("StartVoting failed: %v", err)
	}

	// every living player votes the killer; the killer votes back
	alive := []string{}
	for handle := range roles {
		if handle != victim {
			alive = append(alive, handle)
		}
	}
	for _, voter := range alive {
		target := killer
		if voter == killer {
			target = seer
		}
		if err := submitSync(r, voter, network.MsgTypeCastVote, models.CastVoteRequest{Target: target}); err != nil {
			t.Fatalf("Vote by %s failed: %v", voter, err)
		}
	}

	var result models.VotingResultEvent
	if data := messenger.lastBroadcast(network.MsgTypeVotingResult); data == nil {
		t.Fatal("Expected a voting_result broadcast")
	} else {
		json.Unmarshal(data, &result)
	}
	if result.Tally == nil || len(result.Tally) != 2 {
		t.Errorf("Expected a 2-entry tally, got %+v", result.Tally)
	}

	var over models.GameOverEvent
	if data := messenger.lastBroadcast(network.MsgTypeGameOver); data == nil {
		t.Fatal("Expected a game_over broadcast")
	} else {
		json.Unmarshal(data, &over)
	}
	if over.Winner != game.VerdictTownWins {
		t.Errorf("Expected the town to win, got %s", over.Winner)
	}
	for _, p := range over.Players {
		if p.Role == game.RoleNone {
			t.Errorf("Final roster must reveal every role, %s had none", p.Name)
		}
	}

	// the room retires once the final snapshot is delivered
	waitFor(t, "room retirement", func() bool { return reg.Count() == 0 })
}

func TestRoom_VoteGuards(t *testing.T) {
	messenger := NewMockMessenger()
	reg := newTestRegistry(messenger)
	r, roles := startFourPlayerGame(t, reg, messenger)
	byKind := rolesByKind(roles)

	killer := byKind[game.RoleKiller][0]
	seer := byKind[game.RoleSeer][0]
	villagers := byKind[game.RoleVillager]

	victim := villagers[0]
	if victim == "h-host" {
		victim = villagers[1]
	}
	submitSync(r, killer, network.MsgTypeNightAction, models.NightActionRequest{Target: victim})
	submitSync(r, seer, network.MsgTypeNightAction, models.NightActionRequest{Target: killer})
	submitSync(r, "h-host", network.MsgTypeStartVoting, nil)

	if err := submitSync(r, killer, network.MsgTypeCastVote, models.CastVoteRequest{Target: killer}); err != game.ErrInvalidTarget {
		t.Errorf("Expected ErrInvalidTarget for a self-vote, got %v", err)
	}
	if err := submitSync(r, killer, network.MsgTypeCastVote, models.CastVoteRequest{Target: victim}); err != game.ErrInvalidTarget {
		t.Errorf("Expected ErrInvalidTarget voting for the dead, got %v", err)
	}
	if err := submitSync(r, victim, network.MsgTypeCastVote, models.CastVoteRequest{Target: killer}); err != game.ErrWrongRole {
		t.Errorf("Expected the dead to be barred from voting, got %v", err)
	}

	if err := submitSync(r, killer, network.MsgTypeCastVote, models.CastVoteRequest{Target: seer}); err != nil {
		t.Fatalf("Valid vote failed: %v", err)
	}
	if err := submitSync(r, killer, network.MsgTypeCastVote, models.CastVoteRequest{Target: seer}); err != game.ErrAlreadyVoted {
		t.Errorf("Expected ErrAlreadyVoted, got %v", err)
	}

	var update models.VoteUpdateEvent
	if data := messenger.lastBroadcast(network.MsgTypeVoteUpdate); data == nil {
		t.Fatal("Expected a vote_update while the ballot is incomplete")
	} else {
		json.Unmarshal(data, &update)
	}
	if update.Votes != 1 || update.Total != 3 {
		t.Errorf("Expected 1/3 vote progress, got %d/%d", update.Votes, update.Total)
	}
}

func TestRoom_InGameDisconnectKeepsSeat(t *testing.T) {
	messenger := NewMockMessenger()
	reg := newTestRegistry(messenger)
	r, roles := startFourPlayerGame(t, reg, messenger)
	byKind := rolesByKind(roles)

	// a disconnected villager keeps role and aliveness
	villager := byKind[game.RoleVillager][0]
	reg.Leave(villager)

	if reg.Count() != 1 {
		t.Fatalf("Expected the room to survive an in-game disconnect")
	}
	p := game.FindByHandle(r.players, villager)
	if p == nil {
		t.Fatal("Disconnected seat was removed mid-game")
	}
	if p.Connected || !p.Alive || p.Role != game.RoleVillager {
		t.Errorf("Disconnected seat corrupted: %+v", p)
	}
	if messenger.lastBroadcast(network.MsgTypePlayerDisconnected) == nil {
		t.Error("Expected a player_disconnected broadcast")
	}
}

func TestRoom_DisconnectedSpecialRoleDoesNotBlockNight(t *testing.T) {
	messenger := NewMockMessenger()
	reg := newTestRegistry(messenger)
	r, roles := startFourPlayerGame(t, reg, messenger)
	byKind := rolesByKind(roles)

	killer := byKind[game.RoleKiller][0]
	seer := byKind[game.RoleSeer][0]
	villagers := byKind[game.RoleVillager]

	victim := villagers[0]
	if victim == "h-host" {
		victim = villagers[1]
	}

	submitSync(r, killer, network.MsgTypeNightAction, models.NightActionRequest{Target: victim})
	// the seer never acts; their disconnect completes the round
	reg.Leave(seer)

	waitFor(t, "night resolution", func() bool {
		return messenger.lastBroadcast(network.MsgTypePhaseChange) != nil &&
			func() bool {
				var ev models.PhaseChangeEvent
				json.Unmarshal(messenger.lastBroadcast(network.MsgTypePhaseChange), &ev)
				return ev.Phase == game.PhaseDay
			}()
	})
}

func TestRoom_DiscussionTimerOpensVoting(t *testing.T) {
	messenger := NewMockMessenger()
	scheduler := &MockScheduler{}
	reg := NewRegistry(messenger, scheduler, nil, 6, Options{
		MinPlayers:        3,
		DiscussionTimeout: time.Minute,
	})
	r, roles := startFourPlayerGame(t, reg, messenger)
	byKind := rolesByKind(roles)

	killer := byKind[game.RoleKiller][0]
	seer := byKind[game.RoleSeer][0]
	villagers := byKind[game.RoleVillager]
	victim := villagers[0]
	if victim == "h-host" {
		victim = villagers[1]
	}

	submitSync(r, killer, network.MsgTypeNightAction, models.NightActionRequest{Target: victim})
	submitSync(r, seer, network.MsgTypeNightAction, models.NightActionRequest{Target: killer})

	// the host never clicks; the countdown opens voting instead
	scheduler.fireAll()

	waitFor(t, "voting phase", func() bool {
		data := messenger.lastBroadcast(network.MsgTypePhaseChange)
		if data == nil {
			return false
		}
		var ev models.PhaseChangeEvent
		json.Unmarshal(data, &ev)
		return ev.Phase == game.PhaseVoting
	})
}

func TestRoom_DisconnectDuringPostVotePauseResolvesOnce(t *testing.T) {
	messenger := NewMockMessenger()
	scheduler := &MockScheduler{}
	reg := NewRegistry(messenger, scheduler, nil, 6, Options{
		MinPlayers:    3,
		PostVotePause: time.Minute,
	})
	r, roles := startGameRoom(t, reg, messenger, []seat{
		{"Host", "h-host"}, {"Alice", "h-alice"}, {"Bob", "h-bob"},
		{"Carol", "h-carol"}, {"Dave", "h-dave"},
	}, game.Quota{Killers: 1, Seers: 1})
	byKind := rolesByKind(roles)

	killer := byKind[game.RoleKiller][0]
	seer := byKind[game.RoleSeer][0]
	villagers := byKind[game.RoleVillager]

	victim := villagers[0]
	if victim == "h-host" {
		victim = villagers[1]
	}
	var scapegoat, bystander string
	for _, v := range villagers {
		if v == victim {
			continue
		}
		if scapegoat == "" {
			scapegoat = v
		} else {
			bystander = v
		}
	}

	submitSync(r, killer, network.MsgTypeNightAction, models.NightActionRequest{Target: victim})
	submitSync(r, seer, network.MsgTypeNightAction, models.NightActionRequest{Target: killer})
	if err := submitSync(r, "h-host", network.MsgTypeStartVoting, nil); err != nil {
		t.Fatalf("StartVoting failed: %v", err)
	}

	// a villager is voted out 3-1; the game stays undecided, so the next
	// night is scheduled after the pause
	for _, voter := range []string{killer, seer, bystander} {
		if err := submitSync(r, voter, network.MsgTypeCastVote, models.CastVoteRequest{Target: scapegoat}); err != nil {
			t.Fatalf("Vote by %s failed: %v", voter, err)
		}
	}
	if err := submitSync(r, scapegoat, network.MsgTypeCastVote, models.CastVoteRequest{Target: killer}); err != nil {
		t.Fatalf("Vote by %s failed: %v", scapegoat, err)
	}
	if got := messenger.countBroadcasts(network.MsgTypeVotingResult); got != 1 {
		t.Fatalf("Expected 1 voting_result after the ballot, got %d", got)
	}

	// a survivor drops while the pause timer is still pending; the
	// consumed ballot must not resolve a second time
	reg.Leave(bystander)
	if got := messenger.countBroadcasts(network.MsgTypeVotingResult); got != 1 {
		t.Fatalf("Expected one voting_result per ballot, got %d", got)
	}

	scheduler.fireAll()
	waitFor(t, "night round 2", func() bool {
		data := messenger.lastBroadcast(network.MsgTypePhaseChange)
		if data == nil {
			return false
		}
		var ev models.PhaseChangeEvent
		json.Unmarshal(data, &ev)
		return ev.Phase == game.PhaseNight && ev.Round == 2
	})
}

func TestRoom_AbsentSpecialRolesDoNotStallNextNight(t *testing.T) {
	messenger := NewMockMessenger()
	scheduler := &MockScheduler{}
	reg := NewRegistry(messenger, scheduler, nil, 6, Options{
		MinPlayers:        3,
		DiscussionTimeout: time.Minute,
	})
	r, roles := startGameRoom(t, reg, messenger, []seat{
		{"Host", "h-host"}, {"Alice", "h-alice"}, {"Bob", "h-bob"}, {"Carol", "h-carol"},
	}, game.Quota{Killers: 1})
	byKind := rolesByKind(roles)

	killer := byKind[game.RoleKiller][0]
	villagers := byKind[game.RoleVillager]

	if err := submitSync(r, killer, network.MsgTypeNightAction, models.NightActionRequest{Target: villagers[0]}); err != nil {
		t.Fatalf("Killer action failed: %v", err)
	}

	// the only special role drops during the day
	reg.Leave(killer)

	// the discussion countdown opens voting without the host
	scheduler.fireAll()
	waitFor(t, "voting phase", func() bool {
		data := messenger.lastBroadcast(network.MsgTypePhaseChange)
		if data == nil {
			return false
		}
		var ev models.PhaseChangeEvent
		json.Unmarshal(data, &ev)
		return ev.Phase == game.PhaseVoting
	})

	// the two living villagers deadlock; nobody is eliminated
	a, b := villagers[1], villagers[2]
	if err := submitSync(r, a, network.MsgTypeCastVote, models.CastVoteRequest{Target: b}); err != nil {
		t.Fatalf("Vote by %s failed: %v", a, err)
	}
	if err := submitSync(r, b, network.MsgTypeCastVote, models.CastVoteRequest{Target: a}); err != nil {
		t.Fatalf("Vote by %s failed: %v", b, err)
	}

	// round 2's night has no special role left who could act or
	// disconnect, so it must resolve into day on its own
	if r.phase != game.PhaseDay || r.round != 2 {
		t.Fatalf("Expected Day round 2, got %s round %d", r.phase, r.round)
	}
	data := messenger.lastBroadcast(network.MsgTypePhaseChange)
	var ev models.PhaseChangeEvent
	json.Unmarshal(data, &ev)
	if ev.Phase != game.PhaseDay || ev.Round != 2 {
		t.Errorf("Expected a Day round 2 phase_change, got %s round %d", ev.Phase, ev.Round)
	}
}

func TestRegistry_JoinOtherRoomVacatesOldSeat(t *testing.T) {
	messenger := NewMockMessenger()
	reg := newTestRegistry(messenger)

	snapA, _ := reg.CreateRoom("HostA", "h-hosta")
	reg.JoinRoom(snapA.Code, "Alice", "h-alice")
	snapB, _ := reg.CreateRoom("HostB", "h-hostb")

	// the host of A defects to B; A must close, not linger with a seat
	// no handle can ever vacate
	if err := reg.JoinRoom(snapB.Code, "HostA", "h-hosta"); err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	if reg.Count() != 1 {
		t.Fatalf("Expected room A to be retired, got %d rooms", reg.Count())
	}
	if reg.Members(snapA.Code) != nil {
		t.Error("Expected room A to be gone")
	}
	if messenger.lastBroadcast(network.MsgTypeRoomClosed) == nil {
		t.Error("Expected a room_closed broadcast for room A")
	}
	rB, _ := reg.RoomFor("h-hostb")
	if len(rB.players) != 2 {
		t.Fatalf("Expected 2 seats in room B, got %d", len(rB.players))
	}

	// everyone leaves; nothing may leak
	reg.Leave("h-hosta")
	reg.Leave("h-hostb")
	if reg.Count() != 0 {
		t.Errorf("Expected no rooms left, got %d", reg.Count())
	}
}
