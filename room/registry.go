// room/registry.go
package room

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/wfunc/nightfall/game"
	"github.com/wfunc/nightfall/logger"
	"github.com/wfunc/nightfall/models"
)

// errRetireRoom is returned by a room's leave handler when the room should
// be removed from the registry. Never surfaces to players.
var errRetireRoom = errors.New("retire room")

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Registry owns the code -> room mapping and routes player handles to
// their rooms. Its lock covers only the maps; room internals are mutated
// solely on each room's own goroutine.
type Registry struct {
	rooms       map[string]*Room
	handleIndex map[string]string // handle -> room code
	mutex       sync.RWMutex

	opts       Options
	codeLength int
	messenger  Messenger
	scheduler  Scheduler
	archiver   Archiver
}

// NewRegistry creates an empty registry. The archiver and scheduler may be
// nil; rooms then skip archiving and timer-driven transitions.
func NewRegistry(messenger Messenger, scheduler Scheduler, archiver Archiver, codeLength int, opts Options) *Registry {
	if codeLength <= 0 {
		codeLength = 6
	}
	if opts.MinPlayers <= 0 {
		opts.MinPlayers = 3
	}
	return &Registry{
		rooms:       make(map[string]*Room),
		handleIndex: make(map[string]string),
		opts:        opts,
		codeLength:  codeLength,
		messenger:   messenger,
		scheduler:   scheduler,
		archiver:    archiver,
	}
}

// CreateRoom allocates a fresh collision-checked code and creates a lobby
// room with the host as its only player and quota authority.
func (reg *Registry) CreateRoom(hostName, hostHandle string) (models.RoomSnapshot, error) {
	reg.mutex.Lock()
	defer reg.mutex.Unlock()

	code := reg.newCode()
	r := newRoom(code, hostName, hostHandle, reg)
	reg.rooms[code] = r
	reg.handleIndex[hostHandle] = code

	logger.Log.Infof("room %s created by %s", code, hostName)
	return r.snapshot(false), nil
}

// newCode draws short codes until one is unused. Caller holds the lock.
func (reg *Registry) newCode() string {
	for {
		buf := make([]byte, reg.codeLength)
		for i := range buf {
			buf[i] = codeAlphabet[rand.Intn(len(codeAlphabet))]
		}
		code := string(buf)
		if _, taken := reg.rooms[code]; !taken {
			return code
		}
	}
}

// JoinRoom seats a player in the lobby of the room owning code. Re-joining
// with a handle that already holds a seat is idempotent.
func (reg *Registry) JoinRoom(code, playerName, handle string) error {
	reg.mutex.RLock()
	r, exists := reg.rooms[code]
	prev, bound := reg.handleIndex[handle]
	reg.mutex.RUnlock()
	if !exists {
		return game.ErrRoomNotFound
	}

	// a handle holds at most one seat; joining another room vacates the
	// old one first so no room is left with a seat nobody can free
	if bound && prev != code {
		reg.Leave(handle)
	}

	// bind before asking so the joiner receives the room_updated
	// broadcast their own join produces
	reg.mutex.Lock()
	reg.handleIndex[handle] = code
	reg.mutex.Unlock()

	if err := r.ask(command{kind: opJoin, sender: handle, name: playerName}); err != nil {
		reg.mutex.Lock()
		if reg.handleIndex[handle] == code {
			delete(reg.handleIndex, handle)
		}
		reg.mutex.Unlock()
		return err
	}
	return nil
}

// Leave handles both an explicit leave and a connection drop. In the
// lobby the seat is removed (and the room retired if the host left or the
// roster emptied); once the game has started the seat is only marked
// disconnected so role-count invariants survive.
func (reg *Registry) Leave(handle string) {
	reg.mutex.Lock()
	code, exists := reg.handleIndex[handle]
	if exists {
		delete(reg.handleIndex, handle)
	}
	reg.mutex.Unlock()
	if !exists {
		return
	}

	reg.mutex.RLock()
	r, ok := reg.rooms[code]
	reg.mutex.RUnlock()
	if !ok {
		return
	}

	if err := r.ask(command{kind: opLeave, sender: handle}); errors.Is(err, errRetireRoom) {
		reg.Retire(code)
	}
}

// Route delivers an inbound action message to the sender's room.
func (reg *Registry) Route(handle string, msgID uint16, data []byte) error {
	reg.mutex.RLock()
	code, exists := reg.handleIndex[handle]
	var r *Room
	if exists {
		r = reg.rooms[code]
	}
	reg.mutex.RUnlock()

	if r == nil {
		return game.ErrNotInRoom
	}
	r.Submit(handle, msgID, data)
	return nil
}

// Retire removes a room from the registry, unbinds its players, and stops
// its actor loop.
func (reg *Registry) Retire(code string) {
	reg.mutex.Lock()
	r, exists := reg.rooms[code]
	if exists {
		delete(reg.rooms, code)
		for handle, c := range reg.handleIndex {
			if c == code {
				delete(reg.handleIndex, handle)
			}
		}
	}
	reg.mutex.Unlock()

	if exists {
		r.Close()
		logger.Log.Infof("room %s retired", code)
	}
}

// retireAsync retires a room from its own goroutine without deadlocking on
// the registry lock ordering.
func (reg *Registry) retireAsync(code string) {
	go reg.Retire(code)
}

// Members lists the handles currently bound to a room, for broadcast
// fan-out. Returns nil for an unknown code.
func (reg *Registry) Members(code string) []string {
	reg.mutex.RLock()
	defer reg.mutex.RUnlock()
	if _, exists := reg.rooms[code]; !exists {
		return nil
	}
	members := make([]string, 0, 8)
	for handle, c := range reg.handleIndex {
		if c == code {
			members = append(members, handle)
		}
	}
	return members
}

// Count returns the number of live rooms, for metrics.
func (reg *Registry) Count() int {
	reg.mutex.RLock()
	defer reg.mutex.RUnlock()
	return len(reg.rooms)
}

// RoomFor returns the room currently owning handle, if any.
func (reg *Registry) RoomFor(handle string) (*Room, bool) {
	reg.mutex.RLock()
	defer reg.mutex.RUnlock()
	code, exists := reg.handleIndex[handle]
	if !exists {
		return nil, false
	}
	r, ok := reg.rooms[code]
	return r, ok
}
