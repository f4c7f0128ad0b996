// broadcast/broadcast.go
package broadcast

import (
	"errors"

	"github.com/wfunc/nightfall/room"
	"github.com/wfunc/nightfall/session"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrPlayerNotFound = errors.New("player not found")
)

// RoomBroadcaster implements room.Messenger on top of the session manager.
// Broadcasts fan out to every session seated in the room; direct sends
// deliver the private messages (roles, investigation answers, death
// notices) that must never reach the rest of the room.
type RoomBroadcaster struct {
	sessionManager *session.Manager
	memberships    MembershipSource
}

// MembershipSource lists the handles currently seated in a room. The
// registry provides this; an interface keeps broadcast decoupled from it.
type MembershipSource interface {
	Members(code string) []string
}

func NewRoomBroadcaster(sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		sessionManager: sessionManager,
	}
}

// SetMembershipSource late-binds the registry: the registry needs the
// broadcaster at construction time and vice versa.
func (b *RoomBroadcaster) SetMembershipSource(src MembershipSource) {
	b.memberships = src
}

var _ room.Messenger = (*RoomBroadcaster)(nil)

func (b *RoomBroadcaster) BroadcastToRoom(code string, msgID uint16, data []byte) error {
	if b.memberships == nil {
		return ErrRoomNotFound
	}
	handles := b.memberships.Members(code)
	if handles == nil {
		return ErrRoomNotFound
	}

	for _, handle := range handles {
		s, exists := b.sessionManager.Get(handle)
		if !exists {
			continue // disconnected seat, nothing to deliver
		}
		if err := s.Send(msgID, data); err != nil {
			continue
		}
	}
	return nil
}

func (b *RoomBroadcaster) SendToPlayer(handle string, msgID uint16, data []byte) error {
	s, exists := b.sessionManager.Get(handle)
	if !exists {
		return ErrPlayerNotFound
	}
	return s.Send(msgID, data)
}
