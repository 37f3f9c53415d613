// broadcast/broadcast.go
package broadcast

import (
	"time"

	"github.com/dareroom/gameserver/network"
	"github.com/dareroom/gameserver/session"
)

// Hub fans room events out to every live subscriber of that room.
// Implements services.Publisher.
type Hub struct {
	sessions *session.Manager
}

func NewHub(sessions *session.Manager) *Hub {
	return &Hub{sessions: sessions}
}

func (h *Hub) PublishRoomEvent(roomID, event string, payload interface{}) {
	e := &network.Event{
		RoomID:  roomID,
		Name:    event,
		Payload: payload,
		Time:    time.Now().UTC(),
	}

	for _, s := range h.sessions.GetByRoom(roomID) {
		if err := s.Send(e); err != nil {
			// A dead subscriber is dropped on the first failed write.
			h.sessions.Remove(s.GetID())
			s.Close()
		}
	}
}
