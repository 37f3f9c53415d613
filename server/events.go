package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/dareroom/gameserver/logger"
	"github.com/dareroom/gameserver/network"
	"github.com/dareroom/gameserver/persistence"
	"github.com/dareroom/gameserver/session"
)

// handleEvents upgrades the connection and streams room events until
// the subscriber goes away.
func (s *GameServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomId")
	if _, err := s.store.GetRoom(roomID); err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "room_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}

	wsConn := network.NewWSConnection(conn)
	sess := session.NewSession(uuid.New().String(), roomID, wsConn)
	s.sessionManager.Add(sess)
	s.monitor.SetEventSubscribers(s.sessionManager.Count())

	logger.Log.Infof("Subscriber %s joined room %s from %s", sess.GetID(), roomID, wsConn.RemoteAddr())

	defer func() {
		s.sessionManager.Remove(sess.GetID())
		s.monitor.SetEventSubscribers(s.sessionManager.Count())
		wsConn.Close()
		logger.Log.Infof("Subscriber %s left room %s", sess.GetID(), roomID)
	}()

	// The feed is one-way; reads only drain control frames and detect
	// the close. Shutdown closes the connection, which also ends this
	// loop.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
