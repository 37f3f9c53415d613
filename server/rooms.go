package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/dareroom/gameserver/models"
	"github.com/dareroom/gameserver/persistence"
)

func (s *GameServer) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CreatedBy string `json:"createdBy"`
	}
	if err := decodeJSON(r, &req); err != nil || req.CreatedBy == "" {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	room := &models.Room{
		ID:        uuid.New().String()[:8],
		CreatedBy: req.CreatedBy,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateRoom(room); err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *GameServer) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.store.GetRoom(r.PathValue("roomId"))
	if err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "room_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// handleBindGroup links a room to the relay group chat that will
// receive its proofs.
func (s *GameServer) handleBindGroup(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomId")

	var req struct {
		GroupID string `json:"groupId"`
	}
	if err := decodeJSON(r, &req); err != nil || req.GroupID == "" {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	if err := s.store.SetRoomGroup(roomID, req.GroupID); err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "room_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	room, err := s.store.GetRoom(roomID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// handleRoomQR serves a QR code with the room's join link.
func (s *GameServer) handleRoomQR(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomId")
	if _, err := s.store.GetRoom(roomID); err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "room_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	link := fmt.Sprintf("%s/join?room=%s", s.publicBaseURL, roomID)
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "qr_error")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

func (s *GameServer) handleAddPlayer(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomId")
	if _, err := s.store.GetRoom(roomID); err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "room_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	var req struct {
		Name   string        `json:"name"`
		Gender models.Gender `json:"gender"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Name == "" || !req.Gender.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	player := &models.RoomPlayer{
		ID:        uuid.New().String()[:8],
		RoomID:    roomID,
		Name:      req.Name,
		Gender:    req.Gender,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AddPlayer(player); err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": player.ID})
}

func (s *GameServer) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := s.store.ListPlayers(r.PathValue("roomId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if players == nil {
		players = []models.RoomPlayer{}
	}
	writeJSON(w, http.StatusOK, players)
}

func (s *GameServer) handleRemovePlayer(w http.ResponseWriter, r *http.Request) {
	if err := s.store.RemovePlayer(r.PathValue("roomId"), r.PathValue("playerId")); err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
