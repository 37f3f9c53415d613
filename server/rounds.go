package server

import (
	"errors"
	"net/http"

	"github.com/dareroom/gameserver/models"
	"github.com/dareroom/gameserver/services"
)

func (s *GameServer) handleCreateRound(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string          `json:"playerId"`
		CardID   string          `json:"cardId"`
		CardText string          `json:"cardText"`
		CardType models.CardType `json:"cardType"`
		Level    string          `json:"level"`
		PackID   string          `json:"packId"`
	}
	if err := decodeJSON(r, &req); err != nil ||
		req.PlayerID == "" || req.CardText == "" || !req.CardType.Valid() ||
		req.Level == "" || req.PackID == "" {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	round, err := s.rounds.CreateRound(r.PathValue("roomId"), req.PlayerID, models.CardSnapshot{
		CardID: req.CardID,
		Text:   req.CardText,
		Type:   req.CardType,
		Level:  req.Level,
		PackID: req.PackID,
	})
	if err != nil {
		if errors.Is(err, services.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "room_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": round.ID})
}

func (s *GameServer) handleListRounds(w http.ResponseWriter, r *http.Request) {
	rounds, err := s.rounds.ListRounds(r.PathValue("roomId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if rounds == nil {
		rounds = []models.Round{}
	}
	writeJSON(w, http.StatusOK, rounds)
}

func (s *GameServer) handleSetRoundStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.RoundStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	err := s.rounds.SetStatus(r.PathValue("roundId"), r.PathValue("roomId"), req.Status)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	case errors.Is(err, services.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid_status")
	case errors.Is(err, services.ErrRoundNotFound):
		writeError(w, http.StatusNotFound, "round_not_found")
	default:
		writeError(w, http.StatusInternalServerError, "db_error")
	}
}
