package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/dareroom/gameserver/catalog"
	"github.com/dareroom/gameserver/logger"
	"github.com/dareroom/gameserver/models"
	"github.com/dareroom/gameserver/persistence"
)

// handleListPacks resyncs the pack directory first so the catalog a
// client sees always matches the files on disk.
func (s *GameServer) handleListPacks(w http.ResponseWriter, r *http.Request) {
	if err := s.syncer.Sync(); err != nil {
		logger.Log.Errorf("Pack sync failed: %v", err)
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	packs, err := s.store.ListPacks()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if packs == nil {
		packs = []models.Pack{}
	}
	writeJSON(w, http.StatusOK, packs)
}

func (s *GameServer) handleCreatePack(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title  string   `json:"title"`
		Paid   bool     `json:"paid"`
		Price  string   `json:"price"`
		Levels []string `json:"levels"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Title == "" {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	pack := &models.Pack{
		ID:     uuid.New().String()[:8],
		Title:  req.Title,
		Paid:   req.Paid,
		Price:  req.Price,
		Levels: req.Levels,
		Mode:   models.PackModeOffline,
	}
	if err := s.store.UpsertPack(pack); err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": pack.ID})
}

func (s *GameServer) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.store.ListCards(r.PathValue("packId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if cards == nil {
		cards = []models.Card{}
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *GameServer) handleCreateCard(w http.ResponseWriter, r *http.Request) {
	packID := r.PathValue("packId")
	if _, err := s.store.GetPack(packID); err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "pack_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	var req struct {
		Type           models.CardType     `json:"type"`
		Text           string              `json:"text"`
		Level          string              `json:"level"`
		RequiresTarget bool                `json:"requiresTarget"`
		TargetGender   models.TargetGender `json:"targetGender"`
	}
	if err := decodeJSON(r, &req); err != nil || !req.Type.Valid() || req.Text == "" || req.Level == "" {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	card := &models.Card{
		ID:             uuid.New().String(),
		Type:           req.Type,
		Text:           req.Text,
		Level:          req.Level,
		PackID:         packID,
		RequiresTarget: req.RequiresTarget,
		TargetGender:   req.TargetGender,
	}
	if err := s.store.CreateCard(card); err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": card.ID})
}

func (s *GameServer) handleDeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCard(r.PathValue("packId"), r.PathValue("cardId")); err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleNextCard draws one card for a turn. With roomId and playerId
// given, the card text comes back with seat placeholders resolved for
// that player.
func (s *GameServer) handleNextCard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cardType := models.CardType(q.Get("type"))
	packID := q.Get("packId")
	if packID == "" {
		packID = q.Get("pack_id")
	}
	level := q.Get("level")

	if !cardType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid_type")
		return
	}
	if packID == "" {
		writeError(w, http.StatusBadRequest, "pack_required")
		return
	}
	if _, err := s.store.GetPack(packID); err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "pack_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	card, err := s.selector.SelectCard(cardType, packID, level)
	if err != nil {
		if errors.Is(err, catalog.ErrNoCardsAvailable) {
			writeError(w, http.StatusNotFound, "no_cards_in_pack")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	resp := struct {
		models.Card
		RenderedText string `json:"renderedText,omitempty"`
	}{Card: *card}

	if roomID, playerID := q.Get("roomId"), q.Get("playerId"); roomID != "" && playerID != "" {
		players, err := s.store.ListPlayers(roomID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}
		acting := -1
		for i, p := range players {
			if p.ID == playerID {
				acting = i
				break
			}
		}
		if acting >= 0 {
			resp.RenderedText = s.renderer.Render(card.Text, players, acting)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
