package server

import (
	"errors"
	"net/http"

	"github.com/dareroom/gameserver/models"
	"github.com/dareroom/gameserver/services"
)

func (s *GameServer) handleCreateProof(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CreatedBy string `json:"createdBy"`
		RoundID   string `json:"roundId"`
	}
	if err := decodeJSON(r, &req); err != nil || req.CreatedBy == "" {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	proof, err := s.proofs.CreateProof(r.PathValue("roomId"), req.CreatedBy, req.RoundID)
	if err != nil {
		if errors.Is(err, services.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "room_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"proofId": proof.ID})
}

// roomProof loads a proof and enforces that it belongs to the room in
// the path.
func (s *GameServer) roomProof(w http.ResponseWriter, r *http.Request) *models.Proof {
	proof, err := s.proofs.GetProof(r.PathValue("proofId"))
	if err != nil {
		if errors.Is(err, services.ErrProofNotFound) {
			writeError(w, http.StatusNotFound, "proof_not_found")
			return nil
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return nil
	}
	if proof.RoomID != r.PathValue("roomId") {
		writeError(w, http.StatusNotFound, "proof_not_found")
		return nil
	}
	return proof
}

func (s *GameServer) handleGetRoomProof(w http.ResponseWriter, r *http.Request) {
	if s.roomProof(w, r) == nil {
		return
	}
	proof, votes, err := s.proofs.GetProofWithVotes(r.PathValue("proofId"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		*models.Proof
		Votes map[string]models.VoteValue `json:"votes"`
	}{proof, votes})
}

func (s *GameServer) handleGetProof(w http.ResponseWriter, r *http.Request) {
	proof, err := s.proofs.GetProof(r.PathValue("proofId"))
	if err != nil {
		if errors.Is(err, services.ErrProofNotFound) {
			writeError(w, http.StatusNotFound, "proof_not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, proof)
}

// handleCompleteProof attaches the external reference of the posted
// proof media. Status is untouched; voting decides that.
func (s *GameServer) handleCompleteProof(w http.ResponseWriter, r *http.Request) {
	if s.roomProof(w, r) == nil {
		return
	}

	var req struct {
		ChatID    string `json:"chatId"`
		MessageID string `json:"messageId"`
	}
	if err := decodeJSON(r, &req); err != nil || req.ChatID == "" || req.MessageID == "" {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	proof, err := s.proofs.AttachExternalRef(r.PathValue("proofId"), models.ExternalRef{
		ChatID:    req.ChatID,
		MessageID: req.MessageID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "proof": proof})
}

func (s *GameServer) handleVote(w http.ResponseWriter, r *http.Request) {
	if s.roomProof(w, r) == nil {
		return
	}

	var req struct {
		VoterID    string           `json:"voterId"`
		Vote       models.VoteValue `json:"vote"`
		TieBreaker bool             `json:"tieBreaker"`
	}
	if err := decodeJSON(r, &req); err != nil || req.VoterID == "" {
		writeError(w, http.StatusBadRequest, "invalid_body")
		return
	}

	result, err := s.proofs.CastVote(r.PathValue("proofId"), req.VoterID, req.Vote, req.TieBreaker)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.Is(err, services.ErrInvalidVote):
		writeError(w, http.StatusBadRequest, "invalid_vote")
	case errors.Is(err, services.ErrProofNotFound):
		writeError(w, http.StatusNotFound, "proof_not_found")
	default:
		writeError(w, http.StatusInternalServerError, "db_error")
	}
}
