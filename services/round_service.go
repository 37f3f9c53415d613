// services/round_service.go
package services

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dareroom/gameserver/models"
	"github.com/dareroom/gameserver/persistence"
)

// RoundService records turns and their status transitions.
type RoundService struct {
	store     persistence.Store
	publisher Publisher
	metrics   Metrics
}

func NewRoundService(store persistence.Store, publisher Publisher, metrics Metrics) *RoundService {
	return &RoundService{store: store, publisher: publisher, metrics: metrics}
}

// CreateRound deals a turn: the card snapshot is copied into the round
// and never changes afterwards.
func (s *RoundService) CreateRound(roomID, playerID string, card models.CardSnapshot) (*models.Round, error) {
	if _, err := s.store.GetRoom(roomID); err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	round := &models.Round{
		ID:        uuid.New().String(),
		RoomID:    roomID,
		PlayerID:  playerID,
		Card:      card,
		Status:    models.RoundAssigned,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateRound(round); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RoundCreated()
	}
	if s.publisher != nil {
		s.publisher.PublishRoomEvent(roomID, "round_created", round)
	}
	return round, nil
}

// SetStatus sets a round's status unconditionally. Manual flows may
// move a round backward (completed -> assigned) for user correction;
// the consensus path in ProofService is the only automatic writer.
func (s *RoundService) SetStatus(roundID, roomID string, status models.RoundStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if err := s.store.SetRoundStatus(roundID, roomID, status); err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			return ErrRoundNotFound
		}
		return err
	}
	if s.publisher != nil {
		s.publisher.PublishRoomEvent(roomID, "round_status", map[string]interface{}{
			"roundId": roundID,
			"status":  status,
		})
	}
	return nil
}

// ListRounds returns the room's history with player names resolved so
// clients can label rounds without a second lookup.
func (s *RoundService) ListRounds(roomID string) ([]models.Round, error) {
	rounds, err := s.store.ListRounds(roomID)
	if err != nil || len(rounds) == 0 {
		return rounds, err
	}

	players, err := s.store.ListPlayers(roomID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(players))
	for _, p := range players {
		names[p.ID] = p.Name
	}
	for i := range rounds {
		rounds[i].PlayerName = names[rounds[i].PlayerID]
	}
	return rounds, nil
}
