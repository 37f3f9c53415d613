// services/proof_service.go
package services

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dareroom/gameserver/models"
	"github.com/dareroom/gameserver/persistence"
)

// VoteResult is what a vote returns to the caller: the proof's status
// after the tally, and the tally itself.
type VoteResult struct {
	Status models.ProofStatus `json:"status"`
	Yes    int                `json:"yes"`
	No     int                `json:"no"`
}

// ProofService accumulates votes on claimed completions and derives
// the verdict. Vote handling for one proof is serialized; different
// proofs are processed in parallel.
type ProofService struct {
	store     persistence.Store
	publisher Publisher
	metrics   Metrics
	locks     *lockTable
}

func NewProofService(store persistence.Store, publisher Publisher, metrics Metrics) *ProofService {
	return &ProofService{
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		locks:     newLockTable(),
	}
}

// CreateProof opens a pending proof, optionally linked to a round.
func (s *ProofService) CreateProof(roomID, createdBy, roundID string) (*models.Proof, error) {
	if _, err := s.store.GetRoom(roomID); err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	proof := &models.Proof{
		ID:        uuid.New().String(),
		RoomID:    roomID,
		CreatedBy: createdBy,
		RoundID:   roundID,
		Status:    models.ProofPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateProof(proof); err != nil {
		return nil, err
	}
	if s.publisher != nil {
		s.publisher.PublishRoomEvent(roomID, "proof_created", proof)
	}
	return proof, nil
}

func (s *ProofService) GetProof(proofID string) (*models.Proof, error) {
	proof, err := s.store.GetProof(proofID)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, ErrProofNotFound
	}
	return proof, err
}

// GetProofWithVotes returns the proof plus the current vote of each
// voter.
func (s *ProofService) GetProofWithVotes(proofID string) (*models.Proof, map[string]models.VoteValue, error) {
	proof, err := s.GetProof(proofID)
	if err != nil {
		return nil, nil, err
	}
	votes, err := s.store.ListVotes(proofID)
	if err != nil {
		return nil, nil, err
	}
	byVoter := make(map[string]models.VoteValue, len(votes))
	for _, v := range votes {
		byVoter[v.VoterID] = v.Value
	}
	return proof, byVoter, nil
}

// CastVote upserts the voter's vote, recomputes the tally over all
// current votes, and derives the verdict:
//
//   - yes != no: majority wins.
//   - tie with the tie-breaker flag set: the tie-breaker's own value
//     decides.
//   - tie without the flag: the previous status stands. A tie that
//     reappears after a verdict does not revert it.
//
// The vote write, the tally, and any status writes happen in one
// transaction, so a proof and its linked round never diverge. The
// proof row is read with an update lock, so votes arriving through
// another process (the relay bot shares the database) serialize on the
// same proof as well.
func (s *ProofService) CastVote(proofID, voterID string, value models.VoteValue, tieBreaker bool) (*VoteResult, error) {
	if !value.Valid() {
		return nil, ErrInvalidVote
	}

	lock := s.locks.get(proofID)
	lock.Lock()
	defer lock.Unlock()

	var (
		result  VoteResult
		prev    models.ProofStatus
		roomID  string
		roundID string
		flipped models.RoundStatus
	)
	err := s.store.Transaction(func(tx persistence.Store) error {
		proof, err := tx.GetProofForUpdate(proofID)
		if err != nil {
			if errors.Is(err, persistence.ErrRecordNotFound) {
				return ErrProofNotFound
			}
			return err
		}
		prev = proof.Status
		roomID = proof.RoomID
		roundID = proof.RoundID

		if err := tx.UpsertVote(&models.Vote{
			ProofID:   proofID,
			VoterID:   voterID,
			Value:     value,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}

		// The tally is always derived fresh from the vote rows, never
		// maintained incrementally. Vote changes and retries stay safe.
		votes, err := tx.ListVotes(proofID)
		if err != nil {
			return err
		}
		yes, no := 0, 0
		for _, v := range votes {
			if v.Value == models.VoteYes {
				yes++
			} else {
				no++
			}
		}

		status := proof.Status
		switch {
		case yes != no:
			if yes > no {
				status = models.ProofApproved
			} else {
				status = models.ProofRejected
			}
		case tieBreaker:
			if value == models.VoteYes {
				status = models.ProofApproved
			} else {
				status = models.ProofRejected
			}
		}

		if status != proof.Status {
			if err := tx.SetProofStatus(proofID, status); err != nil {
				return err
			}
			if proof.RoundID != "" {
				roundStatus := models.RoundSkipped
				if status == models.ProofApproved {
					roundStatus = models.RoundCompleted
				}
				if err := tx.SetRoundStatus(proof.RoundID, proof.RoomID, roundStatus); err != nil {
					return err
				}
				flipped = roundStatus
			}
		}

		result = VoteResult{Status: status, Yes: yes, No: no}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.VoteCast()
		// Count verdicts, not the votes that follow one.
		if result.Status != models.ProofPending && result.Status != prev {
			s.metrics.ProofResolved(result.Status)
		}
	}
	if s.publisher != nil {
		s.publisher.PublishRoomEvent(roomID, "vote_cast", map[string]interface{}{
			"proofId": proofID,
			"status":  result.Status,
			"yes":     result.Yes,
			"no":      result.No,
		})
		if flipped != "" {
			s.publisher.PublishRoomEvent(roomID, "round_status", map[string]interface{}{
				"roundId": roundID,
				"status":  flipped,
			})
		}
	}
	return &result, nil
}

// AttachExternalRef records where the proof media was posted. Repeat
// calls overwrite the reference; the proof's status is never touched.
func (s *ProofService) AttachExternalRef(proofID string, ref models.ExternalRef) (*models.Proof, error) {
	proof, err := s.GetProof(proofID)
	if err != nil {
		return nil, err
	}
	if proof.Ref == ref {
		return proof, nil
	}
	if err := s.store.SetProofRef(proofID, ref); err != nil {
		if errors.Is(err, persistence.ErrRecordNotFound) {
			return nil, ErrProofNotFound
		}
		return nil, err
	}
	proof.Ref = ref
	return proof, nil
}
