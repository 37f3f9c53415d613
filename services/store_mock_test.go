package services

import (
	"sync"

	"github.com/dareroom/gameserver/models"
	"github.com/dareroom/gameserver/persistence"
)

// memStore is an in-memory test double for persistence.Store covering
// the slice the services touch. Transaction runs against the same
// maps; the tests only exercise committed paths.
type memStore struct {
	persistence.Store

	rooms   map[string]*models.Room
	players map[string][]models.RoomPlayer
	rounds  map[string]*models.Round
	proofs  map[string]*models.Proof
	votes   map[string]map[string]*models.Vote
}

func newMemStore() *memStore {
	return &memStore{
		rooms:   make(map[string]*models.Room),
		players: make(map[string][]models.RoomPlayer),
		rounds:  make(map[string]*models.Round),
		proofs:  make(map[string]*models.Proof),
		votes:   make(map[string]map[string]*models.Vote),
	}
}

func (m *memStore) CreateRoom(room *models.Room) error {
	clone := *room
	m.rooms[room.ID] = &clone
	return nil
}

func (m *memStore) GetRoom(id string) (*models.Room, error) {
	room, ok := m.rooms[id]
	if !ok {
		return nil, persistence.ErrRecordNotFound
	}
	clone := *room
	return &clone, nil
}

func (m *memStore) AddPlayer(player *models.RoomPlayer) error {
	m.players[player.RoomID] = append(m.players[player.RoomID], *player)
	return nil
}

func (m *memStore) ListPlayers(roomID string) ([]models.RoomPlayer, error) {
	return m.players[roomID], nil
}

func (m *memStore) CreateRound(round *models.Round) error {
	clone := *round
	m.rounds[round.ID] = &clone
	return nil
}

func (m *memStore) GetRound(id string) (*models.Round, error) {
	round, ok := m.rounds[id]
	if !ok {
		return nil, persistence.ErrRecordNotFound
	}
	clone := *round
	return &clone, nil
}

func (m *memStore) ListRounds(roomID string) ([]models.Round, error) {
	var result []models.Round
	for _, round := range m.rounds {
		if round.RoomID == roomID {
			result = append(result, *round)
		}
	}
	return result, nil
}

func (m *memStore) SetRoundStatus(roundID, roomID string, status models.RoundStatus) error {
	round, ok := m.rounds[roundID]
	if !ok || round.RoomID != roomID {
		return persistence.ErrRecordNotFound
	}
	round.Status = status
	return nil
}

func (m *memStore) CreateProof(proof *models.Proof) error {
	clone := *proof
	m.proofs[proof.ID] = &clone
	return nil
}

func (m *memStore) GetProof(id string) (*models.Proof, error) {
	proof, ok := m.proofs[id]
	if !ok {
		return nil, persistence.ErrRecordNotFound
	}
	clone := *proof
	return &clone, nil
}

func (m *memStore) GetProofForUpdate(id string) (*models.Proof, error) {
	return m.GetProof(id)
}

func (m *memStore) SetProofStatus(proofID string, status models.ProofStatus) error {
	proof, ok := m.proofs[proofID]
	if !ok {
		return persistence.ErrRecordNotFound
	}
	proof.Status = status
	return nil
}

func (m *memStore) SetProofRef(proofID string, ref models.ExternalRef) error {
	proof, ok := m.proofs[proofID]
	if !ok {
		return persistence.ErrRecordNotFound
	}
	proof.Ref = ref
	return nil
}

func (m *memStore) UpsertVote(vote *models.Vote) error {
	byVoter, ok := m.votes[vote.ProofID]
	if !ok {
		byVoter = make(map[string]*models.Vote)
		m.votes[vote.ProofID] = byVoter
	}
	clone := *vote
	byVoter[vote.VoterID] = &clone
	return nil
}

func (m *memStore) ListVotes(proofID string) ([]models.Vote, error) {
	var result []models.Vote
	for _, vote := range m.votes[proofID] {
		result = append(result, *vote)
	}
	return result, nil
}

func (m *memStore) Transaction(fn func(tx persistence.Store) error) error {
	return fn(m)
}

// recordingPublisher captures every published event for assertions.
type recordingPublisher struct {
	events []string
}

func (p *recordingPublisher) PublishRoomEvent(roomID, event string, payload interface{}) {
	p.events = append(p.events, event)
}

// recordingMetrics counts the metric callbacks.
type recordingMetrics struct {
	rounds   int
	votes    int
	resolved []models.ProofStatus
}

func (m *recordingMetrics) RoundCreated() { m.rounds++ }
func (m *recordingMetrics) VoteCast()     { m.votes++ }
func (m *recordingMetrics) ProofResolved(status models.ProofStatus) {
	m.resolved = append(m.resolved, status)
}

// txMemStore wraps a memStore with read-committed transaction
// visibility: a transaction's writes stage locally and publish on
// commit, and GetProofForUpdate holds a row lock until the transaction
// ends. This mirrors how concurrent vote transactions from separate
// processes behave against the shared database.
type txMemStore struct {
	*memStore
	row sync.Mutex
}

func (s *txMemStore) Transaction(fn func(tx persistence.Store) error) error {
	view := &txView{
		parent:        s,
		proofStatuses: make(map[string]models.ProofStatus),
	}
	err := fn(view)
	view.finish(err == nil)
	return err
}

type txView struct {
	persistence.Store

	parent        *txMemStore
	votes         []models.Vote
	proofStatuses map[string]models.ProofStatus
	rounds        []struct {
		roundID, roomID string
		status          models.RoundStatus
	}
	locked bool
}

func (v *txView) GetProofForUpdate(id string) (*models.Proof, error) {
	if !v.locked {
		v.parent.row.Lock()
		v.locked = true
	}
	return v.parent.memStore.GetProof(id)
}

func (v *txView) GetProof(id string) (*models.Proof, error) {
	return v.parent.memStore.GetProof(id)
}

func (v *txView) UpsertVote(vote *models.Vote) error {
	v.votes = append(v.votes, *vote)
	return nil
}

// ListVotes sees the committed rows plus this transaction's own
// writes, like a read-committed snapshot would.
func (v *txView) ListVotes(proofID string) ([]models.Vote, error) {
	committed, _ := v.parent.memStore.ListVotes(proofID)
	merged := make(map[string]models.Vote)
	for _, vote := range committed {
		if vote.ProofID == proofID {
			merged[vote.VoterID] = vote
		}
	}
	for _, vote := range v.votes {
		if vote.ProofID == proofID {
			merged[vote.VoterID] = vote
		}
	}
	result := make([]models.Vote, 0, len(merged))
	for _, vote := range merged {
		result = append(result, vote)
	}
	return result, nil
}

func (v *txView) SetProofStatus(proofID string, status models.ProofStatus) error {
	v.proofStatuses[proofID] = status
	return nil
}

func (v *txView) SetRoundStatus(roundID, roomID string, status models.RoundStatus) error {
	v.rounds = append(v.rounds, struct {
		roundID, roomID string
		status          models.RoundStatus
	}{roundID, roomID, status})
	return nil
}

func (v *txView) finish(commit bool) {
	if commit {
		for i := range v.votes {
			v.parent.memStore.UpsertVote(&v.votes[i])
		}
		for proofID, status := range v.proofStatuses {
			v.parent.memStore.SetProofStatus(proofID, status)
		}
		for _, r := range v.rounds {
			v.parent.memStore.SetRoundStatus(r.roundID, r.roomID, r.status)
		}
	}
	if v.locked {
		v.parent.row.Unlock()
	}
}
