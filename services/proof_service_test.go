package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/dareroom/gameserver/models"
)

// proofFixture returns a store holding one room, one assigned round and
// one pending proof linked to it.
func proofFixture(t *testing.T) (*memStore, *ProofService, *models.Proof) {
	t.Helper()
	store := newMemStore()
	store.CreateRoom(&models.Room{ID: "room1", CreatedBy: "creator"})
	store.CreateRound(&models.Round{ID: "round1", RoomID: "room1", PlayerID: "p1", Status: models.RoundAssigned})

	svc := NewProofService(store, nil, nil)
	proof, err := svc.CreateProof("room1", "p1", "round1")
	if err != nil {
		t.Fatalf("CreateProof failed: %v", err)
	}
	return store, svc, proof
}

func TestCreateProof(t *testing.T) {
	_, _, proof := proofFixture(t)
	if proof.Status != models.ProofPending {
		t.Errorf("Expected a new proof to be pending, got %q", proof.Status)
	}
	if proof.RoundID != "round1" {
		t.Errorf("Expected the round link to be stored, got %q", proof.RoundID)
	}
}

func TestCreateProof_RoomNotFound(t *testing.T) {
	svc := NewProofService(newMemStore(), nil, nil)
	if _, err := svc.CreateProof("ghost", "p1", ""); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Expected ErrRoomNotFound, got %v", err)
	}
}

func TestCastVote_MajorityApproves(t *testing.T) {
	store, svc, proof := proofFixture(t)

	if _, err := svc.CastVote(proof.ID, "v1", models.VoteYes, false); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CastVote(proof.ID, "v2", models.VoteNo, false); err != nil {
		t.Fatal(err)
	}
	result, err := svc.CastVote(proof.ID, "v3", models.VoteYes, false)
	if err != nil {
		t.Fatal(err)
	}

	if result.Status != models.ProofApproved {
		t.Errorf("Expected approved at 2:1, got %q", result.Status)
	}
	if result.Yes != 2 || result.No != 1 {
		t.Errorf("Expected tally 2:1, got %d:%d", result.Yes, result.No)
	}

	round, _ := store.GetRound("round1")
	if round.Status != models.RoundCompleted {
		t.Errorf("Approval should complete the linked round, got %q", round.Status)
	}
}

func TestCastVote_MajorityRejects(t *testing.T) {
	store, svc, proof := proofFixture(t)

	svc.CastVote(proof.ID, "v1", models.VoteNo, false)
	result, err := svc.CastVote(proof.ID, "v2", models.VoteNo, false)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != models.ProofRejected {
		t.Errorf("Expected rejected at 0:2, got %q", result.Status)
	}

	round, _ := store.GetRound("round1")
	if round.Status != models.RoundSkipped {
		t.Errorf("Rejection should skip the linked round, got %q", round.Status)
	}
}

func TestCastVote_TieStaysPending(t *testing.T) {
	_, svc, proof := proofFixture(t)

	svc.CastVote(proof.ID, "v1", models.VoteYes, false)
	result, err := svc.CastVote(proof.ID, "v2", models.VoteNo, false)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != models.ProofPending {
		t.Errorf("A tie without a tie-breaker must stay pending, got %q", result.Status)
	}
}

func TestCastVote_TieBreakerDecides(t *testing.T) {
	store, svc, proof := proofFixture(t)

	svc.CastVote(proof.ID, "v1", models.VoteYes, false)
	result, err := svc.CastVote(proof.ID, "creator", models.VoteNo, true)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != models.ProofRejected {
		t.Errorf("Tie-breaker's no must reject, got %q", result.Status)
	}

	round, _ := store.GetRound("round1")
	if round.Status != models.RoundSkipped {
		t.Errorf("Expected the round skipped, got %q", round.Status)
	}
}

func TestCastVote_OverwriteRecounts(t *testing.T) {
	_, svc, proof := proofFixture(t)

	svc.CastVote(proof.ID, "v1", models.VoteYes, false)
	result, err := svc.CastVote(proof.ID, "v1", models.VoteNo, false)
	if err != nil {
		t.Fatal(err)
	}
	// The changed vote replaces the old row, it does not add one.
	if result.Yes != 0 || result.No != 1 {
		t.Errorf("Expected tally 0:1 after the overwrite, got %d:%d", result.Yes, result.No)
	}
	if result.Status != models.ProofRejected {
		t.Errorf("Expected rejected, got %q", result.Status)
	}
}

func TestCastVote_VerdictSticksOnRetie(t *testing.T) {
	_, svc, proof := proofFixture(t)

	svc.CastVote(proof.ID, "v1", models.VoteYes, false)
	svc.CastVote(proof.ID, "v2", models.VoteYes, false)

	// v2 flips and restores a tie. Without a tie-breaker the earlier
	// approval stands.
	result, err := svc.CastVote(proof.ID, "v2", models.VoteNo, false)
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != models.ProofApproved {
		t.Errorf("A re-tie must not revert the verdict, got %q", result.Status)
	}

	// With the flag, the tie-breaker's value overrides it.
	result, err = svc.CastVote(proof.ID, "creator", models.VoteNo, true)
	if err != nil {
		t.Fatal(err)
	}
	if result.Yes != 1 || result.No != 2 {
		t.Errorf("Expected tally 1:2, got %d:%d", result.Yes, result.No)
	}
	if result.Status != models.ProofRejected {
		t.Errorf("Expected rejected after the majority flipped, got %q", result.Status)
	}
}

func TestCastVote_Validation(t *testing.T) {
	_, svc, proof := proofFixture(t)

	if _, err := svc.CastVote(proof.ID, "v1", "maybe", false); !errors.Is(err, ErrInvalidVote) {
		t.Errorf("Expected ErrInvalidVote, got %v", err)
	}
	if _, err := svc.CastVote("ghost", "v1", models.VoteYes, false); !errors.Is(err, ErrProofNotFound) {
		t.Errorf("Expected ErrProofNotFound, got %v", err)
	}
}

func TestCastVote_PublishesEvents(t *testing.T) {
	store := newMemStore()
	store.CreateRoom(&models.Room{ID: "room1"})
	store.CreateRound(&models.Round{ID: "round1", RoomID: "room1", Status: models.RoundAssigned})
	pub := &recordingPublisher{}
	svc := NewProofService(store, pub, nil)

	proof, err := svc.CreateProof("room1", "p1", "round1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CastVote(proof.ID, "v1", models.VoteYes, false); err != nil {
		t.Fatal(err)
	}

	// proof_created, vote_cast, and the round flip.
	want := []string{"proof_created", "vote_cast", "round_status"}
	if len(pub.events) != len(want) {
		t.Fatalf("Expected events %v, got %v", want, pub.events)
	}
	for i := range want {
		if pub.events[i] != want[i] {
			t.Fatalf("Expected events %v, got %v", want, pub.events)
		}
	}
}

// Two service instances over one database stand in for the API server
// and the relay bot voting on the same proof at the same time. The row
// lock must serialize the transactions: whichever runs second has to
// see the first one's committed vote, so no verdict is ever derived
// from an incomplete tally.
func TestCastVote_SerializesAcrossInstances(t *testing.T) {
	base := newMemStore()
	base.CreateRoom(&models.Room{ID: "room1", CreatedBy: "creator"})
	base.CreateRound(&models.Round{ID: "round1", RoomID: "room1", Status: models.RoundAssigned})
	store := &txMemStore{memStore: base}

	api := NewProofService(store, nil, nil)
	bot := NewProofService(store, nil, nil)

	proof, err := api.CreateProof("room1", "p1", "round1")
	if err != nil {
		t.Fatal(err)
	}

	results := make([]*VoteResult, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r, err := api.CastVote(proof.ID, "alice", models.VoteYes, false)
		if err != nil {
			t.Errorf("api vote failed: %v", err)
			return
		}
		results[0] = r
	}()
	go func() {
		defer wg.Done()
		r, err := bot.CastVote(proof.ID, "bob", models.VoteNo, false)
		if err != nil {
			t.Errorf("bot vote failed: %v", err)
			return
		}
		results[1] = r
	}()
	wg.Wait()

	votes, _ := base.ListVotes(proof.ID)
	if len(votes) != 2 {
		t.Fatalf("Expected both votes committed, got %d", len(votes))
	}

	// The transaction that ran second saw the full 1:1 tally; the
	// sticky-verdict rule then keeps the first one's verdict.
	var second *VoteResult
	for _, r := range results {
		if r != nil && r.Yes+r.No == 2 {
			second = r
		}
	}
	if second == nil {
		t.Fatalf("Neither transaction saw the other's committed vote: %+v, %+v",
			results[0], results[1])
	}

	stored, _ := base.GetProof(proof.ID)
	if stored.Status != second.Status {
		t.Errorf("Final status %q does not match the last serialized result %+v",
			stored.Status, second)
	}
	round, _ := base.GetRound("round1")
	wantRound := models.RoundSkipped
	if stored.Status == models.ProofApproved {
		wantRound = models.RoundCompleted
	}
	if round.Status != wantRound {
		t.Errorf("Round status %q diverged from verdict %q", round.Status, stored.Status)
	}
}

func TestCastVote_ResolvedCountsVerdictsOnly(t *testing.T) {
	store := newMemStore()
	store.CreateRoom(&models.Room{ID: "room1"})
	rec := &recordingMetrics{}
	svc := NewProofService(store, nil, rec)

	proof, err := svc.CreateProof("room1", "p1", "")
	if err != nil {
		t.Fatal(err)
	}

	svc.CastVote(proof.ID, "v1", models.VoteYes, false) // 1:0, approved
	svc.CastVote(proof.ID, "v2", models.VoteYes, false) // 2:0, still approved
	svc.CastVote(proof.ID, "v2", models.VoteNo, false)  // 1:1, verdict sticks
	svc.CastVote(proof.ID, "v3", models.VoteNo, false)  // 1:2, rejected

	if rec.votes != 4 {
		t.Errorf("Expected 4 votes counted, got %d", rec.votes)
	}
	want := []models.ProofStatus{models.ProofApproved, models.ProofRejected}
	if len(rec.resolved) != len(want) {
		t.Fatalf("Expected resolutions %v, got %v", want, rec.resolved)
	}
	for i := range want {
		if rec.resolved[i] != want[i] {
			t.Fatalf("Expected resolutions %v, got %v", want, rec.resolved)
		}
	}
}

func TestAttachExternalRef(t *testing.T) {
	store, svc, proof := proofFixture(t)
	svc.CastVote(proof.ID, "v1", models.VoteYes, false)

	ref := models.ExternalRef{ChatID: "-100123", MessageID: "42"}
	updated, err := svc.AttachExternalRef(proof.ID, ref)
	if err != nil {
		t.Fatalf("AttachExternalRef failed: %v", err)
	}
	if updated.Ref != ref {
		t.Errorf("Expected the reference stored, got %+v", updated.Ref)
	}

	// Repeat completion overwrites the reference and never touches the
	// verdict.
	ref2 := models.ExternalRef{ChatID: "-100123", MessageID: "43"}
	updated, err = svc.AttachExternalRef(proof.ID, ref2)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Ref != ref2 {
		t.Errorf("Expected the reference overwritten, got %+v", updated.Ref)
	}
	stored, _ := store.GetProof(proof.ID)
	if stored.Status != models.ProofApproved {
		t.Errorf("Attaching a reference must not change the status, got %q", stored.Status)
	}

	if _, err := svc.AttachExternalRef("ghost", ref); !errors.Is(err, ErrProofNotFound) {
		t.Errorf("Expected ErrProofNotFound, got %v", err)
	}
}
