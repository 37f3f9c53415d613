package template

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/dareroom/gameserver/models"
)

func seated(names ...string) []models.RoomPlayer {
	players := make([]models.RoomPlayer, len(names))
	for i, name := range names {
		players[i] = models.RoomPlayer{ID: name, Name: name}
	}
	return players
}

func newTestRenderer() *Renderer {
	return NewRenderer(rand.New(rand.NewSource(1)))
}

func TestRender_SeatPositions(t *testing.T) {
	r := newTestRenderer()
	players := seated("Anna", "Boris", "Clara", "Dmitri")

	// Acting player is Anna (index 0): left wraps to the last seat.
	got := r.Render("left={left} right={right} opposite={opposite}", players, 0)
	want := "left=Dmitri right=Boris opposite=Clara"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}

	// Acting player is Clara (index 2).
	got = r.Render("left={left} right={right} opposite={opposite}", players, 2)
	want = "left=Boris right=Dmitri opposite=Anna"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestRender_OppositeNeedsFourPlayers(t *testing.T) {
	r := newTestRenderer()
	players := seated("Anna", "Boris", "Clara")

	got := r.Render("Look at {opposite}.", players, 0)
	want := "Look at " + FallbackOpposite + "."
	if got != want {
		t.Errorf("Expected fallback for 3 players, got %q", got)
	}

	// Left and right still resolve with 3 players.
	got = r.Render("{left} / {right}", players, 1)
	if got != "Anna / Clara" {
		t.Errorf("Expected neighbors to resolve, got %q", got)
	}
}

func TestRender_RepeatedPlaceholderSharesValue(t *testing.T) {
	r := newTestRenderer()
	players := seated("Anna", "Boris", "Clara", "Dmitri")

	for i := 0; i < 50; i++ {
		got := r.Render("{player} and {player}", players, 0)
		parts := strings.Split(got, " and ")
		if len(parts) != 2 || parts[0] != parts[1] {
			t.Fatalf("Repeated placeholder should resolve once per call, got %q", got)
		}
		if parts[0] == "Anna" {
			t.Fatalf("{player} must not resolve to the acting player, got %q", got)
		}
	}
}

func TestRender_AbsentTokensUntouched(t *testing.T) {
	r := newTestRenderer()
	players := seated("Anna", "Boris")

	plain := "Tell the group a secret."
	if got := r.Render(plain, players, 0); got != plain {
		t.Errorf("Text without placeholders should pass through, got %q", got)
	}

	unknown := "Greet {stranger} warmly."
	if got := r.Render(unknown, players, 0); got != unknown {
		t.Errorf("Unknown tokens should stay untouched, got %q", got)
	}
}

func TestRender_FallbacksWithoutPlayers(t *testing.T) {
	r := newTestRenderer()

	got := r.Render("{player} / {left} / {right} / {opposite}", nil, 0)
	want := FallbackPlayer + " / " + FallbackLeft + " / " + FallbackRight + " / " + FallbackOpposite
	if got != want {
		t.Errorf("Expected all fallbacks with no players, got %q", got)
	}
}

func TestRender_EmptyNameFallsBack(t *testing.T) {
	r := newTestRenderer()
	players := []models.RoomPlayer{
		{ID: "p1", Name: "Anna"},
		{ID: "p2", Name: "Boris"},
		{ID: "p3", Name: ""},
		{ID: "p4", Name: "Dmitri"},
	}

	// Acting Dmitri (index 3): left neighbor has no name.
	got := r.Render("Ask {left}.", players, 3)
	want := "Ask " + FallbackLeft + "."
	if got != want {
		t.Errorf("Empty seat name should fall back, got %q", got)
	}

	// {player} skips nameless seats entirely.
	for i := 0; i < 50; i++ {
		got = r.Render("{player}", players, 0)
		if got == "" || got == "Anna" {
			t.Fatalf("{player} resolved to %q", got)
		}
	}
}
