// Package template resolves relative-seat placeholders in card text.
// Seating order is the order players joined the room; all positions
// are counted cyclically from the acting player.
package template

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/dareroom/gameserver/models"
)

// Fallback phrases used when a placeholder cannot be resolved to a
// concrete player name.
const (
	FallbackPlayer   = "the player"
	FallbackLeft     = "the player to the left"
	FallbackRight    = "the player to the right"
	FallbackOpposite = "the player across"
)

type Renderer struct {
	rng *rand.Rand
	mu  sync.Mutex
}

func NewRenderer(rng *rand.Rand) *Renderer {
	return &Renderer{rng: rng}
}

// Render replaces every placeholder present in text. Each placeholder
// resolves once per call, so repeated occurrences share one value.
// Tokens that are absent are left untouched.
func (r *Renderer) Render(text string, players []models.RoomPlayer, actingIndex int) string {
	if !strings.Contains(text, "{") {
		return text
	}

	n := len(players)
	name := func(i int) string {
		if i < 0 || i >= n {
			return ""
		}
		return players[i].Name
	}

	var left, right, opposite string
	if n > 0 {
		left = name((actingIndex - 1 + n) % n)
		right = name((actingIndex + 1) % n)
		// {opposite} only has a seat when at least 4 players sit in
		// the circle.
		if n >= 4 {
			opposite = name((actingIndex + n/2) % n)
		}
	}

	result := text
	if strings.Contains(result, "{player}") {
		result = strings.ReplaceAll(result, "{player}", orFallback(r.pickOther(players, actingIndex), FallbackPlayer))
	}
	if strings.Contains(result, "{left}") {
		result = strings.ReplaceAll(result, "{left}", orFallback(left, FallbackLeft))
	}
	if strings.Contains(result, "{right}") {
		result = strings.ReplaceAll(result, "{right}", orFallback(right, FallbackRight))
	}
	if strings.Contains(result, "{opposite}") {
		result = strings.ReplaceAll(result, "{opposite}", orFallback(opposite, FallbackOpposite))
	}
	return result
}

// pickOther draws a random player other than the acting one. Returns
// "" when nobody else has a name.
func (r *Renderer) pickOther(players []models.RoomPlayer, actingIndex int) string {
	others := make([]string, 0, len(players))
	for i, p := range players {
		if i == actingIndex || p.Name == "" {
			continue
		}
		others = append(others, p.Name)
	}
	if len(others) == 0 {
		return ""
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return others[r.rng.Intn(len(others))]
}

func orFallback(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
