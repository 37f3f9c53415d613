// catalog/selector.go
package catalog

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/dareroom/gameserver/models"
)

// ErrNoCardsAvailable means the pack holds no card of the requested
// type, even after dropping the level constraint.
var ErrNoCardsAvailable = errors.New("no cards available")

// CardSource is the catalog query surface the selector needs.
type CardSource interface {
	FindCards(packID string, cardType models.CardType, level string) ([]models.Card, error)
}

// Selector 抽卡器：先按等级严格筛选，空了再放宽等级
type Selector struct {
	source CardSource
	rng    *rand.Rand
	mu     sync.Mutex

	// OnFallback is invoked when a draw had to drop the level
	// constraint. The caller of SelectCard is never told.
	OnFallback func(packID string, cardType models.CardType, level string)
}

func NewSelector(source CardSource, rng *rand.Rand) *Selector {
	return &Selector{source: source, rng: rng}
}

// SelectCard returns one card of the pack uniformly at random.
// Selection keeps no memory, so repeats across draws are possible.
func (s *Selector) SelectCard(cardType models.CardType, packID, level string) (*models.Card, error) {
	strict, err := s.source.FindCards(packID, cardType, level)
	if err != nil {
		return nil, err
	}
	if len(strict) > 0 {
		return s.pick(strict), nil
	}

	if level == "" {
		return nil, ErrNoCardsAvailable
	}

	relaxed, err := s.source.FindCards(packID, cardType, "")
	if err != nil {
		return nil, err
	}
	if len(relaxed) == 0 {
		return nil, ErrNoCardsAvailable
	}
	if s.OnFallback != nil {
		s.OnFallback(packID, cardType, level)
	}
	return s.pick(relaxed), nil
}

func (s *Selector) pick(cards []models.Card) *models.Card {
	s.mu.Lock()
	i := s.rng.Intn(len(cards))
	s.mu.Unlock()
	card := cards[i]
	return &card
}
