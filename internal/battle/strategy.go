// internal/battle/strategy.go
package battle

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Strategy picks the opponent's card for a round. Pick receives the opponent's
// current hand (never empty) and the card the player just put on the table, and
// returns an index into hand. Out-of-range indexes are treated as 0.
type Strategy interface {
	Name() string
	Pick(hand []Card, against Card) int
}

const (
	StrategyRandom = "random"
	StrategyFirst  = "first"
	StrategyGreedy = "greedy"
)

// RandomStrategy plays a uniformly random card.
type RandomStrategy struct {
	rng *rand.Rand
}

// NewRandomStrategy seeds a random strategy. A zero seed uses the clock.
func NewRandomStrategy(seed int64) *RandomStrategy {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomStrategy{rng: rand.New(rand.NewSource(seed))}
}

func (s *RandomStrategy) Name() string { return StrategyRandom }

func (s *RandomStrategy) Pick(hand []Card, _ Card) int {
	return s.rng.Intn(len(hand))
}

// FirstStrategy always plays the leftmost card.
type FirstStrategy struct{}

func (FirstStrategy) Name() string { return StrategyFirst }

func (FirstStrategy) Pick([]Card, Card) int { return 0 }

// GreedyStrategy plays the weakest card that still beats the player's card,
// or throws away its weakest card when nothing wins.
type GreedyStrategy struct{}

func (GreedyStrategy) Name() string { return StrategyGreedy }

func (GreedyStrategy) Pick(hand []Card, against Card) int {
	best, weakest := -1, 0
	for i, c := range hand {
		if c.Power < hand[weakest].Power {
			weakest = i
		}
		if c.Power > against.Power && (best == -1 || c.Power < hand[best].Power) {
			best = i
		}
	}
	if best == -1 {
		return weakest
	}
	return best
}

// StrategySeed derives the strategy's seed from a battle seed so the opponent's
// picks do not share a random stream with the dealer. Zero stays zero (clock seeded).
func StrategySeed(seed int64) int64 {
	if seed == 0 {
		return 0
	}
	return seed ^ 0x5DEECE66D
}

// StrategyByName resolves a configured strategy name. Seed only affects "random".
func StrategyByName(name string, seed int64) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyRandom:
		return NewRandomStrategy(seed), nil
	case StrategyFirst:
		return FirstStrategy{}, nil
	case StrategyGreedy:
		return GreedyStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}
