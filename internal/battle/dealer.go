// internal/battle/dealer.go
package battle

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Dealer produces the two starting hands of n cards each.
type Dealer interface {
	Deal(n int) (player, opponent []Card)
}

// PaletteDealer draws element, color and power at random from a theme's palettes.
type PaletteDealer struct {
	Elements []string
	Colors   []string
	MaxPower int
	rng      *rand.Rand
}

// NewPaletteDealer builds a dealer over the given palettes. A zero seed uses the clock.
func NewPaletteDealer(elements, colors []string, maxPower int, seed int64) *PaletteDealer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if maxPower <= 0 {
		maxPower = DefaultMaxPower
	}
	return &PaletteDealer{
		Elements: elements,
		Colors:   colors,
		MaxPower: maxPower,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Deal returns n face-up player cards and n face-down opponent cards.
func (d *PaletteDealer) Deal(n int) (player, opponent []Card) {
	player = make([]Card, 0, n)
	opponent = make([]Card, 0, n)
	for i := 0; i < n; i++ {
		p := d.draw()
		p.FaceUp = true
		player = append(player, p)
		opponent = append(opponent, d.draw())
	}
	return player, opponent
}

func (d *PaletteDealer) draw() Card {
	return NewCard(pick(d.rng, d.Elements), 1+d.rng.Intn(d.MaxPower), pick(d.rng, d.Colors))
}

func pick(rng *rand.Rand, palette []string) string {
	if len(palette) == 0 {
		return ""
	}
	return palette[rng.Intn(len(palette))]
}

// StaticDealer reissues the same fixed hands on every deal. n is ignored.
// Cards without an ID are given one once, so repeated deals stay identical.
type StaticDealer struct {
	Player   []Card
	Opponent []Card
}

// NewStaticDealer builds a dealer from card powers, useful for scripted battles.
func NewStaticDealer(playerPowers, opponentPowers []int) *StaticDealer {
	d := &StaticDealer{}
	for _, p := range playerPowers {
		d.Player = append(d.Player, Card{ID: uuid.New(), Element: "🔥", Power: p, Color: "#FF9500", FaceUp: true})
	}
	for _, p := range opponentPowers {
		d.Opponent = append(d.Opponent, Card{ID: uuid.New(), Element: "💧", Power: p, Color: "#007AFF"})
	}
	return d
}

func (d *StaticDealer) Deal(int) (player, opponent []Card) {
	for i := range d.Player {
		if d.Player[i].ID == uuid.Nil {
			d.Player[i].ID = uuid.New()
		}
	}
	for i := range d.Opponent {
		if d.Opponent[i].ID == uuid.Nil {
			d.Opponent[i].ID = uuid.New()
		}
	}
	return cloneCards(d.Player), cloneCards(d.Opponent)
}
