// internal/battle/card.go
package battle

import "github.com/google/uuid"

// Card is a single themed battle card. Element and Color are opaque skin tags; only Power matters to the rules.
type Card struct {
	ID      uuid.UUID `json:"id"`
	Element string    `json:"element"`
	Power   int       `json:"power"`
	Color   string    `json:"color"`
	FaceUp  bool      `json:"faceUp"`
}

// NewCard builds a card with a fresh random ID.
func NewCard(element string, power int, color string) Card {
	return Card{ID: uuid.New(), Element: element, Power: power, Color: color}
}

// Side identifies one half of the table.
type Side string

const (
	SidePlayer   Side = "player"
	SideOpponent Side = "opponent"
	SideNone     Side = "" // tie with no winner
)

// Outcome is the game result tracked by the engine.
type Outcome string

const (
	OutcomeInProgress Outcome = "in_progress"
	OutcomeWin        Outcome = "win"
	OutcomeLose       Outcome = "lose"
	OutcomeDraw       Outcome = "draw"
)

// Terminal reports whether the outcome ends the game.
func (o Outcome) Terminal() bool {
	return o == OutcomeWin || o == OutcomeLose || o == OutcomeDraw
}

// Phase is the engine's position in the round cycle.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseResolving  Phase = "resolving"
	PhaseRoundEnded Phase = "round_ended"
	PhaseGameEnded  Phase = "game_ended"
)

// Table holds the two contested cards of the current round.
type Table struct {
	Player   *Card `json:"player,omitempty"`
	Opponent *Card `json:"opponent,omitempty"`
}

// Score counts rounds won by each side.
type Score struct {
	Player   int `json:"player"`
	Opponent int `json:"opponent"`
}

// RoundResult describes one resolved round.
type RoundResult struct {
	Round        int     `json:"round"`
	PlayerCard   Card    `json:"playerCard"`
	OpponentCard Card    `json:"opponentCard"`
	Winner       Side    `json:"winner"`
	Outcome      Outcome `json:"outcome"`
}

// indexOf returns the position of the card with the given ID, or -1.
func indexOf(cards []Card, id uuid.UUID) int {
	for i, c := range cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// removeAt returns a new slice without index i and the removed card.
func removeAt(cards []Card, i int) ([]Card, Card) {
	c := cards[i]
	out := make([]Card, 0, len(cards)-1)
	out = append(out, cards[:i]...)
	out = append(out, cards[i+1:]...)
	return out, c
}

func cloneCards(cards []Card) []Card {
	out := make([]Card, len(cards))
	copy(out, cards)
	return out
}
