// internal/session/view.go
package session

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/battlecards/internal/battle"
	"github.com/jason-s-yu/battlecards/internal/theme"
)

// ViewCard is a card as the player may see it. Face-down opponent cards only expose their ID.
type ViewCard struct {
	ID      uuid.UUID `json:"id"`
	Known   bool      `json:"known"`
	FaceUp  bool      `json:"faceUp"`
	Element string    `json:"element,omitempty"`
	Power   int       `json:"power,omitempty"`
	Color   string    `json:"color,omitempty"`
}

// ViewTable mirrors battle.Table.
type ViewTable struct {
	Player   *ViewCard `json:"player,omitempty"`
	Opponent *ViewCard `json:"opponent,omitempty"`
}

// View is the presentation snapshot of a battle.
type View struct {
	BattleID        uuid.UUID           `json:"battleId"`
	OwnerID         uuid.UUID           `json:"ownerId"`
	ThemeID         uuid.UUID           `json:"themeId"`
	ThemeTitle      string              `json:"themeTitle"`
	BackgroundColor theme.Color         `json:"backgroundColor"`
	Strategy        string              `json:"strategy"`
	Phase           battle.Phase        `json:"phase"`
	Outcome         battle.Outcome      `json:"outcome"`
	Round           int                 `json:"round"`
	Score           battle.Score        `json:"score"`
	WonRound        *bool               `json:"wonRound,omitempty"`
	PlayerHand      []ViewCard          `json:"playerHand"`
	OpponentHand    []ViewCard          `json:"opponentHand"`
	PlayerBank      []ViewCard          `json:"playerBank"`
	OpponentBank    []ViewCard          `json:"opponentBank"`
	Table           ViewTable           `json:"table"`
	LastRound       *battle.RoundResult `json:"lastRound,omitempty"`
	Rules           battle.Rules        `json:"rules"`
}

func known(c battle.Card) ViewCard {
	return ViewCard{ID: c.ID, Known: true, FaceUp: c.FaceUp, Element: c.Element, Power: c.Power, Color: c.Color}
}

// obscured hides everything but the ID of a face-down card.
func obscured(c battle.Card) ViewCard {
	if c.FaceUp {
		return known(c)
	}
	return ViewCard{ID: c.ID}
}

func viewCards(cards []battle.Card, conv func(battle.Card) ViewCard) []ViewCard {
	out := make([]ViewCard, len(cards))
	for i, c := range cards {
		out[i] = conv(c)
	}
	return out
}

func viewSlot(c *battle.Card, conv func(battle.Card) ViewCard) *ViewCard {
	if c == nil {
		return nil
	}
	v := conv(*c)
	return &v
}

// buildView generates the snapshot. Assumes lock is held by caller.
func (s *Session) buildView() View {
	snap := s.engine.Snapshot()
	v := View{
		BattleID:        s.ID,
		OwnerID:         s.OwnerID,
		ThemeID:         s.Theme.ID,
		ThemeTitle:      s.Theme.Title,
		BackgroundColor: s.Theme.BackgroundColor,
		Strategy:        s.engine.Strategy().Name(),
		Phase:           snap.Phase,
		Outcome:         snap.Outcome,
		Round:           snap.Round,
		Score:           snap.Score,
		PlayerHand:      viewCards(snap.PlayerHand, known),
		OpponentHand:    viewCards(snap.OpponentHand, obscured),
		PlayerBank:      viewCards(snap.PlayerBank, known),
		OpponentBank:    viewCards(snap.OpponentBank, known),
		Table:           ViewTable{Player: viewSlot(snap.Table.Player, known), Opponent: viewSlot(snap.Table.Opponent, obscured)},
		LastRound:       snap.LastRound,
		Rules:           snap.Rules,
	}
	if snap.LastRound != nil {
		won := snap.LastRound.Winner == battle.SidePlayer
		v.WonRound = &won
		if t := snap.Table.Opponent; t != nil && !t.FaceUp && t.ID == snap.LastRound.OpponentCard.ID {
			last := *snap.LastRound
			last.OpponentCard = battle.Card{ID: t.ID}
			v.LastRound = &last
		}
	}
	return v
}
