// internal/battle/engine.go
package battle

import "github.com/google/uuid"

// hand is one side's cards: undrawn cards, retired cards, and rounds won.
type hand struct {
	cards []Card
	bank  []Card
	dealt int
	won   int
}

// Engine holds the entire state of one battle. It is not safe for concurrent use;
// a single owner (see session.Session) serializes all calls.
type Engine struct {
	rules    Rules
	dealer   Dealer
	strategy Strategy

	player   hand
	opponent hand
	table    Table

	phase     Phase
	outcome   Outcome
	round     int
	lastRound *RoundResult
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRules overrides the default rules. Zero fields keep their defaults.
func WithRules(r Rules) Option {
	return func(e *Engine) { e.rules = r.normalize() }
}

// WithStrategy sets the opponent card selection strategy.
func WithStrategy(s Strategy) Option {
	return func(e *Engine) {
		if s != nil {
			e.strategy = s
		}
	}
}

// NewEngine builds an engine and deals the starting hands.
func NewEngine(dealer Dealer, opts ...Option) *Engine {
	e := &Engine{
		rules:    DefaultRules(),
		dealer:   dealer,
		strategy: NewRandomStrategy(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.Reset()
	return e
}

// Reset redeals both hands and clears the table, banks, scores and outcome.
func (e *Engine) Reset() {
	p, o := e.dealer.Deal(e.rules.HandSize)
	e.player = hand{cards: cloneCards(p), dealt: len(p)}
	e.opponent = hand{cards: cloneCards(o), dealt: len(o)}
	e.table = Table{}
	e.phase = PhaseIdle
	e.outcome = OutcomeInProgress
	e.round = 0
	e.lastRound = nil
	// a short deal can end the game before the first round
	e.checkEnd()
}

// Choose plays the player's card with the given ID against a card picked by the
// opponent strategy and resolves the round. On error the engine is unchanged.
func (e *Engine) Choose(cardID uuid.UUID) (RoundResult, error) {
	if e.phase == PhaseGameEnded {
		return RoundResult{}, ErrGameOver
	}
	idx := indexOf(e.player.cards, cardID)
	if idx < 0 {
		return RoundResult{}, ErrCardNotInHand
	}

	e.clearTable()
	e.phase = PhaseResolving

	var pc, oc Card
	e.player.cards, pc = removeAt(e.player.cards, idx)
	pc.FaceUp = true

	oi := e.strategy.Pick(cloneCards(e.opponent.cards), pc)
	if oi < 0 || oi >= len(e.opponent.cards) {
		oi = 0
	}
	e.opponent.cards, oc = removeAt(e.opponent.cards, oi)
	oc.FaceUp = true

	e.table = Table{Player: &pc, Opponent: &oc}
	e.round++

	winner := e.resolve(pc, oc)
	switch winner {
	case SidePlayer:
		e.player.won++
	case SideOpponent:
		e.opponent.won++
	}

	e.phase = PhaseRoundEnded
	e.checkEnd()

	res := RoundResult{
		Round:        e.round,
		PlayerCard:   pc,
		OpponentCard: oc,
		Winner:       winner,
		Outcome:      e.outcome,
	}
	e.lastRound = &res
	return res, nil
}

// resolve compares powers, falling back to the tie policy.
func (e *Engine) resolve(pc, oc Card) Side {
	switch {
	case pc.Power > oc.Power:
		return SidePlayer
	case oc.Power > pc.Power:
		return SideOpponent
	}
	switch e.rules.TiePolicy {
	case TieOpponent:
		return SideOpponent
	case TiePlayer:
		return SidePlayer
	default:
		return SideNone
	}
}

// clearTable retires last round's cards into their owners' banks.
func (e *Engine) clearTable() {
	if e.table.Player != nil {
		e.player.bank = append(e.player.bank, *e.table.Player)
	}
	if e.table.Opponent != nil {
		e.opponent.bank = append(e.opponent.bank, *e.table.Opponent)
	}
	e.table = Table{}
}

// checkEnd moves to PhaseGameEnded once a hand is empty.
func (e *Engine) checkEnd() {
	pEmpty, oEmpty := len(e.player.cards) == 0, len(e.opponent.cards) == 0
	switch {
	case !pEmpty && !oEmpty:
		return
	case oEmpty && !pEmpty:
		e.outcome = OutcomeWin
	case pEmpty && !oEmpty:
		e.outcome = OutcomeLose
	default:
		e.outcome = e.bothEmptyOutcome()
	}
	e.phase = PhaseGameEnded
}

func (e *Engine) bothEmptyOutcome() Outcome {
	if e.rules.EndPolicy == EndDraw {
		return OutcomeDraw
	}
	switch {
	case e.player.won > e.opponent.won:
		return OutcomeWin
	case e.opponent.won > e.player.won:
		return OutcomeLose
	default:
		return OutcomeDraw
	}
}

// FlipTable toggles the face of the cards on the table.
func (e *Engine) FlipTable() {
	if e.table.Player != nil {
		e.table.Player.FaceUp = !e.table.Player.FaceUp
	}
	if e.table.Opponent != nil {
		e.table.Opponent.FaceUp = !e.table.Opponent.FaceUp
	}
}

// HidePlayer toggles the face of every card in the player's hand.
func (e *Engine) HidePlayer() {
	for i := range e.player.cards {
		e.player.cards[i].FaceUp = !e.player.cards[i].FaceUp
	}
}

// PlayerHand returns a copy of the player's undrawn cards.
func (e *Engine) PlayerHand() []Card { return cloneCards(e.player.cards) }

// OpponentHand returns a copy of the opponent's undrawn cards.
func (e *Engine) OpponentHand() []Card { return cloneCards(e.opponent.cards) }

// PlayerBank returns a copy of the player's retired cards.
func (e *Engine) PlayerBank() []Card { return cloneCards(e.player.bank) }

// OpponentBank returns a copy of the opponent's retired cards.
func (e *Engine) OpponentBank() []Card { return cloneCards(e.opponent.bank) }

// Outcome returns the game result, OutcomeInProgress until a hand empties.
func (e *Engine) Outcome() Outcome { return e.outcome }

// Phase returns the current position in the round cycle.
func (e *Engine) Phase() Phase { return e.phase }

// Round returns how many rounds have been resolved since the last deal.
func (e *Engine) Round() int { return e.round }

// Rules returns the normalized rules in effect.
func (e *Engine) Rules() Rules { return e.rules }

// Strategy returns the opponent's card selection strategy.
func (e *Engine) Strategy() Strategy { return e.strategy }

// HandSize returns how many cards each side is dealt.
func (e *Engine) HandSize() int { return e.rules.HandSize }

// Table returns a copy of the table slots.
func (e *Engine) Table() Table {
	var t Table
	if e.table.Player != nil {
		c := *e.table.Player
		t.Player = &c
	}
	if e.table.Opponent != nil {
		c := *e.table.Opponent
		t.Opponent = &c
	}
	return t
}

// Score returns rounds won per side.
func (e *Engine) Score() Score {
	return Score{Player: e.player.won, Opponent: e.opponent.won}
}

// Dealt returns how many cards each side started with.
func (e *Engine) Dealt() (player, opponent int) {
	return e.player.dealt, e.opponent.dealt
}

// LastRound returns the most recent round, or nil before the first choose.
func (e *Engine) LastRound() *RoundResult {
	if e.lastRound == nil {
		return nil
	}
	r := *e.lastRound
	return &r
}

// Snapshot is a copy of the full engine state.
type Snapshot struct {
	Phase        Phase        `json:"phase"`
	Outcome      Outcome      `json:"outcome"`
	Round        int          `json:"round"`
	Score        Score        `json:"score"`
	PlayerHand   []Card       `json:"playerHand"`
	OpponentHand []Card       `json:"opponentHand"`
	PlayerBank   []Card       `json:"playerBank"`
	OpponentBank []Card       `json:"opponentBank"`
	Table        Table        `json:"table"`
	LastRound    *RoundResult `json:"lastRound,omitempty"`
	Rules        Rules        `json:"rules"`
}

// Snapshot returns a deep copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		Phase:        e.phase,
		Outcome:      e.outcome,
		Round:        e.round,
		Score:        e.Score(),
		PlayerHand:   e.PlayerHand(),
		OpponentHand: e.OpponentHand(),
		PlayerBank:   e.PlayerBank(),
		OpponentBank: e.OpponentBank(),
		Table:        e.Table(),
		LastRound:    e.LastRound(),
		Rules:        e.rules,
	}
}
