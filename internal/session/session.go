// internal/session/session.go
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/battlecards/internal/battle"
	"github.com/jason-s-yu/battlecards/internal/bus"
	"github.com/jason-s-yu/battlecards/internal/cache"
	"github.com/jason-s-yu/battlecards/internal/models"
	"github.com/jason-s-yu/battlecards/internal/theme"
	"github.com/sirupsen/logrus"
)

// Client action types accepted by Apply.
const (
	ActionChoose     = "choose"
	ActionFlipTable  = "flip_table"
	ActionHidePlayer = "hide_player"
	ActionReset      = "reset"
	ActionSync       = "sync"
)

// ErrUnknownAction is returned by Apply for unsupported action types.
var ErrUnknownAction = errors.New("unknown action type")

// OnEndFunc handles a finished battle, e.g. persisting the result.
type OnEndFunc func(result models.BattleResult)

// Options configures a new Session.
type Options struct {
	Theme    theme.Theme
	Rules    battle.Rules
	Strategy battle.Strategy
	Seed     int64
	Dealer   battle.Dealer // overrides the theme palette dealer
}

// Session owns one battle engine for one player. Every mutation goes through
// Mu, so the engine only ever sees a single writer.
type Session struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Theme     theme.Theme
	CreatedAt time.Time

	Mu          sync.Mutex
	engine      *battle.Engine
	actionIndex int
	lastSeen    time.Time
	endReported bool

	// BroadcastFn is used to send events to the owner's connections. If nil, no broadcast is done.
	// It is always called without Mu held.
	BroadcastFn func(ev Event)

	// OnEnd is invoked once per finished battle.
	OnEnd OnEndFunc

	// publish ships one action record to the queue and the bus. nil disables action logging.
	publish    PublishFunc
	pubMu      sync.Mutex
	pubQueue   []cache.ActionRecord
	publishing bool

	logger logrus.FieldLogger
}

// PublishFunc delivers an encoded action record.
type PublishFunc func(ctx context.Context, rec cache.ActionRecord, data []byte) error

// publishToBackends pushes the record to Redis and NATS, whichever are connected.
func publishToBackends(ctx context.Context, rec cache.ActionRecord, data []byte) error {
	return errors.Join(cache.PublishAction(ctx, rec), bus.Publish(rec.BattleID, data))
}

// New builds a session and deals the first hands.
func New(owner uuid.UUID, opts Options, logger logrus.FieldLogger) *Session {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	dealer := opts.Dealer
	if dealer == nil {
		dealer = battle.NewPaletteDealer(opts.Theme.ElementPalette, opts.Theme.Colors(), opts.Rules.MaxPower, opts.Seed)
	}
	strategy := opts.Strategy
	if strategy == nil {
		strategy = battle.NewRandomStrategy(battle.StrategySeed(opts.Seed))
	}

	id := uuid.New()
	s := &Session{
		ID:        id,
		OwnerID:   owner,
		Theme:     opts.Theme,
		CreatedAt: time.Now(),
		lastSeen:  time.Now(),
		engine:    battle.NewEngine(dealer, battle.WithRules(opts.Rules), battle.WithStrategy(strategy)),
		logger:    logger.WithField("battle", id),
	}
	if cache.Rdb != nil || bus.Conn != nil {
		s.publish = publishToBackends
	}
	s.logAction(ActionReset, map[string]interface{}{
		"theme":    s.Theme.ID,
		"strategy": strategy.Name(),
		"rules":    s.engine.Rules(),
		"player":   s.engine.PlayerHand(),
		"opponent": s.engine.OpponentHand(),
	})
	return s
}

// Choose plays a card from the owner's hand and resolves the round.
func (s *Session) Choose(cardID uuid.UUID) (battle.RoundResult, error) {
	s.Mu.Lock()
	res, events, ended, err := s.choose(cardID)
	s.Mu.Unlock()
	s.fire(events...)
	if ended != nil && s.OnEnd != nil {
		s.OnEnd(*ended)
	}
	return res, err
}

func (s *Session) choose(cardID uuid.UUID) (battle.RoundResult, []Event, *models.BattleResult, error) {
	s.lastSeen = time.Now()
	res, err := s.engine.Choose(cardID)
	if err != nil {
		s.logger.WithError(err).WithField("card", cardID).Debug("rejected card choice")
		return res, nil, nil, err
	}
	s.logAction(ActionChoose, map[string]interface{}{
		"card":     res.PlayerCard.ID,
		"opponent": res.OpponentCard.ID,
		"winner":   res.Winner,
		"round":    res.Round,
	})

	view := s.buildView()
	events := []Event{{Type: EventRound, BattleID: s.ID, Round: &res, State: &view}}
	if !res.Outcome.Terminal() {
		return res, events, nil, nil
	}
	ev, ended := s.finish()
	return res, append(events, ev), ended, nil
}

// finish records the end of the battle and returns the result to report, if
// it has not been reported yet. Assumes lock is held by caller.
func (s *Session) finish() (Event, *models.BattleResult) {
	score := s.engine.Score()
	outcome := s.engine.Outcome()
	s.logger.WithFields(logrus.Fields{
		"outcome": outcome,
		"rounds":  s.engine.Round(),
		"score":   fmt.Sprintf("%d-%d", score.Player, score.Opponent),
	}).Info("battle ended")

	s.logAction(string(EventEnd), map[string]interface{}{
		"outcome": outcome,
		"score":   score,
	})
	var ended *models.BattleResult
	if !s.endReported {
		s.endReported = true
		ended = &models.BattleResult{
			BattleID:      s.ID,
			UserID:        s.OwnerID,
			ThemeID:       s.Theme.ID,
			Strategy:      s.engine.Strategy().Name(),
			Outcome:       string(outcome),
			Rounds:        s.engine.Round(),
			PlayerScore:   score.Player,
			OpponentScore: score.Opponent,
			EndedAt:       time.Now(),
		}
	}
	ev := Event{
		Type:     EventEnd,
		BattleID: s.ID,
		Payload: map[string]interface{}{
			"outcome": outcome,
			"score":   score,
		},
	}
	return ev, ended
}

// FlipTable turns the table cards over.
func (s *Session) FlipTable() {
	s.Mu.Lock()
	s.engine.FlipTable()
	s.logAction(ActionFlipTable, nil)
	view := s.buildView()
	s.Mu.Unlock()
	s.fire(Event{Type: EventTableFlipped, BattleID: s.ID, State: &view})
}

// HidePlayer turns the owner's hand over.
func (s *Session) HidePlayer() {
	s.Mu.Lock()
	s.engine.HidePlayer()
	s.logAction(ActionHidePlayer, nil)
	view := s.buildView()
	s.Mu.Unlock()
	s.fire(Event{Type: EventPlayerHidden, BattleID: s.ID, State: &view})
}

// Reset redeals and starts the battle over.
func (s *Session) Reset() {
	s.Mu.Lock()
	s.engine.Reset()
	s.endReported = false
	s.lastSeen = time.Now()
	s.logAction(ActionReset, map[string]interface{}{
		"player":   s.engine.PlayerHand(),
		"opponent": s.engine.OpponentHand(),
	})
	view := s.buildView()
	s.Mu.Unlock()
	s.fire(Event{Type: EventReset, BattleID: s.ID, State: &view})
}

// Sync broadcasts the full view.
func (s *Session) Sync() {
	view := s.View()
	s.fire(Event{Type: EventSync, BattleID: s.ID, State: &view})
}

// Apply routes a client action and returns the resulting view.
func (s *Session) Apply(action models.BattleAction) (View, error) {
	switch action.ActionType {
	case ActionChoose:
		if _, err := s.Choose(action.CardID); err != nil {
			return s.View(), err
		}
	case ActionFlipTable:
		s.FlipTable()
	case ActionHidePlayer:
		s.HidePlayer()
	case ActionReset:
		s.Reset()
	case ActionSync:
		s.Sync()
	default:
		return s.View(), fmt.Errorf("%w: %q", ErrUnknownAction, action.ActionType)
	}
	return s.View(), nil
}

// View returns the current presentation snapshot.
func (s *Session) View() View {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.buildView()
}

// Ended reports whether the battle reached an outcome.
func (s *Session) Ended() bool {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.engine.Outcome().Terminal()
}

// LastSeen is the time of the last choose or reset.
func (s *Session) LastSeen() time.Time {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.lastSeen
}

func (s *Session) fire(events ...Event) {
	if s.BroadcastFn == nil {
		return
	}
	for _, ev := range events {
		s.BroadcastFn(ev)
	}
}

// logAction queues the action for the historian queue and the live event bus.
// Records leave in action_index order. Assumes lock is held by caller.
func (s *Session) logAction(actionType string, payload map[string]interface{}) {
	s.actionIndex++
	if s.publish == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.ActionRecord{
		BattleID:      s.ID,
		ActionIndex:   s.actionIndex,
		ActorUserID:   s.OwnerID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}

	s.pubMu.Lock()
	s.pubQueue = append(s.pubQueue, record)
	start := !s.publishing
	s.publishing = true
	s.pubMu.Unlock()
	if start {
		go s.drainActions()
	}
}

// drainActions publishes queued records one at a time until the queue is empty.
// At most one drainer runs per session.
func (s *Session) drainActions() {
	for {
		s.pubMu.Lock()
		if len(s.pubQueue) == 0 {
			s.publishing = false
			s.pubMu.Unlock()
			return
		}
		rec := s.pubQueue[0]
		s.pubQueue = s.pubQueue[1:]
		s.pubMu.Unlock()

		data, err := cache.EncodeAction(rec)
		if err != nil {
			s.logger.WithError(err).Warn("failed to encode action record")
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := s.publish(ctx, rec, data); err != nil {
			s.logger.WithError(err).Warnf("failed to publish action %d", rec.ActionIndex)
		}
		cancel()
	}
}
