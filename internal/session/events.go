// internal/session/events.go
package session

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/battlecards/internal/battle"
)

// EventType is an enum-like type for broadcasting battle actions.
type EventType string

const (
	EventSync         EventType = "battle_sync"          // full view, sent on connect and on request
	EventRound        EventType = "battle_round"         // a round was resolved
	EventTableFlipped EventType = "battle_table_flipped" // table cards turned over
	EventPlayerHidden EventType = "battle_player_hidden" // player hand turned over
	EventReset        EventType = "battle_reset"         // hands redealt
	EventEnd          EventType = "battle_end"           // outcome reached
	EventError        EventType = "error"
)

// Event holds data about an event that can be broadcast to clients in a consistent format.
type Event struct {
	Type     EventType              `json:"type"`
	BattleID uuid.UUID              `json:"battleId"`
	Round    *battle.RoundResult    `json:"round,omitempty"`
	State    *View                  `json:"state,omitempty"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
}

// ErrorEvent builds an error event for a client.
func ErrorEvent(battleID uuid.UUID, msg string) Event {
	return Event{Type: EventError, BattleID: battleID, Payload: map[string]interface{}{"message": msg}}
}
