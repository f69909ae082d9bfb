// internal/models/battle.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// BattleResult is the row stored in battle_results once a battle ends.
type BattleResult struct {
	BattleID      uuid.UUID `json:"battle_id"`
	UserID        uuid.UUID `json:"user_id"`
	ThemeID       uuid.UUID `json:"theme_id"`
	Strategy      string    `json:"strategy"`
	Outcome       string    `json:"outcome"`
	Rounds        int       `json:"rounds"`
	PlayerScore   int       `json:"player_score"`
	OpponentScore int       `json:"opponent_score"`
	EndedAt       time.Time `json:"ended_at"`
}

// BattleAction captures a client's in-battle move.
type BattleAction struct {
	ActionType string    `json:"type"`
	CardID     uuid.UUID `json:"cardId"`
}
