// internal/database/battle.go
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/battlecards/internal/cache"
	"github.com/jason-s-yu/battlecards/internal/models"
	"github.com/jason-s-yu/battlecards/internal/rating"
)

// Battle statuses stored in battles.status.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusAbandoned  = "abandoned"
)

// statColumn maps an outcome to the users counter it increments.
func statColumn(outcome string) (string, bool) {
	switch outcome {
	case "win":
		return "wins", true
	case "lose":
		return "losses", true
	case "draw":
		return "draws", true
	}
	return "", false
}

// CreateBattle inserts the battle row when a session starts.
func CreateBattle(ctx context.Context, id, owner, themeID uuid.UUID, strategy string, rules interface{}) error {
	if DB == nil {
		return ErrNoDatabase
	}
	js, err := json.Marshal(rules)
	if err != nil {
		return fmt.Errorf("failed to marshal rules: %w", err)
	}
	q := `
		INSERT INTO battles (id, owner_id, theme_id, strategy, rules, status, start_time)
		VALUES ($1, $2, $3, $4, $5, 'in_progress', NOW())
		ON CONFLICT (id) DO UPDATE SET strategy = EXCLUDED.strategy, rules = EXCLUDED.rules
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q, id, owner, themeID, strategy, js)
		return e
	})
}

// RecordBattleResult stores a finished battle, bumps the owner's record and rates the result
// against the opponent strategy in one transaction.
func RecordBattleResult(ctx context.Context, r models.BattleResult) error {
	if DB == nil {
		return ErrNoDatabase
	}
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertBattle := `
			INSERT INTO battles (id, owner_id, theme_id, strategy, status, end_time)
			VALUES ($1, $2, $3, $4, 'completed', $5)
			ON CONFLICT (id) DO UPDATE SET status = 'completed', end_time = $5
		`
		if _, e := tx.Exec(ctx, upsertBattle, r.BattleID, r.UserID, r.ThemeID, r.Strategy, r.EndedAt); e != nil {
			return e
		}

		insertResult := `
			INSERT INTO battle_results (battle_id, user_id, outcome, rounds, player_score, opponent_score, ended_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		if _, e := tx.Exec(ctx, insertResult,
			r.BattleID, r.UserID, r.Outcome, r.Rounds, r.PlayerScore, r.OpponentScore, r.EndedAt,
		); e != nil {
			return e
		}

		col, ok := statColumn(r.Outcome)
		if !ok {
			return nil
		}
		if _, e := tx.Exec(ctx, `UPDATE users SET `+col+` = `+col+` + 1 WHERE id = $1`, r.UserID); e != nil {
			return e
		}
		return rateResult(ctx, tx, r)
	})
	if err != nil {
		return fmt.Errorf("tx record battle result: %w", err)
	}
	return nil
}

// rateResult applies the Glicko-2 update for the owner. Owners without a users row are skipped.
func rateResult(ctx context.Context, tx pgx.Tx, r models.BattleResult) error {
	score, ok := rating.Score(r.Outcome)
	if !ok {
		return nil
	}
	var cur rating.Rating
	err := tx.QueryRow(ctx,
		`SELECT rating, rating_rd, rating_vol FROM users WHERE id = $1 FOR UPDATE`, r.UserID,
	).Scan(&cur.Value, &cur.RD, &cur.Volatility)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	next := rating.Update(cur, rating.House(r.Strategy), score)
	_, err = tx.Exec(ctx,
		`UPDATE users SET rating = $1, rating_rd = $2, rating_vol = $3 WHERE id = $4`,
		next.Value, next.RD, next.Volatility, r.UserID,
	)
	return err
}

// InsertActionTx stores one queued action, creating the battle row if the historian sees it first.
// The battle's status follows its highest action_index: battle_end completes it, anything else reopens it.
func InsertActionTx(ctx context.Context, tx pgx.Tx, rec cache.ActionRecord) error {
	upsertBattleQ := `
		INSERT INTO battles (id, owner_id, status, start_time)
		VALUES ($1, $2, 'in_progress', NOW())
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertBattleQ, rec.BattleID, rec.ActorUserID); err != nil {
		return err
	}

	jsonPayload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	actionInsertQ := `
		INSERT INTO battle_actions (battle_id, action_index, actor_user_id, action_type, action_payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (battle_id, action_index) DO NOTHING
	`
	if _, err := tx.Exec(ctx, actionInsertQ,
		rec.BattleID, rec.ActionIndex, rec.ActorUserID, rec.ActionType, jsonPayload,
	); err != nil {
		return err
	}

	// only the newest action decides the status, so late records cannot undo a reset or an end
	statusQ := `
		UPDATE battles
		SET status = $3::text,
		    end_time = CASE WHEN $3::text = 'completed' THEN NOW() ELSE NULL END,
		    last_action_index = $2
		WHERE id = $1 AND last_action_index < $2
	`
	_, err = tx.Exec(ctx, statusQ, rec.BattleID, rec.ActionIndex, statusAfter(rec.ActionType))
	return err
}

// statusAfter is the status of a battle whose newest action has the given type.
// Any action after an end means the battle was reset and is live again.
func statusAfter(actionType string) string {
	if actionType == "battle_end" {
		return StatusCompleted
	}
	return StatusInProgress
}

// InsertActions writes a batch of actions in a single transaction.
func InsertActions(ctx context.Context, batch []cache.ActionRecord) error {
	if DB == nil {
		return ErrNoDatabase
	}
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range batch {
			if err := InsertActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert action %s/%d: %w", rec.BattleID, rec.ActionIndex, err)
			}
		}
		return nil
	})
}

// MarkBattleAbandoned flags a battle that is still in progress as abandoned.
// It reports whether a row changed.
func MarkBattleAbandoned(ctx context.Context, battleID uuid.UUID) (bool, error) {
	if DB == nil {
		return false, ErrNoDatabase
	}
	var changed bool
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE battles
			SET status = 'abandoned', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`
		tag, e := tx.Exec(ctx, q, battleID)
		changed = tag.RowsAffected() > 0
		return e
	})
	return changed, err
}
