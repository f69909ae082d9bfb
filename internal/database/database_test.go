package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jason-s-yu/battlecards/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatColumn(t *testing.T) {
	for outcome, want := range map[string]string{"win": "wins", "lose": "losses", "draw": "draws"} {
		col, ok := statColumn(outcome)
		require.True(t, ok, outcome)
		assert.Equal(t, want, col)
	}
	_, ok := statColumn("in_progress")
	assert.False(t, ok)
}

func TestStatusAfter(t *testing.T) {
	assert.Equal(t, StatusCompleted, statusAfter("battle_end"))
	for _, typ := range []string{"reset", "choose", "flip_table", "hide_player"} {
		assert.Equal(t, StatusInProgress, statusAfter(typ), typ)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505"})
	assert.True(t, isUniqueViolation(err))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
	assert.False(t, isUniqueViolation(nil))
}

func TestNullableEmail(t *testing.T) {
	assert.Nil(t, nullableEmail(""))
	got := nullableEmail("a@b.c")
	require.NotNil(t, got)
	assert.Equal(t, "a@b.c", *got)
}

func TestSchemaEmbedded(t *testing.T) {
	for _, table := range []string{"users", "themes", "battles", "battle_actions", "battle_results"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table+" ")
	}
	assert.Contains(t, schema, "last_action_index")
	for _, col := range []string{"rating", "rating_rd", "rating_vol"} {
		assert.Contains(t, schema, col)
		assert.Contains(t, userColumns, col)
	}
}

func TestQueriesWithoutPool(t *testing.T) {
	require.Nil(t, DB)
	ctx := context.Background()

	assert.ErrorIs(t, Migrate(ctx), ErrNoDatabase)
	assert.ErrorIs(t, CreateUser(ctx, &models.User{IsEphemeral: true}), ErrNoDatabase)
	_, err := GetUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, _, err = AuthenticateUser(ctx, "a@b.c", "pw")
	assert.ErrorIs(t, err, ErrNoDatabase)
	assert.ErrorIs(t, RecordBattleResult(ctx, models.BattleResult{}), ErrNoDatabase)
	assert.ErrorIs(t, InsertActions(ctx, nil), ErrNoDatabase)
	_, err = MarkBattleAbandoned(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNoDatabase)
	_, err = LoadThemes(ctx)
	assert.ErrorIs(t, err, ErrNoDatabase)
}
