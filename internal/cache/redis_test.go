package cache

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishWithoutRedisIsNoop(t *testing.T) {
	Rdb = nil
	err := PublishAction(context.Background(), ActionRecord{BattleID: uuid.New(), ActionType: "battle_choose"})
	assert.NoError(t, err)
}

func TestDecodeAction(t *testing.T) {
	id := uuid.New()
	data, err := EncodeAction(ActionRecord{BattleID: id, ActionIndex: 3, ActionType: "battle_end", ActionPayload: map[string]interface{}{"outcome": "win"}})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"battle_id":"`+id.String()+`"`)

	rec, err := DecodeAction(data)
	require.NoError(t, err)
	assert.Equal(t, "win", rec.ActionPayload["outcome"])

	_, err = DecodeAction([]byte("not json"))
	assert.Error(t, err)
}
