// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup; nil disables the action queue.
var Rdb *redis.Client

// QueueName is the Redis list the historian drains.
var QueueName = "battlecards_actions"

// ActionRecord holds the minimal info needed by the historian to replay a battle.
type ActionRecord struct {
	BattleID      uuid.UUID              `json:"battle_id"`
	ActionIndex   int                    `json:"action_index"`
	ActorUserID   uuid.UUID              `json:"actor_user_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// ConnectRedis initializes the global Redis client and verifies it answers PING.
func ConnectRedis(addr string, db int, queue string) error {
	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if queue != "" {
		QueueName = queue
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		Rdb = nil
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// EncodeAction serializes a record the way it is stored on the queue.
func EncodeAction(record ActionRecord) ([]byte, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ActionRecord: %w", err)
	}
	return data, nil
}

// DecodeAction parses a queued record.
func DecodeAction(data []byte) (ActionRecord, error) {
	var rec ActionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("invalid action record: %w", err)
	}
	return rec, nil
}

// PublishAction pushes the record onto the historian queue.
func PublishAction(ctx context.Context, record ActionRecord) error {
	if Rdb == nil {
		return nil
	}
	data, err := EncodeAction(record)
	if err != nil {
		return err
	}
	if err := Rdb.RPush(ctx, QueueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", QueueName, err)
	}
	return nil
}
