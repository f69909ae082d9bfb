package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "PG_HOST", "HAND_SIZE", "LOG_LEVEL", "HISTORIAN_FLUSH_MS", "BATTLECARDS_ENV"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 4, cfg.HandSize)
	assert.Equal(t, "battlecards_actions", cfg.QueueName)
	assert.Equal(t, 500*time.Millisecond, cfg.HistorianFlush)
	assert.Empty(t, cfg.PostgresURL())
	assert.False(t, cfg.Production())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("HAND_SIZE", "6")
	t.Setenv("MAX_POWER", "not-a-number")
	t.Setenv("PG_HOST", "db")
	t.Setenv("POSTGRES_USER", "cards")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("PG_DATABASE", "bc")
	t.Setenv("BATTLECARDS_ENV", "production")

	cfg := Load()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 6, cfg.HandSize)
	assert.Equal(t, 10, cfg.MaxPower, "bad ints fall back to the default")
	assert.Equal(t, "postgres://cards:secret@db:5432/bc", cfg.PostgresURL())
	assert.True(t, cfg.Production())
}

func TestNewLogger(t *testing.T) {
	logger := Config{LogLevel: "debug", LogFormat: "json"}.NewLogger()
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger = Config{LogLevel: "loud"}.NewLogger()
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}
