// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Config collects every environment setting the binaries read.
// A .env file is loaded by github.com/joho/godotenv/autoload in each main package.
type Config struct {
	Env  string // dev or production
	Port string

	LogLevel  string
	LogFormat string // text or json

	RedisAddr  string // empty disables the action queue
	RedisDB    int
	QueueName  string
	NATSURL    string // empty disables live event fan-out
	PGHost     string // empty disables Postgres
	PGPort     string
	PGUser     string
	PGPassword string
	PGDatabase string

	ThemesFile      string
	DefaultStrategy string
	HandSize        int
	MaxPower        int

	HistorianBatchSize  int
	HistorianFlush      time.Duration
	InactivityTimeout   time.Duration
	AllowedOrigins      string
	ServerWriteDeadline time.Duration
}

// Load reads the environment, applying defaults.
func Load() Config {
	return Config{
		Env:  getEnv("BATTLECARDS_ENV", "dev"),
		Port: getEnv("PORT", "8080"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		RedisAddr:  os.Getenv("REDIS_ADDR"),
		RedisDB:    getEnvInt("REDIS_DB", 0),
		QueueName:  getEnv("HISTORIAN_QUEUE_NAME", "battlecards_actions"),
		NATSURL:    os.Getenv("NATS_URL"),
		PGHost:     os.Getenv("PG_HOST"),
		PGPort:     getEnv("PG_PORT", "5432"),
		PGUser:     os.Getenv("POSTGRES_USER"),
		PGPassword: os.Getenv("POSTGRES_PASSWORD"),
		PGDatabase: getEnv("PG_DATABASE", "battlecards"),

		ThemesFile:      os.Getenv("THEMES_FILE"),
		DefaultStrategy: getEnv("DEFAULT_STRATEGY", "random"),
		HandSize:        getEnvInt("HAND_SIZE", 4),
		MaxPower:        getEnvInt("MAX_POWER", 10),

		HistorianBatchSize:  getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		HistorianFlush:      time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		InactivityTimeout:   time.Duration(getEnvInt("BATTLE_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,
		AllowedOrigins:      getEnv("ALLOWED_ORIGINS", "*"),
		ServerWriteDeadline: time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 3000)) * time.Millisecond,
	}
}

// PostgresURL builds the pgx connection string, or "" when Postgres is not configured.
func (c Config) PostgresURL() string {
	if c.PGHost == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}

// Production reports whether the service runs in production mode.
func (c Config) Production() bool {
	return c.Env == "production" || c.Env == "prod"
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logger.Warnf("unknown LOG_LEVEL %q, using info", c.LogLevel)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
