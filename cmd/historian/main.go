// cmd/historian/main.go is an asynchronous historian service that pops battle actions from a Redis queue
// and persists them to a PostgreSQL database.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/battlecards/internal/bus"
	"github.com/jason-s-yu/battlecards/internal/cache"
	"github.com/jason-s-yu/battlecards/internal/config"
	"github.com/jason-s-yu/battlecards/internal/database"
	"github.com/jason-s-yu/battlecards/internal/historian"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cfg := config.Load()
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisAddr := cfg.RedisAddr
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	if err := cache.ConnectRedis(redisAddr, cfg.RedisDB, cfg.QueueName); err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer cache.Rdb.Close()

	url := cfg.PostgresURL()
	if url == "" {
		logger.Fatal("historian needs Postgres: set PG_HOST")
	}
	if err := database.ConnectDB(ctx, url); err != nil {
		logger.Fatalf("postgres: %v", err)
	}
	defer database.Close()
	if err := database.Migrate(ctx); err != nil {
		logger.Fatalf("migrate: %v", err)
	}

	hs := historian.New(cache.Rdb, historian.DBSink{}, historian.Options{
		Queue:      cache.QueueName,
		BatchSize:  cfg.HistorianBatchSize,
		FlushDelay: cfg.HistorianFlush,
		Inactivity: cfg.InactivityTimeout,
	}, logger)

	// live actions keep battles from being marked abandoned while the queue is backed up
	if cfg.NATSURL != "" {
		if err := bus.Connect(cfg.NATSURL); err != nil {
			logger.WithError(err).Warn("event bus disabled")
		} else {
			defer bus.Close()
			if _, err := bus.Subscribe(hs.TouchSubject); err != nil {
				logger.WithError(err).Warn("failed to subscribe to battle actions")
			}
		}
	}

	hs.Run(ctx)
	logger.Info("Historian shutdown complete.")
}
