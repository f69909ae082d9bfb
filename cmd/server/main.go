// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/battlecards/internal/auth"
	"github.com/jason-s-yu/battlecards/internal/battle"
	"github.com/jason-s-yu/battlecards/internal/bus"
	"github.com/jason-s-yu/battlecards/internal/cache"
	"github.com/jason-s-yu/battlecards/internal/config"
	"github.com/jason-s-yu/battlecards/internal/database"
	"github.com/jason-s-yu/battlecards/internal/handlers"
	"github.com/jason-s-yu/battlecards/internal/theme"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	logger := cfg.NewLogger()

	if priv, pub := os.Getenv("JWT_PRIVATE_KEY_FILE"), os.Getenv("JWT_PUBLIC_KEY_FILE"); priv != "" && pub != "" {
		if err := auth.InitFromPath(priv, pub); err != nil {
			logger.Fatalf("auth init: %v", err)
		}
	} else if err := auth.Init(); err != nil {
		logger.Fatalf("auth init: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectBackends(ctx, cfg, logger)
	defer database.Close()
	defer bus.Close()

	catalog, err := loadCatalog(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("themes: %v", err)
	}

	rules := battle.DefaultRules()
	if err := rules.Update(map[string]interface{}{"handSize": cfg.HandSize, "maxPower": cfg.MaxPower}); err != nil {
		logger.Fatalf("invalid HAND_SIZE/MAX_POWER: %v", err)
	}
	if _, err := battle.StrategyByName(cfg.DefaultStrategy, 1); err != nil {
		logger.Fatalf("invalid DEFAULT_STRATEGY: %v", err)
	}

	srv := handlers.NewBattleServer(logger, catalog, handlers.Defaults{
		Strategy:       cfg.DefaultStrategy,
		Rules:          rules,
		AllowedOrigins: handlers.ParseOrigins(cfg.AllowedOrigins),
		WriteTimeout:   cfg.ServerWriteDeadline,
	})
	handlers.SecureCookies = cfg.Production()
	go srv.RunSweeper(ctx, time.Minute, cfg.InactivityTimeout)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("Running on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("graceful shutdown failed")
	}
}

// connectBackends attaches the optional Redis queue, NATS bus and Postgres pool.
// Each one that is unset or unreachable is skipped with a warning.
func connectBackends(ctx context.Context, cfg config.Config, logger *logrus.Logger) {
	if cfg.RedisAddr != "" {
		if err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisDB, cfg.QueueName); err != nil {
			logger.WithError(err).Warn("action queue disabled")
		} else {
			logger.Infof("Connected to Redis at %s (queue %s)", cfg.RedisAddr, cache.QueueName)
		}
	}
	if cfg.NATSURL != "" {
		if err := bus.Connect(cfg.NATSURL); err != nil {
			logger.WithError(err).Warn("event bus disabled")
		} else {
			logger.Infof("Connected to NATS at %s", cfg.NATSURL)
		}
	}
	if url := cfg.PostgresURL(); url != "" {
		if err := database.ConnectDB(ctx, url); err != nil {
			logger.WithError(err).Warn("persistence disabled")
			return
		}
		if err := database.Migrate(ctx); err != nil {
			logger.WithError(err).Error("schema migration failed")
		}
		logger.Infof("Connected to database at %s:%s/%s", cfg.PGHost, cfg.PGPort, cfg.PGDatabase)
	}
}

// loadCatalog picks the themes: Postgres rows when present, else THEMES_FILE, else the embedded set.
// A database without themes is seeded from the file catalog.
func loadCatalog(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*theme.Catalog, error) {
	fileCatalog, err := theme.LoadFile(cfg.ThemesFile)
	if err != nil {
		return nil, err
	}
	if database.DB == nil {
		return fileCatalog, nil
	}

	stored, err := database.LoadThemes(ctx)
	if err != nil {
		logger.WithError(err).Warn("failed to load themes from database, using file catalog")
		return fileCatalog, nil
	}
	if len(stored) == 0 {
		if err := database.UpsertThemes(ctx, fileCatalog.All()); err != nil {
			logger.WithError(err).Warn("failed to seed themes")
		}
		return fileCatalog, nil
	}
	logger.Infof("Loaded %d themes from database", len(stored))
	return theme.NewCatalog(stored)
}
