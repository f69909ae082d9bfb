// internal/database/db.go
package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the global pool. nil means Postgres is not configured and persistence is skipped.
var DB *pgxpool.Pool

// ErrNoDatabase is returned by queries attempted without a pool.
var ErrNoDatabase = errors.New("database not connected")

//go:embed schema.sql
var schema string

// ConnectDB opens the pool and verifies it answers a ping.
func ConnectDB(ctx context.Context, connStr string) error {
	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return fmt.Errorf("db ping error: %w", err)
	}
	DB = pool
	return nil
}

// Migrate creates any missing tables.
func Migrate(ctx context.Context) error {
	if DB == nil {
		return ErrNoDatabase
	}
	if _, err := DB.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func Close() {
	if DB != nil {
		DB.Close()
		DB = nil
	}
}
