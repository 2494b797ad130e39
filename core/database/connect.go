package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/m3rciful/leadbot/core/logger"
)

const (
	connectWait  = 30 * time.Second
	connectRetry = 2 * time.Second
)

// Connect opens the pool and waits up to 30s for Postgres to answer; the
// service often starts next to a database container that is still booting.
func Connect(cfg Config) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectWait)
	defer cancel()
	return connect(ctx, cfg)
}

func connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	target := []slog.Attr{
		slog.String("host", cfg.Host),
		slog.String("port", cfg.Port),
		slog.String("db", cfg.Name),
	}
	start := time.Now()
	for attempt := 1; ; attempt++ {
		db, err := sqlx.ConnectContext(ctx, "postgres", URL(cfg))
		if err == nil {
			db.SetMaxOpenConns(cfg.MaxConnections)
			db.SetMaxIdleConns(max(cfg.MaxConnections/2, 1))
			db.SetConnMaxIdleTime(5 * time.Minute)
			logger.Info(ctx, logger.CompDB, "db.connect", append(target,
				slog.String("status", "ok"),
				slog.Int("pool_open", cfg.MaxConnections),
				slog.Int("attempts", attempt),
				slog.Duration("duration", time.Since(start)),
			)...)
			return db, nil
		}

		select {
		case <-ctx.Done():
			logger.Error(ctx, logger.CompDB, "db.connect", append(target,
				slog.String("status", "fail"),
				slog.Int("attempts", attempt),
				slog.String("err", err.Error()),
			)...)
			return nil, fmt.Errorf("db connect after %d attempts: %w", attempt, err)
		case <-time.After(connectRetry):
			logger.Warn(ctx, logger.CompDB, "db.connect", append(target,
				slog.String("status", "retry"),
				slog.Int("attempts", attempt),
				slog.String("err", err.Error()),
			)...)
		}
	}
}
