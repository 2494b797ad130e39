package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/leadbot/core/logger"
)

// Seeder loads reference data once migrations have been applied.
type Seeder interface {
	Seed(ctx context.Context, db *sqlx.DB) error
}

// SeederFunc adapts a bare function to the Seeder interface.
type SeederFunc func(ctx context.Context, db *sqlx.DB) error

// Seed executes the underlying function.
func (f SeederFunc) Seed(ctx context.Context, db *sqlx.DB) error {
	return f(ctx, db)
}

// Modules groups optional bootstrapping hooks.
type Modules struct {
	Seeders []Seeder
}

func (m Modules) seed(ctx context.Context, db *sqlx.DB) error {
	start := time.Now()
	ran := 0
	for i, s := range m.Seeders {
		if s == nil {
			continue
		}
		if err := s.Seed(ctx, db); err != nil {
			logger.Error(ctx, logger.CompSeed, "seed", slog.String("status", "fail"), slog.Int("index", i), slog.String("err", err.Error()))
			return fmt.Errorf("seeder %d failed: %w", i, err)
		}
		ran++
	}
	logger.Info(ctx, logger.CompSeed, "seed",
		slog.String("status", "ok"),
		slog.Int("count", ran),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return nil
}
