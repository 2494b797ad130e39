package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/leadbot/core/bootstrap"
	"github.com/m3rciful/leadbot/core/logger"
)

// DefaultOwnerSeeder makes sure the staff user that owns unmapped leads exists.
func DefaultOwnerSeeder(ownerID int64) bootstrap.Seeder {
	return bootstrap.SeederFunc(func(ctx context.Context, db *sqlx.DB) error {
		res, err := db.ExecContext(ctx, `
			INSERT INTO staff_users (id, first_name, last_name)
			VALUES ($1, 'Admin', '')
			ON CONFLICT (id) DO NOTHING`, ownerID)
		if err != nil {
			return fmt.Errorf("seed default owner: %w", err)
		}
		// explicit ids leave the serial sequence behind
		if _, err := db.ExecContext(ctx,
			`SELECT setval(pg_get_serial_sequence('staff_users', 'id'), GREATEST((SELECT MAX(id) FROM staff_users), 1))`); err != nil {
			return fmt.Errorf("seed default owner: sync sequence: %w", err)
		}
		inserted, _ := res.RowsAffected()
		logger.Info(ctx, logger.CompSeed, "seed.default_owner",
			slog.String("status", "ok"),
			slog.Int64("owner_id", ownerID),
			slog.Bool("inserted", inserted > 0),
		)
		return nil
	})
}
