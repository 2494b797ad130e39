package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/leadbot/core/logger"
)

// migrateLog forwards golang-migrate's own messages at debug level.
type migrateLog struct{}

func (migrateLog) Printf(format string, v ...any) {
	logger.Debug(context.Background(), logger.CompMigrate, "migrate.log",
		slog.String("msg", strings.TrimSpace(fmt.Sprintf(format, v...))))
}

func (migrateLog) Verbose() bool { return false }

// RunMigrations applies every pending up migration from cfg.MigrationsDir.
// Relative paths resolve against the working directory. A dirty schema
// version stops startup.
func RunMigrations(cfg Config) error {
	ctx := context.Background()
	dir, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("resolve migrations dir: %w", err)
	}
	files := upFiles(dir)
	preview, cut := logger.SummarizeStrings(files, 6)
	logger.Debug(ctx, logger.CompMigrate, "migrate.resolve",
		slog.String("path", dir),
		slog.Int("count", len(files)),
		slog.String("files", preview),
		slog.Bool("truncated", cut),
	)

	m, err := migrate.New("file://"+filepath.ToSlash(dir), URL(cfg))
	if err != nil {
		logger.Error(ctx, logger.CompMigrate, "migrate.init", slog.String("status", "fail"), slog.String("err", err.Error()))
		return fmt.Errorf("init migrations: %w", err)
	}
	m.Log = migrateLog{}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn(ctx, logger.CompMigrate, "migrate.close", slog.Any("source_err", srcErr), slog.Any("db_err", dbErr))
		}
	}()

	from, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		logger.Error(ctx, logger.CompMigrate, "migrate.dirty", slog.Uint64("version", uint64(from)))
		return fmt.Errorf("database schema version %d is dirty; fix it manually", from)
	}

	start := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Error(ctx, logger.CompMigrate, "migrate.apply",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return fmt.Errorf("apply migrations: %w", err)
	}
	to, _, _ := m.Version()

	applied := appliedBetween(files, uint64(from), uint64(to))
	preview, cut = logger.SummarizeStrings(applied, 6)
	logger.Info(ctx, logger.CompMigrate, "migrate.summary",
		slog.String("status", "ok"),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("count", len(applied)),
		slog.String("files", preview),
		slog.Bool("truncated", cut),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// upFiles lists the *.up.sql names in dir in version order.
func upFiles(dir string) []string {
	paths, _ := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	slices.Sort(names)
	return names
}

// appliedBetween returns the files whose version is in (from, to].
func appliedBetween(files []string, from, to uint64) []string {
	var out []string
	for _, name := range files {
		prefix, _, _ := strings.Cut(name, "_")
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err == nil && v > from && v <= to {
			out = append(out, name)
		}
	}
	return out
}
