package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/leadbot/core/config"
	coredatabase "github.com/m3rciful/leadbot/core/database"
	"github.com/m3rciful/leadbot/core/logger"
)

// Options control the bootstrap pipeline. Nil hooks fall back to the core
// implementations.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error

	Modules Modules
}

func (o *Options) defaults() {
	if o.LoggerInit == nil {
		o.LoggerInit = logger.InitLogger
	}
	if o.Connect == nil {
		o.Connect = coredatabase.Connect
	}
	if o.Migrate == nil {
		o.Migrate = coredatabase.RunMigrations
	}
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB *sqlx.DB
}

// Run initializes logging, opens the database, applies migrations and runs
// the module seeders. The database is closed if a later stage fails.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config")
	}
	opts.defaults()

	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger: %w", err)
	}
	db, err := opts.Connect(opts.Config.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database: %w", err)
	}

	stages := []struct {
		name string
		run  func() error
	}{
		{"migrations", func() error { return opts.Migrate(opts.Config.Database) }},
		{"seed", func() error { return opts.Modules.seed(ctx, db) }},
	}
	for _, s := range stages {
		if err := s.run(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("bootstrap: %s: %w", s.name, err)
		}
	}
	return &Result{DB: db}, nil
}
