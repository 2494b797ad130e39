// Package app wires configuration, storage and the chat transports into a
// runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/leadbot/core/bootstrap"
	"github.com/m3rciful/leadbot/core/chat"
	corecmd "github.com/m3rciful/leadbot/core/cmd"
	coreconfig "github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/line"
	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/middleware"
	"github.com/m3rciful/leadbot/core/sender"
	"github.com/m3rciful/leadbot/core/server"
	"github.com/m3rciful/leadbot/core/telegram"
	"github.com/m3rciful/leadbot/internal/api"
	"github.com/m3rciful/leadbot/internal/leads"
	"github.com/m3rciful/leadbot/internal/leads/dispatch"
	"github.com/m3rciful/leadbot/internal/leads/fsm"
	"github.com/m3rciful/leadbot/internal/leads/notify"
	"github.com/m3rciful/leadbot/internal/leads/pending"
	"github.com/m3rciful/leadbot/internal/leads/repository"
)

// App holds the wired service.
type App struct {
	cfg *coreconfig.Config
	db  *sqlx.DB

	repo      *repository.Repo
	store     pending.Store
	memory    *pending.MemoryStore
	publisher leads.EventPublisher
	queue     *sender.Dispatcher
	locks     *pending.KeyedMutex

	line     *dispatch.Dispatcher
	webhook  *line.WebhookHandler
	api      *api.Handler
	telegram *telegram.Bot
	tgHandle chat.HandlerFunc

	closers []func() error
}

// Bootstrap satisfies the runner: it initialises logging and the database,
// then wires the application around them.
func Bootstrap(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.App, error) {
	cfg := carrier.CoreConfig()
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config: cfg,
		Modules: bootstrap.Modules{
			Seeders: []bootstrap.Seeder{repository.DefaultOwnerSeeder(cfg.Leads.DefaultOwnerID)},
		},
	})
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, res.DB)
}

// New wires the application on an open database. The database is closed
// when wiring fails or on shutdown.
func New(ctx context.Context, cfg *coreconfig.Config, db *sqlx.DB) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	a := &App{
		cfg:   cfg,
		db:    db,
		repo:  repository.New(db, cfg.Leads.DefaultOwnerID),
		locks: pending.NewKeyedMutex(),
	}
	if db != nil {
		a.closers = append(a.closers, db.Close)
	}

	if err := a.initPending(ctx); err != nil {
		a.close()
		return nil, err
	}
	if err := a.initPublisher(); err != nil {
		a.close()
		return nil, err
	}

	machine := fsm.New(fsm.Options{Repo: a.repo, Pending: a.store, Publisher: a.publisher})

	client := line.NewClient(line.ClientOptions{
		BaseURL:     cfg.Line.APIBaseURL,
		AccessToken: cfg.Line.AccessToken,
		Timeout:     time.Duration(cfg.Line.TimeoutSeconds) * time.Second,
	})
	var replier chat.Replier = client
	if cfg.Sender.Async {
		a.queue = sender.NewDispatcher(sender.Options{
			QueueSize:  cfg.Sender.QueueSize,
			Workers:    cfg.Sender.Workers,
			MaxRetries: cfg.Sender.MaxRetries,
		})
		replier = sender.NewAsyncReplier(client, a.queue, line.ChannelName)
	}

	a.line = dispatch.New(dispatch.Options{
		Repo:        a.repo,
		Machine:     machine,
		Lookup:      client,
		Replier:     replier,
		Locks:       a.locks,
		SearchLimit: cfg.Leads.SearchLimit,
		PhoneRegion: cfg.Leads.PhoneRegion,
	})
	a.webhook = line.NewWebhookHandler(cfg.Line.ChannelSecret, cfg.Line.SkipSignature,
		chat.Chain(a.line.Handle, a.middlewares()...))

	a.api = api.New(api.Options{
		Repo:        a.repo,
		Lookup:      client,
		Registrar:   a.line,
		Channel:     line.ChannelName,
		SearchLimit: cfg.Leads.SearchLimit,
		PhoneRegion: cfg.Leads.PhoneRegion,
	})

	if cfg.Telegram.Enabled {
		bot, err := telegram.NewBot(cfg)
		if err != nil {
			a.close()
			return nil, err
		}
		a.telegram = bot
		tg := dispatch.New(dispatch.Options{
			Repo:        a.repo,
			Machine:     machine,
			Lookup:      bot,
			Replier:     bot,
			Locks:       a.locks,
			SearchLimit: cfg.Leads.SearchLimit,
			PhoneRegion: cfg.Leads.PhoneRegion,
		})
		a.tgHandle = chat.Chain(tg.Handle, a.middlewares()...)
	}

	logger.Info(ctx, logger.CompApp, "wired",
		slog.String("status", "ok"),
		slog.String("pending", cfg.Pending.Backend),
		slog.Bool("broker", cfg.Broker.URL != ""),
		slog.Bool("telegram", a.telegram != nil),
		slog.Bool("async_replies", a.queue != nil),
	)
	return a, nil
}

func (a *App) initPending(ctx context.Context) error {
	ttl := time.Duration(a.cfg.Pending.TTLSeconds) * time.Second
	if a.cfg.Pending.Backend != coreconfig.PendingRedis {
		a.memory = pending.NewMemoryStore(ttl)
		a.store = a.memory
		return nil
	}
	client, err := pending.NewRedisClient(a.cfg.Pending.RedisURL)
	if err != nil {
		return fmt.Errorf("app: pending store: %w", err)
	}
	store := pending.NewRedisStore(client, a.cfg.Pending.KeyPrefix, ttl)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		_ = client.Close()
		return fmt.Errorf("app: pending store: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, client.Close)
	return nil
}

func (a *App) initPublisher() error {
	if a.cfg.Broker.URL == "" {
		a.publisher = notify.Nop{}
		return nil
	}
	p, err := notify.DialRabbit(a.cfg.Broker.URL, a.cfg.Broker.Exchange, a.cfg.Broker.RoutingKey)
	if err != nil {
		return fmt.Errorf("app: broker: %w", err)
	}
	a.publisher = p
	a.closers = append(a.closers, p.Close)
	return nil
}

// middlewares returns the chain shared by every chat transport, outermost first.
func (a *App) middlewares() []chat.MiddlewareFunc {
	exclude := make(map[string]struct{}, len(a.cfg.RateLimit.ExcludeEvents))
	for _, k := range a.cfg.RateLimit.ExcludeEvents {
		exclude[k] = struct{}{}
	}
	return []chat.MiddlewareFunc{
		middleware.Recover,
		middleware.Logger,
		middleware.Metrics,
		middleware.RateLimit(middleware.RateLimitOptions{
			Interval: time.Duration(a.cfg.RateLimit.IntervalMS) * time.Millisecond,
			Burst:    a.cfg.RateLimit.Burst,
			Exclude:  exclude,
		}),
	}
}

// Routes mounts the LINE webhook and the REST API.
func (a *App) Routes(r chi.Router) {
	r.Method("POST", a.cfg.HTTP.WebhookPath, a.webhook)
	a.api.RegisterRoutes(r)
}

// ServerOptions satisfies the runner.
func (a *App) ServerOptions() (server.Options, error) {
	opts := server.Options{
		Config: a.cfg,
		Routes: a.Routes,
		OnStop: func(ctx context.Context) error {
			if a.queue != nil {
				a.queue.Close()
			}
			return a.close()
		},
	}
	if a.memory != nil {
		sweep := time.Duration(a.cfg.Pending.SweepIntervalSeconds) * time.Second
		opts.Runners = append(opts.Runners, server.Runner{
			Name: "pending.sweeper",
			Run:  func(ctx context.Context) error { return a.memory.RunSweeper(ctx, sweep) },
		})
	}
	if a.telegram != nil {
		opts.Runners = append(opts.Runners, server.Runner{
			Name: telegram.ChannelName,
			Run:  func(ctx context.Context) error { return a.telegram.Run(ctx, a.tgHandle) },
		})
	}
	return opts, nil
}

func (a *App) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
