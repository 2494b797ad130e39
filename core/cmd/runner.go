package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/server"
)

// ConfigCarrier gives the runner access to the shared core configuration.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// App is what Bootstrap hands back to the runner.
type App interface {
	ServerOptions() (server.Options, error)
}

// Options describe how to load configuration, bootstrap the app and serve it.
// ShutdownLogger and RunServer default to logger.Shutdown and server.Run.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(ctx context.Context, cfg ConfigCarrier) (App, error)

	ShutdownLogger func() error
	RunServer      func(ctx context.Context, opts server.Options) error
}

func (o Options) configPath() (string, error) {
	env := o.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	if p := os.Getenv(env); p != "" {
		return p, nil
	}
	if o.DefaultConfigPath != "" {
		return o.DefaultConfigPath, nil
	}
	return "", fmt.Errorf("cmd: set %s or DefaultConfigPath", env)
}

// Run loads configuration, bootstraps the app and serves until SIGINT or SIGTERM.
func Run(opts Options) error {
	switch {
	case opts.LoadConfig == nil:
		return errors.New("cmd: LoadConfig is required")
	case opts.Bootstrap == nil:
		return errors.New("cmd: Bootstrap is required")
	}
	path, err := opts.configPath()
	if err != nil {
		return err
	}

	log.Printf("config: %s", path)
	carrier, err := opts.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("cmd: load config: %w", err)
	}
	if carrier.CoreConfig() == nil {
		return errors.New("cmd: config carries no core section")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	begin := time.Now()
	app, err := opts.Bootstrap(ctx, carrier)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap: %w", err)
	}
	defer flushLogs(opts.ShutdownLogger)

	srv, err := app.ServerOptions()
	if err != nil {
		return fmt.Errorf("cmd: server options: %w", err)
	}
	withLifecycleLogs(&srv, begin)

	if opts.RunServer != nil {
		return opts.RunServer(ctx, srv)
	}
	return server.Run(ctx, srv)
}

func flushLogs(shutdown func() error) {
	if shutdown == nil {
		shutdown = logger.Shutdown
	}
	if err := shutdown(); err != nil {
		log.Printf("logger shutdown: %v", err)
	}
}

// withLifecycleLogs logs "ready" after the app's own OnStart and "shutdown"
// before its OnStop.
func withLifecycleLogs(srv *server.Options, begin time.Time) {
	onStart, onStop := srv.OnStart, srv.OnStop
	srv.OnStart = func(ctx context.Context) error {
		if onStart != nil {
			if err := onStart(ctx); err != nil {
				return err
			}
		}
		logger.Info(ctx, logger.CompApp, "ready",
			slog.String("status", "ok"),
			slog.Duration("startup_duration", logger.RoundMS(time.Since(begin))),
		)
		return nil
	}
	srv.OnStop = func(ctx context.Context) error {
		logger.Info(ctx, logger.CompApp, "shutdown", slog.String("status", "ok"))
		if onStop == nil {
			return nil
		}
		return onStop(ctx)
	}
}
