package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/leadbot/core/buildinfo"
	coreconfig "github.com/m3rciful/leadbot/core/config"
	"github.com/m3rciful/leadbot/core/logger"
)

// Banner is the first line served at the root path.
const Banner = "Client Management API"

// Runner is a long-lived background loop that stops when ctx is done.
type Runner struct {
	Name string
	Run  func(ctx context.Context) error
}

// Options controls the behaviour of Run.
type Options struct {
	Config *coreconfig.Config

	// Routes mounts application endpoints on the shared router.
	Routes  func(r chi.Router)
	Runners []Runner

	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
}

// NewRouter builds the chi router with the health and metrics endpoints.
func NewRouter(cfg *coreconfig.Config, routes func(r chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(chimw.Recoverer)

	origins := []string{"*"}
	if cfg != nil && len(cfg.HTTP.CORSOrigins) > 0 {
		origins = cfg.HTTP.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Line-Signature"},
		MaxAge:         300,
	}))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = fmt.Fprintf(w, "%s\n\n%s %s\n", Banner, buildinfo.String(), runtime.Version())
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	if routes != nil {
		routes(r)
	}
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		ctx := logger.WithRID(r.Context(), chimw.GetReqID(r.Context()))
		next.ServeHTTP(ww, r.WithContext(ctx))
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			return
		}
		logger.Debug(ctx, logger.CompHTTP, "http.request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("code", ww.Status()),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
	})
}

// Run serves HTTP and the configured runners until ctx is done or one of them fails.
func Run(ctx context.Context, opts Options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return fmt.Errorf("server: nil config provided")
	}
	cfg := opts.Config

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           NewRouter(cfg, opts.Routes),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info(gctx, logger.CompHTTP, "listen",
			slog.String("status", "ok"),
			slog.String("addr", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		timeout := time.Duration(cfg.HTTP.ShutdownSeconds) * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn(gctx, logger.CompHTTP, "shutdown",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
			return err
		}
		return nil
	})

	for _, r := range opts.Runners {
		if r.Run == nil {
			continue
		}
		g.Go(func() error {
			logger.Info(gctx, logger.CompApp, "runner.start", slog.String("runner", r.Name))
			err := r.Run(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("runner %s: %w", r.Name, err)
			}
			return nil
		})
	}

	runErr := g.Wait()

	var stopErr error
	if opts.OnStop != nil {
		stopErr = opts.OnStop(context.WithoutCancel(ctx))
	}

	if runErr != nil {
		return runErr
	}
	return stopErr
}
