// Package logger is the structured slog setup shared by every component.
// Call sites log events, not messages:
//
//	logger.Info(ctx, logger.CompLeads, "client.created", slog.Int64("client_id", id))
//
// The event helpers are safe to call before InitLogger; they log nothing.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/leadbot/core/buildinfo"
	coreconfig "github.com/m3rciful/leadbot/core/config"
)

var (
	initOnce sync.Once

	closeMu sync.Mutex
	closed  bool
	sinks   []*asyncWriter
	files   []io.Closer

	levelVar     slog.LevelVar
	debugSampler = newRatioSampler(1, 50)
	traceAll     bool

	// L is the root logger; nil until InitLogger.
	L *slog.Logger
)

type settings struct {
	format     logFormat
	level      slog.Level
	keyOrder   []string
	sampleKeep int
	sampleOf   int
	profile    string
	file       string
	errorsFile string
}

func settingsFrom(cfg *coreconfig.Config) settings {
	s := settings{format: formatJSON, level: slog.LevelInfo, keyOrder: defaultKeyOrder, sampleKeep: 1, sampleOf: 50, profile: "prod"}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.format = formatKV
	case "json":
	default:
		if s.profile == "debug" || s.profile == "dev" {
			s.format = formatKV
		}
	}
	s.level = parseLevel(lc.Level)
	if order := splitList(lc.KeysOrder); len(order) > 0 && lc.KeysOrder != "default" {
		s.keyOrder = order
	}
	if spec := strings.TrimSpace(lc.DebugSample); spec != "" {
		s.sampleKeep, s.sampleOf = parseRatioSpec(spec)
	}
	if dir := strings.TrimSpace(lc.Dir); dir != "" {
		if f := strings.TrimSpace(lc.File); f != "" {
			s.file = filepath.Join(dir, f)
		}
		if f := strings.TrimSpace(lc.ErrorsFile); f != "" {
			s.errorsFile = filepath.Join(dir, f)
		}
	}
	return s
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// InitLogger builds the root logger from cfg. Only the first call has an effect.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() { err = initLogger(settingsFrom(cfg)) })
	return err
}

func initLogger(s settings) error {
	levelVar.Set(s.level)
	debugSampler.Set(s.sampleKeep, s.sampleOf)
	traceAll = envFlag("TRACE") || envFlag("LOG_TRACE")

	outputs := []io.Writer{os.Stdout}
	if s.file != "" {
		f, err := openAppend(s.file)
		if err != nil {
			return err
		}
		outputs = append(outputs, f)
	}
	cfg := handlerConfig{level: &levelVar, format: s.format, keyOrder: s.keyOrder}
	cfg.writer = newAsyncWriter(outputs, 64*1024)
	sinks = append(sinks, cfg.writer)
	if s.errorsFile != "" {
		f, err := openAppend(s.errorsFile)
		if err != nil {
			return err
		}
		cfg.errors = newAsyncWriter([]io.Writer{f}, 8*1024)
		sinks = append(sinks, cfg.errors)
	}

	L = slog.New(newStructuredHandler(cfg))
	slog.SetDefault(L)

	Info(context.Background(), CompApp, "startup",
		slog.String("go_version", runtime.Version()),
		slog.String("build", buildinfo.String()),
		slog.String("profile", s.profile),
		slog.String("level", levelName(s.level)),
	)
	return nil
}

func openAppend(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logger: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open %s: %w", path, err)
	}
	files = append(files, f)
	return f, nil
}

func envFlag(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Shutdown flushes pending lines and closes log files. It is idempotent.
func Shutdown() error {
	closeMu.Lock()
	defer closeMu.Unlock()
	if closed {
		return nil
	}
	closed = true

	var errs []error
	for _, w := range sinks {
		errs = append(errs, w.Close())
	}
	for _, f := range files {
		errs = append(errs, f.Close())
	}
	return errors.Join(errs...)
}

// Component returns L scoped to a component, or nil before InitLogger.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// Event logs event for component through the context logger, or L.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	emit(ctx, FromContext(ctx), level, component, event, attrs)
}

func emit(ctx context.Context, log *slog.Logger, level slog.Level, component, event string, attrs []slog.Attr) {
	if log == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !log.Enabled(ctx, level) {
		return
	}
	head := make([]slog.Attr, 0, len(attrs)+2)
	if component != "" {
		head = append(head, slog.String("component", component))
	}
	head = append(head, slog.String("event", event))
	log.LogAttrs(ctx, level, event, append(head, attrs...)...)
}

// Debug logs a debug-level event.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug line should be
// written. TRACE=1 in the environment lets every line through.
func ShouldSampleDebug() bool {
	return traceAll || debugSampler.Allow()
}
