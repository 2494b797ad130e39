package logger

import (
	"context"
	"log/slog"
	"strings"
	"unicode"
)

type (
	ridKey     struct{}
	metaKey    struct{}
	loggerKey  struct{}
	handlerKey struct{}
)

// EventMeta identifies the inbound chat event a log line belongs to.
// LINE ids are opaque strings; Telegram ids are formatted integers.
type EventMeta struct {
	EventID    string
	Channel    string
	UserID     string
	ChatID     string
	SourceType string
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func stringValue(ctx context.Context, key any) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}

// WithLogger makes log the logger returned by FromContext.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	ctx = orBackground(ctx)
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, log)
}

// FromContext returns the logger stored in ctx, or L.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	return L
}

// WithRID sets the correlation id printed as rid.
func WithRID(ctx context.Context, rid string) context.Context {
	return context.WithValue(orBackground(ctx), ridKey{}, rid)
}

// RIDFrom returns the correlation id of ctx.
func RIDFrom(ctx context.Context) string { return stringValue(ctx, ridKey{}) }

// WithEventMeta attaches the identifiers of the event being handled.
func WithEventMeta(ctx context.Context, meta EventMeta) context.Context {
	return context.WithValue(orBackground(ctx), metaKey{}, meta)
}

// EventMetaFrom returns the identifiers set by WithEventMeta.
func EventMetaFrom(ctx context.Context) (EventMeta, bool) {
	if ctx == nil {
		return EventMeta{}, false
	}
	meta, ok := ctx.Value(metaKey{}).(EventMeta)
	return meta, ok
}

// WithHandler names the handler that produces subsequent log lines.
func WithHandler(ctx context.Context, handler string) context.Context {
	ctx = orBackground(ctx)
	if handler == "" {
		return ctx
	}
	return context.WithValue(ctx, handlerKey{}, handler)
}

// HandlerFrom returns the handler name set by WithHandler.
func HandlerFrom(ctx context.Context) string { return stringValue(ctx, handlerKey{}) }

// BuildRID joins the non-empty parts with ":".
func BuildRID(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ":")
}

// SanitizeLimit drops control and format characters (tab and newline
// survive) and cuts the result to at most n runes. User text goes through
// it before it reaches a log line.
func SanitizeLimit(s string, n int) string {
	if n <= 0 {
		return ""
	}
	clean := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
			return -1
		}
		return r
	}, s)
	runes := 0
	for i := range clean {
		if runes == n {
			return clean[:i]
		}
		runes++
	}
	return clean
}
