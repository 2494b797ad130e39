package router

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/middleware"
	"github.com/m3rciful/leadbot/core/netutil"
)

// HandleWithSummary runs fn with handlerName attached to the context and
// logs one handler.handled line with the reply counters of the event.
func HandleWithSummary(ctx context.Context, handlerName string, fn func(context.Context) error, extras ...slog.Attr) error {
	start := time.Now()
	ctx = logger.WithHandler(ctx, handlerName)
	err := fn(ctx)

	replies, card := middleware.CountersFrom(ctx).Snapshot()
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("handler", handlerName),
		slog.Int("messages", replies),
		slog.Bool("card", card),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}
	if err != nil {
		attrs[0] = slog.String("status", "fail")
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.Info(ctx, logger.CompRouter, "handler.handled", append(attrs, extras...)...)
	return err
}

// errorCode prefers a Code() carried anywhere in the chain, then the
// transport failure class.
func errorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	if class := netutil.Classify(err); class != "" {
		return strings.ToUpper(class)
	}
	return "INTERNAL"
}
