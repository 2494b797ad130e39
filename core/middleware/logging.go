package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/leadbot/core/chat"
	"github.com/m3rciful/leadbot/core/logger"
)

// recentEvents keeps a short-lived set of logged event IDs so redelivered
// webhook events do not produce duplicate receipt lines.
var (
	recentMu     sync.Mutex
	recentEvents = make(map[string]time.Time)
	keepFor      = 10 * time.Minute
)

func alreadyLogged(id string) bool {
	if id == "" {
		return false
	}
	now := time.Now()
	recentMu.Lock()
	defer recentMu.Unlock()
	for k, ts := range recentEvents {
		if now.Sub(ts) > keepFor {
			delete(recentEvents, k)
		}
	}
	if _, ok := recentEvents[id]; ok {
		return true
	}
	recentEvents[id] = now
	return false
}

// Logger attaches rid and event identifiers to the context and logs one
// receipt line per event.
func Logger(next chat.HandlerFunc) chat.HandlerFunc {
	return func(ctx context.Context, ev chat.Event) error {
		rid := logger.BuildRID(logger.RIDFrom(ctx), ev.ID)
		if rid == "" {
			rid = ev.Source.ChatID()
		}
		ctx = logger.WithRID(ctx, rid)
		ctx = logger.WithEventMeta(ctx, logger.EventMeta{
			EventID:    ev.ID,
			Channel:    ev.Channel,
			UserID:     ev.Source.UserID,
			ChatID:     ev.Source.ChatID(),
			SourceType: string(ev.Source.Kind),
		})
		ctx = logger.WithLogger(ctx, logger.Component(ev.Channel))

		if logger.ShouldSampleDebug() && !alreadyLogged(ev.Channel+":"+ev.ID) {
			attrs := []slog.Attr{
				slog.String("status", "ok"),
				slog.String("kind", string(ev.Kind)),
			}
			switch ev.Kind {
			case chat.EventMessage:
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(ev.Text, 256)))
			case chat.EventPostback:
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(ev.PostbackData, 256)))
			}
			logger.Debug(ctx, ev.Channel, "event.received", attrs...)
		}

		return next(ctx, ev)
	}
}
