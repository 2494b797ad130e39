package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/m3rciful/leadbot/core/chat"
	"github.com/m3rciful/leadbot/core/logger"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	// Interval is the sustained minimum spacing between events of one user.
	Interval time.Duration
	Burst    int
	Exclude  map[string]struct{}
	// IdleTTL drops limiters of users that have been quiet for this long.
	IdleTTL   time.Duration
	OnLimited chat.HandlerFunc
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit returns a middleware that enforces a per-user token bucket.
// Limited events are dropped after logging; the handler chain is not called.
func RateLimit(opts RateLimitOptions) chat.MiddlewareFunc {
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 10 * time.Minute
	}
	var (
		mu        sync.Mutex
		limiters  = make(map[string]*userLimiter)
		lastSweep time.Time
	)
	limiterFor := func(userID string, now time.Time) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if now.Sub(lastSweep) > opts.IdleTTL {
			for id, l := range limiters {
				if now.Sub(l.lastSeen) > opts.IdleTTL {
					delete(limiters, id)
				}
			}
			lastSweep = now
		}
		l, ok := limiters[userID]
		if !ok {
			l = &userLimiter{limiter: rate.NewLimiter(rate.Every(opts.Interval), opts.Burst)}
			limiters[userID] = l
		}
		l.lastSeen = now
		return l.limiter
	}

	return func(next chat.HandlerFunc) chat.HandlerFunc {
		return func(ctx context.Context, ev chat.Event) error {
			userID := ev.Source.UserID
			if userID == "" || opts.Interval <= 0 {
				return next(ctx, ev)
			}
			if _, skip := opts.Exclude[string(ev.Kind)]; skip {
				return next(ctx, ev)
			}

			now := time.Now()
			if limiterFor(ev.Channel+":"+userID, now).AllowN(now, 1) {
				return next(ctx, ev)
			}

			rateLimitedTotal.WithLabelValues(ev.Channel).Inc()
			logger.Warn(ctx, ev.Channel, "rate_limit",
				slog.String("status", "rate_limited"),
				slog.String("kind", string(ev.Kind)),
			)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(ctx, ev)
			}
			return nil
		}
	}
}
