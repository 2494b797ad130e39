package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/m3rciful/leadbot/core/chat"
)

var (
	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_events_total",
			Help: "Total number of inbound chat events handled",
		},
		[]string{"channel", "kind", "status"},
	)

	eventDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_event_duration_seconds",
			Help:    "Duration of chat event handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel", "kind"},
	)

	repliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_replies_total",
			Help: "Total number of reply sequences sent",
		},
		[]string{"channel", "card"},
	)

	rateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_rate_limited_total",
			Help: "Total number of events dropped by the rate limiter",
		},
		[]string{"channel"},
	)
)

// Counters tracks the replies produced while handling one event.
type Counters struct {
	mu      sync.Mutex
	replies int
	cards   bool
}

// Snapshot returns the number of reply sequences and whether any carried a card.
func (c *Counters) Snapshot() (int, bool) {
	if c == nil {
		return 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.replies, c.cards
}

type countersKey struct{}

// WithCounters attaches fresh reply counters to ctx.
func WithCounters(ctx context.Context) (context.Context, *Counters) {
	c := &Counters{}
	return context.WithValue(ctx, countersKey{}, c), c
}

// CountersFrom returns the counters attached to ctx, if any.
func CountersFrom(ctx context.Context) *Counters {
	c, _ := ctx.Value(countersKey{}).(*Counters)
	return c
}

// CountReply records one reply sequence for the current event.
func CountReply(ctx context.Context, channel string, msgs ...chat.Message) {
	hasCard := false
	for _, m := range msgs {
		if m.Card != nil {
			hasCard = true
			break
		}
	}
	if c := CountersFrom(ctx); c != nil {
		c.mu.Lock()
		c.replies++
		c.cards = c.cards || hasCard
		c.mu.Unlock()
	}
	card := "false"
	if hasCard {
		card = "true"
	}
	repliesTotal.WithLabelValues(channel, card).Inc()
}

// Metrics records per-event counters and Prometheus series.
func Metrics(next chat.HandlerFunc) chat.HandlerFunc {
	return func(ctx context.Context, ev chat.Event) error {
		if CountersFrom(ctx) == nil {
			ctx, _ = WithCounters(ctx)
		}
		start := time.Now()
		err := next(ctx, ev)

		status := "ok"
		if err != nil {
			status = "fail"
		}
		eventsTotal.WithLabelValues(ev.Channel, string(ev.Kind), status).Inc()
		eventDuration.WithLabelValues(ev.Channel, string(ev.Kind)).Observe(time.Since(start).Seconds())
		return err
	}
}
