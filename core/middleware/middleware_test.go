package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m3rciful/leadbot/core/chat"
	"github.com/m3rciful/leadbot/core/logger"
)

func TestRecoverConvertsPanic(t *testing.T) {
	h := Recover(func(context.Context, chat.Event) error { panic("boom") })
	if err := h(context.Background(), chat.Event{}); err == nil {
		t.Fatalf("expected error from recovered panic")
	}
}

func TestLoggerSetsEventMeta(t *testing.T) {
	var meta logger.EventMeta
	var rid string
	h := Logger(func(ctx context.Context, _ chat.Event) error {
		meta, _ = logger.EventMetaFrom(ctx)
		rid = logger.RIDFrom(ctx)
		return nil
	})
	ev := chat.Event{ID: "E1", Channel: "line", Source: chat.Source{Kind: chat.SourceGroup, UserID: "U1", GroupID: "C1"}}
	_ = h(logger.WithRID(context.Background(), "delivery"), ev)

	if meta.UserID != "U1" || meta.ChatID != "C1" || meta.SourceType != "group" || meta.Channel != "line" {
		t.Fatalf("unexpected meta %+v", meta)
	}
	if rid != "delivery:E1" {
		t.Fatalf("unexpected rid %q", rid)
	}
}

func TestRateLimitDropsBurst(t *testing.T) {
	var handled, limited int
	mw := RateLimit(RateLimitOptions{
		Interval: time.Hour,
		Burst:    2,
		OnLimited: func(context.Context, chat.Event) error {
			limited++
			return nil
		},
	})
	h := mw(func(context.Context, chat.Event) error {
		handled++
		return nil
	})
	ev := chat.Event{Kind: chat.EventMessage, Channel: "line", Source: chat.Source{UserID: "U1"}}
	for i := 0; i < 4; i++ {
		_ = h(context.Background(), ev)
	}
	if handled != 2 || limited != 2 {
		t.Fatalf("expected 2 handled and 2 limited, got %d/%d", handled, limited)
	}

	other := ev
	other.Source.UserID = "U2"
	_ = h(context.Background(), other)
	if handled != 3 {
		t.Fatalf("limits must be per user")
	}
}

func TestRateLimitExclusions(t *testing.T) {
	var handled int
	h := RateLimit(RateLimitOptions{
		Interval: time.Hour,
		Exclude:  map[string]struct{}{string(chat.EventPostback): {}},
	})(func(context.Context, chat.Event) error {
		handled++
		return nil
	})
	ev := chat.Event{Kind: chat.EventPostback, Source: chat.Source{UserID: "U1"}}
	for i := 0; i < 3; i++ {
		_ = h(context.Background(), ev)
	}
	if handled != 3 {
		t.Fatalf("excluded kinds must bypass the limiter, handled %d", handled)
	}
}

func TestGroupOnly(t *testing.T) {
	rejected := errors.New("rejected")
	h := GroupOnly(GroupOptions{OnReject: func(context.Context, chat.Event) error { return rejected }})(
		func(context.Context, chat.Event) error { return nil },
	)
	if err := h(context.Background(), chat.Event{Source: chat.Source{Kind: chat.SourceUser, UserID: "U1"}}); !errors.Is(err, rejected) {
		t.Fatalf("expected reject handler for direct chats, got %v", err)
	}
	if err := h(context.Background(), chat.Event{Source: chat.Source{Kind: chat.SourceGroup, GroupID: "C1"}}); err != nil {
		t.Fatalf("group events must pass: %v", err)
	}
}

func TestMetricsCountsReplies(t *testing.T) {
	var counters *Counters
	h := Metrics(func(ctx context.Context, ev chat.Event) error {
		counters = CountersFrom(ctx)
		CountReply(ctx, ev.Channel, chat.Text("a"), chat.CardMessage(chat.Card{Title: "t"}))
		return nil
	})
	if err := h(context.Background(), chat.Event{Channel: "line", Kind: chat.EventMessage}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, cards := counters.Snapshot()
	if n != 1 || !cards {
		t.Fatalf("unexpected counters %d %v", n, cards)
	}
}
