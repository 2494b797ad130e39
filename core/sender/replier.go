package sender

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/leadbot/core/chat"
	"github.com/m3rciful/leadbot/core/logger"
)

// AsyncReplier queues replies on a Dispatcher so event handling does not wait
// on the outbound API. Failures are logged by the dispatcher and never surface
// to the caller. A saturated queue falls back to a synchronous send.
type AsyncReplier struct {
	inner   chat.Replier
	queue   *Dispatcher
	channel string
}

// NewAsyncReplier wraps inner. channel labels log lines ("line", "telegram").
func NewAsyncReplier(inner chat.Replier, queue *Dispatcher, channel string) *AsyncReplier {
	return &AsyncReplier{inner: inner, queue: queue, channel: channel}
}

// Reply enqueues the reply sequence.
func (r *AsyncReplier) Reply(ctx context.Context, token string, msgs ...chat.Message) error {
	run := func(ctx context.Context) error {
		return r.inner.Reply(ctx, token, msgs...)
	}
	err := r.queue.Enqueue(ctx, "reply", r.channel, run)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrQueueFull) || errors.Is(err, ErrQueueClosed) {
		logger.Warn(ctx, logger.CompSender, "send.sync_fallback",
			slog.String("endpoint", r.channel),
			slog.String("cause", err.Error()),
			slog.Int("queue_len", r.queue.QueueLen()),
		)
		return run(ctx)
	}
	return err
}
