package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/leadbot/core/chat"
	"github.com/m3rciful/leadbot/core/logger"
)

// Recover catches panics in handlers and turns them into errors so one bad
// event cannot take down the batch or the process.
func Recover(next chat.HandlerFunc) chat.HandlerFunc {
	return func(ctx context.Context, ev chat.Event) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(ctx, logger.CompRouter, "handler.panic",
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return next(ctx, ev)
	}
}
