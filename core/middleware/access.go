package middleware

import (
	"context"

	"github.com/m3rciful/leadbot/core/chat"
)

// GroupOptions defines how group-only checks should behave.
type GroupOptions struct {
	OnReject chat.HandlerFunc
}

// GroupOnly restricts next to events that come from a group chat.
// Other events are passed to OnReject, or dropped when it is nil.
func GroupOnly(opts GroupOptions) chat.MiddlewareFunc {
	return func(next chat.HandlerFunc) chat.HandlerFunc {
		return func(ctx context.Context, ev chat.Event) error {
			if !ev.Source.IsGroup() {
				if opts.OnReject != nil {
					return opts.OnReject(ctx, ev)
				}
				return nil
			}
			return next(ctx, ev)
		}
	}
}
