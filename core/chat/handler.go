package chat

import "context"

// HandlerFunc processes a single event.
type HandlerFunc func(ctx context.Context, ev Event) error

// MiddlewareFunc decorates a HandlerFunc.
type MiddlewareFunc func(HandlerFunc) HandlerFunc

// Chain wraps h with mws; the first middleware is the outermost.
func Chain(h HandlerFunc, mws ...MiddlewareFunc) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}
