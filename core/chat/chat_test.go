package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestChainOrder(t *testing.T) {
	var trace []string
	mw := func(name string) MiddlewareFunc {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, ev Event) error {
				trace = append(trace, name)
				return next(ctx, ev)
			}
		}
	}
	h := Chain(func(context.Context, Event) error {
		trace = append(trace, "handler")
		return nil
	}, mw("outer"), nil, mw("inner"))

	if err := h(context.Background(), Event{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(trace, ","); got != "outer,inner,handler" {
		t.Fatalf("unexpected order %s", got)
	}
}

func TestUnavailableWrapsCause(t *testing.T) {
	cause := errors.New("http 500")
	err := Unavailable("profile", cause)
	if !errors.Is(err, ErrUnavailable) || !errors.Is(err, cause) {
		t.Fatalf("expected both sentinels to match: %v", err)
	}
	if !errors.Is(Unavailable("summary", nil), ErrUnavailable) {
		t.Fatalf("nil cause should still be unavailable")
	}
}

func TestSourceChatID(t *testing.T) {
	cases := []struct {
		src  Source
		want string
	}{
		{Source{Kind: SourceUser, UserID: "U1"}, "U1"},
		{Source{Kind: SourceGroup, UserID: "U1", GroupID: "C1"}, "C1"},
		{Source{Kind: SourceRoom, UserID: "U1", RoomID: "R1"}, "R1"},
	}
	for _, tc := range cases {
		if got := tc.src.ChatID(); got != tc.want {
			t.Fatalf("ChatID(%+v) = %s, want %s", tc.src, got, tc.want)
		}
	}
}
