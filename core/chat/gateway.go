package chat

import (
	"context"
	"errors"
)

// ErrUnavailable marks a lookup that could not produce a result.
// Callers pick their own fallback (for example "Unknown").
var ErrUnavailable = errors.New("chat: lookup unavailable")

// Profile is the public profile of a chat user.
type Profile struct {
	UserID      string
	DisplayName string
}

// GroupSummary describes a group chat.
type GroupSummary struct {
	GroupID     string
	Name        string
	MemberCount int
}

// ProfileLookup resolves names for users and groups.
type ProfileLookup interface {
	Profile(ctx context.Context, userID string) (Profile, error)
	GroupMemberProfile(ctx context.Context, groupID, userID string) (Profile, error)
	GroupSummary(ctx context.Context, groupID string) (GroupSummary, error)
}

// Replier sends the reply sequence of one event.
type Replier interface {
	Reply(ctx context.Context, replyToken string, msgs ...Message) error
}

// Gateway is the outbound side of a chat channel.
type Gateway interface {
	ProfileLookup
	Replier
}

// Unavailable wraps err so that errors.Is(err, ErrUnavailable) holds.
func Unavailable(op string, err error) error {
	if err == nil {
		return &lookupError{op: op, err: ErrUnavailable}
	}
	return &lookupError{op: op, err: err}
}

type lookupError struct {
	op  string
	err error
}

func (e *lookupError) Error() string { return e.op + ": " + e.err.Error() }

func (e *lookupError) Unwrap() []error { return []error{ErrUnavailable, e.err} }
