// Package chat defines the channel-neutral event and reply model shared by
// the LINE and Telegram transports and the lead dispatcher.
package chat

import "time"

// EventKind tags the inbound event variant.
type EventKind string

const (
	EventMessage  EventKind = "message"
	EventPostback EventKind = "postback"
	EventJoin     EventKind = "join"
	EventLeave    EventKind = "leave"
)

// SourceKind describes where an event originated.
type SourceKind string

const (
	SourceUser  SourceKind = "user"
	SourceGroup SourceKind = "group"
	SourceRoom  SourceKind = "room"
)

// Source identifies the conversation and the sender of an event.
type Source struct {
	Kind    SourceKind
	UserID  string
	GroupID string
	RoomID  string
}

// ChatID returns the identifier of the conversation the event belongs to.
func (s Source) ChatID() string {
	switch s.Kind {
	case SourceGroup:
		return s.GroupID
	case SourceRoom:
		return s.RoomID
	default:
		return s.UserID
	}
}

// IsGroup reports whether the event came from a group chat.
func (s Source) IsGroup() bool { return s.Kind == SourceGroup && s.GroupID != "" }

// Event is one inbound item of a webhook delivery or update stream.
// Text is set for message events, PostbackData for postback events.
type Event struct {
	ID      string
	Channel string
	Kind    EventKind
	Source  Source
	// ReplyToken is an opaque handle for sending exactly one reply sequence.
	ReplyToken   string
	Text         string
	PostbackData string
	Timestamp    time.Time
}
