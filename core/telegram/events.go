package telegram

import (
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/chat"
)

// ChannelName labels events and log lines produced by this transport.
const ChannelName = "telegram"

func formatID(id int64) string { return strconv.FormatInt(id, 10) }

func sourceOf(c *tele.Chat, sender *tele.User) chat.Source {
	src := chat.Source{Kind: chat.SourceUser}
	if sender != nil {
		src.UserID = formatID(sender.ID)
	}
	if c == nil {
		return src
	}
	switch c.Type {
	case tele.ChatGroup, tele.ChatSuperGroup:
		src.Kind = chat.SourceGroup
		src.GroupID = formatID(c.ID)
	case tele.ChatChannel, tele.ChatChannelPrivate:
		src.Kind = chat.SourceRoom
		src.RoomID = formatID(c.ID)
	default:
		if src.UserID == "" {
			src.UserID = formatID(c.ID)
		}
	}
	return src
}

// The chat id doubles as the reply token: Telegram has no single-use tokens.
func baseEvent(u tele.Update, kind chat.EventKind, c *tele.Chat, sender *tele.User, unix int64) chat.Event {
	ev := chat.Event{
		ID:      formatID(int64(u.ID)),
		Channel: ChannelName,
		Kind:    kind,
		Source:  sourceOf(c, sender),
	}
	if c != nil {
		ev.ReplyToken = formatID(c.ID)
	}
	if unix > 0 {
		ev.Timestamp = time.Unix(unix, 0)
	}
	return ev
}

func messageEvent(u tele.Update) (chat.Event, bool) {
	m := u.Message
	if m == nil || strings.TrimSpace(m.Text) == "" {
		return chat.Event{}, false
	}
	ev := baseEvent(u, chat.EventMessage, m.Chat, m.Sender, m.Unixtime)
	ev.Text = m.Text
	return ev, true
}

func callbackEvent(u tele.Update) (chat.Event, bool) {
	cb := u.Callback
	if cb == nil || cb.Data == "" {
		return chat.Event{}, false
	}
	var c *tele.Chat
	var unix int64
	if cb.Message != nil {
		c = cb.Message.Chat
		unix = cb.Message.Unixtime
	}
	ev := baseEvent(u, chat.EventPostback, c, cb.Sender, unix)
	ev.PostbackData = strings.TrimPrefix(cb.Data, "\f")
	return ev, true
}

func joinEvent(u tele.Update) (chat.Event, bool) {
	m := u.Message
	if m == nil || m.Chat == nil {
		return chat.Event{}, false
	}
	return baseEvent(u, chat.EventJoin, m.Chat, m.Sender, m.Unixtime), true
}

func displayName(u *tele.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}

func chatDisplayName(c *tele.Chat) string {
	if c == nil {
		return ""
	}
	if c.Title != "" {
		return c.Title
	}
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name == "" {
		name = c.Username
	}
	return name
}
