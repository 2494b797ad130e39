package telegram

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/leadbot/core/chat"
)

// maxCallbackData is the Telegram limit for inline button payloads.
const maxCallbackData = 64

// renderCard lays a card out as plain text lines.
func renderCard(c *chat.Card) string {
	var b strings.Builder
	if c.Title != "" {
		b.WriteString(c.Title)
		b.WriteString("\n")
	}
	for _, f := range c.Fields {
		value := f.Value
		if value == "" {
			value = "-"
		}
		b.WriteString(f.Label)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\n")
	}
	if c.Note != "" {
		b.WriteString("\n")
		b.WriteString(c.Note)
	}
	out := strings.TrimRight(b.String(), "\n")
	if out == "" {
		out = c.AltText
	}
	return out
}

// cardMarkup places each button on its own row. Raw payloads are used so the
// callback data equals the postback data of the card.
func cardMarkup(c *chat.Card) *tele.ReplyMarkup {
	if c == nil || len(c.Buttons) == 0 {
		return nil
	}
	rows := make([][]tele.InlineButton, 0, len(c.Buttons))
	for _, btn := range c.Buttons {
		if btn.Data == "" || len(btn.Data) > maxCallbackData {
			continue
		}
		rows = append(rows, []tele.InlineButton{{Text: btn.Label, Data: btn.Data}})
	}
	if len(rows) == 0 {
		return nil
	}
	return &tele.ReplyMarkup{InlineKeyboard: rows}
}

func renderMessage(m chat.Message) (string, *tele.SendOptions) {
	if m.Card == nil {
		return m.Text, nil
	}
	opts := &tele.SendOptions{}
	if mk := cardMarkup(m.Card); mk != nil {
		opts.ReplyMarkup = mk
	}
	return renderCard(m.Card), opts
}
