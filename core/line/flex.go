package line

import (
	"github.com/m3rciful/leadbot/core/chat"
)

// Flex palette.
const (
	colorPrimary = "#1DB446"
	colorLabel   = "#555555"
	colorValue   = "#111111"
	colorNote    = "#aaaaaa"
)

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type flexMessage struct {
	Type     string     `json:"type"`
	AltText  string     `json:"altText"`
	Contents flexBubble `json:"contents"`
}

type flexBubble struct {
	Type   string   `json:"type"`
	Header *flexBox `json:"header,omitempty"`
	Body   flexBox  `json:"body"`
	Footer *flexBox `json:"footer,omitempty"`
}

type flexBox struct {
	Type     string `json:"type"`
	Layout   string `json:"layout"`
	Spacing  string `json:"spacing,omitempty"`
	Margin   string `json:"margin,omitempty"`
	Contents []any  `json:"contents"`
}

type flexText struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	Size   string `json:"size,omitempty"`
	Color  string `json:"color,omitempty"`
	Weight string `json:"weight,omitempty"`
	Flex   int    `json:"flex,omitempty"`
	Wrap   bool   `json:"wrap,omitempty"`
}

type flexButton struct {
	Type   string         `json:"type"`
	Style  string         `json:"style"`
	Height string         `json:"height,omitempty"`
	Action postbackAction `json:"action"`
}

type postbackAction struct {
	Type        string `json:"type"`
	Label       string `json:"label"`
	Data        string `json:"data"`
	DisplayText string `json:"displayText,omitempty"`
}

func renderMessage(m chat.Message) any {
	if m.Card == nil {
		return textMessage{Type: "text", Text: m.Text}
	}
	return renderCard(*m.Card)
}

func renderCard(c chat.Card) flexMessage {
	alt := c.AltText
	if alt == "" {
		alt = c.Title
	}
	bubble := flexBubble{Type: "bubble"}
	if c.Title != "" {
		bubble.Header = &flexBox{
			Type:   "box",
			Layout: "vertical",
			Contents: []any{
				flexText{Type: "text", Text: c.Title, Weight: "bold", Size: "lg", Color: colorPrimary, Wrap: true},
			},
		}
	}

	rows := make([]any, 0, len(c.Fields)+1)
	for _, f := range c.Fields {
		rows = append(rows, flexBox{
			Type:    "box",
			Layout:  "horizontal",
			Spacing: "sm",
			Contents: []any{
				flexText{Type: "text", Text: nonEmpty(f.Label), Size: "sm", Color: colorLabel, Flex: 2},
				flexText{Type: "text", Text: nonEmpty(f.Value), Size: "sm", Color: colorValue, Flex: 4, Wrap: true},
			},
		})
	}
	if c.Note != "" {
		rows = append(rows, flexText{Type: "text", Text: c.Note, Size: "xs", Color: colorNote, Wrap: true})
	}
	bubble.Body = flexBox{Type: "box", Layout: "vertical", Spacing: "sm", Contents: rows}

	if len(c.Buttons) > 0 {
		buttons := make([]any, 0, len(c.Buttons))
		for _, b := range c.Buttons {
			style := string(b.Style)
			if style == "" {
				style = string(chat.ButtonSecondary)
			}
			buttons = append(buttons, flexButton{
				Type:   "button",
				Style:  style,
				Height: "sm",
				Action: postbackAction{Type: "postback", Label: b.Label, Data: b.Data, DisplayText: b.Label},
			})
		}
		bubble.Footer = &flexBox{Type: "box", Layout: "vertical", Spacing: "sm", Contents: buttons}
	}

	return flexMessage{Type: "flex", AltText: alt, Contents: bubble}
}

// Flex text components reject empty strings.
func nonEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
