package chat

// Message is one outbound reply item: plain text or a card.
type Message struct {
	Text string `json:"text,omitempty"`
	Card *Card  `json:"card,omitempty"`
}

// Text builds a plain text message.
func Text(s string) Message { return Message{Text: s} }

// CardMessage wraps a card into a message.
func CardMessage(c Card) Message { return Message{Card: &c} }

// ButtonStyle hints how a button should be emphasised.
type ButtonStyle string

const (
	ButtonPrimary   ButtonStyle = "primary"
	ButtonSecondary ButtonStyle = "secondary"
)

// Card is a structured reply: a title, labelled fields and postback buttons.
// Transports decide the visual layout.
type Card struct {
	AltText string   `json:"alt_text"`
	Title   string   `json:"title"`
	Fields  []Field  `json:"fields,omitempty"`
	Note    string   `json:"note,omitempty"`
	Buttons []Button `json:"buttons,omitempty"`
}

// Field is a label/value row.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Button triggers a postback event carrying Data when pressed.
type Button struct {
	Label string      `json:"label"`
	Data  string      `json:"data"`
	Style ButtonStyle `json:"style,omitempty"`
}

// Value returns the value of the field with the given label.
func (c Card) Value(label string) (string, bool) {
	for _, f := range c.Fields {
		if f.Label == label {
			return f.Value, true
		}
	}
	return "", false
}
