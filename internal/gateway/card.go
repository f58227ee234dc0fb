package gateway

import "strings"

// Severity selects the accent color and default title of a card.
type Severity int

const (
	SeverityDefault Severity = iota
	SeverityInfo
	SeverityError
	SeverityHelp
	SeveritySuccess
)

var accents = map[Severity]int{
	SeverityDefault: 0x8C8A89,
	SeverityInfo:    0x4381CC,
	SeverityError:   0xEB4034,
	SeverityHelp:    0xD703FC,
	SeveritySuccess: 0x628F47,
}

// Accent returns the card color for s.
func (s Severity) Accent() int {
	if c, ok := accents[s]; ok {
		return c
	}
	return accents[SeverityDefault]
}

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityError:
		return "error"
	case SeverityHelp:
		return "help"
	case SeveritySuccess:
		return "success"
	}
	return "default"
}

// Card is a structured outbound message.
type Card struct {
	Severity Severity
	Title    string
	Body     string
	Footer   string
	Fields   []Field
}

func Info(body, title string) *Card { return &Card{Severity: SeverityInfo, Title: title, Body: body} }
func Success(body, title string) *Card {
	return &Card{Severity: SeveritySuccess, Title: title, Body: body}
}

// Error builds an error card titled "Error".
func Error(body string) *Card { return &Card{Severity: SeverityError, Title: "Error", Body: body} }

// Help builds a help card titled "Help".
func Help(body string) *Card { return &Card{Severity: SeverityHelp, Title: "Help", Body: body} }

// Plain renders the card as text for transports without rich embeds.
func (c *Card) Plain() string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	if c.Title != "" {
		b.WriteString("[" + c.Title + "]\n")
	}
	b.WriteString(c.Body)
	for _, f := range c.Fields {
		b.WriteString("\n\n" + f.Name + "\n" + f.Value)
	}
	if c.Footer != "" {
		b.WriteString("\n\n" + c.Footer)
	}
	return strings.TrimSpace(b.String())
}
