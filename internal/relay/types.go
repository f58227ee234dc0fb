package relay

import (
	"github.com/park285/epic-reminder-bot/internal/gateway"
)

// WebSocketState is the connection state of the relay stream.
type WebSocketState int

const (
	WSStateDisconnected WebSocketState = iota
	WSStateConnecting
	WSStateConnected
	WSStateReconnecting
	WSStateFailed
)

func (s WebSocketState) String() string {
	switch s {
	case WSStateConnecting:
		return "connecting"
	case WSStateConnected:
		return "connected"
	case WSStateReconnecting:
		return "reconnecting"
	case WSStateFailed:
		return "failed"
	}
	return "disconnected"
}

// Config is the relay's self description served at /config.
type Config struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Platform    string `json:"platform"`
	MessageRate int    `json:"message_rate"`
}

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Bot  bool   `json:"bot,omitempty"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type Embed struct {
	AuthorName    string  `json:"author_name,omitempty"`
	AuthorIconURL string  `json:"author_icon_url,omitempty"`
	Title         string  `json:"title,omitempty"`
	Description   string  `json:"description,omitempty"`
	Footer        string  `json:"footer,omitempty"`
	Color         int     `json:"color,omitempty"`
	Fields        []Field `json:"fields,omitempty"`
}

// Message is one inbound chat message on the stream.
type Message struct {
	ID        string  `json:"id"`
	Guild     string  `json:"guild"`
	GuildName string  `json:"guild_name,omitempty"`
	Room      string  `json:"room"`
	RoomName  string  `json:"room_name,omitempty"`
	Sender    *User   `json:"sender,omitempty"`
	Msg       string  `json:"msg"`
	Mentions  []User  `json:"mentions,omitempty"`
	Embeds    []Embed `json:"embeds,omitempty"`
}

// ReplyRequest posts a text or card reply to a room.
type ReplyRequest struct {
	Type string `json:"type"`
	Room string `json:"room"`
	Data string `json:"data"`
	Card *Embed `json:"card,omitempty"`
}

// Event converts m to a gateway event.
func (m *Message) Event() gateway.Event {
	ev := gateway.Event{
		ID:          m.ID,
		GuildID:     m.Guild,
		GuildName:   m.GuildName,
		ChannelID:   m.Room,
		ChannelName: m.RoomName,
		Content:     m.Msg,
	}
	if m.Sender != nil {
		ev.Author = gateway.User(*m.Sender)
	}
	for _, u := range m.Mentions {
		ev.Mentions = append(ev.Mentions, gateway.User(u))
	}
	for _, e := range m.Embeds {
		out := gateway.Embed{
			AuthorName:    e.AuthorName,
			AuthorIconURL: e.AuthorIconURL,
			Title:         e.Title,
			Description:   e.Description,
			Footer:        e.Footer,
		}
		for _, f := range e.Fields {
			out.Fields = append(out.Fields, gateway.Field(f))
		}
		ev.Embeds = append(ev.Embeds, out)
	}
	return ev
}

// NewReply builds the reply payload for out. Cards travel both as a
// structured embed and as plain text for relays that cannot render them.
func NewReply(out gateway.Outgoing) ReplyRequest {
	req := ReplyRequest{Type: "text", Room: out.ChannelID, Data: out.Text}
	c := out.Card
	if c == nil {
		return req
	}
	req.Type = "card"
	if req.Data != "" {
		req.Data += "\n"
	}
	req.Data += c.Plain()
	e := &Embed{Title: c.Title, Description: c.Body, Footer: c.Footer, Color: c.Severity.Accent()}
	for _, f := range c.Fields {
		e.Fields = append(e.Fields, Field(f))
	}
	req.Card = e
	return req
}
