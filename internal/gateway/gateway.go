// Package gateway defines the chat platform boundary: inbound events, the
// outbound card model and the transports that carry them.
package gateway

import (
	"context"
	"strings"

	"github.com/park285/epic-reminder-bot/internal/extract"
)

type User struct {
	ID   string
	Name string
	Bot  bool
}

// Field is one named section of an embed or card.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a structured message as posted by another bot.
type Embed struct {
	AuthorName    string
	AuthorIconURL string
	Title         string
	Description   string
	Footer        string
	Fields        []Field
}

// Event is one inbound chat message.
type Event struct {
	ID          string
	GuildID     string
	GuildName   string
	ChannelID   string
	ChannelName string
	Author      User
	Content     string
	Mentions    []User
	Embeds      []Embed
	// Edited marks a later revision of a message that was already delivered.
	Edited bool
}

// Response converts the first embed (or the plain content) into the shape
// the extraction engine reads.
func (e Event) Response() extract.Response {
	r := extract.Response{Content: e.Content}
	if len(e.Embeds) == 0 {
		return r
	}
	em := e.Embeds[0]
	r.AuthorName = em.AuthorName
	r.AuthorIconURL = em.AuthorIconURL
	r.Title = em.Title
	r.Description = em.Description
	r.Footer = em.Footer
	for _, f := range em.Fields {
		r.Fields = append(r.Fields, extract.Field{Name: f.Name, Value: f.Value})
	}
	return r
}

// Message is plain text, a card, or both.
type Message struct {
	Text string
	Card *Card
}

// Text builds a plain text message.
func Text(s string) Message { return Message{Text: s} }

// Outgoing addresses a message to a channel.
type Outgoing struct {
	ChannelID string
	Message
}

type Sender interface {
	Send(ctx context.Context, out Outgoing) error
}

// Handler receives inbound events.
type Handler func(ctx context.Context, ev Event)

// Gateway is a chat transport. Run blocks, delivering events to h until ctx
// is cancelled or the connection fails for good.
type Gateway interface {
	Sender
	Name() string
	Run(ctx context.Context, h Handler) error
}

// MentionID returns the user id in a mention token such as <@123> or <@!123>.
func MentionID(token string) (string, bool) {
	if !strings.HasPrefix(token, "<@") || !strings.HasSuffix(token, ">") {
		return "", false
	}
	id := strings.TrimPrefix(strings.TrimSuffix(token[2:], ">"), "!")
	if id == "" {
		return "", false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return id, true
}

// Mention renders a user mention.
func Mention(id string) string { return "<@!" + id + ">" }
