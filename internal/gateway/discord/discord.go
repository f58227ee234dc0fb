// Package discord carries gateway events over a Discord bot session.
package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/park285/epic-reminder-bot/internal/gateway"
	"github.com/park285/epic-reminder-bot/internal/obslog"
)

// maxContent is the Discord message length limit.
const maxContent = 2000

var errNoToken = errors.New("discord: token is empty")

type Gateway struct {
	session *discordgo.Session
	logger  *zap.Logger
}

func New(token string) (*Gateway, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errNoToken
	}
	if !strings.HasPrefix(token, "Bot ") {
		token = "Bot " + token
	}
	s, err := discordgo.New(token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent
	return &Gateway{session: s, logger: obslog.Named("discord")}, nil
}

func (g *Gateway) Name() string { return "discord" }

// Run opens the session and delivers every guild message, and every edit of
// one, to h until ctx is cancelled. discordgo calls handlers on their own goroutines.
func (g *Gateway) Run(ctx context.Context, h gateway.Handler) error {
	remove := g.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Message == nil || m.Author == nil {
			return
		}
		if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
			return
		}
		h(ctx, g.event(m.Message))
	})
	defer remove()
	removeEdit := g.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageUpdate) {
		if m.Message == nil || m.Author == nil {
			return
		}
		if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
			return
		}
		ev := g.event(m.Message)
		ev.Edited = true
		h(ctx, ev)
	})
	defer removeEdit()
	g.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		g.logger.Info("discord_ready", zap.String("user", r.User.Username), zap.Int("guilds", len(r.Guilds)))
	})

	if err := g.session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	<-ctx.Done()
	if err := g.session.Close(); err != nil {
		g.logger.Warn("discord_close_error", zap.Error(err))
	}
	return nil
}

// Send posts text and, when present, the card as one embed.
func (g *Gateway) Send(ctx context.Context, out gateway.Outgoing) error {
	msg := Render(out.Message)
	if msg.Content == "" && len(msg.Embeds) == 0 {
		return nil
	}
	if _, err := g.session.ChannelMessageSendComplex(out.ChannelID, msg, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord send to %s: %w", out.ChannelID, err)
	}
	return nil
}

func (g *Gateway) event(m *discordgo.Message) gateway.Event {
	ev := Event(m)
	if g.session.State == nil || ev.GuildID == "" {
		return ev
	}
	if guild, err := g.session.State.Guild(ev.GuildID); err == nil {
		ev.GuildName = guild.Name
	}
	if ch, err := g.session.State.Channel(ev.ChannelID); err == nil {
		ev.ChannelName = ch.Name
	}
	return ev
}

// Event converts a Discord message.
func Event(m *discordgo.Message) gateway.Event {
	ev := gateway.Event{
		ID:        m.ID,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
	}
	if m.Author != nil {
		ev.Author = user(m.Author)
	}
	for _, u := range m.Mentions {
		if u != nil {
			ev.Mentions = append(ev.Mentions, user(u))
		}
	}
	for _, e := range m.Embeds {
		if e != nil {
			ev.Embeds = append(ev.Embeds, embed(e))
		}
	}
	return ev
}

func user(u *discordgo.User) gateway.User {
	return gateway.User{ID: u.ID, Name: u.Username, Bot: u.Bot}
}

func embed(e *discordgo.MessageEmbed) gateway.Embed {
	out := gateway.Embed{Title: e.Title, Description: e.Description}
	if e.Author != nil {
		out.AuthorName = e.Author.Name
		out.AuthorIconURL = e.Author.IconURL
	}
	if e.Footer != nil {
		out.Footer = e.Footer.Text
	}
	for _, f := range e.Fields {
		if f != nil {
			out.Fields = append(out.Fields, gateway.Field{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
	}
	return out
}

// Render builds the Discord payload for m.
func Render(m gateway.Message) *discordgo.MessageSend {
	out := &discordgo.MessageSend{Content: truncate(m.Text)}
	if c := m.Card; c != nil {
		e := &discordgo.MessageEmbed{
			Title:       c.Title,
			Description: c.Body,
			Color:       c.Severity.Accent(),
		}
		if c.Footer != "" {
			e.Footer = &discordgo.MessageEmbedFooter{Text: c.Footer}
		}
		for _, f := range c.Fields {
			e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		out.Embeds = []*discordgo.MessageEmbed{e}
	}
	return out
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxContent {
		return s
	}
	return string(r[:maxContent-1]) + "…"
}
