package command

import (
	"context"
	"strings"

	"github.com/park285/epic-reminder-bot/internal/domain"
	"github.com/park285/epic-reminder-bot/internal/gateway"
	"github.com/park285/epic-reminder-bot/internal/tokenize"
)

// Followup is work deferred until the chain has finished, such as a slow
// statistics query.
type Followup func(ctx context.Context) ([]gateway.Message, error)

// Context is threaded through the command chain. Reply, Err and Followup
// are the short-circuit signals: once one is set no further command runs.
type Context struct {
	Tokens []string
	// Raw is the truncated message text with its original case.
	Raw    string
	Event  gateway.Event
	Player *domain.Player
	Server *domain.Server
	Admin  bool
	Help   bool

	Reply    *gateway.Message
	Err      error
	Followup Followup
}

func (c *Context) done() bool { return c.Reply != nil || c.Err != nil || c.Followup != nil }

// Entry is the first token, empty when there are none.
func (c *Context) Entry() string {
	if len(c.Tokens) == 0 {
		return ""
	}
	return c.Tokens[0]
}

// Last is the final token.
func (c *Context) Last() string {
	if len(c.Tokens) == 0 {
		return ""
	}
	return c.Tokens[len(c.Tokens)-1]
}

// RawTokens splits Raw keeping case, for arguments such as time zone names.
func (c *Context) RawTokens() []string { return tokenize.SplitPreserveCase(c.Raw) }

// AuthorName is the display name of the invoking user.
func (c *Context) AuthorName() string { return c.Event.Author.Name }

// MentionName returns the display name of a user mentioned in the message.
func (c *Context) MentionName(id string) string {
	for _, u := range c.Event.Mentions {
		if u.ID == id {
			return u.Name
		}
	}
	return ""
}

func (c *Context) guildName() string {
	if c.Server != nil && c.Server.Name != "" {
		return c.Server.Name
	}
	if c.Event.GuildName != "" {
		return c.Event.GuildName
	}
	return "this server"
}

// Result is what a handler returns. The zero Result declines, leaving the
// context unchanged so the next command is tried.
type Result struct {
	Reply    *gateway.Message
	Followup Followup

	rewrite bool
	help    bool
	tokens  []string
}

// Reply answers with a card.
func Reply(card *gateway.Card) Result { return Result{Reply: &gateway.Message{Card: card}} }

// Rewrite restarts the chain from the top with tokens.
func Rewrite(tokens []string) Result {
	return Result{rewrite: true, tokens: append([]string(nil), tokens...)}
}

// RewriteHelp restarts the chain with tokens and the help flag set.
func RewriteHelp(tokens []string) Result {
	r := Rewrite(tokens)
	r.help = true
	return r
}

// Later defers work until after the chain.
func Later(f Followup) Result { return Result{Followup: f} }

func (r Result) declined() bool { return r.Reply == nil && r.Followup == nil && !r.rewrite }

func (c *Context) apply(r Result) {
	if r.Reply != nil {
		c.Reply = r.Reply
	}
	if r.Followup != nil {
		c.Followup = r.Followup
	}
	if r.help {
		c.Help = true
	}
	if r.rewrite {
		c.Tokens = r.tokens
		if len(c.Tokens) == 0 {
			c.Tokens = []string{""}
		}
	}
}

func joinTokens(tokens []string) string { return strings.Join(tokens, " ") }
