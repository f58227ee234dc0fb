// Package command parses player commands and dispatches them through an
// ordered table of handlers.
package command

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/epic-reminder-bot/internal/cooldown"
	"github.com/park285/epic-reminder-bot/internal/domain"
	"github.com/park285/epic-reminder-bot/internal/gateway"
	"github.com/park285/epic-reminder-bot/internal/obslog"
	"github.com/park285/epic-reminder-bot/internal/sentinel"
	"github.com/park285/epic-reminder-bot/internal/store"
	"github.com/park285/epic-reminder-bot/internal/tokenize"
)

// MaxRewrites bounds how many times a command may restart the chain.
const MaxRewrites = 8

// Deps are the collaborators handlers use.
type Deps struct {
	Store     *store.Store
	Durations *cooldown.Resolver
	Sentinels *sentinel.Queue
	// IsAdmin grants administrative commands by user id, in addition to
	// the player's own admin flag.
	IsAdmin func(userID string) bool
	Now     func() time.Time
	// Intn picks a random index in [0, n).
	Intn func(n int) int
}

// Pipeline dispatches tokenized commands.
type Pipeline struct {
	deps     Deps
	registry *Registry
	prefix   string
	ready    string
	logger   *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPrefix sets the command prefix. The ready listing alias is the prefix
// with its second letter replaced, "rcd" giving "rrd".
func WithPrefix(prefix string) Option {
	return func(p *Pipeline) {
		prefix = strings.ToLower(strings.TrimSpace(prefix))
		if prefix == "" {
			return
		}
		p.prefix = prefix
		p.ready = readyAlias(prefix)
	}
}

func readyAlias(prefix string) string {
	if len(prefix) < 2 {
		return ""
	}
	return prefix[:1] + "r" + prefix[2:]
}

func New(deps Deps, opts ...Option) *Pipeline {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Intn == nil {
		deps.Intn = rand.IntN
	}
	if deps.IsAdmin == nil {
		deps.IsAdmin = func(string) bool { return false }
	}
	p := &Pipeline{
		deps:   deps,
		prefix: "rcd",
		ready:  "rrd",
		logger: obslog.Named("command"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.registry = (&handlers{deps: deps}).registry()
	return p
}

// Registry exposes the dispatch table.
func (p *Pipeline) Registry() *Registry { return p.registry }

// Parse recognizes a command message and returns its tokens without the
// prefix. The ready alias becomes an "rd" invocation.
func (p *Pipeline) Parse(content string) ([]string, bool) {
	tokens := tokenize.Split(tokenize.Truncate(content))
	if len(tokens) == 0 {
		return nil, false
	}
	switch tokens[0] {
	case p.prefix:
		return tokens[1:], true
	case p.ready:
		if p.ready == "" {
			return nil, false
		}
		return append([]string{"rd"}, tokens[1:]...), true
	}
	return nil, false
}

// Dispatch runs tokens through the chain for ev and returns the replies.
// Command failures become error cards; only infrastructure failures are
// returned as errors.
func (p *Pipeline) Dispatch(ctx context.Context, ev gateway.Event, tokens []string) ([]gateway.Message, error) {
	if len(tokens) == 0 {
		tokens = []string{""}
	}
	c := &Context{Tokens: tokens, Raw: tokenize.Truncate(ev.Content), Event: ev}
	if err := p.prepare(ctx, c); err != nil {
		return nil, err
	}
	if c.Player != nil && c.Player.Banned {
		p.logger.Debug("command_ignored_banned", zap.String("player_id", c.Player.ID))
		return nil, nil
	}

	rewrites := 0
	for !c.done() {
		rewritten, err := p.runChain(ctx, c)
		if err != nil {
			return nil, err
		}
		if !rewritten {
			break
		}
		rewrites++
		if rewrites > MaxRewrites {
			p.logger.Warn("command_rewrite_limit", zap.Strings("tokens", c.Tokens))
			c.Err = errUnparsed
		}
	}
	return p.finish(ctx, c)
}

// runChain walks the table once. It reports whether a handler asked to
// restart with new tokens.
func (p *Pipeline) runChain(ctx context.Context, c *Context) (bool, error) {
	for _, cmd := range p.registry.commands {
		if c.done() {
			return false, nil
		}
		if !cmd.Matches(c) {
			continue
		}
		res, err := cmd.Handler(ctx, c)
		if err != nil {
			var cerr *Error
			if !errors.As(err, &cerr) {
				p.logger.Error("command_failed", zap.String("command", cmd.Name), zap.Strings("tokens", c.Tokens), zap.Error(err))
				return false, err
			}
			c.Err = cerr
			return false, nil
		}
		if res.declined() {
			continue
		}
		c.apply(res)
		if res.rewrite {
			return true, nil
		}
	}
	return false, nil
}

func (p *Pipeline) finish(ctx context.Context, c *Context) ([]gateway.Message, error) {
	var out []gateway.Message
	if c.Reply != nil {
		out = append(out, *c.Reply)
	}
	if c.Followup != nil {
		more, err := c.Followup(ctx)
		if err != nil {
			var cerr *Error
			if !errors.As(err, &cerr) {
				return out, err
			}
			c.Err = cerr
		}
		out = append(out, more...)
	}
	if len(out) > 0 {
		return out, nil
	}
	var cerr *Error
	if errors.As(c.Err, &cerr) && cerr.Msg != "" {
		return []gateway.Message{{Card: cerr.Card()}}, nil
	}
	return []gateway.Message{{Card: gateway.Error("`" + joinTokens(c.RawTokens()) + "` could not be parsed as a valid command.")}}, nil
}

// prepare loads the server and player. Players on servers that have not
// redeemed a join code may only ask for help or register.
func (p *Pipeline) prepare(ctx context.Context, c *Context) error {
	ev := c.Event
	if ev.GuildID != "" {
		srv, err := p.deps.Store.Server(ctx, ev.GuildID)
		switch {
		case err == nil:
			c.Server = srv
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
	}
	if c.Server == nil {
		entry := c.Entry()
		if entry != "h" && entry != "help" && entry != "register" && entry != "join" {
			c.Reply = &gateway.Message{Card: gateway.Error(
				"You can only use `help` and `register` commands until " + c.guildName() + " has used a join code.",
			)}
		}
		c.Admin = p.deps.IsAdmin(ev.Author.ID)
		return nil
	}

	player, created, err := p.deps.Store.Player(ctx, ev.Author.ID, store.PlayerDefaults{
		ServerID:  c.Server.ID,
		ChannelID: ev.ChannelID,
		Nickname:  ev.Author.Name,
	})
	if err != nil {
		return err
	}
	if !created && (player.ServerID != c.Server.ID || player.Nickname != ev.Author.Name) {
		if err := p.deps.Store.UpdatePlayer(ctx, player.ID, map[string]any{
			"server_id": c.Server.ID,
			"nickname":  ev.Author.Name,
		}); err != nil {
			return err
		}
		player.ServerID, player.Nickname = c.Server.ID, ev.Author.Name
	}
	if err := p.deps.Store.TouchChannel(ctx, ev.ChannelID, c.Server.ID, ev.ChannelName); err != nil {
		return err
	}
	c.Player = player
	c.Admin = player.Admin || p.deps.IsAdmin(ev.Author.ID)
	return nil
}

// mentioned resolves a mention token to a player on the current server,
// creating the profile on first sight.
func (h *handlers) mentioned(ctx context.Context, c *Context, token string) (*domain.Player, error) {
	id, ok := gateway.MentionID(token)
	if !ok || c.Server == nil {
		return nil, nil
	}
	p, _, err := h.deps.Store.Player(ctx, id, store.PlayerDefaults{
		ServerID:  c.Server.ID,
		ChannelID: c.Event.ChannelID,
		Nickname:  c.MentionName(id),
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}
