// Package observe watches players' game commands and the game bot's
// responses and turns them into cooldown records, statistics, group
// activity transitions and sentinel answers.
package observe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/park285/epic-reminder-bot/internal/activity"
	"github.com/park285/epic-reminder-bot/internal/cooldown"
	"github.com/park285/epic-reminder-bot/internal/domain"
	"github.com/park285/epic-reminder-bot/internal/extract"
	"github.com/park285/epic-reminder-bot/internal/gateway"
	"github.com/park285/epic-reminder-bot/internal/metrics"
	"github.com/park285/epic-reminder-bot/internal/obslog"
	"github.com/park285/epic-reminder-bot/internal/sentinel"
	"github.com/park285/epic-reminder-bot/internal/store"
	"github.com/park285/epic-reminder-bot/internal/tokenize"
)

// commandPrefix starts every game command.
const commandPrefix = "rpg"

// recentWindow is how long a player's last game command is used to type a
// single cooldown response that carries no cue of its own.
const recentWindow = 30 * time.Second

type recent struct {
	t  domain.ActionType
	at time.Time
}

type Observer struct {
	store     *store.Store
	durations *cooldown.Resolver
	groups    *activity.Coordinator
	sentinels *sentinel.Queue
	engine    *extract.Engine
	gameBotID string
	now       func() time.Time
	logger    *zap.Logger

	mu   sync.Mutex
	last map[string]recent
}

// Option configures an Observer.
type Option func(*Observer)

// WithGameBotID restricts response handling to one author id. Without it
// every bot author is treated as the game bot.
func WithGameBotID(id string) Option {
	return func(o *Observer) { o.gameBotID = strings.TrimSpace(id) }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Observer) { o.now = now }
}

func New(st *store.Store, durations *cooldown.Resolver, groups *activity.Coordinator, sentinels *sentinel.Queue, engine *extract.Engine, opts ...Option) *Observer {
	o := &Observer{
		store:     st,
		durations: durations,
		groups:    groups,
		sentinels: sentinels,
		engine:    engine,
		now:       time.Now,
		logger:    obslog.Named("observe"),
		last:      map[string]recent{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// IsGameBot reports whether u authored a game response.
func (o *Observer) IsGameBot(u gateway.User) bool {
	if o.gameBotID != "" {
		return u.ID == o.gameBotID
	}
	return u.Bot
}

// Observe routes ev to the command or response path. Messages from servers
// that are not registered and active are ignored, as are edited player
// messages. The returned messages are
// sentinel answers for the channel ev arrived in.
func (o *Observer) Observe(ctx context.Context, ev gateway.Event) ([]gateway.Message, error) {
	if ev.GuildID == "" {
		return nil, nil
	}
	srv, err := o.store.Server(ctx, ev.GuildID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !srv.Active {
		return nil, nil
	}
	if o.IsGameBot(ev.Author) {
		return o.Response(ctx, srv, ev)
	}
	if ev.Author.Bot || ev.Edited {
		return nil, nil
	}
	return nil, o.Command(ctx, srv, ev)
}

// Command handles a player's "rpg ..." message.
func (o *Observer) Command(ctx context.Context, srv *domain.Server, ev gateway.Event) error {
	tokens := tokenize.Split(tokenize.Truncate(ev.Content))
	if len(tokens) < 2 || tokens[0] != commandPrefix {
		return nil
	}
	args := tokens[1:]
	t, ok := cooldown.ResolveCommand(args)
	if !ok {
		return nil
	}
	p, err := o.player(ctx, srv, ev)
	if err != nil {
		return err
	}
	o.remember(p.ID, t)

	now := o.now().UTC()
	switch {
	case t == domain.Guild:
		if p.GuildName == nil {
			return nil
		}
		d, err := o.durations.Duration(ctx, domain.Guild, nil)
		if err != nil {
			return err
		}
		if err := o.store.SetGuildReady(ctx, *p.GuildName, now.Add(d), p.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return nil

	case t == domain.Hunt || t == domain.Adventure:
		if err := o.startHunts(ctx, p, args); err != nil {
			return err
		}
	}

	if kind, group := activity.KindFor(t, args); group {
		invitees, err := o.invitees(ctx, srv, ev, args)
		if err != nil {
			return err
		}
		if _, err := o.groups.Propose(ctx, kind, p.ID, p.Nickname, ev.ChannelID, invitees); err != nil {
			return fmt.Errorf("propose %s: %w", kind, err)
		}
		metrics.Activities.WithLabelValues(kind, "proposed").Inc()
		return nil
	}

	d, err := o.durations.Duration(ctx, t, p.Multiplier)
	if err != nil {
		return err
	}
	if err := o.store.Upsert(ctx, []domain.CooldownRecord{{PlayerID: p.ID, Type: t, ReadyAt: now.Add(d)}}); err != nil {
		return err
	}
	metrics.Cooldowns.WithLabelValues(string(t)).Inc()
	o.logger.Debug("cooldown_default",
		zap.String("player_id", p.ID),
		zap.String("type", string(t)),
		zap.Duration("duration", d))
	return nil
}

// player loads the author's profile and keeps its server, channel and
// nickname current.
func (o *Observer) player(ctx context.Context, srv *domain.Server, ev gateway.Event) (*domain.Player, error) {
	p, created, err := o.store.Player(ctx, ev.Author.ID, store.PlayerDefaults{
		ServerID:  srv.ID,
		ChannelID: ev.ChannelID,
		Nickname:  ev.Author.Name,
	})
	if err != nil {
		return nil, err
	}
	if created {
		return p, nil
	}
	changed := map[string]any{}
	if p.ServerID != srv.ID {
		changed["server_id"], p.ServerID = srv.ID, srv.ID
	}
	if p.ChannelID != ev.ChannelID {
		changed["channel_id"], p.ChannelID = ev.ChannelID, ev.ChannelID
	}
	if ev.Author.Name != "" && p.Nickname != ev.Author.Name {
		changed["nickname"], p.Nickname = ev.Author.Name, ev.Author.Name
	}
	if err := o.store.UpdatePlayer(ctx, p.ID, changed); err != nil {
		return nil, err
	}
	return p, nil
}

// startHunts opens a hunt row for the player, and for their partner when
// the command ends with "t" or "together".
func (o *Observer) startHunts(ctx context.Context, p *domain.Player, args []string) error {
	if err := o.store.StartHunt(ctx, p.ID); err != nil {
		return err
	}
	last := args[len(args)-1]
	if (last == "t" || last == "together") && p.PartnerID != nil {
		return o.store.StartHunt(ctx, *p.PartnerID)
	}
	return nil
}

// invitees resolves the mentions of a group command to player ids,
// creating profiles on first sight.
func (o *Observer) invitees(ctx context.Context, srv *domain.Server, ev gateway.Event, args []string) ([]string, error) {
	var ids []string
	for _, tok := range args {
		id, ok := gateway.MentionID(tok)
		if !ok {
			continue
		}
		name := ""
		for _, u := range ev.Mentions {
			if u.ID == id {
				name = u.Name
			}
		}
		if _, _, err := o.store.Player(ctx, id, store.PlayerDefaults{ServerID: srv.ID, ChannelID: ev.ChannelID, Nickname: name}); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (o *Observer) remember(playerID string, t domain.ActionType) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	for id, r := range o.last {
		if now.Sub(r.at) > recentWindow {
			delete(o.last, id)
		}
	}
	o.last[playerID] = recent{t: t, at: now}
}

func (o *Observer) recentCommand(playerID string) domain.ActionType {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.last[playerID]
	if !ok || o.now().Sub(r.at) > recentWindow {
		return ""
	}
	return r.t
}
