// Package bot assembles the reminder bot from its parts and runs it.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/park285/epic-reminder-bot/internal/activity"
	"github.com/park285/epic-reminder-bot/internal/command"
	"github.com/park285/epic-reminder-bot/internal/config"
	"github.com/park285/epic-reminder-bot/internal/cooldown"
	"github.com/park285/epic-reminder-bot/internal/crafting"
	"github.com/park285/epic-reminder-bot/internal/extract"
	"github.com/park285/epic-reminder-bot/internal/gateway"
	"github.com/park285/epic-reminder-bot/internal/gateway/discord"
	"github.com/park285/epic-reminder-bot/internal/metrics"
	"github.com/park285/epic-reminder-bot/internal/msgcat"
	"github.com/park285/epic-reminder-bot/internal/observe"
	"github.com/park285/epic-reminder-bot/internal/obslog"
	"github.com/park285/epic-reminder-bot/internal/opsserver"
	"github.com/park285/epic-reminder-bot/internal/relay"
	"github.com/park285/epic-reminder-bot/internal/scheduler"
	"github.com/park285/epic-reminder-bot/internal/sentinel"
	"github.com/park285/epic-reminder-bot/internal/store"
)

type Bot struct {
	cfg       *config.AppConfig
	gw        gateway.Gateway
	sender    gateway.Sender
	store     *store.Store
	rdb       *redis.Client
	pipeline  *command.Pipeline
	observer  *observe.Observer
	scheduler *scheduler.Scheduler
	overlays  *cooldown.OverlayFile
	ops       *opsserver.Server
	handlers  *errgroup.Group
	logger    *zap.Logger
}

// Option adjusts a Bot under construction.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces the time source of every component.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New wires the components around an open database, redis client and
// gateway.
func New(cfg *config.AppConfig, gw gateway.Gateway, db *gorm.DB, rdb *redis.Client, opts ...Option) (*Bot, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.MsgcatDir != "" {
		cat, err := msgcat.New(cfg.MsgcatDir)
		if err != nil {
			return nil, fmt.Errorf("message catalog: %w", err)
		}
		msgcat.Use(cat)
	}

	st := store.New(db)
	b := &Bot{
		cfg:    cfg,
		gw:     gw,
		sender: gateway.NewLimited(gw, cfg.SendRate, cfg.SendBurst),
		store:  st,
		rdb:    rdb,
		logger: obslog.Named("bot"),
	}

	var file cooldown.OverlaySource
	if cfg.EventsFile != "" {
		f, err := cooldown.OpenOverlayFile(cfg.EventsFile)
		if err != nil {
			return nil, fmt.Errorf("events file: %w", err)
		}
		b.overlays, file = f, f
	}
	durations := cooldown.NewResolver(st, file).WithClock(o.now)

	var craft crafting.Service = crafting.Unavailable{}
	if cfg.CraftingURL != "" {
		craft = crafting.NewClient(cfg.CraftingURL)
	}
	sentinels := sentinel.New(st, craft)

	groups := activity.NewCoordinator(rdb, st, durations).
		WithStaleAfter(cfg.ActivityStaleAfter).
		WithClock(o.now)

	b.pipeline = command.New(command.Deps{
		Store:     st,
		Durations: durations,
		Sentinels: sentinels,
		IsAdmin:   cfg.IsAdmin,
		Now:       o.now,
	}, command.WithPrefix(cfg.CommandPrefix))

	b.observer = observe.New(st, durations, groups, sentinels, extract.New().WithClock(o.now),
		observe.WithGameBotID(cfg.GameBotID),
		observe.WithClock(o.now))

	b.scheduler = scheduler.New(st, groups, b.sender,
		scheduler.WithInterval(cfg.SchedulerInterval),
		scheduler.WithClock(o.now))

	if cfg.OpsAddr != "" {
		b.ops = opsserver.New(cfg.OpsAddr, b.checks())
	}

	b.handlers = &errgroup.Group{}
	b.handlers.SetLimit(max(cfg.HandlerWorkers, 1))
	return b, nil
}

func (b *Bot) checks() map[string]opsserver.Check {
	return map[string]opsserver.Check{
		"database": func(context.Context) error { return b.store.Ping() },
		"redis":    func(ctx context.Context) error { return b.rdb.Ping(ctx).Err() },
	}
}

// Run blocks until ctx is cancelled or a component fails for good. Event
// handlers still in flight are waited for before returning.
func (b *Bot) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.gw.Run(ctx, b.Dispatch) })
	g.Go(func() error { return b.scheduler.Run(ctx) })
	if b.overlays != nil {
		g.Go(func() error { return b.overlays.Watch(ctx) })
	}
	if b.ops != nil {
		g.Go(func() error { return b.ops.Run(ctx) })
	}
	b.logger.Info("bot_start",
		zap.String("gateway", b.gw.Name()),
		zap.String("prefix", b.cfg.CommandPrefix),
		zap.Int("workers", b.cfg.HandlerWorkers))

	err := g.Wait()
	_ = b.handlers.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Dispatch queues ev on the handler pool. It blocks while every worker is
// busy.
func (b *Bot) Dispatch(ctx context.Context, ev gateway.Event) {
	b.handlers.Go(func() error {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("handler_panic", zap.Any("panic", r), zap.String("channel_id", ev.ChannelID))
			}
		}()
		b.Handle(ctx, ev)
		return nil
	})
}

// Handle processes one event synchronously: a bot command goes through the
// pipeline, anything else is observed. Edits never run commands.
func (b *Bot) Handle(ctx context.Context, ev gateway.Event) {
	if !b.cfg.ChannelAllowed(ev.ChannelID) {
		return
	}

	if !ev.Author.Bot && !ev.Edited {
		if tokens, ok := b.pipeline.Parse(ev.Content); ok {
			out, err := b.pipeline.Dispatch(ctx, ev, tokens)
			if err != nil {
				metrics.Commands.WithLabelValues("error").Inc()
				b.logger.Error("command_error", zap.String("channel_id", ev.ChannelID), zap.Strings("tokens", tokens), zap.Error(err))
				if len(out) == 0 {
					out = []gateway.Message{{Card: gateway.Error(msgcat.T("errors.internal", nil))}}
				}
			} else {
				metrics.Commands.WithLabelValues("ok").Inc()
			}
			b.reply(ctx, ev.ChannelID, out)
			return
		}
	}

	out, err := b.observer.Observe(ctx, ev)
	if err != nil {
		b.logger.Error("observe_error", zap.String("channel_id", ev.ChannelID), zap.String("author_id", ev.Author.ID), zap.Error(err))
	}
	b.reply(ctx, ev.ChannelID, out)
}

func (b *Bot) reply(ctx context.Context, channelID string, msgs []gateway.Message) {
	for _, m := range msgs {
		if err := b.sender.Send(ctx, gateway.Outgoing{ChannelID: channelID, Message: m}); err != nil {
			metrics.SendFailures.Inc()
			b.logger.Warn("reply_send_error", zap.String("channel_id", channelID), zap.Error(err))
		}
	}
}

// Scheduler exposes the reminder loop, mainly for one-shot ticks.
func (b *Bot) Scheduler() *scheduler.Scheduler { return b.scheduler }

// OpenGateway builds the transport named by cfg.Gateway.
func OpenGateway(cfg *config.AppConfig) (gateway.Gateway, error) {
	switch cfg.Gateway {
	case config.GatewayDiscord:
		return discord.New(cfg.DiscordToken)
	case config.GatewayRelay:
		return relay.NewGateway(relay.GatewayConfig{
			BaseURL:   cfg.RelayBaseURL,
			WSURL:     cfg.RelayWSURL,
			Transport: cfg.RelayTransport,
			DryRun:    cfg.RelayDryRun,
			Headers:   relay.IdentityHeaders(cfg.XUserID, cfg.XUserEmail, cfg.XSessionID),
		}), nil
	}
	return nil, fmt.Errorf("unknown gateway %q", cfg.Gateway)
}

// OpenRedis parses url and verifies the server answers.
func OpenRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
