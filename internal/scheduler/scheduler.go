// Package scheduler delivers due reminders on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/park285/epic-reminder-bot/internal/cooldown"
	"github.com/park285/epic-reminder-bot/internal/domain"
	"github.com/park285/epic-reminder-bot/internal/gateway"
	"github.com/park285/epic-reminder-bot/internal/metrics"
	"github.com/park285/epic-reminder-bot/internal/msgcat"
	"github.com/park285/epic-reminder-bot/internal/obslog"
	"github.com/park285/epic-reminder-bot/internal/store"
)

// Defaults.
const (
	DefaultInterval = 5 * time.Second
	DefaultWorkers  = 4
)

// Store is the part of the persistence layer the scheduler reads and
// clears.
type Store interface {
	Due(ctx context.Context, t domain.ActionType, asOf time.Time) ([]store.DueReminder, error)
	DueGuilds(ctx context.Context, asOf time.Time) ([]store.GuildReminder, error)
	EvictIDs(ctx context.Context, ids []uint) error
	ClearGuildReady(ctx context.Context, asOf time.Time) error
	PurgeBefore(ctx context.Context, asOf time.Time) (int64, error)
}

// Sweeper drops stale group activities.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type Scheduler struct {
	store    Store
	sweeper  Sweeper
	sender   gateway.Sender
	interval time.Duration
	workers  int
	now      func() time.Time
	logger   *zap.Logger
}

type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithWorkers bounds concurrent sends per tick.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New builds a scheduler. sweeper may be nil.
func New(st Store, sweeper Sweeper, sender gateway.Sender, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:    st,
		sweeper:  sweeper,
		sender:   sender,
		interval: DefaultInterval,
		workers:  DefaultWorkers,
		now:      time.Now,
		logger:   obslog.Named("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run ticks until ctx is cancelled. Tick failures are logged and the loop
// continues.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler_start", zap.Duration("interval", s.interval))
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler_stop")
			return nil
		case <-t.C:
			start := time.Now()
			s.safeTick(ctx)
			metrics.TickDuration.Observe(time.Since(start).Seconds())
		}
	}
}

// safeTick runs one tick. Errors and panics are logged and counted so the
// next tick still runs.
func (s *Scheduler) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			metrics.TickErrors.Inc()
			s.logger.Error("scheduler_tick_panic", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	if err := s.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
		metrics.TickErrors.Inc()
		s.logger.Error("scheduler_tick_error", zap.Error(err))
	}
}

type reminder struct {
	out gateway.Outgoing
	typ domain.ActionType
}

// Tick sweeps stale activities, sends every due reminder once and clears
// what it sent. Rows are cleared even when a send fails.
func (s *Scheduler) Tick(ctx context.Context) error {
	if s.sweeper != nil {
		if n, err := s.sweeper.Sweep(ctx); err != nil {
			s.logger.Warn("activity_sweep_error", zap.Error(err))
		} else if n > 0 {
			metrics.Activities.WithLabelValues("any", "swept").Add(float64(n))
		}
	}

	asOf := s.now().UTC()
	var (
		batch []reminder
		fired []uint
	)
	for _, t := range domain.ActionTypes {
		if t == domain.Guild {
			continue
		}
		due, err := s.store.Due(ctx, t, asOf)
		if err != nil {
			return err
		}
		for _, d := range due {
			fired = append(fired, d.ID)
			batch = append(batch, reminder{typ: t, out: gateway.Outgoing{
				ChannelID: d.ChannelID,
				Message:   gateway.Text(CooldownText(d.PlayerID, t)),
			}})
		}
	}
	guilds, err := s.store.DueGuilds(ctx, asOf)
	if err != nil {
		return err
	}
	for _, g := range guilds {
		batch = append(batch, reminder{typ: domain.Guild, out: gateway.Outgoing{
			ChannelID: g.ChannelID,
			Message:   gateway.Text(GuildText(g.PlayerID, g.DibbsPlayerID)),
		}})
	}

	s.send(ctx, batch)

	if err := s.store.EvictIDs(ctx, fired); err != nil {
		return err
	}
	if err := s.store.ClearGuildReady(ctx, asOf); err != nil {
		return fmt.Errorf("clear guild ready: %w", err)
	}
	if _, err := s.store.PurgeBefore(ctx, asOf); err != nil {
		return err
	}
	if len(batch) > 0 {
		s.logger.Debug("scheduler_tick", zap.Int("reminders", len(batch)), zap.Int("guild", len(guilds)))
	}
	return nil
}

func (s *Scheduler) send(ctx context.Context, batch []reminder) {
	if len(batch) == 0 {
		return
	}
	var g errgroup.Group
	g.SetLimit(s.workers)
	for _, r := range batch {
		g.Go(func() error {
			if err := s.sender.Send(ctx, r.out); err != nil {
				metrics.SendFailures.Inc()
				s.logger.Warn("reminder_send_error",
					zap.String("channel_id", r.out.ChannelID),
					zap.String("type", string(r.typ)),
					zap.Error(err))
				return nil
			}
			metrics.Reminders.WithLabelValues(string(r.typ)).Inc()
			return nil
		})
	}
	_ = g.Wait()
}

// CooldownText is the reminder for one cooldown.
func CooldownText(playerID string, t domain.ActionType) string {
	return msgcat.T("reminder.cooldown", map[string]any{
		"PlayerID": playerID,
		"Text":     cooldown.ReminderText(t),
		"Title":    t.Title(),
	})
}

// GuildText is the guild raid reminder for one member, naming the dibbs
// holder when there is one.
func GuildText(playerID string, dibbs *string) string {
	holder := ""
	if dibbs != nil {
		holder = *dibbs
	}
	return msgcat.T("reminder.guild", map[string]any{
		"PlayerID": playerID,
		"Text":     cooldown.ReminderText(domain.Guild),
		"Dibbs":    holder,
	})
}
