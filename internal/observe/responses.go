package observe

import (
	"context"
	"errors"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/epic-reminder-bot/internal/domain"
	"github.com/park285/epic-reminder-bot/internal/extract"
	"github.com/park285/epic-reminder-bot/internal/gateway"
	"github.com/park285/epic-reminder-bot/internal/metrics"
	"github.com/park285/epic-reminder-bot/internal/sentinel"
	"github.com/park285/epic-reminder-bot/internal/store"
)

// Response applies everything extracted from a game bot message. Of an
// edited message only a guild member list is read; the game bot pages that
// list by editing it, and every other card was applied when first posted.
func (o *Observer) Response(ctx context.Context, srv *domain.Server, ev gateway.Event) ([]gateway.Message, error) {
	r := ev.Response()
	playerID := extract.PlayerID(r.AuthorIconURL)
	res := o.engine.Extract(r, o.recentCommand(playerID))
	if ev.Edited && res.Kind != extract.KindGuildList {
		return nil, nil
	}
	metrics.Extractions.WithLabelValues(res.Kind.String()).Inc()
	if res.Empty() {
		return nil, nil
	}

	if res.Roster != nil {
		return nil, o.roster(ctx, srv, ev.ChannelID, *res.Roster)
	}

	if len(res.Hunts) > 0 {
		return nil, o.recordHunts(ctx, srv, res.Hunts)
	}
	if res.Group != nil {
		return nil, o.confirm(ctx, *res.Group, ev.ChannelID)
	}
	if res.PlayerID == "" {
		return nil, nil
	}

	p, _, err := o.store.Player(ctx, res.PlayerID, store.PlayerDefaults{
		ServerID:  srv.ID,
		ChannelID: ev.ChannelID,
		Nickname:  nicknameFromLabel(r.AuthorName),
	})
	if err != nil {
		return nil, err
	}

	if err := o.applyFacts(ctx, p, res); err != nil {
		return nil, err
	}
	if res.Gamble != nil {
		id := p.ID
		g := &domain.GambleRecord{PlayerID: &id, Game: res.Gamble.Game, Outcome: res.Gamble.Outcome, Net: res.Gamble.Net}
		if err := o.store.RecordGamble(ctx, g); err != nil {
			return nil, err
		}
	}
	if res.Inventory != nil {
		return o.sentinels.Fire(ctx, domain.TriggerInventory, sentinel.Subject{ID: p.ID, Nickname: p.Nickname}, res.Inventory)
	}
	return nil, nil
}

func (o *Observer) applyFacts(ctx context.Context, p *domain.Player, res extract.Result) error {
	if len(res.Updates) > 0 {
		batch := make([]domain.CooldownRecord, len(res.Updates))
		for i, f := range res.Updates {
			batch[i] = domain.CooldownRecord{PlayerID: p.ID, Type: f.Type, ReadyAt: f.ReadyAt}
		}
		if err := o.store.Upsert(ctx, batch); err != nil {
			return err
		}
		for _, f := range res.Updates {
			metrics.Cooldowns.WithLabelValues(string(f.Type)).Inc()
		}
	}
	if len(res.Evictions) > 0 {
		keys := make([]store.CooldownKey, len(res.Evictions))
		for i, t := range res.Evictions {
			keys[i] = store.CooldownKey{PlayerID: p.ID, Type: t}
		}
		if err := o.store.Evict(ctx, keys); err != nil {
			return err
		}
	}
	if res.GuildReadyAt != nil && p.GuildName != nil {
		err := o.store.SetGuildReady(ctx, *p.GuildName, *res.GuildReadyAt, p.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
	}
	if len(res.Updates)+len(res.Evictions) > 0 {
		o.logger.Debug("cooldown_extracted",
			zap.String("player_id", p.ID),
			zap.String("kind", res.Kind.String()),
			zap.Int("updates", len(res.Updates)),
			zap.Int("evictions", len(res.Evictions)))
	}
	return nil
}

// roster records guild membership from a member list card. Display names
// are matched against nicknames known on the server; unknown names are
// skipped.
func (o *Observer) roster(ctx context.Context, srv *domain.Server, channelID string, g extract.GuildRoster) error {
	ids := slices.Clone(g.IDs)
	for _, name := range g.Names {
		p, err := o.store.PlayerByNickname(ctx, srv.ID, name)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		ids = append(ids, p.ID)
	}
	n, err := o.store.SetGuildRoster(ctx, g.Name, channelID, ids)
	if err != nil {
		return err
	}
	o.logger.Debug("guild_roster",
		zap.String("guild", g.Name),
		zap.Int("listed", len(g.IDs)+len(g.Names)),
		zap.Int64("updated", n))
	return nil
}

func (o *Observer) confirm(ctx context.Context, g extract.Group, channelID string) error {
	conf, err := o.groups.Confirm(ctx, g, channelID)
	if err != nil {
		return err
	}
	if conf != nil {
		metrics.Activities.WithLabelValues(conf.Activity.Kind, "confirmed").Inc()
	}
	return nil
}

// recordHunts attributes hunt results by display name. Names the server has
// never seen are skipped.
func (o *Observer) recordHunts(ctx context.Context, srv *domain.Server, hunts []extract.Hunt) error {
	for _, h := range hunts {
		p, err := o.store.PlayerByNickname(ctx, srv.ID, h.Name)
		if errors.Is(err, store.ErrNotFound) {
			o.logger.Debug("hunt_unknown_player", zap.String("name", h.Name))
			continue
		}
		if err != nil {
			return err
		}
		if err := o.store.RecordHuntResult(ctx, p.ID, h.Target, h.Money, h.XP, h.Loot); err != nil {
			return err
		}
	}
	return nil
}

// nicknameFromLabel reads the player name out of a card author label such
// as "kevin's inventory".
func nicknameFromLabel(label string) string {
	if i := strings.LastIndex(label, "'s "); i > 0 {
		return label[:i]
	}
	return label
}
