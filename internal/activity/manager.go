// Package activity correlates group commands (duels, arenas, horse races,
// dungeons, minibosses) with the game bot's later confirmation and fans the
// shared cooldown out to every participant.
package activity

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/epic-reminder-bot/internal/domain"
	"github.com/park285/epic-reminder-bot/internal/extract"
	"github.com/park285/epic-reminder-bot/internal/obslog"
)

// DefaultStaleAfter is how long a proposal waits for its confirmation.
const DefaultStaleAfter = 60 * time.Second

// confirmRe extracts the initiator's display name from a confirmation card.
var confirmRe = map[string]*regexp.Regexp{
	KindHorse:    regexp.MustCompile(`\*\*([^\*]+)\*\* got a tier`),
	KindMiniboss: regexp.MustCompile(`Help \*\*([^\*]+)\*\* defeat`),
	KindDuel:     regexp.MustCompile(`\*\*([^\*]+)\*\* ~-~ :boom: \*\*([^\*]+)\*\*`),
	KindArena:    regexp.MustCompile(`\*\*([^\*]+)\*\* started an arena event`),
}

// Cooldowns is the part of the cooldown store the coordinator writes to.
type Cooldowns interface {
	HasCooldown(ctx context.Context, t domain.ActionType, players []string) (map[string]bool, error)
	InsertIgnoreConflicts(ctx context.Context, batch []domain.CooldownRecord) (int64, error)
}

// Durations resolves the shared cooldown length.
type Durations interface {
	Duration(ctx context.Context, t domain.ActionType, multiplier *float64) (time.Duration, error)
}

type Coordinator struct {
	store      *Store
	cooldowns  Cooldowns
	durations  Durations
	staleAfter time.Duration
	now        func() time.Time
}

func NewCoordinator(rdb *redis.Client, cooldowns Cooldowns, durations Durations) *Coordinator {
	return &Coordinator{
		store:      NewStore(rdb),
		cooldowns:  cooldowns,
		durations:  durations,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
	}
}

// WithStaleAfter sets the confirmation window.
func (c *Coordinator) WithStaleAfter(d time.Duration) *Coordinator {
	if d > 0 {
		c.staleAfter = d
	}
	return c
}

// WithClock replaces the time source.
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

// Store exposes the underlying Redis store.
func (c *Coordinator) Store() *Store { return c.store }

// KindFor maps an rpg command to a group activity kind. Solo variants of
// group commands report false and take the direct cooldown path.
func KindFor(t domain.ActionType, tokens []string) (string, bool) {
	switch t {
	case domain.Duel, domain.Horse, domain.Arena, domain.Dungeon:
	default:
		return "", false
	}
	if len(tokens) >= 2 {
		switch tokens[0] + " " + tokens[1] {
		case "big arena", "horse breeding", "not so":
			return "", false
		}
	}
	if len(tokens) > 0 && tokens[0] == KindMiniboss {
		return KindMiniboss, true
	}
	return string(t), true
}

// Propose records a new activity. The initiator is never its own invitee.
func (c *Coordinator) Propose(ctx context.Context, kind, initiatorID, initiatorName, channelID string, invitees []string) (*Activity, error) {
	if strings.TrimSpace(initiatorID) == "" {
		return nil, ErrInvalidArgs
	}
	if _, ok := validKind(kind); !ok {
		return nil, ErrUnknownKind
	}
	seen := map[string]bool{initiatorID: true}
	var guests []string
	for _, id := range invitees {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		guests = append(guests, id)
	}
	a := &Activity{
		ID:            uuid.NewString(),
		Kind:          kind,
		InitiatorID:   initiatorID,
		InitiatorName: initiatorName,
		ChannelID:     channelID,
		CreatedAt:     c.now().UTC(),
	}
	if err := c.store.Save(ctx, a, guests); err != nil {
		return nil, fmt.Errorf("save activity: %w", err)
	}
	obslog.L().Info("activity_propose",
		zap.String("id", a.ID),
		zap.String("kind", kind),
		zap.String("initiator_id", initiatorID),
		zap.Int("invitees", len(guests)))
	return a, nil
}

// Confirm looks for the oldest pending activity the card confirms and fans
// it out. It returns nil, nil when nothing matches. channelID narrows the
// candidates to the channel the card was posted in when both are known.
func (c *Coordinator) Confirm(ctx context.Context, g extract.Group, channelID string) (*Confirmation, error) {
	pending, err := c.store.ByKind(ctx, g.Activity)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	for _, a := range pending {
		if channelID != "" && a.ChannelID != "" && a.ChannelID != channelID {
			continue
		}
		if !confirms(a, g) {
			continue
		}
		conf, err := c.fanOut(ctx, a)
		if err != nil {
			return nil, err
		}
		if conf != nil {
			return conf, nil
		}
	}
	return nil, nil
}

func confirms(a *Activity, g extract.Group) bool {
	if a.Kind != g.Activity {
		return false
	}
	if a.Kind == KindDungeon {
		return strings.Contains(g.Footer, extract.DungeonFooter)
	}
	re, ok := confirmRe[a.Kind]
	if !ok {
		return false
	}
	m := re.FindStringSubmatch(g.Description)
	return m != nil && m[1] == a.InitiatorName
}

func (c *Coordinator) fanOut(ctx context.Context, a *Activity) (*Confirmation, error) {
	invitees, err := c.store.Invitees(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("load invitees: %w", err)
	}
	claimed, err := c.store.Claim(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("claim activity: %w", err)
	}
	if err := c.store.Delete(ctx, a.Kind, a.ID); err != nil {
		obslog.L().Warn("activity_delete_error", zap.String("id", a.ID), zap.Error(err))
	}
	if !claimed {
		return nil, nil
	}

	t := a.CooldownType()
	d, err := c.durations.Duration(ctx, t, nil)
	if err != nil {
		return nil, fmt.Errorf("resolve duration: %w", err)
	}
	readyAt := c.now().UTC().Add(d)

	holding, err := c.cooldowns.HasCooldown(ctx, t, invitees)
	if err != nil {
		return nil, err
	}
	players := []string{a.InitiatorID}
	for _, id := range invitees {
		if !holding[id] {
			players = append(players, id)
		}
	}
	batch := make([]domain.CooldownRecord, len(players))
	for i, id := range players {
		batch[i] = domain.CooldownRecord{PlayerID: id, Type: t, ReadyAt: readyAt}
	}
	n, err := c.cooldowns.InsertIgnoreConflicts(ctx, batch)
	if err != nil {
		return nil, err
	}
	obslog.L().Info("activity_confirm",
		zap.String("id", a.ID),
		zap.String("kind", a.Kind),
		zap.Strings("players", players),
		zap.Int64("written", n))
	return &Confirmation{Activity: a, ReadyAt: readyAt, Players: players, Written: n}, nil
}

// Sweep deletes every activity older than the confirmation window and
// returns how many were removed. No cooldowns are granted for them.
func (c *Coordinator) Sweep(ctx context.Context) (int, error) {
	cutoff := c.now().Add(-c.staleAfter)
	removed := 0
	for _, kind := range Kinds {
		ids, err := c.store.CreatedBefore(ctx, kind, cutoff)
		if err != nil {
			return removed, fmt.Errorf("list stale %s: %w", kind, err)
		}
		for _, id := range ids {
			if err := c.store.Delete(ctx, kind, id); err != nil {
				return removed, fmt.Errorf("delete stale %s: %w", kind, err)
			}
			removed++
		}
	}
	if removed > 0 {
		obslog.L().Debug("activity_sweep", zap.Int("removed", removed))
	}
	return removed, nil
}

func validKind(kind string) (string, bool) {
	for _, k := range Kinds {
		if k == kind {
			return k, true
		}
	}
	return "", false
}
