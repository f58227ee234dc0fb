// Package sentinel holds one-shot deferred answers. A sentinel is registered
// by a query command and resolved the next time its trigger is observed for
// the player.
package sentinel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/epic-reminder-bot/internal/crafting"
	"github.com/park285/epic-reminder-bot/internal/domain"
	"github.com/park285/epic-reminder-bot/internal/extract"
	"github.com/park285/epic-reminder-bot/internal/gateway"
	"github.com/park285/epic-reminder-bot/internal/msgcat"
	"github.com/park285/epic-reminder-bot/internal/obslog"
)

const DefaultArea = 5

// Store is the persistence the queue needs.
type Store interface {
	Sentinels(ctx context.Context, playerID string, trigger domain.SentinelTrigger) ([]domain.Sentinel, error)
	SaveSentinel(ctx context.Context, sn *domain.Sentinel) error
	DeleteSentinel(ctx context.Context, id uint) (bool, error)
}

// Subject is the player whose observation fired the trigger.
type Subject struct {
	ID       string
	Nickname string
}

type Queue struct {
	store  Store
	engine crafting.Service
	logger *zap.Logger
}

func New(store Store, engine crafting.Service) *Queue {
	if engine == nil {
		engine = crafting.Unavailable{}
	}
	return &Queue{store: store, engine: engine, logger: obslog.Named("sentinel")}
}

// Register records a pending sentinel. A pending one with the same action
// and snoop requester has its metadata replaced instead of being duplicated.
func (q *Queue) Register(ctx context.Context, playerID string, trigger domain.SentinelTrigger, action string, meta domain.SentinelMeta) (*domain.Sentinel, error) {
	pending, err := q.store.Sentinels(ctx, playerID, trigger)
	if err != nil {
		return nil, err
	}
	for i := range pending {
		sn := &pending[i]
		if sn.Action != action || sn.Metadata.Snoop != meta.Snoop {
			continue
		}
		sn.Metadata = meta
		if err := q.store.SaveSentinel(ctx, sn); err != nil {
			return nil, err
		}
		return sn, nil
	}
	sn := &domain.Sentinel{PlayerID: playerID, Trigger: trigger, Action: action, Metadata: meta}
	if err := q.store.SaveSentinel(ctx, sn); err != nil {
		return nil, err
	}
	q.logger.Debug("sentinel_registered",
		zap.String("player_id", playerID),
		zap.String("action", action),
		zap.String("snoop", meta.Snoop),
	)
	return sn, nil
}

// Fire resolves every pending sentinel of subject for trigger. Each
// sentinel is deleted before it is answered; one that another caller
// already removed is skipped.
func (q *Queue) Fire(ctx context.Context, trigger domain.SentinelTrigger, subject Subject, inv extract.Inventory) ([]gateway.Message, error) {
	pending, err := q.store.Sentinels(ctx, subject.ID, trigger)
	if err != nil {
		return nil, err
	}
	var out []gateway.Message
	for _, sn := range pending {
		removed, err := q.store.DeleteSentinel(ctx, sn.ID)
		if err != nil {
			return out, err
		}
		if !removed {
			continue
		}
		out = append(out, q.resolve(ctx, sn, subject, inv)...)
	}
	if len(out) > 0 {
		q.logger.Info("sentinel_fired", zap.String("player_id", subject.ID), zap.Int("messages", len(out)))
	}
	return out, nil
}

func (q *Queue) resolve(ctx context.Context, sn domain.Sentinel, subject Subject, inv extract.Inventory) []gateway.Message {
	meta := sn.Metadata
	area := meta.Area
	if area == 0 {
		area = DefaultArea
	}
	var out []gateway.Message
	snoop := func() {
		if meta.Snoop != "" {
			out = append(out, gateway.Text(msgcat.T("sentinel.snoop", map[string]any{"SnoopID": meta.Snoop, "Nickname": subject.Nickname})))
		}
	}
	who := map[string]any{"PlayerID": subject.ID}

	switch sn.Action {
	case domain.ActionLogs:
		logs, err := q.engine.FutureValue(ctx, area, inv)
		if err != nil {
			q.logFailure(sn, err)
			return []gateway.Message{{Card: gateway.Error(msgcat.T("sentinel.logs_broken", who))}}
		}
		snoop()
		body := msgcat.T("sentinel.logs", map[string]any{"PlayerID": subject.ID, "Logs": thousands(logs)})
		out = append(out, gateway.Message{Card: gateway.Info(body, fmt.Sprintf("Logs (Area %d)", area))})

	case domain.ActionCanCraft:
		if len(meta.Recipe) == 0 || meta.Name == "" {
			return []gateway.Message{{Card: gateway.Error(msgcat.T("sentinel.no_recipe", who))}}
		}
		ok, err := q.engine.CanCraft(ctx, area, meta.Recipe, inv)
		if err != nil {
			q.logFailure(sn, err)
			return []gateway.Message{{Card: gateway.Error(msgcat.T("sentinel.craft_broken", who))}}
		}
		snoop()
		title := fmt.Sprintf("Craft (Area %d)", area)
		data := map[string]any{"PlayerID": subject.ID, "Name": displayName(meta.Name)}
		if ok {
			out = append(out, gateway.Message{Card: gateway.Success(msgcat.T("sentinel.craft_yes", data), title)})
		} else {
			out = append(out, gateway.Message{Card: gateway.Info(msgcat.T("sentinel.craft_no", data), title)})
		}

	case domain.ActionHowMany:
		if len(meta.Recipe) == 0 || meta.Name == "" {
			return []gateway.Message{{Card: gateway.Error(msgcat.T("sentinel.no_recipe", who))}}
		}
		n, total, err := q.engine.HowMany(ctx, area, meta.Recipe, inv)
		if err != nil {
			q.logFailure(sn, err)
			return []gateway.Message{{Card: gateway.Error(msgcat.T("sentinel.how_many_broken", who))}}
		}
		snoop()
		data := map[string]any{"PlayerID": subject.ID, "Name": displayName(meta.Name), "Count": n}
		card := gateway.Success(msgcat.T("sentinel.how_many", data), fmt.Sprintf("How Many (Area %d)", area))
		if n > 0 {
			card.Fields = []gateway.Field{{Name: "Full Recipe", Value: recipeText(total)}}
		}
		out = append(out, gateway.Message{Card: card})

	default:
		q.logger.Warn("sentinel_unknown_action", zap.Uint("id", sn.ID), zap.String("action", sn.Action))
	}
	return out
}

func (q *Queue) logFailure(sn domain.Sentinel, err error) {
	level := q.logger.Error
	if errors.Is(err, crafting.ErrUnavailable) {
		level = q.logger.Warn
	}
	level("sentinel_engine_error", zap.Uint("id", sn.ID), zap.String("action", sn.Action), zap.Error(err))
}

func displayName(s string) string { return strings.ReplaceAll(s, "_", " ") }

func recipeText(total map[string]int64) string {
	keys := make([]string, 0, len(total))
	for k := range total {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", displayName(k), thousands(total[k]))
	}
	return strings.TrimRight(b.String(), "\n")
}

// thousands formats n with comma separators.
func thousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
