package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/park285/epic-reminder-bot/internal/cooldown"
	"github.com/park285/epic-reminder-bot/internal/domain"
	"github.com/park285/epic-reminder-bot/internal/gateway"
	"github.com/park285/epic-reminder-bot/internal/store"
)

// Layouts accepted for event start= and end=, interpreted as UTC. Tokens
// are lowercased, hence the "t".
var eventLayouts = []string{"2006-01-02t15:04", "2006-01-02"}

const eventShowLayout = "2006-01-02T15:04"

func (h *handlers) admin(_ context.Context, c *Context) (Result, error) {
	if len(c.Tokens) > 1 && adminSubTokens[c.Tokens[1]] {
		return Rewrite(c.Tokens[1:]), nil
	}
	if c.Help || len(c.Tokens) == 1 {
		return Reply(helpCard("help.admin", nil)), nil
	}
	return Result{}, nil
}

func (h *handlers) ban(ctx context.Context, c *Context) (Result, error) {
	if c.Help {
		return Reply(helpCard("help.ban", nil)), nil
	}
	naughty, err := h.mentioned(ctx, c, c.Last())
	if err != nil {
		return Result{}, err
	}
	if naughty == nil {
		return Reply(helpCard("help.ban", nil)), nil
	}
	banned := true
	for _, t := range c.Tokens {
		if t == "unban" {
			banned = false
		}
	}
	if err := h.deps.Store.UpdatePlayer(ctx, naughty.ID, map[string]any{"banned": banned}); err != nil {
		return Result{}, err
	}
	if banned {
		return Reply(normal("Okay, "+gateway.Mention(naughty.ID)+" can no longer use `rcd` commands.", "Player Banned :(")), nil
	}
	return Reply(normal("Okay, "+gateway.Mention(naughty.ID)+" can use `rcd` commands!", "Player Un-Banned :)")), nil
}

func (h *handlers) wed(ctx context.Context, c *Context) (Result, error) {
	if c.Help || len(c.Tokens) < 3 {
		return Reply(helpCard("help.wed", nil)), nil
	}
	groom, err := h.mentioned(ctx, c, c.Tokens[len(c.Tokens)-2])
	if err != nil {
		return Result{}, err
	}
	if groom == nil {
		return Reply(helpCard("help.wed", nil)), nil
	}
	return h.wedding(ctx, c, groom, c.Last())
}

func (h *handlers) event(ctx context.Context, c *Context) (Result, error) {
	if c.Help || len(c.Tokens) < 3 {
		return Reply(helpCard("help.event", nil)), nil
	}
	verb, name := c.Tokens[1], c.Tokens[2]
	switch verb {
	case "delete":
		err := h.deps.Store.DeleteEvent(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			return Result{}, &Error{Kind: KindNotFound, Msg: fmt.Sprintf("No event named `%s`.", name)}
		}
		if err != nil {
			return Result{}, err
		}
		return Reply(gateway.Success(fmt.Sprintf("Event %q successfully deleted.", name), "Delete Success")), nil

	case "show":
		e, err := h.deps.Store.Event(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			return Result{}, &Error{Kind: KindNotFound, Msg: fmt.Sprintf("No event named `%s`.", name)}
		}
		if err != nil {
			return Result{}, err
		}
		return Reply(eventCard(verb, e)), nil

	case "upsert":
		if len(c.Tokens) < 4 {
			return Result{}, userError(fmt.Sprintf(
				"`rcd admin event %s %q` could not be parsed as a valid command. Did you provide all required arguments?", verb, name))
		}
		e, err := h.deps.Store.Event(ctx, name)
		switch {
		case errors.Is(err, store.ErrNotFound):
			e = &domain.Event{Name: name}
		case err != nil:
			return Result{}, err
		}
		if err := applyEventParams(e, c.Tokens[3:]); err != nil {
			return Result{}, err
		}
		if e.Start.IsZero() || e.End.IsZero() || !e.End.After(e.Start) {
			return Result{}, &Error{Kind: KindValidation, Msg: "An event needs a `start` before its `end`."}
		}
		if err := h.deps.Store.SaveEvent(ctx, e); err != nil {
			return Result{}, err
		}
		return Reply(eventCard(verb, e)), nil
	}
	return Reply(helpCard("help.event", nil)), nil
}

// applyEventParams reads start=, end=, <type>=<duration> and
// <type>*=<multiplier>. "all" addresses every type.
func applyEventParams(e *domain.Event, params []string) error {
	for _, p := range params {
		key, value, ok := strings.Cut(p, "=")
		if !ok || value == "" {
			return userError(fmt.Sprintf("Could not parse `%s`; expected `param=value`.", p))
		}
		switch key {
		case "start", "end":
			t, ok := parseEventTime(value)
			if !ok {
				return userError(fmt.Sprintf("Could not parse `%s` as a time; use `YYYY-MM-DDtHH:MM` in UTC.", value))
			}
			if key == "start" {
				e.Start = t
			} else {
				e.End = t
			}
			continue
		}
		multiplier := strings.HasSuffix(key, "*")
		types, ok := eventTypes(strings.TrimSuffix(key, "*"))
		if !ok {
			return &Error{Kind: KindNotFound, Msg: fmt.Sprintf("`%s` is not a cooldown type.", strings.TrimSuffix(key, "*"))}
		}
		if multiplier {
			m, err := strconv.ParseFloat(value, 64)
			if err != nil || m < 0 {
				return &Error{Kind: KindValidation, Msg: fmt.Sprintf("Could not parse `%s` as a multiplier.", value)}
			}
			if e.Multipliers == nil {
				e.Multipliers = map[domain.ActionType]float64{}
			}
			for _, t := range types {
				e.Multipliers[t] = m
			}
			continue
		}
		d, ok := cooldown.ParseSpan(value)
		if !ok {
			return &Error{Kind: KindValidation, Msg: fmt.Sprintf("Could not parse `%s` as a duration.", value)}
		}
		if e.Adjustments == nil {
			e.Adjustments = map[domain.ActionType]int64{}
		}
		for _, t := range types {
			e.Adjustments[t] = int64(d / time.Second)
		}
	}
	return nil
}

func eventTypes(key string) ([]domain.ActionType, bool) {
	if key == "all" {
		return domain.ActionTypes, true
	}
	t, ok := domain.ParseActionType(key)
	if !ok {
		return nil, false
	}
	return []domain.ActionType{t}, true
}

func parseEventTime(s string) (time.Time, bool) {
	for _, layout := range eventLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func eventCard(verb string, e *domain.Event) *gateway.Card {
	card := normal("", fmt.Sprintf("%s %q", verb, e.Name))
	card.Fields = []gateway.Field{{
		Name:  "Effective (UTC)",
		Value: e.Start.UTC().Format(eventShowLayout) + " to " + e.End.UTC().Format(eventShowLayout),
	}}
	if len(e.Adjustments) == 0 && len(e.Multipliers) == 0 {
		return card
	}
	var adjust, mult, effective strings.Builder
	for _, t := range domain.ActionTypes {
		secs, adjusted := e.Adjustments[t]
		m, scaled := e.Multipliers[t]
		if adjusted {
			fmt.Fprintf(&adjust, "%-12s => %s\n", t, cooldown.Format(time.Duration(secs)*time.Second))
		}
		if scaled {
			fmt.Fprintf(&mult, "%-12s => %.2f\n", t, m)
		}
		if !adjusted && !scaled {
			continue
		}
		d, _ := cooldown.BaseDuration(t)
		if adjusted {
			d = time.Duration(secs) * time.Second
		}
		if scaled {
			d = time.Duration(float64(d/time.Second)*m) * time.Second
		}
		fmt.Fprintf(&effective, "%-12s => %s\n", t, cooldown.Format(d))
	}
	if adjust.Len() > 0 {
		card.Fields = append(card.Fields, gateway.Field{Name: "Cooldown Adjustments", Value: "```" + adjust.String() + "```"})
	}
	if mult.Len() > 0 {
		card.Fields = append(card.Fields, gateway.Field{Name: "Cooldown Multipliers", Value: "```" + mult.String() + "```"})
	}
	card.Fields = append(card.Fields, gateway.Field{Name: "Event Cooldowns", Value: "```" + effective.String() + "```"})
	return card
}
