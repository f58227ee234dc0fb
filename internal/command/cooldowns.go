package command

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/park285/epic-reminder-bot/internal/cooldown"
	"github.com/park285/epic-reminder-bot/internal/domain"
	"github.com/park285/epic-reminder-bot/internal/msgcat"
	"github.com/park285/epic-reminder-bot/internal/store"
)

// neverReady sorts types without a record first.
var neverReady = time.Date(1790, 1, 1, 0, 0, 0, 0, time.UTC)

func (h *handlers) cooldowns(ctx context.Context, c *Context) (Result, error) {
	if c.Help {
		return Reply(helpCard("help.cd", nil)), nil
	}
	tokens := c.Tokens
	switch {
	case tokens[0] == "":
		tokens = append([]string{"cd"}, tokens[1:]...)
	case tokens[0] != "cd" && tokens[0] != "rd":
		tokens = append([]string{"cd"}, tokens...)
	}

	profile := c.Player
	nickname := c.AuthorName()
	args := tokens[1:]
	if len(args) > 0 {
		mentioned, err := h.mentioned(ctx, c, args[len(args)-1])
		if err != nil {
			return Result{}, err
		}
		if mentioned != nil {
			profile = mentioned
			nickname = mentioned.Nickname
			args = args[:len(args)-1]
		}
	}
	filter := map[string]bool{}
	for _, a := range args {
		filter[a] = true
	}

	records, err := h.deps.Store.ForPlayer(ctx, profile.ID)
	if err != nil {
		return Result{}, err
	}
	readyAt := make(map[domain.ActionType]time.Time, len(records))
	for _, r := range records {
		readyAt[r.Type] = r.ReadyAt
	}

	types := make([]domain.ActionType, 0, len(domain.ActionTypes))
	warn := false
	hasGuild := false
	if profile.GuildName != nil {
		g, err := h.deps.Store.Guild(ctx, *profile.GuildName)
		switch {
		case err == nil:
			hasGuild = true
			warn = g.DibbsPlayerID != nil
			if g.ReadyAt != nil {
				readyAt[domain.Guild] = *g.ReadyAt
			} else {
				delete(readyAt, domain.Guild)
			}
		case !errors.Is(err, store.ErrNotFound):
			return Result{}, err
		}
	}
	for _, t := range domain.ActionTypes {
		if t == domain.Guild && !hasGuild {
			continue
		}
		if len(filter) > 0 && !filter[string(t)] {
			continue
		}
		types = append(types, t)
	}
	at := func(t domain.ActionType) time.Time {
		if v, ok := readyAt[t]; ok {
			return v
		}
		return neverReady
	}
	sort.SliceStable(types, func(i, j int) bool { return at(types[i]).Before(at(types[j])) })

	now := h.deps.Now()
	var b strings.Builder
	for _, t := range types {
		name := string(t)
		dibbs := warn && t == domain.Guild
		if dibbs {
			name += " (dibbs) "
		}
		v, ok := readyAt[t]
		if !ok || !v.After(now) {
			icon := ":white_check_mark:"
			if dibbs {
				icon = ":warning:"
			}
			fmt.Fprintf(&b, "%s `%-15s %20s` \n", icon, name, "Ready!")
			continue
		}
		if tokens[0] != "cd" {
			continue
		}
		icon := ":clock2:"
		if dibbs {
			icon = ":warning:"
		}
		fmt.Fprintf(&b, "%s `%-15s %20s`\n", icon, name, formatFor(profile, v))
	}
	body := b.String()
	if body == "" {
		body = "All commands on cooldown! (You may need to use `rpg cd` to populate your cooldowns for the first time.)\n"
	}

	_, events, err := h.deps.Durations.Table(ctx)
	if err != nil {
		return Result{}, err
	}
	footer := ""
	if len(events) > 0 {
		footer = strings.Join(events, ", ") + " event(s) currently active.\n"
	}
	tz := profile.Timezone
	if tz == "" {
		tz = domain.DefaultTimezone
	}
	card := normal(body, fmt.Sprintf("**%s's** Cooldowns", nickname))
	card.Footer = footer + "Timezone is " + tz + ", change with rcd p tz."
	return Reply(card), nil
}

func (h *handlers) info(ctx context.Context, c *Context) (Result, error) {
	if c.Help || len(c.Tokens) == 1 {
		return Reply(helpCard("help.info", nil)), nil
	}
	topic := joinTokens(c.Tokens[1:])
	var (
		title      string
		multiplier *float64
		tbl        cooldown.Table
		events     []string
		withEvents = true
	)
	switch topic {
	case "bot", "0":
		return Reply(normal(msgcat.T("info.bot", nil), "")), nil
	case "default cooldowns", "1":
		title, tbl, withEvents = "EPIC RPG Default Cooldowns", cooldown.Base(), false
	case "global cooldowns", "2":
		title = "Global Cooldowns, Including Event Data"
	case "my cooldowns", "3":
		title = "My Cooldowns, Including Event Data and Multipliers"
		multiplier = profileOf(c).Multiplier
	default:
		return Result{}, titledError(KindNotFound, "Info Error", fmt.Sprintf("No such topic `%s`. ", topic))
	}
	if withEvents {
		var err error
		if tbl, events, err = h.deps.Durations.Table(ctx); err != nil {
			return Result{}, err
		}
	}
	if multiplier != nil {
		for t, d := range tbl {
			tbl[t] = cooldown.ApplyMultiplier(*multiplier, d, t)
		}
	}
	card := normal("```"+durationListing(tbl)+"```", title)
	if withEvents {
		if len(events) > 0 {
			card.Footer = strings.Join(events, ", ") + " event(s) currently active."
		} else {
			card.Footer = "No active events."
		}
	}
	return Reply(card), nil
}

// durationListing renders one line per type, shortest first.
func durationListing(tbl cooldown.Table) string {
	types := make([]domain.ActionType, 0, len(tbl))
	for _, t := range domain.ActionTypes {
		if _, ok := tbl[t]; ok {
			types = append(types, t)
		}
	}
	sort.SliceStable(types, func(i, j int) bool { return tbl[types[i]] < tbl[types[j]] })
	var b strings.Builder
	for _, t := range types {
		fmt.Fprintf(&b, "%-12s => %s\n", t, cooldown.Format(tbl[t]))
	}
	return b.String()
}
