package command

import (
	"context"
	"regexp"

	"github.com/park285/epic-reminder-bot/internal/domain"
	"github.com/park285/epic-reminder-bot/internal/gateway"
	"github.com/park285/epic-reminder-bot/internal/msgcat"
)

type handlers struct {
	deps Deps
}

func typeTokens(extra ...string) []string {
	out := append([]string(nil), extra...)
	for _, t := range domain.ActionTypes {
		out = append(out, string(t))
	}
	return out
}

var (
	onOff = map[string]bool{"on": true, "off": true}

	tzTokens       = []string{"timezone", "tz"}
	tfTokens       = []string{"timeformat", "tf"}
	mpTokens       = []string{"multiplier", "mp"}
	marryTokens    = []string{"marry"}
	notifyTokens   = typeTokens("notify", "n", "all")
	adminSubTokens = map[string]bool{"event": true, "wed": true, "ban": true, "unban": true}

	// profileNamespace holds sub-commands reachable through "profile".
	profileNamespace = setOf(tzTokens, tfTokens, mpTokens, marryTokens, notifyTokens)

	mentionPattern = regexp.MustCompile(`^<@!?\d+>$`)
)

func setOf(lists ...[]string) map[string]bool {
	out := map[string]bool{}
	for _, l := range lists {
		for _, t := range l {
			out[t] = true
		}
	}
	return out
}

// registry builds the dispatch table. Order matters: earlier commands win
// shared entry tokens.
func (h *handlers) registry() *Registry {
	r := NewRegistry()
	r.Register(Command{Name: "help", EntryTokens: []string{"help", "h"}, Handler: h.help})
	r.Register(Command{
		Name:        "cd",
		EntryTokens: typeTokens("", "cd", "rd"),
		Filters:     []Filter{func(c *Context) bool { return !onOff[c.Last()] }},
		Handler:     h.cooldowns,
	})
	r.Register(Command{Name: "info", EntryTokens: []string{"info", "i"}, Handler: h.info})
	r.Register(Command{Name: "register", EntryTokens: []string{"register", "join"}, Handler: h.register})
	r.Register(Command{Name: "profile", EntryTokens: []string{"profile", "p"}, EntryPatterns: []*regexp.Regexp{mentionPattern}, Handler: h.profile})
	r.Register(Command{
		Name:        "notify",
		EntryTokens: notifyTokens,
		Filters:     []Filter{func(c *Context) bool { return onOff[c.Last()] || c.Help }},
		Handler:     h.notify,
	})
	r.Register(Command{Name: "toggle", EntryTokens: []string{"on", "off"}, Handler: h.toggle})
	r.Register(Command{Name: "timezone", EntryTokens: tzTokens, Handler: h.timezone})
	r.Register(Command{Name: "timeformat", EntryTokens: tfTokens, Handler: h.timeformat})
	r.Register(Command{Name: "multiplier", EntryTokens: mpTokens, Handler: h.multiplier})
	r.Register(Command{Name: "marry", EntryTokens: marryTokens, Handler: h.marry})
	r.Register(Command{Name: "myguild", EntryTokens: []string{"myguild", "mg"}, Handler: h.myGuild})
	r.Register(Command{Name: "dibbs", EntryTokens: []string{"dibbs", "dibbs?", "d", "d?"}, Handler: h.dibbs})
	r.Register(Command{Name: "logs", EntryTokens: []string{"logs", "log"}, Handler: h.logs})
	r.Register(Command{Name: "craft", EntryTokens: []string{"craft", "howmany", "hm"}, Handler: h.craft})
	r.Register(Command{Name: "stats", EntryTokens: []string{"stats", "statistics", "s"}, Handler: h.statsNamespace})
	r.Register(Command{Name: "stat", EntryTokens: statTokens(), Handler: h.stats})
	r.Register(Command{Name: "admin", EntryTokens: []string{"admin"}, Admin: true, Handler: h.admin})
	r.Register(Command{Name: "ban", EntryTokens: []string{"ban", "unban"}, Admin: true, Handler: h.ban})
	r.Register(Command{Name: "event", EntryTokens: []string{"event"}, Admin: true, Handler: h.event})
	r.Register(Command{Name: "wed", EntryTokens: []string{"wed"}, Admin: true, Handler: h.wed})
	return r
}

func helpCard(key string, data any) *gateway.Card { return gateway.Help(msgcat.T(key, data)) }

func normal(body, title string) *gateway.Card {
	return &gateway.Card{Severity: gateway.SeverityDefault, Title: title, Body: body}
}

// profileOf returns the invoking player, or an unsaved default profile on
// servers that have not registered yet.
func profileOf(c *Context) *domain.Player {
	if c.Player != nil {
		return c.Player
	}
	return &domain.Player{
		ID:         c.Event.Author.ID,
		Nickname:   c.Event.Author.Name,
		Timezone:   domain.DefaultTimezone,
		TimeFormat: domain.DefaultTimeFormat,
	}
}

func (h *handlers) help(_ context.Context, c *Context) (Result, error) {
	if len(c.Tokens) == 1 {
		return Reply(helpCard("help.main", nil)), nil
	}
	return RewriteHelp(c.Tokens[1:]), nil
}
