package command

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/park285/epic-reminder-bot/internal/domain"
	"github.com/park285/epic-reminder-bot/internal/extract"
	"github.com/park285/epic-reminder-bot/internal/gateway"
	"github.com/park285/epic-reminder-bot/internal/sentinel"
	"github.com/park285/epic-reminder-bot/internal/store"
	"github.com/park285/epic-reminder-bot/internal/tokenize"
)

var areaRe = regexp.MustCompile(`^a?(\d+)$`)

// takeArea removes the first area argument such as "a7" or "7" from tokens.
// The whole token must be an area, so "100" is area 100 and fails the range
// check instead of reading as area 10.
func takeArea(tokens []string) ([]string, int) {
	for i := 1; i < len(tokens); i++ {
		m := areaRe.FindStringSubmatch(tokens[i])
		if m == nil {
			continue
		}
		area, err := strconv.Atoi(m[1])
		if err != nil {
			area = -1
		}
		rest := append(slices.Clone(tokens[:i]), tokens[i+1:]...)
		return rest, area
	}
	return tokens, sentinel.DefaultArea
}

// target resolves a trailing mention. When another player is named, the
// invoker becomes the snoop requester.
func (h *handlers) target(ctx context.Context, c *Context, tokens []string) (*domain.Player, string, []string, error) {
	if len(tokens) > 1 {
		p, err := h.mentioned(ctx, c, tokens[len(tokens)-1])
		if err != nil {
			return nil, "", nil, err
		}
		if p != nil {
			snoop := ""
			if p.ID != c.Player.ID {
				snoop = c.Player.ID
			}
			return p, snoop, tokens[:len(tokens)-1], nil
		}
	}
	return c.Player, "", tokens, nil
}

func (h *handlers) logs(ctx context.Context, c *Context) (Result, error) {
	if c.Help || len(c.Tokens) == 0 {
		return Reply(helpCard("help.logs", nil)), nil
	}
	tokens, area := takeArea(c.Tokens)
	if area < 1 || area > 15 {
		return Result{}, titledError(KindValidation, "Logs Error", "Only areas 1-15 are valid!")
	}
	who, snoop, _, err := h.target(ctx, c, tokens)
	if err != nil {
		return Result{}, err
	}
	meta := domain.SentinelMeta{Area: area, Snoop: snoop}
	if _, err := h.deps.Sentinels.Register(ctx, who.ID, domain.TriggerInventory, domain.ActionLogs, meta); err != nil {
		return Result{}, err
	}
	if snoop != "" {
		return Reply(normal("Busybody, eh? Okay, I'll check next time they open their inventory.",
			fmt.Sprintf("Snoop Lawgs (Area %d)", area))), nil
	}
	return Reply(normal("Okay, the next time I see your inventory, I'll say how many logs you should have in Area 10.",
		fmt.Sprintf("Logs (Area %d)", area))), nil
}

// craft registers a can_craft or how_many sentinel with an inline recipe:
// "craft [aN] <name> <item>=<count> ... [@player]".
func (h *handlers) craft(ctx context.Context, c *Context) (Result, error) {
	if c.Help {
		return Reply(helpCard("help.craft", nil)), nil
	}
	action, label := domain.ActionCanCraft, "Craft"
	if c.Entry() != "craft" {
		action, label = domain.ActionHowMany, "How Many"
	}
	tokens, area := takeArea(c.Tokens)
	if area < 1 || area > 15 {
		return Result{}, titledError(KindValidation, label+" Error", "Only areas 1-15 are valid!")
	}
	who, snoop, tokens, err := h.target(ctx, c, tokens)
	if err != nil {
		return Result{}, err
	}
	if len(tokens) < 3 {
		return Reply(helpCard("help.craft", nil)), nil
	}
	name := tokens[1]
	recipe := map[string]int{}
	known := extract.InventoryKeys()
	for _, tok := range tokens[2:] {
		item, count, ok := strings.Cut(tok, "=")
		n, err := strconv.Atoi(count)
		if !ok || err != nil || n <= 0 {
			return Result{}, userError(fmt.Sprintf("Could not parse `%s` as `item=count`.", tok))
		}
		if !slices.Contains(known, item) {
			return Result{}, &Error{Kind: KindNotFound, Msg: fmt.Sprintf("I don't know the item `%s`.", item)}
		}
		recipe[item] += n
	}
	meta := domain.SentinelMeta{Area: area, Snoop: snoop, Recipe: recipe, Name: name}
	if _, err := h.deps.Sentinels.Register(ctx, who.ID, domain.TriggerInventory, action, meta); err != nil {
		return Result{}, err
	}
	title := fmt.Sprintf("%s (Area %d)", label, area)
	display := strings.ReplaceAll(name, "_", " ")
	if snoop != "" {
		return Reply(normal("Busybody, eh? Okay, I'll check next time they open their inventory.", title)), nil
	}
	if action == domain.ActionCanCraft {
		return Reply(normal("Okay, the next time I see your inventory, I'll tell you whether you can craft `"+display+"`.", title)), nil
	}
	return Reply(normal("Okay, the next time I see your inventory, I'll count how many `"+display+"` you can craft.", title)), nil
}

type statKind struct {
	long, short string
}

var statKinds = map[string]statKind{
	"gambling": {"gambling", "g"},
	"g":        {"gambling", "g"},
	"drops":    {"drops", "dr"},
	"dr":       {"drops", "dr"},
	"hunts":    {"hunts", "hu"},
	"hu":       {"hunts", "hu"},
}

func statTokens() []string {
	return []string{"gambling", "g", "drops", "dr", "hunts", "hu"}
}

func (h *handlers) statsNamespace(_ context.Context, c *Context) (Result, error) {
	if len(c.Tokens) == 1 {
		return Reply(helpCard("help.stats_namespace", nil)), nil
	}
	return Rewrite(c.Tokens[1:]), nil
}

func (h *handlers) stats(ctx context.Context, c *Context) (Result, error) {
	kind, ok := statKinds[c.Entry()]
	if !ok {
		return Result{}, errUnparsed
	}
	if c.Help {
		return Reply(helpCard("help.stats", map[string]any{"Long": kind.long, "Short": kind.short})), nil
	}
	tokens := c.Tokens
	profile := c.Player
	var (
		minutes   int64
		all       bool
		mentioned bool
	)
	if len(tokens) > 1 {
		p, err := h.mentioned(ctx, c, tokens[len(tokens)-1])
		if err != nil {
			return Result{}, err
		}
		switch {
		case p != nil:
			profile, mentioned = p, true
			tokens = tokens[:len(tokens)-1]
		case tokens[len(tokens)-1] == "all":
			all = true
			tokens = tokens[:len(tokens)-1]
		}
		if n, ok := tokenize.Int(tokens[len(tokens)-1]); ok && len(tokens) > 1 {
			minutes = n
		}
		if !mentioned && minutes == 0 && !all {
			return Result{}, titledError(KindUserInput, "Stats Usage Error", fmt.Sprintf(
				"`rcd %s` is not valid invocation of `rcd %s`. Example usage: `rcd %s 5 @player`",
				joinTokens(c.Tokens), kind.long, kind.short))
		}
	}

	scope := store.StatsScope{PlayerID: profile.ID}
	name := profile.Nickname
	if all {
		scope = store.StatsScope{ServerID: c.Server.ID}
		name = c.Server.Name
	}
	if minutes > 0 {
		scope.Since = h.deps.Now().Add(-time.Duration(minutes) * time.Minute)
	}
	return Later(func(ctx context.Context) ([]gateway.Message, error) {
		card, err := h.statsCard(ctx, kind.long, name, scope)
		if err != nil {
			return nil, err
		}
		return []gateway.Message{{Card: card}}, nil
	}), nil
}

func (h *handlers) statsCard(ctx context.Context, long, name string, scope store.StatsScope) (*gateway.Card, error) {
	switch long {
	case "gambling":
		rows, err := h.deps.Store.GambleStats(ctx, scope)
		if err != nil {
			return nil, err
		}
		card := normal("", name+"'s Gambling Addiction")
		for _, r := range rows {
			card.Fields = append(card.Fields, gateway.Field{
				Name: r.Game,
				Value: fmt.Sprintf("Played %d, won %d, lost %d, tied %d\nNet: %s coins",
					r.Played, r.Won, r.Lost, r.Tied, signed(r.Net)),
				Inline: true,
			})
		}
		if len(rows) == 0 {
			card.Body = "No gambling recorded."
		}
		return card, nil
	case "hunts":
		sum, top, err := h.deps.Store.HuntStats(ctx, scope, 5)
		if err != nil {
			return nil, err
		}
		card := normal("", name+"'s Carnage")
		card.Fields = []gateway.Field{{
			Name:  "Totals",
			Value: fmt.Sprintf("%d hunts, %d coins, %d XP", sum.Hunts, sum.Money, sum.XP),
		}}
		if len(top) > 0 {
			card.Fields = append(card.Fields, gateway.Field{Name: "Favorite Prey", Value: countLines(top)})
		}
		return card, nil
	default:
		rows, err := h.deps.Store.DropStats(ctx, scope)
		if err != nil {
			return nil, err
		}
		card := normal("", name+"'s Drops")
		if len(rows) == 0 {
			card.Body = "No drops recorded."
		} else {
			card.Fields = []gateway.Field{{Name: "Drops", Value: countLines(rows)}}
		}
		return card, nil
	}
}

func countLines(rows []store.CountRow) string {
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "`%-20s` %d\n", r.Name, r.Count)
	}
	return b.String()
}

func signed(n int64) string {
	if n > 0 {
		return "+" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}
