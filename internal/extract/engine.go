package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/park285/epic-reminder-bot/internal/cooldown"
	"github.com/park285/epic-reminder-bot/internal/domain"
)

// DungeonFooter marks a dungeon card regardless of its author label.
const DungeonFooter = "you are in a dungeon! So no, you cant just drink a potion"

var (
	avatarRe      = regexp.MustCompile(`/avatars/(\d+)/`)
	onCooldownRe  = regexp.MustCompile(":clock4: ~-~ \\*\\*`([^`]*)`\\*\\*")
	offCooldownRe = regexp.MustCompile(":white_check_mark: ~-~ \\*\\*`([^`]*)`\\*\\*")
	gameRe        = regexp.MustCompile(`(blackjack|dice|slots|coinflip)`)
	outcomeRe     = regexp.MustCompile(`(won|lost) (?:\*{2})?([0-9,]+)(?:\*{2})? coins`)
)

const tieCue = "it's a tie lmao"

var gameCodes = map[string]string{
	"blackjack": "bj",
	"dice":      "dice",
	"slots":     "slots",
	"coinflip":  "cf",
}

// groupActivities are checked in order against the author label.
var groupActivities = []string{"miniboss", "horse", "dungeon", "arena", "duel"}

// Engine classifies responses and runs the matching extraction path.
type Engine struct {
	now func() time.Time
}

func New() *Engine { return &Engine{now: time.Now} }

// WithClock replaces the time source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// PlayerID reads the user id out of an avatar URL.
func PlayerID(iconURL string) string {
	if m := avatarRe.FindStringSubmatch(iconURL); m != nil {
		return m[1]
	}
	return ""
}

// Classify picks the extraction path for r.
func Classify(r Response) Kind {
	if strings.Contains(r.Footer, DungeonFooter) {
		return KindGroup
	}
	if rosterName(r) != "" {
		return KindGuildList
	}
	label := strings.ToLower(r.AuthorName)
	if label == "" {
		if r.Content != "" && huntTargetRe.MatchString(r.Content) {
			return KindHunt
		}
		return KindNone
	}
	switch {
	case strings.Contains(label, "cooldowns"), strings.Contains(label, "ready"):
		return KindBulk
	case strings.Contains(label, "cooldown"):
		return KindSingle
	case strings.Contains(label, "'s pets"):
		return KindPets
	case strings.Contains(label, "'s inventory"):
		return KindInventory
	case gameRe.MatchString(label):
		return KindGamble
	}
	for _, a := range groupActivities {
		if strings.Contains(label, a) {
			return KindGroup
		}
	}
	return KindNone
}

// Extract runs the extraction path for r. command is the action type of the
// player's originating command when the caller knows it.
func (e *Engine) Extract(r Response, command domain.ActionType) Result {
	res := Result{Kind: Classify(r), PlayerID: PlayerID(r.AuthorIconURL)}
	now := e.now().UTC()
	switch res.Kind {
	case KindBulk:
		e.bulk(&res, r, now)
	case KindSingle:
		e.single(&res, r, command, now)
	case KindPets:
		e.pets(&res, r, now)
	case KindInventory:
		res.Inventory = ParseInventory(fieldValues(r)...)
	case KindGamble:
		res.Gamble = parseGamble(r)
	case KindGroup:
		res.Group = parseGroup(r)
	case KindHunt:
		res.Hunts = ParseHunts(r.Content)
	case KindGuildList:
		res.Roster = parseRoster(r)
	}
	return res
}

func (e *Engine) bulk(res *Result, r Response, now time.Time) {
	remaining := make(map[domain.ActionType]bool, len(domain.ActionTypes))
	for _, t := range domain.ActionTypes {
		remaining[t] = true
	}
	for _, f := range r.Fields {
		for _, line := range strings.Split(f.Name+"\n"+f.Value, "\n") {
			if loc := onCooldownRe.FindStringSubmatchIndex(line); loc != nil {
				label := strings.ToLower(line[loc[2]:loc[3]])
				d, ok := cooldown.ParseDuration(line[loc[1]:])
				if !ok {
					continue
				}
				for _, t := range typesFor(label, remaining) {
					at := now.Add(d)
					if t == domain.Guild {
						res.GuildReadyAt = &at
						continue
					}
					res.Updates = append(res.Updates, Fact{Type: t, ReadyAt: at})
				}
				continue
			}
			if m := offCooldownRe.FindStringSubmatch(line); m != nil {
				for _, t := range typesFor(strings.ToLower(m[1]), remaining) {
					if t == domain.Guild {
						continue
					}
					res.Evictions = append(res.Evictions, t)
				}
			}
		}
	}
}

// typesFor returns the first unconsumed type named in label, in table order,
// plus work for labels listing "mine". Each type is consumed once per card.
func typesFor(label string, remaining map[domain.ActionType]bool) []domain.ActionType {
	var out []domain.ActionType
	for _, t := range domain.ActionTypes {
		if remaining[t] && strings.Contains(label, string(t)) {
			remaining[t] = false
			out = append(out, t)
			break
		}
	}
	if strings.Contains(label, "mine") && remaining[domain.Work] {
		remaining[domain.Work] = false
		out = append(out, domain.Work)
	}
	return out
}

func (e *Engine) single(res *Result, r Response, command domain.ActionType, now time.Time) {
	d, ok := cooldown.ParseDuration(r.Title)
	if !ok {
		return
	}
	t := command
	if t == "" {
		if t, ok = cooldown.ResolveResponse(r.Title); !ok {
			return
		}
	}
	at := now.Add(d)
	if t == domain.Guild {
		res.GuildReadyAt = &at
		return
	}
	res.Updates = append(res.Updates, Fact{Type: t, ReadyAt: at})
}

func (e *Engine) pets(res *Result, r Response, now time.Time) {
	var soonest time.Duration
	found := false
	for _, v := range fieldValues(r) {
		for _, d := range cooldown.FindDurations(v) {
			if !found || d < soonest {
				soonest, found = d, true
			}
		}
	}
	if found {
		res.Updates = append(res.Updates, Fact{Type: domain.Pet, ReadyAt: now.Add(soonest)})
	}
}

func parseGamble(r Response) *Gamble {
	m := gameRe.FindStringSubmatch(strings.ToLower(r.AuthorName))
	if m == nil {
		return nil
	}
	game := m[1]
	code := gameCodes[game]
	if game == "slots" {
		return outcome(code, r.Description)
	}
	var g *Gamble
	for _, f := range r.Fields {
		if found := outcome(code, f.Name); found != nil {
			g = found
		} else if found := outcome(code, f.Value); found != nil {
			g = found
		} else if strings.Contains(f.Name, tieCue) {
			g = &Gamble{Game: code, Outcome: "tied"}
		}
	}
	return g
}

func outcome(code, text string) *Gamble {
	m := outcomeRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(m[2], ",", ""), 10, 64)
	if err != nil {
		return nil
	}
	if m[1] == "lost" {
		n = -n
	}
	return &Gamble{Game: code, Outcome: m[1], Net: n}
}

func parseGroup(r Response) *Group {
	if strings.Contains(r.Footer, DungeonFooter) {
		return &Group{Activity: "dungeon", Description: r.Description, Footer: r.Footer}
	}
	label := strings.ToLower(r.AuthorName)
	for _, a := range groupActivities {
		if strings.Contains(label, a) {
			return &Group{Activity: a, Description: r.Description, Footer: r.Footer}
		}
	}
	return nil
}

func fieldValues(r Response) []string {
	out := make([]string, 0, len(r.Fields))
	for _, f := range r.Fields {
		out = append(out, f.Value)
	}
	return out
}
