package cooldown

import (
	"regexp"
	"strings"

	"github.com/park285/epic-reminder-bot/internal/domain"
)

var petAdventureRe = regexp.MustCompile(`^(adv|adventure) (find|learn|drill) [a-z]{1,2}`)

func always(t domain.ActionType) func(string) domain.ActionType {
	return func(string) domain.ActionType { return t }
}

func when(t domain.ActionType, subs ...string) func(string) domain.ActionType {
	return func(args string) domain.ActionType {
		for _, s := range subs {
			if strings.Contains(args, s) {
				return t
			}
		}
		return ""
	}
}

func petAdventure(args string) domain.ActionType {
	if petAdventureRe.MatchString(args) {
		return domain.Pet
	}
	return ""
}

// commands maps the first word of a game command to a resolver over the
// remaining words.
var commands = map[string]func(string) domain.ActionType{
	"daily":      always(domain.Daily),
	"weekly":     always(domain.Weekly),
	"buy":        when(domain.Lootbox, "lootbox"),
	"vote":       always(domain.Vote),
	"hunt":       always(domain.Hunt),
	"adv":        always(domain.Adventure),
	"adventure":  always(domain.Adventure),
	"farm":       always(domain.Farm),
	"quest":      always(domain.Quest),
	"epic":       when(domain.Quest, "quest"),
	"tr":         always(domain.Training),
	"training":   always(domain.Training),
	"ultr":       always(domain.Training),
	"ultraining": always(domain.Training),
	"duel":       always(domain.Duel),
	"mine":       always(domain.Work),
	"pickaxe":    always(domain.Work),
	"drill":      always(domain.Work),
	"dynamite":   always(domain.Work),
	"pickup":     always(domain.Work),
	"ladder":     always(domain.Work),
	"tractor":    always(domain.Work),
	"greenhouse": always(domain.Work),
	"chop":       always(domain.Work),
	"axe":        always(domain.Work),
	"bowsaw":     always(domain.Work),
	"chainsaw":   always(domain.Work),
	"fish":       always(domain.Work),
	"net":        always(domain.Work),
	"boat":       always(domain.Work),
	"bigboat":    always(domain.Work),
	"horse":      when(domain.Horse, "training", "breeding", "race"),
	"arena":      always(domain.Arena),
	"big":        when(domain.Arena, "arena join"),
	"dung":       always(domain.Dungeon),
	"dungeon":    always(domain.Dungeon),
	"miniboss":   always(domain.Dungeon),
	"not":        when(domain.Dungeon, "so mini boss join"),
	"guild":      when(domain.Guild, "raid", "upgrade"),
	"pet":        petAdventure,
	"pets":       petAdventure,
}

// ResolveCommand maps the words of a game command (without the "rpg"
// prefix) to the action type it puts on cooldown.
func ResolveCommand(tokens []string) (domain.ActionType, bool) {
	if len(tokens) == 0 {
		return "", false
	}
	fn, ok := commands[tokens[0]]
	if !ok {
		return "", false
	}
	t := fn(strings.Join(tokens[1:], " "))
	return t, t != ""
}

type cue struct {
	text string
	typ  domain.ActionType
}

// responseCues is checked in order. Vote responses carry no cue.
var responseCues = []cue{
	{"have claimed your daily", domain.Daily},
	{"have claimed your weekly", domain.Weekly},
	{"have already bought a lootbox", domain.Lootbox},
	{"have already looked around", domain.Hunt},
	{"have already been in an adventure", domain.Adventure},
	{"have already farmed", domain.Farm},
	{"have already claimed a quest", domain.Quest},
	{"have trained already", domain.Training},
	{"have been in a duel recently", domain.Duel},
	{"have already got some resources", domain.Work},
	{"have used this command recently", domain.Horse},
	{"have started an arena recently", domain.Arena},
	{"have been in a fight with a boss", domain.Dungeon},
	{"guild has already raided", domain.Guild},
}

// ResolveResponse finds the action type named by a single cooldown card.
func ResolveResponse(text string) (domain.ActionType, bool) {
	text = strings.ToLower(text)
	for _, c := range responseCues {
		if strings.Contains(text, c.text) {
			return c.typ, true
		}
	}
	return "", false
}
