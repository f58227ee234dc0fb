// Package extract turns game bot cards into cooldown facts and other
// observations. Cards that match a cue but not its pattern yield nothing.
package extract

import (
	"time"

	"github.com/park285/epic-reminder-bot/internal/domain"
)

// Field is one named section of a card.
type Field struct {
	Name  string
	Value string
}

// Response is a message posted by the game bot.
type Response struct {
	AuthorName    string
	AuthorIconURL string
	Title         string
	Description   string
	Footer        string
	Fields        []Field
	// Content is the plain text body, used by hunt results.
	Content string
}

// Kind is the extraction path a response was classified into.
type Kind int

const (
	KindNone Kind = iota
	KindBulk
	KindSingle
	KindPets
	KindInventory
	KindGamble
	KindGroup
	KindHunt
	KindGuildList
)

func (k Kind) String() string {
	switch k {
	case KindBulk:
		return "bulk"
	case KindSingle:
		return "single"
	case KindPets:
		return "pets"
	case KindInventory:
		return "inventory"
	case KindGamble:
		return "gamble"
	case KindGroup:
		return "group"
	case KindHunt:
		return "hunt"
	case KindGuildList:
		return "guild_list"
	}
	return "none"
}

// Fact says a player may use an action again at ReadyAt.
type Fact struct {
	Type    domain.ActionType
	ReadyAt time.Time
}

// Gamble is the outcome of a chance game.
type Gamble struct {
	Game    string
	Outcome string
	Net     int64
}

// Group is a candidate confirmation for a group activity.
type Group struct {
	// Activity is horse, dungeon, miniboss, arena or duel.
	Activity    string
	Description string
	Footer      string
}

// Hunt is one player's part of a hunt result message.
type Hunt struct {
	Name   string
	Target string
	Money  int64
	XP     int64
	Loot   string
}

// GuildRoster is one page of a guild's member list.
type GuildRoster struct {
	// Name is lowercased, as guild names are stored.
	Name  string
	IDs   []string
	Names []string
}

// Inventory maps item keys such as "wooden_log" to counts.
type Inventory map[string]int64

// Result is everything extracted from one response.
type Result struct {
	Kind     Kind
	PlayerID string

	Updates   []Fact
	Evictions []domain.ActionType
	// GuildReadyAt is set when the card reports the player's guild raid.
	GuildReadyAt *time.Time

	Gamble    *Gamble
	Inventory Inventory
	Group     *Group
	Hunts     []Hunt
	Roster    *GuildRoster
}

// Empty reports whether nothing was extracted.
func (r Result) Empty() bool {
	return len(r.Updates) == 0 && len(r.Evictions) == 0 && r.GuildReadyAt == nil &&
		r.Gamble == nil && r.Inventory == nil && r.Group == nil && len(r.Hunts) == 0 &&
		r.Roster == nil
}
