package domain

import "strings"

// ActionType names a recurring game action with its own cooldown.
type ActionType string

const (
	Daily     ActionType = "daily"
	Weekly    ActionType = "weekly"
	Lootbox   ActionType = "lootbox"
	Vote      ActionType = "vote"
	Hunt      ActionType = "hunt"
	Adventure ActionType = "adventure"
	Farm      ActionType = "farm"
	Quest     ActionType = "quest"
	Training  ActionType = "training"
	Duel      ActionType = "duel"
	Work      ActionType = "work"
	Horse     ActionType = "horse"
	Arena     ActionType = "arena"
	Dungeon   ActionType = "dungeon"
	Guild     ActionType = "guild"
	Pet       ActionType = "pet"
)

// ActionTypes lists every type in display order. Positions are stable and
// double as bit positions in Player.MutedTypes.
var ActionTypes = []ActionType{
	Daily, Weekly, Lootbox, Vote, Hunt, Adventure, Farm, Quest,
	Training, Duel, Work, Horse, Arena, Dungeon, Guild, Pet,
}

// ParseActionType accepts a case-insensitive type name.
func ParseActionType(s string) (ActionType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range ActionTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Bit returns the mask bit for the type, or 0 for an unknown type.
func (t ActionType) Bit() uint32 {
	for i, at := range ActionTypes {
		if at == t {
			return 1 << uint(i)
		}
	}
	return 0
}

// Title returns the display form, e.g. "Daily".
func (t ActionType) Title() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}
