// Package cooldown holds the action cooldown tables, the duration grammar
// used by game cards, and the event overlay resolver.
package cooldown

import (
	"time"

	"github.com/park285/epic-reminder-bot/internal/domain"
)

// Table maps each action type to its cooldown duration.
type Table map[domain.ActionType]time.Duration

var base = Table{
	domain.Daily:     24 * time.Hour,
	domain.Weekly:    7 * 24 * time.Hour,
	domain.Lootbox:   3 * time.Hour,
	domain.Vote:      12 * time.Hour,
	domain.Hunt:      60 * time.Second,
	domain.Adventure: 60 * time.Minute,
	domain.Farm:      10 * time.Minute,
	domain.Quest:     6 * time.Hour,
	domain.Training:  15 * time.Minute,
	domain.Duel:      2 * time.Hour,
	domain.Work:      5 * time.Minute,
	domain.Horse:     24 * time.Hour,
	domain.Arena:     24 * time.Hour,
	domain.Dungeon:   12 * time.Hour,
	domain.Guild:     2 * time.Hour,
	domain.Pet:       4 * time.Hour,
}

var reminders = map[domain.ActionType]string{
	domain.Daily:     "Time for your daily! :sun_with_face:",
	domain.Weekly:    "Looks like it's that time of the week... :newspaper:",
	domain.Lootbox:   "Lootbox! :moneybag:",
	domain.Vote:      "You can vote again. :ballot_box:",
	domain.Hunt:      "is on the hunt! :crossed_swords:",
	domain.Adventure: "Let's go on an adventure! :woman_running:",
	domain.Farm:      "Is plantin' some seed. :farmer:",
	domain.Quest:     "The townspeople need our help! ",
	domain.Training:  "want to get buff? :man_lifting_weights:",
	domain.Duel:      "It's time to d-d-d-d-duel! :crossed_swords:",
	domain.Work:      "Get back to work. :pick:",
	domain.Horse:     "Pie-O-My! :horse_racing:",
	domain.Arena:     "Heeyyyy lets go hurt each other. :circus_tent:",
	domain.Dungeon:   "Can you reach the next area? :dragon_face:",
	domain.Guild:     "Hey, those people are different! Get 'em! :shield:",
	domain.Pet:       "What's that? Little Timmy fell down a well? :cat2:",
}

// exempt types never have a player multiplier applied.
var exempt = map[domain.ActionType]bool{
	domain.Daily:   true,
	domain.Weekly:  true,
	domain.Duel:    true,
	domain.Lootbox: true,
	domain.Vote:    true,
	domain.Pet:     true,
}

// Base returns a copy of the default duration table.
func Base() Table {
	out := make(Table, len(base))
	for k, v := range base {
		out[k] = v
	}
	return out
}

// BaseDuration returns the default duration for t.
func BaseDuration(t domain.ActionType) (time.Duration, bool) {
	d, ok := base[t]
	return d, ok
}

// ReminderText returns the notification text for t.
func ReminderText(t domain.ActionType) string { return reminders[t] }

// Exempt reports whether player multipliers leave t unchanged.
func Exempt(t domain.ActionType) bool { return exempt[t] }
