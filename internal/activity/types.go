package activity

import (
	"time"

	"github.com/park285/epic-reminder-bot/internal/domain"
)

// Activity kinds as they appear in game bot cards.
const (
	KindHorse    = "horse"
	KindDungeon  = "dungeon"
	KindMiniboss = "miniboss"
	KindArena    = "arena"
	KindDuel     = "duel"
)

// Kinds lists every group activity kind.
var Kinds = []string{KindHorse, KindDungeon, KindMiniboss, KindArena, KindDuel}

// Activity is a proposed group action waiting for the game bot to confirm
// it. Stored as JSON in Redis under ga:<id>.
type Activity struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	InitiatorID   string    `json:"initiator_id"`
	InitiatorName string    `json:"initiator_name"`
	ChannelID     string    `json:"channel_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// CooldownType is the action type written on confirmation. Minibosses share
// the dungeon cooldown.
func (a *Activity) CooldownType() domain.ActionType {
	if a.Kind == KindMiniboss {
		return domain.Dungeon
	}
	return domain.ActionType(a.Kind)
}

// Confirmation is the result of fanning out a confirmed activity.
type Confirmation struct {
	Activity *Activity
	ReadyAt  time.Time
	// Players are the ids a record was attempted for, initiator first.
	Players []string
	Written int64
}

// Errors
var (
	ErrInvalidArgs = errf("invalid arguments")
	ErrUnknownKind = errf("unknown group activity kind")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }
