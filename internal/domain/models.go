package domain

import "time"

// Server is a chat server (guild) that may use the bot once it redeems a
// join code.
type Server struct {
	ID        string  `gorm:"primaryKey;size:32"`
	Name      string  `gorm:"size:250"`
	JoinCode  *string `gorm:"size:64"`
	Active    bool    `gorm:"not null"`
	CreatedAt time.Time
}

// Registered reports whether the server has redeemed a join code.
func (s *Server) Registered() bool { return s != nil && s.JoinCode != nil && *s.JoinCode != "" }

type JoinCode struct {
	ID        uint   `gorm:"primaryKey"`
	Code      string `gorm:"uniqueIndex;size:64"`
	Claimed   bool   `gorm:"not null"`
	ServerID  *string
	CreatedAt time.Time
}

type Channel struct {
	ID       string `gorm:"primaryKey;size:32"`
	ServerID string `gorm:"index;size:32"`
	Name     string `gorm:"size:250"`
}

// Player is a chat user profile. MutedTypes holds one bit per ActionType;
// zero means every reminder is enabled.
type Player struct {
	ID         string  `gorm:"primaryKey;size:32"`
	ServerID   string  `gorm:"index;size:32"`
	ChannelID  string  `gorm:"size:32"`
	Nickname   string  `gorm:"size:250"`
	GuildName  *string `gorm:"index;size:50"`
	PartnerID  *string `gorm:"size:32"`
	Multiplier *float64
	Timezone   string `gorm:"size:64"`
	TimeFormat string `gorm:"size:50"`
	Notify     bool   `gorm:"not null"`
	MutedTypes uint32 `gorm:"not null"`
	Banned     bool   `gorm:"not null"`
	Admin      bool   `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Profile defaults.
const (
	DefaultTimezone   = "America/Chicago"
	DefaultTimeFormat = "%I:%M:%S %p, %m/%d"
	MaxTimeFormatLen  = 50
)

// Enabled reports whether reminders for t are on.
func (p *Player) Enabled(t ActionType) bool { return p.MutedTypes&t.Bit() == 0 }

// SetEnabled toggles reminders for t.
func (p *Player) SetEnabled(t ActionType, on bool) {
	if on {
		p.MutedTypes &^= t.Bit()
	} else {
		p.MutedTypes |= t.Bit()
	}
}

// Location returns the player's time zone, falling back to UTC.
func (p *Player) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Format returns the player's strftime layout.
func (p *Player) Format() string {
	if p.TimeFormat == "" {
		return DefaultTimeFormat
	}
	return p.TimeFormat
}

// CooldownRecord is a pending reminder. At most one exists per
// (PlayerID, Type).
type CooldownRecord struct {
	ID       uint       `gorm:"primaryKey"`
	PlayerID string     `gorm:"uniqueIndex:idx_cooldown_player_type;size:32;not null"`
	Type     ActionType `gorm:"uniqueIndex:idx_cooldown_player_type;size:16;not null"`
	ReadyAt  time.Time  `gorm:"index;not null"`
}

func (CooldownRecord) TableName() string { return "cooldowns" }

// GuildRaid tracks the shared raid cooldown of an in-game guild.
type GuildRaid struct {
	Name          string `gorm:"primaryKey;size:50"`
	ChannelID     string `gorm:"size:32"`
	ReadyAt       *time.Time
	DibbsPlayerID *string `gorm:"size:32"`
}

// Event is a time-boxed cooldown overlay. Adjustments replace base durations
// in seconds, Multipliers scale them.
type Event struct {
	ID          uint                   `gorm:"primaryKey"`
	Name        string                 `gorm:"uniqueIndex;size:128"`
	Start       time.Time              `gorm:"column:starts_at;not null"`
	End         time.Time              `gorm:"column:ends_at;not null"`
	Adjustments map[ActionType]int64   `gorm:"serializer:json"`
	Multipliers map[ActionType]float64 `gorm:"serializer:json"`
}

// SentinelTrigger identifies the kind of observation that fires a sentinel.
type SentinelTrigger int

const (
	TriggerInventory SentinelTrigger = iota
)

// Sentinel actions.
const (
	ActionLogs     = "logs"
	ActionCanCraft = "can_craft"
	ActionHowMany  = "how_many"
)

// SentinelMeta carries action parameters.
type SentinelMeta struct {
	Area   int            `json:"area,omitempty"`
	Snoop  string         `json:"snoop,omitempty"`
	Recipe map[string]int `json:"recipe,omitempty"`
	Name   string         `json:"name,omitempty"`
}

// Sentinel is a one-shot watch on a player's next observation of Trigger.
type Sentinel struct {
	ID        uint            `gorm:"primaryKey"`
	PlayerID  string          `gorm:"index:idx_sentinel_player_trigger;size:32"`
	Trigger   SentinelTrigger `gorm:"column:trigger_kind;index:idx_sentinel_player_trigger"`
	Action    string          `gorm:"size:32"`
	Metadata  SentinelMeta    `gorm:"serializer:json"`
	CreatedAt time.Time
}

type GambleRecord struct {
	ID        uint    `gorm:"primaryKey"`
	PlayerID  *string `gorm:"index;size:32"`
	Game      string  `gorm:"size:16"`
	Outcome   string  `gorm:"size:8"`
	Net       int64
	CreatedAt time.Time `gorm:"index"`
}

type HuntRecord struct {
	ID        uint    `gorm:"primaryKey"`
	PlayerID  *string `gorm:"index;size:32"`
	Target    *string `gorm:"size:64"`
	Money     *int64
	XP        *int64
	Loot      *string   `gorm:"size:64"`
	CreatedAt time.Time `gorm:"index"`
}

// Drops lists the loot names tracked by drop statistics.
var Drops = []string{"wolf skin", "zombie eye", "unicorn horn", "mermaid hair", "chip", "dragon scale"}
