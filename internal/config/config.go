package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Gateway kinds.
const (
	GatewayDiscord = "discord"
	GatewayRelay   = "relay"
)

type AppConfig struct {
	Gateway string

	DiscordToken string

	RelayBaseURL   string
	RelayWSURL     string
	RelayTransport string
	RelayDryRun    bool

	XUserID    string
	XUserEmail string
	XSessionID string

	// GameBotID is the user id of the game bot whose cards are observed.
	// Empty means any bot author is treated as the game bot.
	GameBotID string

	CommandPrefix string

	DatabaseDriver string
	DatabaseURL    string
	RedisURL       string

	AdminUserIDs    []string
	AllowedChannels []string

	SchedulerInterval  time.Duration
	ActivityStaleAfter time.Duration
	HandlerWorkers     int
	SendRate           float64
	SendBurst          int

	EventsFile  string
	CraftingURL string
	OpsAddr     string
	MsgcatDir   string
}

const (
	defaultDatabaseDriver = "sqlite"
	defaultDatabaseURL    = "file:epic-reminder.db?_pragma=busy_timeout(5000)"
)

// LoadStorage reads only the database settings, for commands that never
// connect to a chat platform.
func LoadStorage() (driver, dsn string, err error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", "", fmt.Errorf("load .env: %w", err)
	}
	driver, dsn = defaultDatabaseDriver, defaultDatabaseURL
	if v := env("DATABASE_DRIVER"); v != "" {
		driver = strings.ToLower(v)
	}
	if v := env("DATABASE_URL"); v != "" {
		dsn = v
	}
	return driver, dsn, nil
}

// Load reads the process environment. An optional .env file in the working
// directory is applied first without overriding variables already set.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from the environment only.
func FromEnv() (*AppConfig, error) {
	cfg := &AppConfig{
		Gateway:            GatewayDiscord,
		RelayTransport:     "http",
		CommandPrefix:      "rcd",
		DatabaseDriver:     defaultDatabaseDriver,
		DatabaseURL:        defaultDatabaseURL,
		SchedulerInterval:  5 * time.Second,
		ActivityStaleAfter: 60 * time.Second,
		HandlerWorkers:     16,
		SendRate:           5,
		SendBurst:          5,
	}

	if v := env("GATEWAY"); v != "" {
		cfg.Gateway = strings.ToLower(v)
	}
	cfg.DiscordToken = env("DISCORD_TOKEN")

	cfg.RelayBaseURL = env("RELAY_BASE_URL")
	cfg.RelayWSURL = env("RELAY_WS_URL")
	if v := env("RELAY_TRANSPORT"); v != "" {
		cfg.RelayTransport = strings.ToLower(v)
	}
	if v := env("RELAY_DRYRUN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RelayDryRun = b
		}
	}

	cfg.XUserID = env("X_USER_ID")
	cfg.XUserEmail = env("X_USER_EMAIL")
	cfg.XSessionID = env("X_SESSION_ID")

	cfg.GameBotID = env("GAME_BOT_ID")
	if v := env("COMMAND_PREFIX"); v != "" {
		cfg.CommandPrefix = strings.ToLower(v)
	}

	if v := env("DATABASE_DRIVER"); v != "" {
		cfg.DatabaseDriver = strings.ToLower(v)
	}
	if v := env("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	cfg.RedisURL = env("REDIS_URL")

	cfg.AdminUserIDs = splitList(env("ADMIN_USER_IDS"))
	cfg.AllowedChannels = splitList(env("ALLOWED_CHANNELS"))

	if v := env("SCHEDULER_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SchedulerInterval = d
		}
	}
	if v := env("ACTIVITY_STALE_AFTER"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ActivityStaleAfter = d
		}
	}
	if v := env("HANDLER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HandlerWorkers = n
		}
	}
	if v := env("SEND_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.SendRate = f
		}
	}
	if v := env("SEND_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SendBurst = n
		}
	}

	cfg.EventsFile = env("EVENTS_FILE")
	cfg.CraftingURL = env("CRAFTING_URL")
	cfg.OpsAddr = env("OPS_ADDR")
	cfg.MsgcatDir = env("MSGCAT_DIR")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Gateway {
	case GatewayDiscord:
		if c.DiscordToken == "" {
			return errors.New("DISCORD_TOKEN is required for the discord gateway")
		}
	case GatewayRelay:
		if c.RelayBaseURL == "" {
			return errors.New("RELAY_BASE_URL is required for the relay gateway")
		}
		if c.RelayWSURL == "" {
			return errors.New("RELAY_WS_URL is required for the relay gateway")
		}
	default:
		return fmt.Errorf("unknown GATEWAY %q", c.Gateway)
	}
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.RedisURL == "" {
		return errors.New("REDIS_URL is required")
	}
	return nil
}

// IsAdmin reports whether the user id is configured as an administrator.
func (c *AppConfig) IsAdmin(userID string) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ChannelAllowed reports whether events from the channel should be handled.
func (c *AppConfig) ChannelAllowed(channelID string) bool {
	if len(c.AllowedChannels) == 0 {
		return true
	}
	for _, ch := range c.AllowedChannels {
		if ch == channelID {
			return true
		}
	}
	return false
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
