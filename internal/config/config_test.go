package config

import (
	"testing"
	"time"
)

func setBase(t *testing.T) {
	t.Helper()
	t.Setenv("GATEWAY", "discord")
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
}

func TestFromEnvDefaults(t *testing.T) {
	setBase(t)
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.CommandPrefix != "rcd" {
		t.Fatalf("prefix = %q", cfg.CommandPrefix)
	}
	if cfg.SchedulerInterval != 5*time.Second {
		t.Fatalf("interval = %v", cfg.SchedulerInterval)
	}
	if cfg.ActivityStaleAfter != time.Minute {
		t.Fatalf("stale = %v", cfg.ActivityStaleAfter)
	}
	if cfg.DatabaseDriver != "sqlite" {
		t.Fatalf("driver = %q", cfg.DatabaseDriver)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	setBase(t)
	t.Setenv("ADMIN_USER_IDS", " 1, 2 ,,3")
	t.Setenv("SCHEDULER_INTERVAL", "2s")
	t.Setenv("HANDLER_WORKERS", "4")
	t.Setenv("SEND_RATE", "0.5")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if len(cfg.AdminUserIDs) != 3 || !cfg.IsAdmin("2") || cfg.IsAdmin("4") {
		t.Fatalf("admins = %v", cfg.AdminUserIDs)
	}
	if cfg.SchedulerInterval != 2*time.Second || cfg.HandlerWorkers != 4 || cfg.SendRate != 0.5 {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
}

func TestFromEnvValidation(t *testing.T) {
	setBase(t)
	t.Setenv("DISCORD_TOKEN", "")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error without DISCORD_TOKEN")
	}

	setBase(t)
	t.Setenv("GATEWAY", "relay")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error without relay urls")
	}
	t.Setenv("RELAY_BASE_URL", "http://relay")
	t.Setenv("RELAY_WS_URL", "ws://relay/ws")
	if _, err := FromEnv(); err != nil {
		t.Fatalf("relay config: %v", err)
	}

	setBase(t)
	t.Setenv("DATABASE_DRIVER", "mysql")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestChannelAllowed(t *testing.T) {
	c := &AppConfig{}
	if !c.ChannelAllowed("x") {
		t.Fatalf("empty allow list should allow everything")
	}
	c.AllowedChannels = []string{"a"}
	if c.ChannelAllowed("x") || !c.ChannelAllowed("a") {
		t.Fatalf("allow list not applied")
	}
}

func TestLoadStorage(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/epic")
	driver, dsn, err := LoadStorage()
	if err != nil {
		t.Fatalf("LoadStorage: %v", err)
	}
	if driver != "postgres" || dsn != "postgres://localhost/epic" {
		t.Fatalf("got %q %q", driver, dsn)
	}
}
