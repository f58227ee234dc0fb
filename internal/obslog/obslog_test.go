package obslog

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitWritesFile(t *testing.T) {
	defer Set(nil)
	path := filepath.Join(t.TempDir(), "nested", "bot.log")
	if err := Init(Options{Level: "info", ToFile: true, Format: "json", File: path}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	L().Info("hello_file", zap.String("k", "v"))
	Sync()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(raw) == 0 {
		t.Fatalf("expected log output in %s", path)
	}
}

func TestSetAndNamed(t *testing.T) {
	defer Set(nil)
	core, logs := observer.New(zapcore.InfoLevel)
	Set(zap.New(core))
	Named("scheduler").Info("tick")
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].LoggerName != "scheduler" {
		t.Fatalf("logger name = %q", entries[0].LoggerName)
	}
}
