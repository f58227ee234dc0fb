package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedRender(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("reminder.cooldown", map[string]any{"PlayerID": "42", "Text": "Lootbox! :moneybag:", "Title": "Lootbox"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "<@!42> Lootbox! :moneybag: (**Lootbox**)" {
		t.Fatalf("got %q", got)
	}
	for _, k := range []string{"help.main", "help.cd", "help.event", "info.bot", "sentinel.logs"} {
		if !c.Has(k) {
			t.Fatalf("missing key %s", k)
		}
	}
}

func TestGuildReminderDibbs(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("reminder.guild", map[string]any{"PlayerID": "1", "Text": "raid", "Dibbs": "2"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.HasSuffix(got, "<@!2> has dibbs!") {
		t.Fatalf("got %q", got)
	}
	got, _ = c.Render("reminder.guild", map[string]any{"PlayerID": "1", "Text": "raid", "Dibbs": ""})
	if strings.Contains(got, "dibbs") {
		t.Fatalf("unexpected dibbs: %q", got)
	}
}

func TestMissingKeyErrors(t *testing.T) {
	c, _ := New("")
	if _, err := c.Render("reminder.cooldown", map[string]any{"PlayerID": "1"}); err == nil {
		t.Fatalf("expected missingkey error")
	}
	if _, err := c.Render("nope.nope", nil); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("sentinel:\n  snoop: \"psst {{.Nickname}}\"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("sentinel.snoop", map[string]any{"Nickname": "kev"})
	if err != nil || got != "psst kev" {
		t.Fatalf("Render = %q, %v", got, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("sentinel:\n  snoop: dup\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected duplicate key error")
	}
}

func TestTFallsBackToKey(t *testing.T) {
	if got := T("does.not.exist", nil); got != "does.not.exist" {
		t.Fatalf("T = %q", got)
	}
}
