package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/park285/epic-reminder-bot/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	return New(db)
}

func seedPlayer(t *testing.T, s *Store, id string, notify bool) {
	t.Helper()
	ctx := context.Background()
	if err := s.db.FirstOrCreate(&domain.Server{ID: "srv", Name: "Server", Active: true}).Error; err != nil {
		t.Fatalf("seed server: %v", err)
	}
	p, _, err := s.Player(ctx, id, PlayerDefaults{ServerID: "srv", ChannelID: "chan-" + id, Nickname: id})
	if err != nil {
		t.Fatalf("Player: %v", err)
	}
	if notify {
		if err := s.UpdatePlayer(ctx, p.ID, map[string]any{"notify": true}); err != nil {
			t.Fatalf("UpdatePlayer: %v", err)
		}
	}
}

func snapshot(t *testing.T, s *Store) map[CooldownKey]time.Time {
	t.Helper()
	var rows []domain.CooldownRecord
	if err := s.db.Find(&rows).Error; err != nil {
		t.Fatalf("Find: %v", err)
	}
	out := map[CooldownKey]time.Time{}
	for _, r := range rows {
		k := CooldownKey{PlayerID: r.PlayerID, Type: r.Type}
		if _, dup := out[k]; dup {
			t.Fatalf("duplicate row for %+v", k)
		}
		out[k] = r.ReadyAt.UTC()
	}
	return out
}

func TestUpsertUniqueAndIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	batch := []domain.CooldownRecord{
		{PlayerID: "1", Type: domain.Hunt, ReadyAt: now.Add(time.Minute)},
		{PlayerID: "1", Type: domain.Daily, ReadyAt: now.Add(time.Hour)},
		{PlayerID: "1", Type: domain.Hunt, ReadyAt: now.Add(2 * time.Minute)},
		{PlayerID: "2", Type: domain.Hunt, ReadyAt: now.Add(3 * time.Minute)},
	}
	if err := s.Upsert(ctx, batch); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	first := snapshot(t, s)
	if len(first) != 3 {
		t.Fatalf("rows = %d", len(first))
	}
	if !first[CooldownKey{"1", domain.Hunt}].Equal(now.Add(2 * time.Minute)) {
		t.Fatalf("last entry should win: %v", first[CooldownKey{"1", domain.Hunt}])
	}

	if err := s.Upsert(ctx, batch); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	if diff := cmp.Diff(first, snapshot(t, s)); diff != "" {
		t.Fatalf("not idempotent (-first +second):\n%s", diff)
	}

	if err := s.Upsert(ctx, []domain.CooldownRecord{{PlayerID: "2", Type: domain.Hunt, ReadyAt: now}}); err != nil {
		t.Fatalf("Upsert overwrite: %v", err)
	}
	if got := snapshot(t, s)[CooldownKey{"2", domain.Hunt}]; !got.Equal(now) {
		t.Fatalf("overwrite = %v", got)
	}
}

func TestInsertIgnoreConflicts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	if err := s.Upsert(ctx, []domain.CooldownRecord{{PlayerID: "2", Type: domain.Duel, ReadyAt: now}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	n, err := s.InsertIgnoreConflicts(ctx, []domain.CooldownRecord{
		{PlayerID: "1", Type: domain.Duel, ReadyAt: now.Add(time.Hour)},
		{PlayerID: "2", Type: domain.Duel, ReadyAt: now.Add(time.Hour)},
	})
	if err != nil {
		t.Fatalf("InsertIgnoreConflicts: %v", err)
	}
	if n != 1 {
		t.Fatalf("inserted = %d", n)
	}
	snap := snapshot(t, s)
	if !snap[CooldownKey{"2", domain.Duel}].Equal(now) {
		t.Fatalf("existing row was overwritten")
	}
}

func TestEvict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	_ = s.Upsert(ctx, []domain.CooldownRecord{
		{PlayerID: "1", Type: domain.Hunt, ReadyAt: now},
		{PlayerID: "1", Type: domain.Farm, ReadyAt: now},
		{PlayerID: "2", Type: domain.Hunt, ReadyAt: now},
	})
	if err := s.Evict(ctx, []CooldownKey{{"1", domain.Hunt}, {"2", domain.Hunt}, {"3", domain.Pet}}); err != nil {
		t.Fatalf("Evict: %v", err)
	}
	snap := snapshot(t, s)
	if len(snap) != 1 {
		t.Fatalf("remaining = %v", snap)
	}
	rows, _ := s.ForPlayer(ctx, "1")
	if err := s.EvictIDs(ctx, []uint{rows[0].ID}); err != nil {
		t.Fatalf("EvictIDs: %v", err)
	}
	if len(snapshot(t, s)) != 0 {
		t.Fatalf("expected empty store")
	}
}

func TestDueFilters(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedPlayer(t, s, "on", true)
	seedPlayer(t, s, "off", false)
	seedPlayer(t, s, "muted", true)
	seedPlayer(t, s, "banned", true)

	muted, _ := s.FindPlayer(ctx, "muted")
	muted.SetEnabled(domain.Hunt, false)
	if err := s.SavePlayer(ctx, muted); err != nil {
		t.Fatalf("SavePlayer: %v", err)
	}
	_ = s.UpdatePlayer(ctx, "banned", map[string]any{"banned": true})

	now := time.Now().UTC()
	var batch []domain.CooldownRecord
	for _, id := range []string{"on", "off", "muted", "banned"} {
		batch = append(batch, domain.CooldownRecord{PlayerID: id, Type: domain.Hunt, ReadyAt: now.Add(-time.Second)})
	}
	batch = append(batch, domain.CooldownRecord{PlayerID: "on", Type: domain.Farm, ReadyAt: now.Add(time.Hour)})
	if err := s.Upsert(ctx, batch); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	due, err := s.Due(ctx, domain.Hunt, now)
	if err != nil {
		t.Fatalf("Due: %v", err)
	}
	if len(due) != 1 || due[0].PlayerID != "on" || due[0].ChannelID != "chan-on" {
		t.Fatalf("due = %+v", due)
	}
	if due, _ := s.Due(ctx, domain.Farm, now); len(due) != 0 {
		t.Fatalf("farm not ready yet: %+v", due)
	}

	if err := s.SetServerActive(ctx, "srv", false); err != nil {
		t.Fatalf("SetServerActive: %v", err)
	}
	if due, _ := s.Due(ctx, domain.Hunt, now); len(due) != 0 {
		t.Fatalf("inactive server should get nothing: %+v", due)
	}
}

func TestPurgeBefore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	err := s.Upsert(ctx, []domain.CooldownRecord{
		{PlayerID: "a", Type: domain.Hunt, ReadyAt: now.Add(-time.Minute)},
		{PlayerID: "a", Type: domain.Daily, ReadyAt: now.Add(time.Hour)},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	n, err := s.PurgeBefore(ctx, now)
	if err != nil || n != 1 {
		t.Fatalf("PurgeBefore = %d, %v", n, err)
	}
	rows := snapshot(t, s)
	if _, ok := rows[CooldownKey{PlayerID: "a", Type: domain.Daily}]; len(rows) != 1 || !ok {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestGuildDibbsClearedByHolder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedPlayer(t, s, "a", true)
	seedPlayer(t, s, "b", true)
	for _, id := range []string{"a", "b"} {
		if err := s.JoinGuild(ctx, id, "knights", "chan"); err != nil {
			t.Fatalf("JoinGuild: %v", err)
		}
	}
	a := "a"
	if err := s.SetDibbs(ctx, "knights", &a); err != nil {
		t.Fatalf("SetDibbs: %v", err)
	}
	now := time.Now().UTC()
	if err := s.SetGuildReady(ctx, "knights", now.Add(-time.Second), "b"); err != nil {
		t.Fatalf("SetGuildReady: %v", err)
	}
	g, _ := s.Guild(ctx, "knights")
	if g.DibbsPlayerID == nil || *g.DibbsPlayerID != "a" {
		t.Fatalf("dibbs should survive another member's raid")
	}

	due, err := s.DueGuilds(ctx, now)
	if err != nil {
		t.Fatalf("DueGuilds: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("due = %+v", due)
	}
	if err := s.ClearGuildReady(ctx, now); err != nil {
		t.Fatalf("ClearGuildReady: %v", err)
	}
	if due, _ := s.DueGuilds(ctx, now); len(due) != 0 {
		t.Fatalf("guild reminder fired twice")
	}

	if err := s.SetGuildReady(ctx, "knights", now.Add(time.Hour), "a"); err != nil {
		t.Fatalf("SetGuildReady: %v", err)
	}
	g, _ = s.Guild(ctx, "knights")
	if g.DibbsPlayerID != nil {
		t.Fatalf("holder's raid should clear dibbs")
	}
}

func TestSetGuildRoster(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedPlayer(t, s, "a", true)
	seedPlayer(t, s, "b", true)
	seedPlayer(t, s, "c", true)
	if err := s.JoinGuild(ctx, "c", "rivals", "chan"); err != nil {
		t.Fatalf("JoinGuild: %v", err)
	}

	n, err := s.SetGuildRoster(ctx, "knights", "chan", []string{"a", "c", "ghost"})
	if err != nil {
		t.Fatalf("SetGuildRoster: %v", err)
	}
	if n != 2 {
		t.Fatalf("updated = %d", n)
	}
	if _, err := s.Guild(ctx, "knights"); err != nil {
		t.Fatalf("Guild: %v", err)
	}
	for id, want := range map[string]string{"a": "knights", "c": "knights"} {
		p, err := s.FindPlayer(ctx, id)
		if err != nil {
			t.Fatalf("FindPlayer: %v", err)
		}
		if p.GuildName == nil || *p.GuildName != want {
			t.Fatalf("player %s guild = %v", id, p.GuildName)
		}
	}
	if p, _ := s.FindPlayer(ctx, "b"); p.GuildName != nil {
		t.Fatalf("b should stay guildless, got %q", *p.GuildName)
	}
	if n, err := s.SetGuildRoster(ctx, "knights", "chan", nil); err != nil || n != 0 {
		t.Fatalf("empty roster = %d, %v", n, err)
	}
}

func TestRegisterServer(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	codes, err := s.NewJoinCodes(ctx, 2)
	if err != nil || len(codes) != 2 {
		t.Fatalf("NewJoinCodes: %v %v", codes, err)
	}
	if _, err := s.RegisterServer(ctx, "g1", "Guild One", "nope"); err != ErrInvalidJoinCode {
		t.Fatalf("expected ErrInvalidJoinCode, got %v", err)
	}
	srv, err := s.RegisterServer(ctx, "g1", "Guild One", codes[0])
	if err != nil {
		t.Fatalf("RegisterServer: %v", err)
	}
	if !srv.Registered() || !srv.Active {
		t.Fatalf("server = %+v", srv)
	}
	if _, err := s.RegisterServer(ctx, "g2", "Guild Two", codes[0]); err != ErrInvalidJoinCode {
		t.Fatalf("claimed code reused: %v", err)
	}
	if _, err := s.RegisterServer(ctx, "g1", "Guild One", codes[1]); err != ErrAlreadyJoined {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}
}

func TestEventsUpsertByName(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2020, 12, 1, 0, 0, 0, 0, time.UTC)
	e := &domain.Event{Name: "xmas", Start: start, End: start.Add(time.Hour),
		Adjustments: map[domain.ActionType]int64{domain.Arena: 60}}
	if err := s.SaveEvent(ctx, e); err != nil {
		t.Fatalf("SaveEvent: %v", err)
	}
	again := &domain.Event{Name: "xmas", Start: start, End: start.Add(2 * time.Hour),
		Multipliers: map[domain.ActionType]float64{domain.Horse: 0.5}}
	if err := s.SaveEvent(ctx, again); err != nil {
		t.Fatalf("SaveEvent again: %v", err)
	}
	all, _ := s.Events(ctx)
	if len(all) != 1 || all[0].Multipliers[domain.Horse] != 0.5 {
		t.Fatalf("events = %+v", all)
	}
	if err := s.DeleteEvent(ctx, "xmas"); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if err := s.DeleteEvent(ctx, "xmas"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedPlayer(t, s, "1", true)
	pid := "1"
	for _, g := range []domain.GambleRecord{
		{PlayerID: &pid, Game: "bj", Outcome: "won", Net: 100},
		{PlayerID: &pid, Game: "bj", Outcome: "lost", Net: -40},
		{PlayerID: &pid, Game: "cf", Outcome: "tied"},
	} {
		g := g
		if err := s.RecordGamble(ctx, &g); err != nil {
			t.Fatalf("RecordGamble: %v", err)
		}
	}
	sums, err := s.GambleStats(ctx, StatsScope{PlayerID: "1"})
	if err != nil {
		t.Fatalf("GambleStats: %v", err)
	}
	want := []GambleSummary{
		{Game: "bj", Played: 2, Won: 1, Lost: 1, Net: 60},
		{Game: "cf", Played: 1, Tied: 1},
	}
	if diff := cmp.Diff(want, sums); diff != "" {
		t.Fatalf("gamble stats (-want +got):\n%s", diff)
	}

	if err := s.StartHunt(ctx, "1"); err != nil {
		t.Fatalf("StartHunt: %v", err)
	}
	if err := s.RecordHuntResult(ctx, "1", "wolf", 50, 10, "wolf skin"); err != nil {
		t.Fatalf("RecordHuntResult: %v", err)
	}
	if err := s.RecordHuntResult(ctx, "1", "wolf", 30, 5, ""); err != nil {
		t.Fatalf("RecordHuntResult: %v", err)
	}
	sum, targets, err := s.HuntStats(ctx, StatsScope{ServerID: "srv"}, 5)
	if err != nil {
		t.Fatalf("HuntStats: %v", err)
	}
	if sum.Hunts != 2 || sum.Money != 80 || sum.XP != 15 {
		t.Fatalf("sum = %+v", sum)
	}
	if len(targets) != 1 || targets[0].Count != 2 {
		t.Fatalf("targets = %+v", targets)
	}
	drops, _ := s.DropStats(ctx, StatsScope{PlayerID: "1"})
	if len(drops) != 1 || drops[0].Name != "wolf skin" {
		t.Fatalf("drops = %+v", drops)
	}
}
