package observe

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/park285/epic-reminder-bot/internal/activity"
	"github.com/park285/epic-reminder-bot/internal/cooldown"
	"github.com/park285/epic-reminder-bot/internal/crafting"
	"github.com/park285/epic-reminder-bot/internal/domain"
	"github.com/park285/epic-reminder-bot/internal/extract"
	"github.com/park285/epic-reminder-bot/internal/gateway"
	"github.com/park285/epic-reminder-bot/internal/sentinel"
	"github.com/park285/epic-reminder-bot/internal/store"
)

const (
	gameBot = "555"
	icon    = "https://cdn.discordapp.com/avatars/1/abcdef.png"
)

type fixture struct {
	o   *Observer
	st  *store.Store
	q   *sentinel.Queue
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db, err := store.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	if err := store.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	st := store.New(db)

	ctx := context.Background()
	codes, err := st.NewJoinCodes(ctx, 1)
	if err != nil {
		t.Fatalf("NewJoinCodes: %v", err)
	}
	if _, err := st.RegisterServer(ctx, "g1", "Guild", codes[0]); err != nil {
		t.Fatalf("RegisterServer: %v", err)
	}

	f := &fixture{st: st, now: time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }
	res := cooldown.NewResolver(st, nil).WithClock(clock)
	groups := activity.NewCoordinator(rdb, st, res).WithClock(clock)
	f.q = sentinel.New(st, crafting.Unavailable{})
	f.o = New(st, res, groups, f.q, extract.New().WithClock(clock), WithGameBotID(gameBot), WithClock(clock))
	return f
}

func userEvent(content string, mentions ...gateway.User) gateway.Event {
	return gateway.Event{
		GuildID:   "g1",
		ChannelID: "c1",
		Author:    gateway.User{ID: "1", Name: "Kevin"},
		Content:   content,
		Mentions:  mentions,
	}
}

func botEvent(em gateway.Embed) gateway.Event {
	return gateway.Event{
		GuildID:   "g1",
		ChannelID: "c1",
		Author:    gateway.User{ID: gameBot, Name: "EPIC RPG", Bot: true},
		Embeds:    []gateway.Embed{em},
	}
}

func (f *fixture) observe(t *testing.T, ev gateway.Event) []gateway.Message {
	t.Helper()
	out, err := f.o.Observe(context.Background(), ev)
	if err != nil {
		t.Fatalf("Observe(%q): %v", ev.Content, err)
	}
	return out
}

func (f *fixture) readyAt(t *testing.T, playerID string, typ domain.ActionType) (time.Time, bool) {
	t.Helper()
	rows, err := f.st.ForPlayer(context.Background(), playerID)
	if err != nil {
		t.Fatalf("ForPlayer: %v", err)
	}
	for _, r := range rows {
		if r.Type == typ {
			return r.ReadyAt, true
		}
	}
	return time.Time{}, false
}

func TestDefaultCooldownWithMultiplier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.observe(t, userEvent("rpg hunt"))
	at, ok := f.readyAt(t, "1", domain.Hunt)
	if !ok || !at.Equal(f.now.Add(time.Minute)) {
		t.Fatalf("hunt ready at %v, %v", at, ok)
	}

	half := 0.5
	if err := f.st.UpdatePlayer(ctx, "1", map[string]any{"multiplier": &half}); err != nil {
		t.Fatalf("UpdatePlayer: %v", err)
	}
	f.observe(t, userEvent("rpg adv"))
	if at, _ := f.readyAt(t, "1", domain.Adventure); !at.Equal(f.now.Add(30 * time.Minute)) {
		t.Fatalf("adventure ready at %v", at)
	}
	f.observe(t, userEvent("rpg daily"))
	if at, _ := f.readyAt(t, "1", domain.Daily); !at.Equal(f.now.Add(24 * time.Hour)) {
		t.Fatalf("daily is exempt from multipliers, got %v", at)
	}
}

func TestIgnoresUnknownAndUnregistered(t *testing.T) {
	f := newFixture(t)
	f.observe(t, userEvent("rpg profile"))
	f.observe(t, userEvent("hello rpg hunt"))
	ev := userEvent("rpg hunt")
	ev.GuildID = "g2"
	f.observe(t, ev)
	if rows, _ := f.st.ForPlayer(context.Background(), "1"); len(rows) != 0 {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestDuelProposalConfirmedByCard(t *testing.T) {
	f := newFixture(t)
	bob := gateway.User{ID: "2", Name: "Bob"}
	f.observe(t, userEvent("rpg duel <@2>", bob))
	if _, ok := f.readyAt(t, "1", domain.Duel); ok {
		t.Fatalf("duel written before confirmation")
	}

	f.now = f.now.Add(3 * time.Second)
	f.observe(t, botEvent(gateway.Embed{AuthorName: "Kevin's duel", Description: "**Kevin** ~-~ :boom: **Bob**"}))
	for _, id := range []string{"1", "2"} {
		at, ok := f.readyAt(t, id, domain.Duel)
		if !ok || !at.Equal(f.now.Add(2*time.Hour)) {
			t.Fatalf("player %s duel at %v, %v", id, at, ok)
		}
	}
}

func TestSoloArenaTakesDirectPath(t *testing.T) {
	f := newFixture(t)
	f.observe(t, userEvent("rpg big arena join"))
	if at, ok := f.readyAt(t, "1", domain.Arena); !ok || !at.Equal(f.now.Add(24*time.Hour)) {
		t.Fatalf("arena at %v, %v", at, ok)
	}
}

func TestBulkListingUpsertsAndEvicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.observe(t, userEvent("rpg weekly"))
	if err := f.st.JoinGuild(ctx, "1", "knights", "c1"); err != nil {
		t.Fatalf("JoinGuild: %v", err)
	}

	f.observe(t, botEvent(gateway.Embed{
		AuthorName:    "Kevin's cooldowns",
		AuthorIconURL: icon,
		Fields: []gateway.Field{{
			Name: "Rewards",
			Value: ":clock4: ~-~ **`Daily`** (**1d 02h 00m 00s**)\n" +
				":white_check_mark: ~-~ **`Weekly`**\n" +
				":clock4: ~-~ **`Guild Raid`** (**1h 00m 00s**)",
		}},
	}))
	if at, ok := f.readyAt(t, "1", domain.Daily); !ok || !at.Equal(f.now.Add(26*time.Hour)) {
		t.Fatalf("daily at %v, %v", at, ok)
	}
	if _, ok := f.readyAt(t, "1", domain.Weekly); ok {
		t.Fatalf("weekly not evicted")
	}
	g, err := f.st.Guild(ctx, "knights")
	if err != nil || g.ReadyAt == nil || !g.ReadyAt.Equal(f.now.Add(time.Hour)) {
		t.Fatalf("guild = %+v, %v", g, err)
	}
}

func TestSingleResponseUsesRecentCommand(t *testing.T) {
	f := newFixture(t)
	f.observe(t, userEvent("rpg tr"))
	f.now = f.now.Add(2 * time.Second)
	f.observe(t, botEvent(gateway.Embed{
		AuthorName:    "Kevin's cooldown",
		AuthorIconURL: icon,
		Title:         "wait at least **0h 07m 00s**",
	}))
	if at, _ := f.readyAt(t, "1", domain.Training); !at.Equal(f.now.Add(7 * time.Minute)) {
		t.Fatalf("training at %v", at)
	}
}

func TestGuildRaidReleasesOwnDibbs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.observe(t, userEvent("rpg hunt"))
	if err := f.st.JoinGuild(ctx, "1", "knights", "c1"); err != nil {
		t.Fatalf("JoinGuild: %v", err)
	}
	id := "1"
	if err := f.st.SetDibbs(ctx, "knights", &id); err != nil {
		t.Fatalf("SetDibbs: %v", err)
	}
	f.observe(t, userEvent("rpg guild raid"))
	g, err := f.st.Guild(ctx, "knights")
	if err != nil {
		t.Fatalf("Guild: %v", err)
	}
	if g.DibbsPlayerID != nil || g.ReadyAt == nil || !g.ReadyAt.Equal(f.now.Add(2*time.Hour)) {
		t.Fatalf("guild = %+v", g)
	}
}

func TestInventoryFiresSentinel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.observe(t, userEvent("rpg hunt"))
	if _, err := f.q.Register(ctx, "1", domain.TriggerInventory, domain.ActionLogs, domain.SentinelMeta{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	inv := gateway.Embed{
		AuthorName:    "Kevin's inventory",
		AuthorIconURL: icon,
		Fields:        []gateway.Field{{Name: "Items", Value: "<:woodenlog:1> **wooden log**: 25"}},
	}
	out := f.observe(t, botEvent(inv))
	if len(out) != 1 || out[0].Card == nil || !strings.Contains(out[0].Card.Body, "log futures are broken") {
		t.Fatalf("out = %+v", out)
	}
	if again := f.observe(t, botEvent(inv)); len(again) != 0 {
		t.Fatalf("sentinel fired twice: %+v", again)
	}
}

func TestGambleAndHuntStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.observe(t, userEvent("rpg hunt"))
	f.observe(t, botEvent(gateway.Embed{
		AuthorName:    "Kevin's coinflip",
		AuthorIconURL: icon,
		Fields:        []gateway.Field{{Name: "x", Value: "You lost 200 coins"}},
	}))
	rows, err := f.st.GambleStats(ctx, store.StatsScope{PlayerID: "1"})
	if err != nil || len(rows) != 1 || rows[0].Net != -200 {
		t.Fatalf("gamble = %+v, %v", rows, err)
	}

	f.observe(t, gateway.Event{
		GuildID:   "g1",
		ChannelID: "c1",
		Author:    gateway.User{ID: gameBot, Bot: true},
		Content:   "**Kevin** found and killed a <:wolf:1> **Wolf**\nEarned 1,200 coins and 340 XP",
	})
	sum, top, err := f.st.HuntStats(ctx, store.StatsScope{PlayerID: "1"}, 5)
	if err != nil {
		t.Fatalf("HuntStats: %v", err)
	}
	if sum.Hunts != 1 || sum.Money != 1200 || len(top) != 1 || top[0].Name != "Wolf" {
		t.Fatalf("hunts = %+v %+v", sum, top)
	}
}

func TestNicknameFromLabel(t *testing.T) {
	for in, want := range map[string]string{
		"Kevin's inventory": "Kevin",
		"it's Kevin's pets": "it's Kevin",
		"plain":             "plain",
	} {
		if got := nicknameFromLabel(in); got != want {
			t.Fatalf("nicknameFromLabel(%q) = %q", in, got)
		}
	}
}

func TestEditedGuildListSetsMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.observe(t, userEvent("rpg hunt"))
	f.observe(t, gateway.Event{GuildID: "g1", ChannelID: "c1", Author: gateway.User{ID: "2", Name: "Bob"}, Content: "rpg hunt"})

	list := botEvent(gateway.Embed{
		AuthorName:    "Kevin's guild",
		AuthorIconURL: icon,
		Fields:        []gateway.Field{{Name: "**Knights** members", Value: "**Kevin**\n**Stranger**\n<@2>"}},
	})
	list.Edited = true
	f.observe(t, list)

	for _, id := range []string{"1", "2"} {
		p, err := f.st.FindPlayer(ctx, id)
		if err != nil {
			t.Fatalf("FindPlayer(%s): %v", id, err)
		}
		if p.GuildName == nil || *p.GuildName != "knights" {
			t.Fatalf("player %s guild = %v", id, p.GuildName)
		}
	}
	if _, err := f.st.Guild(ctx, "knights"); err != nil {
		t.Fatalf("Guild: %v", err)
	}
}

func TestEditsOnlyReadGuildLists(t *testing.T) {
	f := newFixture(t)
	f.observe(t, userEvent("rpg hunt"))

	card := botEvent(gateway.Embed{
		AuthorName:    "Kevin's cooldowns",
		AuthorIconURL: icon,
		Fields:        []gateway.Field{{Name: "Rewards", Value: ":clock4: ~-~ **`Daily`** (**1d 02h 00m 00s**)"}},
	})
	card.Edited = true
	f.observe(t, card)
	if _, ok := f.readyAt(t, "1", domain.Daily); ok {
		t.Fatalf("edited cooldown card was applied")
	}

	cmd := userEvent("rpg weekly")
	cmd.Edited = true
	f.observe(t, cmd)
	if _, ok := f.readyAt(t, "1", domain.Weekly); ok {
		t.Fatalf("edited player command was applied")
	}
}
