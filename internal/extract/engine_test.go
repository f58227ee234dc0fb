package extract

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/park285/epic-reminder-bot/internal/domain"
)

var fixedNow = time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)

func testEngine() *Engine { return New().WithClock(func() time.Time { return fixedNow }) }

const icon = "https://cdn.discordapp.com/avatars/123456789/abcdef.png"

func TestPlayerID(t *testing.T) {
	if got := PlayerID(icon); got != "123456789" {
		t.Fatalf("PlayerID = %q", got)
	}
	if got := PlayerID("https://example.com/x.png"); got != "" {
		t.Fatalf("PlayerID = %q", got)
	}
}

func TestBulkListing(t *testing.T) {
	r := Response{
		AuthorName:    "Kevin's cooldowns",
		AuthorIconURL: icon,
		Fields: []Field{
			{Name: ":gift: Rewards", Value: ":clock4: ~-~ **`Daily`** (**1d 02h 00m 00s**)\n" +
				":white_check_mark: ~-~ **`Weekly`**\n" +
				":white_check_mark: ~-~ **`Lootbox`**"},
			{Name: ":sparkles: Experience", Value: ":clock4: ~-~ **`Hunt | Hunt Hardmode`** (**0h 00m 45s**)\n" +
				":clock4: ~-~ **`Chop | Fish | Pickup | Mine`** (**0h 03m 10s**)\n" +
				":clock4: ~-~ **`Guild Raid`** (**1h 00m 00s**)"},
		},
	}
	res := testEngine().Extract(r, "")
	if res.Kind != KindBulk || res.PlayerID != "123456789" {
		t.Fatalf("kind=%v player=%q", res.Kind, res.PlayerID)
	}
	want := []Fact{
		{Type: domain.Daily, ReadyAt: fixedNow.Add(26 * time.Hour)},
		{Type: domain.Hunt, ReadyAt: fixedNow.Add(45 * time.Second)},
		{Type: domain.Work, ReadyAt: fixedNow.Add(3*time.Minute + 10*time.Second)},
	}
	if diff := cmp.Diff(want, res.Updates); diff != "" {
		t.Fatalf("updates (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]domain.ActionType{domain.Weekly, domain.Lootbox}, res.Evictions); diff != "" {
		t.Fatalf("evictions (-want +got):\n%s", diff)
	}
	if res.GuildReadyAt == nil || !res.GuildReadyAt.Equal(fixedNow.Add(time.Hour)) {
		t.Fatalf("guild = %v", res.GuildReadyAt)
	}
}

func TestBulkTypeConsumedOnce(t *testing.T) {
	r := Response{
		AuthorName: "Kevin's cooldowns",
		Fields: []Field{{Value: ":clock4: ~-~ **`Hunt`** (**0h 00m 45s**)\n" +
			":clock4: ~-~ **`Hunt again`** (**0h 00m 50s**)"}},
	}
	res := testEngine().Extract(r, "")
	if len(res.Updates) != 1 || res.Updates[0].ReadyAt != fixedNow.Add(45*time.Second) {
		t.Fatalf("updates = %+v", res.Updates)
	}
}

func TestSingleResponse(t *testing.T) {
	r := Response{
		AuthorName:    "Kevin's cooldown",
		AuthorIconURL: icon,
		Title:         "You have already looked around, wait at least **0h 0m 42s**",
	}
	res := testEngine().Extract(r, "")
	if len(res.Updates) != 1 || res.Updates[0].Type != domain.Hunt || !res.Updates[0].ReadyAt.Equal(fixedNow.Add(42*time.Second)) {
		t.Fatalf("updates = %+v", res.Updates)
	}

	res = testEngine().Extract(r, domain.Adventure)
	if res.Updates[0].Type != domain.Adventure {
		t.Fatalf("command should take precedence: %+v", res.Updates)
	}

	r.Title = "Your guild has already raided or been upgraded, wait at least **1h 5m 0s**"
	res = testEngine().Extract(r, "")
	if res.GuildReadyAt == nil || len(res.Updates) != 0 {
		t.Fatalf("guild should route to guild state: %+v", res)
	}

	r.Title = "no countdown"
	if res := testEngine().Extract(r, domain.Hunt); !res.Empty() {
		t.Fatalf("miss should be empty: %+v", res)
	}
}

func TestPetScreenMinimum(t *testing.T) {
	r := Response{
		AuthorName: "Kevin's pets",
		Fields: []Field{
			{Name: "A", Value: "Status: adventure (**2h 10m 3s**)"},
			{Name: "B", Value: "Status: adventure (**0h 45m 00s**)"},
			{Name: "C", Value: "Status: idle"},
		},
	}
	res := testEngine().Extract(r, "")
	want := []Fact{{Type: domain.Pet, ReadyAt: fixedNow.Add(45 * time.Minute)}}
	if diff := cmp.Diff(want, res.Updates); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestGamble(t *testing.T) {
	cases := []struct {
		r    Response
		want *Gamble
	}{
		{Response{AuthorName: "Kevin's blackjack", Fields: []Field{{Name: "You won **1,500** coins", Value: ""}}},
			&Gamble{Game: "bj", Outcome: "won", Net: 1500}},
		{Response{AuthorName: "Kevin's coinflip", Fields: []Field{{Name: "x", Value: "You lost 200 coins"}}},
			&Gamble{Game: "cf", Outcome: "lost", Net: -200}},
		{Response{AuthorName: "Kevin's dice", Fields: []Field{{Name: "it's a tie lmao", Value: ""}}},
			&Gamble{Game: "dice", Outcome: "tied"}},
		{Response{AuthorName: "Kevin's slots", Description: "and lost **50** coins"},
			&Gamble{Game: "slots", Outcome: "lost", Net: -50}},
		{Response{AuthorName: "Kevin's slots", Description: "nothing"}, nil},
	}
	for _, c := range cases {
		res := testEngine().Extract(c.r, "")
		if res.Kind != KindGamble {
			t.Fatalf("kind = %v", res.Kind)
		}
		if diff := cmp.Diff(c.want, res.Gamble); diff != "" {
			t.Fatalf("%s (-want +got):\n%s", c.r.AuthorName, diff)
		}
	}
}

func TestInventory(t *testing.T) {
	r := Response{
		AuthorName: "Kevin's inventory",
		Fields: []Field{
			{Name: "Items", Value: "<:woodenlog:1> **wooden log**: 16,376\n<:EPICwoodenlog:2> **EPIC log**: 302"},
			{Name: "Fish", Value: "<:normiefish:3> **normie fish**: 89"},
		},
	}
	res := testEngine().Extract(r, "")
	if res.Inventory["wooden_log"] != 16376 || res.Inventory["epic_log"] != 302 || res.Inventory["normie_fish"] != 89 {
		t.Fatalf("inventory = %v", res.Inventory)
	}
	if v, ok := res.Inventory["ultra_log"]; !ok || v != 0 {
		t.Fatalf("missing items should be zero")
	}
}

func TestGroupClassification(t *testing.T) {
	res := testEngine().Extract(Response{AuthorName: "Kevin's duel", Description: "**Kevin** ~-~ :boom: **Bob**"}, "")
	if res.Group == nil || res.Group.Activity != "duel" {
		t.Fatalf("group = %+v", res.Group)
	}
	res = testEngine().Extract(Response{AuthorName: "something", Footer: DungeonFooter}, "")
	if res.Group == nil || res.Group.Activity != "dungeon" {
		t.Fatalf("footer marker: %+v", res.Group)
	}
	res = testEngine().Extract(Response{AuthorName: "Kevin's miniboss", Description: "Help **Kevin** defeat"}, "")
	if res.Group == nil || res.Group.Activity != "miniboss" {
		t.Fatalf("miniboss: %+v", res.Group)
	}
}

func TestHunts(t *testing.T) {
	solo := "**Kevin** found and killed a <:wolf:1> **Wolf**\nEarned 1,200 coins and 340 XP\n" +
		"**Kevin** got a <:wolfskin:2> wolf skin"
	got := testEngine().Extract(Response{Content: solo}, "")
	want := []Hunt{{Name: "Kevin", Target: "Wolf", Money: 1200, XP: 340, Loot: "wolf skin"}}
	if diff := cmp.Diff(want, got.Hunts); diff != "" {
		t.Fatalf("solo (-want +got):\n%s", diff)
	}

	together := "**Kevin** and **Bob** are hunting together!\n" +
		"**Kevin** found and killed a <:z:1> **Zombie**\n" +
		"while **Bob** found a <:u:2> **Unicorn**\n" +
		"**Kevin** earned 100 coins and 20 XP\n" +
		"while **Bob** earned 90 coins and 18 XP"
	hunts := ParseHunts(together)
	if len(hunts) != 2 || hunts[0].Name != "Kevin" || hunts[1].Name != "Bob" || hunts[1].Target != "Unicorn" || hunts[1].Money != 90 {
		t.Fatalf("together = %+v", hunts)
	}

	if ParseHunts("just chatting") != nil {
		t.Fatalf("expected no hunts")
	}
}

func TestGuildRoster(t *testing.T) {
	r := Response{
		AuthorName: "Kevin's guild",
		Fields: []Field{
			{Name: "**Knights Of Ni** members", Value: "**Kevin**\n**Bob**\n<@!42>"},
			{Name: "page 1/2", Value: "**Bob**"},
		},
	}
	res := testEngine().Extract(r, "")
	if res.Kind != KindGuildList {
		t.Fatalf("kind = %v", res.Kind)
	}
	want := &GuildRoster{Name: "knights of ni", IDs: []string{"42"}, Names: []string{"Kevin", "Bob"}}
	if diff := cmp.Diff(want, res.Roster); diff != "" {
		t.Fatalf("roster (-want +got):\n%s", diff)
	}

	titled := testEngine().Extract(Response{Title: "**Rivals** MEMBERS", Description: "<@7> <@8>"}, "")
	if titled.Roster == nil || titled.Roster.Name != "rivals" || len(titled.Roster.IDs) != 2 {
		t.Fatalf("titled = %+v", titled.Roster)
	}

	if empty := testEngine().Extract(Response{Title: "**Rivals** members"}, ""); !empty.Empty() {
		t.Fatalf("memberless card = %+v", empty)
	}
}
