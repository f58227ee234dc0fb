package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/park285/epic-reminder-bot/internal/domain"
	"github.com/park285/epic-reminder-bot/internal/gateway"
	"github.com/park285/epic-reminder-bot/internal/store"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []gateway.Outgoing
	fail map[string]bool
}

func (f *fakeSender) Send(_ context.Context, out gateway.Outgoing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[out.ChannelID] {
		return errors.New("channel gone")
	}
	f.sent = append(f.sent, out)
	return nil
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, o := range f.sent {
		out[i] = o.Text
	}
	sort.Strings(out)
	return out
}

type fakeSweeper struct{ calls int }

func (f *fakeSweeper) Sweep(context.Context) (int, error) {
	f.calls++
	return 1, nil
}

func newStore(t *testing.T) *store.Store {
	t.Helper()
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
	return st
}

func addPlayer(t *testing.T, st *store.Store, id, channel string, notify bool) {
	t.Helper()
	ctx := context.Background()
	if _, _, err := st.Player(ctx, id, store.PlayerDefaults{ServerID: "g1", ChannelID: channel, Nickname: "p" + id}); err != nil {
		t.Fatalf("Player: %v", err)
	}
	if err := st.UpdatePlayer(ctx, id, map[string]any{"notify": notify}); err != nil {
		t.Fatalf("UpdatePlayer: %v", err)
	}
}

func TestTickSendsDueAndEvicts(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	now := time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)
	addPlayer(t, st, "1", "c1", true)
	addPlayer(t, st, "2", "c2", false)

	err := st.Upsert(ctx, []domain.CooldownRecord{
		{PlayerID: "1", Type: domain.Daily, ReadyAt: now.Add(-time.Second)},
		{PlayerID: "1", Type: domain.Weekly, ReadyAt: now.Add(time.Hour)},
		{PlayerID: "2", Type: domain.Hunt, ReadyAt: now.Add(-time.Minute)},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	sender := &fakeSender{}
	sweeper := &fakeSweeper{}
	s := New(st, sweeper, sender, WithClock(func() time.Time { return now }))
	if err := s.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if sweeper.calls != 1 {
		t.Fatalf("sweep calls = %d", sweeper.calls)
	}
	got := sender.texts()
	if len(got) != 1 || got[0] != "<@!1> Time for your daily! :sun_with_face: (**Daily**)" {
		t.Fatalf("sent = %q", got)
	}

	rows1, _ := st.ForPlayer(ctx, "1")
	if len(rows1) != 1 || rows1[0].Type != domain.Weekly {
		t.Fatalf("player 1 rows = %+v", rows1)
	}
	// Player 2 opted out; the past row is purged without a reminder.
	if rows2, _ := st.ForPlayer(ctx, "2"); len(rows2) != 0 {
		t.Fatalf("player 2 rows = %+v", rows2)
	}

	if err := s.Tick(ctx); err != nil {
		t.Fatalf("second Tick: %v", err)
	}
	if n := len(sender.texts()); n != 1 {
		t.Fatalf("reminder resent, %d sends", n)
	}
}

func TestTickGuildReminderPerMember(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	now := time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)
	addPlayer(t, st, "1", "c1", true)
	addPlayer(t, st, "2", "c1", true)
	for _, id := range []string{"1", "2"} {
		if err := st.JoinGuild(ctx, id, "knights", "c1"); err != nil {
			t.Fatalf("JoinGuild: %v", err)
		}
	}
	if err := st.SetGuildReady(ctx, "knights", now.Add(-time.Second), "1"); err != nil {
		t.Fatalf("SetGuildReady: %v", err)
	}
	holder := "2"
	if err := st.SetDibbs(ctx, "knights", &holder); err != nil {
		t.Fatalf("SetDibbs: %v", err)
	}

	sender := &fakeSender{}
	s := New(st, nil, sender, WithClock(func() time.Time { return now }))
	if err := s.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	got := sender.texts()
	if len(got) != 2 {
		t.Fatalf("sent = %q", got)
	}
	for _, txt := range got {
		if !strings.HasSuffix(txt, "<@!2> has dibbs!") {
			t.Fatalf("missing dibbs: %q", txt)
		}
	}
	g, err := st.Guild(ctx, "knights")
	if err != nil || g.ReadyAt != nil {
		t.Fatalf("guild = %+v, %v", g, err)
	}
}

func TestSendFailureStillClears(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	now := time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)
	addPlayer(t, st, "1", "dead", true)
	if err := st.Upsert(ctx, []domain.CooldownRecord{{PlayerID: "1", Type: domain.Lootbox, ReadyAt: now}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	sender := &fakeSender{fail: map[string]bool{"dead": true}}
	s := New(st, nil, sender, WithClock(func() time.Time { return now }), WithWorkers(1))
	if err := s.Tick(ctx); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if rows, _ := st.ForPlayer(ctx, "1"); len(rows) != 0 {
		t.Fatalf("rows = %+v", rows)
	}
}

type brokenStore struct{ Store }

func (brokenStore) Due(context.Context, domain.ActionType, time.Time) ([]store.DueReminder, error) {
	return nil, errors.New("db down")
}

func TestRunSurvivesTickErrors(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	sweeper := &countingSweeper{done: make(chan struct{})}
	s := New(brokenStore{}, sweeper, &fakeSender{}, WithInterval(time.Millisecond))

	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	select {
	case <-sweeper.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduler did not keep ticking")
	}
	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("Run: %v", err)
	}
}

// countingSweeper closes done on its third call.
type countingSweeper struct {
	mu    sync.Mutex
	calls int
	done  chan struct{}
}

func (c *countingSweeper) Sweep(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.calls == 3 {
		close(c.done)
	}
	return 0, nil
}

// panickySweeper panics on its first call and closes done on its third.
type panickySweeper struct {
	mu    sync.Mutex
	calls int
	done  chan struct{}
}

func (p *panickySweeper) Sweep(context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	switch p.calls {
	case 1:
		var m map[string]int
		m["boom"] = 1
	case 3:
		close(p.done)
	}
	return 0, nil
}

func TestRunSurvivesTickPanic(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx, cancel := context.WithCancel(context.Background())
	sweeper := &panickySweeper{done: make(chan struct{})}
	s := New(brokenStore{}, sweeper, &fakeSender{}, WithInterval(5*time.Millisecond))

	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	select {
	case <-sweeper.done:
	case err := <-errc:
		t.Fatalf("Run returned early: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduler stopped after a panicking tick")
	}
	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("Run: %v", err)
	}
}
