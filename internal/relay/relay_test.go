package relay

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"go.uber.org/goleak"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/epic-reminder-bot/internal/gateway"
)

func newTestClient(t *testing.T, handler fasthttp.RequestHandler, opts ...Option) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })

	c := NewClient("http://relay.test", opts...)
	c.http.Dial = func(string) (net.Conn, error) { return ln.Dial() }
	return c
}

func TestClientReplyHeaders(t *testing.T) {
	var (
		got    ReplyRequest
		header string
	)
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		header = string(ctx.Request.Header.Peek("X-User-Id"))
		_ = json.Unmarshal(ctx.PostBody(), &got)
	}, WithHeaderProvider(IdentityHeaders("u1", "", "")))

	out := gateway.Outgoing{ChannelID: "c1", Message: gateway.Message{Card: gateway.Error("nope")}}
	if err := c.Reply(context.Background(), NewReply(out)); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if header != "u1" {
		t.Fatalf("header = %q", header)
	}
	if got.Type != "card" || got.Room != "c1" || got.Card == nil || got.Card.Color != 0xEB4034 {
		t.Fatalf("request = %+v", got)
	}
	if got.Data != "[Error]\nnope" {
		t.Fatalf("data = %q", got.Data)
	}
}

func TestClientRetriesConfig(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		if calls.Add(1) == 1 {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			return
		}
		ctx.SetBodyString(`{"name":"relay","version":"1.2","message_rate":5}`)
	})
	cfg, err := c.GetConfig(context.Background())
	if err != nil {
		t.Fatalf("GetConfig: %v", err)
	}
	if cfg.Name != "relay" || cfg.MessageRate != 5 || calls.Load() != 2 {
		t.Fatalf("cfg = %+v after %d calls", cfg, calls.Load())
	}
}

func TestClientReplyNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		ctx.SetStatusCode(fasthttp.StatusBadGateway)
	})
	if err := c.Reply(context.Background(), ReplyRequest{Type: "text", Room: "c1", Data: "x"}); err == nil {
		t.Fatalf("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d", calls.Load())
	}
}

func TestMessageEvent(t *testing.T) {
	m := Message{
		ID:     "1",
		Guild:  "g1",
		Room:   "c1",
		Sender: &User{ID: "555", Name: "EPIC RPG", Bot: true},
		Embeds: []Embed{{AuthorName: "kevin's cooldowns", Fields: []Field{{Name: "a", Value: "b"}}}},
	}
	ev := m.Event()
	if ev.GuildID != "g1" || ev.ChannelID != "c1" || !ev.Author.Bot || len(ev.Embeds) != 1 || ev.Embeds[0].Fields[0].Value != "b" {
		t.Fatalf("event = %+v", ev)
	}
}

// wsServer pushes msgs to every client and records the frames it receives.
type wsServer struct {
	*httptest.Server
	mu   sync.Mutex
	got  []ReplyRequest
	recv chan struct{}
}

func newWSServer(t *testing.T, msgs ...Message) *wsServer {
	t.Helper()
	s := &wsServer{recv: make(chan struct{}, 8)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusInternalError, "")
		ctx := r.Context()
		for _, m := range msgs {
			if err := wsjson.Write(ctx, conn, m); err != nil {
				return
			}
		}
		for {
			var req ReplyRequest
			if err := wsjson.Read(ctx, conn, &req); err != nil {
				return
			}
			s.mu.Lock()
			s.got = append(s.got, req)
			s.mu.Unlock()
			s.recv <- struct{}{}
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *wsServer) url() string { return "ws" + strings.TrimPrefix(s.URL, "http") }

func TestGatewayRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := newWSServer(t, Message{ID: "1", Guild: "g1", Room: "c1", Sender: &User{ID: "1", Name: "kevin"}, Msg: "rpg hunt"})
	g := NewGateway(GatewayConfig{BaseURL: "http://unused.test", WSURL: srv.url(), Transport: TransportWS})

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan gateway.Event, 1)
	errc := make(chan error, 1)
	go func() {
		errc <- g.Run(ctx, func(_ context.Context, ev gateway.Event) { events <- ev })
	}()

	select {
	case ev := <-events:
		if ev.Content != "rpg hunt" || ev.Author.Name != "kevin" {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no event")
	}

	if err := g.Send(ctx, gateway.Outgoing{ChannelID: "c1", Message: gateway.Text("hi")}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	select {
	case <-srv.recv:
	case <-time.After(5 * time.Second):
		t.Fatalf("reply not received")
	}
	srv.mu.Lock()
	if len(srv.got) != 1 || srv.got[0].Data != "hi" || srv.got[0].Room != "c1" {
		t.Fatalf("got = %+v", srv.got)
	}
	srv.mu.Unlock()

	cancel()
	if err := <-errc; err != nil {
		t.Fatalf("Run: %v", err)
	}
	srv.Close()
}

func TestWSEgressNotConnected(t *testing.T) {
	ws := NewWebSocket("ws://127.0.0.1:1", 0, time.Millisecond)
	e := NewEgress(TransportWS, false, nil, ws, nil)
	if err := e.Reply(context.Background(), ReplyRequest{Type: "text", Room: "c", Data: "x"}); err != errNotConnected {
		t.Fatalf("err = %v", err)
	}
}

func TestAutoEgressFallsBackToHTTP(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) { calls.Add(1) })
	ws := NewWebSocket("ws://127.0.0.1:1", 0, time.Millisecond)
	e := NewEgress(TransportAuto, false, c, ws, nil)
	if err := e.Reply(context.Background(), ReplyRequest{Type: "text", Room: "c", Data: "x"}); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("http calls = %d", calls.Load())
	}
}

func TestDryRunSendsNothing(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) { calls.Add(1) })
	e := NewEgress(TransportHTTP, true, c, nil, nil)
	if err := e.Reply(context.Background(), ReplyRequest{Type: "text", Room: "c", Data: "x"}); err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("http calls = %d", calls.Load())
	}
}
