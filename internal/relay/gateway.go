package relay

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/park285/epic-reminder-bot/internal/gateway"
	"github.com/park285/epic-reminder-bot/internal/obslog"
)

// Gateway adapts a relay to gateway.Gateway.
type Gateway struct {
	client *Client
	ws     *WebSocket
	egress Egress
	logger *zap.Logger
}

// GatewayConfig names the relay endpoints and transport.
type GatewayConfig struct {
	BaseURL   string
	WSURL     string
	Transport string
	DryRun    bool
	Headers   HeaderProvider
}

func NewGateway(cfg GatewayConfig) *Gateway {
	logger := obslog.Named("relay")
	client := NewClient(cfg.BaseURL, WithHeaderProvider(cfg.Headers))
	ws := NewWebSocket(cfg.WSURL, 5, time.Second)
	ws.SetHeaderProvider(cfg.Headers)
	ws.OnStateChange(func(state WebSocketState) {
		logger.Info("ws_state", zap.String("state", state.String()))
	})
	return &Gateway{
		client: client,
		ws:     ws,
		egress: NewEgress(cfg.Transport, cfg.DryRun, client, ws, logger),
		logger: logger,
	}
}

func (g *Gateway) Name() string { return "relay" }

// Client exposes the HTTP side for health checks.
func (g *Gateway) Client() *Client { return g.client }

// Run connects the stream and feeds messages to h until ctx is cancelled.
// Messages are delivered on the read loop; h must not block for long.
func (g *Gateway) Run(ctx context.Context, h gateway.Handler) error {
	id := g.ws.OnMessage(func(msg *Message) {
		if msg == nil || (msg.Msg == "" && len(msg.Embeds) == 0) {
			return
		}
		h(ctx, msg.Event())
	})
	defer g.ws.RemoveMessageCallback(id)

	if err := g.ws.Connect(ctx); err != nil {
		return fmt.Errorf("relay connect: %w", err)
	}
	<-ctx.Done()

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.ws.Close(closeCtx); err != nil {
		g.logger.Warn("ws_close_error", zap.Error(err))
	}
	return nil
}

func (g *Gateway) Send(ctx context.Context, out gateway.Outgoing) error {
	req := NewReply(out)
	if req.Data == "" {
		return nil
	}
	return g.egress.Reply(ctx, req)
}
