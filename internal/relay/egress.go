package relay

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Egress sends replies over HTTP or the WebSocket.
type Egress interface {
	Reply(ctx context.Context, req ReplyRequest) error
}

// Transport modes.
const (
	TransportHTTP = "http"
	TransportWS   = "ws"
	TransportAuto = "auto"
)

// NewEgress creates an Egress based on mode. In auto mode the WebSocket is
// preferred while connected; a failed WebSocket write falls back to HTTP
// once. With dryrun set replies are logged instead of written.
func NewEgress(mode string, dryrun bool, c *Client, ws *WebSocket, logger *zap.Logger) Egress {
	if logger == nil {
		logger = zap.NewNop()
	}
	var e Egress
	switch mode {
	case TransportWS:
		e = &wsEgress{ws: ws}
	case TransportAuto:
		e = &autoEgress{ws: &wsEgress{ws: ws}, http: &httpEgress{c: c}, logger: logger}
	default:
		e = &httpEgress{c: c}
	}
	if dryrun {
		return &dryEgress{mode: mode, logger: logger}
	}
	return e
}

type httpEgress struct{ c *Client }

func (h *httpEgress) Reply(ctx context.Context, req ReplyRequest) error {
	if h == nil || h.c == nil {
		return errors.New("http egress not available")
	}
	return h.c.Reply(ctx, req)
}

type wsEgress struct{ ws *WebSocket }

func (w *wsEgress) Reply(ctx context.Context, req ReplyRequest) error {
	if w == nil || w.ws == nil {
		return errors.New("ws egress not available")
	}
	return w.ws.WriteJSON(ctx, &req)
}

func (w *wsEgress) connected() bool {
	return w != nil && w.ws != nil && w.ws.State() == WSStateConnected
}

type autoEgress struct {
	ws     *wsEgress
	http   *httpEgress
	logger *zap.Logger
}

func (a *autoEgress) Reply(ctx context.Context, req ReplyRequest) error {
	if a.ws.connected() {
		err := a.ws.Reply(ctx, req)
		if err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", req.Type), zap.String("room", req.Room), zap.Error(err))
	}
	return a.http.Reply(ctx, req)
}

type dryEgress struct {
	mode   string
	logger *zap.Logger
}

func (d *dryEgress) Reply(_ context.Context, req ReplyRequest) error {
	d.logger.Info("egress_dryrun",
		zap.String("mode", d.mode),
		zap.String("type", req.Type),
		zap.String("room", req.Room),
		zap.Int("bytes", len(req.Data)))
	return nil
}
