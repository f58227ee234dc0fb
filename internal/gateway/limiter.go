package gateway

import (
	"context"

	"golang.org/x/time/rate"
)

// Limited wraps a sender with a token bucket shared by every channel.
type Limited struct {
	next    Sender
	limiter *rate.Limiter
}

func NewLimited(next Sender, perSecond float64, burst int) *Limited {
	if burst < 1 {
		burst = 1
	}
	return &Limited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Send waits for a token, then forwards. A cancelled context drops the
// message.
func (l *Limited) Send(ctx context.Context, out Outgoing) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}
	return l.next.Send(ctx, out)
}
