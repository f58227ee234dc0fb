package command

import (
	"context"

	"github.com/park285/epic-reminder-bot/internal/gateway"
)

// adminOnly denies players without the administrative capability before h
// runs.
func adminOnly(h Handler) Handler {
	return func(ctx context.Context, c *Context) (Result, error) {
		if !c.Admin {
			return Reply(gateway.Error(deniedMsg)), nil
		}
		return h(ctx, c)
	}
}
