package middleware

import (
	"context"
	"fmt"

	"staybook/internal/app/commands"
	"staybook/internal/app/outbox"
)

// OutboxFlush pushes the events a successful handler recorded while the unit
// of work is still open, so a failed flush rolls the whole command back. A nil
// box leaves the bus as is.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		if box == nil {
			return next
		}
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				return nil, fmt.Errorf("flush outbox for %s: %w", cmd.Key(), err)
			}
			return res, nil
		})
	}
}
