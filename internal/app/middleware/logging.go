package middleware

import (
	"context"
	"log/slog"
	"time"

	"staybook/internal/app/commands"
	"staybook/internal/domain/shared/errs"
)

// Logging writes one line per dispatched command with its duration and, on
// failure, the error kind. Expected rejections log at Info, the rest at Error.
func Logging(logger *slog.Logger) CommandMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			attrs := []any{"command", cmd.Key(), "duration", time.Since(start)}
			if err == nil {
				logger.DebugContext(ctx, "command handled", attrs...)
				return res, nil
			}
			kind := errs.KindOf(err)
			attrs = append(attrs, "error", err, "kind", string(kind))
			switch kind {
			case errs.KindUnavailable, errs.KindUnknown:
				logger.ErrorContext(ctx, "command failed", attrs...)
			default:
				logger.InfoContext(ctx, "command rejected", attrs...)
			}
			return nil, err
		})
	}
}
