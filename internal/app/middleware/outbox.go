package middleware

import (
	"context"
	"log/slog"

	"hostelhunt/internal/app/commands"
	"hostelhunt/internal/app/outbox"
)

// OutboxFlush nudges the relay after a command commits. The command already
// succeeded at that point, so a failed nudge is logged and the relay's own
// interval picks the events up.
func OutboxFlush(flusher outbox.Flusher, logger *slog.Logger) CommandMiddleware {
	if flusher == nil {
		panic("middleware: outbox flusher required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := flusher.Flush(ctx); err != nil {
				logger.WarnContext(ctx, "outbox flush deferred", "command", cmd.Key(), "error", err)
			}
			return res, nil
		})
	}
}
