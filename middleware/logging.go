package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/gossip-lsp/weblsp/jsonrpc"
)

// Logging logs every dispatched message with its duration. Failures are
// logged at error level, everything else at debug.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, method string, params jsonrpc.RawMessage) (interface{}, error) {
			start := time.Now()
			result, err := next(ctx, method, params)

			attrs := []slog.Attr{
				slog.String("method", method),
				slog.Duration("duration", time.Since(start)),
			}
			if id := TraceID(ctx); id != 0 {
				attrs = append(attrs, slog.Uint64("trace", id))
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, slog.LevelError, "message failed", attrs...)
			} else {
				logger.LogAttrs(ctx, slog.LevelDebug, "message handled", attrs...)
			}
			return result, err
		}
	}
}
