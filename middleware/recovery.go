package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/gossip-lsp/weblsp/jsonrpc"
)

// Recovery turns a handler panic into an internal error reply.
func Recovery(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, method string, params jsonrpc.RawMessage) (result interface{}, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("panic recovered in handler",
						"method", method,
						"panic", fmt.Sprint(r),
						"stack", string(debug.Stack()),
					)
					result = nil
					err = jsonrpc.Errorf(jsonrpc.CodeInternalError, "internal error handling %s: %v", method, r)
				}
			}()
			return next(ctx, method, params)
		}
	}
}
