package middleware

import (
	"context"
	"sync/atomic"

	"github.com/gossip-lsp/weblsp/jsonrpc"
)

type traceKey struct{}

type trace struct {
	id     uint64
	method string
}

// Tracing tags each message context with its method and a process-unique
// sequence number so log lines from one dispatch can be correlated.
func Tracing() Middleware {
	var seq atomic.Uint64
	return func(next Handler) Handler {
		return func(ctx context.Context, method string, params jsonrpc.RawMessage) (interface{}, error) {
			ctx = context.WithValue(ctx, traceKey{}, trace{id: seq.Add(1), method: method})
			return next(ctx, method, params)
		}
	}
}

// TraceMethod returns the method set by Tracing, or "".
func TraceMethod(ctx context.Context) string {
	t, _ := ctx.Value(traceKey{}).(trace)
	return t.method
}

// TraceID returns the sequence number set by Tracing, or 0.
func TraceID(ctx context.Context) uint64 {
	t, _ := ctx.Value(traceKey{}).(trace)
	return t.id
}
