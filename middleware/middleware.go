// Package middleware wraps weblsp message dispatch. Every request and
// notification passes through the chain before reaching its handler, so
// logging, panic recovery and counters see all traffic.
package middleware

import (
	"context"

	"github.com/gossip-lsp/weblsp/jsonrpc"
)

// Handler dispatches one message. Notifications return a nil result.
type Handler func(ctx context.Context, method string, params jsonrpc.RawMessage) (interface{}, error)

// Middleware wraps a Handler.
type Middleware func(Handler) Handler

// Chain composes middleware. The first element is the outermost wrapper.
func Chain(mws ...Middleware) Middleware {
	return func(next Handler) Handler {
		for i := len(mws) - 1; i >= 0; i-- {
			if mws[i] != nil {
				next = mws[i](next)
			}
		}
		return next
	}
}
