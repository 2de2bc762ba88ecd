package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gossip-lsp/weblsp/jsonrpc"
)

func TestChainOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, method string, params jsonrpc.RawMessage) (interface{}, error) {
				order = append(order, name)
				return next(ctx, method, params)
			}
		}
	}
	h := Chain(tag("outer"), nil, tag("inner"))(func(context.Context, string, jsonrpc.RawMessage) (interface{}, error) {
		order = append(order, "handler")
		return "ok", nil
	})

	res, err := h(context.Background(), "m", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := Recovery(logger)(func(context.Context, string, jsonrpc.RawMessage) (interface{}, error) {
		panic("boom")
	})

	res, err := h(context.Background(), "textDocument/completion", nil)
	assert.Nil(t, res)
	var rpcErr *jsonrpc.Error
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, jsonrpc.CodeInternalError, rpcErr.Code)
	assert.Contains(t, rpcErr.Message, "boom")
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestTelemetry(t *testing.T) {
	m := NewMetrics()
	fail := errors.New("nope")
	h := Telemetry(m)(func(_ context.Context, method string, _ jsonrpc.RawMessage) (interface{}, error) {
		if method == "bad" {
			return nil, fail
		}
		return nil, nil
	})

	for _, method := range []string{"good", "bad", "good"} {
		_, _ = h(context.Background(), method, nil)
	}

	snap := m.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "bad", snap[0].Method)
	assert.Equal(t, int64(1), snap[0].Count)
	assert.Equal(t, int64(1), snap[0].Errors)
	assert.Equal(t, "good", snap[1].Method)
	assert.Equal(t, int64(2), snap[1].Count)
	assert.Zero(t, snap[1].Errors)
}

func TestTracingAndLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var seen []uint64
	h := Chain(Tracing(), Logging(logger))(func(ctx context.Context, method string, _ jsonrpc.RawMessage) (interface{}, error) {
		assert.Equal(t, method, TraceMethod(ctx))
		seen = append(seen, TraceID(ctx))
		return nil, nil
	})

	_, _ = h(context.Background(), "initialize", nil)
	_, _ = h(context.Background(), "initialized", nil)

	assert.Equal(t, []uint64{1, 2}, seen)
	assert.Contains(t, buf.String(), "method=initialize")
	assert.Contains(t, buf.String(), "trace=2")
	assert.Empty(t, TraceMethod(context.Background()))
}
