package weblsp

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/gossip-lsp/weblsp/jsonrpc"
	mw "github.com/gossip-lsp/weblsp/middleware"
	"github.com/gossip-lsp/weblsp/transport"
)

var (
	// ErrExit ends Serve after the client sent shutdown and then exit.
	ErrExit = errors.New("weblsp: exit")
	// ErrExitWithoutShutdown ends Serve when the client exits or hangs up
	// without a prior shutdown request.
	ErrExitWithoutShutdown = errors.New("weblsp: exit without shutdown")
)

// Serve runs s until the client exits, the connection drops or ctx is
// cancelled. With no ServeOption it speaks over stdio.
func Serve(ctx context.Context, s *Server, opts ...ServeOption) error {
	cfg := &serveConfig{}
	for _, o := range opts {
		o(cfg)
	}
	t := cfg.transport
	if t == nil && cfg.transportFactory != nil {
		var err error
		if t, err = cfg.transportFactory(); err != nil {
			return fmt.Errorf("opening transport: %w", err)
		}
	}
	if t == nil {
		t = transport.Stdio()
	}
	defer t.Close()

	chain := mw.Chain(s.middlewares...)
	request := chain(s.dispatch)
	notification := chain(func(ctx context.Context, method string, params jsonrpc.RawMessage) (interface{}, error) {
		return nil, s.dispatchNotification(ctx, method, params)
	})

	conn := jsonrpc.NewConn(
		jsonrpc.NewCodec(t, t),
		jsonrpc.Handler(request),
		func(ctx context.Context, method string, params jsonrpc.RawMessage) {
			_, _ = notification(ctx, method, params)
		},
		jsonrpc.WithConnLogger(s.logger),
	)
	s.conn = conn
	s.client = newClientProxy(conn)
	if s.configHolder != nil {
		defer s.configHolder.close()
	}

	s.logger.Info("server starting", "name", s.name, "version", s.version)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer conn.Close()
		return conn.Run(gctx)
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-conn.Done():
		}
		conn.Close()
		_ = t.Close()
		return nil
	})
	err := g.Wait()

	s.mu.RLock()
	exitErr, shutdown := s.exitErr, s.shutdown
	s.mu.RUnlock()
	switch {
	case exitErr != nil:
		return exitErr
	case ctx.Err() != nil:
		return ctx.Err()
	case err == nil || errors.Is(err, io.EOF):
		if shutdown {
			return ErrExit
		}
		return fmt.Errorf("%w: client closed the connection", ErrExitWithoutShutdown)
	default:
		return fmt.Errorf("serving: %w", err)
	}
}
