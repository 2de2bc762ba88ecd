package weblsp

import (
	"log/slog"

	"github.com/gossip-lsp/weblsp/middleware"
	"github.com/gossip-lsp/weblsp/transport"
)

// Option configures a Server during construction.
type Option func(*Server)

// ServeOption selects the transport Serve speaks over.
type ServeOption func(*serveConfig)

type serveConfig struct {
	transport        transport.Transport
	transportFactory transport.Factory
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMiddleware appends to the dispatch chain; the first is outermost.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(s *Server) { s.middlewares = append(s.middlewares, mws...) }
}

// WithTriggerCharacters sets the characters that make the client request
// completion automatically.
func WithTriggerCharacters(chars ...string) Option {
	return func(s *Server) { s.triggerChars = chars }
}

func WithStdio() ServeOption {
	return func(cfg *serveConfig) { cfg.transport = transport.Stdio() }
}

// WithTransport serves over an already open stream.
func WithTransport(t transport.Transport) ServeOption {
	return func(cfg *serveConfig) { cfg.transport = t }
}

// WithTransportFactory defers opening the stream until Serve runs.
func WithTransportFactory(f transport.Factory) ServeOption {
	return func(cfg *serveConfig) { cfg.transportFactory = f }
}

// WithTCP accepts one client on a TCP address such as ":9257".
func WithTCP(addr string) ServeOption {
	return WithTransportFactory(func() (transport.Transport, error) { return transport.ListenTCP(addr) })
}

// WithSocket accepts one client on a Unix domain socket.
func WithSocket(path string) ServeOption {
	return WithTransportFactory(func() (transport.Transport, error) { return transport.ListenSocket(path) })
}

// WithPipe accepts one client on a named pipe.
func WithPipe(name string) ServeOption {
	return WithTransportFactory(func() (transport.Transport, error) { return transport.ListenPipe(name) })
}

// WithWebSocket accepts one WebSocket client on addr.
func WithWebSocket(addr string) ServeOption {
	return WithTransportFactory(func() (transport.Transport, error) { return transport.ListenWebSocket(addr) })
}

// WithNodeIPC serves over the channel VS Code opens for node-ipc servers.
func WithNodeIPC() ServeOption {
	return func(cfg *serveConfig) { cfg.transport = transport.NodeIPC() }
}
