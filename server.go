package weblsp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/gossip-lsp/weblsp/document"
	"github.com/gossip-lsp/weblsp/jsonrpc"
	mw "github.com/gossip-lsp/weblsp/middleware"
	"github.com/gossip-lsp/weblsp/protocol"
)

// Server registers handlers, tracks the LSP lifecycle and dispatches
// incoming messages.
type Server struct {
	name    string
	version string
	logger  *slog.Logger

	// set by Serve
	conn   *jsonrpc.Conn
	client *ClientProxy

	docStore     *document.Store
	configHolder configHolder
	middlewares  []mw.Middleware
	triggerChars []string

	mu               sync.RWMutex
	handlers         map[string]interface{}
	rawHandlers      map[string]RawHandler
	rawNotifHandlers map[string]RawNotificationHandler
	initHooks        []InitializeHook
	commands         []string

	// workspace state, populated by initialize
	rootURI          *protocol.DocumentURI
	workspaceFolders []protocol.WorkspaceFolder
	clientCaps       protocol.ClientCapabilities

	// lifecycle
	initialized bool
	shutdown    bool
	exitErr     error
}

// NewServer creates a server. Options are applied immediately, so handlers
// and config listeners may be registered right after.
func NewServer(name, version string, opts ...Option) *Server {
	s := &Server{
		name:             name,
		version:          version,
		logger:           slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})),
		handlers:         make(map[string]interface{}),
		rawHandlers:      make(map[string]RawHandler),
		rawNotifHandlers: make(map[string]RawNotificationHandler),
		docStore:         document.NewStore(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Server) OnCompletion(h CompletionHandler) { s.register(protocol.MethodCompletion, h) }
func (s *Server) OnDidOpen(h DidOpenHandler)       { s.register(protocol.MethodDidOpen, h) }
func (s *Server) OnDidChange(h DidChangeHandler)   { s.register(protocol.MethodDidChange, h) }
func (s *Server) OnDidClose(h DidCloseHandler)     { s.register(protocol.MethodDidClose, h) }

func (s *Server) OnInitialized(h InitializedHandler) { s.register(protocol.MethodInitialized, h) }

func (s *Server) OnDidChangeConfiguration(h DidChangeConfigurationHandler) {
	s.register(protocol.MethodDidChangeConfiguration, h)
}

// OnExecuteCommand registers the workspace/executeCommand handler and the
// command names advertised to the client.
func (s *Server) OnExecuteCommand(h ExecuteCommandHandler, commands ...string) {
	s.mu.Lock()
	s.commands = append(s.commands, commands...)
	s.mu.Unlock()
	s.register(protocol.MethodExecuteCommand, h)
}

// OnInitialize adds a hook run during the initialize request.
func (s *Server) OnInitialize(h InitializeHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initHooks = append(s.initHooks, h)
}

// HandleRequest registers a handler for a request method without typed support.
func (s *Server) HandleRequest(method string, h RawHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawHandlers[method] = h
}

// HandleNotification registers a handler for a notification without typed support.
func (s *Server) HandleNotification(method string, h RawNotificationHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawNotifHandlers[method] = h
}

func (s *Server) Documents() *document.Store { return s.docStore }
func (s *Server) Logger() *slog.Logger       { return s.logger }

// UpdateClientSettings replaces the editor settings layer of the
// configuration given to WithConfig, for settings the server pulled itself.
// It does nothing without WithConfig or before initialize.
func (s *Server) UpdateClientSettings(raw json.RawMessage) error {
	if s.configHolder == nil {
		return nil
	}
	return s.configHolder.applyClient(raw)
}

func (s *Server) register(method string, handler interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = handler
}

func (s *Server) getHandler(method string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handlers[method]
	return h, ok
}

func (s *Server) lifecycle() (initialized, shutdown bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized, s.shutdown
}

// dispatch answers requests.
func (s *Server) dispatch(ctx context.Context, method string, params jsonrpc.RawMessage) (interface{}, error) {
	wctx := newContext(ctx, s)
	initialized, shutdown := s.lifecycle()

	switch {
	case method == protocol.MethodInitialize:
		if initialized {
			return nil, jsonrpc.Errorf(jsonrpc.CodeInvalidRequest, "server already initialized")
		}
		return s.handleInitialize(wctx, params)
	case !initialized:
		return nil, jsonrpc.Errorf(jsonrpc.CodeServerNotInitialized, "server not initialized")
	case shutdown:
		return nil, jsonrpc.Errorf(jsonrpc.CodeInvalidRequest, "server is shutting down")
	case method == protocol.MethodShutdown:
		return s.handleShutdown()
	}

	if h, ok := s.getHandler(method); ok {
		return callHandler(wctx, h, method, params)
	}
	s.mu.RLock()
	rh, ok := s.rawHandlers[method]
	s.mu.RUnlock()
	if ok {
		return rh(wctx, params)
	}
	return nil, jsonrpc.Errorf(jsonrpc.CodeMethodNotFound, "method not found: %s", method)
}

// dispatchNotification processes notifications in arrival order. Anything
// but exit is dropped until initialize has been answered.
func (s *Server) dispatchNotification(ctx context.Context, method string, params jsonrpc.RawMessage) error {
	wctx := newContext(ctx, s)

	switch method {
	case protocol.MethodExit:
		s.handleExit()
		return nil
	case protocol.MethodInitialized:
		s.logger.Info("client initialized")
		if h, ok := s.getHandler(method); ok {
			_, err := callHandler(wctx, h, method, params)
			return err
		}
		return nil
	case protocol.MethodSetTrace:
		return nil
	}

	if initialized, _ := s.lifecycle(); !initialized {
		s.logger.Debug("dropping notification before initialize", "method", method)
		return nil
	}

	if err := s.builtinNotification(wctx, method, params); err != nil {
		return err
	}

	if h, ok := s.getHandler(method); ok {
		_, err := callHandler(wctx, h, method, params)
		return err
	}
	s.mu.RLock()
	rh, ok := s.rawNotifHandlers[method]
	s.mu.RUnlock()
	if ok {
		return rh(wctx, params)
	}
	return nil
}

// builtinNotification keeps the document store and workspace state current
// before user handlers observe a notification.
func (s *Server) builtinNotification(ctx *Context, method string, params jsonrpc.RawMessage) error {
	switch method {
	case protocol.MethodDidOpen:
		var p protocol.DidOpenTextDocumentParams
		if err := unmarshalParams(params, &p); err != nil {
			return err
		}
		s.docStore.Open(&p)
	case protocol.MethodDidChange:
		var p protocol.DidChangeTextDocumentParams
		if err := unmarshalParams(params, &p); err != nil {
			return err
		}
		s.docStore.Change(&p)
	case protocol.MethodDidClose:
		var p protocol.DidCloseTextDocumentParams
		if err := unmarshalParams(params, &p); err != nil {
			return err
		}
		s.docStore.Close(&p)
	case protocol.MethodDidChangeConfiguration:
		var p protocol.DidChangeConfigurationParams
		if err := unmarshalParams(params, &p); err != nil {
			return err
		}
		if s.configHolder != nil {
			if err := s.configHolder.applyClient(p.Settings); err != nil {
				ctx.Logger().Warn("ignoring client settings", "error", err)
			}
		}
	case protocol.MethodDidChangeWorkspaceFolders:
		var p protocol.DidChangeWorkspaceFoldersParams
		if err := unmarshalParams(params, &p); err != nil {
			return err
		}
		s.handleWorkspaceFolderChange(p.Event)
	}
	return nil
}

func (s *Server) handleInitialize(ctx *Context, params jsonrpc.RawMessage) (interface{}, error) {
	var p protocol.InitializeParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.rootURI = p.RootURI
	s.workspaceFolders = p.WorkspaceFolders
	s.clientCaps = p.Capabilities
	if len(s.workspaceFolders) == 0 && s.rootURI != nil {
		s.workspaceFolders = []protocol.WorkspaceFolder{{URI: *s.rootURI, Name: uriBasename(*s.rootURI)}}
	}
	hooks := append([]InitializeHook(nil), s.initHooks...)
	s.mu.Unlock()

	if s.configHolder != nil {
		s.configHolder.start(s.logger, workspaceDir(ctx.WorkspaceRoot()), p.InitializationOptions)
	}

	for _, hook := range hooks {
		if err := hook(ctx, &p); err != nil {
			return nil, fmt.Errorf("initialize: %w", err)
		}
	}

	caps := s.buildCapabilities()
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()

	client := ""
	if p.ClientInfo != nil {
		client = p.ClientInfo.Name
	}
	s.logger.Info("server initialized",
		"name", s.name,
		"version", s.version,
		"client", client,
		"workspaceFolders", len(ctx.WorkspaceFolders()),
	)

	return &protocol.InitializeResult{
		Capabilities: caps,
		ServerInfo:   &protocol.ServerInfo{Name: s.name, Version: s.version},
	}, nil
}

func (s *Server) handleShutdown() (interface{}, error) {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()
	s.logger.Info("server shutting down")
	return nil, nil
}

// handleExit records how the session ended and stops the connection. Serve
// reports the outcome.
func (s *Server) handleExit() {
	s.mu.Lock()
	if s.shutdown {
		s.exitErr = ErrExit
	} else {
		s.exitErr = ErrExitWithoutShutdown
	}
	s.mu.Unlock()
	s.logger.Info("received exit notification")
	if s.conn != nil {
		s.conn.Close()
	}
}

func (s *Server) handleWorkspaceFolderChange(event protocol.WorkspaceFoldersChangeEvent) {
	s.mu.Lock()
	for _, removed := range event.Removed {
		for i, f := range s.workspaceFolders {
			if f.URI == removed.URI {
				s.workspaceFolders = append(s.workspaceFolders[:i], s.workspaceFolders[i+1:]...)
				break
			}
		}
	}
	s.workspaceFolders = append(s.workspaceFolders, event.Added...)
	s.mu.Unlock()

	s.logger.Info("workspace folders changed", "added", len(event.Added), "removed", len(event.Removed))
}

func unmarshalParams(params jsonrpc.RawMessage, v interface{}) error {
	if len(params) == 0 {
		return jsonrpc.Errorf(jsonrpc.CodeInvalidParams, "missing params")
	}
	if err := json.Unmarshal(params, v); err != nil {
		return jsonrpc.Errorf(jsonrpc.CodeInvalidParams, "invalid params: %v", err)
	}
	return nil
}

// callHandler decodes params for method and invokes the typed handler.
func callHandler(ctx *Context, handler interface{}, method string, params jsonrpc.RawMessage) (interface{}, error) {
	switch method {
	case protocol.MethodCompletion:
		var p protocol.CompletionParams
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return handler.(CompletionHandler)(ctx, &p)

	case protocol.MethodExecuteCommand:
		var p protocol.ExecuteCommandParams
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return handler.(ExecuteCommandHandler)(ctx, &p)

	case protocol.MethodDidOpen:
		var p protocol.DidOpenTextDocumentParams
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return nil, handler.(DidOpenHandler)(ctx, &p)

	case protocol.MethodDidChange:
		var p protocol.DidChangeTextDocumentParams
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return nil, handler.(DidChangeHandler)(ctx, &p)

	case protocol.MethodDidClose:
		var p protocol.DidCloseTextDocumentParams
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return nil, handler.(DidCloseHandler)(ctx, &p)

	case protocol.MethodInitialized:
		var p protocol.InitializedParams
		if len(params) > 0 && string(params) != "null" {
			if err := unmarshalParams(params, &p); err != nil {
				return nil, err
			}
		}
		return nil, handler.(InitializedHandler)(ctx, &p)

	case protocol.MethodDidChangeConfiguration:
		var p protocol.DidChangeConfigurationParams
		if err := unmarshalParams(params, &p); err != nil {
			return nil, err
		}
		return nil, handler.(DidChangeConfigurationHandler)(ctx, &p)

	default:
		return nil, jsonrpc.Errorf(jsonrpc.CodeMethodNotFound, "no handler for method: %s", method)
	}
}
