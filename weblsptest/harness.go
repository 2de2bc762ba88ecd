// Package weblsptest drives a weblsp server from an in-memory client, with
// helpers for the requests and notifications a test usually needs.
package weblsptest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gossip-lsp/weblsp"
	"github.com/gossip-lsp/weblsp/jsonrpc"
	"github.com/gossip-lsp/weblsp/protocol"
	"github.com/gossip-lsp/weblsp/transport"
)

const callTimeout = 5 * time.Second

// syncMethod is a request no server handles. Its reply proves that every
// notification sent before it has been processed.
const syncMethod = "weblsptest/sync"

// Client is an LSP client connected to a server over an in-memory pipe.
type Client struct {
	t      testing.TB
	conn   *jsonrpc.Conn
	served chan error

	mu            sync.Mutex
	notifications []Notification
	requests      []Notification
	configuration []json.RawMessage
}

// Notification is a server-to-client notification or request as received.
type Notification struct {
	Method string
	Params json.RawMessage
}

type clientConfig struct {
	init       *protocol.InitializeParams
	initialize bool
}

type Option func(*clientConfig)

// WithInitializeParams replaces the params sent with initialize.
func WithInitializeParams(p *protocol.InitializeParams) Option {
	return func(c *clientConfig) { c.init = p }
}

// WithoutInitialize leaves the server uninitialized.
func WithoutInitialize() Option {
	return func(c *clientConfig) { c.initialize = false }
}

// NewClient starts s in the background and connects a client to it. The
// handshake is performed unless WithoutInitialize is given. Everything is
// torn down when the test ends.
func NewClient(t testing.TB, s *weblsp.Server, opts ...Option) *Client {
	t.Helper()
	cfg := &clientConfig{init: &protocol.InitializeParams{}, initialize: true}
	for _, o := range opts {
		o(cfg)
	}

	clientSide, serverSide := transport.MemoryPipe()
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{t: t, served: make(chan error, 1)}
	go func() {
		c.served <- weblsp.Serve(ctx, s, weblsp.WithTransport(serverSide))
	}()

	c.conn = jsonrpc.NewConn(jsonrpc.NewCodec(clientSide, clientSide), c.handleRequest, c.handleNotification)
	go func() { _ = c.conn.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		c.conn.Close()
		clientSide.Close()
	})

	if cfg.initialize {
		c.Initialize(cfg.init)
	}
	return c
}

func (c *Client) handleRequest(_ context.Context, method string, params jsonrpc.RawMessage) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, Notification{Method: method, Params: params})

	switch method {
	case protocol.MethodWorkspaceConfiguration:
		return c.configuration, nil
	case protocol.MethodRegisterCapability:
		return nil, nil
	}
	return nil, jsonrpc.Errorf(jsonrpc.CodeMethodNotFound, "test client does not handle %s", method)
}

func (c *Client) handleNotification(_ context.Context, method string, params jsonrpc.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifications = append(c.notifications, Notification{Method: method, Params: params})
}

// SetConfiguration sets the items returned for workspace/configuration.
func (c *Client) SetConfiguration(items ...json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configuration = items
}

// Initialize performs the initialize / initialized handshake.
func (c *Client) Initialize(params *protocol.InitializeParams) *protocol.InitializeResult {
	c.t.Helper()
	var result protocol.InitializeResult
	c.call(protocol.MethodInitialize, params, &result)
	c.notify(protocol.MethodInitialized, &protocol.InitializedParams{})
	return &result
}

// Open sends didOpen with a language id guessed by the caller.
func (c *Client) Open(uri, languageID, text string) {
	c.t.Helper()
	c.notify(protocol.MethodDidOpen, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        protocol.DocumentURI(uri),
			LanguageID: languageID,
			Version:    1,
			Text:       text,
		},
	})
}

// Change replaces the whole document text.
func (c *Client) Change(uri string, version int32, text string) {
	c.t.Helper()
	c.ChangeEvents(uri, version, protocol.TextDocumentContentChangeEvent{Text: text})
}

// ChangeIncremental replaces rng with text.
func (c *Client) ChangeIncremental(uri string, version int32, rng protocol.Range, text string) {
	c.t.Helper()
	c.ChangeEvents(uri, version, protocol.TextDocumentContentChangeEvent{Range: &rng, Text: text})
}

func (c *Client) ChangeEvents(uri string, version int32, events ...protocol.TextDocumentContentChangeEvent) {
	c.t.Helper()
	c.notify(protocol.MethodDidChange, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
			Version:                version,
		},
		ContentChanges: events,
	})
}

func (c *Client) Close(uri string) {
	c.t.Helper()
	c.notify(protocol.MethodDidClose, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
	})
}

// ChangeConfiguration sends workspace/didChangeConfiguration.
func (c *Client) ChangeConfiguration(settings interface{}) {
	c.t.Helper()
	raw, err := json.Marshal(settings)
	if err != nil {
		c.t.Fatalf("encoding settings: %v", err)
	}
	c.notify(protocol.MethodDidChangeConfiguration, &protocol.DidChangeConfigurationParams{Settings: raw})
}

// Completion requests completion at pos.
func (c *Client) Completion(uri string, pos protocol.Position) (*protocol.CompletionList, error) {
	c.t.Helper()
	var result protocol.CompletionList
	err := c.Call(protocol.MethodCompletion, &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri)},
			Position:     pos,
		},
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ExecuteCommand runs a workspace command and decodes its result into out.
func (c *Client) ExecuteCommand(command string, out interface{}) error {
	c.t.Helper()
	return c.Call(protocol.MethodExecuteCommand, &protocol.ExecuteCommandParams{Command: command}, out)
}

// Sync waits until the server has processed every notification sent so far
// and the client has received everything the server sent in response.
func (c *Client) Sync() {
	c.t.Helper()
	err := c.Call(syncMethod, nil, nil)
	var rpcErr *jsonrpc.Error
	if err != nil && !(errors.As(err, &rpcErr) && rpcErr.Code == jsonrpc.CodeMethodNotFound) {
		c.t.Fatalf("sync failed: %v", err)
	}
}

// Shutdown sends the shutdown request.
func (c *Client) Shutdown() {
	c.t.Helper()
	c.call(protocol.MethodShutdown, nil, nil)
}

// Exit sends exit and returns the error Serve ended with.
func (c *Client) Exit() error {
	c.t.Helper()
	c.notify(protocol.MethodExit, nil)
	return c.ServeResult()
}

// ServeResult waits for Serve to return.
func (c *Client) ServeResult() error {
	c.t.Helper()
	select {
	case err := <-c.served:
		return err
	case <-time.After(callTimeout):
		c.t.Fatal("timed out waiting for the server to stop")
		return nil
	}
}

// Notifications returns every notification received so far with the given
// method, or all of them when method is empty.
func (c *Client) Notifications(method string) []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Notification
	for _, n := range c.notifications {
		if method == "" || n.Method == method {
			out = append(out, n)
		}
	}
	return out
}

// Requests returns every request the server sent with the given method.
func (c *Client) Requests(method string) []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Notification
	for _, r := range c.requests {
		if r.Method == method {
			out = append(out, r)
		}
	}
	return out
}

// LogMessages returns the window/logMessage notifications received so far.
func (c *Client) LogMessages() []protocol.LogMessageParams {
	c.t.Helper()
	var out []protocol.LogMessageParams
	for _, n := range c.Notifications(protocol.MethodLogMessage) {
		var p protocol.LogMessageParams
		if err := json.Unmarshal(n.Params, &p); err != nil {
			c.t.Fatalf("decoding logMessage: %v", err)
		}
		out = append(out, p)
	}
	return out
}

// Messages returns the window/showMessage notifications received so far.
func (c *Client) Messages() []protocol.ShowMessageParams {
	c.t.Helper()
	var out []protocol.ShowMessageParams
	for _, n := range c.Notifications(protocol.MethodShowMessage) {
		var p protocol.ShowMessageParams
		if err := json.Unmarshal(n.Params, &p); err != nil {
			c.t.Fatalf("decoding showMessage: %v", err)
		}
		out = append(out, p)
	}
	return out
}

// ClearNotifications forgets everything received so far.
func (c *Client) ClearNotifications() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifications = nil
}

// Call sends any request and decodes the result into result if non-nil.
func (c *Client) Call(method string, params, result interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	resp, err := c.conn.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if result != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}

func (c *Client) call(method string, params, result interface{}) {
	c.t.Helper()
	if err := c.Call(method, params, result); err != nil {
		c.t.Fatalf("call %s failed: %v", method, err)
	}
}

// Notify sends any notification.
func (c *Client) Notify(method string, params interface{}) {
	c.t.Helper()
	c.notify(method, params)
}

func (c *Client) notify(method string, params interface{}) {
	c.t.Helper()
	if err := c.conn.Notify(context.Background(), method, params); err != nil {
		c.t.Fatalf("notify %s failed: %v", method, err)
	}
}
