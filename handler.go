package weblsp

import (
	"encoding/json"

	"github.com/gossip-lsp/weblsp/protocol"
)

// RawHandler answers a request for a method without a typed registration.
type RawHandler func(ctx *Context, params json.RawMessage) (interface{}, error)

// RawNotificationHandler processes a notification without a typed registration.
type RawNotificationHandler func(ctx *Context, params json.RawMessage) error

// InitializeHook runs while the initialize request is being answered, after
// workspace state and configuration are in place. A non-nil error fails the
// request.
type InitializeHook func(ctx *Context, params *protocol.InitializeParams) error

// InitializedHandler runs when the client confirms initialization. It runs
// on the read loop, so requests to the client must be made from another
// goroutine.
type InitializedHandler func(ctx *Context, params *protocol.InitializedParams) error

type CompletionHandler func(ctx *Context, params *protocol.CompletionParams) (*protocol.CompletionList, error)
type ExecuteCommandHandler func(ctx *Context, params *protocol.ExecuteCommandParams) (interface{}, error)

type DidOpenHandler func(ctx *Context, params *protocol.DidOpenTextDocumentParams) error
type DidChangeHandler func(ctx *Context, params *protocol.DidChangeTextDocumentParams) error
type DidCloseHandler func(ctx *Context, params *protocol.DidCloseTextDocumentParams) error
type DidChangeConfigurationHandler func(ctx *Context, params *protocol.DidChangeConfigurationParams) error
