package weblsp

import (
	"context"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"go.lsp.dev/uri"

	"github.com/gossip-lsp/weblsp/document"
	mw "github.com/gossip-lsp/weblsp/middleware"
	"github.com/gossip-lsp/weblsp/protocol"
)

// Context is passed to every handler. It carries the request context and
// the services a handler may use.
type Context struct {
	context.Context

	Client    *ClientProxy
	Documents *document.Store
	server    *Server
}

func newContext(ctx context.Context, s *Server) *Context {
	return &Context{
		Context:   ctx,
		Client:    s.client,
		Documents: s.docStore,
		server:    s,
	}
}

func (c *Context) ServerInfo() protocol.ServerInfo {
	return protocol.ServerInfo{Name: c.server.name, Version: c.server.version}
}

func (c *Context) Server() *Server { return c.server }

// Logger returns the server logger, tagged with the method being handled
// when the Tracing middleware is installed.
func (c *Context) Logger() *slog.Logger {
	if method := mw.TraceMethod(c.Context); method != "" {
		return c.server.logger.With("method", method, "trace", mw.TraceID(c.Context))
	}
	return c.server.logger
}

// WorkspaceRoot returns the first workspace folder, falling back to the
// rootUri sent with initialize.
func (c *Context) WorkspaceRoot() protocol.DocumentURI {
	c.server.mu.RLock()
	defer c.server.mu.RUnlock()
	if len(c.server.workspaceFolders) > 0 {
		return c.server.workspaceFolders[0].URI
	}
	if c.server.rootURI != nil {
		return *c.server.rootURI
	}
	return ""
}

func (c *Context) WorkspaceFolders() []protocol.WorkspaceFolder {
	c.server.mu.RLock()
	defer c.server.mu.RUnlock()
	return append([]protocol.WorkspaceFolder(nil), c.server.workspaceFolders...)
}

func (c *Context) ClientCapabilities() protocol.ClientCapabilities {
	c.server.mu.RLock()
	defer c.server.mu.RUnlock()
	return c.server.clientCaps
}

// workspaceDir maps a workspace URI to a local directory. Non-file URIs
// have none.
func workspaceDir(root protocol.DocumentURI) string {
	if root == "" {
		return ""
	}
	u, err := uri.Parse(string(root))
	if err != nil || !strings.HasPrefix(string(u), uri.FileScheme+"://") {
		return ""
	}
	return u.Filename()
}

func uriBasename(root protocol.DocumentURI) string {
	if dir := workspaceDir(root); dir != "" {
		return filepath.Base(dir)
	}
	return path.Base(strings.TrimRight(string(root), "/"))
}
