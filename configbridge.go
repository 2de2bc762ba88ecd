package weblsp

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/gossip-lsp/weblsp/config"
)

// configHolder erases the type parameter of the configured settings type.
type configHolder interface {
	start(logger *slog.Logger, rootDir string, initOptions []byte)
	applyClient(raw []byte) error
	close()
}

type typedConfigHolder[T any] struct {
	store    *config.Store[T]
	bridge   *config.WorkspaceBridge[T]
	watcher  *config.Watcher
	filename string
	defaults *T
}

// WithConfig enables typed, hot-reloaded configuration. filename is read
// relative to the workspace root unless absolute, and a relative filename
// is ignored when the client names no file-scheme root; defaults apply until
// initialize and wherever the file is silent. If *T implements
// config.ClientApplier, initializationOptions and
// workspace/didChangeConfiguration settings are layered over the file.
func WithConfig[T any](filename string, defaults T) Option {
	return func(s *Server) {
		initial := defaults
		s.configHolder = &typedConfigHolder[T]{
			store:    config.NewStore(&initial),
			filename: filename,
			defaults: &defaults,
		}
	}
}

// Config returns the current settings, or nil if T does not match WithConfig.
func Config[T any](ctx *Context) *T {
	return ServerConfig[T](ctx.server)
}

// ServerConfig is Config for callers without a handler context.
func ServerConfig[T any](s *Server) *T {
	if h, ok := s.configHolder.(*typedConfigHolder[T]); ok {
		return h.store.Get()
	}
	return nil
}

// OnConfigChange registers fn for every settings change. T must match
// the type given to WithConfig.
func OnConfigChange[T any](s *Server, fn func(ctx *Context, old, cur *T)) {
	h, ok := s.configHolder.(*typedConfigHolder[T])
	if !ok {
		return
	}
	h.store.OnChange(func(old, cur *T) {
		fn(newContext(context.Background(), s), old, cur)
	})
}

func (h *typedConfigHolder[T]) start(logger *slog.Logger, rootDir string, initOptions []byte) {
	path := h.filename
	if !filepath.IsAbs(path) {
		if rootDir == "" {
			path = ""
		} else {
			path = filepath.Join(rootDir, path)
		}
	}
	h.bridge = config.NewWorkspaceBridge(h.store, path, h.defaults)

	if err := h.bridge.UpdateClient(initOptions); err != nil {
		logger.Warn("failed to load initial config", "path", h.bridge.Path(), "error", err)
	}
	if h.bridge.Path() == "" {
		logger.Info("no workspace root, config file disabled", "file", h.filename)
		return
	}

	watcher, err := config.NewWatcher(h.bridge.Path(), func() {
		if err := h.bridge.HandleChange(); err != nil {
			logger.Warn("failed to reload config", "path", h.bridge.Path(), "error", err)
		}
	}, config.WithWatcherLogger(logger))
	if err != nil {
		logger.Warn("config hot reload disabled", "path", h.bridge.Path(), "error", err)
		return
	}
	h.watcher = watcher
}

func (h *typedConfigHolder[T]) applyClient(raw []byte) error {
	if h.bridge == nil {
		return nil
	}
	return h.bridge.UpdateClient(raw)
}

func (h *typedConfigHolder[T]) close() {
	if h.watcher != nil {
		h.watcher.Close()
	}
}
