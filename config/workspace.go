package config

import (
	"fmt"
	"sync"
)

// WorkspaceBridge recomputes the effective configuration from its layers
// and swaps it into the store. The file layer is re-read on every change;
// the latest editor settings are replayed on top when T is a ClientApplier.
// An unreadable file leaves the last good file layer in place, so editor
// settings keep applying while the file is broken.
type WorkspaceBridge[T any] struct {
	store    *Store[T]
	filePath string
	defaults *T

	mu       sync.Mutex
	lastFile *T
	client   []byte
}

// NewWorkspaceBridge creates a bridge over filePath. An empty filePath
// means there is no file layer.
func NewWorkspaceBridge[T any](store *Store[T], filePath string, defaults *T) *WorkspaceBridge[T] {
	return &WorkspaceBridge[T]{
		store:    store,
		filePath: filePath,
		defaults: defaults,
		lastFile: defaults,
	}
}

// Path is the config file the bridge reads, or "" without a file layer.
func (b *WorkspaceBridge[T]) Path() string { return b.filePath }

// HandleChange rebuilds the configuration. A file error is returned after
// the client layer has been applied over the last good file layer.
func (b *WorkspaceBridge[T]) HandleChange() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	fileErr, clientErr := b.reload()
	if clientErr != nil {
		return clientErr
	}
	return fileErr
}

// UpdateClient records new editor settings and rebuilds. A nil or JSON null
// payload clears the editor layer. Settings that fail to apply or validate
// are not kept and leave the store unchanged.
func (b *WorkspaceBridge[T]) UpdateClient(raw []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev := b.client
	if len(raw) == 0 || string(raw) == "null" {
		b.client = nil
	} else {
		b.client = append([]byte(nil), raw...)
	}
	fileErr, clientErr := b.reload()
	if clientErr != nil {
		b.client = prev
		return clientErr
	}
	return fileErr
}

// reload swaps in a new value unless the client layer is rejected.
func (b *WorkspaceBridge[T]) reload() (fileErr, clientErr error) {
	base := b.lastFile
	if b.filePath != "" {
		loaded, err := LoadTOML(b.filePath, b.defaults)
		if err != nil {
			fileErr = err
		} else {
			base = loaded
			b.lastFile = loaded
		}
	}

	cfg := new(T)
	if base != nil {
		*cfg = *base
	}
	if b.client != nil {
		if ca, ok := any(cfg).(ClientApplier); ok {
			if err := ca.ApplyClientSettings(b.client); err != nil {
				return fileErr, fmt.Errorf("applying client settings: %w", err)
			}
			if err := validate(cfg); err != nil {
				return fileErr, fmt.Errorf("validating client settings: %w", err)
			}
		}
	}
	b.store.Swap(cfg)
	return fileErr, nil
}
