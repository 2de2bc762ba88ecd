// Package config holds hot-reloadable server settings: a TOML file layer,
// an editor settings layer on top of it, and an atomic store that notifies
// listeners when the effective value changes.
package config

import (
	"sync"
	"sync/atomic"
)

// Store holds the current configuration value. Reads never lock.
type Store[T any] struct {
	value atomic.Pointer[T]

	mu        sync.RWMutex
	listeners []func(old, cur *T)
}

func NewStore[T any](initial *T) *Store[T] {
	s := &Store[T]{}
	s.value.Store(initial)
	return s
}

// Get returns the current value. Callers must not mutate it.
func (s *Store[T]) Get() *T {
	return s.value.Load()
}

// Swap installs cur and calls every listener with the previous value.
func (s *Store[T]) Swap(cur *T) *T {
	old := s.value.Swap(cur)

	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(old, cur)
	}
	return old
}

// OnChange registers a listener run synchronously by Swap.
func (s *Store[T]) OnChange(fn func(old, cur *T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
