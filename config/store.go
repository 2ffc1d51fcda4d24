// Package config provides a generic, hot-reloadable configuration system
// for treesync: TOML settings files, an atomic store with change listeners
// and fsnotify-based file watching.
package config

import (
	"sync/atomic"

	"github.com/gossip-lsp/treesync/event"
)

// Change describes one swap of a Store value.
type Change[T any] struct {
	Old, New *T
}

// Store holds the current configuration value with atomic read/swap semantics.
// T must be a struct type.
type Store[T any] struct {
	value   atomic.Pointer[T]
	changed event.Emitter[Change[T]]
}

// NewStore creates a config store with the given initial value.
func NewStore[T any](initial *T) *Store[T] {
	s := &Store[T]{}
	s.value.Store(initial)
	return s
}

// Get returns the current config value (zero-lock read).
func (s *Store[T]) Get() *T {
	return s.value.Load()
}

// Swap atomically replaces the config and notifies all listeners.
func (s *Store[T]) Swap(new_ *T) *T {
	old := s.value.Swap(new_)
	s.changed.Fire(Change[T]{Old: old, New: new_})
	return old
}

// OnChange registers a listener called whenever the config changes.
func (s *Store[T]) OnChange(fn func(Change[T])) event.Subscription {
	return s.changed.Subscribe(fn)
}
