package config

import "log/slog"

// Reloader re-reads a TOML file into a Store. A file that fails to load or
// validate leaves the current value in place.
type Reloader[T any] struct {
	store    *Store[T]
	path     string
	defaults *T
	logger   *slog.Logger
}

// NewReloader creates a reloader for path. A missing file reloads defaults.
func NewReloader[T any](store *Store[T], path string, defaults *T, logger *slog.Logger) *Reloader[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reloader[T]{store: store, path: path, defaults: defaults, logger: logger}
}

// Reload loads the file and swaps it into the store.
func (r *Reloader[T]) Reload() error {
	cfg, err := LoadTOML(r.path, r.defaults)
	if err != nil {
		r.logger.Warn("config reload failed, keeping current settings", "path", r.path, "error", err)
		return err
	}
	r.store.Swap(cfg)
	r.logger.Info("config reloaded", "path", r.path)
	return nil
}

// Path returns the file this reloader reads.
func (r *Reloader[T]) Path() string { return r.path }
