// Package grammar resolves language identifiers to loaded tree-sitter
// grammars. The Importer shares one in-flight load per language between all
// callers and caches successful loads for the life of the process.
package grammar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	"golang.org/x/sync/singleflight"
)

// ErrLanguageUnavailable is wrapped by every Import failure other than the
// caller's own context being done: unknown id, loader error, nil grammar or
// load timeout.
var ErrLanguageUnavailable = errors.New("language unavailable")

// Language pairs a language identifier with its loaded grammar. Values are
// shared between documents and must be treated as read-only.
type Language struct {
	ID      string
	Grammar *tree_sitter.Language
}

// Same reports whether l and other refer to the same loaded grammar.
func (l *Language) Same(other *Language) bool {
	if l == nil || other == nil {
		return false
	}
	return l.ID == other.ID && l.Grammar == other.Grammar
}

func (l *Language) String() string {
	if l == nil {
		return "<nil>"
	}
	return l.ID
}

// Importer loads grammars through a Registry. It is safe for concurrent use.
type Importer struct {
	registry    *Registry
	logger      *slog.Logger
	loadTimeout time.Duration

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]*Language

	loads atomic.Int64
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithLogger sets the logger for the importer.
func WithLogger(l *slog.Logger) ImporterOption {
	return func(i *Importer) { i.logger = l }
}

// WithLoadTimeout bounds every underlying load. Zero disables the bound.
func WithLoadTimeout(d time.Duration) ImporterOption {
	return func(i *Importer) { i.loadTimeout = d }
}

// NewImporter creates an importer backed by registry.
func NewImporter(registry *Registry, opts ...ImporterOption) *Importer {
	i := &Importer{
		registry: registry,
		logger:   slog.Default(),
		cache:    make(map[string]*Language),
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Registry returns the registry the importer loads from.
func (i *Importer) Registry() *Registry { return i.registry }

// SetLoadTimeout changes the bound applied to loads started after the call.
func (i *Importer) SetLoadTimeout(d time.Duration) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.loadTimeout = d
}

// Loads returns how many underlying loads have been started.
func (i *Importer) Loads() int64 { return i.loads.Load() }

// Cached returns the cached language for id, if it has been loaded.
func (i *Importer) Cached(id string) (*Language, bool) {
	canonical := i.registry.Resolve(id)
	i.mu.RLock()
	defer i.mu.RUnlock()
	lang, ok := i.cache[canonical]
	return lang, ok
}

// Import returns the language for id, loading it if needed. Concurrent calls
// for the same id share one load. If ctx is done before the load finishes,
// Import returns ctx.Err() while the load keeps running for other callers
// and the cache.
func (i *Importer) Import(ctx context.Context, id string) (*Language, error) {
	if lang, ok := i.Cached(id); ok {
		i.logger.Debug("grammar cache hit", "language", lang.ID)
		return lang, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	canonical := i.registry.Resolve(id)
	ch := i.group.DoChan(canonical, func() (any, error) {
		return i.load(canonical)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Language), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (i *Importer) load(id string) (*Language, error) {
	// A caller may have populated the cache between the miss and DoChan.
	i.mu.RLock()
	lang, ok := i.cache[id]
	timeout := i.loadTimeout
	i.mu.RUnlock()
	if ok {
		return lang, nil
	}

	loader, ok := i.registry.Loader(id)
	if !ok {
		return nil, fmt.Errorf("%w: no grammar registered for %q", ErrLanguageUnavailable, id)
	}

	i.loads.Add(1)
	i.logger.Debug("loading grammar", "language", id)

	// Detached from any single caller: the result is shared and cached.
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	grammar, err := runLoader(ctx, loader)
	if err != nil {
		i.logger.Warn("grammar load failed", "language", id, "error", err)
		return nil, fmt.Errorf("%w: loading %q: %w", ErrLanguageUnavailable, id, err)
	}
	if grammar == nil {
		return nil, fmt.Errorf("%w: loader for %q returned no grammar", ErrLanguageUnavailable, id)
	}

	lang = &Language{ID: id, Grammar: grammar}
	i.mu.Lock()
	i.cache[id] = lang
	i.mu.Unlock()

	i.logger.Debug("grammar loaded", "language", id, "elapsed", time.Since(start))
	return lang, nil
}

// runLoader calls loader and converts a panic into an error. It also stops
// waiting once ctx expires so a loader that ignores its context cannot hold
// the shared load open past the timeout.
func runLoader(ctx context.Context, loader Loader) (*tree_sitter.Language, error) {
	type result struct {
		lang *tree_sitter.Language
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("loader panicked: %v", r)}
			}
		}()
		lang, err := loader(ctx)
		done <- result{lang: lang, err: err}
	}()

	select {
	case r := <-done:
		return r.lang, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
