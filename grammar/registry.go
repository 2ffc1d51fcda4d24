package grammar

import (
	"context"
	"path"
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Loader produces the tree-sitter grammar for one language. It may be slow
// (reading a shared library, downloading a wasm blob) and is called at most
// once at a time per language by the Importer.
type Loader func(ctx context.Context) (*tree_sitter.Language, error)

// Matcher associates a language id with file-matching rules. At least one of
// Extensions, Filenames or Pattern should be set.
type Matcher struct {
	LanguageID string
	Extensions []string // e.g., [".yml", ".yaml"]
	Filenames  []string // exact filenames, e.g., ["go.mod"]
	Pattern    string   // glob pattern, e.g., ".github/workflows/*.yml"
}

// Registry maps language ids and aliases to loaders, and file paths to
// language ids.
type Registry struct {
	mu       sync.RWMutex
	loaders  map[string]Loader
	aliases  map[string]string
	matchers []Matcher
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		loaders: make(map[string]Loader),
		aliases: make(map[string]string),
	}
}

// Register adds or replaces the loader for a language id.
func (r *Registry) Register(id string, loader Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[id] = loader
}

// RegisterStatic registers a grammar that is already in memory.
func (r *Registry) RegisterStatic(id string, lang *tree_sitter.Language) {
	r.Register(id, func(context.Context) (*tree_sitter.Language, error) { return lang, nil })
}

// Alias makes alias resolve to the language id target.
func (r *Registry) Alias(alias, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[alias] = target
}

// SetAliases replaces every alias with the given map.
func (r *Registry) SetAliases(aliases map[string]string) {
	next := make(map[string]string, len(aliases))
	for k, v := range aliases {
		next[k] = v
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases = next
}

// Aliases returns a copy of the alias table.
func (r *Registry) Aliases() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.aliases))
	for k, v := range r.aliases {
		out[k] = v
	}
	return out
}

// RegisterMatcher adds a path matcher. Matchers are evaluated in
// registration order within each pass of LanguageForPath.
func (r *Registry) RegisterMatcher(m Matcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matchers = append(r.matchers, m)
}

// Resolve returns the canonical id for id, following aliases. Alias chains
// are followed up to a small depth to stay safe against cycles.
func (r *Registry) Resolve(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for range 8 {
		target, ok := r.aliases[id]
		if !ok || target == id {
			break
		}
		id = target
	}
	return id
}

// Loader returns the loader for id after alias resolution.
func (r *Registry) Loader(id string) (Loader, bool) {
	canonical := r.Resolve(id)
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.loaders[canonical]
	return l, ok
}

// IDs returns the registered canonical language ids.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.loaders))
	for id := range r.loaders {
		ids = append(ids, id)
	}
	return ids
}

// LanguageForPath returns the language id for a file path or URI. It
// evaluates in this order:
//  1. exact filename match
//  2. glob pattern match (full path, then base name)
//  3. extension match
func (r *Registry) LanguageForPath(p string) (string, bool) {
	filename := path.Base(p)
	ext := path.Ext(p)

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.matchers {
		for _, fn := range m.Filenames {
			if fn == filename {
				return m.LanguageID, true
			}
		}
	}

	for _, m := range r.matchers {
		if m.Pattern == "" {
			continue
		}
		if matched, _ := path.Match(m.Pattern, p); matched {
			return m.LanguageID, true
		}
		if matched, _ := path.Match(m.Pattern, filename); matched {
			return m.LanguageID, true
		}
	}

	if ext != "" {
		for _, m := range r.matchers {
			for _, mExt := range m.Extensions {
				if !strings.HasPrefix(mExt, ".") {
					mExt = "." + mExt
				}
				if mExt == ext {
					return m.LanguageID, true
				}
			}
		}
	}

	return "", false
}
