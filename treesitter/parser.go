package treesitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/gossip-lsp/treesync/document"
	"github.com/gossip-lsp/treesync/grammar"
)

// ErrParse is wrapped by every Parser failure that is not the caller's
// context being done. Tree-sitter recovers from malformed input, so a parse
// error points at a fault in the parser or its resources.
var ErrParse = errors.New("parse failed")

// Request is one parse call.
type Request struct {
	// Language is the grammar to parse with. Required.
	Language *grammar.Language

	// Source is the text to parse.
	Source []byte

	// Previous, if non-nil, is a tree the parser may reuse. Parse takes
	// ownership and closes it. It is ignored when it was parsed with a
	// different grammar than Language.
	Previous *Snapshot

	// Edits are applied to Previous, in order, before re-parsing. Leave
	// empty when Previous has already been edited to match Source.
	Edits []document.EditRange
}

// Result is a successful parse.
type Result struct {
	Tree        *tree_sitter.Tree
	Diff        *TreeDiff
	Incremental bool
}

// Parser produces syntax trees. Implementations must not block the caller
// beyond the parse itself and should return promptly once ctx is done; they
// do not decide whether a result is stale.
type Parser interface {
	Parse(ctx context.Context, req Request) (*Result, error)
}

// TreeSitterParser parses with go-tree-sitter on a worker goroutine, leasing
// parsers from a pool per grammar.
type TreeSitterParser struct {
	logger *slog.Logger

	poolSize int

	mu     sync.Mutex
	pools  map[*tree_sitter.Language]*ParserPool
	closed bool

	parses      atomic.Int64
	incremental atomic.Int64
}

// ParserOption configures a TreeSitterParser.
type ParserOption func(*TreeSitterParser)

// WithLogger sets the logger for the parser.
func WithLogger(l *slog.Logger) ParserOption {
	return func(p *TreeSitterParser) { p.logger = l }
}

// WithPoolSize sets how many idle parsers are kept per grammar.
func WithPoolSize(n int) ParserOption {
	return func(p *TreeSitterParser) { p.poolSize = n }
}

// NewTreeSitterParser creates a parser with no pools; pools are created on
// first use of each grammar.
func NewTreeSitterParser(opts ...ParserOption) *TreeSitterParser {
	p := &TreeSitterParser{
		logger: slog.Default(),
		pools:  make(map[*tree_sitter.Language]*ParserPool),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Stats returns the number of completed parses and how many of them reused a
// previous tree.
func (p *TreeSitterParser) Stats() (parses, incremental int64) {
	return p.parses.Load(), p.incremental.Load()
}

type outcome struct {
	res *Result
	err error
}

// Parse implements Parser. If ctx is done before the worker finishes, Parse
// returns ctx.Err() and the late tree is closed when it arrives.
func (p *TreeSitterParser) Parse(ctx context.Context, req Request) (*Result, error) {
	if req.Language == nil || req.Language.Grammar == nil {
		req.Previous.Close()
		return nil, fmt.Errorf("%w: no grammar", ErrParse)
	}
	if err := ctx.Err(); err != nil {
		req.Previous.Close()
		return nil, err
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: parser panicked: %v", ErrParse, r)}
			}
		}()
		res, err := p.parse(req)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		go func() {
			if o := <-done; o.res != nil {
				o.res.Tree.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

func (p *TreeSitterParser) parse(req Request) (*Result, error) {
	prev := req.Previous
	defer prev.Close()

	pool, err := p.pool(req.Language.Grammar)
	if err != nil {
		return nil, err
	}
	sp, err := pool.Get()
	if err != nil {
		return nil, err
	}
	defer pool.Put(sp)

	var old *tree_sitter.Tree
	if prev != nil && prev.Language().Same(req.Language) {
		old = prev.Raw()
		for _, e := range req.Edits {
			prev.ApplyEdit(e)
		}
	}

	tree := sp.Parse(req.Source, old)
	if tree == nil {
		return nil, fmt.Errorf("%w: tree-sitter returned no tree for %s", ErrParse, req.Language)
	}
	p.parses.Add(1)

	if old == nil {
		return &Result{Tree: tree, Diff: fullDiff(tree)}, nil
	}
	p.incremental.Add(1)
	return &Result{Tree: tree, Diff: computeTreeDiff(old, tree), Incremental: true}, nil
}

func (p *TreeSitterParser) pool(lang *tree_sitter.Language) (*ParserPool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, fmt.Errorf("%w: parser closed", ErrParse)
	}
	if pool, ok := p.pools[lang]; ok {
		return pool, nil
	}
	pool, err := NewParserPool(lang, p.poolSize)
	if err != nil {
		return nil, err
	}
	p.pools[lang] = pool
	return pool, nil
}

// Close releases every pooled tree-sitter parser. Parses still running
// finish normally; later calls to Parse fail with ErrParse. Close is
// idempotent.
func (p *TreeSitterParser) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for lang, pool := range p.pools {
		pool.Close()
		delete(p.pools, lang)
	}
}
