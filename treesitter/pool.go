package treesitter

import (
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// DefaultPoolSize is the number of idle parsers a ParserPool keeps.
const DefaultPoolSize = 4

// ParserPool recycles tree-sitter parser instances for one grammar to avoid
// the per-parse allocation of tree_sitter.NewParser / Close.
//
//	sp, err := pool.Get()
//	if err != nil { ... }
//	defer pool.Put(sp)
//	tree := sp.Parse(source, nil)
//
// At most size parsers are kept idle; parsers returned beyond that, and
// every parser returned after Close, are closed. Safe for use by multiple
// goroutines simultaneously.
type ParserPool struct {
	lang *tree_sitter.Language
	idle chan *tree_sitter.Parser

	mu     sync.Mutex
	leased int
	closed bool
}

// NewParserPool creates a pool for the given grammar keeping up to size
// idle parsers (DefaultPoolSize if size < 1). It fails if the grammar is
// rejected by tree-sitter (for example an incompatible ABI).
func NewParserPool(lang *tree_sitter.Language, size int) (*ParserPool, error) {
	if size < 1 {
		size = DefaultPoolSize
	}
	first := tree_sitter.NewParser()
	if err := first.SetLanguage(lang); err != nil {
		first.Close()
		return nil, fmt.Errorf("%w: setting language: %w", ErrParse, err)
	}

	p := &ParserPool{lang: lang, idle: make(chan *tree_sitter.Parser, size)}
	p.idle <- first
	return p, nil
}

// Get leases a parser configured for the pool's grammar.
func (p *ParserPool) Get() (*tree_sitter.Parser, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: parser pool closed", ErrParse)
	}
	p.leased++
	p.mu.Unlock()

	var sp *tree_sitter.Parser
	select {
	case sp = <-p.idle:
	default:
		sp = tree_sitter.NewParser()
		if err := sp.SetLanguage(p.lang); err != nil {
			sp.Close()
			p.release()
			return nil, fmt.Errorf("%w: setting language: %w", ErrParse, err)
		}
	}
	return sp, nil
}

// Put returns a parser to the pool. The parser is reset so it holds no
// state from its previous parse. Callers must not use sp after Put.
func (p *ParserPool) Put(sp *tree_sitter.Parser) {
	if sp == nil {
		return
	}
	sp.Reset()

	// closed is read under mu so Close cannot drain idle between the check
	// and the send.
	p.mu.Lock()
	defer p.mu.Unlock()
	p.leased--
	if p.closed {
		sp.Close()
		return
	}
	select {
	case p.idle <- sp:
	default:
		sp.Close()
	}
}

func (p *ParserPool) release() {
	p.mu.Lock()
	p.leased--
	p.mu.Unlock()
}

// Leased returns the number of parsers currently checked out.
func (p *ParserPool) Leased() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.leased
}

// Idle returns the number of parsers waiting in the pool.
func (p *ParserPool) Idle() int {
	return len(p.idle)
}

// Close closes every idle parser. Leased parsers are closed when they are
// returned. Close is idempotent.
func (p *ParserPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for {
		select {
		case sp := <-p.idle:
			sp.Close()
		default:
			return
		}
	}
}
