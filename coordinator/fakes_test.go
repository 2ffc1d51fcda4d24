package coordinator_test

import (
	"context"
	"sync"
	"testing"
	"time"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/gossip-lsp/treesync/grammar"
	"github.com/gossip-lsp/treesync/treesitter"
)

// jsonGrammar is used for every fake language id; the ids differ so trees
// are never reused across them.
func jsonGrammar(t testing.TB) *tree_sitter.Language {
	t.Helper()
	lang, err := grammar.NewImporter(grammar.Builtin()).Import(context.Background(), "json")
	if err != nil {
		t.Fatal(err)
	}
	return lang.Grammar
}

// fakeImporter resolves any id to the json grammar, with per-id latency,
// gates and failures.
type fakeImporter struct {
	grammar *tree_sitter.Language

	mu    sync.Mutex
	calls map[string]int
	delay map[string]time.Duration
	gates map[string]chan struct{}
	fail  map[string]error
}

func newFakeImporter(t testing.TB) *fakeImporter {
	return &fakeImporter{
		grammar: jsonGrammar(t),
		calls:   make(map[string]int),
		delay:   make(map[string]time.Duration),
		gates:   make(map[string]chan struct{}),
		fail:    make(map[string]error),
	}
}

func (f *fakeImporter) setDelay(id string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay[id] = d
}

func (f *fakeImporter) gate(id string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[id] = ch
	return ch
}

func (f *fakeImporter) setFail(id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, id)
		return
	}
	f.fail[id] = err
}

func (f *fakeImporter) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeImporter) Import(ctx context.Context, id string) (*grammar.Language, error) {
	f.mu.Lock()
	f.calls[id]++
	d, gate, err := f.delay[id], f.gates[id], f.fail[id]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &grammar.Language{ID: id, Grammar: f.grammar}, nil
}

// scriptedParser wraps a real parser. The n-th call (1-based) can be held
// on a gate or delayed; it ignores its context, like a parser that cannot
// be interrupted.
type scriptedParser struct {
	inner treesitter.Parser

	mu      sync.Mutex
	calls   int
	gates   map[int]chan struct{}
	delays  map[int]time.Duration
	fail    error
	sources []string
}

func newScriptedParser() *scriptedParser {
	return &scriptedParser{
		inner:  treesitter.NewTreeSitterParser(),
		gates:  make(map[int]chan struct{}),
		delays: make(map[int]time.Duration),
	}
}

func (p *scriptedParser) gateCall(n int) chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan struct{})
	p.gates[n] = ch
	return ch
}

func (p *scriptedParser) delayCall(n int, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delays[n] = d
}

func (p *scriptedParser) setFail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = err
}

func (p *scriptedParser) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *scriptedParser) Parse(ctx context.Context, req treesitter.Request) (*treesitter.Result, error) {
	p.mu.Lock()
	p.calls++
	n := p.calls
	gate, d, err := p.gates[n], p.delays[n], p.fail
	p.sources = append(p.sources, string(req.Source))
	p.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if d > 0 {
		time.Sleep(d)
	}
	if err != nil {
		req.Previous.Close()
		return nil, err
	}
	return p.inner.Parse(context.Background(), req)
}
