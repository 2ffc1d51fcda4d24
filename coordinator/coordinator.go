// Package coordinator keeps one syntax tree per document in step with the
// document's text and language. Grammar loads and parses run on goroutines
// and may finish in any order; every result is tagged with the generation
// that requested it and only the latest generation is ever published.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gossip-lsp/treesync/document"
	"github.com/gossip-lsp/treesync/event"
	"github.com/gossip-lsp/treesync/grammar"
	"github.com/gossip-lsp/treesync/treesitter"
)

// State is the coordinator's request state.
type State int

const (
	// Idle means no request is in flight.
	Idle State = iota
	// Parsing means the request for the latest generation is in flight.
	Parsing
	// ParsingStale means a request is in flight but a newer generation
	// exists; its result will be discarded and the latest re-requested.
	ParsingStale
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Parsing:
		return "parsing"
	case ParsingStale:
		return "parsing-stale"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Importer resolves a language id to a loaded grammar. *grammar.Importer
// implements it.
type Importer interface {
	Import(ctx context.Context, id string) (*grammar.Language, error)
}

// Failure reports a generation that ended without a tree. Err wraps
// grammar.ErrLanguageUnavailable or treesitter.ErrParse.
type Failure struct {
	Generation uint64
	Version    int32
	LanguageID string
	Err        error
}

// request is the document state captured for one generation.
type request struct {
	generation uint64
	text       string
	version    int32
	languageID string

	// languageChanged is set when the language id changed since the
	// previous request was issued.
	languageChanged bool
}

// outcome is what a request produced. fallback marks a tree parsed with the
// last resolved language because languageID itself was unavailable.
type outcome struct {
	lang     *grammar.Language
	res      *treesitter.Result
	err      error
	fallback bool
}

// Coordinator owns the published tree for one document. All state
// transitions happen under mu; grammar loads and parses run without it.
type Coordinator struct {
	importer Importer
	parser   treesitter.Parser
	logger   *slog.Logger
	uri      string

	cancelSuperseded bool

	// notifyMu is taken before mu on the publish path and held while
	// listeners run, so listeners observe publishes in generation order.
	notifyMu sync.Mutex

	mu         sync.Mutex
	doc        document.Handle
	state      State
	generation uint64
	latest     request
	current    *treesitter.Snapshot
	cancel     context.CancelFunc
	disposed   bool

	// lastLanguage was resolved for the requested id lastLanguageID and is
	// reused while the document keeps that id.
	lastLanguage   *grammar.Language
	lastLanguageID string

	// unavailableID is the language id whose latest generation failed with
	// grammar.ErrLanguageUnavailable. Content-only generations for it fall
	// back to lastLanguage.
	unavailableID string

	ctx  context.Context
	stop context.CancelFunc

	subs    event.Group
	updated event.Emitter[*treesitter.Snapshot]
	failed  event.Emitter[Failure]
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithCancelSuperseded makes a new generation cancel the context of the
// request it supersedes. Importers and parsers that honour their context
// then return early and the latest generation is issued sooner. Results are
// still filtered by generation either way.
func WithCancelSuperseded(enabled bool) Option {
	return func(c *Coordinator) { c.cancelSuperseded = enabled }
}

// WithTreeListener registers fn as an OnDidUpdateTree listener before the
// first request is issued, so no publish can be missed.
func WithTreeListener(fn func(*treesitter.Snapshot)) Option {
	return func(c *Coordinator) { c.updated.Subscribe(fn) }
}

// WithFailureListener registers fn as an OnDidFail listener before the first
// request is issued.
func WithFailureListener(fn func(Failure)) Option {
	return func(c *Coordinator) { c.failed.Subscribe(fn) }
}

// New attaches a coordinator to doc and requests the first tree.
func New(doc document.Handle, importer Importer, parser treesitter.Parser, opts ...Option) *Coordinator {
	c := newCoordinator(string(doc.URI()), importer, parser, opts...)
	c.attach(doc)
	return c
}

func newCoordinator(uri string, importer Importer, parser treesitter.Parser, opts ...Option) *Coordinator {
	c := &Coordinator{
		importer: importer,
		parser:   parser,
		logger:   slog.Default(),
		uri:      uri,
	}
	for _, o := range opts {
		o(c)
	}
	c.logger = c.logger.With("uri", c.uri)
	c.ctx, c.stop = context.WithCancel(context.Background())
	return c
}

// attach subscribes to doc and issues the first generation. mu is held
// across subscribe and capture so an event racing with attach is handled
// afterwards, as a newer generation.
func (c *Coordinator) attach(doc document.Handle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}

	c.doc = doc
	c.subs.Add(
		doc.OnDidChangeContent(c.handleContentChange),
		doc.OnDidChangeLanguage(c.handleLanguageChange),
	)
	c.generation++
	c.latest = request{
		generation: c.generation,
		text:       doc.Text(),
		version:    doc.Version(),
		languageID: doc.LanguageID(),
	}
	c.advance()
}

// Tree returns the current snapshot, or nil before the first publish and
// after Dispose. The snapshot is closed when the next one is published or
// the coordinator is disposed; a caller that reads it from another goroutine
// or keeps it past the next publish must hold a Clone instead.
func (c *Coordinator) Tree() *treesitter.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Document returns the attached document, or nil after Dispose.
func (c *Coordinator) Document() document.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc
}

// State returns the current request state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Generation returns the latest generation number issued.
func (c *Coordinator) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Settled reports whether the coordinator is idle with the latest
// generation either published or failed.
func (c *Coordinator) Settled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == Idle
}

// OnDidUpdateTree registers a listener fired once per publish with the new
// snapshot. Listeners run synchronously in publish order and may call any
// Coordinator method.
func (c *Coordinator) OnDidUpdateTree(fn func(*treesitter.Snapshot)) event.Subscription {
	return c.updated.Subscribe(fn)
}

// OnDidFail registers a listener fired when the latest generation fails to
// resolve its grammar or to parse. The previous tree stays published.
func (c *Coordinator) OnDidFail(fn func(Failure)) event.Subscription {
	return c.failed.Subscribe(fn)
}

// Dispose detaches from the document, drops listeners and releases the
// current tree. In-flight work is cancelled and its result ignored. Dispose
// is idempotent.
func (c *Coordinator) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	c.stop()
	c.cancel = nil
	cur := c.current
	c.current = nil
	c.doc = nil
	c.lastLanguage = nil
	c.mu.Unlock()

	c.subs.Dispose()
	c.updated.Close()
	c.failed.Close()
	cur.Close()
	c.logger.Debug("coordinator disposed")
}

func (c *Coordinator) handleContentChange(change document.ContentChange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}

	// Keep the displayed tree roughly aligned with the text until the
	// re-parse lands; it also becomes the base of the incremental parse.
	for _, e := range change.Edits {
		c.current.ApplyEdit(e)
	}

	c.generation++
	c.latest = request{
		generation:      c.generation,
		text:            change.Text,
		version:         change.Version,
		languageID:      c.latest.languageID,
		languageChanged: c.latest.languageChanged,
	}
	c.advance()
}

func (c *Coordinator) handleLanguageChange(change document.LanguageChange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}

	c.generation++
	c.latest.generation = c.generation
	c.latest.languageID = change.New
	c.latest.languageChanged = true
	if change.Version > c.latest.version {
		c.latest.version = change.Version
	}
	c.logger.Debug("language changed", "from", change.Old, "to", change.New, "generation", c.generation)
	c.advance()
}

// advance reacts to a new generation. Called with mu held.
func (c *Coordinator) advance() {
	switch c.state {
	case Idle:
		c.start()
	case Parsing:
		c.state = ParsingStale
		if c.cancelSuperseded && c.cancel != nil {
			c.cancel()
		}
	case ParsingStale:
		// The in-flight result is already doomed; the newest capture is
		// picked up when it lands.
	}
}

// start issues the request for the latest generation. Called with mu held.
func (c *Coordinator) start() {
	req := c.latest
	c.latest.languageChanged = false

	var lang, fallback *grammar.Language
	switch {
	case c.lastLanguage != nil && c.lastLanguageID != "" && c.lastLanguageID == req.languageID:
		lang = c.lastLanguage
	case c.lastLanguage != nil && c.unavailableID == req.languageID && !req.languageChanged:
		// The importer is retried; if the id is still unavailable the
		// content is re-parsed with the last resolved language.
		fallback = c.lastLanguage
	}

	ctx, cancel := context.WithCancel(c.ctx)
	c.cancel = cancel
	c.state = Parsing

	c.logger.Debug("requesting tree",
		"generation", req.generation, "version", req.version, "language", req.languageID)

	go c.run(ctx, cancel, req, lang, fallback, c.current.Clone())
}

func (c *Coordinator) run(ctx context.Context, cancel context.CancelFunc, req request, lang, fallback *grammar.Language, prev *treesitter.Snapshot) {
	defer cancel()

	var out outcome
	if lang == nil {
		var err error
		lang, err = c.importer.Import(ctx, req.languageID)
		switch {
		case err == nil:
		case fallback != nil && errors.Is(err, grammar.ErrLanguageUnavailable):
			c.logger.Info("language still unavailable, parsing with last resolved language",
				"language", req.languageID, "fallback", fallback.ID, "error", err)
			lang = fallback
			out.fallback = true
		default:
			prev.Close()
			c.finish(req, outcome{err: err})
			return
		}
		if c.superseded(req.generation) {
			prev.Close()
			c.finish(req, outcome{lang: lang, fallback: out.fallback})
			return
		}
	}

	out.lang = lang
	out.res, out.err = c.parser.Parse(ctx, treesitter.Request{
		Language: lang,
		Source:   []byte(req.text),
		Previous: prev,
	})
	c.finish(req, out)
}

func (c *Coordinator) superseded(generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed || generation != c.generation
}

// finish admits or discards the outcome of the request for req.generation.
func (c *Coordinator) finish(req request, out outcome) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		closeResult(out.res)
		return
	}
	if req.generation != c.generation {
		c.logger.Debug("discarding stale result",
			"generation", req.generation, "latest", c.generation)
		closeResult(out.res)
		c.start()
		c.mu.Unlock()
		return
	}

	c.state = Idle
	c.cancel = nil
	switch {
	case out.lang != nil && !out.fallback:
		c.lastLanguage = out.lang
		c.lastLanguageID = req.languageID
		c.unavailableID = ""
	case errors.Is(out.err, grammar.ErrLanguageUnavailable):
		c.unavailableID = req.languageID
	}

	err := out.err
	if err == nil && out.res == nil {
		err = fmt.Errorf("%w: parser returned no result", treesitter.ErrParse)
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("tree update failed",
			"generation", req.generation, "version", req.version, "language", req.languageID, "error", err)
		c.failed.Fire(Failure{
			Generation: req.generation,
			Version:    req.version,
			LanguageID: req.languageID,
			Err:        err,
		})
		return
	}

	lang, res := out.lang, out.res
	snap := treesitter.NewSnapshot(res.Tree, []byte(req.text), lang, req.version, req.generation, res.Diff)
	old := c.current
	c.current = snap
	c.mu.Unlock()

	old.Close()
	c.logger.Debug("tree published",
		"generation", req.generation, "version", req.version, "language", lang.ID,
		"incremental", res.Incremental, "fallback", out.fallback)
	c.updated.Fire(snap)
}

// ForgetLanguage makes the next generation ask the importer again instead
// of reusing the language resolved for the document's id. Call it when
// language id resolution changes, for example after new aliases are
// installed. The resolved language stays available as a fallback.
func (c *Coordinator) ForgetLanguage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastLanguageID = ""
}

func closeResult(res *treesitter.Result) {
	if res != nil && res.Tree != nil {
		res.Tree.Close()
	}
}
