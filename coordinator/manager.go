package coordinator

import (
	"sync"

	"github.com/gossip-lsp/treesync/document"
	"github.com/gossip-lsp/treesync/event"
	"github.com/gossip-lsp/treesync/protocol"
	"github.com/gossip-lsp/treesync/treesitter"
)

// TreeUpdate is fired by the Manager whenever any document publishes a tree.
type TreeUpdate struct {
	URI  protocol.DocumentURI
	Tree *treesitter.Snapshot
}

// DocumentFailure is fired by the Manager whenever a document's latest
// generation fails.
type DocumentFailure struct {
	URI protocol.DocumentURI
	Failure
}

// Manager runs one Coordinator per open document of a document.Store. It
// attaches on open and disposes on close.
type Manager struct {
	store    *document.Store
	importer Importer
	parser   treesitter.Parser
	opts     []Option

	mu           sync.RWMutex
	coordinators map[protocol.DocumentURI]*Coordinator
	closed       bool

	subs    event.Group
	updated event.Emitter[TreeUpdate]
	failed  event.Emitter[DocumentFailure]
}

// NewManager creates a manager tied to store. Documents already open in the
// store are attached immediately. opts are applied to every coordinator.
func NewManager(store *document.Store, importer Importer, parser treesitter.Parser, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		importer:     importer,
		parser:       parser,
		opts:         opts,
		coordinators: make(map[protocol.DocumentURI]*Coordinator),
	}

	m.subs.Add(
		store.OnOpen(m.handleOpen),
		store.OnClose(m.handleClose),
	)
	for _, uri := range store.URIs() {
		if doc := store.Get(uri); doc != nil {
			m.handleOpen(doc)
		}
	}
	return m
}

// OnTreeUpdate registers a listener fired after every publish of any document.
func (m *Manager) OnTreeUpdate(fn func(TreeUpdate)) event.Subscription {
	return m.updated.Subscribe(fn)
}

// OnFailure registers a listener fired when a document's tree update fails.
func (m *Manager) OnFailure(fn func(DocumentFailure)) event.Subscription {
	return m.failed.Subscribe(fn)
}

// Tree returns the current tree for uri, or nil.
func (m *Manager) Tree(uri protocol.DocumentURI) *treesitter.Snapshot {
	if c := m.Coordinator(uri); c != nil {
		return c.Tree()
	}
	return nil
}

// Coordinator returns the coordinator attached to uri, or nil.
func (m *Manager) Coordinator(uri protocol.DocumentURI) *Coordinator {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.coordinators[uri]
}

// SetOptions replaces the options applied to coordinators attached from now
// on. Already attached coordinators keep their options.
func (m *Manager) SetOptions(opts ...Option) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opts = opts
}

// ForgetLanguages calls ForgetLanguage on every coordinator.
func (m *Manager) ForgetLanguages() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.coordinators {
		c.ForgetLanguage()
	}
}

func (m *Manager) handleOpen(doc *document.Document) {
	uri := doc.URI()

	m.mu.RLock()
	opts := m.opts
	m.mu.RUnlock()

	opts = append(opts[:len(opts):len(opts)],
		WithTreeListener(func(s *treesitter.Snapshot) {
			m.updated.Fire(TreeUpdate{URI: uri, Tree: s})
		}),
		WithFailureListener(func(f Failure) {
			m.failed.Fire(DocumentFailure{URI: uri, Failure: f})
		}),
	)
	c := newCoordinator(string(uri), m.importer, m.parser, opts...)

	// Register before attaching so listeners of the first publish can
	// already look the coordinator up.
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	prev := m.coordinators[uri]
	m.coordinators[uri] = c
	m.mu.Unlock()

	prev.dispose()
	c.attach(doc)
}

func (m *Manager) handleClose(uri protocol.DocumentURI) {
	m.mu.Lock()
	c := m.coordinators[uri]
	delete(m.coordinators, uri)
	m.mu.Unlock()
	c.dispose()
}

// Close disposes every coordinator and detaches from the store.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	coordinators := m.coordinators
	m.coordinators = make(map[protocol.DocumentURI]*Coordinator)
	m.mu.Unlock()

	m.subs.Dispose()
	for _, c := range coordinators {
		c.Dispose()
	}
	m.updated.Close()
	m.failed.Close()
}

// dispose is a nil-safe Dispose.
func (c *Coordinator) dispose() {
	if c != nil {
		c.Dispose()
	}
}
