// Package document provides a thread-safe document store and position
// utilities. Documents emit ordered content and language change events that
// parse coordination subscribes to.
package document

import (
	"sync"

	"github.com/gossip-lsp/treesync/event"
	"github.com/gossip-lsp/treesync/protocol"
)

// Store is a thread-safe store of open text documents.
type Store struct {
	mu   sync.RWMutex
	docs map[protocol.DocumentURI]*Document

	opened event.Emitter[*Document]
	closed event.Emitter[protocol.DocumentURI]
}

// NewStore creates a new empty document store.
func NewStore() *Store {
	return &Store{
		docs: make(map[protocol.DocumentURI]*Document),
	}
}

// OnOpen registers a callback called when a document is opened. Callbacks
// fire in registration order.
func (s *Store) OnOpen(fn func(doc *Document)) event.Subscription {
	return s.opened.Subscribe(fn)
}

// OnClose registers a callback called after a document is removed from the
// store. Callbacks fire in registration order.
func (s *Store) OnClose(fn func(uri protocol.DocumentURI)) event.Subscription {
	return s.closed.Subscribe(fn)
}

// Get returns the document for the given URI, or nil if not found.
func (s *Store) Get(uri protocol.DocumentURI) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[uri]
}

// URIs returns all open document URIs.
func (s *Store) URIs() []protocol.DocumentURI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uris := make([]protocol.DocumentURI, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	return uris
}

// Open adds a document to the store from a didOpen notification. Opening a
// URI that is already open closes the previous document first.
func (s *Store) Open(params *protocol.DidOpenTextDocumentParams) *Document {
	uri := params.TextDocument.URI
	if s.Get(uri) != nil {
		s.Close(&protocol.DidCloseTextDocumentParams{TextDocument: protocol.TextDocumentIdentifier{URI: uri}})
	}

	doc := New(params.TextDocument)
	s.mu.Lock()
	s.docs[uri] = doc
	s.mu.Unlock()

	s.opened.Fire(doc)
	return doc
}

// Change applies edits from a didChange notification. Unknown URIs are ignored.
func (s *Store) Change(params *protocol.DidChangeTextDocumentParams) {
	if doc := s.Get(params.TextDocument.URI); doc != nil {
		doc.ApplyChanges(params.TextDocument.Version, params.ContentChanges)
	}
}

// ChangeLanguage switches the language of an open document.
func (s *Store) ChangeLanguage(params *protocol.DidChangeLanguageParams) {
	if doc := s.Get(params.TextDocument.URI); doc != nil {
		doc.SetLanguage(params.LanguageID)
	}
}

// Close removes a document from the store.
func (s *Store) Close(params *protocol.DidCloseTextDocumentParams) {
	uri := params.TextDocument.URI
	s.mu.Lock()
	doc, ok := s.docs[uri]
	delete(s.docs, uri)
	s.mu.Unlock()
	if !ok {
		return
	}

	s.closed.Fire(uri)
	doc.dispose()
}
