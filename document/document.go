package document

import (
	"sync"

	"github.com/gossip-lsp/treesync/event"
	"github.com/gossip-lsp/treesync/protocol"
)

// Handle is the read-only view of a live document that parse coordination
// consumes. Change notifications are delivered in mutation order, never
// reordered or dropped.
type Handle interface {
	URI() protocol.DocumentURI
	Text() string
	Version() int32
	LanguageID() string
	OnDidChangeContent(fn func(ContentChange)) event.Subscription
	OnDidChangeLanguage(fn func(LanguageChange)) event.Subscription
}

// ContentChange is delivered after the document text changed. Text and
// Version describe the document immediately after this change; Edits are the
// byte/point deltas in application order.
type ContentChange struct {
	Version int32
	Text    string
	Edits   []EditRange
}

// LanguageChange is delivered after the document's language id changed.
type LanguageChange struct {
	Old string
	New string
	// Version is the document version after the change. A language change
	// is a mutation of the document and bumps the version by one.
	Version int32
}

// Document represents a single managed text document. It is safe for
// concurrent use.
type Document struct {
	// emitMu serializes mutate+notify so listeners see changes in the order
	// they were applied.
	emitMu sync.Mutex

	mu         sync.RWMutex
	uri        protocol.DocumentURI
	languageID string
	version    int32
	text       string

	contentChanged  event.Emitter[ContentChange]
	languageChanged event.Emitter[LanguageChange]
}

var _ Handle = (*Document)(nil)

// New creates a new Document from an LSP TextDocumentItem.
func New(item protocol.TextDocumentItem) *Document {
	return &Document{
		uri:        item.URI,
		languageID: item.LanguageID,
		version:    item.Version,
		text:       item.Text,
	}
}

// URI returns the document's URI.
func (d *Document) URI() protocol.DocumentURI {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.uri
}

// LanguageID returns the language identifier (e.g., "go", "python").
func (d *Document) LanguageID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.languageID
}

// Version returns the document's current version number.
func (d *Document) Version() int32 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Text returns the full text content of the document.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.text
}

// LineAt returns the text of the given zero-based line number.
func (d *Document) LineAt(line uint32) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return LineAt(d.text, line)
}

// OffsetAt converts an LSP position to a byte offset in the document text.
func (d *Document) OffsetAt(pos protocol.Position) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return OffsetAt(d.text, pos)
}

// PositionAt converts a byte offset to an LSP position.
func (d *Document) PositionAt(offset int) protocol.Position {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return PositionAt(d.text, offset)
}

// OnDidChangeContent registers a listener for text changes.
func (d *Document) OnDidChangeContent(fn func(ContentChange)) event.Subscription {
	return d.contentChanged.Subscribe(fn)
}

// OnDidChangeLanguage registers a listener for language id changes.
func (d *Document) OnDidChangeLanguage(fn func(LanguageChange)) event.Subscription {
	return d.languageChanged.Subscribe(fn)
}

// ApplyChanges applies LSP change events and notifies listeners. The version
// never moves backwards: a version not greater than the current one is
// replaced by current+1.
func (d *Document) ApplyChanges(version int32, changes []protocol.TextDocumentContentChangeEvent) []EditRange {
	if len(changes) == 0 {
		return nil
	}

	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	newText, edits := ApplyChanges(d.text, changes)
	d.text = newText
	if version <= d.version {
		version = d.version + 1
	}
	d.version = version
	d.mu.Unlock()

	// Listeners run outside mu; they are free to read Text() or Version().
	d.contentChanged.Fire(ContentChange{Version: version, Text: newText, Edits: edits})
	return edits
}

// SetText replaces the whole text and bumps the version by one.
func (d *Document) SetText(text string) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	edit := ReplaceAll(d.text, text)
	d.text = text
	d.version++
	version := d.version
	d.mu.Unlock()

	d.contentChanged.Fire(ContentChange{Version: version, Text: text, Edits: []EditRange{edit}})
}

// SetLanguage switches the document's language id and bumps the version by
// one. Setting the current id is a no-op.
func (d *Document) SetLanguage(languageID string) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	old := d.languageID
	if old == languageID {
		d.mu.Unlock()
		return
	}
	d.languageID = languageID
	d.version++
	version := d.version
	d.mu.Unlock()

	d.languageChanged.Fire(LanguageChange{Old: old, New: languageID, Version: version})
}

// dispose drops all listeners. Called by the Store on close.
func (d *Document) dispose() {
	d.contentChanged.Close()
	d.languageChanged.Close()
}

// ListenerCount reports how many content and language listeners are
// registered. Useful for leak checks after a consumer disposes.
func (d *Document) ListenerCount() int {
	return d.contentChanged.Len() + d.languageChanged.Len()
}
