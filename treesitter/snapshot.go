// Package treesitter wraps go-tree-sitter for parse coordination: the
// Snapshot tree wrapper handed to consumers, the Parser contract, and a
// pooled tree-sitter implementation that re-parses incrementally.
package treesitter

import (
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/gossip-lsp/treesync/document"
	"github.com/gossip-lsp/treesync/grammar"
)

// Snapshot is a published parse result: the tree, the language it was
// parsed with, the document version it reflects and the coordinator
// generation that produced it.
//
// Apart from ApplyEdit, a Snapshot does not change after publication.
// ApplyEdit shifts node positions in place so a displayed tree tracks small
// edits until the next parse lands; it does not re-validate anything.
type Snapshot struct {
	mu     sync.RWMutex
	raw    *tree_sitter.Tree
	closed bool
	edited bool // positions no longer match src

	src        []byte
	language   *grammar.Language
	version    int32
	generation uint64

	// Diff describes what changed relative to the previous tree. It is set
	// once before publication and never modified.
	Diff *TreeDiff
}

// NewSnapshot wraps raw. The snapshot takes ownership of raw and closes it
// in Close.
func NewSnapshot(raw *tree_sitter.Tree, src []byte, lang *grammar.Language, version int32, generation uint64, diff *TreeDiff) *Snapshot {
	return &Snapshot{
		raw:        raw,
		src:        src,
		language:   lang,
		version:    version,
		generation: generation,
		Diff:       diff,
	}
}

// Language returns the language the tree was parsed with.
func (s *Snapshot) Language() *grammar.Language {
	if s == nil {
		return nil
	}
	return s.language
}

// LanguageID returns the id of the language the tree was parsed with.
func (s *Snapshot) LanguageID() string {
	if s == nil || s.language == nil {
		return ""
	}
	return s.language.ID
}

// Version returns the document version the parse was requested for.
func (s *Snapshot) Version() int32 {
	if s == nil {
		return 0
	}
	return s.version
}

// Generation returns the coordinator generation that produced the snapshot.
func (s *Snapshot) Generation() uint64 {
	if s == nil {
		return 0
	}
	return s.generation
}

// Source returns the text that was parsed. Edits applied with ApplyEdit are
// not reflected here.
func (s *Snapshot) Source() []byte {
	if s == nil {
		return nil
	}
	return s.src
}

// Raw returns the underlying tree-sitter Tree, or nil after Close.
func (s *Snapshot) Raw() *tree_sitter.Tree {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raw
}

// RootNode returns the root node of the parse tree.
func (s *Snapshot) RootNode() *tree_sitter.Node {
	raw := s.Raw()
	if raw == nil {
		return nil
	}
	return raw.RootNode()
}

// String renders the tree as an S-expression.
func (s *Snapshot) String() string {
	root := s.RootNode()
	if root == nil {
		return "()"
	}
	return root.ToSexp()
}

// ApplyEdit adjusts the tree's byte and point bookkeeping for one text edit
// without re-parsing. It is a no-op on a closed snapshot.
func (s *Snapshot) ApplyEdit(e document.EditRange) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raw == nil {
		return
	}
	s.raw.Edit(inputEdit(e))
	s.edited = true
}

// Edited reports whether ApplyEdit has shifted the tree away from Source.
func (s *Snapshot) Edited() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.edited
}

// Clone returns an independent copy of the snapshot with its own tree, for
// use as the previous tree of an incremental parse. The caller owns the copy
// and must Close it. Cloning a closed snapshot returns nil.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.raw == nil {
		return nil
	}
	return &Snapshot{
		raw:        s.raw.Clone(),
		edited:     s.edited,
		src:        s.src,
		language:   s.language,
		version:    s.version,
		generation: s.generation,
	}
}

// Closed reports whether Close has been called.
func (s *Snapshot) Closed() bool {
	if s == nil {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Close releases the tree. It is safe to call more than once.
func (s *Snapshot) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raw != nil {
		s.raw.Close()
		s.raw = nil
	}
	s.closed = true
}

func inputEdit(e document.EditRange) *tree_sitter.InputEdit {
	return &tree_sitter.InputEdit{
		StartByte:      uint(e.StartByte),
		OldEndByte:     uint(e.OldEndByte),
		NewEndByte:     uint(e.NewEndByte),
		StartPosition:  toPoint(e.StartPoint),
		OldEndPosition: toPoint(e.OldEndPoint),
		NewEndPosition: toPoint(e.NewEndPoint),
	}
}

func toPoint(p document.Point) tree_sitter.Point {
	return tree_sitter.Point{Row: uint(p.Row), Column: uint(p.Column)}
}

func fromPoint(p tree_sitter.Point) document.Point {
	return document.Point{Row: uint32(p.Row), Column: uint32(p.Column)}
}
