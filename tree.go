package treesync

import (
	"github.com/gossip-lsp/treesync/document"
	"github.com/gossip-lsp/treesync/treesitter"
)

// TreeFor returns the current tree for the given document, or nil if the
// document is not tracked by this service or has no tree yet.
func (s *Service) TreeFor(doc document.Handle) *treesitter.Snapshot {
	if doc == nil {
		return nil
	}
	c := s.manager.Coordinator(doc.URI())
	if c == nil || c.Document() != doc {
		return nil
	}
	return c.Tree()
}
