package treesitter

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/gossip-lsp/treesync/document"
)

// NodeAt returns the most specific (deepest) node at the given point.
func (s *Snapshot) NodeAt(p document.Point) *tree_sitter.Node {
	root := s.RootNode()
	if root == nil {
		return nil
	}
	return root.DescendantForPointRange(toPoint(p), toPoint(p))
}

// NamedNodeAt returns the most specific named node at the given point.
func (s *Snapshot) NamedNodeAt(p document.Point) *tree_sitter.Node {
	root := s.RootNode()
	if root == nil {
		return nil
	}
	return root.NamedDescendantForPointRange(toPoint(p), toPoint(p))
}

// NodeText returns the text of a node using the parsed source. It returns
// "" once ApplyEdit has run, since node offsets then refer to the edited
// text rather than Source.
func (s *Snapshot) NodeText(node *tree_sitter.Node) string {
	if s == nil || node == nil || s.src == nil || s.Edited() {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start > end || int(end) > len(s.src) {
		return ""
	}
	return string(s.src[start:end])
}

// NodeRange converts a node's extent to a Range.
func NodeRange(node *tree_sitter.Node) Range {
	if node == nil {
		return Range{}
	}
	return nodeRange(node)
}
