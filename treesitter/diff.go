package treesitter

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/gossip-lsp/treesync/document"
)

// Range is a span of the parsed text in bytes and byte-column points.
type Range struct {
	StartByte  int
	EndByte    int
	StartPoint document.Point
	EndPoint   document.Point
}

// TreeDiff describes the structural difference between the previous tree and
// a freshly parsed one.
type TreeDiff struct {
	// ChangedRanges are the spans where the syntax tree structurally changed.
	ChangedRanges []Range

	// AffectedKinds is the set of node kinds that appear in the changed subtrees.
	AffectedKinds map[string]bool

	// IsFullReparse is true when no previous tree could be reused: first
	// parse, language switch or a caller that supplied no previous tree.
	IsFullReparse bool
}

// AffectsKind reports whether the diff touches any node of the given kind.
func (d *TreeDiff) AffectsKind(kind string) bool {
	if d == nil {
		return false
	}
	return d.AffectedKinds[kind]
}

// fullDiff marks every kind in the tree as affected.
func fullDiff(tree *tree_sitter.Tree) *TreeDiff {
	diff := &TreeDiff{IsFullReparse: true, AffectedKinds: make(map[string]bool)}
	if root := tree.RootNode(); root != nil {
		diff.ChangedRanges = []Range{nodeRange(root)}
		collectSubtreeKinds(root, diff.AffectedKinds)
	}
	return diff
}

// computeTreeDiff builds a TreeDiff from the old (edited) and new trees.
func computeTreeDiff(oldRaw, newRaw *tree_sitter.Tree) *TreeDiff {
	tsRanges := oldRaw.ChangedRanges(newRaw)

	diff := &TreeDiff{
		ChangedRanges: make([]Range, len(tsRanges)),
		AffectedKinds: make(map[string]bool),
	}
	for i, r := range tsRanges {
		diff.ChangedRanges[i] = Range{
			StartByte:  int(r.StartByte),
			EndByte:    int(r.EndByte),
			StartPoint: fromPoint(r.StartPoint),
			EndPoint:   fromPoint(r.EndPoint),
		}
	}

	root := newRaw.RootNode()
	if root == nil {
		return diff
	}
	for _, r := range tsRanges {
		node := root.NamedDescendantForPointRange(r.StartPoint, r.EndPoint)
		collectSubtreeKinds(node, diff.AffectedKinds)
	}
	return diff
}

func collectSubtreeKinds(node *tree_sitter.Node, kinds map[string]bool) {
	if node == nil {
		return
	}
	kinds[node.Kind()] = true
	for i := uint(0); i < node.ChildCount(); i++ {
		collectSubtreeKinds(node.Child(i), kinds)
	}
}

func nodeRange(node *tree_sitter.Node) Range {
	return Range{
		StartByte:  int(node.StartByte()),
		EndByte:    int(node.EndByte()),
		StartPoint: fromPoint(node.StartPosition()),
		EndPoint:   fromPoint(node.EndPosition()),
	}
}
