package document

import "github.com/gossip-lsp/treesync/protocol"

// Point is a row/column location where Column counts bytes, the unit
// tree-sitter uses. It differs from protocol.Position, whose Character is
// measured in UTF-16 code units.
type Point struct {
	Row    uint32
	Column uint32
}

// EditRange describes one replacement in byte offsets and points. Offsets
// are relative to the text as it was when the edit was applied, so a slice of
// edits must be replayed in order.
type EditRange struct {
	StartByte   int
	OldEndByte  int
	NewEndByte  int
	StartPoint  Point
	OldEndPoint Point
	NewEndPoint Point
}

// IsFullReplace reports whether the edit replaced the whole previous text.
func (e EditRange) IsFullReplace(oldLen int) bool {
	return e.StartByte == 0 && e.OldEndByte == oldLen
}

// ReplaceAll returns the edit that turns old into new in one step.
func ReplaceAll(old, new_ string) EditRange {
	return EditRange{
		StartByte:   0,
		OldEndByte:  len(old),
		NewEndByte:  len(new_),
		OldEndPoint: PointAt(old, len(old)),
		NewEndPoint: PointAt(new_, len(new_)),
	}
}

// ApplyChanges applies LSP content change events to text and returns the
// resulting text together with one EditRange per change. Changes with a nil
// Range replace the whole text. Out-of-range positions are clamped.
func ApplyChanges(text string, changes []protocol.TextDocumentContentChangeEvent) (string, []EditRange) {
	edits := make([]EditRange, 0, len(changes))
	for _, change := range changes {
		if change.Range == nil {
			edits = append(edits, ReplaceAll(text, change.Text))
			text = change.Text
			continue
		}

		start := clamp(OffsetAt(text, change.Range.Start), 0, len(text))
		end := clamp(OffsetAt(text, change.Range.End), 0, len(text))
		if start > end {
			start = end
		}

		next := text[:start] + change.Text + text[end:]
		newEnd := start + len(change.Text)
		edits = append(edits, EditRange{
			StartByte:   start,
			OldEndByte:  end,
			NewEndByte:  newEnd,
			StartPoint:  PointAt(text, start),
			OldEndPoint: PointAt(text, end),
			NewEndPoint: PointAt(next, newEnd),
		})
		text = next
	}
	return text, edits
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
