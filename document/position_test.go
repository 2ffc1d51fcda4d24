package document

import (
	"testing"

	"github.com/gossip-lsp/treesync/protocol"
)

func TestOffsetAt(t *testing.T) {
	text := "hello\nworld\nfoo"
	tests := []struct {
		pos  protocol.Position
		want int
	}{
		{protocol.Position{Line: 0, Character: 0}, 0},
		{protocol.Position{Line: 0, Character: 5}, 5},
		{protocol.Position{Line: 1, Character: 0}, 6},
		{protocol.Position{Line: 1, Character: 5}, 11},
		{protocol.Position{Line: 2, Character: 0}, 12},
		{protocol.Position{Line: 2, Character: 3}, 15},
	}
	for _, tt := range tests {
		got := OffsetAt(text, tt.pos)
		if got != tt.want {
			t.Errorf("OffsetAt(%v) = %d, want %d", tt.pos, got, tt.want)
		}
	}
}

func TestPositionAt(t *testing.T) {
	text := "hello\nworld\nfoo"
	tests := []struct {
		offset int
		want   protocol.Position
	}{
		{0, protocol.Position{Line: 0, Character: 0}},
		{5, protocol.Position{Line: 0, Character: 5}},
		{6, protocol.Position{Line: 1, Character: 0}},
		{11, protocol.Position{Line: 1, Character: 5}},
		{12, protocol.Position{Line: 2, Character: 0}},
	}
	for _, tt := range tests {
		got := PositionAt(text, tt.offset)
		if got != tt.want {
			t.Errorf("PositionAt(%d) = %v, want %v", tt.offset, got, tt.want)
		}
	}
}

func TestUTF16Handling(t *testing.T) {
	// U+1F600 is a surrogate pair in UTF-16 and four bytes in UTF-8.
	text := "a\U0001F600b"
	offset := OffsetAt(text, protocol.Position{Line: 0, Character: 3})
	if text[offset] != 'b' {
		t.Errorf("expected 'b' at UTF-16 offset 3, got %q (byte offset %d)", text[offset], offset)
	}
	if got := PositionAt(text, offset); got.Character != 3 {
		t.Errorf("PositionAt(%d).Character = %d, want 3", offset, got.Character)
	}
}

func TestPointAt(t *testing.T) {
	text := "ab\n\u00e9x\nz"
	tests := []struct {
		offset int
		want   Point
	}{
		{0, Point{Row: 0, Column: 0}},
		{2, Point{Row: 0, Column: 2}},
		{3, Point{Row: 1, Column: 0}},
		{5, Point{Row: 1, Column: 2}}, // byte column, not UTF-16
		{7, Point{Row: 2, Column: 0}},
		{100, Point{Row: 2, Column: 1}},
	}
	for _, tt := range tests {
		if got := PointAt(text, tt.offset); got != tt.want {
			t.Errorf("PointAt(%d) = %+v, want %+v", tt.offset, got, tt.want)
		}
	}
}

func TestApplyChanges(t *testing.T) {
	text := "hello world"
	changes := []protocol.TextDocumentContentChangeEvent{
		{
			Range: &protocol.Range{
				Start: protocol.Position{Line: 0, Character: 6},
				End:   protocol.Position{Line: 0, Character: 11},
			},
			Text: "treesync",
		},
	}
	got, edits := ApplyChanges(text, changes)
	if want := "hello treesync"; got != want {
		t.Errorf("ApplyChanges = %q, want %q", got, want)
	}
	if len(edits) != 1 {
		t.Fatalf("expected 1 edit, got %d", len(edits))
	}
	e := edits[0]
	if e.StartByte != 6 || e.OldEndByte != 11 || e.NewEndByte != 14 {
		t.Errorf("edit bytes = %d/%d/%d, want 6/11/14", e.StartByte, e.OldEndByte, e.NewEndByte)
	}
	if e.NewEndPoint != (Point{Row: 0, Column: 14}) {
		t.Errorf("NewEndPoint = %+v", e.NewEndPoint)
	}
}

func TestApplyChanges_MultiLineInsert(t *testing.T) {
	text := "a\nb"
	changes := []protocol.TextDocumentContentChangeEvent{
		{
			Range: &protocol.Range{
				Start: protocol.Position{Line: 1, Character: 0},
				End:   protocol.Position{Line: 1, Character: 0},
			},
			Text: "x\ny\n",
		},
	}
	got, edits := ApplyChanges(text, changes)
	if got != "a\nx\ny\nb" {
		t.Errorf("ApplyChanges = %q", got)
	}
	if edits[0].StartPoint != (Point{Row: 1, Column: 0}) {
		t.Errorf("StartPoint = %+v", edits[0].StartPoint)
	}
	if edits[0].NewEndPoint != (Point{Row: 3, Column: 0}) {
		t.Errorf("NewEndPoint = %+v", edits[0].NewEndPoint)
	}
}

func TestApplyChanges_FullReplace(t *testing.T) {
	got, edits := ApplyChanges("old\ntext", []protocol.TextDocumentContentChangeEvent{{Text: "new"}})
	if got != "new" {
		t.Errorf("ApplyChanges = %q, want %q", got, "new")
	}
	if !edits[0].IsFullReplace(len("old\ntext")) {
		t.Error("expected a full-replace edit")
	}
	if edits[0].OldEndPoint != (Point{Row: 1, Column: 4}) {
		t.Errorf("OldEndPoint = %+v", edits[0].OldEndPoint)
	}
}

func TestOffsetAt_OutOfRange(t *testing.T) {
	text := "ab\ncd"
	if got := OffsetAt(text, protocol.Position{Line: 0, Character: 99}); got != 2 {
		t.Errorf("past line end = %d, want 2", got)
	}
	if got := OffsetAt(text, protocol.Position{Line: 7, Character: 0}); got != len(text) {
		t.Errorf("past last line = %d, want %d", got, len(text))
	}
	if got := PositionAt(text, -4); got != (protocol.Position{}) {
		t.Errorf("negative offset = %v", got)
	}
}

func TestLineAt(t *testing.T) {
	text := "one\ntwo\n"
	for line, want := range []string{"one", "two", "", ""} {
		if got := LineAt(text, uint32(line)); got != want {
			t.Errorf("LineAt(%d) = %q, want %q", line, got, want)
		}
	}
}
