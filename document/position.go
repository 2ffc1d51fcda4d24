package document

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/gossip-lsp/treesync/protocol"
)

// OffsetAt converts an LSP Position (line, UTF-16 character offset) to a byte
// offset in text. Lines past the end map to len(text); characters past the
// end of a line map to the line end.
func OffsetAt(text string, pos protocol.Position) int {
	start, end, ok := lineBounds(text, pos.Line)
	if !ok {
		return len(text)
	}
	return start + utf16ToByteOffset(text[start:end], int(pos.Character))
}

// PositionAt converts a byte offset to an LSP Position. The offset is
// clamped to the text.
func PositionAt(text string, offset int) protocol.Position {
	offset = clamp(offset, 0, len(text))
	before := text[:offset]
	lineStart := strings.LastIndexByte(before, '\n') + 1
	return protocol.Position{
		Line:      uint32(strings.Count(before, "\n")),
		Character: uint32(utf16Len(before[lineStart:])),
	}
}

// PointAt converts a byte offset to a tree-sitter style Point whose column
// is the byte distance from the start of the line.
func PointAt(text string, offset int) Point {
	offset = clamp(offset, 0, len(text))
	before := text[:offset]
	lineStart := strings.LastIndexByte(before, '\n') + 1
	return Point{Row: uint32(strings.Count(before, "\n")), Column: uint32(offset - lineStart)}
}

// LineAt returns the text of the given line (0-indexed), without trailing
// newline, or "" past the last line.
func LineAt(text string, line uint32) string {
	start, end, ok := lineBounds(text, line)
	if !ok {
		return ""
	}
	return text[start:end]
}

// lineBounds returns the byte range of line, excluding its newline.
func lineBounds(text string, line uint32) (start, end int, ok bool) {
	for range line {
		nl := strings.IndexByte(text[start:], '\n')
		if nl < 0 {
			return 0, 0, false
		}
		start += nl + 1
	}
	end = len(text)
	if nl := strings.IndexByte(text[start:], '\n'); nl >= 0 {
		end = start + nl
	}
	return start, end, true
}

// utf16ToByteOffset walks line until units UTF-16 code units are consumed.
func utf16ToByteOffset(line string, units int) int {
	i := 0
	for i < len(line) && units > 0 {
		r, size := utf8.DecodeRuneInString(line[i:])
		units -= runeUnits(r, size)
		i += size
	}
	return i
}

func utf16Len(s string) int {
	n := 0
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		n += runeUnits(r, size)
		i += size
	}
	return n
}

// runeUnits is the UTF-16 length of a decoded rune. Invalid bytes count as
// one unit each.
func runeUnits(r rune, size int) int {
	if r == utf8.RuneError && size == 1 {
		return 1
	}
	if n := utf16.RuneLen(r); n > 0 {
		return n
	}
	return 1
}
