package source

import (
	"unicode/utf8"
)

// Document is an immutable text snapshot with a line index.
//
// Offsets passed to Document methods are byte offsets into the UTF-8 text;
// Position columns count characters (runes). Line terminators follow the
// ECMAScript definition (\n, \r\n, \r, U+2028, U+2029) so that positions agree
// with those reported by the JavaScript parser.
type Document struct {
	text string
	// lineStarts holds the byte offset of the first character of each line.
	lineStarts []int
}

// NewDocument indexes text.
func NewDocument(text string) *Document {
	starts := []int{0}
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch r {
		case '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				size = 2
			}
			starts = append(starts, i+size)
		case '\n', '\u2028', '\u2029':
			starts = append(starts, i+size)
		}
		i += size
	}
	return &Document{text: text, lineStarts: starts}
}

// Text returns the full document text.
func (d *Document) Text() string {
	return d.text
}

// Len returns the document length in bytes.
func (d *Document) Len() int {
	return len(d.text)
}

// LineCount returns the number of lines. An empty document has one line.
func (d *Document) LineCount() int {
	return len(d.lineStarts)
}

// ClampLine bounds a line index to [0, LineCount-1].
func (d *Document) ClampLine(line int) int {
	if line < 0 {
		return 0
	}
	if last := len(d.lineStarts) - 1; line > last {
		return last
	}
	return line
}

// LineAt returns the text of a line without its terminator. The index is clamped.
func (d *Document) LineAt(line int) string {
	line = d.ClampLine(line)
	return d.text[d.lineStarts[line]:d.lineContentEnd(line)]
}

// PositionAt converts a byte offset to a Position. The offset is clamped to
// the document bounds.
func (d *Document) PositionAt(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.text) {
		offset = len(d.text)
	}
	line := d.lineOf(offset)
	start := d.lineStarts[line]
	end := d.lineContentEnd(line)
	if offset > end {
		// Inside a multi-byte line terminator.
		offset = end
	}
	return Position{Line: line, Column: utf8.RuneCountInString(d.text[start:offset])}
}

// OffsetAt converts a Position back to a byte offset. Lines and columns are
// clamped to the document and line bounds.
func (d *Document) OffsetAt(p Position) int {
	line := d.ClampLine(p.Line)
	offset := d.lineStarts[line]
	end := d.lineContentEnd(line)
	for col := 0; col < p.Column && offset < end; col++ {
		_, size := utf8.DecodeRuneInString(d.text[offset:])
		offset += size
	}
	return offset
}

// Slice returns the text covered by r.
func (d *Document) Slice(r Range) string {
	start := d.OffsetAt(r.Start)
	end := d.OffsetAt(r.End)
	if end < start {
		return ""
	}
	return d.text[start:end]
}

// RangeOf converts a byte span into a Range.
func (d *Document) RangeOf(start, end int) Range {
	return Range{Start: d.PositionAt(start), End: d.PositionAt(end)}
}

// lineOf finds the line containing a byte offset.
func (d *Document) lineOf(offset int) int {
	lo, hi := 0, len(d.lineStarts)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if d.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// lineContentEnd returns the byte offset where the line's content ends,
// excluding its terminator.
func (d *Document) lineContentEnd(line int) int {
	if line+1 >= len(d.lineStarts) {
		return len(d.text)
	}
	end := d.lineStarts[line+1]
	switch {
	case end >= 2 && d.text[end-2:end] == "\r\n":
		return end - 2
	case end >= 3 && (d.text[end-3:end] == "\u2028" || d.text[end-3:end] == "\u2029"):
		return end - 3
	default:
		return end - 1
	}
}
