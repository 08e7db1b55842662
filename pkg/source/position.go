package source

import "fmt"

// Position is a zero-based line and character column within one document snapshot.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Before reports whether p comes strictly before other.
func (p Position) Before(other Position) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Column < other.Column
}

// Range is a half-open span [Start, End) resolved against one document snapshot.
// Ranges are never re-anchored across edits.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// NewRange builds a range from zero-based line/column pairs.
func NewRange(startLine, startCol, endLine, endCol int) Range {
	return Range{
		Start: Position{Line: startLine, Column: startCol},
		End:   Position{Line: endLine, Column: endCol},
	}
}

// IsEmpty reports whether the range covers no characters.
func (r Range) IsEmpty() bool {
	return !r.Start.Before(r.End)
}

// Contains reports whether p falls inside the half-open range.
func (r Range) Contains(p Position) bool {
	return !p.Before(r.Start) && p.Before(r.End)
}

// Before reports whether r ends at or before other starts.
func (r Range) Before(other Range) bool {
	return !other.Start.Before(r.End)
}

// String formats the range with one-based lines and columns, e.g. "3:1-3:12".
func (r Range) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", r.Start.Line+1, r.Start.Column+1, r.End.Line+1, r.End.Column+1)
}
