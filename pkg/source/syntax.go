package source

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dop251/goja"
	"github.com/dop251/goja/parser"
)

const (
	// fallbackWidth is how many characters a column-only error is widened by.
	fallbackWidth = 5
	// firstLineWidth bounds the highlight used when no position is known.
	firstLineWidth = 10
)

var (
	positionSuffix = regexp.MustCompile(`\s*\(\d+:\d+\)$`)
	linePrefix     = regexp.MustCompile(`^(\(anonymous\): )?Line \d+:\d+\s*`)
)

// syntaxError is a parser failure normalized to what the localizer needs.
// Unknown offsets are -1; unknown line/column are 0.
type syntaxError struct {
	message string
	start   int
	end     int
	// line and column are one-based; column counts bytes within the line.
	line   int
	column int
}

func fromParseError(err error) syntaxError {
	se := syntaxError{message: err.Error(), start: -1, end: -1}

	var list parser.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		first := list[0]
		se.message = first.Message
		se.line = first.Position.Line
		se.column = first.Position.Column
		return se
	}

	var single *parser.Error
	if errors.As(err, &single) {
		se.message = single.Message
		se.line = single.Position.Line
		se.column = single.Position.Column
	}
	return se
}

func fromCompileError(doc *Document, err error) syntaxError {
	se := syntaxError{message: err.Error(), start: -1, end: -1}

	var compileErr *goja.CompilerSyntaxError
	if errors.As(err, &compileErr) {
		se.message = compileErr.Message
		if compileErr.Offset >= 0 && compileErr.Offset <= doc.Len() {
			se.start = compileErr.Offset
			se.end = tokenEnd(doc.Text(), compileErr.Offset)
		}
	}
	return se
}

// tokenEnd returns the end of the identifier-like token starting at offset.
func tokenEnd(text string, offset int) int {
	i := offset
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r != '_' && r != '$' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		i += size
	}
	return i
}

// newDiagnostic localizes a syntax error. Priority: explicit start/end
// offsets, then the reported line/column widened for visibility, then the
// first line of the document.
func newDiagnostic(doc *Document, se syntaxError) Diagnostic {
	return Diagnostic{
		Range:    locate(doc, se),
		Message:  cleanMessage(se.message),
		Severity: SeverityError,
		Source:   DiagnosticSource,
	}
}

func locate(doc *Document, se syntaxError) Range {
	if se.start >= 0 && se.end > se.start {
		return doc.RangeOf(se.start, se.end)
	}

	if se.line > 0 {
		line := doc.ClampLine(se.line - 1)
		text := doc.LineAt(line)
		length := utf8.RuneCountInString(text)

		col := byteColumnToChars(text, se.column-1)
		start := col
		if start > length-1 {
			start = length - 1
		}
		if start < 0 {
			start = 0
		}
		end := col + fallbackWidth
		if end > length {
			end = length
		}
		if end < start+1 {
			end = start + 1
		}
		return NewRange(line, start, line, end)
	}

	first := utf8.RuneCountInString(doc.LineAt(0))
	if first > firstLineWidth {
		first = firstLineWidth
	}
	return NewRange(0, 0, 0, first)
}

// byteColumnToChars converts a zero-based byte column within line into a
// character column. Columns past the end of the line are kept as-is so the
// caller can clamp them.
func byteColumnToChars(line string, col int) int {
	if col <= 0 {
		return 0
	}
	if col >= len(line) {
		return utf8.RuneCountInString(line) + (col - len(line))
	}
	return utf8.RuneCountInString(line[:col])
}

func cleanMessage(msg string) string {
	msg = linePrefix.ReplaceAllString(msg, "")
	msg = positionSuffix.ReplaceAllString(msg, "")
	return strings.TrimSpace(msg)
}
