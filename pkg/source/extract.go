package source

import (
	"fmt"

	"github.com/dop251/goja"
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
)

// Extract parses text and returns its top-level units, or exactly one
// diagnostic when the text does not parse. The grammar is script-only:
// import and export declarations are reported as "Unexpected reserved word".
// It never panics.
func Extract(text string) Result {
	return ExtractDocument(NewDocument(text))
}

// ExtractDocument is Extract over an already indexed document.
func ExtractDocument(doc *Document) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Diagnostics: []Diagnostic{
				newDiagnostic(doc, syntaxError{message: fmt.Sprintf("Parsing error: %v", r)}),
			}}
		}
	}()

	program, err := parser.ParseFile(nil, "", doc.Text(), 0)
	if err != nil {
		return Result{Diagnostics: []Diagnostic{newDiagnostic(doc, fromParseError(err))}}
	}

	// The compiler reports early errors (duplicate lexical declarations and
	// the like) that the parser accepts.
	if _, err := goja.CompileAST(program, false); err != nil {
		return Result{Diagnostics: []Diagnostic{newDiagnostic(doc, fromCompileError(doc, err))}}
	}

	return Result{Units: collectUnits(doc, program)}
}

func collectUnits(doc *Document, program *ast.Program) []Unit {
	units := make([]Unit, 0, len(program.Body))
	prevEnd := 0
	for _, stmt := range program.Body {
		if _, ok := stmt.(*ast.EmptyStatement); ok {
			continue
		}
		start, end, ok := nodeSpan(stmt, doc.Len())
		if !ok || start < prevEnd {
			continue
		}
		end = swallowSemicolon(doc.Text(), end)

		units = append(units, Unit{
			Text:  doc.Text()[start:end],
			Range: doc.RangeOf(start, end),
			Node:  stmt,
		})
		prevEnd = end
	}
	return units
}

// nodeSpan resolves a node's byte span. Nodes with a missing or out-of-bounds
// span are reported as not ok.
func nodeSpan(node ast.Node, size int) (start, end int, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	// Parser indexes are one-based.
	start = int(node.Idx0()) - 1
	end = int(node.Idx1()) - 1
	if start < 0 || end > size || end <= start {
		return 0, 0, false
	}
	return start, end, true
}

// swallowSemicolon extends a statement span over the semicolon that
// terminates it on the same line.
func swallowSemicolon(text string, end int) int {
	i := end
	for i < len(text) && (text[i] == ' ' || text[i] == '\t') {
		i++
	}
	if i < len(text) && text[i] == ';' {
		return i + 1
	}
	return end
}
