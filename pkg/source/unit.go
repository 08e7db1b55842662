// Package source extracts top-level evaluable units from JavaScript text and
// localizes syntax errors as positioned diagnostics.
package source

import "github.com/dop251/goja/ast"

// Unit is one top-level statement of a document, with its exact source text.
type Unit struct {
	Text  string
	Range Range
	Node  ast.Statement
}

// Severity classifies a diagnostic.
type Severity int

const (
	// SeverityError marks a fatal syntax error.
	SeverityError Severity = iota
	SeverityWarning
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// DiagnosticSource is the source label attached to every diagnostic.
const DiagnosticSource = "JavaScript Evaluator"

// Diagnostic is a positioned parse failure.
type Diagnostic struct {
	Range    Range    `json:"range"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	Source   string   `json:"source"`
}

// Result is the outcome of one extraction pass.
type Result struct {
	Units       []Unit
	Diagnostics []Diagnostic
}

// HasErrors reports whether extraction produced any error diagnostic.
func (r Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
