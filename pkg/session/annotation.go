package session

import (
	"strings"

	"github.com/dshills/rewind/pkg/source"
)

// Kind classifies an annotation.
type Kind int

const (
	// KindResult is the completion value of a unit.
	KindResult Kind = iota
	// KindLog is one line of console output.
	KindLog
	// KindError is an evaluation failure or a syntax diagnostic.
	KindError
)

// Prefix returns the marker written before the annotation text.
func (k Kind) Prefix() string {
	switch k {
	case KindLog:
		return "log: "
	case KindError:
		return "Error: "
	default:
		return "=> "
	}
}

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindResult:
		return "result"
	case KindLog:
		return "log"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Annotation is one inline message anchored to a unit's range.
type Annotation struct {
	Range source.Range `json:"range"`
	Kind  Kind         `json:"kind"`
	Text  string       `json:"text"`
}

// Render returns the single-line trailing comment form, e.g. " // => 2".
// Newlines in the text are escaped.
func (a Annotation) Render() string {
	return " // " + a.Kind.Prefix() + strings.ReplaceAll(a.Text, "\n", `\n`)
}
