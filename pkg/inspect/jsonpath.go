package inspect

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dshills/rewind/pkg/history"
	"github.com/dshills/rewind/pkg/value"
)

// JSONPathQuerier reads nested data out of captured snapshots. Paths use
// gjson syntax (`user.tags.0`, `items.#`, `items.#(done==true)#.title`);
// a JSONPath-style `$.` prefix and `[n]` indexes are accepted too.
type JSONPathQuerier interface {
	// Lookup queries the bindings of one step as a single object keyed by name.
	Lookup(step history.ExecutionStep, path string) (any, error)
	// LookupValue queries one captured value.
	LookupValue(v value.Value, path string) (any, error)
}

// gjsonQuerier implements JSONPathQuerier using github.com/tidwall/gjson
type gjsonQuerier struct{}

// NewJSONPathQuerier creates a new querier backed by gjson
func NewJSONPathQuerier() JSONPathQuerier {
	return &gjsonQuerier{}
}

func (q *gjsonQuerier) Lookup(step history.ExecutionStep, path string) (any, error) {
	fields := make([]value.Field, 0, len(step.Context.Order))
	for _, name := range step.Context.Order {
		fields = append(fields, value.Field{Key: name, Value: step.Context.Variables[name]})
	}
	return q.LookupValue(value.Object(fields...), path)
}

func (q *gjsonQuerier) LookupValue(v value.Value, path string) (any, error) {
	queryPath, err := toGJSONPath(path)
	if err != nil {
		return nil, err
	}

	data, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}

	if queryPath == "" {
		return v.Interface(), nil
	}

	result := gjson.GetBytes(data, queryPath)
	if !result.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrNoMatch, path)
	}
	return convertGJSONResult(result), nil
}

// toGJSONPath validates a path and converts JSONPath-style syntax to gjson.
func toGJSONPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", ErrInvalidPath
	}
	if err := validateBrackets(path); err != nil {
		return "", err
	}

	switch {
	case path == "$":
		return "", nil
	case strings.HasPrefix(path, "$."):
		path = path[2:]
	}
	return replaceArrayIndexes(path), nil
}

// replaceArrayIndexes rewrites `a[0].b` as `a.0.b`.
func replaceArrayIndexes(path string) string {
	var b strings.Builder
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '[':
			if b.Len() > 0 {
				b.WriteByte('.')
			}
		case ']':
		default:
			b.WriteByte(path[i])
		}
	}
	return b.String()
}

func validateBrackets(path string) error {
	var stack []byte
	pairs := map[byte]byte{')': '(', ']': '['}
	for i := 0; i < len(path); i++ {
		switch c := path[i]; c {
		case '(', '[':
			stack = append(stack, c)
		case ')', ']':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[c] {
				return fmt.Errorf("%w: unbalanced %q at %d", ErrInvalidPath, c, i)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return fmt.Errorf("%w: unclosed %q", ErrInvalidPath, stack[len(stack)-1])
	}
	return nil
}

// convertGJSONResult converts a gjson.Result to plain Go values.
func convertGJSONResult(result gjson.Result) any {
	switch result.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return result.Num
	case gjson.String:
		return result.Str
	default:
		return result.Value()
	}
}
