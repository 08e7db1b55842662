// Package value holds immutable, runtime-independent snapshots of JavaScript
// values. A Value never references the interpreter it was captured from, so
// history entries stay valid after the context that produced them is gone.
package value

import "time"

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindUndefined Kind = iota
	KindNull
	KindNumber
	KindString
	KindBoolean
	KindArray
	KindObject
	KindDate
	// KindOpaque stands in for anything that cannot be represented
	// structurally: functions, symbols, cycles, values whose getters throw.
	KindOpaque
)

// Value is a tagged snapshot. Only the fields matching Kind are meaningful.
// The zero Value is undefined.
type Value struct {
	Kind Kind

	Num  float64
	Str  string
	Bool bool
	Time time.Time

	// Items holds array elements in index order.
	Items []Value
	// Keys holds own enumerable object keys in insertion order; Fields is keyed by them.
	Keys   []string
	Fields map[string]Value

	// Label describes an opaque value, e.g. "[Function]".
	Label string
}

// Field is one key/value pair used to build objects in order.
type Field struct {
	Key   string
	Value Value
}

// Labels used for opaque values.
const (
	LabelFunction       = "[Function]"
	LabelCircular       = "[Circular]"
	LabelUnserializable = "[Unserializable]"
)

func Undefined() Value { return Value{Kind: KindUndefined} }

func Null() Value { return Value{Kind: KindNull} }

func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

func String(s string) Value { return Value{Kind: KindString, Str: s} }

func Boolean(b bool) Value { return Value{Kind: KindBoolean, Bool: b} }

func Date(t time.Time) Value { return Value{Kind: KindDate, Time: t} }

func Opaque(label string) Value { return Value{Kind: KindOpaque, Label: label} }

// Array builds an array value from its elements.
func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Kind: KindArray, Items: items}
}

// Object builds an object value, keeping field order. A repeated key keeps
// its first position and its last value.
func Object(fields ...Field) Value {
	v := Value{Kind: KindObject, Keys: make([]string, 0, len(fields)), Fields: make(map[string]Value, len(fields))}
	for _, f := range fields {
		if _, ok := v.Fields[f.Key]; !ok {
			v.Keys = append(v.Keys, f.Key)
		}
		v.Fields[f.Key] = f.Value
	}
	return v
}

// TypeName returns the type name shown next to a binding in history views.
func (v Value) TypeName() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindDate:
		return "date"
	case KindOpaque:
		if v.Label == LabelFunction {
			return "function"
		}
		return "opaque"
	default:
		return "undefined"
	}
}

// IsUndefined reports whether v is the undefined value.
func (v Value) IsUndefined() bool {
	return v.Kind == KindUndefined
}

// Get returns the field stored under key and whether it exists.
// It is only meaningful for objects.
func (v Value) Get(key string) (Value, bool) {
	f, ok := v.Fields[key]
	return f, ok
}

// Interface converts v into plain Go values: nil, float64, string, bool,
// time.Time, []any and map[string]any. Opaque values become their label.
func (v Value) Interface() any {
	switch v.Kind {
	case KindNumber:
		return v.Num
	case KindString:
		return v.Str
	case KindBoolean:
		return v.Bool
	case KindDate:
		return v.Time
	case KindOpaque:
		return v.Label
	case KindArray:
		out := make([]any, len(v.Items))
		for i, item := range v.Items {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.Keys))
		for _, k := range v.Keys {
			out[k] = v.Fields[k].Interface()
		}
		return out
	default:
		return nil
	}
}

// Named pairs a binding name with its captured value.
type Named struct {
	Name  string
	Value Value
}
