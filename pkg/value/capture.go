package value

import (
	"math/big"
	"reflect"
	"strconv"
	"time"

	"github.com/dop251/goja"
)

const (
	// maxDepth bounds nesting during capture; deeper values become opaque.
	maxDepth = 64
	// maxNodes bounds the number of values one capture produces. Arrays
	// longer than the remaining budget are not read at all.
	maxNodes = 100_000
)

// Capture takes a deep, structural snapshot of a runtime value. Plain objects
// keep their own enumerable keys in order, arrays keep their elements and
// dates keep their instant. Nested functions, cycles, values that throw
// while being read and anything past the size budget are replaced by opaque
// placeholders. Capture never panics.
//
// Capture must be called on the goroutine that owns the value's runtime.
func Capture(v goja.Value) Value {
	c := &capturer{active: make(map[*goja.Object]struct{}), remaining: maxNodes}
	return c.capture(v, 0)
}

type capturer struct {
	// active holds the objects on the current path, so shared references
	// are copied while true cycles are cut.
	active map[*goja.Object]struct{}
	// remaining counts down from maxNodes.
	remaining int
}

func (c *capturer) capture(v goja.Value, depth int) (out Value) {
	defer func() {
		if recover() != nil {
			out = Opaque(LabelUnserializable)
		}
	}()

	if c.remaining <= 0 {
		return Opaque(LabelUnserializable)
	}
	c.remaining--

	if v == nil || goja.IsUndefined(v) {
		return Undefined()
	}
	if goja.IsNull(v) {
		return Null()
	}
	switch x := v.(type) {
	case *goja.Object:
		return c.object(x, depth)
	case *goja.Symbol:
		return Opaque(x.String())
	}

	switch e := v.Export().(type) {
	case bool:
		return Boolean(e)
	case string:
		return String(e)
	case int64:
		return Number(float64(e))
	case float64:
		return Number(e)
	case *big.Int:
		return Opaque(e.String() + "n")
	}
	return Opaque(v.String())
}

func (c *capturer) object(obj *goja.Object, depth int) Value {
	if depth >= maxDepth {
		return Opaque(LabelUnserializable)
	}
	if _, seen := c.active[obj]; seen {
		return Opaque(LabelCircular)
	}
	c.active[obj] = struct{}{}
	defer delete(c.active, obj)

	switch obj.ClassName() {
	case "Function":
		return Opaque(LabelFunction)
	case "Date":
		if t, ok := obj.Export().(time.Time); ok {
			return Date(t)
		}
		return Opaque("Invalid Date")
	case "Error", "RegExp":
		return Opaque(obj.String())
	case "Array":
		return c.elements(obj, depth)
	}
	// Typed arrays enumerate every index as a key; read them by length.
	if t := obj.ExportType(); t != nil && t.Kind() == reflect.Slice {
		return c.elements(obj, depth)
	}

	keys := obj.Keys()
	if len(keys) > c.remaining {
		return Opaque(LabelUnserializable)
	}
	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, Field{Key: k, Value: c.field(obj, k, depth)})
	}
	return Object(fields...)
}

// elements captures an array-like object by index. length is
// user-controlled, so it is checked against the budget before anything is
// allocated.
func (c *capturer) elements(obj *goja.Object, depth int) Value {
	n := obj.Get("length").ToInteger()
	if n < 0 || n > int64(c.remaining) {
		return Opaque("[Array(" + strconv.FormatInt(n, 10) + ")]")
	}
	items := make([]Value, 0, n)
	for i := int64(0); i < n; i++ {
		items = append(items, c.field(obj, strconv.FormatInt(i, 10), depth))
	}
	return Array(items...)
}

// field reads and captures one property. A throwing getter only spoils that
// property.
func (c *capturer) field(obj *goja.Object, key string, depth int) (out Value) {
	defer func() {
		if recover() != nil {
			out = Opaque(LabelUnserializable)
		}
	}()
	return c.capture(obj.Get(key), depth+1)
}
