package value

import (
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func run(t *testing.T, script string) goja.Value {
	t.Helper()
	v, err := goja.New().RunString(script)
	require.NoError(t, err)
	return v
}

func TestCapturePrimitives(t *testing.T) {
	tests := []struct {
		script string
		want   Value
	}{
		{"undefined", Undefined()},
		{"null", Null()},
		{"42", Number(42)},
		{"0.25", Number(0.25)},
		{"'text'", String("text")},
		{"true", Boolean(true)},
	}

	for _, tt := range tests {
		t.Run(tt.script, func(t *testing.T) {
			got := Capture(run(t, tt.script))
			assert.True(t, Equal(tt.want, got), "got %v", got)
		})
	}

	assert.Equal(t, KindUndefined, Capture(nil).Kind)
}

func TestCaptureStructures(t *testing.T) {
	got := Capture(run(t, `({ b: 1, a: [1, "two", { deep: null }], when: new Date(0) })`))

	require.Equal(t, KindObject, got.Kind)
	assert.Equal(t, []string{"b", "a", "when"}, got.Keys)

	want := Object(
		Field{"b", Number(1)},
		Field{"a", Array(Number(1), String("two"), Object(Field{"deep", Null()}))},
		Field{"when", Date(time.Unix(0, 0))},
	)
	assert.True(t, Equal(want, got), "got %v", got)
}

func TestCaptureIsDetached(t *testing.T) {
	rt := goja.New()
	obj, err := rt.RunString(`var o = { n: 1, list: [1] }; o`)
	require.NoError(t, err)

	snap := Capture(obj)

	_, err = rt.RunString(`o.n = 2; o.list.push(2);`)
	require.NoError(t, err)

	n, _ := snap.Get("n")
	list, _ := snap.Get("list")
	assert.Equal(t, 1.0, n.Num)
	assert.Len(t, list.Items, 1)
}

func TestCaptureOpaque(t *testing.T) {
	tests := []struct {
		name   string
		script string
		key    string
		want   Value
	}{
		{"function", `({ f: function() {} })`, "f", Opaque(LabelFunction)},
		{"arrow", `({ f: () => 1 })`, "f", Opaque(LabelFunction)},
		{"cycle", `var c = { }; c.self = c; c`, "self", Opaque(LabelCircular)},
		{
			"throwing getter",
			`({ get bad() { throw new Error("nope"); } })`,
			"bad",
			Opaque(LabelUnserializable),
		},
		{"error", `({ e: new TypeError("bad input") })`, "e", Opaque("TypeError: bad input")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Capture(run(t, tt.script))
			require.Equal(t, KindObject, got.Kind)
			field, ok := got.Get(tt.key)
			require.True(t, ok)
			assert.True(t, Equal(tt.want, field), "got %v", field)
		})
	}
}

func TestCaptureSharedReferenceIsNotCircular(t *testing.T) {
	got := Capture(run(t, `var s = { v: 1 }; ({ a: s, b: s })`))

	a, _ := got.Get("a")
	b, _ := got.Get("b")
	assert.Equal(t, KindObject, a.Kind)
	assert.Equal(t, KindObject, b.Kind)
	assert.True(t, Equal(a, b))
}

func TestCaptureDepthLimit(t *testing.T) {
	got := Capture(run(t, `var root = {}; var cur = root; for (var i = 0; i < 100; i++) { cur.next = {}; cur = cur.next; } root`))

	depth := 0
	for got.Kind == KindObject {
		next, ok := got.Get("next")
		if !ok {
			break
		}
		got = next
		depth++
	}
	assert.Equal(t, Opaque(LabelUnserializable), got)
	assert.Equal(t, maxDepth, depth)
}

func TestCaptureHugeLengthIsNotRead(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   Value
	}{
		{"sparse array", `var a = []; a.length = 50000000; a`, Opaque("[Array(50000000)]")},
		{"max length", `var a = []; a.length = 4294967295; a`, Opaque("[Array(4294967295)]")},
		{"typed array", `new Uint8Array(200000)`, Opaque("[Array(200000)]")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Capture(run(t, tt.script))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCaptureTypedArray(t *testing.T) {
	got := Capture(run(t, `new Uint8Array([1, 2, 3])`))
	assert.True(t, Equal(Array(Number(1), Number(2), Number(3)), got), "got %v", got)
}

func TestCaptureNodeBudget(t *testing.T) {
	got := Capture(run(t, `var row = Array(1000).fill(0); Array(1000).fill(row)`))

	require.Equal(t, KindArray, got.Kind)
	require.Len(t, got.Items, 1000)
	assert.Equal(t, KindArray, got.Items[0].Kind)
	assert.Equal(t, KindOpaque, got.Items[999].Kind)
	assert.Less(t, countNodes(got), 2*maxNodes)
}

func countNodes(v Value) int {
	n := 1
	for _, item := range v.Items {
		n += countNodes(item)
	}
	for _, f := range v.Fields {
		n += countNodes(f)
	}
	return n
}

func TestEqualIsReflexiveProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := genValue(t, 0)
		if !Equal(v, v) {
			t.Fatalf("value not equal to itself: %v", v)
		}
	})
}

func genValue(t *rapid.T, depth int) Value {
	limit := 7
	if depth > 3 {
		limit = 4
	}
	switch rapid.IntRange(0, limit).Draw(t, "kind") {
	case 0:
		return Undefined()
	case 1:
		return Null()
	case 2:
		return Number(rapid.Float64().Draw(t, "num"))
	case 3:
		return String(rapid.String().Draw(t, "str"))
	case 4:
		return Boolean(rapid.Bool().Draw(t, "bool"))
	case 5:
		return Date(time.UnixMilli(rapid.Int64Range(-1e12, 1e12).Draw(t, "ms")))
	case 6:
		n := rapid.IntRange(0, 3).Draw(t, "len")
		items := make([]Value, n)
		for i := range items {
			items[i] = genValue(t, depth+1)
		}
		return Array(items...)
	default:
		n := rapid.IntRange(0, 3).Draw(t, "fields")
		fields := make([]Field, n)
		for i := range fields {
			fields[i] = Field{Key: rapid.StringMatching(`[a-z]{1,4}`).Draw(t, "key"), Value: genValue(t, depth+1)}
		}
		return Object(fields...)
	}
}
