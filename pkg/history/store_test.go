package history

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dshills/rewind/pkg/source"
	"github.com/dshills/rewind/pkg/value"
)

// fakeSource is a BindingSource with fixed bindings.
type fakeSource []value.Named

func (f fakeSource) Capture() []value.Named {
	return f
}

func vars(pairs ...any) fakeSource {
	var out fakeSource
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, value.Named{Name: pairs[i].(string), Value: pairs[i+1].(value.Value)})
	}
	return out
}

func record(s *Store, text string, src BindingSource) *ExecutionStep {
	return s.RecordStep(text, source.Range{}, value.Undefined(), src, "")
}

func texts(steps []ExecutionStep) []string {
	out := make([]string, len(steps))
	for i, st := range steps {
		out[i] = st.UnitText
	}
	return out
}

func TestStore_NewStore(t *testing.T) {
	s := NewStore(0)
	assert.Equal(t, DefaultCapacity, s.Capacity())
	assert.Equal(t, -1, s.CurrentIndex())
	assert.Equal(t, 0, s.Len())
	assert.Nil(t, s.CurrentStep())
	assert.False(t, s.CanStepBack())
	assert.False(t, s.CanStepForward())

	assert.Equal(t, 5, NewStore(5).Capacity())
}

func TestStore_RecordStep(t *testing.T) {
	fixed := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	s := NewStore(10, WithClock(func() time.Time { return fixed }))
	rng := source.NewRange(2, 0, 2, 9)

	step := s.RecordStep("let a = 1", rng, value.Undefined(), vars("a", value.Number(1)), "")

	require.NotNil(t, step)
	assert.True(t, strings.HasPrefix(step.ID.String(), "step_"))
	assert.Equal(t, fixed, step.Timestamp)
	assert.Equal(t, "let a = 1", step.UnitText)
	assert.Equal(t, rng, step.UnitRange)
	assert.False(t, step.Failed())
	require.Len(t, step.Bindings, 1)
	assert.Equal(t, BindingSnapshot{Name: "a", Value: value.Number(1), Type: "number", Changed: true}, step.Bindings[0])
	assert.Equal(t, []string{"a"}, step.Context.Order)
	assert.Equal(t, 0, s.CurrentIndex())
}

func TestStore_RecordStepWithError(t *testing.T) {
	s := NewStore(10)

	step := s.RecordStep("boom()", source.Range{}, value.Number(3), nil, "boom is not defined")

	assert.True(t, step.Failed())
	assert.Equal(t, "boom is not defined", step.Error)
	assert.True(t, step.Result.IsUndefined())
	assert.Empty(t, step.Bindings)
}

func TestStore_FirstStepMarksEverythingChanged(t *testing.T) {
	s := NewStore(10)

	step := record(s, "x", vars("x", value.Number(1), "y", value.String("s")))

	for _, b := range step.Bindings {
		assert.True(t, b.Changed, b.Name)
	}
}

func TestStore_DiffCorrectness(t *testing.T) {
	s := NewStore(10)
	record(s, "let x = 0, y = 1", vars("x", value.Number(0), "y", value.Number(1)))

	step := record(s, "y = 2", vars("x", value.Number(0), "y", value.Number(2), "z", value.Null()))

	x, ok := step.Binding("x")
	require.True(t, ok)
	assert.False(t, x.Changed)

	y, ok := step.Binding("y")
	require.True(t, ok)
	assert.True(t, y.Changed)

	z, ok := step.Binding("z")
	require.True(t, ok)
	assert.True(t, z.Changed, "new bindings are changed")

	assert.Equal(t, []string{"y", "z"}, names(step.Changed()))
}

func TestStore_DiffUsesStructuralEquality(t *testing.T) {
	s := NewStore(10)
	obj := func(n float64) value.Value {
		return value.Object(
			value.Field{Key: "list", Value: value.Array(value.Number(1), value.Number(n))},
			value.Field{Key: "name", Value: value.String("n")},
		)
	}

	record(s, "1", vars("o", obj(2)))
	same := record(s, "2", vars("o", obj(2)))
	differ := record(s, "3", vars("o", obj(3)))

	assert.False(t, same.Bindings[0].Changed)
	assert.True(t, differ.Bindings[0].Changed)
}

func TestStore_DiffBaselineIsLastRecordedStep(t *testing.T) {
	s := NewStore(10)
	record(s, "a", vars("v", value.Number(1)))
	record(s, "b", vars("v", value.Number(2)))
	s.StepBack()

	step := record(s, "c", vars("v", value.Number(2)))
	assert.False(t, step.Bindings[0].Changed)
}

func TestStore_Linearity(t *testing.T) {
	s := NewStore(10)
	for i := 0; i < 4; i++ {
		record(s, fmt.Sprintf("S%d", i), nil)
	}

	require.NotNil(t, s.StepBack())
	cur := s.StepBack()
	require.NotNil(t, cur)
	assert.Equal(t, "S1", cur.UnitText)

	record(s, "S4", nil)

	assert.Equal(t, []string{"S0", "S1", "S4"}, texts(s.AllSteps()))
	assert.Equal(t, 2, s.CurrentIndex())
	assert.False(t, s.CanStepForward())
}

func TestStore_CapacityEviction(t *testing.T) {
	const capacity = 5
	s := NewStore(capacity)
	for i := 0; i <= capacity; i++ {
		record(s, fmt.Sprintf("S%d", i), nil)
	}

	steps := s.AllSteps()
	require.Len(t, steps, capacity)
	assert.Equal(t, "S1", steps[0].UnitText)
	assert.Equal(t, "S5", steps[capacity-1].UnitText)
	assert.Equal(t, capacity-1, s.CurrentIndex())
}

func TestStore_Navigation(t *testing.T) {
	s := NewStore(10)
	assert.Nil(t, s.StepBack())
	assert.Nil(t, s.StepForward())

	for _, text := range []string{"a", "b", "c"} {
		record(s, text, nil)
	}

	assert.Nil(t, s.StepForward(), "already at the newest step")
	assert.Equal(t, 2, s.CurrentIndex())

	assert.Equal(t, "b", s.StepBack().UnitText)
	assert.Equal(t, "a", s.StepBack().UnitText)
	assert.False(t, s.CanStepBack())
	assert.Nil(t, s.StepBack())
	assert.Equal(t, 0, s.CurrentIndex())

	assert.Equal(t, "b", s.StepForward().UnitText)
	assert.True(t, s.CanStepForward())

	assert.Equal(t, "c", s.GoToStep(2).UnitText)
	assert.Nil(t, s.GoToStep(3))
	assert.Nil(t, s.GoToStep(-1))
	assert.Equal(t, 2, s.CurrentIndex())
	assert.Equal(t, "c", s.CurrentStep().UnitText)

	assert.Equal(t, "a", s.Step(0).UnitText)
	assert.Nil(t, s.Step(9))
}

func TestStore_ClearHistory(t *testing.T) {
	s := NewStore(10)
	record(s, "a", vars("x", value.Number(1)))
	record(s, "b", vars("x", value.Number(1)))

	s.ClearHistory()

	assert.Empty(t, s.AllSteps())
	assert.Equal(t, -1, s.CurrentIndex())
	assert.Nil(t, s.CurrentStep())

	step := record(s, "c", vars("x", value.Number(1)))
	assert.True(t, step.Bindings[0].Changed)
	assert.Equal(t, 0, s.CurrentIndex())
}

func TestStore_ChangedVariables(t *testing.T) {
	s := NewStore(10)
	record(s, "a", vars("x", value.Number(1), "y", value.Number(1)))
	record(s, "b", vars("x", value.Number(1), "y", value.Number(2)))

	assert.Equal(t, []string{"x", "y"}, names(s.ChangedVariables(0)))
	assert.Equal(t, []string{"y"}, names(s.ChangedVariables(1)))
	assert.Nil(t, s.ChangedVariables(2))
}

func TestStore_VariableHistory(t *testing.T) {
	s := NewStore(10)
	record(s, "a", vars("x", value.Number(1)))
	record(s, "b", nil)
	record(s, "c", vars("x", value.Number(3)))

	entries := s.VariableHistory("x")
	require.Len(t, entries, 2)
	assert.Equal(t, 0, entries[0].Index)
	assert.Equal(t, "a", entries[0].Step.UnitText)
	assert.Equal(t, value.Number(1), entries[0].Value)
	assert.Equal(t, 2, entries[1].Index)
	assert.Equal(t, value.Number(3), entries[1].Value)

	assert.Empty(t, s.VariableHistory("missing"))
}

func TestStore_AllStepsIsDefensiveCopy(t *testing.T) {
	s := NewStore(10)
	record(s, "a", vars("x", value.Number(1)))

	steps := s.AllSteps()
	steps[0].UnitText = "mutated"
	steps[0].Bindings[0].Name = "mutated"
	steps[0].Context.Order[0] = "mutated"
	delete(steps[0].Context.Variables, "x")

	again := s.AllSteps()
	assert.Equal(t, "a", again[0].UnitText)
	assert.Equal(t, "x", again[0].Bindings[0].Name)
	assert.Equal(t, []string{"x"}, again[0].Context.Order)
	assert.Contains(t, again[0].Context.Variables, "x")
}

func TestStore_Export(t *testing.T) {
	s := NewStore(7)
	record(s, "let a = 1", vars("a", value.Number(1)))
	s.RecordStep("a.b.c", source.NewRange(1, 0, 1, 5), value.Undefined(), vars("a", value.Number(1)), "Cannot read property 'c' of undefined")
	s.StepBack()

	var buf bytes.Buffer
	require.NoError(t, s.Export(&buf))
	data := buf.Bytes()

	assert.Equal(t, int64(0), gjson.GetBytes(data, "currentIndex").Int())
	assert.Equal(t, int64(7), gjson.GetBytes(data, "capacity").Int())
	assert.Equal(t, int64(2), gjson.GetBytes(data, "steps.#").Int())
	assert.Equal(t, "let a = 1", gjson.GetBytes(data, "steps.0.unitText").String())
	assert.Equal(t, float64(1), gjson.GetBytes(data, "steps.0.bindings.0.value").Float())
	assert.True(t, gjson.GetBytes(data, "steps.0.bindings.0.changed").Bool())
	assert.False(t, gjson.GetBytes(data, "steps.1.bindings.0.changed").Bool())
	assert.Equal(t, int64(1), gjson.GetBytes(data, "steps.1.unitRange.start.line").Int())
	assert.Contains(t, gjson.GetBytes(data, "steps.1.error").String(), "Cannot read property")
	assert.False(t, gjson.GetBytes(data, "steps.0.error").Exists())
}

func TestStore_ConcurrentReaders(t *testing.T) {
	s := NewStore(20)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			record(s, fmt.Sprintf("S%d", i), vars("i", value.Number(float64(i))))
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = s.AllSteps()
				_ = s.CurrentStep()
				_ = s.VariableHistory("i")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, s.Len())
	assert.Equal(t, "S99", s.CurrentStep().UnitText)
}

func names(bindings []BindingSnapshot) []string {
	var out []string
	for _, b := range bindings {
		out = append(out, b.Name)
	}
	return out
}
