package history

import (
	"maps"
	"slices"
	"time"

	"github.com/dshills/rewind/pkg/domain/types"
	"github.com/dshills/rewind/pkg/source"
	"github.com/dshills/rewind/pkg/value"
)

// ExecutionStep is one recorded evaluation together with a snapshot of the
// context bindings right after it ran.
type ExecutionStep struct {
	ID        types.StepID `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	UnitText  string       `json:"unitText"`
	UnitRange source.Range `json:"unitRange"`
	// Result is undefined when the unit failed.
	Result value.Value `json:"result"`
	// Error is the failure message, empty on success.
	Error    string            `json:"error,omitempty"`
	Bindings []BindingSnapshot `json:"bindings"`
	Context  ContextSnapshot   `json:"context"`
}

// BindingSnapshot is one binding as seen by a step. Changed is set when the
// binding is new or its value differs from the previous recorded step.
type BindingSnapshot struct {
	Name    string      `json:"name"`
	Value   value.Value `json:"value"`
	Type    string      `json:"type"`
	Changed bool        `json:"changed"`
}

// ContextSnapshot holds every captured binding keyed by name. Order lists
// the names in capture order.
type ContextSnapshot struct {
	Variables  map[string]value.Value `json:"variables"`
	Order      []string               `json:"order"`
	ScopeLevel int                    `json:"scopeLevel"`
}

// Failed reports whether the recorded unit failed.
func (s ExecutionStep) Failed() bool {
	return s.Error != ""
}

// Binding returns the snapshot of the named binding.
func (s ExecutionStep) Binding(name string) (BindingSnapshot, bool) {
	for _, b := range s.Bindings {
		if b.Name == name {
			return b, true
		}
	}
	return BindingSnapshot{}, false
}

// Changed returns the bindings flagged as changed in this step.
func (s ExecutionStep) Changed() []BindingSnapshot {
	var out []BindingSnapshot
	for _, b := range s.Bindings {
		if b.Changed {
			out = append(out, b)
		}
	}
	return out
}

// clone copies the step's containers so callers cannot alter stored history.
// Values themselves are immutable snapshots and are shared.
func (s ExecutionStep) clone() *ExecutionStep {
	s.Bindings = slices.Clone(s.Bindings)
	s.Context.Variables = maps.Clone(s.Context.Variables)
	s.Context.Order = slices.Clone(s.Context.Order)
	return &s
}

func newContextSnapshot(vars []value.Named) ContextSnapshot {
	snap := ContextSnapshot{
		Variables: make(map[string]value.Value, len(vars)),
		Order:     make([]string, 0, len(vars)),
	}
	for _, v := range vars {
		if _, dup := snap.Variables[v.Name]; !dup {
			snap.Order = append(snap.Order, v.Name)
		}
		snap.Variables[v.Name] = v.Value
	}
	return snap
}

// diff builds binding snapshots for current, flagging changes against
// previous. A nil previous marks every binding as changed.
func diff(previous *ContextSnapshot, current ContextSnapshot) []BindingSnapshot {
	out := make([]BindingSnapshot, 0, len(current.Order))
	for _, name := range current.Order {
		v := current.Variables[name]
		changed := true
		if previous != nil {
			if old, ok := previous.Variables[name]; ok {
				changed = !value.Equal(old, v)
			}
		}
		out = append(out, BindingSnapshot{
			Name:    name,
			Value:   v,
			Type:    v.TypeName(),
			Changed: changed,
		})
	}
	return out
}
