// Package history records evaluation steps and lets callers move back and
// forth through them.
//
// History is linear: recording a step while the cursor is behind the newest
// step discards every later step. Capacity is bounded; when it is exceeded
// the oldest step is evicted.
package history

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dshills/rewind/pkg/domain/types"
	"github.com/dshills/rewind/pkg/source"
	"github.com/dshills/rewind/pkg/value"
)

// DefaultCapacity is the number of steps kept when no capacity is given.
const DefaultCapacity = 100

// BindingSource supplies detached snapshots of a context's bindings.
// The store never keeps a reference to the source.
type BindingSource interface {
	Capture() []value.Named
}

// VariableEntry is one point in a binding's evolution.
type VariableEntry struct {
	Index int
	Step  *ExecutionStep
	Value value.Value
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for step timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger. Nil means slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store is a bounded, linear history of execution steps with a cursor.
// It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	steps    []ExecutionStep
	cursor   int // -1 when empty
	capacity int

	// previous is the context snapshot of the last recorded step. It is the
	// baseline for change detection even after the cursor moves.
	previous *ContextSnapshot

	now    func() time.Time
	logger *slog.Logger
}

// NewStore creates a store holding at most capacity steps. A capacity of
// zero or less means DefaultCapacity.
func NewStore(capacity int, opts ...Option) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s := &Store{
		steps:    make([]ExecutionStep, 0, min(capacity, 16)),
		cursor:   -1,
		capacity: capacity,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "history"))
	return s
}

// RecordStep snapshots the bindings of src, diffs them against the previous
// recorded step and appends the new step at the cursor. Steps after the
// cursor are discarded; the oldest step is evicted when capacity is
// exceeded. The returned step is a copy. src may be nil.
func (s *Store) RecordStep(unitText string, unitRange source.Range, result value.Value, src BindingSource, errMsg string) *ExecutionStep {
	var vars []value.Named
	if src != nil {
		vars = src.Capture()
	}
	snapshot := newContextSnapshot(vars)

	s.mu.Lock()
	defer s.mu.Unlock()

	step := ExecutionStep{
		ID:        types.NewStepID(),
		Timestamp: s.now(),
		UnitText:  unitText,
		UnitRange: unitRange,
		Result:    result,
		Error:     errMsg,
		Bindings:  diff(s.previous, snapshot),
		Context:   snapshot,
	}
	if errMsg != "" {
		step.Result = value.Undefined()
	}

	if s.cursor < len(s.steps)-1 {
		dropped := len(s.steps) - s.cursor - 1
		s.steps = s.steps[:s.cursor+1]
		s.logger.Debug("history truncated", slog.Int("dropped", dropped))
	}

	s.steps = append(s.steps, step)
	s.cursor = len(s.steps) - 1

	if len(s.steps) > s.capacity {
		evicted := s.steps[0].ID
		s.steps = append(s.steps[:0:0], s.steps[1:]...)
		s.cursor--
		s.logger.Debug("history evicted oldest step", slog.String("step_id", evicted.String()))
	}

	s.previous = &snapshot

	s.logger.Debug("step recorded",
		slog.String("step_id", step.ID.String()),
		slog.String("range", unitRange.String()),
		slog.Int("bindings", len(step.Bindings)),
		slog.Bool("failed", step.Failed()))
	return step.clone()
}

// CanStepBack reports whether there is a step before the cursor.
func (s *Store) CanStepBack() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor > 0
}

// CanStepForward reports whether there is a step after the cursor.
func (s *Store) CanStepForward() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor < len(s.steps)-1
}

// StepBack moves the cursor one step back and returns the step under it,
// or nil when already at the oldest step.
func (s *Store) StepBack() *ExecutionStep {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor <= 0 {
		return nil
	}
	s.cursor--
	return s.steps[s.cursor].clone()
}

// StepForward moves the cursor one step forward and returns the step under
// it, or nil when already at the newest step.
func (s *Store) StepForward() *ExecutionStep {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor >= len(s.steps)-1 {
		return nil
	}
	s.cursor++
	return s.steps[s.cursor].clone()
}

// GoToStep moves the cursor to index. An out-of-range index returns nil and
// leaves the cursor unchanged.
func (s *Store) GoToStep(index int) *ExecutionStep {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.steps) {
		return nil
	}
	s.cursor = index
	return s.steps[s.cursor].clone()
}

// CurrentStep returns the step under the cursor, or nil when empty.
func (s *Store) CurrentStep() *ExecutionStep {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cursor < 0 || s.cursor >= len(s.steps) {
		return nil
	}
	return s.steps[s.cursor].clone()
}

// CurrentIndex returns the cursor position, -1 when empty.
func (s *Store) CurrentIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// AllSteps returns a copy of every step, oldest first.
func (s *Store) AllSteps() []ExecutionStep {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ExecutionStep, len(s.steps))
	for i := range s.steps {
		out[i] = *s.steps[i].clone()
	}
	return out
}

// Step returns a copy of the step at index, or nil when out of range.
func (s *Store) Step(index int) *ExecutionStep {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.steps) {
		return nil
	}
	return s.steps[index].clone()
}

// ChangedVariables returns the bindings flagged as changed at index. It
// returns nil for an out-of-range index.
func (s *Store) ChangedVariables(index int) []BindingSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.steps) {
		return nil
	}
	return s.steps[index].Changed()
}

// VariableHistory returns every recorded value of the named binding, oldest first.
func (s *Store) VariableHistory(name string) []VariableEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []VariableEntry
	for i := range s.steps {
		if b, ok := s.steps[i].Binding(name); ok {
			out = append(out, VariableEntry{Index: i, Step: s.steps[i].clone(), Value: b.Value})
		}
	}
	return out
}

// Len returns the number of recorded steps.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.steps)
}

// Capacity returns the maximum number of steps kept.
func (s *Store) Capacity() int {
	return s.capacity
}

// ClearHistory drops every step and the change-detection baseline, so the
// next recorded step marks all of its bindings as changed.
func (s *Store) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = s.steps[:0:0]
	s.cursor = -1
	s.previous = nil
	s.logger.Debug("history cleared")
}
