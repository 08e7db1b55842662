// Package types defines core identifiers shared across rewind packages.
package types

import "github.com/google/uuid"

// RunID identifies one evaluation pass over a document.
type RunID string

// StepID identifies one recorded history step.
type StepID string

// NewRunID generates a new unique run ID.
func NewRunID() RunID {
	return RunID(uuid.NewString())
}

// String returns the string representation of a RunID.
func (id RunID) String() string {
	return string(id)
}

// IsZero returns true if the RunID is the zero value.
func (id RunID) IsZero() bool {
	return id == ""
}

// NewStepID generates a new unique step ID.
func NewStepID() StepID {
	return StepID("step_" + uuid.NewString())
}

// String returns the string representation of a StepID.
func (id StepID) String() string {
	return string(id)
}
