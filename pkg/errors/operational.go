// Package errors provides error types carrying operational context for
// evaluation passes.
package errors

import (
	"fmt"
	"time"
)

// OperationalError wraps an error with the pass and unit it occurred in.
type OperationalError struct {
	Operation  string         // What operation was being performed
	RunID      string         // Which evaluation pass
	Unit       string         // Which unit range, "L:C-L:C" (if applicable)
	Timestamp  time.Time      // When the error occurred
	Attributes map[string]any // Additional context (optional)
	Cause      error          // Underlying error
}

// NewOperationalError creates an OperationalError wrapping an error.
//
// Returns nil if cause is nil (no error to wrap).
//
// Example:
//
//	if err := ctx.Err(); err != nil {
//	    return NewOperationalError("evaluating unit", runID.String(), unit.Range.String(), err)
//	}
func NewOperationalError(operation, runID, unit string, cause error) *OperationalError {
	if cause == nil {
		return nil
	}

	return &OperationalError{
		Operation: operation,
		RunID:     runID,
		Unit:      unit,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// WithAttrs returns a copy of e carrying additional attributes.
func (e *OperationalError) WithAttrs(attrs map[string]any) *OperationalError {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Attributes = make(map[string]any, len(e.Attributes)+len(attrs))
	for k, v := range e.Attributes {
		cp.Attributes[k] = v
	}
	for k, v := range attrs {
		cp.Attributes[k] = v
	}
	return &cp
}

// Error implements the error interface.
//
// Format: "[timestamp] operation: run={id} unit={range}: {cause}"
// Empty run and unit fields are omitted.
func (e *OperationalError) Error() string {
	if e == nil {
		return "<nil OperationalError>"
	}

	msg := fmt.Sprintf("[%s] %s", e.Timestamp.Format(time.RFC3339), e.Operation)
	if e.RunID != "" {
		msg += " run=" + e.RunID
	}
	if e.Unit != "" {
		msg += " unit=" + e.Unit
	}
	return fmt.Sprintf("%s: %v", msg, e.Cause)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}
