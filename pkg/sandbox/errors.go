package sandbox

import "errors"

// Sentinel errors for misuse of the evaluator. They are raised as panics:
// passing a missing or foreign context is a programming error, not a
// property of the evaluated code.
var (
	ErrNilContext     = errors.New("sandbox: nil execution context")
	ErrForeignContext = errors.New("sandbox: execution context belongs to a different evaluator")
)
