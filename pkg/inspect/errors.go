package inspect

import "errors"

// Sentinel errors shared across inspect operations
var (
	// Expression errors
	ErrInvalidExpression = errors.New("invalid expression syntax")
	ErrEvaluationFailed  = errors.New("expression evaluation failed")
	ErrEvaluationTimeout = errors.New("expression evaluation timed out")
	ErrUnsafeOperation   = errors.New("unsafe operation attempted")
	ErrTypeMismatch      = errors.New("type mismatch in expression result")

	// Path errors
	ErrInvalidPath = errors.New("invalid path syntax")
	ErrNoMatch     = errors.New("path matched nothing")
)
