package inspect

import (
	"fmt"
	"math"
)

// extractParam is a generic helper for type-safe parameter extraction from
// expression function parameters.
func extractParam[T any](params []any, index int, name string) (T, error) {
	var zero T

	if index >= len(params) {
		return zero, fmt.Errorf("parameter %d (%s) not provided", index, name)
	}

	if v, ok := params[index].(T); ok {
		return v, nil
	}

	return zero, fmt.Errorf("parameter %d (%s) must be %T, got %T", index, name, zero, params[index])
}

// extractBoolResult asserts that an expression produced a boolean.
func extractBoolResult(result any, context string) (bool, error) {
	boolResult, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s returned %T, expected bool", ErrTypeMismatch, context, result)
	}
	return boolResult, nil
}

// isTruthy follows JavaScript truthiness for the values a snapshot can hold.
// Falsy values: nil, false, 0, NaN, empty string.
func isTruthy(val any) bool {
	switch v := val.(type) {
	case nil:
		return false
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0 && !math.IsNaN(v)
	case string:
		return v != ""
	default:
		return true
	}
}
