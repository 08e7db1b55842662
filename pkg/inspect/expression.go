package inspect

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// DefaultExpressionTimeout bounds a single expression run when the context
// carries no deadline.
const DefaultExpressionTimeout = 5 * time.Second

// ExpressionEvaluator evaluates expr-lang expressions against a variable map.
// Supports comparison, logical and arithmetic operators, membership tests
// (`"x" in changed`), literals and variable references. Evaluation is
// sandboxed: no host functions are reachable.
type ExpressionEvaluator interface {
	Evaluate(ctx context.Context, expression string, env map[string]any) (any, error)
	// EvaluateBool evaluates an expression and returns its boolean result.
	// Returns ErrTypeMismatch if the expression does not produce a bool.
	EvaluateBool(ctx context.Context, expression string, env map[string]any) (bool, error)
}

// exprEvaluator implements ExpressionEvaluator using github.com/expr-lang/expr
type exprEvaluator struct {
	mu           sync.Mutex
	programCache map[string]*vm.Program
}

// NewExpressionEvaluator creates a new expression evaluator with sandboxing
func NewExpressionEvaluator() ExpressionEvaluator {
	return &exprEvaluator{
		programCache: make(map[string]*vm.Program),
	}
}

// unsafePatterns are rejected before compilation.
var unsafePatterns = []string{
	"os.",
	"exec.",
	"http.",
	"net.",
	"syscall.",
	"unsafe.",
	"__proto__",
	"constructor",
	"ReadFile",
	"WriteFile",
}

// Evaluate executes an expression with the given variables
func (e *exprEvaluator) Evaluate(ctx context.Context, expression string, env map[string]any) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := validateExpression(expression); err != nil {
		return nil, err
	}

	program, err := e.getOrCompileProgram(expression)
	if err != nil {
		return nil, err
	}

	// Execute with timeout protection
	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := vm.Run(program, env)
		if err != nil {
			done <- outcome{err: fmt.Errorf("%w: %v", ErrEvaluationFailed, err)}
			return
		}
		done <- outcome{result: result}
	}()

	timeout := DefaultExpressionTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		return out.result, out.err
	case <-time.After(timeout):
		return nil, ErrEvaluationTimeout
	}
}

// EvaluateBool evaluates a predicate and returns its boolean result.
func (e *exprEvaluator) EvaluateBool(ctx context.Context, expression string, env map[string]any) (bool, error) {
	result, err := e.Evaluate(ctx, expression, env)
	if err != nil {
		return false, err
	}
	return extractBoolResult(result, "expression")
}

func validateExpression(expression string) error {
	if strings.TrimSpace(expression) == "" {
		return fmt.Errorf("%w: empty expression", ErrInvalidExpression)
	}

	lowerExpr := strings.ToLower(expression)
	for _, pattern := range unsafePatterns {
		if strings.Contains(lowerExpr, strings.ToLower(pattern)) {
			return ErrUnsafeOperation
		}
	}
	return nil
}

// getOrCompileProgram retrieves a cached program or compiles a new one.
// Programs are compiled without a typed environment so that one program
// serves every step, whatever bindings it has.
func (e *exprEvaluator) getOrCompileProgram(expression string) (*vm.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if program, ok := e.programCache[expression]; ok {
		return program, nil
	}

	options := []expr.Option{
		expr.AllowUndefinedVariables(),
		expr.Function("contains", func(params ...any) (any, error) {
			if len(params) != 2 {
				return nil, fmt.Errorf("contains requires 2 arguments")
			}
			str, err := extractParam[string](params, 0, "string")
			if err != nil {
				return false, nil
			}
			substr, err := extractParam[string](params, 1, "substring")
			if err != nil {
				return false, nil
			}
			return strings.Contains(str, substr), nil
		}),
		expr.Function("truthy", func(params ...any) (any, error) {
			if len(params) != 1 {
				return nil, fmt.Errorf("truthy() requires 1 argument")
			}
			return isTruthy(params[0]), nil
		}),
	}

	program, err := expr.Compile(expression, options...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}

	e.programCache[expression] = program
	return program, nil
}
