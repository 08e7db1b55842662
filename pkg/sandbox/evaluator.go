// Package sandbox runs JavaScript units in persistent, isolated contexts.
//
// Each Context owns one goja runtime with nothing but a console object: no
// module loader, filesystem, network or timers. Evaluate runs one unit under a
// wall-clock timeout and reports failures as plain messages so that callers
// can carry on with the next unit.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja/parser"

	"github.com/dshills/rewind/pkg/source"
	"github.com/dshills/rewind/pkg/value"
)

const (
	// DefaultTimeout bounds a single evaluation.
	DefaultTimeout = time.Second

	maxCallStackSize = 8192
)

// Options configures an Evaluator.
type Options struct {
	// Timeout bounds each Evaluate call. Zero means DefaultTimeout.
	Timeout time.Duration
	// Logger receives diagnostics and unattributed console output. Nil means slog.Default().
	Logger *slog.Logger
}

// Evaluator creates contexts and runs units in them.
type Evaluator struct {
	timeout time.Duration
	logger  *slog.Logger
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(opts Options) *Evaluator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Evaluator{
		timeout: opts.Timeout,
		logger:  opts.Logger.With(slog.String("component", "sandbox")),
	}
}

// Timeout returns the per-evaluation time limit.
func (e *Evaluator) Timeout() time.Duration {
	return e.timeout
}

// CreateContext builds a fresh context. Console output is passed to onOutput;
// when onOutput is nil it is written to the evaluator's logger.
func (e *Evaluator) CreateContext(onOutput OutputFunc) *Context {
	return newContext(e, onOutput)
}

// Outcome is the result of one evaluation. Exactly one of a value or Err is
// meaningful: Err is non-empty on failure.
type Outcome struct {
	// Result is the completion value in the context's runtime, nil on failure.
	Result goja.Value
	// Value is a detached snapshot of Result. It is undefined for statements
	// that produce no value and on failure.
	Value value.Value
	// Err is the failure message, without the error class name.
	Err string
	// Duration is the wall-clock time spent compiling, running and taking
	// the snapshot.
	Duration time.Duration
}

// Failed reports whether the evaluation failed.
func (o Outcome) Failed() bool {
	return o.Err != ""
}

// Evaluate compiles and runs text in c. While it runs, console output is
// attributed to rng. Bindings created or updated by text persist in c.
//
// The run is interrupted when the evaluator's timeout elapses or ctx is done,
// whichever comes first. Evaluate panics with ErrNilContext or
// ErrForeignContext when c is nil or was created by another Evaluator.
func (e *Evaluator) Evaluate(ctx context.Context, text string, rng source.Range, c *Context) Outcome {
	if c == nil {
		panic(ErrNilContext)
	}
	if c.owner != e {
		panic(ErrForeignContext)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = &rng
	defer func() { c.current = nil }()

	start := time.Now()
	result, snap, msg := e.run(ctx, text, c)
	elapsed := time.Since(start)

	if msg != "" {
		e.logger.Debug("unit failed",
			slog.String("range", rng.String()),
			slog.String("error", msg),
			slog.Duration("duration", elapsed))
		return Outcome{Err: msg, Duration: elapsed}
	}

	e.logger.Debug("unit evaluated",
		slog.String("range", rng.String()),
		slog.Duration("duration", elapsed))
	return Outcome{Result: result, Value: snap, Duration: elapsed}
}

// run returns the completion value and its snapshot, or a failure message.
// Reading the result or a thrown error can call user getters; both happen
// inside the interrupt window.
func (e *Evaluator) run(ctx context.Context, text string, c *Context) (result goja.Value, snap value.Value, msg string) {
	// Units arrive as text, so they are parsed again here even though
	// extraction already parsed the whole document.
	program, err := parser.ParseFile(nil, "", text, 0)
	if err != nil {
		return nil, value.Value{}, e.message(err)
	}
	for _, stmt := range program.Body {
		c.track(source.DeclaredNames(stmt))
	}
	compiled, err := goja.CompileAST(program, false)
	if err != nil {
		return nil, value.Value{}, e.message(err)
	}

	err = c.guarded(ctx, e.timeout, func() {
		out, runErr := c.rt.RunProgram(compiled)
		if runErr != nil {
			msg = e.message(runErr)
			return
		}
		result, snap = out, value.Capture(out)
	})
	if err != nil {
		return nil, value.Value{}, e.message(err)
	}
	if msg != "" {
		return nil, value.Value{}, msg
	}
	return result, snap, ""
}

// message extracts a human-readable failure message. Thrown errors yield
// their message property; thrown primitives yield their string form.
func (e *Evaluator) message(err error) string {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok && errors.Is(cause, context.Canceled) {
			return "Script execution was cancelled"
		}
		return fmt.Sprintf("Script execution timed out after %dms", e.timeout.Milliseconds())
	}

	var overflow *goja.StackOverflowError
	if errors.As(err, &overflow) {
		return "Maximum call stack size exceeded"
	}

	var exception *goja.Exception
	if errors.As(err, &exception) {
		return exceptionMessage(exception)
	}

	var compileErr *goja.CompilerSyntaxError
	if errors.As(err, &compileErr) {
		return compileErr.Message
	}

	var parseErrs parser.ErrorList
	if errors.As(err, &parseErrs) && len(parseErrs) > 0 {
		return parseErrs[0].Message
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Unknown error"
}

func exceptionMessage(ex *goja.Exception) (msg string) {
	// Error() stringifies the thrown value, which can run user code, so
	// a failed read falls back to a fixed message.
	defer func() {
		if recover() != nil {
			msg = "Uncaught exception"
		}
	}()

	thrown := ex.Value()
	if thrown == nil {
		return "Uncaught exception"
	}
	if obj, ok := thrown.(*goja.Object); ok {
		if m := obj.Get("message"); m != nil && !goja.IsUndefined(m) && m.String() != "" {
			return m.String()
		}
	}
	if s := thrown.String(); s != "" {
		return s
	}
	return "Uncaught exception"
}
