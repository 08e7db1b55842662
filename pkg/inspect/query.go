// Package inspect answers questions about recorded history: which steps
// satisfy a predicate, and what a nested value looked like at a step.
package inspect

import (
	"context"
	"errors"

	"github.com/dshills/rewind/pkg/history"
)

// Match is a step selected by Where, with its position in the input slice.
type Match struct {
	Index int
	Step  history.ExecutionStep
}

// StepEnv builds the variable map a predicate sees for one step. Every
// binding is available by name and under `vars`; `changed` lists the names
// of changed bindings; `index`, `unit`, `result`, `error` and `failed`
// describe the step itself and shadow bindings of the same name.
func StepEnv(index int, step history.ExecutionStep) map[string]any {
	env := make(map[string]any, len(step.Bindings)+6)
	vars := make(map[string]any, len(step.Bindings))
	changed := make([]any, 0, len(step.Bindings))

	for _, b := range step.Bindings {
		v := b.Value.Interface()
		env[b.Name] = v
		vars[b.Name] = v
		if b.Changed {
			changed = append(changed, b.Name)
		}
	}

	env["vars"] = vars
	env["changed"] = changed
	env["index"] = index
	env["unit"] = step.UnitText
	env["result"] = step.Result.Interface()
	env["error"] = step.Error
	env["failed"] = step.Failed()
	return env
}

// Where returns the steps for which predicate evaluates to true, in order.
// A step on which the predicate fails at run time (for example by comparing
// a binding the step does not have) does not match. Invalid or unsafe
// predicates, non-boolean results and cancellation are returned as errors.
func Where(ctx context.Context, eval ExpressionEvaluator, steps []history.ExecutionStep, predicate string) ([]Match, error) {
	var matches []Match
	for i, step := range steps {
		ok, err := eval.EvaluateBool(ctx, predicate, StepEnv(i, step))
		if errors.Is(err, ErrEvaluationFailed) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, Match{Index: i, Step: step})
		}
	}
	return matches, nil
}
