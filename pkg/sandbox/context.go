package sandbox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/dshills/rewind/pkg/source"
	"github.com/dshills/rewind/pkg/value"
)

// OutputFunc receives one formatted console line. origin is the range of the
// unit that was executing when the line was produced, or nil when no unit
// was executing. It runs on the evaluating goroutine and must not call back
// into the Context.
type OutputFunc func(message string, origin *source.Range)

// Binding is one user-visible variable in a context.
type Binding struct {
	Name  string
	Value goja.Value
}

// Context is a persistent, isolated JavaScript scope. Bindings created by one
// evaluation are visible to every later evaluation on the same Context.
//
// A Context exclusively owns its runtime. Its methods may be called from any
// goroutine but evaluations on one Context never overlap.
type Context struct {
	owner  *Evaluator
	rt     *goja.Runtime
	logger *slog.Logger

	mu       sync.Mutex
	onOutput OutputFunc
	current  *source.Range

	// stringify is JSON.stringify as it was at creation, so user code that
	// replaces the JSON global does not change console formatting.
	stringify goja.Callable

	// declared tracks top-level declared names in first-seen order. Lexical
	// bindings are not properties of the global object, so they cannot be
	// discovered by enumeration.
	declared []string
	seen     map[string]struct{}

	// builtins are global properties installed by the sandbox itself.
	builtins map[string]struct{}
}

func newContext(owner *Evaluator, onOutput OutputFunc) *Context {
	c := &Context{
		owner:    owner,
		rt:       goja.New(),
		logger:   owner.logger,
		onOutput: onOutput,
		seen:     make(map[string]struct{}),
		builtins: make(map[string]struct{}),
	}
	c.rt.SetMaxCallStackSize(maxCallStackSize)

	if jsonObj := c.rt.Get("JSON"); jsonObj != nil {
		if fn, ok := goja.AssertFunction(jsonObj.ToObject(c.rt).Get("stringify")); ok {
			c.stringify = fn
		}
	}

	if err := c.installConsole(); err != nil {
		// Setting a property on a fresh global object cannot fail.
		panic(err)
	}
	for _, k := range c.rt.GlobalObject().Keys() {
		c.builtins[k] = struct{}{}
	}
	return c
}

// Bindings returns the user-visible variables of the context: declared
// let/const/var names and implicit globals. Functions, classes, sandbox
// capabilities and names starting with "__" are excluded. Names whose value
// cannot be read (for example a let that threw during initialization) are
// skipped.
//
// The returned values belong to the context's runtime and must not be used
// concurrently with an evaluation.
//
// Global getters run under the evaluator's timeout; one that does not finish
// in time is skipped.
func (c *Context) Bindings() []Binding {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []Binding
	_ = c.guarded(context.Background(), c.owner.timeout, func() {
		out = c.bindings()
	})
	return out
}

// Capture snapshots the bindings reported by Bindings into detached values.
// The snapshot is taken while no evaluation is running, so it is consistent.
// Reads that exceed the evaluator's timeout become opaque values.
func (c *Context) Capture() []value.Named {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []value.Named
	_ = c.guarded(context.Background(), c.owner.timeout, func() {
		bindings := c.bindings()
		out = make([]value.Named, len(bindings))
		for i, b := range bindings {
			out[i] = value.Named{Name: b.Name, Value: value.Capture(b.Value)}
		}
	})
	return out
}

// Names returns the names reported by Bindings, in the same order.
func (c *Context) Names() []string {
	bindings := c.Bindings()
	names := make([]string, len(bindings))
	for i, b := range bindings {
		names[i] = b.Name
	}
	return names
}

func (c *Context) bindings() []Binding {
	candidates := append([]string(nil), c.declared...)
	for _, k := range c.globalKeys() {
		if _, ok := c.seen[k]; !ok {
			candidates = append(candidates, k)
		}
	}

	out := make([]Binding, 0, len(candidates))
	for _, name := range candidates {
		if strings.HasPrefix(name, "__") {
			continue
		}
		if _, ok := c.builtins[name]; ok {
			continue
		}
		v, ok := c.lookup(name)
		if !ok {
			continue
		}
		if _, callable := goja.AssertFunction(v); callable {
			continue
		}
		out = append(out, Binding{Name: name, Value: v})
	}
	return out
}

func (c *Context) globalKeys() (keys []string) {
	defer func() {
		if recover() != nil {
			keys = nil
		}
	}()
	return c.rt.GlobalObject().Keys()
}

// lookup resolves a global name, lexical scope first. Reads that throw
// (uninitialized lexical bindings, throwing getters) report not found.
func (c *Context) lookup(name string) (v goja.Value, ok bool) {
	defer func() {
		if recover() != nil {
			v, ok = nil, false
		}
	}()
	if ex := c.rt.Try(func() { v = c.rt.Get(name) }); ex != nil {
		return nil, false
	}
	return v, v != nil
}

// guarded runs fn with the runtime set to be interrupted once limit elapses
// or ctx is done. A panic escaping fn is returned as an error. The caller
// must hold c.mu.
func (c *Context) guarded(ctx context.Context, limit time.Duration, fn func()) (err error) {
	runCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	done := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-runCtx.Done():
			c.rt.Interrupt(runCtx.Err())
		case <-done:
		}
	}()

	defer func() {
		close(done)
		<-watcherDone
		// The watcher may have fired after fn returned.
		c.rt.ClearInterrupt()
	}()

	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("%v", r)
			}
		}
	}()
	fn()
	return nil
}

func (c *Context) track(names []string) {
	for _, n := range names {
		if _, ok := c.seen[n]; ok {
			continue
		}
		c.seen[n] = struct{}{}
		c.declared = append(c.declared, n)
	}
}
