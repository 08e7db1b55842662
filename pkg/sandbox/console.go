package sandbox

import (
	"strings"

	"github.com/dop251/goja"

	"github.com/dshills/rewind/pkg/source"
)

// consoleMethods are the logging entry points exposed to evaluated code.
// All of them route to the same output sink.
var consoleMethods = []string{"log", "info", "warn", "error", "debug"}

const unserializable = "[Unserializable Object]"

// installConsole binds a console object into the context's global scope.
func (c *Context) installConsole() error {
	console := c.rt.NewObject()
	for _, name := range consoleMethods {
		if err := console.Set(name, c.rt.ToValue(c.consoleCall)); err != nil {
			return err
		}
	}
	return c.rt.Set("console", console)
}

func (c *Context) consoleCall(call goja.FunctionCall) goja.Value {
	parts := make([]string, len(call.Arguments))
	for i, arg := range call.Arguments {
		parts[i] = c.formatArg(arg)
	}
	c.emit(strings.Join(parts, " "))
	return goja.Undefined()
}

// formatArg renders objects as indented JSON and everything else through
// JavaScript string conversion.
func (c *Context) formatArg(arg goja.Value) (out string) {
	obj, isObject := arg.(*goja.Object)
	if !isObject || c.stringify == nil {
		if goja.IsNull(arg) {
			return "null"
		}
		return arg.String()
	}
	if _, callable := goja.AssertFunction(obj); callable {
		return arg.String()
	}

	defer func() {
		if recover() != nil {
			out = unserializable
		}
	}()
	res, err := c.stringify(goja.Undefined(), arg, goja.Null(), c.rt.ToValue(2))
	if err != nil {
		return unserializable
	}
	return res.String()
}

// emit forwards one formatted line, attributed to the unit currently running.
func (c *Context) emit(msg string) {
	var origin *source.Range
	if c.current != nil {
		r := *c.current
		origin = &r
	}

	if c.onOutput != nil {
		c.onOutput(msg, origin)
		return
	}
	c.logger.Info("sandbox output", "message", msg)
}
