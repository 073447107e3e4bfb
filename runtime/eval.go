package runtime

import (
	"go.uber.org/zap"

	"github.com/embjs/embjs/engine"
)

// EvalFlags configure one evaluation. Re-exported from the engine so
// binding users rarely need to import it directly.
type EvalFlags = engine.EvalFlags

const (
	// EvalRetVal returns the completion value instead of undefined.
	EvalRetVal = engine.EvalRetVal
	// EvalREPL treats implicit global assignment as declaration.
	EvalREPL = engine.EvalREPL
	// EvalStripColumns drops column positions from diagnostics.
	EvalStripColumns = engine.EvalStripColumns
	// EvalJSON parses the source as JSON instead of executing it.
	EvalJSON = engine.EvalJSON
)

// Eval evaluates source under the given logical filename. It returns a
// normal value or the exception sentinel; on the sentinel the caller
// must retrieve and clear the pending exception with Exception before
// evaluating again.
func (c *Context) Eval(source, filename string, flags EvalFlags) engine.Value {
	return c.vm.Eval(source, filename, flags)
}

// HasException reports whether an exception is pending.
func (c *Context) HasException() bool { return c.vm.HasPending() }

// ScriptError is a script-level failure surfaced across the boundary:
// an uncaught throw, a syntax error or an interrupted evaluation. It is
// distinct from the host-level errors package because it originates
// inside evaluated code.
type ScriptError struct {
	Name    string
	Message string
	Stack   string

	// OOM marks the degenerate case where the arena was too exhausted
	// to build even the error object itself.
	OOM bool
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	if e.Name != "" {
		return e.Name + ": " + e.Message
	}
	return e.Message
}

// Exception retrieves and clears the pending exception, or returns nil
// if none is pending. At most one exception is pending at a time;
// calling Exception twice in a row yields nil the second time.
func (c *Context) Exception() *ScriptError {
	if !c.vm.HasPending() {
		return nil
	}
	v, oom := c.vm.TakeException()
	if oom {
		return &ScriptError{Message: "out of memory", OOM: true}
	}

	serr := &ScriptError{}
	if c.vm.IsErrorValue(v) || c.vm.IsObject(v) {
		// Property reads and string extraction copy without arena
		// allocation, so no pin is needed here.
		if nv, ok := c.vm.GetProp(v, "name"); ok && c.vm.IsString(nv) {
			serr.Name = c.vm.GoString(nv)
		}
		if mv, ok := c.vm.GetProp(v, "message"); ok {
			serr.Message = c.ToString(mv)
		}
		if sv, ok := c.vm.GetProp(v, "stack"); ok && c.vm.IsString(sv) {
			serr.Stack = c.vm.GoString(sv)
		}
	} else {
		serr.Message = c.ToString(v)
	}

	c.logger.Debug("exception taken",
		zap.String("name", serr.Name),
		zap.String("message", serr.Message))
	return serr
}
