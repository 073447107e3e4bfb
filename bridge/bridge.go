package bridge

import (
	"io"
	"strings"

	"github.com/embjs/embjs/errors"
	"github.com/embjs/embjs/runtime"
)

// initSnippet installs the console shims, the two output buffers and the
// script argument array. It runs once per context through the normal
// evaluation boundary; the buffers live in the engine's own object graph
// so they survive across later evaluations. The %ARGS% marker is
// replaced by a JSON array literal before evaluation.
const initSnippet = `
var __logs = [];
var __errs = [];
function __fmt(args) {
	var s = "";
	for (var i = 0; i < args.length; i++) {
		if (i > 0) { s += " "; }
		s += String(args[i]);
	}
	return s;
}
var console = {
	log: function () { __logs.push(__fmt(arguments)); },
	info: function () { __logs.push(__fmt(arguments)); },
	debug: function () { __errs.push(__fmt(arguments)); },
	warn: function () { __errs.push(__fmt(arguments)); },
	error: function () { __errs.push(__fmt(arguments)); }
};
var scriptArgs = %ARGS%;
`

// drainLogs and drainErrs atomically remove all buffered lines and
// return them newline-joined, or undefined when the buffer is empty.
const (
	drainLogs = `(function () {
	if (__logs.length === 0) { return undefined; }
	var s = __logs.join("\n");
	__logs.length = 0;
	return s;
})()`
	drainErrs = `(function () {
	if (__errs.length === 0) { return undefined; }
	var s = __errs.join("\n");
	__errs.length = 0;
	return s;
})()`
)

// Install evaluates the bridge initialization snippet on ctx, exposing
// console logging and the given process arguments as scriptArgs.
func Install(ctx *runtime.Context, args []string) error {
	source := strings.Replace(initSnippet, "%ARGS%", marshalArgs(args), 1)
	v := ctx.Eval(source, "<bridge>", 0)
	if v.IsException() {
		serr := ctx.Exception()
		return errors.Wrap(errors.PhaseBridge, errors.KindInvalidData, serr,
			"bridge initialization failed")
	}
	return nil
}

// marshalArgs serializes args as a JSON array literal, escaping only the
// quote and backslash characters. That is the full escape set JSON
// string content needs here, which keeps a general-purpose encoder out
// of the bridge.
func marshalArgs(args []string) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('"')
		for j := 0; j < len(a); j++ {
			switch a[j] {
			case '"', '\\':
				b.WriteByte('\\')
			}
			b.WriteByte(a[j])
		}
		b.WriteByte('"')
	}
	b.WriteByte(']')
	return b.String()
}

// Flush drains both output buffers: informational lines to stdout,
// diagnostic lines to stderr. Each non-empty channel emits one block of
// newline-joined lines followed by a single trailing newline; empty
// channels emit nothing. Flushing with nothing buffered is a no-op and
// never raises.
func Flush(ctx *runtime.Context, stdout, stderr io.Writer) error {
	if err := drain(ctx, drainLogs, stdout); err != nil {
		return err
	}
	return drain(ctx, drainErrs, stderr)
}

func drain(ctx *runtime.Context, snippet string, w io.Writer) error {
	v := ctx.Eval(snippet, "<flush>", runtime.EvalRetVal)
	if v.IsException() {
		serr := ctx.Exception()
		return errors.Wrap(errors.PhaseBridge, errors.KindInvalidData, serr,
			"output drain failed")
	}
	if v.IsUndefined() {
		return nil
	}
	if _, err := io.WriteString(w, ctx.ToString(v)+"\n"); err != nil {
		return errors.Wrap(errors.PhaseBridge, errors.KindInvalidData, err,
			"write drained output")
	}
	return nil
}
