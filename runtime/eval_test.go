package runtime

import (
	"strings"
	"testing"

	"github.com/embjs/embjs/engine"
)

func TestEvalReturnValue(t *testing.T) {
	ctx := newTestContext(t)

	v := ctx.Eval("2 + 3", "<test>", EvalRetVal)
	if v.IsException() {
		t.Fatalf("eval: %v", ctx.Exception())
	}
	if !v.IsInt() || v.Int() != 5 {
		t.Fatalf("completion = %v, want 5", v)
	}
}

func TestEvalDiscardsValueWithoutRetVal(t *testing.T) {
	ctx := newTestContext(t)

	v := ctx.Eval("2 + 3", "<test>", 0)
	if !v.IsUndefined() {
		t.Fatalf("completion without RetVal = %v, want undefined", v)
	}
}

func TestEvalPrograms(t *testing.T) {
	ctx := newTestContext(t)

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"string_concat", `"a" + "b" + "c"`, "abc"},
		{"var_and_arith", "var x = 10; var y = 4; x * y - 2", "38"},
		{"closure", "function make(n) { return function() { return n + 1; }; } make(41)()", "42"},
		{"loop", "var s = 0; for (var i = 1; i <= 10; i++) { s += i; } s", "55"},
		{"while", "var n = 1; while (n < 100) { n = n * 2; } n", "128"},
		{"array_literal", "[1, 2, 3].join('-')", "1-2-3"},
		{"object_literal", "var o = { a: 1, b: 2 }; o.a + o.b", "3"},
		{"ternary", "1 < 2 ? 'yes' : 'no'", "yes"},
		{"typeof", "typeof undefinedName", "undefined"},
		{"string_method", "'Hello'.toUpperCase()", "HELLO"},
		{"recursion", "function fib(n) { return n < 2 ? n : fib(n-1) + fib(n-2); } fib(15)", "610"},
		{"arguments", "function count() { return arguments.length; } count(1, 2, 3)", "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ctx.Eval(tt.source, "<test>", EvalRetVal)
			if v.IsException() {
				t.Fatalf("eval: %v", ctx.Exception())
			}
			if got := ctx.ToString(v); got != tt.want {
				t.Fatalf("= %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUncaughtThrow(t *testing.T) {
	ctx := newTestContext(t)

	v := ctx.Eval(`throw new Error("boom");`, "script.js", 0)
	if !v.IsException() {
		t.Fatal("expected the exception sentinel")
	}
	serr := ctx.Exception()
	if serr == nil {
		t.Fatal("expected a pending exception")
	}
	if serr.Name != "Error" || serr.Message != "boom" {
		t.Fatalf("exception = %q / %q", serr.Name, serr.Message)
	}
	if !strings.Contains(serr.Stack, "script.js") {
		t.Fatalf("stack missing filename: %q", serr.Stack)
	}
}

func TestExceptionClearsOnRetrieval(t *testing.T) {
	ctx := newTestContext(t)

	ctx.Eval("throw new Error('once')", "<test>", 0)
	if ctx.Exception() == nil {
		t.Fatal("first retrieval should yield the exception")
	}
	if ctx.Exception() != nil {
		t.Fatal("second retrieval should yield nil")
	}
	if ctx.HasException() {
		t.Fatal("pending flag should be clear")
	}

	// The context stays usable after retrieval.
	v := ctx.Eval("1 + 1", "<test>", EvalRetVal)
	if v.IsException() || v.Int() != 2 {
		t.Fatalf("eval after exception = %v", v)
	}
}

func TestSyntaxError(t *testing.T) {
	ctx := newTestContext(t)

	v := ctx.Eval("var = ;", "bad.js", 0)
	if !v.IsException() {
		t.Fatal("expected the exception sentinel")
	}
	serr := ctx.Exception()
	if serr == nil || serr.Name != "SyntaxError" {
		t.Fatalf("exception = %v, want SyntaxError", serr)
	}
	if !strings.Contains(serr.Message, "bad.js") {
		t.Fatalf("message missing filename: %q", serr.Message)
	}
}

func TestREPLFlagPermitsImplicitGlobals(t *testing.T) {
	ctx := newTestContext(t)

	// Without the flag an undeclared assignment is a reference error.
	v := ctx.Eval("undeclared = 1", "<test>", 0)
	if !v.IsException() {
		t.Fatal("expected a reference error without the REPL flag")
	}
	serr := ctx.Exception()
	if serr == nil || serr.Name != "ReferenceError" {
		t.Fatalf("exception = %v, want ReferenceError", serr)
	}

	// With it the assignment declares a global.
	v = ctx.Eval("implicit = 41; implicit + 1", "<repl>", EvalREPL|EvalRetVal)
	if v.IsException() {
		t.Fatalf("REPL eval: %v", ctx.Exception())
	}
	if v.Int() != 42 {
		t.Fatalf("= %v, want 42", v)
	}
}

func TestEvalJSON(t *testing.T) {
	ctx := newTestContext(t)

	r := ctx.PushRef()
	r.Set(ctx.Eval(`{"name": "widget", "sizes": [1, 2, 3], "live": true}`, "<json>", EvalJSON))
	if r.Get().IsException() {
		t.Fatalf("json parse: %v", ctx.Exception())
	}
	if got := ctx.ToString(ctx.GetProp(r.Get(), "name")); got != "widget" {
		t.Fatalf("name = %q", got)
	}
	sizes := ctx.GetProp(r.Get(), "sizes")
	if !ctx.IsArray(sizes) || ctx.ArrayLen(sizes) != 3 {
		t.Fatalf("sizes = %v", sizes)
	}
	if !ctx.GetProp(r.Get(), "live").Bool() {
		t.Fatal("live = false")
	}
	ctx.PopRef()

	// JSON mode parses, never executes.
	v := ctx.Eval(`"just a string"`, "<json>", EvalJSON)
	if !ctx.IsString(v) || ctx.ToString(v) != "just a string" {
		t.Fatalf("scalar json = %v", v)
	}

	v = ctx.Eval("{broken", "<json>", EvalJSON)
	if !v.IsException() {
		t.Fatal("malformed json should raise")
	}
	if serr := ctx.Exception(); serr == nil || serr.Name != "SyntaxError" {
		t.Fatalf("exception = %v, want SyntaxError", serr)
	}
}

func TestTryCatchContainsThrow(t *testing.T) {
	ctx := newTestContext(t)

	v := ctx.Eval(`
		var got = "";
		try {
			throw new TypeError("contained");
		} catch (e) {
			got = e.message;
		}
		got
	`, "<test>", EvalRetVal)
	if v.IsException() {
		t.Fatalf("eval: %v", ctx.Exception())
	}
	if got := ctx.ToString(v); got != "contained" {
		t.Fatalf("= %q", got)
	}
	if ctx.HasException() {
		t.Fatal("caught exception must not remain pending")
	}
}

func TestInterruptAbortsEvaluation(t *testing.T) {
	calls := 0
	ctx := newTestContext(t, WithInterruptHandler(func(userData any) int {
		calls++
		if calls >= 3 {
			return 1
		}
		return 0
	}))

	v := ctx.Eval("while (true) {}", "<test>", 0)
	if !v.IsException() {
		t.Fatal("expected the interrupted exception")
	}
	serr := ctx.Exception()
	if serr == nil || !strings.Contains(strings.ToLower(serr.Message), "interrupt") {
		t.Fatalf("exception = %v, want interrupted", serr)
	}
	if calls < 3 {
		t.Fatalf("handler calls = %d", calls)
	}
}

func TestValuesSurviveAcrossEvaluations(t *testing.T) {
	ctx := newTestContext(t)

	ctx.Eval("var counter = 0;", "<test>", 0)
	for i := 0; i < 5; i++ {
		ctx.Eval("counter++;", "<test>", 0)
	}
	v := ctx.Eval("counter", "<test>", EvalRetVal)
	if !v.IsInt() || v.Int() != 5 {
		t.Fatalf("counter = %v, want 5", v)
	}
}

func TestGlobalObjectAccess(t *testing.T) {
	ctx := newTestContext(t)

	ctx.Eval("var fromScript = 'visible';", "<test>", 0)
	g := ctx.Global()
	if got := ctx.ToString(ctx.GetProp(g, "fromScript")); got != "visible" {
		t.Fatalf("global prop = %q", got)
	}
	if !engine.Undefined().IsUndefined() {
		t.Fatal("sanity")
	}
}
