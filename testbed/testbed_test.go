// Package testbed holds end-to-end tests that drive whole programs
// through the public surface: context, bridge and evaluation together.
package testbed

import (
	"strings"
	"testing"

	"github.com/embjs/embjs/bridge"
	"github.com/embjs/embjs/engine"
	"github.com/embjs/embjs/runtime"
)

func newScriptHost(t *testing.T, args []string) *runtime.Context {
	t.Helper()
	ctx, err := runtime.NewContext(2<<20, engine.StdBasic, runtime.WithRandomSeed(7))
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	t.Cleanup(func() { ctx.Close() })
	if err := bridge.Install(ctx, args); err != nil {
		t.Fatalf("Install: %v", err)
	}
	return ctx
}

// run evaluates a whole program and returns its flushed stdout, stderr
// and completion display string.
func run(t *testing.T, ctx *runtime.Context, source, name string) (string, string, string) {
	t.Helper()
	v := ctx.Eval(source, name, runtime.EvalRetVal)
	result := ""
	if v.IsException() {
		serr := ctx.Exception()
		t.Fatalf("%s: %v\n%s", name, serr, serr.Stack)
	} else {
		result = ctx.ToString(v)
	}
	var stdout, stderr strings.Builder
	if err := bridge.Flush(ctx, &stdout, &stderr); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	return stdout.String(), stderr.String(), result
}

func TestWordCountProgram(t *testing.T) {
	ctx := newScriptHost(t, []string{"the quick brown fox the lazy dog the end"})

	stdout, stderr, _ := run(t, ctx, `
		var words = scriptArgs[0].split(" ");
		var counts = {};
		var order = [];
		for (var i = 0; i < words.length; i++) {
			var w = words[i];
			if (counts[w] === undefined) {
				counts[w] = 0;
				order.push(w);
			}
			counts[w] = counts[w] + 1;
		}
		for (var j = 0; j < order.length; j++) {
			if (counts[order[j]] > 1) {
				console.log(order[j] + " " + counts[order[j]]);
			}
		}
	`, "wordcount.js")

	if stdout != "the 3\n" {
		t.Fatalf("stdout = %q", stdout)
	}
	if stderr != "" {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestSieveUnderGCPressure(t *testing.T) {
	ctx := newScriptHost(t, nil)

	// Enough allocation churn to force many collections mid-program.
	_, _, result := run(t, ctx, `
		function primesUpTo(n) {
			var sieve = [];
			for (var i = 0; i <= n; i++) { sieve.push(true); }
			var found = [];
			for (var p = 2; p <= n; p++) {
				if (!sieve[p]) { continue; }
				found.push(p);
				for (var m = p * p; m <= n; m += p) { sieve[m] = false; }
			}
			return found;
		}
		var primes = primesUpTo(500);
		primes.length + ":" + primes[primes.length - 1]
	`, "sieve.js")

	if result != "95:499" {
		t.Fatalf("result = %q", result)
	}
	if ctx.Collections() == 0 {
		t.Log("program completed without a collection; arena was roomy")
	}
}

func TestJSONConfigPipeline(t *testing.T) {
	ctx := newScriptHost(t, nil)

	doc := `{"threshold": 10, "items": [{"name": "a", "v": 4}, {"name": "b", "v": 14}, {"name": "c", "v": 25}]}`
	cfg := ctx.Eval(doc, "<config>", runtime.EvalJSON)
	if cfg.IsException() {
		t.Fatalf("config parse: %v", ctx.Exception())
	}
	ctx.SetProp(ctx.Global(), "config", cfg)

	stdout, _, _ := run(t, ctx, `
		for (var i = 0; i < config.items.length; i++) {
			var item = config.items[i];
			if (item.v > config.threshold) {
				console.log(item.name, item.v);
			}
		}
	`, "filter.js")

	if stdout != "b 14\nc 25\n" {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestErrorReportingAcrossBoundary(t *testing.T) {
	ctx := newScriptHost(t, nil)

	v := ctx.Eval(`
		function validate(n) {
			if (n < 0) { throw new RangeError("negative input: " + n); }
			return n;
		}
		console.log("before failure");
		validate(-3);
		console.log("after failure");
	`, "validate.js", 0)

	if !v.IsException() {
		t.Fatal("expected exception")
	}
	serr := ctx.Exception()
	if serr.Name != "RangeError" || !strings.Contains(serr.Message, "negative input: -3") {
		t.Fatalf("exception = %q / %q", serr.Name, serr.Message)
	}
	if !strings.Contains(serr.Stack, "validate.js") {
		t.Fatalf("stack = %q", serr.Stack)
	}

	// Output buffered before the throw still flushes; nothing after it ran.
	var stdout, stderr strings.Builder
	if err := bridge.Flush(ctx, &stdout, &stderr); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if stdout.String() != "before failure\n" {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestManyEvaluationsOneContext(t *testing.T) {
	ctx := newScriptHost(t, nil)

	ctx.Eval("var total = 0;", "<setup>", 0)
	for i := 0; i < 200; i++ {
		v := ctx.Eval("total += 7; var tmp = ['some', 'garbage', 'per', 'round'].join('-'); total", "<round>", runtime.EvalRetVal)
		if v.IsException() {
			t.Fatalf("round %d: %v", i, ctx.Exception())
		}
	}
	v := ctx.Eval("total", "<check>", runtime.EvalRetVal)
	n, err := ctx.ToInt64(v)
	if err != nil || n != 1400 {
		t.Fatalf("total = %d (%v)", n, err)
	}
}
