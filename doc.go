// Package embjs embeds a compact script engine inside a host process,
// backed by a single fixed-size memory arena and a moving, compacting
// collector.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	embjs/           Root package with shared contracts
//	├── runtime/     High-level API: contexts, values, GC references,
//	│                the evaluation boundary and exception retrieval
//	├── engine/      The engine itself: arena heap, compacting collector,
//	│                parser and interpreter
//	├── bridge/      Host bridge: console shims, script arguments and
//	│                buffered output draining
//	├── errors/      Structured error types for host-level failures
//	└── cmd/run      CLI runner with file, inline and interactive modes
//
// # Quick Start
//
// Create a context, evaluate, tear down:
//
//	ctx, err := runtime.NewContext(1<<20, engine.StdBasic)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ctx.Close()
//
//	v := ctx.Eval("2 + 3", "<inline>", runtime.EvalRetVal)
//	if v.IsException() {
//	    serr := ctx.Exception()
//	    log.Fatal(serr)
//	}
//	fmt.Println(ctx.ToString(v)) // "5"
//
// # Reference stability
//
// The single most safety-critical rule in the binding: any engine value
// held across an operation that may allocate (object or array
// construction, string conversion, function invocation, another Eval)
// must be pinned first via the context's GC reference registry, or
// re-derived fresh before use. An unpinned ref-tagged value is stale
// after the next allocation. See runtime.Context.WithPinned for the
// scoped form that makes the stack discipline hard to misuse.
//
// # Memory model
//
// One context owns one fixed memory block for its whole life; the engine
// never grows it. Creating a context with a capacity below the standard
// library's minimum is a fatal precondition violation (the engine cannot
// check it downstream) and panics loudly rather than corrupting memory.
//
// # Thread safety
//
// A context is confined to one goroutine at a time. There is no internal
// concurrency and no aliasing of arenas across contexts; the only
// suspension point during evaluation is the cooperative interrupt
// handler.
package embjs
