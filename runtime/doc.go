// Package runtime is the host-side binding to the engine: contexts,
// value conversion, GC reference pinning and the evaluation boundary.
//
// # Context lifecycle
//
//	ctx, err := runtime.NewContext(1<<20, engine.StdBasic)
//	if err != nil { ... }
//	defer ctx.Close()
//
// One context owns one fixed arena for its whole life. Closing it
// invalidates every Value and Ref derived from it.
//
// # The pinning protocol
//
// The collector moves live objects during any allocation. A ref-tagged
// Value held across an allocating call (object construction, string
// conversion, another Eval) is stale afterwards unless pinned:
//
//	r := ctx.PushRef()
//	r.Set(v)
//	s, _ := ctx.FromString("hello") // may collect and move v
//	v = r.Get()                     // rewritten by the collector
//	ctx.PopRef()
//
// PushRef/PopRef follow strict LIFO nesting; popping out of order is a
// contract violation. WithPinned wraps the pair in a scope so the
// discipline cannot be violated by an early return. AddRef/DeleteRef
// allow arbitrary removal order at a higher per-collection cost.
//
// # Conversions
//
// FromInt, FromInt64, FromFloat, FromBool and FromString build engine
// values from host scalars; FromHost dispatches on a Go value's dynamic
// type and reports unsupported types as a pending TypeError rather than
// a Go error, so scripts observe the failure like any thrown exception.
// ToString copies string content out of the arena at the boundary; the
// engine-internal borrow is valid only until the next collection and
// has no safe Go expression.
//
// # Evaluation and exceptions
//
// Eval returns a normal value or the exception sentinel. On the
// sentinel, Exception retrieves and clears the pending exception as a
// *ScriptError before the next Eval. At most one exception is pending
// at a time.
package runtime
