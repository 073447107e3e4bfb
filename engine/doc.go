// Package engine implements the embedded script engine: a compact
// JS-subset interpreter whose entire runtime state lives in one
// fixed-size, 8-byte-aligned memory arena managed by a moving, compacting
// collector.
//
// Host code normally uses the higher-level runtime package; this package
// is the machinery underneath it.
//
// # Value representation
//
// Every script value is a tagged 64-bit word:
//
//	Tag            Payload              Lifetime
//	─────────────────────────────────────────────────────────
//	undefined      none                 forever
//	null           none                 forever
//	bool           1 bit                forever
//	int            int32                forever
//	exception      none (sentinel)      forever
//	uninitialized  none                 forever
//	ref            arena word offset    until the next allocation
//
// Ref payloads point at heap objects (strings, boxed numbers, objects,
// arrays, functions, environments). Because any allocation may trigger a
// compaction that moves live objects, a ref-tagged Value held in a plain
// Go variable goes stale the moment the VM allocates again.
//
// # Reference pinning
//
// The collector knows about three kinds of root cells and rewrites them
// in place on every cycle: the VM's own roots (global object, pending
// exception, interpreter shadow stack), stack-discipline Refs
// (PushRef/PopRef, strict LIFO), and list-discipline Refs
// (AddRef/DeleteRef, any release order). Host code that needs a value to
// survive an allocating call stores it in a Ref and re-reads it
// afterwards.
//
// # Collection algorithm
//
// Mark-compact, sliding (Lisp-2 style): mark from roots, assign forwarded
// offsets in address order, rewrite every ref, then slide live objects
// toward the arena base. Allocation is a bump pointer; a failed bump runs
// one full cycle and retries once before reporting exhaustion.
//
// # Sharp edge
//
// Creating a VM with a capacity below the stdlib descriptor's
// MinCapacity is a fatal precondition violation, not a recoverable
// error: New panics. There is no downstream admission check.
package engine
