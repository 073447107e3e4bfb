package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/embjs/embjs"
)

// VM is one engine instance bound 1:1 to a fixed, 8-byte-aligned memory
// block. All engine state (globals, heap, environments) is carved out of
// that block; it never grows. A VM is single-threaded: exactly one
// goroutine may use it at a time, and Values and Refs from one VM are
// meaningless on another.
type VM struct {
	words []uint64
	top   int

	stdlib Stdlib

	// Collector roots.
	global     Value
	pending    Value
	refStack   []*Ref
	refList    *Ref
	tmp        []Value
	completion int

	pendingSet bool
	pendingOOM bool

	protos  []*funcProto
	shapes  [][]string
	natives []nativeFn

	rng       uint64
	steps     int
	gcCount   int
	interrupt embjs.InterruptHandler
	userData  any
	logger    *zap.Logger
	closed    bool
}

// EvalFlags configure one evaluation.
type EvalFlags uint32

const (
	// EvalRetVal makes Eval return the completion value instead of
	// undefined.
	EvalRetVal EvalFlags = 1 << iota

	// EvalREPL treats assignment to an undeclared name as a global
	// declaration instead of a reference error.
	EvalREPL

	// EvalStripColumns drops column positions from diagnostics to save
	// memory.
	EvalStripColumns

	// EvalJSON parses the source as a JSON document and returns the
	// resulting value without executing anything.
	EvalJSON
)

// Option configures a VM at creation.
type Option func(*VM)

// WithLogger installs a structured logger for engine diagnostics (GC
// cycles, evaluation boundaries). The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(vm *VM) {
		if l != nil {
			vm.logger = l
		}
	}
}

// WithRandomSeed seeds Math.random deterministically.
func WithRandomSeed(seed uint64) Option {
	return func(vm *VM) {
		if seed != 0 {
			vm.rng = seed
		}
	}
}

// WithInterruptHandler installs the periodic interrupt handler. The engine
// invokes it at interpreter-defined intervals during evaluation; a nonzero
// return aborts the current evaluation, surfacing as a pending
// "interrupted" exception. Handlers must not evaluate further script on
// the same VM.
func WithInterruptHandler(h embjs.InterruptHandler) Option {
	return func(vm *VM) { vm.interrupt = h }
}

// WithUserData attaches an opaque pointer retrievable from engine
// callbacks.
func WithUserData(ud any) Option {
	return func(vm *VM) { vm.userData = ud }
}

// New creates a VM owning a fixed memory block of capacity bytes
// (rounded down to whole words) and installs the standard library
// described by std.
//
// PRECONDITION: capacity must be at least std.MinCapacity. This is the
// engine's documented sharp edge: it cannot be validated downstream and
// violating it is a fatal condition, so New panics rather than returning
// an error. Callers own this check.
func New(capacity int, std Stdlib, opts ...Option) *VM {
	if capacity < std.MinCapacity {
		panic(fmt.Sprintf(
			"engine: arena capacity %d below minimum %d required by stdlib %q; this is a fatal precondition, not a recoverable error",
			capacity, std.MinCapacity, std.Name))
	}
	vm := &VM{
		words:  make([]uint64, capacity/8),
		top:    1, // word 0 reserved
		stdlib: std,
		rng:    0x9e3779b97f4a7c15,
		logger: Logger(),
	}
	for _, o := range opts {
		o(vm)
	}
	if !std.install(vm) {
		panic(fmt.Sprintf("engine: stdlib %q install failed inside minimum capacity", std.Name))
	}
	return vm
}

// Close releases the memory block. Every Value and Ref derived from the
// VM is invalid afterwards. Close must be called at most once; any use of
// the VM after Close panics.
func (vm *VM) Close() {
	if vm.closed {
		panic("engine: VM closed twice")
	}
	vm.closed = true
	vm.words = nil
	vm.refStack = nil
	vm.refList = nil
	vm.tmp = nil
	vm.protos = nil
	vm.shapes = nil
	vm.natives = nil
}

// Closed reports whether Close has been called.
func (vm *VM) Closed() bool { return vm.closed }

// SetUserData replaces the opaque user pointer.
func (vm *VM) SetUserData(ud any) { vm.userData = ud }

// UserData returns the opaque user pointer.
func (vm *VM) UserData() any { return vm.userData }

// SetInterruptHandler replaces the periodic interrupt handler.
func (vm *VM) SetInterruptHandler(h embjs.InterruptHandler) { vm.interrupt = h }

// Global returns the global object. Like any ref value it goes stale
// across allocations; the VM keeps its own root.
func (vm *VM) Global() Value { return vm.global }

// Eval evaluates source with the given logical filename. It returns
// either a normal result value or the exception sentinel; on the
// sentinel, retrieve and clear the pending exception with TakeException
// before evaluating again. Evaluating with an unretrieved exception
// pending is undefined.
func (vm *VM) Eval(source, filename string, flags EvalFlags) Value {
	if vm.closed {
		panic("engine: Eval on closed VM")
	}
	vm.logger.Debug("eval",
		zap.String("filename", filename),
		zap.Int("source_len", len(source)),
		zap.Uint32("flags", uint32(flags)))

	if flags&EvalJSON != 0 {
		v, err := vm.parseJSON(source)
		if err != nil {
			vm.setPendingNamed("SyntaxError", err.Error())
			return Exception()
		}
		return v
	}

	body, err := vm.parse(source, filename, flags&EvalStripColumns != 0)
	if err != nil {
		vm.setPendingNamed("SyntaxError", err.Error())
		return Exception()
	}

	ip := &interp{
		vm:     vm,
		file:   filename,
		repl:   flags&EvalREPL != 0,
		frames: []frame{{name: "<program>", file: filename, line: 1}},
	}
	savedCompletion := vm.completion
	ci := vm.pushTmp(Undefined())
	vm.completion = ci

	v, c := ip.execStmts(body, globalEnv)

	res := Undefined()
	switch c {
	case ctrlThrow:
		vm.pending = v
		vm.pendingSet = true
		res = Exception()
	case ctrlReturn:
		if flags&EvalRetVal != 0 {
			res = v
		}
	default:
		if flags&EvalRetVal != 0 {
			res = vm.tmpAt(ci)
		}
	}
	vm.popTmpTo(ci)
	vm.completion = savedCompletion
	return res
}

// setPendingNamed records a pending exception built host-side (syntax
// errors, interrupted evaluations started outside the interpreter).
func (vm *VM) setPendingNamed(name, msg string) {
	v, ok := vm.newError(name, msg, "")
	if !ok {
		vm.pendingOOM = true
		vm.pending = Null()
		vm.pendingSet = true
		return
	}
	vm.pending = v
	vm.pendingSet = true
}

// Throw records a host-built pending exception with the given error name
// and message and returns the exception sentinel. It is how binding
// layers above the engine report failures that scripts should see as
// thrown errors rather than the host as Go errors.
func (vm *VM) Throw(name, msg string) Value {
	vm.setPendingNamed(name, msg)
	return Exception()
}

// HasPending reports whether an exception is pending.
func (vm *VM) HasPending() bool { return vm.pendingSet || vm.pendingOOM }

// TakeException returns the pending exception value and clears the
// pending state. At most one exception is pending at a time; the second
// of two consecutive calls returns Undefined. oom reports that the arena
// was too exhausted to even build the error object.
func (vm *VM) TakeException() (v Value, oom bool) {
	v = vm.pending
	oom = vm.pendingOOM
	vm.pending = Undefined()
	vm.pendingSet = false
	vm.pendingOOM = false
	return v, oom
}
