package engine

// GC reference registry.
//
// A Ref is a collector-visible cell: the collector rewrites its value in
// place whenever the referenced object moves. Two disciplines exist, as in
// the underlying engine design:
//
//   - stack discipline (PushRef/PopRef): strict LIFO, the cheap path;
//   - list discipline (AddRef/DeleteRef): release in any order, at extra
//     per-cycle scan cost.
//
// Popping stack refs out of order is a caller contract violation with
// undefined consequences. The runtime package layers a scoped-acquisition
// wrapper on top to make that structurally hard.

// Ref is a pinned slot tracked by the collector. The cell itself lives on
// the Go heap and never moves; only its value field is rewritten.
type Ref struct {
	v          Value
	prev, next *Ref
	stacked    bool
	registered bool
}

// Get returns the current (relocation-corrected) value.
func (r *Ref) Get() Value { return r.v }

// Set replaces the pinned value.
func (r *Ref) Set(v Value) { r.v = v }

// PushRef registers a stack-discipline pinned slot, initialized to
// Undefined. It must be released with PopRef after every later-pushed slot
// has been popped.
func (vm *VM) PushRef() *Ref {
	r := &Ref{stacked: true, registered: true}
	vm.refStack = append(vm.refStack, r)
	return r
}

// PopRef deregisters the most recently pushed stack slot and returns its
// final value.
func (vm *VM) PopRef() Value {
	n := len(vm.refStack)
	if n == 0 {
		panic("engine: PopRef on empty ref stack")
	}
	r := vm.refStack[n-1]
	vm.refStack = vm.refStack[:n-1]
	r.registered = false
	return r.v
}

// AddRef registers a list-discipline pinned slot, initialized to
// Undefined. Release it with DeleteRef, in any order.
func (vm *VM) AddRef() *Ref {
	r := &Ref{registered: true}
	r.next = vm.refList
	if vm.refList != nil {
		vm.refList.prev = r
	}
	vm.refList = r
	return r
}

// DeleteRef deregisters a list-discipline slot. Deleting a slot twice, or
// deleting a stack-discipline slot, panics.
func (vm *VM) DeleteRef(r *Ref) {
	if r.stacked {
		panic("engine: DeleteRef on stack-discipline ref")
	}
	if !r.registered {
		panic("engine: DeleteRef on unregistered ref")
	}
	r.registered = false
	if r.prev != nil {
		r.prev.next = r.next
	} else {
		vm.refList = r.next
	}
	if r.next != nil {
		r.next.prev = r.prev
	}
	r.prev, r.next = nil, nil
}

// RefDepth returns the current stack-discipline registration depth.
func (vm *VM) RefDepth() int { return len(vm.refStack) }
