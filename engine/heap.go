package engine

import "go.uber.org/zap"

// Arena heap and the moving, compacting collector.
//
// All engine state lives in one fixed-length []uint64 block. Allocation is
// a bump pointer; when the block is exhausted a full mark-compact cycle
// runs: live objects slide toward the arena base and every root cell is
// rewritten in place. Any allocation may therefore move any object, which
// is why plain ref-tagged Values go stale across allocating calls.
//
// Word 0 is reserved so that offset 0 never names an object.

// rootCells enumerates every cell the collector must scan and rewrite:
// the global object, the pending exception, pinned Ref cells (stack and
// list discipline), and the interpreter's shadow stack.
func (vm *VM) eachRoot(fn func(p *Value)) {
	fn(&vm.global)
	fn(&vm.pending)
	for _, r := range vm.refStack {
		fn(&r.v)
	}
	for r := vm.refList; r != nil; r = r.next {
		fn(&r.v)
	}
	for i := range vm.tmp {
		fn(&vm.tmp[i])
	}
}

// alloc reserves a header plus payloadWords words, collecting first if the
// bump pointer would overrun. Payload words are zeroed, which reads as
// Undefined for traced kinds. Returns false when even a full collection
// cannot make room.
func (vm *VM) alloc(kind objKind, payloadWords int) (uint32, bool) {
	need := 1 + payloadWords
	if vm.top+need > len(vm.words) {
		vm.collect()
		if vm.top+need > len(vm.words) {
			return 0, false
		}
	}
	off := uint32(vm.top)
	vm.top += need
	vm.words[off] = makeHeader(kind, payloadWords)
	for i := 1; i <= payloadWords; i++ {
		vm.words[int(off)+i] = 0
	}
	return off, true
}

// GC forces a full mark-compact cycle. Exposed for tests and diagnostics;
// normal operation collects lazily on allocation pressure.
func (vm *VM) GC() {
	vm.collect()
}

// Collections returns the number of completed collection cycles.
func (vm *VM) Collections() int { return vm.gcCount }

// UsedWords returns the current bump-pointer position in words.
func (vm *VM) UsedWords() int { return vm.top }

func (vm *VM) collect() {
	liveBefore := vm.top

	// Mark phase: trace from roots with an explicit worklist.
	var work []uint32
	mark := func(v Value) {
		if !v.IsRef() {
			return
		}
		off := v.ref()
		h := vm.words[off]
		if h&headerMarkBit == 0 {
			vm.words[off] = h | headerMarkBit
			work = append(work, off)
		}
	}
	vm.eachRoot(func(p *Value) { mark(*p) })
	for len(work) > 0 {
		off := work[len(work)-1]
		work = work[:len(work)-1]
		h := vm.words[off]
		kind := headerKind(h)
		if !kind.traced() {
			continue
		}
		size := headerSize(h)
		for i := 1; i <= size; i++ {
			mark(Value(vm.words[int(off)+i]))
		}
	}

	// Forwarding phase: assign compacted offsets to marked objects in
	// address order.
	fwd := make(map[uint32]uint32)
	newTop := 1
	for off := 1; off < vm.top; {
		h := vm.words[off]
		size := 1 + headerSize(h)
		if h&headerMarkBit != 0 {
			fwd[uint32(off)] = uint32(newTop)
			newTop += size
		}
		off += size
	}

	// Update phase: rewrite every ref in roots and in marked payloads to
	// its forwarded offset, before anything moves.
	fix := func(v Value) Value {
		if v.IsRef() {
			return makeRef(fwd[v.ref()])
		}
		return v
	}
	vm.eachRoot(func(p *Value) { *p = fix(*p) })
	for off := 1; off < vm.top; {
		h := vm.words[off]
		size := 1 + headerSize(h)
		if h&headerMarkBit != 0 && headerKind(h).traced() {
			for i := 1; i < size; i++ {
				vm.words[off+i] = uint64(fix(Value(vm.words[off+i])))
			}
		}
		off += size
	}

	// Move phase: slide marked objects down and clear marks. copy is
	// memmove-safe and destinations never pass sources.
	for off := 1; off < vm.top; {
		h := vm.words[off]
		size := 1 + headerSize(h)
		if h&headerMarkBit != 0 {
			no := int(fwd[uint32(off)])
			copy(vm.words[no:no+size], vm.words[off:off+size])
			vm.words[no] &^= headerMarkBit
		}
		off += size
	}

	vm.top = newTop
	vm.gcCount++
	vm.logger.Debug("gc compact",
		zap.Int("used_before", liveBefore),
		zap.Int("used_after", vm.top),
		zap.Int("cycle", vm.gcCount))
}

// header returns the header word of the object at off.
func (vm *VM) header(off uint32) uint64 { return vm.words[off] }

// kindOf returns the heap kind of a ref value, or 0 for inline values.
func (vm *VM) kindOf(v Value) objKind {
	if !v.IsRef() {
		return 0
	}
	return headerKind(vm.words[v.ref()])
}

// payload accessors. i is zero-based within the payload.

func (vm *VM) getWord(off uint32, i int) uint64    { return vm.words[int(off)+1+i] }
func (vm *VM) setWord(off uint32, i int, w uint64) { vm.words[int(off)+1+i] = w }

func (vm *VM) getVal(v Value, i int) Value    { return Value(vm.getWord(v.ref(), i)) }
func (vm *VM) setVal(v Value, i int, x Value) { vm.setWord(v.ref(), i, uint64(x)) }

// Shadow stack helpers. The interpreter and the object constructors keep
// every Value they hold across a possible allocation on vm.tmp, reloading
// after each allocating call. Indices stay valid across collections even
// though the Values they hold get rewritten.

func (vm *VM) pushTmp(v Value) int {
	vm.tmp = append(vm.tmp, v)
	return len(vm.tmp) - 1
}

func (vm *VM) popTmpTo(n int) {
	vm.tmp = vm.tmp[:n]
}

func (vm *VM) tmpAt(i int) Value { return vm.tmp[i] }

func (vm *VM) setTmp(i int, v Value) { vm.tmp[i] = v }
