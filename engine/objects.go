package engine

import (
	"math"
	"strconv"
)

// Heap object constructors and accessors.
//
// Every constructor that can trigger more than one allocation pins its
// operands on the shadow stack and reloads them after each allocating
// call. Accessors never allocate.

// NewString allocates a string object holding a copy of s. Returns false
// on arena exhaustion.
func (vm *VM) NewString(s string) (Value, bool) {
	words := 1 + (len(s)+7)/8
	off, ok := vm.alloc(kindString, words)
	if !ok {
		return Undefined(), false
	}
	vm.setWord(off, 0, uint64(len(s)))
	for i := 0; i < len(s); i++ {
		w := 1 + i/8
		vm.words[int(off)+1+w] |= uint64(s[i]) << (8 * uint(i%8))
	}
	return makeRef(off), true
}

func (vm *VM) stringLen(v Value) int {
	return int(vm.getWord(v.ref(), 0))
}

// GoString copies a string object's bytes out into a Go string. This is
// the host-side surface of the "copy the borrow immediately" rule: the
// arena bytes may move on the next allocation, the returned string never
// does.
func (vm *VM) GoString(v Value) string {
	off := v.ref()
	n := int(vm.getWord(off, 0))
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		w := vm.getWord(off, 1+i/8)
		b[i] = byte(w >> (8 * uint(i%8)))
	}
	return string(b)
}

func (vm *VM) stringEquals(v Value, s string) bool {
	if vm.kindOf(v) != kindString {
		return false
	}
	off := v.ref()
	if int(vm.getWord(off, 0)) != len(s) {
		return false
	}
	for i := 0; i < len(s); i++ {
		w := vm.getWord(off, 1+i/8)
		if byte(w>>(8*uint(i%8))) != s[i] {
			return false
		}
	}
	return true
}

// NewFloat allocates a boxed float64.
func (vm *VM) NewFloat(f float64) (Value, bool) {
	off, ok := vm.alloc(kindFloat, 1)
	if !ok {
		return Undefined(), false
	}
	vm.setWord(off, 0, math.Float64bits(f))
	return makeRef(off), true
}

// Float reads a boxed float64.
func (vm *VM) Float(v Value) float64 {
	return math.Float64frombits(vm.getWord(v.ref(), 0))
}

// NewInt64 allocates a boxed 64-bit integer, the wider representation for
// integers that do not fit the inline 32-bit encoding.
func (vm *VM) NewInt64(i int64) (Value, bool) {
	off, ok := vm.alloc(kindInt64, 1)
	if !ok {
		return Undefined(), false
	}
	vm.setWord(off, 0, uint64(i))
	return makeRef(off), true
}

// Int64 reads a boxed 64-bit integer.
func (vm *VM) Int64(v Value) int64 {
	return int64(vm.getWord(v.ref(), 0))
}

// newCells allocates raw value storage of n slots, all Undefined.
func (vm *VM) newCells(n int) (Value, bool) {
	off, ok := vm.alloc(kindCells, n)
	if !ok {
		return Undefined(), false
	}
	return makeRef(off), true
}

func (vm *VM) cellsCap(v Value) int {
	return headerSize(vm.words[v.ref()])
}

// Containers (objects and error objects) share one layout:
// payload[0] = cells ref or Null, payload[1] = inline property count.
// Cells hold key/value pairs in insertion order; keys are string refs.

func (vm *VM) newContainer(kind objKind) (Value, bool) {
	off, ok := vm.alloc(kind, 2)
	if !ok {
		return Undefined(), false
	}
	vm.setWord(off, 0, uint64(Null()))
	vm.setWord(off, 1, uint64(Int(0)))
	return makeRef(off), true
}

// NewObject allocates an empty object.
func (vm *VM) NewObject() (Value, bool) {
	return vm.newContainer(kindObject)
}

func (vm *VM) isContainer(v Value) bool {
	k := vm.kindOf(v)
	return k == kindObject || k == kindError
}

// findProp returns the cells index of the value slot for key.
func (vm *VM) findProp(obj Value, key string) (int, bool) {
	cells := vm.getVal(obj, 0)
	if !cells.IsRef() {
		return 0, false
	}
	n := int(vm.getVal(obj, 1).Int())
	for i := 0; i < n; i++ {
		if vm.stringEquals(vm.getVal(cells, 2*i), key) {
			return 2*i + 1, true
		}
	}
	return 0, false
}

// GetProp reads an own property. Never allocates.
func (vm *VM) GetProp(obj Value, key string) (Value, bool) {
	if !vm.isContainer(obj) {
		return Undefined(), false
	}
	idx, ok := vm.findProp(obj, key)
	if !ok {
		return Undefined(), false
	}
	return vm.getVal(vm.getVal(obj, 0), idx), true
}

// SetProp writes an own property, creating it if missing. May allocate and
// therefore may move obj and val; callers must not reuse stale copies.
func (vm *VM) SetProp(obj Value, key string, val Value) bool {
	if idx, ok := vm.findProp(obj, key); ok {
		vm.setVal(vm.getVal(obj, 0), idx, val)
		return true
	}

	oi := vm.pushTmp(obj)
	vi := vm.pushTmp(val)
	defer vm.popTmpTo(oi)

	ks, ok := vm.NewString(key)
	if !ok {
		return false
	}
	ki := vm.pushTmp(ks)

	obj = vm.tmpAt(oi)
	cells := vm.getVal(obj, 0)
	n := int(vm.getVal(obj, 1).Int())
	cap := 0
	if cells.IsRef() {
		cap = vm.cellsCap(cells)
	}
	if 2*(n+1) > cap {
		newCap := cap * 2
		if newCap < 8 {
			newCap = 8
		}
		nc, ok := vm.newCells(newCap)
		if !ok {
			return false
		}
		obj = vm.tmpAt(oi)
		cells = vm.getVal(obj, 0)
		if cells.IsRef() {
			for i := 0; i < 2*n; i++ {
				vm.setVal(nc, i, vm.getVal(cells, i))
			}
		}
		vm.setVal(obj, 0, nc)
		cells = nc
	}
	vm.setVal(cells, 2*n, vm.tmpAt(ki))
	vm.setVal(cells, 2*n+1, vm.tmpAt(vi))
	vm.setVal(obj, 1, Int(int32(n+1)))
	return true
}

// propCount returns the number of own properties.
func (vm *VM) propCount(obj Value) int {
	return int(vm.getVal(obj, 1).Int())
}

// propAt returns the i-th key/value pair in insertion order.
func (vm *VM) propAt(obj Value, i int) (key, val Value) {
	cells := vm.getVal(obj, 0)
	return vm.getVal(cells, 2*i), vm.getVal(cells, 2*i+1)
}

// Arrays: payload[0] = cells ref or Null, payload[1] = inline length.

// NewArray allocates an empty array.
func (vm *VM) NewArray() (Value, bool) {
	off, ok := vm.alloc(kindArray, 2)
	if !ok {
		return Undefined(), false
	}
	vm.setWord(off, 0, uint64(Null()))
	vm.setWord(off, 1, uint64(Int(0)))
	return makeRef(off), true
}

// ArrayLen returns the array length.
func (vm *VM) ArrayLen(v Value) int {
	return int(vm.getVal(v, 1).Int())
}

// ArrayGet returns the element at i, or Undefined out of range.
func (vm *VM) ArrayGet(v Value, i int) Value {
	if i < 0 || i >= vm.ArrayLen(v) {
		return Undefined()
	}
	return vm.getVal(vm.getVal(v, 0), i)
}

// ArraySet stores val at index i, growing the array as needed. May
// allocate.
func (vm *VM) ArraySet(arr Value, i int, val Value) bool {
	if i < 0 {
		return false
	}
	ai := vm.pushTmp(arr)
	vi := vm.pushTmp(val)
	defer vm.popTmpTo(ai)

	cells := vm.getVal(arr, 0)
	cap := 0
	if cells.IsRef() {
		cap = vm.cellsCap(cells)
	}
	if i+1 > cap {
		newCap := cap * 2
		if newCap < 8 {
			newCap = 8
		}
		for newCap < i+1 {
			newCap *= 2
		}
		nc, ok := vm.newCells(newCap)
		if !ok {
			return false
		}
		arr = vm.tmpAt(ai)
		cells = vm.getVal(arr, 0)
		if cells.IsRef() {
			n := vm.ArrayLen(arr)
			for j := 0; j < n; j++ {
				vm.setVal(nc, j, vm.getVal(cells, j))
			}
		}
		vm.setVal(arr, 0, nc)
		cells = nc
	}
	vm.setVal(cells, i, vm.tmpAt(vi))
	if i+1 > vm.ArrayLen(arr) {
		vm.setVal(arr, 1, Int(int32(i+1)))
	}
	return true
}

// ArrayPush appends val. May allocate.
func (vm *VM) ArrayPush(arr Value, val Value) bool {
	return vm.ArraySet(arr, vm.ArrayLen(arr), val)
}

// arrayClear resets length to zero without releasing storage.
func (vm *VM) arrayClear(arr Value) {
	vm.setVal(arr, 1, Int(0))
}

// Functions: payload[0] = inline id, payload[1] = closure env ref or Null.
// id >= 0 indexes vm.protos; id < 0 encodes a native as -(index+1).

func (vm *VM) newFunction(id int, env Value) (Value, bool) {
	ei := vm.pushTmp(env)
	defer vm.popTmpTo(ei)
	off, ok := vm.alloc(kindFunction, 2)
	if !ok {
		return Undefined(), false
	}
	vm.setWord(off, 0, uint64(Int(int32(id))))
	vm.setWord(off, 1, uint64(vm.tmpAt(ei)))
	return makeRef(off), true
}

func (vm *VM) funcID(v Value) int    { return int(vm.getVal(v, 0).Int()) }
func (vm *VM) funcEnv(v Value) Value { return vm.getVal(v, 1) }

// Environments: payload[0] = parent env ref or Null, payload[1] = cells
// ref, payload[2] = inline shape id. Slot names live in vm.shapes keyed by
// the shape id; the arena only holds the values.

func (vm *VM) newEnv(parent Value, shapeID int) (Value, bool) {
	pi := vm.pushTmp(parent)
	defer vm.popTmpTo(pi)

	cells, ok := vm.newCells(len(vm.shapes[shapeID]))
	if !ok {
		return Undefined(), false
	}
	ci := vm.pushTmp(cells)
	off, ok := vm.alloc(kindEnv, 3)
	if !ok {
		return Undefined(), false
	}
	vm.setWord(off, 0, uint64(vm.tmpAt(pi)))
	vm.setWord(off, 1, uint64(vm.tmpAt(ci)))
	vm.setWord(off, 2, uint64(Int(int32(shapeID))))
	return makeRef(off), true
}

// envResolve walks the env chain looking for name; returns the owning env
// and slot index. Never allocates.
func (vm *VM) envResolve(env Value, name string) (Value, int, bool) {
	for env.IsRef() {
		shape := vm.shapes[int(vm.getVal(env, 2).Int())]
		for i, n := range shape {
			if n == name {
				return env, i, true
			}
		}
		env = vm.getVal(env, 0)
	}
	return Undefined(), 0, false
}

func (vm *VM) envGet(env Value, slot int) Value {
	return vm.getVal(vm.getVal(env, 1), slot)
}

func (vm *VM) envSet(env Value, slot int, val Value) {
	vm.setVal(vm.getVal(env, 1), slot, val)
}

// Semantic predicates. These consult object headers and therefore need the
// VM, unlike the tag-only predicates on Value.

// IsString reports whether v is a string object.
func (vm *VM) IsString(v Value) bool { return vm.kindOf(v) == kindString }

// IsFunction reports whether v is callable.
func (vm *VM) IsFunction(v Value) bool { return vm.kindOf(v) == kindFunction }

// IsErrorValue reports whether v is an error object.
func (vm *VM) IsErrorValue(v Value) bool { return vm.kindOf(v) == kindError }

// IsArray reports whether v is an array.
func (vm *VM) IsArray(v Value) bool { return vm.kindOf(v) == kindArray }

// IsObject reports whether v is a plain object or an error object.
func (vm *VM) IsObject(v Value) bool { return vm.isContainer(v) }

// IsFloat reports whether v is a boxed float64.
func (vm *VM) IsFloat(v Value) bool { return vm.kindOf(v) == kindFloat }

// IsInt64 reports whether v is a boxed 64-bit integer.
func (vm *VM) IsInt64(v Value) bool { return vm.kindOf(v) == kindInt64 }

// ToDisplayString renders v the way the script language's String()
// conversion does. Copies out of the arena; never allocates arena memory.
func (vm *VM) ToDisplayString(v Value) string {
	switch {
	case v.IsUndefined():
		return "undefined"
	case v.IsNull():
		return "null"
	case v.IsBool():
		if v.Bool() {
			return "true"
		}
		return "false"
	case v.IsInt():
		return strconv.FormatInt(int64(v.Int()), 10)
	case v.IsException():
		return "<exception>"
	}
	switch vm.kindOf(v) {
	case kindString:
		return vm.GoString(v)
	case kindFloat:
		return formatNumber(vm.Float(v))
	case kindInt64:
		return strconv.FormatInt(vm.Int64(v), 10)
	case kindArray:
		s := ""
		for i := 0; i < vm.ArrayLen(v); i++ {
			if i > 0 {
				s += ","
			}
			el := vm.ArrayGet(v, i)
			if !el.IsUndefined() && !el.IsNull() {
				s += vm.ToDisplayString(el)
			}
		}
		return s
	case kindFunction:
		return "function () { [code] }"
	case kindError:
		name := "Error"
		if n, ok := vm.GetProp(v, "name"); ok && vm.kindOf(n) == kindString {
			name = vm.GoString(n)
		}
		msg := ""
		if m, ok := vm.GetProp(v, "message"); ok {
			msg = vm.ToDisplayString(m)
		}
		if msg == "" {
			return name
		}
		return name + ": " + msg
	case kindObject:
		return "[object Object]"
	}
	return "undefined"
}

// formatNumber follows the script language's number-to-string behavior for
// the common cases: shortest round-trip decimal, NaN and Infinity spelled
// out.
func formatNumber(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if math.IsInf(f, 1) {
		return "Infinity"
	}
	if math.IsInf(f, -1) {
		return "-Infinity"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
