package engine

import (
	"math"
	"strconv"
	"strings"
)

// Stdlib describes the builtin set installed into a new VM and the static
// arena footprint that set requires.
//
// Creating a VM with a capacity below MinCapacity is the engine's known
// sharp edge: the underlying design writes its fixed tables without an
// admission check, so an undersized arena is a fatal precondition
// violation, not a recoverable error. This implementation panics loudly
// instead of corrupting memory; it never returns a typed error for it.
type Stdlib struct {
	// Name identifies the descriptor in diagnostics.
	Name string

	// MinCapacity is the smallest arena size in bytes that can hold the
	// descriptor's static data.
	MinCapacity int

	install func(vm *VM) bool
}

// StdBasic is the default standard library: global object, String and
// Error constructors, Math, and the global numeric constants. Console and
// script argument shims are not part of the engine; the host bridge
// injects them as evaluated source.
var StdBasic = Stdlib{
	Name:        "basic",
	MinCapacity: 16 * 1024,
	install:     installBasic,
}

type nativeFn struct {
	name string
	ctor bool
	fn   func(ip *interp, argsIdx, argc int) (Value, ctrl)
}

// defineNative registers a native and binds it as a global property.
func (vm *VM) defineNative(name string, ctor bool, fn func(ip *interp, argsIdx, argc int) (Value, ctrl)) bool {
	id := -(len(vm.natives) + 1)
	vm.natives = append(vm.natives, nativeFn{name: name, ctor: ctor, fn: fn})
	f, ok := vm.newFunction(id, Null())
	if !ok {
		return false
	}
	return vm.SetProp(vm.global, name, f)
}

// defineNativeOn registers a native as a property of the pinned object at
// tmp index oi.
func (vm *VM) defineNativeOn(oi int, name string, fn func(ip *interp, argsIdx, argc int) (Value, ctrl)) bool {
	id := -(len(vm.natives) + 1)
	vm.natives = append(vm.natives, nativeFn{name: name, fn: fn})
	f, ok := vm.newFunction(id, Null())
	if !ok {
		return false
	}
	return vm.SetProp(vm.tmpAt(oi), name, f)
}

func installBasic(vm *VM) bool {
	g, ok := vm.NewObject()
	if !ok {
		return false
	}
	vm.global = g

	if !vm.SetProp(vm.global, "undefined", Undefined()) {
		return false
	}
	nan, ok := vm.NewFloat(math.NaN())
	if !ok || !vm.SetProp(vm.global, "NaN", nan) {
		return false
	}
	inf, ok := vm.NewFloat(math.Inf(1))
	if !ok || !vm.SetProp(vm.global, "Infinity", inf) {
		return false
	}
	if !vm.SetProp(vm.global, "globalThis", vm.global) {
		return false
	}

	if !vm.defineNative("String", false, nativeString) {
		return false
	}
	for _, name := range []string{"Error", "TypeError", "RangeError", "ReferenceError", "SyntaxError", "InternalError"} {
		if !vm.defineNative(name, true, makeErrorCtor(name)) {
			return false
		}
	}
	if !vm.defineNative("isNaN", false, nativeIsNaN) {
		return false
	}
	if !vm.defineNative("parseInt", false, nativeParseInt) {
		return false
	}
	if !vm.defineNative("parseFloat", false, nativeParseFloat) {
		return false
	}

	m, ok := vm.NewObject()
	if !ok {
		return false
	}
	mi := vm.pushTmp(m)
	defer vm.popTmpTo(mi)
	if !vm.defineNativeOn(mi, "random", nativeMathRandom) {
		return false
	}
	if !vm.defineNativeOn(mi, "floor", mathUnary(math.Floor)) {
		return false
	}
	if !vm.defineNativeOn(mi, "ceil", mathUnary(math.Ceil)) {
		return false
	}
	if !vm.defineNativeOn(mi, "abs", mathUnary(math.Abs)) {
		return false
	}
	if !vm.defineNativeOn(mi, "sqrt", mathUnary(math.Sqrt)) {
		return false
	}
	return vm.SetProp(vm.global, "Math", vm.tmpAt(mi))
}

func nativeString(ip *interp, argsIdx, argc int) (Value, ctrl) {
	vm := ip.vm
	s := ""
	if argc > 0 {
		s = vm.ToDisplayString(vm.tmpAt(argsIdx))
	}
	v, ok := vm.NewString(s)
	if !ok {
		return ip.oom()
	}
	return v, ctrlNormal
}

func makeErrorCtor(name string) func(ip *interp, argsIdx, argc int) (Value, ctrl) {
	return func(ip *interp, argsIdx, argc int) (Value, ctrl) {
		vm := ip.vm
		msg := ""
		if argc > 0 {
			msg = vm.ToDisplayString(vm.tmpAt(argsIdx))
		}
		v, ok := vm.newError(name, msg, ip.stackTrace())
		if !ok {
			return ip.oom()
		}
		return v, ctrlNormal
	}
}

func nativeIsNaN(ip *interp, argsIdx, argc int) (Value, ctrl) {
	if argc == 0 {
		return Bool(true), ctrlNormal
	}
	f, ok := ip.vm.toNumber(ip.vm.tmpAt(argsIdx))
	return Bool(!ok || math.IsNaN(f)), ctrlNormal
}

// nativeParseInt reads the longest leading integer, ignoring trailing
// garbage the way the script language does. Hex literals are honored.
func nativeParseInt(ip *interp, argsIdx, argc int) (Value, ctrl) {
	if argc == 0 {
		return ip.makeNumber(math.NaN())
	}
	s := strings.TrimSpace(ip.vm.ToDisplayString(ip.vm.tmpAt(argsIdx)))
	neg := false
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		i := 2
		for i < len(s) && isHexDigit(s[i]) {
			i++
		}
		u, err := strconv.ParseUint(s[2:i], 16, 64)
		if err != nil {
			return ip.makeNumber(math.NaN())
		}
		f := float64(u)
		if neg {
			f = -f
		}
		return ip.makeNumber(f)
	}
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == 0 {
		return ip.makeNumber(math.NaN())
	}
	f, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return ip.makeNumber(math.NaN())
	}
	if neg {
		f = -f
	}
	return ip.makeNumber(f)
}

// nativeParseFloat reads the longest leading decimal number.
func nativeParseFloat(ip *interp, argsIdx, argc int) (Value, ctrl) {
	if argc == 0 {
		return ip.makeNumber(math.NaN())
	}
	s := strings.TrimSpace(ip.vm.ToDisplayString(ip.vm.tmpAt(argsIdx)))
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := false
	for i < len(s) && isDigit(s[i]) {
		i++
		digits = true
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits = true
		}
	}
	if digits && i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			i = j
		}
	}
	if !digits {
		return ip.makeNumber(math.NaN())
	}
	f, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return ip.makeNumber(math.NaN())
	}
	return ip.makeNumber(f)
}

// nativeMathRandom uses the VM's deterministic xorshift state so seeded
// runs reproduce exactly.
func nativeMathRandom(ip *interp, argsIdx, argc int) (Value, ctrl) {
	vm := ip.vm
	vm.rng ^= vm.rng << 13
	vm.rng ^= vm.rng >> 7
	vm.rng ^= vm.rng << 17
	f := float64(vm.rng>>11) / float64(uint64(1)<<53)
	return ip.makeNumber(f)
}

func mathUnary(f func(float64) float64) func(ip *interp, argsIdx, argc int) (Value, ctrl) {
	return func(ip *interp, argsIdx, argc int) (Value, ctrl) {
		if argc == 0 {
			return ip.makeNumber(math.NaN())
		}
		x, ok := ip.vm.toNumber(ip.vm.tmpAt(argsIdx))
		if !ok {
			return ip.makeNumber(math.NaN())
		}
		return ip.makeNumber(f(x))
	}
}
