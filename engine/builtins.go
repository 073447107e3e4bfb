package engine

import (
	"math"
	"strconv"
	"strings"
)

// Value conversions and the natively dispatched array/string methods.

// truthy implements the script language's boolean coercion.
func (vm *VM) truthy(v Value) bool {
	switch {
	case v.IsUndefined(), v.IsNull():
		return false
	case v.IsBool():
		return v.Bool()
	case v.IsInt():
		return v.Int() != 0
	}
	switch vm.kindOf(v) {
	case kindString:
		return vm.stringLen(v) > 0
	case kindFloat:
		f := vm.Float(v)
		return f != 0 && !math.IsNaN(f)
	case kindInt64:
		return vm.Int64(v) != 0
	}
	return v.IsRef()
}

// toNumber coerces v to a float64. ok is false for values with no numeric
// interpretation at all (objects, arrays, functions); callers treat that
// as NaN.
func (vm *VM) toNumber(v Value) (float64, bool) {
	switch {
	case v.IsInt():
		return float64(v.Int()), true
	case v.IsBool():
		if v.Bool() {
			return 1, true
		}
		return 0, true
	case v.IsNull():
		return 0, true
	case v.IsUndefined():
		return math.NaN(), true
	}
	switch vm.kindOf(v) {
	case kindFloat:
		return vm.Float(v), true
	case kindInt64:
		return float64(vm.Int64(v)), true
	case kindString:
		s := strings.TrimSpace(vm.GoString(v))
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN(), true
		}
		return f, true
	}
	return math.NaN(), false
}

// isNumber reports whether v carries one of the numeric representations.
func (vm *VM) isNumber(v Value) bool {
	return v.IsInt() || vm.IsFloat(v) || vm.IsInt64(v)
}

// typeOf implements the typeof operator.
func (vm *VM) typeOf(v Value) string {
	switch {
	case v.IsUndefined():
		return "undefined"
	case v.IsNull():
		return "object"
	case v.IsBool():
		return "boolean"
	case v.IsInt():
		return "number"
	}
	switch vm.kindOf(v) {
	case kindFloat, kindInt64:
		return "number"
	case kindString:
		return "string"
	case kindFunction:
		return "function"
	}
	return "object"
}

// valuesEqual implements == (loose) and === (strict). The loose form only
// adds null/undefined equivalence and cross-representation numeric
// comparison; there is no string-to-number coercion.
func (vm *VM) valuesEqual(l, r Value, strict bool) bool {
	if !strict {
		if (l.IsNull() && r.IsUndefined()) || (l.IsUndefined() && r.IsNull()) {
			return true
		}
	}
	if vm.isNumber(l) && vm.isNumber(r) {
		a, _ := vm.toNumber(l)
		b, _ := vm.toNumber(r)
		return a == b
	}
	if vm.IsString(l) && vm.IsString(r) {
		return vm.GoString(l) == vm.GoString(r)
	}
	if l.IsRef() && r.IsRef() {
		return l.ref() == r.ref()
	}
	return l == r
}

// arrayMethod dispatches a method call on the pinned array at oi.
func (ip *interp) arrayMethod(oi int, name string, argsIdx, argc int, line int) (Value, ctrl) {
	vm := ip.vm
	switch name {
	case "push":
		for i := 0; i < argc; i++ {
			if !vm.ArrayPush(vm.tmpAt(oi), vm.tmpAt(argsIdx+i)) {
				return ip.oom()
			}
		}
		return Int(int32(vm.ArrayLen(vm.tmpAt(oi)))), ctrlNormal

	case "pop":
		arr := vm.tmpAt(oi)
		n := vm.ArrayLen(arr)
		if n == 0 {
			return Undefined(), ctrlNormal
		}
		v := vm.ArrayGet(arr, n-1)
		vm.setVal(arr, 1, Int(int32(n-1)))
		return v, ctrlNormal

	case "join":
		sep := ","
		if argc > 0 {
			sep = vm.ToDisplayString(vm.tmpAt(argsIdx))
		}
		arr := vm.tmpAt(oi)
		var b strings.Builder
		for i := 0; i < vm.ArrayLen(arr); i++ {
			if i > 0 {
				b.WriteString(sep)
			}
			el := vm.ArrayGet(arr, i)
			if !el.IsUndefined() && !el.IsNull() {
				b.WriteString(vm.ToDisplayString(el))
			}
			arr = vm.tmpAt(oi)
		}
		s, ok := vm.NewString(b.String())
		if !ok {
			return ip.oom()
		}
		return s, ctrlNormal

	case "indexOf":
		if argc == 0 {
			return Int(-1), ctrlNormal
		}
		arr := vm.tmpAt(oi)
		needle := vm.tmpAt(argsIdx)
		for i := 0; i < vm.ArrayLen(arr); i++ {
			if vm.valuesEqual(vm.ArrayGet(arr, i), needle, true) {
				return Int(int32(i)), ctrlNormal
			}
		}
		return Int(-1), ctrlNormal

	case "slice":
		arr := vm.tmpAt(oi)
		n := vm.ArrayLen(arr)
		start, end := 0, n
		if argc > 0 {
			start = clampIndex(ip.argInt(argsIdx), n)
		}
		if argc > 1 {
			end = clampIndex(ip.argInt(argsIdx+1), n)
		}
		out, ok := vm.NewArray()
		if !ok {
			return ip.oom()
		}
		ri := vm.pushTmp(out)
		for i := start; i < end; i++ {
			if !vm.ArrayPush(vm.tmpAt(ri), vm.ArrayGet(vm.tmpAt(oi), i)) {
				vm.popTmpTo(ri)
				return ip.oom()
			}
		}
		v := vm.tmpAt(ri)
		vm.popTmpTo(ri)
		return v, ctrlNormal
	}
	return ip.throwNamed("TypeError", "array has no method '"+name+"'", line)
}

func (ip *interp) argInt(i int) int {
	f, ok := ip.vm.toNumber(ip.vm.tmpAt(i))
	if !ok || math.IsNaN(f) {
		return 0
	}
	return int(f)
}

func clampIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

// stringMethod dispatches a method call on the pinned string at oi.
func (ip *interp) stringMethod(oi int, name string, argsIdx, argc int, line int) (Value, ctrl) {
	vm := ip.vm
	s := vm.GoString(vm.tmpAt(oi))
	switch name {
	case "charAt":
		i := 0
		if argc > 0 {
			i = ip.argInt(argsIdx)
		}
		r := []rune(s)
		out := ""
		if i >= 0 && i < len(r) {
			out = string(r[i])
		}
		v, ok := vm.NewString(out)
		if !ok {
			return ip.oom()
		}
		return v, ctrlNormal

	case "indexOf":
		if argc == 0 {
			return Int(-1), ctrlNormal
		}
		needle := vm.ToDisplayString(vm.tmpAt(argsIdx))
		return Int(int32(strings.Index(s, needle))), ctrlNormal

	case "slice":
		r := []rune(s)
		n := len(r)
		start, end := 0, n
		if argc > 0 {
			start = clampIndex(ip.argInt(argsIdx), n)
		}
		if argc > 1 {
			end = clampIndex(ip.argInt(argsIdx+1), n)
		}
		if start > end {
			start = end
		}
		v, ok := vm.NewString(string(r[start:end]))
		if !ok {
			return ip.oom()
		}
		return v, ctrlNormal

	case "toUpperCase":
		v, ok := vm.NewString(strings.ToUpper(s))
		if !ok {
			return ip.oom()
		}
		return v, ctrlNormal

	case "toLowerCase":
		v, ok := vm.NewString(strings.ToLower(s))
		if !ok {
			return ip.oom()
		}
		return v, ctrlNormal

	case "split":
		sep := ""
		if argc > 0 {
			sep = vm.ToDisplayString(vm.tmpAt(argsIdx))
		}
		var parts []string
		if sep == "" {
			for _, r := range s {
				parts = append(parts, string(r))
			}
		} else {
			parts = strings.Split(s, sep)
		}
		out, ok := vm.NewArray()
		if !ok {
			return ip.oom()
		}
		ri := vm.pushTmp(out)
		for i, p := range parts {
			pv, ok := vm.NewString(p)
			if !ok {
				vm.popTmpTo(ri)
				return ip.oom()
			}
			if !vm.ArraySet(vm.tmpAt(ri), i, pv) {
				vm.popTmpTo(ri)
				return ip.oom()
			}
		}
		v := vm.tmpAt(ri)
		vm.popTmpTo(ri)
		return v, ctrlNormal
	}
	return ip.throwNamed("TypeError", "string has no method '"+name+"'", line)
}
