package engine

import (
	"strings"
	"testing"
)

func TestGlobalConstants(t *testing.T) {
	vm := newTestVM(t)

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"undefined", "typeof undefined", "undefined"},
		{"nan", "'' + NaN", "NaN"},
		{"infinity", "'' + Infinity", "Infinity"},
		{"global_this", "globalThis.parseInt === parseInt", "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evalString(t, vm, tt.source); got != tt.want {
				t.Fatalf("= %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStringConversionFunction(t *testing.T) {
	vm := newTestVM(t)

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"number", "String(42)", "42"},
		{"float", "String(2.5)", "2.5"},
		{"bool", "String(true)", "true"},
		{"null", "String(null)", "null"},
		{"undefined", "String(undefined)", "undefined"},
		{"no_args", "String()", ""},
		{"array", "String([1, 2])", "1,2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evalString(t, vm, tt.source); got != tt.want {
				t.Fatalf("= %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	vm := newTestVM(t)

	for _, name := range []string{"Error", "TypeError", "RangeError", "ReferenceError", "SyntaxError", "InternalError"} {
		v := vm.Eval("throw new "+name+"('why');", "<test>", 0)
		if !v.IsException() {
			t.Fatalf("%s: expected exception", name)
		}
		ev, _ := vm.TakeException()
		nv, _ := vm.GetProp(ev, "name")
		if vm.GoString(nv) != name {
			t.Fatalf("name = %q, want %q", vm.GoString(nv), name)
		}
		mv, _ := vm.GetProp(ev, "message")
		if vm.GoString(mv) != "why" {
			t.Fatalf("%s message = %q", name, vm.GoString(mv))
		}
	}
}

func TestNumericParsing(t *testing.T) {
	vm := newTestVM(t)

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"parse_int", "parseInt('42')", "42"},
		{"parse_int_prefix", "parseInt('42abc')", "42"},
		{"parse_int_bad", "'' + parseInt('abc')", "NaN"},
		{"parse_float", "parseFloat('2.5rest')", "2.5"},
		{"is_nan_true", "isNaN(0 / 0)", "true"},
		{"is_nan_false", "isNaN(5)", "false"},
		{"is_nan_string", "isNaN('not a number')", "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evalString(t, vm, tt.source); got != tt.want {
				t.Fatalf("= %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMathObject(t *testing.T) {
	vm := newTestVM(t)

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"floor", "Math.floor(2.7)", "2"},
		{"floor_negative", "Math.floor(-2.1)", "-3"},
		{"ceil", "Math.ceil(2.1)", "3"},
		{"abs", "Math.abs(-9)", "9"},
		{"sqrt", "Math.sqrt(144)", "12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evalString(t, vm, tt.source); got != tt.want {
				t.Fatalf("= %q, want %q", got, tt.want)
			}
		})
	}

	// Math.random stays in [0, 1).
	got := evalString(t, vm, "var ok = true; for (var i = 0; i < 100; i++) { var r = Math.random(); if (r < 0 || r >= 1) { ok = false; } } ok")
	if got != "true" {
		t.Fatal("Math.random out of range")
	}
}

func TestArrayMethods(t *testing.T) {
	vm := newTestVM(t)

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"push_returns_length", "[1, 2].push(3)", "3"},
		{"push_mutates", "var a = [1]; a.push(2); a.push(3); '' + a", "1,2,3"},
		{"pop", "var a = [1, 2, 3]; a.pop() + ':' + a.length", "3:2"},
		{"join_default", "[1, 2, 3].join()", "1,2,3"},
		{"join_sep", "['x', 'y'].join(' | ')", "x | y"},
		{"index_of", "[10, 20, 30].indexOf(20)", "1"},
		{"index_of_missing", "[10, 20].indexOf(99)", "-1"},
		{"slice", "'' + [1, 2, 3, 4].slice(1, 3)", "2,3"},
		{"slice_negative", "'' + [1, 2, 3, 4].slice(-2)", "3,4"},
		{"length", "[9, 8, 7].length", "3"},
		{"truncate_via_length", "var a = [1, 2, 3]; a.length = 0; a.push(9); '' + a", "9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evalString(t, vm, tt.source); got != tt.want {
				t.Fatalf("= %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStringMethods(t *testing.T) {
	vm := newTestVM(t)

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"char_at", "'hello'.charAt(1)", "e"},
		{"char_at_oob", "'hi'.charAt(9)", ""},
		{"index_of", "'hello'.indexOf('ll')", "2"},
		{"index_of_missing", "'hello'.indexOf('z')", "-1"},
		{"slice", "'hello world'.slice(6)", "world"},
		{"slice_range", "'hello'.slice(1, 4)", "ell"},
		{"upper", "'MiXeD'.toUpperCase()", "MIXED"},
		{"lower", "'MiXeD'.toLowerCase()", "mixed"},
		{"split", "'' + 'a,b,c'.split(',')", "a,b,c"},
		{"split_count", "'a,b,c'.split(',').length", "3"},
		{"length", "'héllo'.length", "5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evalString(t, vm, tt.source); got != tt.want {
				t.Fatalf("= %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStdBasicDescriptor(t *testing.T) {
	if StdBasic.Name == "" {
		t.Fatal("descriptor needs a name")
	}
	if StdBasic.MinCapacity <= 0 {
		t.Fatal("descriptor needs a minimum capacity")
	}
	// The minimum must actually be sufficient.
	vm := New(StdBasic.MinCapacity, StdBasic)
	defer vm.Close()
	if got := evalString(t, vm, "1 + 1"); got != "2" {
		t.Fatalf("eval at minimum capacity = %q", got)
	}
}

func TestStackTraces(t *testing.T) {
	vm := newTestVM(t)

	src := `function inner() { throw new Error("deep"); }
function outer() { inner(); }
outer();`
	v := vm.Eval(src, "trace.js", 0)
	if !v.IsException() {
		t.Fatal("expected exception")
	}
	ev, _ := vm.TakeException()
	sv, found := vm.GetProp(ev, "stack")
	if !found {
		t.Fatal("no stack property")
	}
	stack := vm.GoString(sv)
	for _, frame := range []string{"inner", "outer", "trace.js"} {
		if !strings.Contains(stack, frame) {
			t.Fatalf("stack missing %q:\n%s", frame, stack)
		}
	}
}
