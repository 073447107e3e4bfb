package runtime

import (
	"math"
	"strings"
	"testing"

	"github.com/embjs/embjs/engine"
)

func TestNumericTiering(t *testing.T) {
	ctx := newTestContext(t)

	tests := []struct {
		name   string
		in     int64
		inline bool
		wide   bool
	}{
		{"zero", 0, true, false},
		{"small_positive", 42, true, false},
		{"small_negative", -42, true, false},
		{"int32_max", math.MaxInt32, true, false},
		{"int32_min", math.MinInt32, true, false},
		{"just_past_int32", math.MaxInt32 + 1, false, true},
		{"just_below_int32", math.MinInt32 - 1, false, true},
		{"wide_max", (1 << 62) - 1, false, true},
		{"wide_min", -(1 << 62), false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ctx.FromInt64(tt.in)
			if v.IsInt() != tt.inline {
				t.Fatalf("IsInt = %v, want %v", v.IsInt(), tt.inline)
			}
			if tt.wide && !v.IsRef() {
				t.Fatal("expected a heap-tagged wide integer")
			}
			got, err := ctx.ToInt64(v)
			if err != nil {
				t.Fatalf("ToInt64: %v", err)
			}
			if got != tt.in {
				t.Fatalf("round trip = %d, want %d", got, tt.in)
			}
		})
	}
}

func TestInt64BeyondWideRangeFallsBackToFloat(t *testing.T) {
	ctx := newTestContext(t)
	v := ctx.FromInt64(math.MaxInt64)
	if v.IsInt() {
		t.Fatal("should not be inline")
	}
	f, err := ctx.ToFloat(v)
	if err != nil {
		t.Fatalf("ToFloat: %v", err)
	}
	if f != float64(math.MaxInt64) {
		t.Fatalf("float fallback = %v", f)
	}
}

func TestFromFloatCollapsesIntegrals(t *testing.T) {
	ctx := newTestContext(t)

	if v := ctx.FromFloat(7.0); !v.IsInt() || v.Int() != 7 {
		t.Fatalf("integral float should be inline, got %v", v)
	}
	if v := ctx.FromFloat(7.5); v.IsInt() {
		t.Fatal("fractional float must stay boxed")
	}
	// Negative zero keeps its sign through boxing.
	v := ctx.FromFloat(math.Copysign(0, -1))
	if v.IsInt() {
		t.Fatal("negative zero must stay boxed")
	}
	f, err := ctx.ToFloat(v)
	if err != nil {
		t.Fatalf("ToFloat: %v", err)
	}
	if !math.Signbit(f) {
		t.Fatal("negative zero lost its sign")
	}
}

func TestStringRoundTrip(t *testing.T) {
	ctx := newTestContext(t)

	for _, s := range []string{"", "hello", "héllo wörld", "line\nbreak", strings.Repeat("x", 4096)} {
		v := ctx.FromString(s)
		if v.IsException() {
			t.Fatalf("FromString(%.20q): %v", s, ctx.Exception())
		}
		if !ctx.IsString(v) {
			t.Fatalf("IsString(%.20q) = false", s)
		}
		if got := ctx.ToString(v); got != s {
			t.Fatalf("round trip %.20q -> %.20q", s, got)
		}
	}
}

func TestLargeStringRoundTrip(t *testing.T) {
	ctx, err := NewContext(64<<20, engine.StdBasic)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer ctx.Close()

	s := strings.Repeat("héllo wörld ", 1<<20) // ~13 MB of UTF-8
	v := ctx.FromString(s)
	if v.IsException() {
		t.Fatalf("FromString: %v", ctx.Exception())
	}
	if got := ctx.ToString(v); got != s {
		t.Fatal("large string corrupted in round trip")
	}
}

func TestFromHost(t *testing.T) {
	ctx := newTestContext(t)

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "null"},
		{"bool", true, "true"},
		{"int", 7, "7"},
		{"int64_wide", int64(1) << 40, "1099511627776"},
		{"float", 2.5, "2.5"},
		{"string", "text", "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := ctx.FromHost(tt.in)
			if v.IsException() {
				t.Fatalf("FromHost: %v", ctx.Exception())
			}
			if got := ctx.ToString(v); got != tt.want {
				t.Fatalf("ToString = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromHostUnsupportedTypeRaisesPending(t *testing.T) {
	ctx := newTestContext(t)

	v := ctx.FromHost(make(chan int))
	if !v.IsException() {
		t.Fatal("expected the exception sentinel")
	}
	serr := ctx.Exception()
	if serr == nil {
		t.Fatal("expected a pending exception")
	}
	if serr.Name != "TypeError" {
		t.Fatalf("Name = %q, want TypeError", serr.Name)
	}
	if !strings.Contains(serr.Message, "chan int") {
		t.Fatalf("Message = %q", serr.Message)
	}
}

func TestTagOnlyPredicates(t *testing.T) {
	if !engine.Undefined().IsUndefined() {
		t.Fatal("Undefined")
	}
	if !engine.Null().IsNull() {
		t.Fatal("Null")
	}
	if !engine.Bool(true).IsBool() || !engine.Bool(true).Bool() {
		t.Fatal("Bool")
	}
	if !engine.Int(-5).IsInt() || engine.Int(-5).Int() != -5 {
		t.Fatal("Int")
	}
	if !engine.Exception().IsException() {
		t.Fatal("Exception")
	}
	// The zero Value is undefined, so zeroed memory reads safely.
	var zero engine.Value
	if !zero.IsUndefined() {
		t.Fatal("zero Value must be undefined")
	}
}

func TestSemanticPredicates(t *testing.T) {
	ctx := newTestContext(t)

	s := ctx.FromString("s")
	if !ctx.IsString(s) || ctx.IsArray(s) || ctx.IsFunction(s) {
		t.Fatal("string predicates")
	}

	arr := ctx.NewArray()
	if !ctx.IsArray(arr) || !ctx.IsObject(arr) || ctx.IsString(arr) {
		t.Fatal("array predicates")
	}

	fn := ctx.Eval("(function f() { return 1; })", "<test>", EvalRetVal)
	if !ctx.IsFunction(fn) {
		t.Fatal("function predicate")
	}

	ev := ctx.Eval("new Error('x')", "<test>", EvalRetVal)
	if !ctx.IsError(ev) {
		t.Fatal("error predicate")
	}
}

func TestObjectProperties(t *testing.T) {
	ctx := newTestContext(t)

	r := ctx.PushRef()
	r.Set(ctx.NewObject())
	ctx.SetProp(r.Get(), "answer", engine.Int(42))
	// Allocate the value before reading the pinned object so the
	// object argument is not stale by call time.
	label := ctx.FromString("deep thought")
	ctx.SetProp(r.Get(), "label", label)

	v := ctx.GetProp(r.Get(), "answer")
	if !v.IsInt() || v.Int() != 42 {
		t.Fatalf("answer = %v", v)
	}
	if got := ctx.ToString(ctx.GetProp(r.Get(), "label")); got != "deep thought" {
		t.Fatalf("label = %q", got)
	}
	if !ctx.GetProp(r.Get(), "missing").IsUndefined() {
		t.Fatal("absent key should read as undefined")
	}
	ctx.PopRef()
}

func TestArrayOperations(t *testing.T) {
	ctx := newTestContext(t)

	r := ctx.PushRef()
	r.Set(ctx.NewArray())
	for i := 0; i < 20; i++ {
		ctx.ArrayPush(r.Get(), engine.Int(int32(i*i)))
	}
	if n := ctx.ArrayLen(r.Get()); n != 20 {
		t.Fatalf("len = %d", n)
	}
	if v := ctx.ArrayGet(r.Get(), 7); v.Int() != 49 {
		t.Fatalf("arr[7] = %v", v)
	}
	if !ctx.ArrayGet(r.Get(), 100).IsUndefined() {
		t.Fatal("out of range should read as undefined")
	}
	ctx.PopRef()
}
