package runtime

import (
	"fmt"
	"math"

	"github.com/embjs/embjs/engine"
	"github.com/embjs/embjs/errors"
)

// Conversions build engine values from host scalars. A conversion is a
// single allocation event and never needs pinning by itself, but the
// returned value must be pinned before any later allocating call it has
// to survive. Failures (arena exhaustion, unsupported host types) are
// reported as a pending exception and the exception sentinel, never as
// a host abort.

const (
	wideIntMin = -(1 << 62)
	wideIntMax = (1 << 62) - 1
)

// FromInt converts a 32-bit integer to the inline integer
// representation. Never allocates.
func (c *Context) FromInt(i int32) engine.Value { return engine.Int(i) }

// FromBool converts a host bool. Never allocates.
func (c *Context) FromBool(b bool) engine.Value { return engine.Bool(b) }

// FromInt64 converts a 64-bit integer: values in 32-bit signed range
// stay inline, values in 63-bit signed range take the wide integer
// representation, and the rest fall back to floating point, matching
// script-side numeric coercion.
func (c *Context) FromInt64(i int64) engine.Value {
	if i >= math.MinInt32 && i <= math.MaxInt32 {
		return engine.Int(int32(i))
	}
	if i >= wideIntMin && i <= wideIntMax {
		v, ok := c.vm.NewInt64(i)
		if !ok {
			return c.throwOOM()
		}
		return v
	}
	return c.FromFloat(float64(i))
}

// FromUint64 converts an unsigned 64-bit integer under the same tiering
// as FromInt64.
func (c *Context) FromUint64(u uint64) engine.Value {
	if u <= math.MaxInt32 {
		return engine.Int(int32(u))
	}
	if u <= wideIntMax {
		v, ok := c.vm.NewInt64(int64(u))
		if !ok {
			return c.throwOOM()
		}
		return v
	}
	return c.FromFloat(float64(u))
}

// FromFloat converts a float64. Integral values in 32-bit range
// collapse to the inline integer representation; everything else is
// boxed.
func (c *Context) FromFloat(f float64) engine.Value {
	// Negative zero stays boxed so it is not conflated with inline 0.
	if f == math.Trunc(f) && f >= math.MinInt32 && f <= math.MaxInt32 &&
		!(f == 0 && math.Signbit(f)) {
		return engine.Int(int32(f))
	}
	v, ok := c.vm.NewFloat(f)
	if !ok {
		return c.throwOOM()
	}
	return v
}

// FromString copies a host string into the arena.
func (c *Context) FromString(s string) engine.Value {
	v, ok := c.vm.NewString(s)
	if !ok {
		return c.throwOOM()
	}
	return v
}

// FromHost converts an arbitrary host value by its dynamic type.
// Unsupported types raise a pending TypeError so the failure is
// observable like any thrown exception.
func (c *Context) FromHost(x any) engine.Value {
	switch v := x.(type) {
	case nil:
		return engine.Null()
	case bool:
		return engine.Bool(v)
	case int:
		return c.FromInt64(int64(v))
	case int32:
		return engine.Int(v)
	case int64:
		return c.FromInt64(v)
	case uint32:
		return c.FromUint64(uint64(v))
	case uint64:
		return c.FromUint64(v)
	case float32:
		return c.FromFloat(float64(v))
	case float64:
		return c.FromFloat(v)
	case string:
		return c.FromString(v)
	default:
		return c.vm.Throw("TypeError",
			fmt.Sprintf("no engine representation for host type %T", x))
	}
}

func (c *Context) throwOOM() engine.Value {
	return c.vm.Throw("InternalError", "out of memory")
}

// ToString returns the display string of any value, copied out of the
// arena. The engine-internal view of string content is a borrow valid
// only until the next collection; copying at the boundary is the only
// safe surface for it here.
func (c *Context) ToString(v engine.Value) string {
	return c.vm.ToDisplayString(v)
}

// ToInt64 extracts a numeric value as int64.
func (c *Context) ToInt64(v engine.Value) (int64, error) {
	switch {
	case v.IsInt():
		return int64(v.Int()), nil
	case c.vm.IsInt64(v):
		return c.vm.Int64(v), nil
	case c.vm.IsFloat(v):
		f := c.vm.Float(v)
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, errors.Overflow(errors.PhaseConvert, f, "int64")
		}
		return int64(f), nil
	default:
		return 0, errors.TypeMismatch(errors.PhaseConvert, "int64", "value is not numeric")
	}
}

// ToFloat extracts a numeric value as float64.
func (c *Context) ToFloat(v engine.Value) (float64, error) {
	switch {
	case v.IsInt():
		return float64(v.Int()), nil
	case c.vm.IsInt64(v):
		return float64(c.vm.Int64(v)), nil
	case c.vm.IsFloat(v):
		return c.vm.Float(v), nil
	default:
		return 0, errors.TypeMismatch(errors.PhaseConvert, "float64", "value is not numeric")
	}
}

// Semantic predicates. Unlike the tag-only predicates on Value these
// consult object headers and therefore need the context.

// IsString reports whether v is a string value.
func (c *Context) IsString(v engine.Value) bool { return c.vm.IsString(v) }

// IsFunction reports whether v is callable.
func (c *Context) IsFunction(v engine.Value) bool { return c.vm.IsFunction(v) }

// IsError reports whether v is an error object.
func (c *Context) IsError(v engine.Value) bool { return c.vm.IsErrorValue(v) }

// IsArray reports whether v is an array.
func (c *Context) IsArray(v engine.Value) bool { return c.vm.IsArray(v) }

// IsObject reports whether v is any property container.
func (c *Context) IsObject(v engine.Value) bool { return c.vm.IsObject(v) }

// IsNumber reports whether v is numeric in any representation.
func (c *Context) IsNumber(v engine.Value) bool {
	return v.IsInt() || c.vm.IsFloat(v) || c.vm.IsInt64(v)
}

// Object and array access. These may allocate; pin inputs that must
// survive.

// NewObject allocates an empty object.
func (c *Context) NewObject() engine.Value {
	v, ok := c.vm.NewObject()
	if !ok {
		return c.throwOOM()
	}
	return v
}

// NewArray allocates an empty array.
func (c *Context) NewArray() engine.Value {
	v, ok := c.vm.NewArray()
	if !ok {
		return c.throwOOM()
	}
	return v
}

// GetProp reads a named property; absent keys read as undefined.
func (c *Context) GetProp(obj engine.Value, key string) engine.Value {
	v, _ := c.vm.GetProp(obj, key)
	return v
}

// SetProp writes a named property. It allocates for the key and
// possibly for table growth; obj and val are pinned internally.
func (c *Context) SetProp(obj engine.Value, key string, val engine.Value) engine.Value {
	if !c.vm.SetProp(obj, key, val) {
		return c.throwOOM()
	}
	return engine.Undefined()
}

// ArrayLen returns the element count of an array value.
func (c *Context) ArrayLen(v engine.Value) int { return c.vm.ArrayLen(v) }

// ArrayGet reads an element; out-of-range reads yield undefined.
func (c *Context) ArrayGet(v engine.Value, i int) engine.Value {
	return c.vm.ArrayGet(v, i)
}

// ArrayPush appends an element, growing storage as needed.
func (c *Context) ArrayPush(arr, val engine.Value) engine.Value {
	if !c.vm.ArrayPush(arr, val) {
		return c.throwOOM()
	}
	return engine.Undefined()
}
