package engine

import "fmt"

// Value is a tagged 64-bit word representing any script value.
//
// Inline tags (int32, bool, null, undefined, the exception sentinel) carry
// their payload in the word itself and stay valid forever. TagRef carries a
// word offset into the owning VM's arena; a ref value is only valid until
// the next allocation on the same VM, because a collection may move the
// referenced object. Hold ref values across allocating calls via Ref cells
// (PushRef/AddRef), never in plain Go variables.
//
// The zero Value is Undefined, so freshly zeroed arena payloads are safe to
// trace.
type Value uint64

const (
	tagUndefined uint64 = iota
	tagNull
	tagBool
	tagInt
	tagException
	tagUninitialized
	tagRef

	tagShift    = 48
	payloadMask = (uint64(1) << tagShift) - 1
)

func makeValue(tag uint64, payload uint64) Value {
	return Value(tag<<tagShift | payload&payloadMask)
}

func (v Value) tag() uint64 { return uint64(v) >> tagShift }

// Undefined returns the undefined value.
func Undefined() Value { return Value(0) }

// Null returns the null value.
func Null() Value { return makeValue(tagNull, 0) }

// Bool returns an inline boolean value.
func Bool(b bool) Value {
	if b {
		return makeValue(tagBool, 1)
	}
	return makeValue(tagBool, 0)
}

// Int returns an inline 32-bit integer value.
func Int(i int32) Value {
	return makeValue(tagInt, uint64(uint32(i)))
}

// Exception returns the distinguished exception sentinel. It is not an
// error object itself; it marks "an error is pending on the VM".
func Exception() Value { return makeValue(tagException, 0) }

// Uninitialized returns the uninitialized marker used for unbound slots.
func Uninitialized() Value { return makeValue(tagUninitialized, 0) }

func makeRef(off uint32) Value { return makeValue(tagRef, uint64(off)) }

func (v Value) ref() uint32 { return uint32(uint64(v) & payloadMask) }

// Tag-only predicates. These are pure bit tests and need no VM; they are
// meaningful both before and after the referenced object (if any) moves.

// IsUndefined reports whether v is the undefined value.
func (v Value) IsUndefined() bool { return v.tag() == tagUndefined }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.tag() == tagNull }

// IsBool reports whether v is an inline boolean.
func (v Value) IsBool() bool { return v.tag() == tagBool }

// IsInt reports whether v is an inline 32-bit integer.
func (v Value) IsInt() bool { return v.tag() == tagInt }

// IsException reports whether v is the exception sentinel.
func (v Value) IsException() bool { return v.tag() == tagException }

// IsUninitialized reports whether v is the uninitialized marker.
func (v Value) IsUninitialized() bool { return v.tag() == tagUninitialized }

// IsRef reports whether v is a pointer-tagged value (points into the arena).
func (v Value) IsRef() bool { return v.tag() == tagRef }

// Int returns the inline integer payload. Valid only if IsInt.
func (v Value) Int() int32 { return int32(uint32(uint64(v) & payloadMask)) }

// Bool returns the inline boolean payload. Valid only if IsBool.
func (v Value) Bool() bool { return uint64(v)&payloadMask != 0 }

func (v Value) String() string {
	switch v.tag() {
	case tagUndefined:
		return "undefined"
	case tagNull:
		return "null"
	case tagBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case tagInt:
		return fmt.Sprintf("%d", v.Int())
	case tagException:
		return "<exception>"
	case tagUninitialized:
		return "<uninitialized>"
	case tagRef:
		return fmt.Sprintf("ref(0x%x)", v.ref())
	}
	return "<invalid>"
}

// objKind identifies the class of a heap object. Stored in the low byte of
// the object header word.
type objKind uint8

const (
	kindString objKind = iota + 1
	kindFloat
	kindInt64
	kindObject
	kindError
	kindArray
	kindFunction
	kindEnv
	kindCells
)

func (k objKind) String() string {
	switch k {
	case kindString:
		return "string"
	case kindFloat:
		return "float"
	case kindInt64:
		return "int64"
	case kindObject:
		return "object"
	case kindError:
		return "error"
	case kindArray:
		return "array"
	case kindFunction:
		return "function"
	case kindEnv:
		return "env"
	case kindCells:
		return "cells"
	}
	return "invalid"
}

// traced reports whether the object's payload words are Values the
// collector must scan and rewrite. Strings and boxed numbers hold raw bits.
func (k objKind) traced() bool {
	switch k {
	case kindString, kindFloat, kindInt64:
		return false
	}
	return true
}

const (
	headerKindMask  = uint64(0xff)
	headerSizeShift = 8
	headerSizeMask  = uint64(0xffffffff) << headerSizeShift
	headerMarkBit   = uint64(1) << 63
)

func makeHeader(kind objKind, payloadWords int) uint64 {
	return uint64(kind) | uint64(payloadWords)<<headerSizeShift
}

func headerKind(h uint64) objKind { return objKind(h & headerKindMask) }

func headerSize(h uint64) int { return int((h & headerSizeMask) >> headerSizeShift) }
