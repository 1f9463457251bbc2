package remotecall

import (
	"fmt"
	"unsafe"
)

// ArgTag discriminates the payload held by an ArgRecord.
type ArgTag int

const (
	// TagInvalid only appears on a zero-value ArgRecord that has not left
	// a constructor; spec.md ss3 invariant: tag != Invalid for any
	// ArgRecord a caller can observe.
	TagInvalid ArgTag = iota
	TagI32
	TagI64
	TagF32
	TagF64
)

func (t ArgTag) String() string {
	switch t {
	case TagI32:
		return "I32"
	case TagI64:
		return "I64"
	case TagF32:
		return "F32"
	case TagF64:
		return "F64"
	default:
		return fmt.Sprintf("ArgTag(%d)", int(t))
	}
}

// ArgRecord is a tagged union over the four wire shapes a stub argument can
// take. Reinterpretation into these shapes is strictly bit-level: the only
// transformation a constructor performs is the zero/sign extension spec.md
// ss4.2 calls out, never a numeric conversion.
type ArgRecord struct {
	tag ArgTag
	i32 uint32
	i64 uint64
	f32 float32
	f64 float64
}

func (a ArgRecord) Tag() ArgTag { return a.tag }

// Width reports the argument's width in bytes as it will occupy a register
// or stack slot: 4 for I32/F32, 8 for I64/F64.
func (a ArgRecord) Width() int {
	switch a.tag {
	case TagI32, TagF32:
		return 4
	case TagI64, TagF64:
		return 8
	default:
		return 0
	}
}

func (a ArgRecord) AsI32() uint32  { return a.i32 }
func (a ArgRecord) AsI64() uint64  { return a.i64 }
func (a ArgRecord) AsF32() float32 { return a.f32 }
func (a ArgRecord) AsF64() float64 { return a.f64 }

// ArgInt32 classifies a signed 32-bit (or narrower) host integer.
func ArgInt32(v int32) ArgRecord { return ArgRecord{tag: TagI32, i32: uint32(v)} }

// ArgUint32 classifies an unsigned 32-bit (or narrower) host integer.
func ArgUint32(v uint32) ArgRecord { return ArgRecord{tag: TagI32, i32: v} }

// ArgInt64 classifies a signed 64-bit host integer.
func ArgInt64(v int64) ArgRecord { return ArgRecord{tag: TagI64, i64: uint64(v)} }

// ArgUint64 classifies an unsigned 64-bit host integer.
func ArgUint64(v uint64) ArgRecord { return ArgRecord{tag: TagI64, i64: v} }

// ArgFloat32 classifies a single-precision float.
func ArgFloat32(v float32) ArgRecord { return ArgRecord{tag: TagF32, f32: v} }

// ArgFloat64 classifies a double-precision float.
func ArgFloat64(v float64) ArgRecord { return ArgRecord{tag: TagF64, f64: v} }

// ArgPointer classifies a pointer as an integer of machine-pointer width
// (spec.md ss4.2): Int32 on a 32-bit build, Int64 on a 64-bit build. The
// payload is the bit pattern of the pointer, never dereferenced here.
func ArgPointer(p unsafe.Pointer) ArgRecord {
	if is64BitHost {
		return ArgRecord{tag: TagI64, i64: uint64(uintptr(p))}
	}
	return ArgRecord{tag: TagI32, i32: uint32(uintptr(p))}
}

// ArgUintptr classifies a remote address already expressed as uintptr,
// using the same width rule as ArgPointer. Most callers marshal remote
// addresses (they do not point into the host's address space) through this
// constructor rather than ArgPointer, since dereferencing them locally
// would be meaningless.
func ArgUintptr(v uintptr) ArgRecord {
	if is64BitHost {
		return ArgRecord{tag: TagI64, i64: uint64(v)}
	}
	return ArgRecord{tag: TagI32, i32: uint32(v)}
}

const is64BitHost = ^uintptr(0)>>63 == 1

// ArgList is an ordered, positional sequence of ArgRecord (spec.md ss3).
type ArgList []ArgRecord
