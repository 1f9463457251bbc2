package remotecall

// ReturnRecord is the fixed-layout struct the stub writes for each call, one
// per batch element, laid out identically in host and target since they
// share word size (spec.md ss3, ss6).
//
// ReturnPtr is declared as uint64 rather than uintptr so the struct's
// in-memory layout is the same regardless of the *host's* pointer width --
// the host may be a 64-bit process marshalling into a 32-bit target (or vice
// versa is explicitly a Non-goal, spec.md ss1, so in practice host and
// target widths always match, but the field type is pinned independent of
// that to keep the byte offsets in offsetsFor below the single source of
// truth).
type ReturnRecord struct {
	ReturnPtr   uint64
	Return32    uint32
	Return64    uint64
	ReturnFloat float32
	ReturnDbl   float64
	LastError   uint32
}

// returnRecordSize returns sizeof(ReturnRecord) on the wire for arch, per
// the table in spec.md ss6: 32 bytes on x86, 40 on x64.
func returnRecordSize(arch Arch) int {
	if arch == ArchAMD64 {
		return 40
	}
	return 32
}

// returnRecordOffsets gives the byte offset of each field within one
// on-wire ReturnRecord, per spec.md ss6's table. Offsets differ between x86
// and x64 because return_ptr is pointer-width; x64 also has 4 bytes of
// padding after Return32 so Return64 sits at 16. The double field follows the
// float with no padding, so it is not 8-byte aligned (20 on x86, 28 on x64).
type returnRecordOffsets struct {
	ptr, i32, i64, f32, f64, lastError int
}

func offsetsFor(arch Arch) returnRecordOffsets {
	if arch == ArchAMD64 {
		return returnRecordOffsets{ptr: 0, i32: 8, i64: 16, f32: 24, f64: 28, lastError: 36}
	}
	return returnRecordOffsets{ptr: 0, i32: 4, i64: 8, f32: 16, f64: 20, lastError: 28}
}

// decodeReturnRecord parses one on-wire ReturnRecord out of a flat buffer at
// the given byte offset.
func decodeReturnRecord(arch Arch, buf []byte, at int) ReturnRecord {
	off := offsetsFor(arch)
	var rec ReturnRecord
	if arch == ArchAMD64 {
		rec.ReturnPtr = leU64(buf, at+off.ptr)
	} else {
		rec.ReturnPtr = uint64(leU32(buf, at+off.ptr))
	}
	rec.Return32 = leU32(buf, at+off.i32)
	rec.Return64 = leU64(buf, at+off.i64)
	rec.ReturnFloat = f32FromBits(leU32(buf, at+off.f32))
	rec.ReturnDbl = f64FromBits(leU64(buf, at+off.f64))
	rec.LastError = leU32(buf, at+off.lastError)
	return rec
}

func leU32(b []byte, at int) uint32 {
	return uint32(b[at]) | uint32(b[at+1])<<8 | uint32(b[at+2])<<16 | uint32(b[at+3])<<24
}

func leU64(b []byte, at int) uint64 {
	return uint64(leU32(b, at)) | uint64(leU32(b, at+4))<<32
}
