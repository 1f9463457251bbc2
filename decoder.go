package remotecall

// Result is the set of Go types a typed call's return value may decode
// into (spec.md ss4.5, SPEC_FULL.md TypedFacade). Every member maps to
// exactly one ReturnRecord field; the field is picked by a type switch on
// R's zero value in decodeResult.
type Result interface {
	int32 | uint32 | int64 | uint64 | uintptr | float32 | float64
}

// decodeResult extracts the field of rec that corresponds to R (spec.md
// ss6's return-harvesting table: ReturnPtr for uintptr, Return32 for 32-bit
// integers, Return64 for 64-bit integers, ReturnFloat/ReturnDbl for the two
// float widths).
func decodeResult[R Result](rec ReturnRecord) R {
	var zero R
	switch any(zero).(type) {
	case int32:
		return any(int32(rec.Return32)).(R)
	case uint32:
		return any(rec.Return32).(R)
	case int64:
		return any(int64(rec.Return64)).(R)
	case uint64:
		return any(rec.Return64).(R)
	case uintptr:
		return any(uintptr(rec.ReturnPtr)).(R)
	case float32:
		return any(rec.ReturnFloat).(R)
	case float64:
		return any(rec.ReturnDbl).(R)
	default:
		return zero
	}
}

// ResultDecoder exposes decodeResult to callers that hold a raw
// ReturnRecord (e.g. read from a Batch run through RemoteExecutor.Run
// directly) and want the typed view TypedFacade normally provides for them.
type ResultDecoder[R Result] struct{}

func (ResultDecoder[R]) Decode(rec ReturnRecord) R { return decodeResult[R](rec) }
