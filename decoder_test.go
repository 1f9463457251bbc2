package remotecall

import "testing"

func TestDecodeResultEachType(t *testing.T) {
	rec := ReturnRecord{
		ReturnPtr:   0xdeadbeef,
		Return32:    42,
		Return64:    0x1122334455667788,
		ReturnFloat: 1.5,
		ReturnDbl:   2.5,
	}
	if got := decodeResult[int32](rec); got != 42 {
		t.Errorf("decodeResult[int32] = %d, want 42", got)
	}
	if got := decodeResult[uint32](rec); got != 42 {
		t.Errorf("decodeResult[uint32] = %d, want 42", got)
	}
	if got := decodeResult[int64](rec); got != 0x1122334455667788 {
		t.Errorf("decodeResult[int64] = %#x", got)
	}
	if got := decodeResult[uint64](rec); got != 0x1122334455667788 {
		t.Errorf("decodeResult[uint64] = %#x", got)
	}
	if got := decodeResult[uintptr](rec); got != 0xdeadbeef {
		t.Errorf("decodeResult[uintptr] = %#x", got)
	}
	if got := decodeResult[float32](rec); got != 1.5 {
		t.Errorf("decodeResult[float32] = %v", got)
	}
	if got := decodeResult[float64](rec); got != 2.5 {
		t.Errorf("decodeResult[float64] = %v", got)
	}
}

func TestResultDecoderMatchesDecodeResult(t *testing.T) {
	rec := ReturnRecord{Return32: 7}
	var d ResultDecoder[int32]
	if got := d.Decode(rec); got != 7 {
		t.Errorf("ResultDecoder[int32].Decode() = %d, want 7", got)
	}
}
