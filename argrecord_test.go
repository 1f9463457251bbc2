package remotecall

import "testing"

func TestArgRecordConstructors(t *testing.T) {
	if a := ArgInt32(-1); a.Tag() != TagI32 || a.AsI32() != 0xffffffff {
		t.Errorf("ArgInt32(-1) = %+v", a)
	}
	if a := ArgUint32(42); a.Tag() != TagI32 || a.AsI32() != 42 || a.Width() != 4 {
		t.Errorf("ArgUint32(42) = %+v", a)
	}
	if a := ArgInt64(-1); a.Tag() != TagI64 || a.AsI64() != 0xffffffffffffffff || a.Width() != 8 {
		t.Errorf("ArgInt64(-1) = %+v", a)
	}
	if a := ArgUint64(7); a.Tag() != TagI64 || a.AsI64() != 7 {
		t.Errorf("ArgUint64(7) = %+v", a)
	}
	if a := ArgFloat32(1.5); a.Tag() != TagF32 || a.AsF32() != 1.5 || a.Width() != 4 {
		t.Errorf("ArgFloat32(1.5) = %+v", a)
	}
	if a := ArgFloat64(2.5); a.Tag() != TagF64 || a.AsF64() != 2.5 || a.Width() != 8 {
		t.Errorf("ArgFloat64(2.5) = %+v", a)
	}
}

func TestArgUintptrWidthMatchesHost(t *testing.T) {
	a := ArgUintptr(0x1234)
	wantWidth := 4
	if is64BitHost {
		wantWidth = 8
	}
	if a.Width() != wantWidth {
		t.Errorf("ArgUintptr width = %d, want %d (is64BitHost=%v)", a.Width(), wantWidth, is64BitHost)
	}
	if is64BitHost && a.AsI64() != 0x1234 {
		t.Errorf("ArgUintptr on 64-bit host = %#x, want 0x1234", a.AsI64())
	}
	if !is64BitHost && a.AsI32() != 0x1234 {
		t.Errorf("ArgUintptr on 32-bit host = %#x, want 0x1234", a.AsI32())
	}
}

func TestInvalidArgRecordHasZeroWidth(t *testing.T) {
	var a ArgRecord
	if a.Tag() != TagInvalid {
		t.Fatalf("zero-value ArgRecord tag = %v, want TagInvalid", a.Tag())
	}
	if a.Width() != 0 {
		t.Errorf("invalid ArgRecord Width() = %d, want 0", a.Width())
	}
}
