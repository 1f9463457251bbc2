package remotecall

import (
	"encoding/binary"
	"testing"

	"github.com/wndcall/remotecall/internal/fakeprocess"
)

// writeReturn32 simulates a stub run by writing rec.Return32 at the start
// of the return table fakeprocess allocated (the table is always the first
// allocation RemoteExecutor.Run makes).
func writeReturn32(p *fakeprocess.Process, tableAddr uintptr, offset int, v uint32) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	_ = p.Write(tableAddr+uintptr(offset), buf)
}

func TestTypedFacadeDecodesReturnValue(t *testing.T) {
	proc := fakeprocess.New(ArchAMD64)
	proc.RegisterExport("kernel32.dll", "GetLastError")
	proc.RegisterExport("kernel32.dll", "SetLastError")

	var tableAddr uintptr
	proc.RunHook = func(p *fakeprocess.Process, code []byte) {
		tableAddr = firstAllocAddr(p)
		off := offsetsFor(ArchAMD64)
		writeReturn32(p, tableAddr, off.i32, 99)
	}

	e := NewRemoteExecutor(proc)
	sig := Signature[int32]{Convention: X64, Params: []ArgTag{TagI32}}
	res, err := TypedFacade[int32](e, 0x1000, sig, ArgInt32(1))
	if err != nil {
		t.Fatalf("TypedFacade error = %v", err)
	}
	if res.Value != 99 {
		t.Errorf("Value = %d, want 99", res.Value)
	}
	if res.Raw.Return32 != 99 {
		t.Errorf("Raw.Return32 = %d, want 99", res.Raw.Return32)
	}
}

// TestTypedFacadeRejectsArityMismatch is scenario S6 (spec.md ss8): a
// typed call with arity 2 against a declared arity-3 signature is rejected
// before any remote interaction -- no allocation, no thread, no error
// crossing ProcessOps.
func TestTypedFacadeRejectsArityMismatch(t *testing.T) {
	proc := fakeprocess.New(ArchAMD64)
	proc.RegisterExport("kernel32.dll", "GetLastError")
	proc.RegisterExport("kernel32.dll", "SetLastError")
	e := NewRemoteExecutor(proc)

	sig := Signature[int32]{Convention: X64, Params: []ArgTag{TagI32, TagI32, TagI32}}
	_, err := TypedFacade[int32](e, 0x1000, sig, ArgInt32(1), ArgInt32(2))
	rcErr, ok := err.(*RemoteCallError)
	if !ok || rcErr.Kind != KindSignatureMismatch {
		t.Fatalf("got error %v, want KindSignatureMismatch", err)
	}
	if proc.Allocs != 0 {
		t.Errorf("Allocs = %d, want 0 (rejected before any remote interaction)", proc.Allocs)
	}
}

// TestTypedFacadeRejectsTagMismatch checks the per-position convertibility
// half of spec.md ss4.1: same arity, wrong declared tag at one position.
func TestTypedFacadeRejectsTagMismatch(t *testing.T) {
	proc := fakeprocess.New(ArchAMD64)
	proc.RegisterExport("kernel32.dll", "GetLastError")
	proc.RegisterExport("kernel32.dll", "SetLastError")
	e := NewRemoteExecutor(proc)

	sig := Signature[int32]{Convention: X64, Params: []ArgTag{TagI32, TagF64}}
	_, err := TypedFacade[int32](e, 0x1000, sig, ArgInt32(1), ArgInt32(2))
	rcErr, ok := err.(*RemoteCallError)
	if !ok || rcErr.Kind != KindSignatureMismatch {
		t.Fatalf("got error %v, want KindSignatureMismatch", err)
	}
}

func TestMultiCallAddTypedRejectsMismatchWithoutQueuing(t *testing.T) {
	proc := fakeprocess.New(ArchAMD64)
	proc.RegisterExport("kernel32.dll", "GetLastError")
	proc.RegisterExport("kernel32.dll", "SetLastError")
	e := NewRemoteExecutor(proc)

	m := NewMultiCall(e)
	_, err := m.AddTyped(0x1000, X64, []ArgTag{TagI32, TagI32}, ArgInt32(1))
	if err == nil {
		t.Fatal("AddTyped with arity mismatch returned nil error")
	}
	if m.N() != 0 {
		t.Errorf("N() = %d, want 0 (mismatched call must not be queued)", m.N())
	}
}

func TestMultiCallAccumulatesAndResets(t *testing.T) {
	proc := fakeprocess.New(ArchAMD64)
	proc.RegisterExport("kernel32.dll", "GetLastError")
	proc.RegisterExport("kernel32.dll", "SetLastError")
	e := NewRemoteExecutor(proc)

	m := NewMultiCall(e)
	m.Add(0x1000, X64, ArgInt32(1)).Add(0x2000, X64, ArgInt32(2))
	if m.N() != 2 {
		t.Fatalf("N() = %d, want 2", m.N())
	}

	records, err := m.Call()
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	m.Reset()
	if m.N() != 0 {
		t.Errorf("N() after Reset() = %d, want 0", m.N())
	}
}

// firstAllocAddr returns the lowest address fakeprocess has allocated,
// which RemoteExecutor.Run always allocates first (the return table).
func firstAllocAddr(p *fakeprocess.Process) uintptr {
	var lowest uintptr
	first := true
	p.EachRegion(func(addr uintptr) {
		if first || addr < lowest {
			lowest = addr
			first = false
		}
	})
	return lowest
}
