package remotecall

import (
	"testing"

	"github.com/wndcall/remotecall/internal/fakeprocess"
)

func TestRemoteExecutorRunEmptyBatch(t *testing.T) {
	proc := fakeprocess.New(ArchAMD64)
	e := NewRemoteExecutor(proc)
	records, err := e.Run(Batch{})
	if err != nil {
		t.Fatalf("Run(empty) error = %v", err)
	}
	if records != nil {
		t.Fatalf("Run(empty) = %v, want nil", records)
	}
	if proc.Allocs != 0 {
		t.Errorf("empty batch allocated %d regions, want 0", proc.Allocs)
	}
}

func TestRemoteExecutorResolveFailure(t *testing.T) {
	proc := fakeprocess.New(ArchAMD64)
	// Deliberately do not register GetLastError/SetLastError.
	e := NewRemoteExecutor(proc)
	_, err := e.Run(Batch{
		Addresses:   []uintptr{0x1000},
		Conventions: []CallingConvention{X64},
		ArgLists:    []ArgList{{}},
	})
	rcErr, ok := err.(*RemoteCallError)
	if !ok || rcErr.Kind != KindResolveFailure {
		t.Fatalf("got error %v, want KindResolveFailure", err)
	}
}

func TestRemoteExecutorUnsupportedConvention(t *testing.T) {
	proc := fakeprocess.New(Arch386)
	proc.RegisterExport("kernel32.dll", "GetLastError")
	proc.RegisterExport("kernel32.dll", "SetLastError")
	e := NewRemoteExecutor(proc)
	_, err := e.Run(Batch{
		Addresses:   []uintptr{0x1000},
		Conventions: []CallingConvention{X64}, // invalid on a 386 target
		ArgLists:    []ArgList{{}},
	})
	rcErr, ok := err.(*RemoteCallError)
	if !ok || rcErr.Kind != KindUnsupportedConvention {
		t.Fatalf("got error %v, want KindUnsupportedConvention", err)
	}
}

// TestRemoteExecutorRunFreesEveryRegion drives a successful run and checks
// that every region Run allocated is freed by the time it returns (spec.md
// ss5 resource policy, ss "Concurrency & Resource Model").
func TestRemoteExecutorRunFreesEveryRegion(t *testing.T) {
	proc := fakeprocess.New(ArchAMD64)
	proc.RegisterExport("kernel32.dll", "GetLastError")
	proc.RegisterExport("kernel32.dll", "SetLastError")
	proc.RunHook = func(p *fakeprocess.Process, code []byte) {
		// Simulate the stub having run: nothing to write back, the return
		// table was already zeroed by the executor itself.
	}

	e := NewRemoteExecutor(proc)
	records, err := e.Run(Batch{
		Addresses:   []uintptr{0x1000},
		Conventions: []CallingConvention{X64},
		ArgLists:    []ArgList{{ArgInt32(1)}},
	})
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if proc.Allocs != proc.Frees {
		t.Errorf("Allocs=%d Frees=%d, want equal", proc.Allocs, proc.Frees)
	}
}

func TestRemoteExecutorBatchShapeMismatch(t *testing.T) {
	proc := fakeprocess.New(ArchAMD64)
	e := NewRemoteExecutor(proc)
	_, err := e.Run(Batch{
		Addresses:   []uintptr{1, 2},
		Conventions: []CallingConvention{Cdecl},
		ArgLists:    []ArgList{{}},
	})
	rcErr, ok := err.(*RemoteCallError)
	if !ok || rcErr.Kind != KindBatchShapeMismatch {
		t.Fatalf("got error %v, want KindBatchShapeMismatch", err)
	}
}
