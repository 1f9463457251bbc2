package remotecall

// remoteAddrs carries the three classes of absolute address the stub bakes
// in as immediates (spec.md ss4.3.4): each callee's address (already present
// on each call), GetLastError/SetLastError resolved inside the target, and
// the base of the return table the stub writes into.
type remoteAddrs struct {
	ReturnTable  uintptr
	GetLastError uintptr
	SetLastError uintptr
}

// StubAssembler emits the position-independent byte sequence that, run on a
// freshly created thread in the target, invokes each call in order and
// writes its ReturnRecord (spec.md ss4.3). Two back-ends exist;
// assemblerFor picks one at run time from the target's Arch as reported by
// ProcessOps.
type StubAssembler interface {
	Arch() Arch
	Assemble(calls []call, addrs remoteAddrs) ([]byte, error)
}

func assemblerFor(arch Arch) StubAssembler {
	switch arch {
	case ArchAMD64:
		return amd64Stub{}
	default:
		return x86Stub{}
	}
}

func roundUp(v, mult int) int {
	if rem := v % mult; rem != 0 {
		return v + (mult - rem)
	}
	return v
}
