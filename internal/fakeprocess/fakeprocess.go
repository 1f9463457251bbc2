// Package fakeprocess is an in-memory remotecall.ProcessOps double used by
// this module's own tests (SPEC_FULL.md ss B). It backs every memory
// operation with a real byte slice and tracks allocation/free symmetry, but
// it does not execute the machine code a stub assembler writes -- verifying
// generated bytes belongs to stub_amd64_test.go/stub_386_test.go, which
// decode them structurally instead. CreateThread instead invokes an
// optional RunHook so RemoteExecutor tests can simulate what a real thread
// running the stub would have written to the return table.
package fakeprocess

import (
	"github.com/pkg/errors"

	"github.com/wndcall/remotecall"
)

// Process is a flat byte-addressable memory space plus a registry of
// synthetic export addresses, enough to drive RemoteExecutor end to end in
// tests.
type Process struct {
	arch     remotecall.Arch
	regions  map[uintptr][]byte
	nextAddr uintptr
	exports  map[string]uintptr

	// RunHook, if set, is called by CreateThread with the code region's
	// contents instead of executing them; tests use it to assert on the
	// stub bytes and/or to write an expected return table before CreateThread
	// returns.
	RunHook func(p *Process, code []byte)

	Allocs int
	Frees  int
}

// New creates an empty fake process targeting arch.
func New(arch remotecall.Arch) *Process {
	return &Process{
		arch:     arch,
		regions:  make(map[uintptr][]byte),
		nextAddr: 0x10000,
		exports:  make(map[string]uintptr),
	}
}

// RegisterExport makes (module, name) resolve to a synthetic address.
func (p *Process) RegisterExport(module, name string) uintptr {
	addr := p.nextAddr
	p.nextAddr += 0x10
	p.exports[module+"!"+name] = addr
	return addr
}

func (p *Process) Arch() remotecall.Arch { return p.arch }

func (p *Process) Alloc(size int, _ remotecall.Protect) (uintptr, error) {
	addr := p.nextAddr
	p.nextAddr += uintptr(size) + 0x1000
	p.regions[addr] = make([]byte, size)
	p.Allocs++
	return addr, nil
}

func (p *Process) Free(addr uintptr) error {
	if _, ok := p.regions[addr]; !ok {
		return errors.Errorf("fakeprocess: Free of unknown region %#x", addr)
	}
	delete(p.regions, addr)
	p.Frees++
	return nil
}

func (p *Process) Write(addr uintptr, buf []byte) error {
	region, ok := p.regionFor(addr, len(buf))
	if !ok {
		return errors.Errorf("fakeprocess: write out of bounds at %#x len %d", addr, len(buf))
	}
	copy(region, buf)
	return nil
}

func (p *Process) Read(addr uintptr, buf []byte) error {
	region, ok := p.regionFor(addr, len(buf))
	if !ok {
		return errors.Errorf("fakeprocess: read out of bounds at %#x len %d", addr, len(buf))
	}
	copy(buf, region)
	return nil
}

func (p *Process) FlushInstructionCache(uintptr, int) error { return nil }

// CreateThread invokes RunHook (if set) with the code region's bytes and
// returns a handle Wait treats as already signaled; fakeprocess never
// actually runs the stub.
func (p *Process) CreateThread(entry uintptr) (remotecall.ThreadHandle, error) {
	region, ok := p.regions[entry]
	if !ok {
		return 0, errors.Errorf("fakeprocess: no code region at %#x", entry)
	}
	if p.RunHook != nil {
		p.RunHook(p, region)
	}
	return remotecall.ThreadHandle(entry), nil
}

func (p *Process) Wait(remotecall.ThreadHandle) error { return nil }

func (p *Process) CloseHandle(remotecall.ThreadHandle) error { return nil }

func (p *Process) ResolveExport(module, export string) (uintptr, error) {
	addr, ok := p.exports[module+"!"+export]
	if !ok {
		return 0, errors.Errorf("fakeprocess: export %s!%s not registered", module, export)
	}
	return addr, nil
}

// EachRegion calls fn with the base address of every region currently
// allocated, in no particular order, so tests can locate e.g. the return
// table RemoteExecutor.Run allocated without the executor needing to expose
// its internal addresses.
func (p *Process) EachRegion(fn func(addr uintptr)) {
	for base := range p.regions {
		fn(base)
	}
}

func (p *Process) regionFor(addr uintptr, n int) ([]byte, bool) {
	for base, region := range p.regions {
		if addr >= base && addr+uintptr(n) <= base+uintptr(len(region)) {
			return region[addr-base : addr-base+uintptr(n)], true
		}
	}
	return nil, false
}
