package remotecall

import "fmt"

// x64 register indices, matching the teacher's convention: low three bits
// select the ModR/M field, bit 3 (>= 8) selects whether REX.R/X/B must be
// set (tinyrange-rtg/std/compiler/x64.go).
const (
	rax = 0
	rcx = 1
	rdx = 2
	rbx = 3
	rsp = 4
	rbp = 5
	rsi = 6
	rdi = 7
	r8  = 8
	r9  = 9
	r10 = 10
	r11 = 11
)

// amd64Stub implements StubAssembler for the single Microsoft x64
// convention (spec.md ss4.3.2). Every CallingConvention tag other than an
// explicitly unsupported one collapses to this one ABI; the caller-supplied
// convention does not change a byte of what this back-end emits.
type amd64Stub struct{}

func (amd64Stub) Arch() Arch { return ArchAMD64 }

// amd64GPRArgOrder is the Microsoft x64 integer/pointer argument register
// order for positions 0-3.
var amd64GPRArgOrder = [4]int{rcx, rdx, r8, r9}

func (amd64Stub) Assemble(calls []call, addrs remoteAddrs) ([]byte, error) {
	off := offsetsFor(ArchAMD64)
	c := &codeBuf{}

	// Entry: RSP is 8 mod 16 here (standard call-site entry state). push
	// rbp brings it to 0 mod 16; push rbx is a second (odd relative to
	// that pair) 8-byte push, which would leave RSP at 8 mod 16 again --
	// misaligned for any callee that executes an aligned SSE instruction
	// against its own frame. The extra 8-byte reservation below is pure
	// padding (never read or written) that re-aligns RSP to 0 mod 16
	// before any per-call frame arithmetic, matching this back-end's
	// stated invariant that every CALL site sees RSP ≡ 0 mod 16
	// (spec.md ss4.3.2).
	pushReg64(c, rbp)
	movRegReg64(c, rbp, rsp)
	pushReg64(c, rbx) // callee-saved scratch we use as a secondary base below
	subRegImm32(c, rsp, 8)

	for i, cl := range calls {
		recAddr := addrs.ReturnTable + uintptr(i*returnRecordSize(ArchAMD64))

		stackArgs := 0
		if n := len(cl.args) - 4; n > 0 {
			stackArgs = n
		}
		frame := roundUp(32+stackArgs*8, 16)
		assertAligned16(frame) // every CALL below assumes RSP stays 16-byte aligned across this frame
		subRegImm32(c, rsp, uint32(frame))

		// SetLastError(0) before the callee, per spec.md ss4.3.3.
		xorRegReg32(c, rcx, rcx)
		callAbs(c, r11, addrs.SetLastError)

		// Marshal arguments: position (not kind) selects the register
		// index; the unused parallel register in the other bank is left
		// untouched (spec.md ss4.3.2).
		for p, a := range cl.args {
			if p < 4 {
				switch a.tag {
				case TagI32:
					movRegImm32(c, amd64GPRArgOrder[p], a.i32)
				case TagI64:
					movRegImm64(c, amd64GPRArgOrder[p], a.i64)
				case TagF32:
					movRegImm32(c, rax, f32Bits(a.f32))
					movGPRToXmm32(c, p, rax)
				case TagF64:
					movRegImm64(c, rax, f64Bits(a.f64))
					movGPRToXmm64(c, p, rax)
				}
				continue
			}
			disp := int32(0x20 + (p-4)*8)
			switch a.tag {
			case TagI32:
				movRegImm32(c, rax, a.i32)
			case TagI64:
				movRegImm64(c, rax, a.i64)
			case TagF32:
				movRegImm32(c, rax, f32Bits(a.f32))
			case TagF64:
				movRegImm64(c, rax, f64Bits(a.f64))
			}
			storeReg64ToMem(c, rsp, disp, rax)
		}

		callAbs(c, r11, cl.addr)

		// Harvest the return value before GetLastError can disturb it
		// (spec.md ss4.3.1 return-harvesting table, ss4.3.3 ordering).
		movRegImm64(c, r10, uint64(recAddr))
		storeReg64ToMem(c, r10, int32(off.ptr), rax)
		storeReg32ToMem(c, r10, int32(off.i32), rax)
		storeReg64ToMem(c, r10, int32(off.i64), rax)
		storeXmmToMem(c, r10, int32(off.f32), 0, false)
		storeXmmToMem(c, r10, int32(off.f64), 0, true)

		callAbs(c, r11, addrs.GetLastError)
		movRegImm64(c, r10, uint64(recAddr))
		storeReg32ToMem(c, r10, int32(off.lastError), rax)

		addRegImm32(c, rsp, uint32(frame))
	}

	addRegImm32(c, rsp, 8) // undo the entry padding before rbx's saved slot is popped
	popReg64(c, rbx)
	movRegReg64(c, rsp, rbp)
	popReg64(c, rbp)
	c.emitByte(0xc3) // ret

	return c.bytes(), nil
}

// === x64 byte-level encoders ===
//
// These mirror the bit-twiddling in tinyrange-rtg/std/compiler/x64.go
// (REX computation, B8+rd immediate loads, ModR/M construction) adapted
// from a multi-function compiler back-end down to the handful of
// instruction shapes a straight-line call stub needs: no locals frame, no
// relocations, no jumps.

func rex(w, r, x, b bool) byte {
	var v byte = 0x40
	if w {
		v |= 0x08
	}
	if r {
		v |= 0x04
	}
	if x {
		v |= 0x02
	}
	if b {
		v |= 0x01
	}
	return v
}

func pushReg64(c *codeBuf, reg int) {
	if reg >= 8 {
		c.emitByte(rex(false, false, false, true))
	}
	c.emitByte(byte(0x50 + (reg & 7)))
}

func popReg64(c *codeBuf, reg int) {
	if reg >= 8 {
		c.emitByte(rex(false, false, false, true))
	}
	c.emitByte(byte(0x58 + (reg & 7)))
}

func movRegReg64(c *codeBuf, dst, src int) {
	c.emitByte(rex(true, src >= 8, false, dst >= 8))
	c.emitBytes(0x89, modrm(3, src&7, dst&7))
}

func movRegImm32(c *codeBuf, reg int, val uint32) {
	if reg >= 8 {
		c.emitByte(rex(false, false, false, true))
	}
	c.emitByte(byte(0xb8 + (reg & 7)))
	c.emitU32(val)
}

func movRegImm64(c *codeBuf, reg int, val uint64) {
	c.emitByte(rex(true, false, false, reg >= 8))
	c.emitByte(byte(0xb8 + (reg & 7)))
	c.emitU64(val)
}

func xorRegReg32(c *codeBuf, dst, src int) {
	if dst >= 8 || src >= 8 {
		c.emitByte(rex(false, src >= 8, false, dst >= 8))
	}
	c.emitBytes(0x31, modrm(3, src&7, dst&7))
}

func subRegImm32(c *codeBuf, reg int, val uint32) {
	c.emitByte(rex(true, false, false, reg >= 8))
	c.emitBytes(0x81, modrm(3, 5, reg&7))
	c.emitU32(val)
}

func addRegImm32(c *codeBuf, reg int, val uint32) {
	c.emitByte(rex(true, false, false, reg >= 8))
	c.emitBytes(0x81, modrm(3, 0, reg&7))
	c.emitU32(val)
}

// memOperand emits the ModR/M (+ SIB, when base is RSP/R12) + disp32 for
// [base+disp], with regField as the instruction's other operand (register
// or opcode extension).
func memOperand(c *codeBuf, regField, base int, disp int32) {
	rm := base & 7
	c.emitByte(modrm(2, regField, rm))
	if rm == 4 {
		c.emitByte(0x24) // SIB: no index, base = RSP/R12
	}
	c.emitU32(uint32(disp))
}

// callAbs loads addr into scratch and emits `call scratch`.
func callAbs(c *codeBuf, scratch int, addr uintptr) {
	movRegImm64(c, scratch, uint64(addr))
	c.emitByte(rex(false, false, false, scratch >= 8))
	c.emitBytes(0xff, modrm(3, 2, scratch&7))
}

func storeReg64ToMem(c *codeBuf, base int, disp int32, src int) {
	c.emitByte(rex(true, src >= 8, false, base >= 8))
	c.emitByte(0x89)
	memOperand(c, src&7, base, disp)
}

func storeReg32ToMem(c *codeBuf, base int, disp int32, src int) {
	if src >= 8 || base >= 8 {
		c.emitByte(rex(false, src >= 8, false, base >= 8))
	}
	c.emitByte(0x89)
	memOperand(c, src&7, base, disp)
}

// movGPRToXmm32 emits `movd xmm, gpr32` (66 0F 6E /r).
func movGPRToXmm32(c *codeBuf, xmm, gpr int) {
	c.emitByte(0x66)
	if xmm >= 8 || gpr >= 8 {
		c.emitByte(rex(false, xmm >= 8, false, gpr >= 8))
	}
	c.emitBytes(0x0f, 0x6e)
	c.emitByte(modrm(3, xmm&7, gpr&7))
}

// movGPRToXmm64 emits `movq xmm, gpr64` (66 REX.W 0F 6E /r).
func movGPRToXmm64(c *codeBuf, xmm, gpr int) {
	c.emitByte(0x66)
	c.emitByte(rex(true, xmm >= 8, false, gpr >= 8))
	c.emitBytes(0x0f, 0x6e)
	c.emitByte(modrm(3, xmm&7, gpr&7))
}

// storeXmmToMem emits `movss [base+disp], xmmN` or, if double, `movsd`.
func storeXmmToMem(c *codeBuf, base int, disp int32, xmm int, double bool) {
	if double {
		c.emitByte(0xf2)
	} else {
		c.emitByte(0xf3)
	}
	if xmm >= 8 || base >= 8 {
		c.emitByte(rex(false, xmm >= 8, false, base >= 8))
	}
	c.emitBytes(0x0f, 0x11)
	memOperand(c, xmm&7, base, disp)
}

// assertAligned16 panics if offset is not a multiple of 16. It guards the
// static stack-alignment arithmetic Assemble computes for every per-call
// frame (spec.md ss4.3.2 requires RSP aligned to 16 immediately before each
// CALL): a non-multiple here means this back-end itself miscomputed a
// frame size, not a condition any caller input can trigger, so a panic
// rather than a returned error is the right signal (SPEC_FULL.md ss D.4).
func assertAligned16(offset int) {
	if offset%16 != 0 {
		panic(fmt.Sprintf("remotecall: x64 stub frame size %d is not 16-byte aligned", offset))
	}
}
