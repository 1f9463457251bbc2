package remotecall

// x86 (32-bit) register indices, shared ModR/M encoding space with x64 but
// no REX prefixes ever apply here (tinyrange-rtg/std/compiler/i386.go).
const (
	eax = 0
	ecx = 1
	edx = 2
	ebx = 3
	esp = 4
	ebp = 5
)

// x86Stub implements StubAssembler for the five 32-bit conventions spec.md
// ss4.3.1 enumerates. Unlike amd64Stub, the byte sequence genuinely differs
// per call depending on its CallingConvention: register-vs-stack argument
// assignment and who tears down the stack afterward.
type x86Stub struct{}

func (x86Stub) Arch() Arch { return Arch386 }

func (x86Stub) Assemble(calls []call, addrs remoteAddrs) ([]byte, error) {
	off := offsetsFor(Arch386)
	c := &codeBuf{}

	pushReg32(c, ebp)
	movRegReg32(c, ebp, esp)
	pushReg32(c, ebx) // persistent scratch: holds the current ReturnRecord address

	for i, cl := range calls {
		recAddr := addrs.ReturnTable + uintptr(i*returnRecordSize(Arch386))

		// SetLastError(0): stdcall, one stack arg, callee cleans up.
		pushImm32(c, 0)
		callAbs32(c, addrs.SetLastError)

		regArgs, stackArgs := splitX86Args(cl.conv, cl.args)

		pushedBytes := 0
		for k := len(stackArgs) - 1; k >= 0; k-- {
			pushedBytes += pushArg32(c, stackArgs[k])
		}

		// fastcall/thiscall register args load last so they are not
		// clobbered by any of the stack-argument immediate loads above.
		for _, ra := range regArgs {
			movReg32Imm32(c, ra.reg, ra.imm)
		}

		movReg32Imm32(c, ebx, uint32(recAddr))
		callAbs32(c, cl.addr)

		if !cl.conv.calleeCleansStack() && pushedBytes > 0 {
			addReg32Imm32(c, esp, uint32(pushedBytes))
		}

		// Harvest EAX/EDX:EAX and ST(0) before GetLastError can disturb
		// them (spec.md ss4.3.1 x86 return-harvesting rules).
		storeReg32ToMem32(c, ebx, int32(off.i32), eax)
		storeReg32ToMem32(c, ebx, int32(off.i64), eax)   // low 32 bits
		storeReg32ToMem32(c, ebx, int32(off.i64)+4, edx) // high 32 bits
		storeReg32ToMem32(c, ebx, int32(off.ptr), eax)
		// Non-popping double store must precede the popping single-precision
		// store below, or the second read finds an empty FPU stack.
		fstMem64(c, ebx, int32(off.f64))
		fstpMem32(c, ebx, int32(off.f32))

		callAbs32(c, addrs.GetLastError)
		storeReg32ToMem32(c, ebx, int32(off.lastError), eax)
	}

	popReg32(c, ebx)
	movRegReg32(c, esp, ebp)
	popReg32(c, ebp)
	c.emitByte(0xc3)

	return c.bytes(), nil
}

// regArg32 is a register that must be loaded with imm before the call.
type regArg32 struct {
	reg int
	imm uint32
}

// splitX86Args assigns each argument to a register or a stack slot
// according to conv (spec.md ss4.3.1): Cdecl/StdCall/Default/WinApi push
// everything; ThisCall takes its first argument in ECX when that argument is
// a 32-bit integer (TagI32), and otherwise pushes every argument, the first
// included; FastCall takes its first two 32-bit-or-narrower arguments in ECX
// then EDX, with any 8-byte argument always going to the stack regardless of
// position (SPEC_FULL.md ss E). Floats and doubles are never
// register-eligible on x86; their bit patterns are always pushed on the
// stack.
func splitX86Args(conv CallingConvention, args ArgList) ([]regArg32, []ArgRecord) {
	var regs []regArg32
	var stack []ArgRecord

	switch conv {
	case ThisCall:
		if len(args) > 0 && args[0].tag == TagI32 && args[0].Width() == 4 {
			regs = append(regs, regArg32{ecx, args[0].i32})
			args = args[1:]
		}
		stack = append(stack, args...)
	case FastCall:
		slot := 0
		rest := make(ArgList, 0, len(args))
		order := [2]int{ecx, edx}
		for _, a := range args {
			if slot < 2 && a.Width() == 4 && (a.tag == TagI32) {
				regs = append(regs, regArg32{order[slot], a.i32})
				slot++
				continue
			}
			rest = append(rest, a)
		}
		stack = append(stack, rest...)
	default: // Default, WinApi, Cdecl, StdCall: pure stack
		stack = append(stack, args...)
	}
	return regs, stack
}

// pushArg32 pushes one argument's bit pattern, high dword first for 8-byte
// values so the low dword ends at the lower address (spec.md ss4.3.1:
// stack grows down, 8-byte args occupy two slots with the C ABI's
// little-endian word order). Returns the number of bytes pushed.
func pushArg32(c *codeBuf, a ArgRecord) int {
	switch a.tag {
	case TagI64:
		pushImm32(c, uint32(a.i64>>32))
		pushImm32(c, uint32(a.i64))
		return 8
	case TagF64:
		bits := f64Bits(a.f64)
		pushImm32(c, uint32(bits>>32))
		pushImm32(c, uint32(bits))
		return 8
	case TagF32:
		pushImm32(c, f32Bits(a.f32))
		return 4
	default: // TagI32
		pushImm32(c, a.i32)
		return 4
	}
}

// === x86 byte-level encoders (no REX; same ModR/M shapes as x64) ===

func pushReg32(c *codeBuf, reg int) { c.emitByte(byte(0x50 + reg)) }
func popReg32(c *codeBuf, reg int)  { c.emitByte(byte(0x58 + reg)) }

func pushImm32(c *codeBuf, v uint32) {
	c.emitByte(0x68)
	c.emitU32(v)
}

func movRegReg32(c *codeBuf, dst, src int) {
	c.emitBytes(0x89, modrm(3, src, dst))
}

func movReg32Imm32(c *codeBuf, reg int, v uint32) {
	c.emitByte(byte(0xb8 + reg))
	c.emitU32(v)
}

func addReg32Imm32(c *codeBuf, reg int, v uint32) {
	c.emitBytes(0x81, modrm(3, 0, reg))
	c.emitU32(v)
}

// callAbs32 loads addr into EAX and calls it; EAX is always dead across a
// call boundary under every x86 convention this package supports, so it is
// safe to clobber here without saving it.
func callAbs32(c *codeBuf, addr uintptr) {
	movReg32Imm32(c, eax, uint32(addr))
	c.emitBytes(0xff, modrm(3, 2, eax))
}

func memOperand32(c *codeBuf, regField, base int, disp int32) {
	c.emitByte(modrm(2, regField, base))
	if base == esp {
		c.emitByte(0x24)
	}
	c.emitU32(uint32(disp))
}

func storeReg32ToMem32(c *codeBuf, base int, disp int32, src int) {
	c.emitByte(0x89)
	memOperand32(c, src, base, disp)
}

// fstpMem32 emits `fstp dword ptr [base+disp]` (D9 /3), storing ST(0) as
// single precision and popping the FPU stack.
func fstpMem32(c *codeBuf, base int, disp int32) {
	c.emitByte(0xd9)
	memOperand32(c, 3, base, disp)
}

// fstMem64 emits `fst qword ptr [base+disp]` (DD /2), storing a second,
// double-precision copy of the same ST(0) value without popping -- paired
// with fstpMem32 above this gives both ReturnFloat and ReturnDbl from the
// single FPU return value x86 conventions use (spec.md ss4.3.1).
func fstMem64(c *codeBuf, base int, disp int32) {
	c.emitByte(0xdd)
	memOperand32(c, 2, base, disp)
}
