package amd64

// This file contains x86_64 instruction encoders for the subset the front
// end emits. Each function returns the machine code bytes for one
// instruction or a short, fixed composite of instructions.
//
// For details on x86-64 instruction encoding (REX prefixes, ModRM, SIB
// bytes), see: https://wiki.osdev.org/X86-64_Instruction_Encoding
//
// Register convention used by the codegen layer above this package:
//
//	RAX  "first" register — expression results, syscall number/result
//	RCX  "second" register — right-hand operand, address scratch
//	RBP  frame pointer, RSP stack pointer
//	RDI, RSI, RDX, R10, R8, R9  syscall args 0..5, in order
//
// Frame-relative loads/stores always use the disp32 ModRM form even when a
// disp8 would fit: mod=00/rm=101 is reserved for RIP-relative addressing
// rather than "[rbp], no displacement", so disp32 sidesteps that case.

// PushRax encodes: push %rax (50)
func PushRax() []byte { return []byte{0x50} }

// PushRcx encodes: push %rcx (51)
func PushRcx() []byte { return []byte{0x51} }

// PopRax encodes: pop %rax (58)
func PopRax() []byte { return []byte{0x58} }

// PopRcx encodes: pop %rcx (59)
func PopRcx() []byte { return []byte{0x59} }

// PushRbp encodes: push %rbp (55)
func PushRbp() []byte { return []byte{0x55} }

// PopRbp encodes: pop %rbp (5D)
func PopRbp() []byte { return []byte{0x5D} }

// Leave encodes: leave (C9). Equivalent to movq %rbp, %rsp; popq %rbp.
func Leave() []byte { return []byte{0xC9} }

// Ret encodes: ret (C3)
func Ret() []byte { return []byte{0xC3} }

// Syscall encodes: syscall (0F 05)
func Syscall() []byte { return []byte{0x0F, 0x05} }

// MovRbpRsp encodes: movq %rsp, %rbp (48 89 E5)
func MovRbpRsp() []byte { return []byte{0x48, 0x89, 0xE5} }

// Prologue encodes a function prologue: push %rbp; movq %rsp, %rbp.
func Prologue() []byte {
	out := PushRbp()
	return append(out, MovRbpRsp()...)
}

// Epilogue encodes a function epilogue: leave; ret.
func Epilogue() []byte {
	out := Leave()
	return append(out, Ret()...)
}

// SubRspImm32 encodes: subq $imm32, %rsp (48 81 EC <imm32>)
// Reserves stack space for locals.
func SubRspImm32(imm32 int32) []byte {
	// 48 = REX.W, 81 /5 id = sub r/m64, imm32, ModRM C4 -> EC selects /5 on rsp
	buf := make([]byte, 7)
	buf[0] = 0x48
	buf[1] = 0x81
	buf[2] = 0xEC
	writeLE32(buf[3:], uint32(imm32))
	return buf
}

// AddRspImm32 encodes: addq $imm32, %rsp (48 81 C4 <imm32>)
// Releases stack space reserved by SubRspImm32; used literally by the
// function epilogue ("add 256, pop frame pointer, return") rather than
// leave, so the released amount is visible at the call site.
func AddRspImm32(imm32 int32) []byte {
	buf := make([]byte, 7)
	buf[0] = 0x48
	buf[1] = 0x81
	buf[2] = 0xC4
	writeLE32(buf[3:], uint32(imm32))
	return buf
}

// KeepSpin encodes the `keep` statement's tight self-loop:
// pause (F3 90); jmp rel8 back to the pause (EB FC).
func KeepSpin() []byte {
	return []byte{0xF3, 0x90, 0xEB, 0xFC}
}

// --- immediate loads into the argument/accumulator registers ---

func movImm32(rex, modrm byte, imm32 int32) []byte {
	buf := make([]byte, 7)
	buf[0] = rex
	buf[1] = 0xC7
	buf[2] = modrm
	writeLE32(buf[3:], uint32(imm32))
	return buf
}

// MovImm32Rax encodes: movq $imm32, %rax (48 C7 C0 <imm32>)
func MovImm32Rax(imm32 int32) []byte { return movImm32(0x48, 0xC0, imm32) }

// MovImm32Rcx encodes: movq $imm32, %rcx (48 C7 C1 <imm32>)
func MovImm32Rcx(imm32 int32) []byte { return movImm32(0x48, 0xC1, imm32) }

// MovImm32Rdi encodes: movq $imm32, %rdi (48 C7 C7 <imm32>)
func MovImm32Rdi(imm32 int32) []byte { return movImm32(0x48, 0xC7, imm32) }

// MovImm32Rsi encodes: movq $imm32, %rsi (48 C7 C6 <imm32>)
func MovImm32Rsi(imm32 int32) []byte { return movImm32(0x48, 0xC6, imm32) }

// MovImm32Rdx encodes: movq $imm32, %rdx (48 C7 C2 <imm32>)
func MovImm32Rdx(imm32 int32) []byte { return movImm32(0x48, 0xC2, imm32) }

// MovImm32R10 encodes: movq $imm32, %r10 (49 C7 C2 <imm32>)
// REX.WB (49) since r10 needs REX.B on the r/m field.
func MovImm32R10(imm32 int32) []byte { return movImm32(0x49, 0xC2, imm32) }

// MovImm32R8 encodes: movq $imm32, %r8 (49 C7 C0 <imm32>)
func MovImm32R8(imm32 int32) []byte { return movImm32(0x49, 0xC0, imm32) }

// MovImm32R9 encodes: movq $imm32, %r9 (49 C7 C1 <imm32>)
func MovImm32R9(imm32 int32) []byte { return movImm32(0x49, 0xC1, imm32) }

// SyscallArgMovers holds the six argument-register immediate-load encoders
// in System V syscall order (arg0..arg5): rdi, rsi, rdx, r10, r8, r9.
var SyscallArgMovers = [6]func(int32) []byte{
	MovImm32Rdi, MovImm32Rsi, MovImm32Rdx, MovImm32R10, MovImm32R8, MovImm32R9,
}

// MovRdiRax encodes: movq %rax, %rdi (48 89 C7)
func MovRdiRax() []byte { return []byte{0x48, 0x89, 0xC7} }

// MovRsiRax encodes: movq %rax, %rsi (48 89 C6)
func MovRsiRax() []byte { return []byte{0x48, 0x89, 0xC6} }

// MovRdxRax encodes: movq %rax, %rdx (48 89 C2)
func MovRdxRax() []byte { return []byte{0x48, 0x89, 0xC2} }

// MovR10Rax encodes: movq %rax, %r10 (49 89 C2)
func MovR10Rax() []byte { return []byte{0x49, 0x89, 0xC2} }

// MovR8Rax encodes: movq %rax, %r8 (49 89 C0)
func MovR8Rax() []byte { return []byte{0x49, 0x89, 0xC0} }

// MovR9Rax encodes: movq %rax, %r9 (49 89 C1)
func MovR9Rax() []byte { return []byte{0x49, 0x89, 0xC1} }

// SyscallArgMoversFromRax holds the register-to-register counterpart of
// SyscallArgMovers: each moves the value currently in %rax into the
// corresponding argument register, used when an argument value was
// computed rather than given as a literal.
var SyscallArgMoversFromRax = [6]func() []byte{
	MovRdiRax, MovRsiRax, MovRdxRax, MovR10Rax, MovR8Rax, MovR9Rax,
}

// MovabsRax encodes: movabs $imm64, %rax (48 B8 <imm64>)
func MovabsRax(imm64 uint64) []byte {
	buf := make([]byte, 10)
	buf[0] = 0x48
	buf[1] = 0xB8
	writeLE64(buf[2:], imm64)
	return buf
}

// MovabsRcx encodes: movabs $imm64, %rcx (48 B9 <imm64>)
func MovabsRcx(imm64 uint64) []byte {
	buf := make([]byte, 10)
	buf[0] = 0x48
	buf[1] = 0xB9
	writeLE64(buf[2:], imm64)
	return buf
}

// --- absolute-address load/store composites (globals) ---

// LoadAbs encodes a 64-bit load from a fixed absolute address into %rax:
// movabs $addr, %rax; movq (%rax), %rax.
func LoadAbs(addr uint64) []byte {
	out := MovabsRax(addr)
	return append(out, 0x48, 0x8B, 0x00) // movq (%rax), %rax
}

// StoreAbs encodes a 64-bit store of %rax to a fixed absolute address. %rax
// is spilled across the address materialization so it isn't clobbered:
// push %rax; movabs $addr, %rcx; pop %rax; movq %rax, (%rcx).
func StoreAbs(addr uint64) []byte {
	out := PushRax()
	out = append(out, MovabsRcx(addr)...)
	out = append(out, PopRax()...)
	return append(out, 0x48, 0x89, 0x01) // movq %rax, (%rcx)
}

// --- frame-relative (RBP) load/store ---

// LoadFrame encodes: movq disp32(%rbp), %rax
func LoadFrame(disp int32) []byte {
	buf := make([]byte, 7)
	buf[0] = 0x48
	buf[1] = 0x8B
	buf[2] = 0x85
	writeLE32(buf[3:], uint32(disp))
	return buf
}

// StoreFrame encodes: movq %rax, disp32(%rbp)
func StoreFrame(disp int32) []byte {
	buf := make([]byte, 7)
	buf[0] = 0x48
	buf[1] = 0x89
	buf[2] = 0x85
	writeLE32(buf[3:], uint32(disp))
	return buf
}

// MovRcxRax encodes: movq %rax, %rcx (48 89 C1). Used when a binary
// expression's right-hand side lands in %rax and needs to move out of the
// way before the left-hand side is popped back into %rax.
func MovRcxRax() []byte { return []byte{0x48, 0x89, 0xC1} }

// --- arithmetic: %rax op= %rcx ---

// AddRaxRcx encodes: addq %rcx, %rax (48 01 C8)
func AddRaxRcx() []byte { return []byte{0x48, 0x01, 0xC8} }

// SubRaxRcx encodes: subq %rcx, %rax (48 29 C8)
func SubRaxRcx() []byte { return []byte{0x48, 0x29, 0xC8} }

// ImulRaxRcx encodes: imulq %rcx, %rax (48 0F AF C1)
func ImulRaxRcx() []byte { return []byte{0x48, 0x0F, 0xAF, 0xC1} }

// IdivRcx encodes a signed division of %rax by %rcx, quotient left in
// %rax: cqo (48 99); idivq %rcx (48 F7 F9). cqo sign-extends %rax into
// %rdx:%rax first, as idiv requires.
func IdivRcx() []byte {
	return []byte{0x48, 0x99, 0x48, 0xF7, 0xF9}
}

// --- comparisons: cmp %rcx, %rax then setcc + zero-extend ---

func compareSet(op byte) []byte {
	out := []byte{0x48, 0x39, 0xC8} // cmp %rcx, %rax
	out = append(out, 0x0F, op, 0xC0)
	return append(out, 0x0F, 0xB6, 0xC0) // movzx %eax, %al
}

// CompareSetEQ encodes: cmp %rcx,%rax; sete %al; movzx %eax,%al
func CompareSetEQ() []byte { return compareSet(0x94) }

// CompareSetNE encodes: cmp %rcx,%rax; setne %al; movzx %eax,%al
func CompareSetNE() []byte { return compareSet(0x95) }

// CompareSetLT encodes: cmp %rcx,%rax; setl %al; movzx %eax,%al
func CompareSetLT() []byte { return compareSet(0x9C) }

// CompareSetLE encodes: cmp %rcx,%rax; setle %al; movzx %eax,%al
func CompareSetLE() []byte { return compareSet(0x9E) }

// CompareSetGT encodes: cmp %rcx,%rax; setg %al; movzx %eax,%al
func CompareSetGT() []byte { return compareSet(0x9F) }

// CompareSetGE encodes: cmp %rcx,%rax; setge %al; movzx %eax,%al
func CompareSetGE() []byte { return compareSet(0x9D) }

// --- control flow fixup sites ---

// TestRaxRax encodes: testq %rax, %rax (48 85 C0)
func TestRaxRax() []byte { return []byte{0x48, 0x85, 0xC0} }

// JzRel32 encodes: jz rel32 (0F 84 <rel32>). rel32 is relative to the
// address immediately following this instruction.
func JzRel32(rel32 int32) []byte {
	buf := make([]byte, 6)
	buf[0] = 0x0F
	buf[1] = 0x84
	writeLE32(buf[2:], uint32(rel32))
	return buf
}

// JnzRel32 encodes: jnz rel32 (0F 85 <rel32>)
func JnzRel32(rel32 int32) []byte {
	buf := make([]byte, 6)
	buf[0] = 0x0F
	buf[1] = 0x85
	writeLE32(buf[2:], uint32(rel32))
	return buf
}

// JmpRel32 encodes: jmp rel32 (E9 <rel32>)
func JmpRel32(rel32 int32) []byte {
	buf := make([]byte, 5)
	buf[0] = 0xE9
	writeLE32(buf[1:], uint32(rel32))
	return buf
}

// CallRel32 encodes: call rel32 (E8 <rel32>)
func CallRel32(rel32 int32) []byte {
	buf := make([]byte, 5)
	buf[0] = 0xE8
	writeLE32(buf[1:], uint32(rel32))
	return buf
}

// --- RIP-relative string/data addressing ---

// LeaRipRsi encodes: leaq disp32(%rip), %rsi (48 8D 35 <disp32>). disp32
// is relative to the address of the byte immediately following this
// instruction; the caller computes it since this instruction's length is
// fixed at 7 bytes.
func LeaRipRsi(disp32 int32) []byte {
	buf := make([]byte, 7)
	buf[0] = 0x48
	buf[1] = 0x8D
	buf[2] = 0x35
	writeLE32(buf[3:], uint32(disp32))
	return buf
}

// LeaRipRax encodes: leaq disp32(%rip), %rax (48 8D 05 <disp32>), the same
// convention as LeaRipRsi but targeting %rax for expression-context string
// literals (which evaluate to an address, not a write call).
func LeaRipRax(disp32 int32) []byte {
	buf := make([]byte, 7)
	buf[0] = 0x48
	buf[1] = 0x8D
	buf[2] = 0x05
	writeLE32(buf[3:], uint32(disp32))
	return buf
}

// --- byte-at-address peek/poke ---

// PeekByte encodes a byte load from the address in %rax into %rax, zero
// extended: movb (%rax), %al; movzx %eax, %al.
func PeekByte() []byte {
	return []byte{0x8A, 0x00, 0x0F, 0xB6, 0xC0}
}

// PokeByte encodes a byte store of %al to the address in %rcx: movb %al, (%rcx).
func PokeByte() []byte {
	return []byte{0x88, 0x01}
}

// --- stack red-zone byte I/O helpers (putchar/byte/getchar) ---

// redZoneDisp is the displacement below %rsp used as scratch space for
// single-byte stdio transfers; 8 bytes sits comfortably inside the
// 128-byte System V red zone, so no stack adjustment is needed around it.
var redZoneDisp int8 = -8

// StoreByteRedZone encodes: movb %al, -8(%rsp)
func StoreByteRedZone() []byte {
	return []byte{0x88, 0x44, 0x24, byte(int8(redZoneDisp))}
}

// LoadByteRedZone encodes: movb -8(%rsp), %al; movzx %eax, %al
func LoadByteRedZone() []byte {
	return []byte{0x8A, 0x44, 0x24, byte(int8(redZoneDisp)), 0x0F, 0xB6, 0xC0}
}

// LeaRedZoneRsi encodes: leaq -8(%rsp), %rsi
func LeaRedZoneRsi() []byte {
	return []byte{0x48, 0x8D, 0x74, 0x24, byte(int8(redZoneDisp))}
}
