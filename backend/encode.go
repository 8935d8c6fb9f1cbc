package backend

import "fmt"

// REX prefix bits (x86-64 instruction encoding, SysV register numbering
// matches package flounder's RAX..R15 constants).
const (
	rexBase = 0x40
	rexW    = 0x08 // 64-bit operand size
	rexR    = 0x04 // extends ModRM.reg
	rexX    = 0x02 // extends SIB.index
	rexB    = 0x01 // extends ModRM.rm
)

func rex(w bool, reg, rm int32) byte {
	b := byte(rexBase)
	if w {
		b |= rexW
	}
	if reg >= 8 {
		b |= rexR
	}
	if rm >= 8 {
		b |= rexB
	}
	return b
}

func modrm(mod, reg, rm int32) byte {
	return byte(mod<<6) | byte((reg&7)<<3) | byte(rm&7)
}

const (
	modReg    = 3 // operand is a register, not a memory reference
	modMemD32 = 2 // [reg + disp32]
	modMem    = 0 // [reg], no displacement
)

// MovRegReg encodes `mov dst, src` for 32 or 64-bit GP registers.
func (w *Writer) MovRegReg(width int, dst, src int32) {
	w.emit(rex(width == 8, src, dst), 0x89, modrm(modReg, src, dst))
}

// MovRegImm64 encodes a full 64-bit immediate load (`movabs`).
func (w *Writer) MovRegImm64(dst int32, imm uint64) {
	w.emit(rex(true, 0, dst), 0xB8+byte(dst&7))
	w.emit64(imm)
}

// MovRegImm32 encodes a 32-bit immediate load. For width 8 it emits
// REX.W C7 /0, which sign-extends the immediate to 64 bits; otherwise
// it emits B8+r, which zero-extends into the full 64-bit register per
// the x86-64 "writes to a 32-bit register zero the upper 32 bits" rule.
func (w *Writer) MovRegImm32(width int, dst int32, imm uint32) {
	if width == 8 {
		w.emit(rex(true, 0, dst), 0xC7, modrm(modReg, 0, dst))
		w.emit32(imm)
		return
	}
	w.maybeRex(width, 0, dst)
	w.emit(0xB8 + byte(dst&7))
	w.emit32(imm)
}

func (w *Writer) maybeRex(width int, reg, rm int32) {
	if width == 8 || reg >= 8 || rm >= 8 {
		w.emit(rex(width == 8, reg, rm))
	}
}

// MovRegMem encodes `mov dst, [base+disp32]`.
func (w *Writer) MovRegMem(width int, dst, base int32, disp int32) {
	w.emit(rex(width == 8, dst, base), 0x8B, modrm(modMemD32, dst, base))
	w.emitDisp(base, disp)
}

// MovMemReg encodes `mov [base+disp32], src`.
func (w *Writer) MovMemReg(width int, base int32, disp int32, src int32) {
	w.emit(rex(width == 8, src, base), 0x89, modrm(modMemD32, src, base))
	w.emitDisp(base, disp)
}

func (w *Writer) emitDisp(base int32, disp int32) {
	if base&7 == 4 { // rsp/r12 require a SIB byte even with no index
		w.emit(0x24)
	}
	w.emit32(uint32(disp))
}

// aluOp encodes the reg,reg form of add/sub/and/or/xor/cmp, which all
// share the same ModRM.reg=src,rm=dst "opcode /r" shape, differing
// only in the base opcode byte.
func (w *Writer) aluOp(opcode byte, width int, dst, src int32) {
	w.emit(rex(width == 8, src, dst), opcode, modrm(modReg, src, dst))
}

func (w *Writer) Add(width int, dst, src int32) { w.aluOp(0x01, width, dst, src) }
func (w *Writer) Sub(width int, dst, src int32) { w.aluOp(0x29, width, dst, src) }
func (w *Writer) And(width int, dst, src int32) { w.aluOp(0x21, width, dst, src) }
func (w *Writer) Or(width int, dst, src int32)  { w.aluOp(0x09, width, dst, src) }
func (w *Writer) Xor(width int, dst, src int32) { w.aluOp(0x31, width, dst, src) }
func (w *Writer) Cmp(width int, a, b int32)     { w.aluOp(0x39, width, a, b) }

// CmpRegImm32 encodes `cmp reg, imm32` (opcode group 1, /7).
func (w *Writer) CmpRegImm32(width int, reg int32, imm int32) {
	w.emit(rex(width == 8, 0, reg), 0x81, modrm(modReg, 7, reg))
	w.emit32(uint32(imm))
}

// Imul encodes the two-operand `imul dst, src` form (0F AF /r).
func (w *Writer) Imul(width int, dst, src int32) {
	w.emit(rex(width == 8, dst, src), 0x0F, 0xAF, modrm(modReg, dst, src))
}

// Inc/Dec encode the single-operand register form (FF /0, FF /1).
func (w *Writer) Inc(width int, reg int32) {
	w.emit(rex(width == 8, 0, reg), 0xFF, modrm(modReg, 0, reg))
}
func (w *Writer) Dec(width int, reg int32) {
	w.emit(rex(width == 8, 0, reg), 0xFF, modrm(modReg, 1, reg))
}

// Div/Idiv operate on rdx:rax (or edx:eax) implicitly; reg is the
// divisor.
func (w *Writer) Div(width int, reg int32)  { w.emit(rex(width == 8, 0, reg), 0xF7, modrm(modReg, 6, reg)) }
func (w *Writer) Idiv(width int, reg int32) { w.emit(rex(width == 8, 0, reg), 0xF7, modrm(modReg, 7, reg)) }

// Cdqe sign-extends eax into rax (48 98).
func (w *Writer) Cdqe() { w.emit(0x48, 0x98) }

// Cqo sign-extends rax into rdx:rax (48 99).
func (w *Writer) Cqo() { w.emit(0x48, 0x99) }

// Crc32 encodes crc32 dst, src (64-bit form: F2 REX.W 0F 38 F1 /r).
func (w *Writer) Crc32(dst, src int32) {
	w.emit(0xF2, rex(true, dst, src), 0x0F, 0x38, 0xF1, modrm(modReg, dst, src))
}

// Lea encodes `lea dst, [base+disp32]`.
func (w *Writer) Lea(dst, base int32, disp int32) {
	w.emit(rex(true, dst, base), 0x8D, modrm(modMemD32, dst, base))
	w.emitDisp(base, disp)
}

// Push/Pop encode the single-byte-opcode-plus-register-in-opcode forms.
func (w *Writer) Push(reg int32) {
	w.maybeRexB(reg)
	w.emit(0x50 + byte(reg&7))
}
func (w *Writer) Pop(reg int32) {
	w.maybeRexB(reg)
	w.emit(0x58 + byte(reg&7))
}
func (w *Writer) maybeRexB(reg int32) {
	if reg >= 8 {
		w.emit(rexBase | rexB)
	}
}

// Ret encodes a near return (C3).
func (w *Writer) Ret() { w.emit(0xC3) }

// Syscall encodes the syscall instruction (0F 05).
func (w *Writer) Syscall() { w.emit(0x0F, 0x05) }

// CallRel32 encodes a direct near call to a forward/backward label.
func (w *Writer) CallRel32(label int) {
	w.emit(0xE8)
	w.addFixup(label, 4, true)
	w.emit32(0)
}

// CallReg encodes an indirect call through a register (FF /2).
func (w *Writer) CallReg(reg int32) {
	w.emit(rex(false, 0, reg), 0xFF, modrm(modReg, 2, reg))
}

// CallAbs encodes an indirect call through a 64-bit immediate address
// loaded into a scratch register (rax) immediately beforehand — used
// for managed calls to Go runtime helper functions, whose addresses are
// only known at compile time, not encodable as a rel32 displacement
// from a heap-allocated code page.
func (w *Writer) CallAbs(scratch int32, addr uint64) {
	w.MovRegImm64(scratch, addr)
	w.CallReg(scratch)
}

// Jmp encodes an unconditional near jump to label (rel32).
func (w *Writer) Jmp(label int) {
	w.emit(0xE9)
	w.addFixup(label, 4, true)
	w.emit32(0)
}

// condCode maps the flounder conditional-jump kinds to their Jcc
// secondary opcode byte (0F 8x rel32 form).
var condCode = map[string]byte{
	"je": 0x84, "jne": 0x85, "jl": 0x8C, "jle": 0x8E, "jg": 0x8F, "jge": 0x8D,
}

// Jcc encodes a conditional near jump (rel32) for one of je/jne/jl/
// jle/jg/jge.
func (w *Writer) Jcc(cc string, label int) error {
	op, ok := condCode[cc]
	if !ok {
		return fmt.Errorf("backend: unknown condition code %q", cc)
	}
	w.emit(0x0F, op)
	w.addFixup(label, 4, true)
	w.emit32(0)
	return nil
}

// PlaceLabel marks the current position as the target of any fixups
// referencing id — an alias for MarkLabel with the encoder's naming.
func (w *Writer) PlaceLabel(id int) { w.MarkLabel(id) }
