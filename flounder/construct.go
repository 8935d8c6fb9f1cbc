package flounder

// Typed constructors for registers, constants, memory operands, x86
// instructions, vregs and loop markers for every flounder instruction.

// Reg returns a machine register operand node of the given byte width
// (1, 4, or 8) and register number (0-15, SysV numbering: rax=0, rcx=1,
// ..., r15=15 as in original_source/src/flounder/asm_lang.h).
func (a *Arena) Reg(width int, num int32) NodeID {
	return a.alloc(node{kind: KindReg, width: width, id: num, firstChild: InvalidNode, lastChild: InvalidNode, next: InvalidNode, prev: InvalidNode})
}

// Vreg allocates a fresh virtual register node. Width is 1, 4 or 8
// bytes; id is query-unique and assigned by
// the caller (jit.Context owns the counter).
func (a *Arena) Vreg(width int, id int32) NodeID {
	return a.alloc(node{kind: KindVreg, width: width, id: id, firstChild: InvalidNode, lastChild: InvalidNode, next: InvalidNode, prev: InvalidNode})
}

func (a *Arena) ConstI8(v int8) NodeID {
	return a.alloc(node{kind: KindConst, constKind: ConstI8, constI: int64(v), firstChild: InvalidNode, lastChild: InvalidNode, next: InvalidNode, prev: InvalidNode})
}

func (a *Arena) ConstI32(v int32) NodeID {
	return a.alloc(node{kind: KindConst, constKind: ConstI32, constI: int64(v), firstChild: InvalidNode, lastChild: InvalidNode, next: InvalidNode, prev: InvalidNode})
}

func (a *Arena) ConstI64(v int64) NodeID {
	return a.alloc(node{kind: KindConst, constKind: ConstI64, constI: v, firstChild: InvalidNode, lastChild: InvalidNode, next: InvalidNode, prev: InvalidNode})
}

func (a *Arena) ConstF64(v float64) NodeID {
	return a.alloc(node{kind: KindConst, constKind: ConstF64, constF: v, firstChild: InvalidNode, lastChild: InvalidNode, next: InvalidNode, prev: InvalidNode})
}

func (a *Arena) ConstAddress(v uintptr) NodeID {
	return a.alloc(node{kind: KindConst, constKind: ConstAddress, constAddr: v, firstChild: InvalidNode, lastChild: InvalidNode, next: InvalidNode, prev: InvalidNode})
}

// Label creates a label reference node; unique suffixes are the
// caller's responsibility (jit.Context.NextLabel hands out
// "<prefix>_<n>" names).
func (a *Arena) Label(name string) NodeID {
	return a.alloc(node{kind: KindLabel, text: name, firstChild: InvalidNode, lastChild: InvalidNode, next: InvalidNode, prev: InvalidNode})
}

// Mem wraps a register or vreg as a mem[expr] operand. MemAdd and
// MemSub are memory operands themselves and are not wrapped in Mem.
func (a *Arena) Mem(expr NodeID) NodeID {
	return a.wrap1(KindMem, expr)
}

func (a *Arena) MemAdd(base NodeID, offset int32) NodeID {
	n := a.wrap1(KindMemAdd, base)
	a.at(n).id = offset
	return n
}

func (a *Arena) MemSub(base NodeID, offset int32) NodeID {
	n := a.wrap1(KindMemSub, base)
	a.at(n).id = offset
	return n
}

func (a *Arena) wrap1(kind Kind, child NodeID) NodeID {
	n := a.alloc(node{kind: kind, firstChild: InvalidNode, lastChild: InvalidNode, next: InvalidNode, prev: InvalidNode})
	a.AddChild(n, child)
	return n
}

// instr builds a plain instruction node with the given operands added,
// in operand-position order, as children (unary/binary/
// ternary constructors collapse into this single helper — the
// distinction was only ever "how many operand children").
func (a *Arena) instr(kind Kind, operands ...NodeID) NodeID {
	n := a.alloc(node{kind: kind, firstChild: InvalidNode, lastChild: InvalidNode, next: InvalidNode, prev: InvalidNode})
	for _, op := range operands {
		a.AddChild(n, op)
	}
	return n
}

func (a *Arena) Mov(dst, src NodeID) NodeID        { return a.instr(KindMov, dst, src) }
func (a *Arena) Movzx(dst, src NodeID) NodeID      { return a.instr(KindMovzx, dst, src) }
func (a *Arena) Movsx(dst, src NodeID) NodeID      { return a.instr(KindMovsx, dst, src) }
func (a *Arena) Movsxd(dst, src NodeID) NodeID     { return a.instr(KindMovsxd, dst, src) }
func (a *Arena) Lea(dst, src NodeID) NodeID        { return a.instr(KindLea, dst, src) }
func (a *Arena) Add(dst, src NodeID) NodeID        { return a.instr(KindAdd, dst, src) }
func (a *Arena) Sub(dst, src NodeID) NodeID        { return a.instr(KindSub, dst, src) }
func (a *Arena) Imul(dst, src NodeID) NodeID       { return a.instr(KindImul, dst, src) }
func (a *Arena) Div(src NodeID) NodeID             { return a.instr(KindDiv, src) }
func (a *Arena) Idiv(src NodeID) NodeID            { return a.instr(KindIdiv, src) }
func (a *Arena) And(dst, src NodeID) NodeID        { return a.instr(KindAnd, dst, src) }
func (a *Arena) Or(dst, src NodeID) NodeID         { return a.instr(KindOr, dst, src) }
func (a *Arena) Xor(dst, src NodeID) NodeID        { return a.instr(KindXor, dst, src) }
func (a *Arena) Cmp(a1, a2 NodeID) NodeID          { return a.instr(KindCmp, a1, a2) }
func (a *Arena) Inc(dst NodeID) NodeID             { return a.instr(KindInc, dst) }
func (a *Arena) Dec(dst NodeID) NodeID             { return a.instr(KindDec, dst) }
func (a *Arena) Cdqe() NodeID                      { return a.instr(KindCdqe) }
func (a *Arena) Cqo() NodeID                       { return a.instr(KindCqo) }
func (a *Arena) Crc32(dst, src NodeID) NodeID      { return a.instr(KindCrc32, dst, src) }
func (a *Arena) Jmp(label NodeID) NodeID           { return a.instr(KindJmp, label) }
func (a *Arena) Je(label NodeID) NodeID            { return a.instr(KindJe, label) }
func (a *Arena) Jne(label NodeID) NodeID           { return a.instr(KindJne, label) }
func (a *Arena) Jl(label NodeID) NodeID            { return a.instr(KindJl, label) }
func (a *Arena) Jle(label NodeID) NodeID           { return a.instr(KindJle, label) }
func (a *Arena) Jg(label NodeID) NodeID            { return a.instr(KindJg, label) }
func (a *Arena) Jge(label NodeID) NodeID           { return a.instr(KindJge, label) }
func (a *Arena) Push(src NodeID) NodeID            { return a.instr(KindPush, src) }
func (a *Arena) Pop(dst NodeID) NodeID             { return a.instr(KindPop, dst) }
func (a *Arena) Call(target NodeID) NodeID         { return a.instr(KindCall, target) }
func (a *Arena) Ret() NodeID                       { return a.instr(KindRet) }
func (a *Arena) Syscall() NodeID                   { return a.instr(KindSyscall) }

func (a *Arena) PlaceLabel(name string) NodeID {
	n := a.instr(KindPlaceLabel)
	a.at(n).text = name
	return n
}

func (a *Arena) Section(name string) NodeID {
	n := a.instr(KindSection)
	a.at(n).text = name
	return n
}

func (a *Arena) Comment(text string) NodeID {
	n := a.instr(KindComment)
	a.at(n).text = text
	return n
}

// SimdReg is an xmm(128)/ymm(256)/zmm(512) register operand (the
// "SIMD xmm/ymm/zmm registers"); optional, used only when translate's
// SIMD-fusion pass is enabled.
func (a *Arena) SimdReg(width int, num int32) NodeID {
	return a.alloc(node{kind: KindSimdReg, width: width, id: num, firstChild: InvalidNode, lastChild: InvalidNode, next: InvalidNode, prev: InvalidNode})
}

func (a *Arena) SimdMov(dst, src NodeID) NodeID     { return a.instr(KindSimdMov, dst, src) }
func (a *Arena) SimdExtract(dst, src NodeID, lane int32) NodeID {
	n := a.instr(KindSimdExtract, dst, src)
	a.at(n).id = lane
	return n
}

// --- pseudo-ops -------------------------------------------------------

func (a *Arena) ReqVreg(v NodeID) NodeID   { return a.instr(KindReqVreg, v) }
func (a *Arena) ClearVreg(v NodeID) NodeID { return a.instr(KindClearVreg, v) }

// ManagedCall is the pseudo-instruction the call-convention lowering
// pass (package translate) rewrites into ABI-legal moves + a real call.
// retVal may be InvalidNode when the callee's result is discarded.
func (a *Arena) ManagedCall(retVal, funcAddr NodeID, args ...NodeID) NodeID {
	operands := make([]NodeID, 0, 2+len(args))
	if retVal == InvalidNode {
		operands = append(operands, a.noneMarker())
	} else {
		operands = append(operands, retVal)
	}
	operands = append(operands, funcAddr)
	operands = append(operands, args...)
	return a.instr(KindManagedCall, operands...)
}

func (a *Arena) ManagedSyscall(retVal, nr NodeID, args ...NodeID) NodeID {
	operands := make([]NodeID, 0, 2+len(args))
	if retVal == InvalidNode {
		operands = append(operands, a.noneMarker())
	} else {
		operands = append(operands, retVal)
	}
	operands = append(operands, nr)
	operands = append(operands, args...)
	return a.instr(KindManagedSyscall, operands...)
}

// noneMarker is a zero-width placeholder child standing in for "no
// return value requested" so ManagedCall's child positions stay fixed.
func (a *Arena) noneMarker() NodeID {
	return a.alloc(node{kind: KindUndefined, firstChild: InvalidNode, lastChild: InvalidNode, next: InvalidNode, prev: InvalidNode})
}

// ConstLoad wraps a constant operand. The register allocator does not
// treat it specially, whatever the constant's width, and never places
// it in a spill slot; the backend unwraps it and encodes the constant
// as an immediate.
func (a *Arena) ConstLoad(c NodeID) NodeID {
	return a.wrap1(KindConstLoad, c)
}

// OpenLoop/CloseLoop bracket a loop body with a stable loop id. No pass
// in package translate reads these markers; Arena.Emit prints them as
// comments.
func (a *Arena) OpenLoop(loopID int32) NodeID {
	n := a.instr(KindOpenLoop)
	a.at(n).id = loopID
	return n
}

func (a *Arena) CloseLoop(loopID int32) NodeID {
	n := a.instr(KindCloseLoop)
	a.at(n).id = loopID
	return n
}
