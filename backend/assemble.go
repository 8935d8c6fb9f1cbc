package backend

import (
	"fmt"

	"github.com/resqljit/resql/flounder"
)

// Assemble is the "direct emit" half of the assembler backend (C14):
// it walks a fully-translated Flounder tree — register allocation,
// call-convention lowering, and frame emission (package translate) must
// already have run, so no vreg, managed-call, or request/clear node
// remains — and encodes each instruction directly into a Writer,
// resolving label references against a name->label-id map built as
// they're first seen. Arena.Emit can render the same tree as text, but
// no assembler consumes that text: package jit always calls Assemble.
func Assemble(arena *flounder.Arena, root flounder.NodeID) (*Writer, error) {
	w := NewWriter()
	asm := &assembler{arena: arena, w: w, labels: map[string]int{}}
	for _, id := range arena.Children(root) {
		if err := asm.emitOne(id); err != nil {
			return nil, err
		}
	}
	if err := w.ResolveFixups(); err != nil {
		return nil, err
	}
	return w, nil
}

type assembler struct {
	arena  *flounder.Arena
	w      *Writer
	labels map[string]int
}

func (a *assembler) labelID(name string) int {
	if id, ok := a.labels[name]; ok {
		return id
	}
	id := a.w.ReserveLabel()
	a.labels[name] = id
	return id
}

func (a *assembler) reg(n flounder.NodeID) (int32, error) {
	if a.arena.Kind(n) != flounder.KindReg {
		return 0, fmt.Errorf("backend: expected a machine register operand, got kind %d", a.arena.Kind(n))
	}
	return a.arena.ResourceID(n), nil
}

func (a *assembler) regPair(d, s flounder.NodeID) (int32, int32, error) {
	dst, err := a.reg(d)
	if err != nil {
		return 0, 0, err
	}
	src, err := a.reg(s)
	if err != nil {
		return 0, 0, err
	}
	return dst, src, nil
}

// memOperand decodes a Mem/MemAdd/MemSub node into a base register and
// signed byte displacement; bare Mem is treated as displacement 0.
func (a *assembler) memOperand(n flounder.NodeID) (int32, int32, error) {
	base, err := a.reg(a.arena.FirstChild(n))
	if err != nil {
		return 0, 0, err
	}
	switch a.arena.Kind(n) {
	case flounder.KindMem:
		return base, 0, nil
	case flounder.KindMemAdd:
		return base, a.arena.ResourceID(n), nil
	case flounder.KindMemSub:
		return base, -a.arena.ResourceID(n), nil
	default:
		return 0, 0, fmt.Errorf("backend: operand is not a memory reference (kind %d)", a.arena.Kind(n))
	}
}

func isMemKind(k flounder.Kind) bool {
	return k == flounder.KindMem || k == flounder.KindMemAdd || k == flounder.KindMemSub
}

type aluFn func(width int, dst, src int32)

func (a *assembler) emitAlu(fn aluFn, dst, src flounder.NodeID) error {
	d, s, err := a.regPair(dst, src)
	if err != nil {
		return err
	}
	fn(a.arena.Width(dst), d, s)
	return nil
}

func (a *assembler) emitMov(dst, src flounder.NodeID) error {
	arena := a.arena
	if arena.Kind(src) == flounder.KindConstLoad {
		src = arena.FirstChild(src)
	}
	dstKind, srcKind := arena.Kind(dst), arena.Kind(src)
	switch {
	case dstKind == flounder.KindReg && srcKind == flounder.KindReg:
		a.w.MovRegReg(arena.Width(dst), arena.ResourceID(dst), arena.ResourceID(src))
		return nil
	case dstKind == flounder.KindReg && isMemKind(srcKind):
		base, disp, err := a.memOperand(src)
		if err != nil {
			return err
		}
		a.w.MovRegMem(arena.Width(dst), arena.ResourceID(dst), base, disp)
		return nil
	case isMemKind(dstKind) && srcKind == flounder.KindReg:
		base, disp, err := a.memOperand(dst)
		if err != nil {
			return err
		}
		a.w.MovMemReg(arena.Width(src), base, disp, arena.ResourceID(src))
		return nil
	case dstKind == flounder.KindReg && srcKind == flounder.KindConst:
		return a.emitMovConst(dst, src)
	default:
		return fmt.Errorf("backend: unsupported mov shape (dst kind %d, src kind %d)", dstKind, srcKind)
	}
}

func (a *assembler) emitMovConst(dst, src flounder.NodeID) error {
	ck, ci, _, caddr := a.arena.ConstValue(src)
	dstReg := a.arena.ResourceID(dst)
	switch ck {
	case flounder.ConstI8, flounder.ConstI32:
		a.w.MovRegImm32(a.arena.Width(dst), dstReg, uint32(ci))
	case flounder.ConstI64:
		a.w.MovRegImm64(dstReg, uint64(ci))
	case flounder.ConstAddress:
		a.w.MovRegImm64(dstReg, uint64(caddr))
	default:
		return fmt.Errorf("backend: unsupported constant kind %d in mov", ck)
	}
	return nil
}

func (a *assembler) emitCall(target flounder.NodeID) error {
	switch a.arena.Kind(target) {
	case flounder.KindReg:
		a.w.CallReg(a.arena.ResourceID(target))
		return nil
	case flounder.KindLabel:
		a.w.CallRel32(a.labelID(a.arena.Text(target)))
		return nil
	default:
		return fmt.Errorf("backend: unsupported call target kind %d", a.arena.Kind(target))
	}
}

func (a *assembler) jcc(cc string, labelNode flounder.NodeID) error {
	return a.w.Jcc(cc, a.labelID(a.arena.Text(labelNode)))
}

func (a *assembler) emitOne(id flounder.NodeID) error {
	arena := a.arena
	kind := arena.Kind(id)
	ops := arena.Children(id)

	switch kind {
	case flounder.KindPlaceLabel:
		a.w.MarkLabel(a.labelID(arena.Text(id)))
		return nil
	case flounder.KindComment, flounder.KindSection:
		return nil
	case flounder.KindMov:
		return a.emitMov(ops[0], ops[1])
	case flounder.KindAdd:
		return a.emitAlu(a.w.Add, ops[0], ops[1])
	case flounder.KindSub:
		return a.emitAlu(a.w.Sub, ops[0], ops[1])
	case flounder.KindAnd:
		return a.emitAlu(a.w.And, ops[0], ops[1])
	case flounder.KindOr:
		return a.emitAlu(a.w.Or, ops[0], ops[1])
	case flounder.KindXor:
		return a.emitAlu(a.w.Xor, ops[0], ops[1])
	case flounder.KindCmp:
		return a.emitAlu(a.w.Cmp, ops[0], ops[1])
	case flounder.KindImul:
		dst, src, err := a.regPair(ops[0], ops[1])
		if err != nil {
			return err
		}
		a.w.Imul(arena.Width(ops[0]), dst, src)
		return nil
	case flounder.KindInc:
		r, err := a.reg(ops[0])
		if err != nil {
			return err
		}
		a.w.Inc(arena.Width(ops[0]), r)
		return nil
	case flounder.KindDec:
		r, err := a.reg(ops[0])
		if err != nil {
			return err
		}
		a.w.Dec(arena.Width(ops[0]), r)
		return nil
	case flounder.KindDiv:
		r, err := a.reg(ops[0])
		if err != nil {
			return err
		}
		a.w.Div(arena.Width(ops[0]), r)
		return nil
	case flounder.KindIdiv:
		r, err := a.reg(ops[0])
		if err != nil {
			return err
		}
		a.w.Idiv(arena.Width(ops[0]), r)
		return nil
	case flounder.KindCdqe:
		a.w.Cdqe()
		return nil
	case flounder.KindCqo:
		a.w.Cqo()
		return nil
	case flounder.KindCrc32:
		dst, src, err := a.regPair(ops[0], ops[1])
		if err != nil {
			return err
		}
		a.w.Crc32(dst, src)
		return nil
	case flounder.KindLea:
		dst, err := a.reg(ops[0])
		if err != nil {
			return err
		}
		base, disp, err := a.memOperand(ops[1])
		if err != nil {
			return err
		}
		a.w.Lea(dst, base, disp)
		return nil
	case flounder.KindPush:
		r, err := a.reg(ops[0])
		if err != nil {
			return err
		}
		a.w.Push(r)
		return nil
	case flounder.KindPop:
		r, err := a.reg(ops[0])
		if err != nil {
			return err
		}
		a.w.Pop(r)
		return nil
	case flounder.KindRet:
		a.w.Ret()
		return nil
	case flounder.KindSyscall:
		a.w.Syscall()
		return nil
	case flounder.KindCall:
		return a.emitCall(ops[0])
	case flounder.KindJmp:
		a.w.Jmp(a.labelID(arena.Text(ops[0])))
		return nil
	case flounder.KindJe:
		return a.jcc("je", ops[0])
	case flounder.KindJne:
		return a.jcc("jne", ops[0])
	case flounder.KindJl:
		return a.jcc("jl", ops[0])
	case flounder.KindJle:
		return a.jcc("jle", ops[0])
	case flounder.KindJg:
		return a.jcc("jg", ops[0])
	case flounder.KindJge:
		return a.jcc("jge", ops[0])
	default:
		return fmt.Errorf("backend: cannot directly encode node kind %d (translation pipeline left it unlowered)", kind)
	}
}
