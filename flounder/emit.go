package flounder

import (
	"fmt"
	"strings"
)

// Emit renders node (and its subtree) as assembly-ish text, in the
// same style as awkWriter.Flush() (cg/awk_writer.go): walk a subtree,
// append one line of text per instruction to a strings.Builder. The
// text is for reading; package backend does not use it and encodes the
// tree directly.
func (a *Arena) Emit(id NodeID) string {
	var b strings.Builder
	a.emitInto(&b, id)
	return b.String()
}

func (a *Arena) emitInto(b *strings.Builder, id NodeID) {
	n := a.at(id)
	switch n.kind {
	case KindRoot:
		for c := n.firstChild; c != InvalidNode; c = a.at(c).next {
			a.emitInto(b, c)
		}
		return
	case KindPlaceLabel:
		fmt.Fprintf(b, "%s:\n", n.text)
		return
	case KindSection:
		fmt.Fprintf(b, "section .%s\n", n.text)
		return
	case KindComment:
		fmt.Fprintf(b, "; %s\n", n.text)
		return
	case KindOpenLoop:
		fmt.Fprintf(b, "; loop %d {\n", n.id)
		return
	case KindCloseLoop:
		fmt.Fprintf(b, "; } loop %d\n", n.id)
		return
	case KindReqVreg:
		fmt.Fprintf(b, "; request %s\n", a.operandText(n.firstChild))
		return
	case KindClearVreg:
		fmt.Fprintf(b, "; clear %s\n", a.operandText(n.firstChild))
		return
	}

	mnem, ok := mnemonics[n.kind]
	if !ok {
		return
	}
	operands := a.Children(id)
	texts := make([]string, len(operands))
	for i, op := range operands {
		texts[i] = a.operandText(op)
	}
	fmt.Fprintf(b, "  %s %s\n", mnem, strings.Join(texts, ", "))
}

var mnemonics = map[Kind]string{
	KindMov: "mov", KindMovzx: "movzx", KindMovsx: "movsx", KindMovsxd: "movsxd",
	KindLea: "lea", KindAdd: "add", KindSub: "sub", KindImul: "imul",
	KindDiv: "div", KindIdiv: "idiv", KindAnd: "and", KindOr: "or", KindXor: "xor",
	KindCmp: "cmp", KindInc: "inc", KindDec: "dec", KindCdqe: "cdqe", KindCqo: "cqo",
	KindCrc32: "crc32", KindJmp: "jmp", KindJe: "je", KindJne: "jne", KindJl: "jl",
	KindJle: "jle", KindJg: "jg", KindJge: "jge", KindPush: "push", KindPop: "pop",
	KindCall: "call", KindRet: "ret", KindSyscall: "syscall",
	KindSimdMov: "vmovdqu", KindSimdExtract: "vpextr",
	KindManagedCall: "; managed-call", KindManagedSyscall: "; managed-syscall",
}

func (a *Arena) operandText(id NodeID) string {
	if id == InvalidNode {
		return "<none>"
	}
	n := a.at(id)
	switch n.kind {
	case KindReg:
		return regName(n.width, n.id)
	case KindSimdReg:
		return simdRegName(n.width, n.id)
	case KindVreg:
		return fmt.Sprintf("v%d:%d", n.id, n.width*8)
	case KindLabel:
		return n.text
	case KindConst:
		return a.constText(n)
	case KindConstLoad:
		return a.operandText(n.firstChild)
	case KindMem:
		return fmt.Sprintf("[%s]", a.operandText(n.firstChild))
	case KindMemAdd:
		return fmt.Sprintf("[%s+%d]", a.operandText(n.firstChild), n.id)
	case KindMemSub:
		return fmt.Sprintf("[%s-%d]", a.operandText(n.firstChild), n.id)
	case KindUndefined:
		return "<none>"
	default:
		return "?"
	}
}

func (a *Arena) constText(n *node) string {
	switch n.constKind {
	case ConstI8, ConstI32, ConstI64:
		return fmt.Sprintf("%d", n.constI)
	case ConstF64:
		return fmt.Sprintf("%g", n.constF)
	case ConstAddress:
		return fmt.Sprintf("0x%x", n.constAddr)
	default:
		return "?"
	}
}

var regNames8 = [...]string{"al", "cl", "dl", "bl", "spl", "bpl", "sil", "dil", "r8b", "r9b", "r10b", "r11b", "r12b", "r13b", "r14b", "r15b"}
var regNames32 = [...]string{"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi", "r8d", "r9d", "r10d", "r11d", "r12d", "r13d", "r14d", "r15d"}
var regNames64 = [...]string{"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi", "r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15"}

func regName(width int, id int32) string {
	if id < 0 || id > 15 {
		return fmt.Sprintf("?r%d", id)
	}
	switch width {
	case 1:
		return regNames8[id]
	case 4:
		return regNames32[id]
	default:
		return regNames64[id]
	}
}

func simdRegName(width int, id int32) string {
	switch width {
	case 128:
		return fmt.Sprintf("xmm%d", id)
	case 256:
		return fmt.Sprintf("ymm%d", id)
	default:
		return fmt.Sprintf("zmm%d", id)
	}
}

// Machine register numbers, SysV x86-64 numbering.
const (
	RAX int32 = 0
	RCX int32 = 1
	RDX int32 = 2
	RBX int32 = 3
	RSP int32 = 4
	RBP int32 = 5
	RSI int32 = 6
	RDI int32 = 7
	R8  int32 = 8
	R9  int32 = 9
	R10 int32 = 10
	R11 int32 = 11
	R12 int32 = 12
	R13 int32 = 13
	R14 int32 = 14
	R15 int32 = 15
)
