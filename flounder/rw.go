package flounder

// ReadsOperand/WritesOperand classify, per instruction kind and operand
// position, whether that position is read, written, or both. This
// table drives register-allocation lifetimes and optimizer decisions,
// and must be preserved exactly as given in the source it is grounded
// on. Grounded verbatim on
// original_source/src/flounder/asm_lang.h (checkInstrReadAsm /
// checkInstrWriteAsm) and flounder_lang.h (checkInstrRead / checkInstrWrite
// for the MANAGED_CALL / CONST_LOAD extensions).
func ReadsOperand(kind Kind, pos int) bool {
	switch kind {
	case KindMov, KindMovzx, KindMovsx, KindMovsxd:
		return pos == 1
	case KindCmp, KindAdd, KindSub, KindImul, KindAnd, KindOr, KindCrc32:
		return pos == 0 || pos == 1
	case KindDiv, KindIdiv, KindInc, KindDec:
		return pos == 0
	case KindMem:
		return pos == 0
	case KindMemAdd, KindMemSub:
		return pos == 0 || pos == 1
	case KindManagedCall, KindManagedSyscall:
		return pos >= 2
	case KindConstLoad:
		return pos == 0
	default:
		return false
	}
}

func WritesOperand(kind Kind, pos int) bool {
	switch kind {
	case KindMov, KindMovzx, KindMovsx, KindMovsxd:
		return pos == 0
	case KindAdd, KindSub, KindImul, KindInc, KindDec, KindAnd, KindOr, KindCrc32:
		return pos == 0
	case KindManagedCall, KindManagedSyscall:
		return pos == 0
	default:
		return false
	}
}

// AllowsMemoryOperand reports whether the given instruction kind
// tolerates a memory operand at the given position without an extra
// load/store mov being inserted around it: mov allows at most one
// memory operand; managed-calls always allow one.
func AllowsMemoryOperand(kind Kind, pos int) bool {
	switch kind {
	case KindMov:
		return true // allocator still enforces "at most one" across both positions
	case KindManagedCall, KindManagedSyscall:
		return true
	default:
		return false
	}
}
