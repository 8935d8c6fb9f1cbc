package translate

import (
	"sort"

	"github.com/resqljit/resql/flounder"
)

// Linux SysV parameter-register order. Calls take up to 6 arguments,
// syscalls up to 6 plus the syscall number in rax — matching the
// fixed-arity managed-call/managed-syscall shape the IR produces (no
// stack-passed arguments; a query never calls anything with more
// arguments than this).
var (
	callParamRegs    = []int32{flounder.RDI, flounder.RSI, flounder.RDX, flounder.RCX, flounder.R8, flounder.R9}
	syscallParamRegs = []int32{flounder.RAX, flounder.RDI, flounder.RSI, flounder.RDX, flounder.R10, flounder.R8, flounder.R9}
)

// LowerCalls rewrites every managed-call/managed-syscall node still in
// root's subtree into ABI-legal parameter moves, a caller-save
// spill-around, 16-byte stack alignment, a real call/syscall, and a
// return-value move — the translation step that runs after Allocator.Run
// has already turned every vreg operand into a concrete register or
// spill-slot reference. alloc is the same Allocator used for register
// allocation; LowerCalls reads its recorded call-site liveness
// (Allocator.CallerSaveLiveAt) to know what to save and restore.
func LowerCalls(arena *flounder.Arena, alloc *Allocator, root flounder.NodeID) error {
	return lowerWalk(arena, alloc, flounder.InvalidNode, root)
}

func lowerWalk(arena *flounder.Arena, alloc *Allocator, parent, id flounder.NodeID) error {
	for _, c := range arena.Children(id) {
		if err := lowerWalk(arena, alloc, id, c); err != nil {
			return err
		}
	}
	kind := arena.Kind(id)
	if kind != flounder.KindManagedCall && kind != flounder.KindManagedSyscall {
		return nil
	}
	if parent == flounder.InvalidNode {
		return nil
	}
	lowerCallSite(arena, alloc, parent, id, kind)
	return nil
}

// lowerCallSite expands a single managed-call/managed-syscall node into
// its real-instruction form, splicing the expansion in before id and
// then removing id itself — per spec.md §4.12 steps 1-6.
func lowerCallSite(arena *flounder.Arena, alloc *Allocator, parent, id flounder.NodeID, kind flounder.Kind) {
	children := arena.Children(id)
	retVal, target, args := children[0], children[1], children[2:]
	isSyscall := kind == flounder.KindManagedSyscall

	paramRegs := callParamRegs
	if isSyscall {
		paramRegs = syscallParamRegs
	}

	live := alloc.CallerSaveLiveAt(id)
	savedRegs := make([]int32, 0, len(live))
	for r := range live {
		savedRegs = append(savedRegs, r)
	}
	sort.Slice(savedRegs, func(i, j int) bool { return savedRegs[i] < savedRegs[j] })

	base := alloc.CallSaveBaseSlot()
	saveSlot := map[int32]int{}
	for i, r := range savedRegs {
		saveSlot[r] = base + i
	}

	emit := func(n flounder.NodeID) {
		arena.InsertBeforeChild(parent, id, n)
	}

	// 2. save every caller-save register currently live.
	for _, r := range savedRegs {
		emit(arena.Mov(spillMem(arena, saveSlot[r]), arena.Reg(8, r)))
	}

	// 3. move arguments into parameter registers: register-sourced
	// args first, then everything else, so a later move never reads a
	// parameter register a prior move in this same chain already
	// clobbered without going through its saved copy.
	clobbered := map[int32]bool{}
	var regArgs, otherArgs []int
	for i := range args {
		if i >= len(paramRegs) {
			break
		}
		if arena.Kind(args[i]) == flounder.KindReg {
			regArgs = append(regArgs, i)
		} else {
			otherArgs = append(otherArgs, i)
		}
	}
	for _, i := range append(regArgs, otherArgs...) {
		dst := paramRegs[i]
		arg := args[i]
		src := arg
		if arena.Kind(arg) == flounder.KindReg {
			srcReg := arena.ResourceID(arg)
			if clobbered[srcReg] {
				if slot, ok := saveSlot[srcReg]; ok {
					src = spillMem(arena, slot)
				}
			} else {
				src = arena.Reg(8, srcReg)
			}
		}
		emit(arena.Mov(arena.Reg(8, dst), src))
		clobbered[dst] = true
	}

	// 4. align the stack to 16 bytes (the entry point starts with rsp at
	// 8 mod 16 because of its return address, the prologue's six pushes
	// and 16-byte-multiple frame keep it there, and calls are never
	// re-entered from inside another call's expansion, so a single
	// 8-byte adjustment makes rsp 16-byte aligned at the `call`), issue
	// the call or syscall, then undo the adjustment.
	emit(arena.Sub(arena.Reg(8, flounder.RSP), arena.ConstI32(8)))
	if isSyscall {
		emit(arena.Syscall())
	} else {
		callTarget := arena.Reg(8, flounder.RAX)
		src := target
		if arena.Kind(target) == flounder.KindReg {
			src = arena.Reg(8, arena.ResourceID(target))
		}
		emit(arena.Mov(callTarget, src))
		emit(arena.Call(callTarget))
	}
	emit(arena.Add(arena.Reg(8, flounder.RSP), arena.ConstI32(8)))

	// 5. restore the saved caller-save registers.
	for _, r := range savedRegs {
		emit(arena.Mov(arena.Reg(8, r), spillMem(arena, saveSlot[r])))
	}

	// 6. move the return value, if one was requested, into place.
	if arena.Kind(retVal) == flounder.KindReg {
		width := arena.Width(retVal)
		dst := arena.ResourceID(retVal)
		emit(arena.Mov(arena.Reg(width, dst), arena.Reg(width, flounder.RAX)))
	}

	arena.RemoveChild(parent, id)
}
