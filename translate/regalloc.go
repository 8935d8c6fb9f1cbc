// Package translate implements the IR-to-IR passes that turn abstract
// Flounder IR (virtual registers, managed calls) into a tree using
// only real machine registers, real call/ret instructions, and an
// explicit stack frame: register allocation with spilling (this
// file), call-convention lowering (callconv.go), and the optional
// peephole optimizer (optimize.go). Grounded on the request/clear
// marker-driven allocation model and the read/write operand table from
// package flounder, and on the register-bitmap allocator shape from
// other_examples' memcp JIT (JITContext.AllocReg/FreeReg, jit_types.go)
// generalized from a single free-list to the fixed
// callee-save-preferred/spill-reserved partition the source specifies.
package translate

import (
	"fmt"

	"github.com/resqljit/resql/flounder"
)

// Fixed register partition. rsp is reserved for the stack and never
// allocated. rax/rcx/rdx are reserved for spill traffic and also never
// handed out to a vreg request. The remaining twelve registers are
// allocatable: the six callee-save ones (rbx, rbp, r12-r15) first, then
// six caller-save ones.
var (
	calleeSavePreferred = []int32{flounder.RBX, flounder.RBP, flounder.R12, flounder.R13, flounder.R14, flounder.R15}
	callerSaveGeneral   = []int32{flounder.RSI, flounder.RDI, flounder.R8, flounder.R9, flounder.R10, flounder.R11}
	spillScratch        = []int32{flounder.RAX, flounder.RCX, flounder.RDX}
)

// allocatable is calleeSavePreferred followed by callerSaveGeneral —
// callee-save registers are tried first to minimize save traffic
// around managed calls.
func allocatable() []int32 {
	out := make([]int32, 0, len(calleeSavePreferred)+len(callerSaveGeneral))
	out = append(out, calleeSavePreferred...)
	out = append(out, callerSaveGeneral...)
	return out
}

// location is where an allocated vreg ended up.
type location struct {
	isSpill bool
	reg     int32 // valid if !isSpill
	slot    int   // valid if isSpill; stack offset is -slot*8
}

// Allocator assigns vregs to machine registers or spill slots by
// walking the IR linearly and reacting to request/clear markers, per
// the source's marker-driven (not liveness-derived) model.
type Allocator struct {
	arena *flounder.Arena

	free     map[int32]bool // machine reg -> free
	bindings map[int32]location // vreg id -> location
	numSpill int

	// callSites records, for each managed-call/managed-syscall node,
	// which caller-save machine registers were holding a live vreg at
	// the moment the call was visited — package translate's callconv.go
	// uses this to know what to save/restore around the call.
	callSites       map[flounder.NodeID]map[int32]int32
	maxCallSaveRegs int
}

// NewAllocator creates an allocator over arena's registers.
func NewAllocator(arena *flounder.Arena) *Allocator {
	a := &Allocator{
		arena:     arena,
		free:      map[int32]bool{},
		bindings:  map[int32]location{},
		callSites: map[flounder.NodeID]map[int32]int32{},
	}
	for _, r := range allocatable() {
		a.free[r] = true
	}
	return a
}

// NumSpillSlots reports how many spill slots were used in total, for
// sizing the stack frame.
func (a *Allocator) NumSpillSlots() int { return a.numSpill }

// CallerSaveLiveAt reports the caller-save machine registers (a copy,
// reg -> the vreg id bound to it) that were live when the managed-call
// or managed-syscall node id was visited.
func (a *Allocator) CallerSaveLiveAt(id flounder.NodeID) map[int32]int32 {
	return a.callSites[id]
}

// CallSaveBaseSlot is the first spill-slot number call-convention
// lowering may use to save/restore caller-save registers around a
// call, one past every slot the allocator itself handed to a spilled
// vreg.
func (a *Allocator) CallSaveBaseSlot() int { return a.numSpill + 1 }

// CallSaveReserve is the extra stack space, in bytes, the largest
// single call site needs to save its live caller-save registers. The
// prologue must include this on top of NumSpillSlots()*8.
func (a *Allocator) CallSaveReserve() int { return a.maxCallSaveRegs * 8 }

func (a *Allocator) pickFreeReg() (int32, bool) {
	for _, r := range calleeSavePreferred {
		if a.free[r] {
			delete(a.free, r)
			return r, true
		}
	}
	for _, r := range callerSaveGeneral {
		if a.free[r] {
			delete(a.free, r)
			return r, true
		}
	}
	return 0, false
}

// request handles a KindReqVreg marker: bind vreg id to a free machine
// register, or a new spill slot if none remain.
func (a *Allocator) request(vregID int32) location {
	if reg, ok := a.pickFreeReg(); ok {
		loc := location{reg: reg}
		a.bindings[vregID] = loc
		return loc
	}
	a.numSpill++
	loc := location{isSpill: true, slot: a.numSpill}
	a.bindings[vregID] = loc
	return loc
}

// clear handles a KindClearVreg marker: release the machine register
// (if any) back to the free pool. Spill slots are never reclaimed —
// the source's allocator doesn't reuse stack slots across unrelated
// vregs, trading a slightly larger frame for a simpler pass.
func (a *Allocator) clear(vregID int32) {
	loc, ok := a.bindings[vregID]
	if !ok {
		return
	}
	if !loc.isSpill {
		a.free[loc.reg] = true
	}
	delete(a.bindings, vregID)
}

// spillAccess records that an instruction operand at `pos` referenced
// a spilled vreg and must be materialized through a scratch register
// around the instruction.
type spillAccess struct {
	pos    int
	slot   int
	read   bool
	write  bool
	scratch int32
}

// Run walks root's subtree, replacing every vreg operand with its
// allocated machine register (rewriting the node's kind/id in place),
// and inserting spill load/store movs around instructions that touch a
// spilled vreg. It returns after processing, having consumed every
// request/clear marker; numSpillSlots is available via NumSpillSlots.
func (a *Allocator) Run(root flounder.NodeID) error {
	return a.walk(flounder.InvalidNode, root)
}

// walk processes id, which is a child of parent (InvalidNode for the
// root itself). parent is threaded through explicitly, rather than
// kept in a package-level variable, so nothing here depends on only
// one Allocator ever running at a time.
func (a *Allocator) walk(parent, id flounder.NodeID) error {
	switch a.arena.Kind(id) {
	case flounder.KindReqVreg:
		child := a.arena.FirstChild(id)
		a.request(a.arena.ResourceID(child))
		return nil
	case flounder.KindClearVreg:
		child := a.arena.FirstChild(id)
		a.clear(a.arena.ResourceID(child))
		return nil
	}

	children := a.arena.Children(id)
	for _, c := range children {
		if err := a.walk(id, c); err != nil {
			return err
		}
	}
	return a.substituteInstruction(parent, id, children)
}

// substituteInstruction rewrites any direct vreg children of id to
// their allocated machine register, and emits spill moves around id
// for any spilled operand, per the per-instruction read/write table.
func (a *Allocator) substituteInstruction(parent, id flounder.NodeID, children []flounder.NodeID) error {
	kind := a.arena.Kind(id)
	if kind == flounder.KindManagedCall || kind == flounder.KindManagedSyscall {
		a.snapshotCallerSaveLive(id)
	}
	var spills []spillAccess

	for pos, c := range children {
		if a.arena.Kind(c) != flounder.KindVreg {
			continue
		}
		vregID := a.arena.ResourceID(c)
		loc, ok := a.bindings[vregID]
		if !ok {
			return fmt.Errorf("translate: vreg %d used without a live request", vregID)
		}
		if !loc.isSpill {
			a.rewriteAsReg(c, loc.reg)
			continue
		}
		if len(spills) >= 3 && kind != flounder.KindManagedCall && kind != flounder.KindManagedSyscall {
			return fmt.Errorf("translate: more than 3 simultaneous spilled operands on a non-managed-call instruction")
		}
		read := flounder.ReadsOperand(kind, pos)
		write := flounder.WritesOperand(kind, pos)
		scratch := spillScratch[len(spills)%len(spillScratch)]
		spills = append(spills, spillAccess{pos: pos, slot: loc.slot, read: read, write: write, scratch: scratch})
		a.rewriteAsReg(c, scratch)
	}

	if parent == flounder.InvalidNode {
		// Root itself can't host spill traffic; request/clear markers
		// always sit inside some block, never directly at the root.
		return nil
	}
	for _, sp := range spills {
		if sp.read {
			load := a.arena.Mov(a.arena.Reg(8, sp.scratch), spillMem(a.arena, sp.slot))
			a.arena.InsertBeforeChild(parent, id, load)
		}
	}
	for i := len(spills) - 1; i >= 0; i-- {
		sp := spills[i]
		if sp.write {
			store := a.arena.Mov(spillMem(a.arena, sp.slot), a.arena.Reg(8, sp.scratch))
			a.arena.InsertAfterChild(parent, id, store)
		}
	}
	return nil
}

// snapshotCallerSaveLive records which caller-save registers are
// currently bound to a live vreg, before this call's own operands get
// rewritten — taken here because bindings reflects everything still
// live at this point in the linear walk.
func (a *Allocator) snapshotCallerSaveLive(id flounder.NodeID) {
	live := map[int32]int32{}
	for vregID, loc := range a.bindings {
		if loc.isSpill {
			continue
		}
		for _, r := range callerSaveGeneral {
			if loc.reg == r {
				live[loc.reg] = vregID
			}
		}
	}
	a.callSites[id] = live
	if len(live) > a.maxCallSaveRegs {
		a.maxCallSaveRegs = len(live)
	}
}

func (a *Allocator) rewriteAsReg(vregNode flounder.NodeID, reg int32) {
	a.arena.RewriteRegInPlace(vregNode, reg)
}

// spillMem builds a `mem[rsp - slot*8]` operand node.
func spillMem(arena *flounder.Arena, slot int) flounder.NodeID {
	return arena.MemSub(arena.Reg(8, flounder.RSP), int32(slot*8))
}
