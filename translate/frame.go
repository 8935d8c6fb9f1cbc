package translate

import "github.com/resqljit/resql/flounder"

// calleeSavePushOrder is the order the prologue pushes (and the
// epilogue pops, in reverse) the callee-save registers the allocator
// is allowed to hand out — rbp first, matching the conventional frame
// layout, then rbx, then r12-r15.
var calleeSavePushOrder = []int32{flounder.RBP, flounder.RBX, flounder.R12, flounder.R13, flounder.R14, flounder.R15}

// alignUp rounds n up to the next multiple of align (align a power of
// two).
func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// EmitFrame wraps root's children with the callee-save prologue/epilogue:
// push all six callee-save registers the allocator may hand out,
// whether or not any vreg used them,
// reserve 16-byte-aligned stack space for every spill slot and every
// call site's caller-save save area, and pop everything back before
// each `ret` left in the tree by the backend's entry-point wiring. Run
// this after Allocator.Run and LowerCalls so the frame size already
// accounts for both spill slots and call-save reserve.
func EmitFrame(arena *flounder.Arena, alloc *Allocator, root flounder.NodeID) {
	frameBytes := alignUp((alloc.NumSpillSlots()+callSaveSlotCount(alloc))*8, 16)

	prologue := make([]flounder.NodeID, 0, len(calleeSavePushOrder)+1)
	for _, r := range calleeSavePushOrder {
		prologue = append(prologue, arena.Push(arena.Reg(8, r)))
	}
	if frameBytes > 0 {
		prologue = append(prologue, arena.Sub(arena.Reg(8, flounder.RSP), arena.ConstI32(int32(frameBytes))))
	}

	// splice the prologue in before whatever is currently root's first
	// child, then insert the epilogue before every ret left in the
	// tree.
	first := arena.FirstChild(root)
	if first == flounder.InvalidNode {
		for _, n := range prologue {
			arena.AddChild(root, n)
		}
		return
	}
	cursor := first
	for _, n := range prologue {
		arena.InsertBeforeChild(root, cursor, n)
	}

	for _, id := range retNodes(arena, root) {
		if frameBytes > 0 {
			arena.InsertBeforeChild(root, id, arena.Add(arena.Reg(8, flounder.RSP), arena.ConstI32(int32(frameBytes))))
		}
		for i := len(calleeSavePushOrder) - 1; i >= 0; i-- {
			arena.InsertBeforeChild(root, id, arena.Pop(arena.Reg(8, calleeSavePushOrder[i])))
		}
	}
}

// callSaveSlotCount reports how many extra 8-byte slots, beyond the
// allocator's own spill slots, the busiest call site needs.
func callSaveSlotCount(alloc *Allocator) int {
	return alloc.CallSaveReserve() / 8
}

// retNodes collects every KindRet node that is a direct child of root,
// in order — the only shape the backend's entry-point wiring produces.
func retNodes(arena *flounder.Arena, root flounder.NodeID) []flounder.NodeID {
	var out []flounder.NodeID
	for _, c := range arena.Children(root) {
		if arena.Kind(c) == flounder.KindRet {
			out = append(out, c)
		}
	}
	return out
}
