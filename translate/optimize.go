// Peephole passes over vreg-level Flounder IR, run first in
// jit.Context.Compile, before the register allocator consumes
// request/clear markers. Grounded on spec.md §4.13; SIMD fusion is not
// implemented (see DESIGN.md — the engine's scalar operators never
// produce the consecutive-offset load/store groups it depends on, so
// there is nowhere in this codebase's IR shapes for it to fire).
package translate

import "github.com/resqljit/resql/flounder"

// Optimize applies the aliasing and combining passes, in order, to
// every statement list in root's subtree. Both passes fold a redundant
// `mov dst, src` between two vregs into a single shared vreg id when
// one side's entire live range is provably contained in the other's —
// judged from adjacency of the defining mov to one side's
// request/clear markers, not full liveness analysis, so some
// foldable copies are conservatively left alone.
func Optimize(arena *flounder.Arena, root flounder.NodeID) {
	optimizeWalk(arena, root)
}

func optimizeWalk(arena *flounder.Arena, id flounder.NodeID) {
	for _, c := range arena.Children(id) {
		optimizeWalk(arena, c)
	}
	runOnSiblingList(arena, id)
}

// runOnSiblingList repeatedly scans id's direct children for a
// foldable pattern and applies the first one found, restarting the
// scan, until neither pass finds anything left to fold.
func runOnSiblingList(arena *flounder.Arena, parent flounder.NodeID) {
	for {
		if foldAliasing(arena, parent) {
			continue
		}
		if foldCombining(arena, parent) {
			continue
		}
		return
	}
}

// foldAliasing looks for `ReqVreg(A)` immediately followed by
// `Mov(A, B)`, with a later `ClearVreg(A)` and no other write to A in
// between — i.e. A's only write is this copy of B. When found, every
// reference to A between the mov and its clear is renamed to B, and
// the ReqVreg(A)/Mov/ClearVreg(A) nodes are dropped, provided B stays
// live (its own ClearVreg is at or after A's).
func foldAliasing(arena *flounder.Arena, parent flounder.NodeID) bool {
	children := arena.Children(parent)
	for i := 0; i+1 < len(children); i++ {
		reqA := children[i]
		mov := children[i+1]
		if arena.Kind(reqA) != flounder.KindReqVreg || arena.Kind(mov) != flounder.KindMov {
			continue
		}
		dst, src := arena.Children(mov)[0], arena.Children(mov)[1]
		if arena.Kind(dst) != flounder.KindVreg || arena.Kind(src) != flounder.KindVreg {
			continue
		}
		aID := arena.ResourceID(dst)
		if arena.ResourceID(arena.FirstChild(reqA)) != aID {
			continue
		}
		bID := arena.ResourceID(src)

		j := findClear(arena, children, i+2, aID)
		if j < 0 {
			continue
		}
		if writesVregInRange(arena, children, i+2, j, aID) {
			continue
		}
		bClear := findClear(arena, children, i+2, bID)
		if bClear >= 0 && bClear < j {
			continue // b would die before a's last use
		}

		renameVregInRange(arena, children, i+2, j, aID, bID)
		arena.RemoveChild(parent, children[j]) // ClearVreg(A)
		arena.RemoveChild(parent, mov)
		arena.RemoveChild(parent, reqA)
		return true
	}
	return false
}

// foldCombining looks for `Mov(A, B)` immediately followed by
// `ClearVreg(B)`, with an earlier `ReqVreg(B)` and no other write to B
// in between — i.e. B is about to die right after being copied into A.
// When found, every reference to B between its request and the mov is
// renamed to A, and the ReqVreg(B)/Mov/ClearVreg(B) nodes are dropped,
// provided A is already live by the time B was requested.
func foldCombining(arena *flounder.Arena, parent flounder.NodeID) bool {
	children := arena.Children(parent)
	for i := 0; i+1 < len(children); i++ {
		mov := children[i]
		clearB := children[i+1]
		if arena.Kind(mov) != flounder.KindMov || arena.Kind(clearB) != flounder.KindClearVreg {
			continue
		}
		dst, src := arena.Children(mov)[0], arena.Children(mov)[1]
		if arena.Kind(dst) != flounder.KindVreg || arena.Kind(src) != flounder.KindVreg {
			continue
		}
		bID := arena.ResourceID(src)
		if arena.ResourceID(arena.FirstChild(clearB)) != bID {
			continue
		}
		aID := arena.ResourceID(dst)

		k := findReq(arena, children, i-1, bID)
		if k < 0 {
			continue
		}
		if writesVregInRange(arena, children, k+1, i, bID) {
			continue
		}
		aReq := findReq(arena, children, k-1, aID)
		if aReq < 0 {
			continue // a must already be live before b was requested
		}

		renameVregInRange(arena, children, k, i, bID, aID)
		arena.RemoveChild(parent, clearB)
		arena.RemoveChild(parent, mov)
		arena.RemoveChild(parent, children[k]) // ReqVreg(B)
		return true
	}
	return false
}

func findClear(arena *flounder.Arena, siblings []flounder.NodeID, from int, vregID int32) int {
	for i := from; i < len(siblings); i++ {
		if arena.Kind(siblings[i]) == flounder.KindClearVreg &&
			arena.ResourceID(arena.FirstChild(siblings[i])) == vregID {
			return i
		}
	}
	return -1
}

func findReq(arena *flounder.Arena, siblings []flounder.NodeID, upTo int, vregID int32) int {
	for i := upTo; i >= 0; i-- {
		if arena.Kind(siblings[i]) == flounder.KindReqVreg &&
			arena.ResourceID(arena.FirstChild(siblings[i])) == vregID {
			return i
		}
	}
	return -1
}

// writesVregInRange reports whether any instruction in
// siblings[from:to] writes vregID, per the operand read/write table —
// a write anywhere in the range means the candidate mov isn't really
// vregID's only write, so the fold is unsafe.
func writesVregInRange(arena *flounder.Arena, siblings []flounder.NodeID, from, to int, vregID int32) bool {
	for i := from; i < to; i++ {
		n := siblings[i]
		kind := arena.Kind(n)
		for pos, c := range arena.Children(n) {
			if arena.Kind(c) != flounder.KindVreg || arena.ResourceID(c) != vregID {
				continue
			}
			if flounder.WritesOperand(kind, pos) {
				return true
			}
		}
	}
	return false
}

func renameVregInRange(arena *flounder.Arena, siblings []flounder.NodeID, from, to int, oldID, newID int32) {
	for i := from; i < to; i++ {
		for _, c := range arena.Children(siblings[i]) {
			if arena.Kind(c) == flounder.KindVreg && arena.ResourceID(c) == oldID {
				arena.RewriteVregID(c, newID)
			}
		}
	}
}
