// Package flounder implements the Flounder intermediate representation:
// a low-level, tree-shaped IR that
// models x86-64 instructions plus a small set of higher-level
// pseudo-operations (virtual registers, managed calls, loop markers).
//
// Nodes live in an Arena and are referenced by NodeID, an index handle,
// rather than by pointer — see DESIGN.md "Cyclic & self-modifying IR".
// This keeps the arena a single owned slice per query and makes
// AddChild's copy-on-add semantics a cheap struct copy
// instead of a pointer-graph clone.
package flounder

import "fmt"

// NodeID is a handle into an Arena. The zero value always names the
// arena's permanent root node (index 0); InvalidNode marks "no node".
type NodeID int32

const InvalidNode NodeID = -1

// Kind enumerates every node shape the IR vocabulary needs. The split
// mirrors the original source's BaseNodeTypes/NodeTypes/ExtendedNodeTypes
// split (original_source/src/flounder/ir_base.h, asm_lang.h,
// flounder_lang.h): plain asm instructions, operands, and pseudo-ops
// that the translation pipeline (package translate) rewrites away.
type Kind int

const (
	KindUndefined Kind = iota
	KindRoot

	// operands
	KindReg     // machine register, byte width in width, register number in id
	KindVreg    // virtual register, byte width in width, vreg number in id
	KindConst   // constant cell; value in one of the const* fields
	KindLabel   // label reference (global or uniquely suffixed)
	KindMem     // mem[expr]; single child is the address expression
	KindMemAdd  // mem base + const offset; child 0 is base, id is the offset
	KindMemSub  // mem base - const offset
	KindSimdReg // xmm/ymm/zmm register, bit width in width {128,256,512}, register number in id

	// plain instructions (operands are children, in operand-position order)
	KindMov
	KindMovzx
	KindMovsx
	KindMovsxd
	KindLea
	KindAdd
	KindSub
	KindImul
	KindDiv
	KindIdiv
	KindAnd
	KindOr
	KindXor
	KindCmp
	KindInc
	KindDec
	KindCdqe
	KindCqo
	KindCrc32
	KindJmp
	KindJe
	KindJne
	KindJl
	KindJle
	KindJg
	KindJge
	KindPush
	KindPop
	KindCall
	KindRet
	KindSyscall
	KindPlaceLabel // emits "label:"
	KindSection
	KindComment
	KindSimdMov // vector load/store
	KindSimdExtract

	// pseudo-ops (rewritten away by package translate before backend)
	KindReqVreg      // request(vreg) liveness marker
	KindClearVreg    // clear(vreg) liveness marker
	KindManagedCall  // managed-call: child 0 = retVal?(vreg or nil marker), 1 = funcAddr, 2.. = args
	KindManagedSyscall
	KindConstLoad  // wraps a constant the allocator may spill instead of loading into a register
	KindOpenLoop   // loop-open marker, carries a loop id
	KindCloseLoop  // loop-close marker, carries a loop id
)

// ConstKind distinguishes the payload variant of a KindConst node.
type ConstKind int

const (
	ConstI8 ConstKind = iota
	ConstI32
	ConstI64
	ConstF64
	ConstAddress
)

// node is the in-arena record. Only the fields relevant to a given Kind
// are populated; the rest are zero.
type node struct {
	kind  Kind
	id    int32 // resource id: register number, vreg number, loop id
	width int   // byte width for Reg/Vreg; bit width for SimdReg

	text string // opcode mnemonic override / label name / comment text

	constKind ConstKind
	constI    int64
	constF    float64
	constAddr uintptr

	// linked-list-of-children-over-an-arena, exactly as in
	// original_source/src/flounder/ir_base.h
	firstChild NodeID
	lastChild  NodeID
	next       NodeID
	prev       NodeID
	nChildren  int
}

// Arena is the bump-allocated node pool for a single query compilation;
// the whole arena is released at the end of the query.
type Arena struct {
	nodes []node
}

// NewArena preallocates a root node at index 0.
func NewArena() *Arena {
	a := &Arena{nodes: make([]node, 0, 4096)}
	a.alloc(node{kind: KindRoot, firstChild: InvalidNode, lastChild: InvalidNode, next: InvalidNode, prev: InvalidNode})
	return a
}

// Root is the permanent root node created by NewArena.
func (a *Arena) Root() NodeID { return 0 }

func (a *Arena) alloc(n node) NodeID {
	id := NodeID(len(a.nodes))
	a.nodes = append(a.nodes, n)
	return id
}

func (a *Arena) at(id NodeID) *node {
	if id < 0 || int(id) >= len(a.nodes) {
		panic(fmt.Sprintf("flounder: invalid node id %d", id))
	}
	return &a.nodes[id]
}

func (a *Arena) Kind(id NodeID) Kind { return a.at(id).kind }
func (a *Arena) Text(id NodeID) string { return a.at(id).text }
func (a *Arena) ResourceID(id NodeID) int32 { return a.at(id).id }
func (a *Arena) Width(id NodeID) int { return a.at(id).width }

func (a *Arena) ConstValue(id NodeID) (ConstKind, int64, float64, uintptr) {
	n := a.at(id)
	return n.constKind, n.constI, n.constF, n.constAddr
}

// FirstChild/NextSibling let callers walk a node's children without
// allocating a slice, matching the arena's linked-list layout.
func (a *Arena) FirstChild(id NodeID) NodeID { return a.at(id).firstChild }
func (a *Arena) NextSibling(id NodeID) NodeID { return a.at(id).next }
func (a *Arena) NumChildren(id NodeID) int    { return a.at(id).nChildren }

// Children materializes the child list as a slice; used by passes that
// need random access (register allocator, optimizer) rather than a
// single forward walk.
func (a *Arena) Children(id NodeID) []NodeID {
	out := make([]NodeID, 0, a.at(id).nChildren)
	for c := a.at(id).firstChild; c != InvalidNode; c = a.at(c).next {
		out = append(out, c)
	}
	return out
}

// RewriteRegInPlace turns a KindVreg node into a KindReg node bound to
// machine register num, keeping its existing width and tree position.
// Used by the register allocator (package translate) once a vreg's
// request has been resolved to a concrete register.
func (a *Arena) RewriteRegInPlace(id NodeID, num int32) {
	n := a.at(id)
	n.kind = KindReg
	n.id = num
}

// RewriteVregID renames a KindVreg operand to a different vreg id,
// keeping its width. Used by the optimizer (package translate) to fold
// one vreg's live range into another's when a mov between them turns
// out to be redundant.
func (a *Arena) RewriteVregID(id NodeID, newID int32) {
	a.at(id).id = newID
}
