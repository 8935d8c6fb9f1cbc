package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/resqljit/resql/flounder"
)

// seq builds a left-to-right statement sequence directly under root,
// returning root so the allocator can be run over it.
func seq(a *flounder.Arena, stmts ...flounder.NodeID) flounder.NodeID {
	root := a.Root()
	for _, s := range stmts {
		a.AddChild(root, s)
	}
	return root
}

func TestAllocatorAssignsDistinctRegisters(t *testing.T) {
	assert := assert.New(t)
	a := flounder.NewArena()

	v1 := a.Vreg(8, 1)
	v2 := a.Vreg(8, 2)
	root := seq(a,
		a.ReqVreg(v1),
		a.ReqVreg(v2),
		a.Mov(v1, v2),
		a.ClearVreg(v1),
		a.ClearVreg(v2),
	)

	alloc := NewAllocator(a)
	assert.NoError(alloc.Run(root))
	assert.Equal(0, alloc.NumSpillSlots())

	// Both vreg operands of the Mov should have been rewritten to
	// distinct KindReg nodes from the callee-save-preferred partition.
	movNode := a.Children(root)[2]
	ops := a.Children(movNode)
	assert.Equal(flounder.KindReg, a.Kind(ops[0]))
	assert.Equal(flounder.KindReg, a.Kind(ops[1]))
	assert.NotEqual(a.ResourceID(ops[0]), a.ResourceID(ops[1]))
	assert.Equal(flounder.RBX, a.ResourceID(ops[0]))
	assert.Equal(flounder.RBP, a.ResourceID(ops[1]))
}

func TestAllocatorReusesRegisterAfterClear(t *testing.T) {
	assert := assert.New(t)
	a := flounder.NewArena()

	v1 := a.Vreg(8, 1)
	v2 := a.Vreg(8, 2)
	root := seq(a,
		a.ReqVreg(v1),
		a.Inc(v1),
		a.ClearVreg(v1),
		a.ReqVreg(v2),
		a.Inc(v2),
		a.ClearVreg(v2),
	)

	alloc := NewAllocator(a)
	assert.NoError(alloc.Run(root))
	assert.Equal(0, alloc.NumSpillSlots())

	// v1 and v2 never overlap, so they should land on the same
	// first-pick callee-save register.
	children := a.Children(root)
	assert.Equal(flounder.RBX, a.ResourceID(a.Children(children[1])[0]))
	assert.Equal(flounder.RBX, a.ResourceID(a.Children(children[4])[0]))
	assert.Equal(alloc.bindings, map[int32]location{})
}

func TestAllocatorSpillsWhenRegistersExhausted(t *testing.T) {
	assert := assert.New(t)
	a := flounder.NewArena()

	// 12 allocatable registers; request a 13th live vreg and expect a
	// spill slot, not an error.
	var reqs []flounder.NodeID
	var vregs []flounder.NodeID
	for i := int32(1); i <= 13; i++ {
		v := a.Vreg(8, i)
		vregs = append(vregs, v)
		reqs = append(reqs, a.ReqVreg(v))
	}
	root := seq(a, reqs...)

	alloc := NewAllocator(a)
	assert.NoError(alloc.Run(root))
	assert.Equal(1, alloc.NumSpillSlots())

	last := alloc.bindings[13]
	assert.True(last.isSpill)
	assert.Equal(1, last.slot)
}

func TestAllocatorInsertsSpillLoadAndStore(t *testing.T) {
	assert := assert.New(t)
	a := flounder.NewArena()

	var reqs []flounder.NodeID
	var vregs []flounder.NodeID
	for i := int32(1); i <= 12; i++ {
		v := a.Vreg(8, i)
		vregs = append(vregs, v)
		reqs = append(reqs, a.ReqVreg(v))
	}
	spilled := a.Vreg(8, 99)
	reqSpilled := a.ReqVreg(spilled)
	touch := a.Inc(spilled)

	root := seq(a, append(reqs, reqSpilled, touch)...)

	alloc := NewAllocator(a)
	assert.NoError(alloc.Run(root))
	assert.Equal(1, alloc.NumSpillSlots())

	children := a.Children(root)
	// the Inc instruction (read+write on its sole operand) should now
	// be preceded by a load and followed by a store, both through the
	// first spill-scratch register (rax).
	var incIdx int
	for i, c := range children {
		if a.Kind(c) == flounder.KindInc {
			incIdx = i
			break
		}
	}
	loadNode := children[incIdx-1]
	storeNode := children[incIdx+1]
	assert.Equal(flounder.KindMov, a.Kind(loadNode))
	assert.Equal(flounder.KindMov, a.Kind(storeNode))

	loadOps := a.Children(loadNode)
	assert.Equal(flounder.KindReg, a.Kind(loadOps[0]))
	assert.Equal(flounder.RAX, a.ResourceID(loadOps[0]))
	assert.Equal(flounder.KindMemSub, a.Kind(loadOps[1]))

	incOps := a.Children(children[incIdx])
	assert.Equal(flounder.KindReg, a.Kind(incOps[0]))
	assert.Equal(flounder.RAX, a.ResourceID(incOps[0]))
}

func TestAllocatorRejectsUnrequestedVreg(t *testing.T) {
	assert := assert.New(t)
	a := flounder.NewArena()

	v1 := a.Vreg(8, 1)
	v2 := a.Vreg(8, 2)
	root := seq(a, a.Mov(v1, v2))

	alloc := NewAllocator(a)
	assert.Error(alloc.Run(root))
}
