package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/resqljit/resql/flounder"
)

func TestLowerCallsRewritesManagedCall(t *testing.T) {
	assert := assert.New(t)
	a := flounder.NewArena()

	v1 := a.Vreg(8, 1)
	v2 := a.Vreg(8, 2)
	ret := a.Vreg(8, 3)
	addr := a.ConstAddress(0x1000)
	call := a.ManagedCall(ret, addr, v1, v2)

	root := seq(a,
		a.ReqVreg(v1),
		a.ReqVreg(v2),
		a.ReqVreg(ret),
		call,
		a.ClearVreg(v1),
		a.ClearVreg(v2),
		a.ClearVreg(ret),
	)

	alloc := NewAllocator(a)
	assert.NoError(alloc.Run(root))
	assert.NoError(LowerCalls(a, alloc, root))

	// the managed-call node itself must be gone.
	for _, c := range a.Children(root) {
		assert.NotEqual(flounder.KindManagedCall, a.Kind(c))
	}

	// the expansion must contain a real call and a rax->retVal move.
	var sawCall, sawRetMove bool
	for _, c := range a.Children(root) {
		if a.Kind(c) == flounder.KindCall {
			sawCall = true
		}
		if a.Kind(c) == flounder.KindMov {
			ops := a.Children(c)
			if a.Kind(ops[1]) == flounder.KindReg && a.ResourceID(ops[1]) == flounder.RAX {
				sawRetMove = true
			}
		}
	}
	assert.True(sawCall)
	assert.True(sawRetMove)
}

func TestLowerCallsSavesLiveCallerSaveRegisters(t *testing.T) {
	assert := assert.New(t)
	a := flounder.NewArena()

	// Force v1 onto a caller-save register by exhausting the
	// callee-save partition first, then keep it live across a call.
	var reqs []flounder.NodeID
	for i := int32(1); i <= 6; i++ {
		reqs = append(reqs, a.ReqVreg(a.Vreg(8, i)))
	}
	live := a.Vreg(8, 100)
	addr := a.ConstAddress(0x2000)
	call := a.ManagedCall(flounder.InvalidNode, addr)

	stmts := append(reqs, a.ReqVreg(live), call, a.ClearVreg(live))
	root := seq(a, stmts...)

	alloc := NewAllocator(a)
	assert.NoError(alloc.Run(root))
	assert.Equal(1, len(alloc.CallerSaveLiveAt(call)))

	assert.NoError(LowerCalls(a, alloc, root))
	assert.Greater(alloc.CallSaveReserve(), 0)

	var sawSpillStore bool
	for _, c := range a.Children(root) {
		if a.Kind(c) == flounder.KindMov {
			ops := a.Children(c)
			if a.Kind(ops[0]) == flounder.KindMemSub {
				sawSpillStore = true
			}
		}
	}
	assert.True(sawSpillStore)
}

func TestEmitFrameWrapsPrologueAndEpilogue(t *testing.T) {
	assert := assert.New(t)
	a := flounder.NewArena()

	v1 := a.Vreg(8, 1)
	root := seq(a,
		a.ReqVreg(v1),
		a.ClearVreg(v1),
		a.Ret(),
	)

	alloc := NewAllocator(a)
	assert.NoError(alloc.Run(root))
	assert.NoError(LowerCalls(a, alloc, root))
	EmitFrame(a, alloc, root)

	children := a.Children(root)
	assert.Equal(flounder.KindPush, a.Kind(children[0]))
	assert.Equal(flounder.RBP, a.ResourceID(a.Children(children[0])[0]))

	var sawPopBeforeRet bool
	for i, c := range children {
		if a.Kind(c) == flounder.KindRet {
			assert.Equal(flounder.KindPop, a.Kind(children[i-1]))
			sawPopBeforeRet = true
		}
	}
	assert.True(sawPopBeforeRet)
}
