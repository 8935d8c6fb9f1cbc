package flounder

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddChildCopySemantics(t *testing.T) {
	assert := assert.New(t)
	a := NewArena()

	v := a.Vreg(8, 1)
	c := a.ConstI64(42)
	mov := a.Mov(v, c)

	// Add the same mov template under two different parents; each
	// instantiation must be an independent node (so next/prev links
	// don't conflict) but operand identity (by kind/id) is preserved.
	p1 := a.instr(KindRoot)
	p2 := a.instr(KindRoot)
	i1 := a.AddChild(p1, mov)
	i2 := a.AddChild(p2, mov)
	assert.NotEqual(i1, i2)
	assert.Equal(1, a.NumChildren(p1))
	assert.Equal(1, a.NumChildren(p2))
	assert.Equal(KindMov, a.Kind(i1))
	assert.Equal(KindMov, a.Kind(i2))
}

func TestTreeEditing(t *testing.T) {
	assert := assert.New(t)
	a := NewArena()
	root := a.Root()

	i1 := a.AddChild(root, a.Mov(a.Reg(8, RAX), a.ConstI64(1)))
	i2 := a.AddChild(root, a.Mov(a.Reg(8, RCX), a.ConstI64(2)))
	i3 := a.AddChild(root, a.Mov(a.Reg(8, RDX), a.ConstI64(3)))
	assert.Equal(3, a.NumChildren(root))

	inserted := a.AddChild(root, a.Comment("nop"))
	a.RemoveChild(root, inserted)
	a.InsertAfterChild(root, i1, inserted)
	assert.Equal(4, a.NumChildren(root))

	kids := a.Children(root)
	assert.Equal([]NodeID{i1, inserted, i2, i3}, kids)
}

func TestReplaceChild(t *testing.T) {
	assert := assert.New(t)
	a := NewArena()
	root := a.Root()
	i1 := a.AddChild(root, a.Mov(a.Reg(8, RAX), a.ConstI64(1)))
	i2 := a.AddChild(root, a.Mov(a.Reg(8, RCX), a.ConstI64(2)))

	replacement := a.AddChild(root, a.Comment("nop"))
	a.RemoveChild(root, replacement)
	a.ReplaceChild(root, i1, replacement)

	kids := a.Children(root)
	assert.Equal([]NodeID{replacement, i2}, kids)
}

func TestTransferChildren(t *testing.T) {
	assert := assert.New(t)
	a := NewArena()
	dst := a.instr(KindRoot)
	d1 := a.AddChild(dst, a.Comment("nop"))

	src := a.instr(KindRoot)
	s1 := a.AddChild(src, a.Mov(a.Reg(8, RAX), a.ConstI64(9)))
	s2 := a.AddChild(src, a.Mov(a.Reg(8, RCX), a.ConstI64(8)))

	a.TransferChildren(dst, d1, src)
	assert.Equal(0, a.NumChildren(src))
	assert.Equal(3, a.NumChildren(dst))
	assert.Equal([]NodeID{d1, s1, s2}, a.Children(dst))
}

func TestEmitProducesReadableText(t *testing.T) {
	assert := assert.New(t)
	a := NewArena()
	root := a.Root()
	a.AddChild(root, a.Mov(a.Reg(8, RAX), a.ConstI64(42)))
	a.AddChild(root, a.Ret())
	out := a.Emit(root)
	assert.True(strings.Contains(out, "mov rax, 42"))
	assert.True(strings.Contains(out, "ret"))
}

func TestReadWriteTable(t *testing.T) {
	assert := assert.New(t)
	assert.False(ReadsOperand(KindMov, 0))
	assert.True(ReadsOperand(KindMov, 1))
	assert.True(WritesOperand(KindMov, 0))
	assert.True(ReadsOperand(KindCmp, 0))
	assert.True(ReadsOperand(KindCmp, 1))
	assert.False(WritesOperand(KindCmp, 0))
	assert.True(ReadsOperand(KindManagedCall, 2))
	assert.False(ReadsOperand(KindManagedCall, 1))
	assert.True(WritesOperand(KindManagedCall, 0))
}
