package jit

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"

	"github.com/resqljit/resql/flounder"
	"github.com/resqljit/resql/sqltypes"
)

func TestVregForTypeWidths(t *testing.T) {
	assert := assert.New(t)
	ctx := NewContext(Config{NumThreads: 1})

	cases := []struct {
		t    sqltypes.Type
		want int
	}{
		{sqltypes.Bool(), 1},
		{sqltypes.Char(1), 1},
		{sqltypes.Int32(), 4},
		{sqltypes.Date(), 4},
		{sqltypes.Int64(), 8},
		{sqltypes.Float(), 8},
		{sqltypes.Varchar(32), 8},
	}
	for _, c := range cases {
		v := ctx.VregForType(c.t, false)
		assert.Equal(c.want, ctx.Arena.Width(v), "type %s", c.t)
	}
}

func TestVregForTypeExplicitEmitsRequest(t *testing.T) {
	assert := assert.New(t)
	ctx := NewContext(Config{NumThreads: 1})

	before := ctx.Arena.NumChildren(ctx.CodeTree())
	ctx.VregForType(sqltypes.Int64(), true)
	after := ctx.Arena.NumChildren(ctx.CodeTree())
	assert.Equal(before+1, after)

	last := ctx.Arena.Children(ctx.CodeTree())[after-1]
	assert.Equal(flounder.KindReqVreg, ctx.Arena.Kind(last))
}

func TestNextLabelIsUnique(t *testing.T) {
	assert := assert.New(t)
	ctx := NewContext(Config{NumThreads: 1})
	a := ctx.NextLabel("next_tuple")
	b := ctx.NextLabel("next_tuple")
	assert.NotEqual(a, b)
}

func TestOpenClosePipelineSplicesAtCursor(t *testing.T) {
	assert := assert.New(t)
	ctx := NewContext(Config{NumThreads: 1})
	a := ctx.Arena

	// something already in the tree before the pipeline opens.
	ctx.Emit(a.Comment("before"))

	ctx.OpenPipeline()
	a.AddChild(ctx.PipeHeader(), a.Comment("init"))
	ctx.Emit(a.Comment("loop-body"))
	a.AddChild(ctx.PipeFooter(), a.Comment("teardown"))
	ctx.ClosePipeline()

	texts := []string{}
	for _, c := range a.Children(ctx.CodeTree()) {
		if a.Kind(c) == flounder.KindComment {
			texts = append(texts, a.Text(c))
		}
	}
	assert.Equal([]string{"before", "init", "loop-body", "teardown"}, texts)
}

func TestSymbolTableRoundTrip(t *testing.T) {
	assert := assert.New(t)
	ctx := NewContext(Config{NumThreads: 1})
	v := ctx.VregForType(sqltypes.Int32(), false)
	ctx.SetSymbol("a.x", v)

	got, ok := ctx.LookupSymbol("a.x")
	assert.True(ok)
	assert.Equal(v, got)

	ctx.DeleteSymbol("a.x")
	_, ok = ctx.LookupSymbol("a.x")
	assert.False(ok)
}

func TestCompileAndExecuteReturnsConstant(t *testing.T) {
	assert := assert.New(t)
	ctx := NewContext(Config{NumThreads: 3})
	a := ctx.Arena

	ctx.Emit(a.Mov(a.Reg(8, flounder.RAX), a.ConstI64(42)))

	compiled, err := ctx.Compile()
	assert.NoError(err)
	defer compiled.Release()

	ptrs := make([]unsafe.Pointer, 3)
	results, err := ctx.Execute(compiled, ptrs)
	assert.NoError(err)
	assert.Len(results, 3)
	for _, r := range results {
		assert.Equal(int64(42), r)
	}
	assert.Len(ctx.Report.ThreadDurations, 3)
	assert.Greater(ctx.Report.CodeSizeBytes, 0)
}

func TestExecuteRejectsWrongContextCount(t *testing.T) {
	assert := assert.New(t)
	ctx := NewContext(Config{NumThreads: 2})
	a := ctx.Arena
	ctx.Emit(a.Mov(a.Reg(8, flounder.RAX), a.ConstI64(1)))
	compiled, err := ctx.Compile()
	assert.NoError(err)
	defer compiled.Release()

	_, err = ctx.Execute(compiled, []unsafe.Pointer{nil})
	assert.Error(err)
}
