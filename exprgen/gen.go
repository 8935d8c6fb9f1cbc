package exprgen

import (
	"fmt"

	"github.com/resqljit/resql/flounder"
	"github.com/resqljit/resql/jit"
	"github.com/resqljit/resql/runtime"
	"github.com/resqljit/resql/sqltypes"
)

// Generator emits Flounder IR for a Node tree against one query's
// jit.Context. Dispatch mirrors cg/gen_expr.go's exprCodeGen: a single
// switch on the node's tag, one method per case.
type Generator struct {
	ctx *jit.Context
}

func NewGenerator(ctx *jit.Context) *Generator {
	return &Generator{ctx: ctx}
}

// clear emits a ClearVreg marker for v, keeping the register
// allocator's live ranges tight once a caller is done consuming an
// intermediate value.
func (g *Generator) clear(v flounder.NodeID) {
	g.ctx.Emit(g.ctx.Arena.ClearVreg(v))
}

// Gen emits n's value into a fresh vreg and returns it. Before
// dispatching on n.Tag, it checks the symbol table for n's canonical
// name (set by an operator's dematerialize/SetSymbol call) and, if
// present, copies the cached value into a fresh vreg instead of
// re-emitting the whole subtree.
func (g *Generator) Gen(n *Node) flounder.NodeID {
	if cached, ok := g.ctx.LookupSymbol(n.Name); ok {
		v := g.ctx.VregForType(n.Type, true)
		g.ctx.Emit(g.ctx.Arena.Mov(v, cached))
		return v
	}

	switch n.Tag {
	case Constant:
		return g.genConstant(n)
	case Attribute:
		return g.genAttribute(n)
	case Add:
		return g.genArith(n, flounder.KindAdd)
	case Sub:
		return g.genArith(n, flounder.KindSub)
	case Mul:
		return g.genArith(n, flounder.KindImul)
	case And:
		return g.genLogic(n, true)
	case Or:
		return g.genLogic(n, false)
	case Lt, Le, Gt, Ge:
		lv := g.Gen(n.L)
		rv := g.Gen(n.R)
		return g.genCompare(n.Tag, lv, rv)
	case Eq, Ne:
		if n.L.Type.IsString() {
			return g.genStringEq(n)
		}
		lv := g.Gen(n.L)
		rv := g.Gen(n.R)
		return g.genCompare(n.Tag, lv, rv)
	case Like:
		return g.genLike(n)
	case Not:
		return g.genNot(n)
	case Neg:
		return g.genNeg(n)
	case Case:
		return g.genCase(n)
	case Sum, Min, Max, Avg:
		return g.genAggPassthrough(n)
	case Count:
		return g.genCount(n)
	case Typecast:
		return g.genTypecast(n)
	default:
		panic(fmt.Sprintf("exprgen: unhandled tag %d", n.Tag))
	}
}

// genConstant loads a vreg with n's value in the right width; a
// CHAR(1) constant loads a single byte from the constant string's
// address rather than carrying the address itself.
func (g *Generator) genConstant(n *Node) flounder.NodeID {
	a := g.ctx.Arena
	v := g.ctx.VregForType(n.Type, true)
	switch n.Type.Tag {
	case sqltypes.BOOL:
		b := int8(0)
		if n.ConstBool {
			b = 1
		}
		g.ctx.Emit(a.Mov(v, a.ConstI8(b)))
	case sqltypes.INT32, sqltypes.DATE:
		g.ctx.Emit(a.Mov(v, a.ConstI32(int32(n.ConstInt))))
	case sqltypes.INT64, sqltypes.DECIMAL:
		g.ctx.Emit(a.Mov(v, a.ConstLoad(a.ConstI64(n.ConstInt))))
	case sqltypes.FLOAT:
		g.ctx.Emit(a.Mov(v, a.ConstLoad(a.ConstF64(n.ConstFloat))))
	case sqltypes.CHAR:
		addr := g.ctx.ConstString(n.ConstStr)
		if n.Type.Len == 1 {
			ptr := g.ctx.PtrVreg()
			g.ctx.Emit(a.Mov(ptr, a.ConstLoad(addr)))
			g.ctx.Emit(a.Mov(v, a.Mem(ptr)))
			g.clear(ptr)
		} else {
			g.ctx.Emit(a.Mov(v, a.ConstLoad(addr)))
		}
	case sqltypes.VARCHAR:
		addr := g.ctx.ConstString(n.ConstStr)
		g.ctx.Emit(a.Mov(v, a.ConstLoad(addr)))
	default:
		panic(fmt.Sprintf("exprgen: constant of unsupported type %s", n.Type))
	}
	return v
}

// genAttribute is only ever reached when an attribute's canonical name
// was not already in scope — a plan-builder bug (every attribute an
// expression references must have been dematerialized into the symbol
// table by its producing operator before consume calls into Gen).
func (g *Generator) genAttribute(n *Node) flounder.NodeID {
	panic(fmt.Sprintf("exprgen: attribute %q referenced out of scope", n.Name))
}

func (g *Generator) genArith(n *Node, op flounder.Kind) flounder.NodeID {
	a := g.ctx.Arena
	lv := g.Gen(n.L)
	rv := g.Gen(n.R)
	res := g.ctx.VregForType(n.Type, true)
	g.ctx.Emit(a.Mov(res, lv))
	switch op {
	case flounder.KindAdd:
		g.ctx.Emit(a.Add(res, rv))
	case flounder.KindSub:
		g.ctx.Emit(a.Sub(res, rv))
	case flounder.KindImul:
		g.ctx.Emit(a.Imul(res, rv))
	}
	g.clear(lv)
	g.clear(rv)
	return res
}

func (g *Generator) genLogic(n *Node, isAnd bool) flounder.NodeID {
	a := g.ctx.Arena
	lv := g.Gen(n.L)
	rv := g.Gen(n.R)
	res := g.ctx.VregForType(n.Type, true)
	g.ctx.Emit(a.Mov(res, lv))
	if isAnd {
		g.ctx.Emit(a.And(res, rv))
	} else {
		g.ctx.Emit(a.Or(res, rv))
	}
	g.clear(lv)
	g.clear(rv)
	return res
}

// genCompare emits the cmp + conditional-jump-over-"set to 1" pattern
// for LT/LE/GT/GE/EQ (numeric); NE is built as 1 − EQ, per §4.6.
func (g *Generator) genCompare(tag Tag, lv, rv flounder.NodeID) flounder.NodeID {
	a := g.ctx.Arena
	if tag == Ne {
		eq := g.genCompare(Eq, lv, rv)
		res := g.ctx.VregForType(sqltypes.Bool(), true)
		g.ctx.Emit(a.Mov(res, a.ConstI8(1)))
		g.ctx.Emit(a.Sub(res, eq))
		g.clear(eq)
		g.clear(lv)
		g.clear(rv)
		return res
	}

	res := g.ctx.VregForType(sqltypes.Bool(), true)
	g.ctx.Emit(a.Mov(res, a.ConstI8(0)))
	g.ctx.Emit(a.Cmp(lv, rv))
	skip := g.ctx.NextLabel("cmp_skip")
	skipLabel := a.Label(skip)
	switch tag {
	case Lt:
		g.ctx.Emit(a.Jge(skipLabel))
	case Le:
		g.ctx.Emit(a.Jg(skipLabel))
	case Gt:
		g.ctx.Emit(a.Jle(skipLabel))
	case Ge:
		g.ctx.Emit(a.Jl(skipLabel))
	case Eq:
		g.ctx.Emit(a.Jne(skipLabel))
	default:
		panic("exprgen: genCompare called with a non-comparison tag")
	}
	g.ctx.Emit(a.Mov(res, a.ConstI8(1)))
	g.ctx.Emit(a.PlaceLabel(skip))
	g.clear(lv)
	g.clear(rv)
	return res
}

// genStringEq is the EQ/NE-on-CHAR(>1)/VARCHAR managed-call path.
func (g *Generator) genStringEq(n *Node) flounder.NodeID {
	a := g.ctx.Arena
	lv := g.Gen(n.L)
	rv := g.Gen(n.R)

	bridge := interface{}(runtime.BridgeCmpChar)
	if n.L.Type.Tag == sqltypes.VARCHAR || n.R.Type.Tag == sqltypes.VARCHAR {
		bridge = runtime.BridgeCmpVarchar
	}

	res := g.ctx.VregForType(sqltypes.Bool(), true)
	g.ctx.CallBridge(bridge, res, lv,
		a.ConstI64(int64(n.L.Type.Len)), rv, a.ConstI64(int64(n.R.Type.Len)))
	g.clear(lv)
	g.clear(rv)

	if n.Tag == Ne {
		one := g.ctx.VregForType(sqltypes.Bool(), true)
		g.ctx.Emit(a.Mov(one, a.ConstI8(1)))
		g.ctx.Emit(a.Xor(res, one))
		g.clear(one)
	}
	return res
}

func (g *Generator) genLike(n *Node) flounder.NodeID {
	a := g.ctx.Arena
	lv := g.Gen(n.L)
	rv := g.Gen(n.R)
	res := g.ctx.VregForType(sqltypes.Bool(), true)
	g.ctx.CallBridge(runtime.BridgeLike, res, lv,
		a.ConstI64(int64(n.L.Type.Len)), rv, a.ConstI64(int64(n.R.Type.Len)))
	g.clear(lv)
	g.clear(rv)
	return res
}

func (g *Generator) genNot(n *Node) flounder.NodeID {
	a := g.ctx.Arena
	ov := g.Gen(n.Operand)
	res := g.ctx.VregForType(sqltypes.Bool(), true)
	g.ctx.Emit(a.Mov(res, a.ConstI8(1)))
	g.ctx.Emit(a.Xor(res, ov))
	g.clear(ov)
	return res
}

func (g *Generator) genNeg(n *Node) flounder.NodeID {
	a := g.ctx.Arena
	ov := g.Gen(n.Operand)
	res := g.ctx.VregForType(n.Type, true)
	g.ctx.Emit(a.Mov(res, a.ConstI32(0)))
	g.ctx.Emit(a.Sub(res, ov))
	g.clear(ov)
	return res
}

// genCase implements the produce/consume CASE algorithm: each arm
// tests its WHEN, falls through to store its THEN into the shared
// result vreg on true, or jumps to the next arm on false; an optional
// ELSE stores into the same result; a single after-case label joins
// every path.
func (g *Generator) genCase(n *Node) flounder.NodeID {
	a := g.ctx.Arena
	res := g.ctx.VregForType(n.Type, true)
	after := g.ctx.NextLabel("case_end")
	zero := g.ctx.VregForType(sqltypes.Bool(), true)
	g.ctx.Emit(a.Mov(zero, a.ConstI8(0)))

	for _, wt := range n.Whens {
		nextArm := g.ctx.NextLabel("case_arm")
		cond := g.Gen(wt.When)
		g.ctx.Emit(a.Cmp(cond, zero))
		g.ctx.Emit(a.Je(a.Label(nextArm)))
		g.clear(cond)

		then := g.Gen(wt.Then)
		g.ctx.Emit(a.Mov(res, then))
		g.clear(then)
		g.ctx.Emit(a.Jmp(a.Label(after)))
		g.ctx.Emit(a.PlaceLabel(nextArm))
	}

	if n.Else != nil {
		els := g.Gen(n.Else)
		g.ctx.Emit(a.Mov(res, els))
		g.clear(els)
	}
	g.ctx.Emit(a.PlaceLabel(after))
	g.clear(zero)
	return res
}

// genAggPassthrough implements the scalar-position rule for
// SUM/MIN/MAX/AVG: emit the child and copy it into a result vreg of
// the child's type. Real accumulation happens in the hash-aggregation
// operator, which calls Gen for the increment expression and performs
// the state update itself.
func (g *Generator) genAggPassthrough(n *Node) flounder.NodeID {
	cv := g.Gen(n.Child)
	res := g.ctx.VregForType(n.Type, true)
	g.ctx.Emit(g.ctx.Arena.Mov(res, cv))
	g.clear(cv)
	return res
}

func (g *Generator) genCount(n *Node) flounder.NodeID {
	a := g.ctx.Arena
	res := g.ctx.VregForType(sqltypes.Int64(), true)
	g.ctx.Emit(a.Mov(res, a.ConstLoad(a.ConstI64(1))))
	return res
}

// genTypecast dispatches by (from,to) per §4.6: BIGINT->BIGINT is a
// plain copy, INT32->BIGINT sign-extends via cdqe (rax/eax), and every
// DECIMAL conversion multiplies or divides by the appropriate power of
// ten.
func (g *Generator) genTypecast(n *Node) flounder.NodeID {
	a := g.ctx.Arena
	from := n.Child.Type
	to := n.Type
	cv := g.Gen(n.Child)
	res := g.ctx.VregForType(to, true)

	switch {
	case from.Tag == sqltypes.INT32 && to.Tag == sqltypes.INT64:
		g.ctx.Emit(a.Mov(a.Reg(4, flounder.RAX), cv))
		g.ctx.Emit(a.Cdqe())
		g.ctx.Emit(a.Mov(res, a.Reg(8, flounder.RAX)))
	case from.Tag == sqltypes.DECIMAL && to.Tag == sqltypes.DECIMAL:
		g.scalePow10(res, cv, to.Scale-from.Scale)
	case from.Tag == sqltypes.INT64 && to.Tag == sqltypes.DECIMAL:
		g.scalePow10(res, cv, to.Scale)
	case from.Tag == sqltypes.DECIMAL && to.Tag == sqltypes.INT64:
		g.scalePow10(res, cv, -from.Scale)
	default:
		// BIGINT->BIGINT and any other same-category cast the plan
		// builder wedged defensively: a plain copy.
		g.ctx.Emit(a.Mov(res, cv))
	}
	g.clear(cv)
	return res
}

// scalePow10 multiplies (diff > 0) or divides (diff < 0) cv by
// 10^|diff| into res; diff == 0 is a plain copy. The divide path uses
// the fixed idiv register assignment (dividend in rax, sign-extended
// into rdx with cqo, divisor in a vreg the allocator may place
// anywhere but rax/rdx).
func (g *Generator) scalePow10(res, cv flounder.NodeID, diff int) {
	a := g.ctx.Arena
	switch {
	case diff == 0:
		g.ctx.Emit(a.Mov(res, cv))
	case diff > 0:
		factor := g.ctx.PtrVreg()
		g.ctx.Emit(a.Mov(factor, a.ConstLoad(a.ConstI64(sqltypes.DecimalScaleFactor(diff)))))
		g.ctx.Emit(a.Mov(res, cv))
		g.ctx.Emit(a.Imul(res, factor))
		g.clear(factor)
	default:
		factor := g.ctx.PtrVreg()
		g.ctx.Emit(a.Mov(factor, a.ConstLoad(a.ConstI64(sqltypes.DecimalScaleFactor(-diff)))))
		g.ctx.Emit(a.Mov(a.Reg(8, flounder.RAX), cv))
		g.ctx.Emit(a.Cqo())
		g.ctx.Emit(a.Idiv(factor))
		g.ctx.Emit(a.Mov(res, a.Reg(8, flounder.RAX)))
		g.clear(factor)
	}
}
