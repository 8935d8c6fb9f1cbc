package exprgen

import (
	"fmt"
	"strings"

	"github.com/resqljit/resql/sql"
	"github.com/resqljit/resql/sqltypes"
)

// TypeEnv maps an attribute name (as it will be looked up at Derive
// time — a bare column name, or "table.column" for a qualified
// reference) to its declared type. plan.BuildTypeEnv builds one from a
// resolved Scope's storage.Relation schemas.
type TypeEnv map[string]sqltypes.Type

// deriveState carries the synthesized-name counter across one Derive
// call; "expr"+id names must be unique within a single expression tree
// but need not be globally unique (the symbol table that actually uses
// them is scoped per operator, see jit.Context.symbols).
type deriveState struct {
	env    TypeEnv
	nextID int
}

func (d *deriveState) freshName() string {
	id := d.nextID
	d.nextID++
	return fmt.Sprintf("expr%d", id)
}

// Derive walks e bottom-up, assigning every node a sqltypes.Type and
// wedging Typecast nodes wherever §4.7's precedence/decimal-scale rules
// require one. env supplies the declared type of every attribute the
// expression can reference.
func Derive(e sql.Expr, env TypeEnv) (*Node, error) {
	d := &deriveState{env: env}
	return d.derive(e)
}

func (d *deriveState) derive(e sql.Expr) (*Node, error) {
	switch e.Type() {
	case sql.ExprConst:
		return d.deriveConst(e.(*sql.Const))
	case sql.ExprRef:
		return d.deriveRef(e.(*sql.Ref))
	case sql.ExprPrimary:
		return d.derivePrimary(e.(*sql.Primary))
	case sql.ExprUnary:
		return d.deriveUnary(e.(*sql.Unary))
	case sql.ExprBinary:
		return d.deriveBinary(e.(*sql.Binary))
	case sql.ExprTernary:
		return d.deriveTernary(e.(*sql.Ternary))
	default:
		return nil, fmt.Errorf("exprgen: unsupported expression node")
	}
}

func (d *deriveState) deriveConst(c *sql.Const) (*Node, error) {
	n := &Node{Tag: Constant, Name: d.freshName()}
	switch c.Ty {
	case sql.ConstInt:
		n.Type = sqltypes.Int64()
		n.ConstInt = c.Int
	case sql.ConstReal:
		n.Type = sqltypes.Float()
		n.ConstFloat = c.Real
	case sql.ConstBool:
		n.Type = sqltypes.Bool()
		n.ConstBool = c.Bool
	case sql.ConstStr:
		n.Type = sqltypes.Varchar(len(c.String))
		n.ConstStr = c.String
	case sql.ConstNull:
		return nil, fmt.Errorf("exprgen: NULL literals are not supported")
	default:
		return nil, fmt.Errorf("exprgen: unknown constant tag %d", c.Ty)
	}
	return n, nil
}

// attribute resolves name against env and builds an Attribute node.
func (d *deriveState) attribute(name string) (*Node, error) {
	t, ok := d.env[name]
	if !ok {
		return nil, fmt.Errorf("exprgen: unknown identifier %q", name)
	}
	return &Node{Tag: Attribute, Type: t, Name: name, Attr: name}, nil
}

func (d *deriveState) deriveRef(ref *sql.Ref) (*Node, error) {
	return d.attribute(ref.Id)
}

// derivePrimary handles the two shapes parsePrimary ever actually
// produces for a *sql.Primary (len(Suffix) > 0 is the only case the
// parser builds — a bare atomic collapses to its own node instead): a
// single dot suffix for a qualified "table.column" reference, or a
// single call suffix for an aggregate function application. No other
// suffix chain (index, multiple dots, call-on-call) is reachable for
// the value expressions this engine compiles.
func (d *deriveState) derivePrimary(p *sql.Primary) (*Node, error) {
	if len(p.Suffix) != 1 {
		return nil, fmt.Errorf("exprgen: unsupported expression shape (suffix chain of length %d)", len(p.Suffix))
	}
	suf := p.Suffix[0]
	switch suf.Ty {
	case sql.SuffixDot:
		ref, ok := p.Leading.(*sql.Ref)
		if !ok {
			return nil, fmt.Errorf("exprgen: qualified reference must be table.column")
		}
		return d.attribute(ref.Id + "." + suf.Component)
	case sql.SuffixCall:
		ref, ok := p.Leading.(*sql.Ref)
		if !ok {
			return nil, fmt.Errorf("exprgen: function call target must be a name")
		}
		fname := strings.ToLower(ref.Id)
		if !sql.IsAggFunc(fname) {
			return nil, fmt.Errorf("exprgen: unsupported function %q", ref.Id)
		}
		return d.deriveAgg(fname, suf.Call)
	default:
		return nil, fmt.Errorf("exprgen: unsupported suffix expression")
	}
}

func (d *deriveState) deriveAgg(fname string, call *sql.Call) (*Node, error) {
	var child *Node
	isStar := false
	if len(call.Parameters) == 1 {
		if r, ok := call.Parameters[0].(*sql.Ref); ok && r.Id == "*" {
			isStar = true
		}
	}
	if !isStar {
		if len(call.Parameters) != 1 {
			return nil, fmt.Errorf("exprgen: %s takes exactly one argument", fname)
		}
		c, err := d.derive(call.Parameters[0])
		if err != nil {
			return nil, err
		}
		child = c
	} else if fname != "count" {
		return nil, fmt.Errorf("exprgen: %s(*) is not supported", fname)
	}

	n := &Node{Name: d.freshName(), Child: child}
	switch fname {
	case "count":
		n.Tag = Count
		n.Type = sqltypes.Int64()
	case "sum":
		n.Tag = Sum
		n.Type = sumType(child.Type)
	case "avg":
		n.Tag = Avg
		n.Type = sqltypes.Decimal(19, 2)
	case "min":
		n.Tag = Min
		n.Type = child.Type
	case "max":
		n.Tag = Max
		n.Type = child.Type
	default:
		return nil, fmt.Errorf("exprgen: unsupported aggregate %q", fname)
	}
	return n, nil
}

// sumType implements "SUM preserves scale at precision 19": a decimal
// child widens to precision 19 at its own scale; anything else keeps
// its own type.
func sumType(t sqltypes.Type) sqltypes.Type {
	if t.Tag == sqltypes.DECIMAL {
		return sqltypes.Decimal(19, t.Scale)
	}
	return t
}

func (d *deriveState) deriveUnary(u *sql.Unary) (*Node, error) {
	cur, err := d.derive(u.Operand)
	if err != nil {
		return nil, err
	}
	for i := len(u.Op) - 1; i >= 0; i-- {
		switch u.Op[i] {
		case sql.TkAdd:
			continue // unary plus is a no-op
		case sql.TkSub:
			if !cur.Type.IsNumeric() || cur.Type.Tag == sqltypes.FLOAT {
				return nil, fmt.Errorf("exprgen: unary - is only supported on integer/decimal operands")
			}
			cur = &Node{Tag: Neg, Type: cur.Type, Operand: cur, Name: d.freshName()}
		case sql.TkNot:
			cur = &Node{Tag: Not, Type: sqltypes.Bool(), Operand: cur, Name: d.freshName()}
		default:
			return nil, fmt.Errorf("exprgen: unknown unary operator")
		}
	}
	return cur, nil
}

// unifyNumeric imposes the higher-precedence operand's type on the
// other (wedging a Typecast), then, if both sides are decimal with
// different scales, casts both to the larger scale with precision
// bounded to 19. Returns the (possibly rewrapped) operands and their
// now-common type.
func unifyNumeric(l, r *Node) (*Node, *Node, sqltypes.Type, error) {
	if !l.Type.IsNumeric() || !r.Type.IsNumeric() {
		return nil, nil, sqltypes.Type{}, fmt.Errorf("exprgen: arithmetic/comparison requires numeric operands")
	}
	if l.Type.Tag == sqltypes.FLOAT || r.Type.Tag == sqltypes.FLOAT {
		return nil, nil, sqltypes.Type{}, fmt.Errorf("exprgen: FLOAT does not support arithmetic or ordered comparison in this engine (integer-register ALU only, no SSE path)")
	}
	if l.Type.Tag != r.Type.Tag {
		wider := sqltypes.Wider(l.Type, r.Type)
		if !l.Type.Equal(wider) {
			l = wrapTypecast(l, wider)
		}
		if !r.Type.Equal(wider) {
			r = wrapTypecast(r, wider)
		}
	}
	if l.Type.Tag == sqltypes.DECIMAL && l.Type.Scale != r.Type.Scale {
		scale := l.Type.Scale
		if r.Type.Scale > scale {
			scale = r.Type.Scale
		}
		common := sqltypes.Decimal(19, scale)
		if l.Type.Scale != scale {
			l = wrapTypecast(l, common)
		}
		if r.Type.Scale != scale {
			r = wrapTypecast(r, common)
		}
	}
	return l, r, l.Type, nil
}

func wrapTypecast(child *Node, to sqltypes.Type) *Node {
	return &Node{Tag: Typecast, Type: to, Child: child, Name: child.Name + "_cast"}
}

func clampPrecision(p int) int {
	if p > 19 {
		return 19
	}
	return p
}

func (d *deriveState) deriveBinary(b *sql.Binary) (*Node, error) {
	l, err := d.derive(b.L)
	if err != nil {
		return nil, err
	}
	r, err := d.derive(b.R)
	if err != nil {
		return nil, err
	}

	switch b.Op {
	case sql.TkAnd, sql.TkOr:
		if l.Type.Tag != sqltypes.BOOL || r.Type.Tag != sqltypes.BOOL {
			return nil, fmt.Errorf("exprgen: AND/OR require boolean operands")
		}
		tag := And
		if b.Op == sql.TkOr {
			tag = Or
		}
		return &Node{Tag: tag, Type: sqltypes.Bool(), L: l, R: r, Name: d.freshName()}, nil

	case sql.TkLike:
		if !l.Type.IsString() || !r.Type.IsString() {
			return nil, fmt.Errorf("exprgen: LIKE requires string operands")
		}
		return &Node{Tag: Like, Type: sqltypes.Bool(), L: l, R: r, Name: d.freshName()}, nil

	case sql.TkEq, sql.TkNe:
		if l.Type.IsString() || r.Type.IsString() {
			if !l.Type.IsString() || !r.Type.IsString() {
				return nil, fmt.Errorf("exprgen: cannot compare string and non-string")
			}
			tag := Eq
			if b.Op == sql.TkNe {
				tag = Ne
			}
			return &Node{Tag: tag, Type: sqltypes.Bool(), L: l, R: r, Name: d.freshName()}, nil
		}
		fallthrough

	case sql.TkLt, sql.TkLe, sql.TkGt, sql.TkGe:
		ul, ur, _, err := unifyNumeric(l, r)
		if err != nil {
			return nil, err
		}
		tag := map[int]Tag{
			sql.TkLt: Lt, sql.TkLe: Le, sql.TkGt: Gt, sql.TkGe: Ge,
			sql.TkEq: Eq, sql.TkNe: Ne,
		}[b.Op]
		return &Node{Tag: tag, Type: sqltypes.Bool(), L: ul, R: ur, Name: d.freshName()}, nil

	case sql.TkAdd, sql.TkSub:
		ul, ur, common, err := unifyNumeric(l, r)
		if err != nil {
			return nil, err
		}
		result := common
		if common.Tag == sqltypes.DECIMAL {
			p := common.Precision
			if ul.Type.Precision > p {
				p = ul.Type.Precision
			}
			if ur.Type.Precision > p {
				p = ur.Type.Precision
			}
			result = sqltypes.Decimal(clampPrecision(p+1), common.Scale)
		}
		tag := Add
		if b.Op == sql.TkSub {
			tag = Sub
		}
		return &Node{Tag: tag, Type: result, L: ul, R: ur, Name: d.freshName()}, nil

	case sql.TkMul:
		ul, ur, common, err := unifyNumeric(l, r)
		if err != nil {
			return nil, err
		}
		result := common
		if common.Tag == sqltypes.DECIMAL {
			result = sqltypes.Decimal(clampPrecision(ul.Type.Precision+ur.Type.Precision), clampPrecision(ul.Type.Scale+ur.Type.Scale))
		}
		return &Node{Tag: Mul, Type: result, L: ul, R: ur, Name: d.freshName()}, nil

	case sql.TkDiv:
		return nil, fmt.Errorf("exprgen: division is not implemented")

	default:
		return nil, fmt.Errorf("exprgen: unsupported binary operator")
	}
}

// deriveTernary maps the grammar's single-condition "cond ? b0 : b1"
// onto a one-arm Case node: the general CASE emission algorithm (§4.6)
// handles any arm count, and a single WHEN/THEN plus an ELSE is exactly
// what this grammar's ternary expression means.
func (d *deriveState) deriveTernary(t *sql.Ternary) (*Node, error) {
	cond, err := d.derive(t.Cond)
	if err != nil {
		return nil, err
	}
	if cond.Type.Tag != sqltypes.BOOL {
		return nil, fmt.Errorf("exprgen: CASE/ternary condition must be boolean")
	}
	then, err := d.derive(t.B0)
	if err != nil {
		return nil, err
	}
	els, err := d.derive(t.B1)
	if err != nil {
		return nil, err
	}

	var common sqltypes.Type
	if then.Type.IsNumeric() && els.Type.IsNumeric() {
		var err error
		then, els, common, err = unifyNumeric(then, els)
		if err != nil {
			return nil, err
		}
	} else {
		if !then.Type.Equal(els.Type) {
			return nil, fmt.Errorf("exprgen: CASE branches have incompatible types")
		}
		common = then.Type
	}

	return &Node{
		Tag:   Case,
		Type:  common,
		Whens: []WhenThen{{When: cond, Then: then}},
		Else:  els,
		Name:  d.freshName(),
	}, nil
}
