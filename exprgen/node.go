// Package exprgen is the expression code generator (C7): it walks a
// parsed sql.Expr into an internally-typed tree (sql.Expr itself has no
// CASE/TYPECAST node, so those are represented only here) and emits
// Flounder IR for it against a jit.Context.
//
// Grounded on cg/gen_expr.go's exprCodeGen (same switch-on-tag
// dispatch shape, one gen* method per case), generalized from string concatenation to IR-node emission and from
// AWK's dynamic typing to sqltypes' tagged union with explicit
// typecast insertion.
package exprgen

import "github.com/resqljit/resql/sqltypes"

// Tag identifies one node of the internal expression tree. Most tags
// mirror an sql.Binary/Unary operator one-to-one; Case and Typecast
// have no sql.Expr counterpart and only ever appear here, inserted by
// Derive.
type Tag int

const (
	Constant Tag = iota
	Attribute
	Add
	Sub
	Mul
	Div
	And
	Or
	Lt
	Le
	Gt
	Ge
	Eq
	Ne
	Like
	Not
	Neg
	Case
	Sum
	Min
	Max
	Avg
	Count
	Typecast
)

// WhenThen is one arm of a Case node.
type WhenThen struct {
	When *Node
	Then *Node
}

// Node is one internal expression tree node. Only the fields relevant
// to Tag are populated.
type Node struct {
	Tag  Tag
	Type sqltypes.Type

	// Name is the node's canonical symbol-table key: an Attribute's
	// column name, a projected column's alias, or a synthesized
	// "expr"+id for everything else (see Generator.Gen).
	Name string

	// Constant payload (Tag == Constant).
	ConstInt   int64
	ConstFloat float64
	ConstBool  bool
	ConstStr   string

	// Attribute payload (Tag == Attribute): the column name, used both
	// as the symbol-table key and, when Name is overridden by a
	// projection alias, as the lookup key into the child scope's
	// symbol table.
	Attr string

	// Binary/unary operand children.
	L, R    *Node
	Operand *Node

	// Case payload (Tag == Case).
	Whens []WhenThen
	Else  *Node

	// Aggregate/Typecast payload: the single child expression. For
	// Count(*) Child is nil (the emission rule is a bare BIGINT 1
	// regardless of argument).
	Child *Node

	// Typecast payload (Tag == Typecast): Child.Type is the source
	// type, Type is the destination type.
}
