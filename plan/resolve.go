package plan

import (
	"fmt"

	"github.com/resqljit/resql/exprgen"
	"github.com/resqljit/resql/sql"
	"github.com/resqljit/resql/sqltypes"
	"github.com/resqljit/resql/storage"
)

// TableBinding is one entry of a FROM clause: a relation bound under an
// alias (or its own name, when the query used none) at a fixed index —
// the same TableIndex that CanName.Set records.
type TableBinding struct {
	Alias    string
	Relation *storage.Relation
	Index    int
}

// Scope is the set of tables a single SELECT's expressions may
// reference. Joins introduce one Scope per query; subqueries (not
// currently supported) would nest scopes, which this type does not
// attempt to model.
type Scope struct {
	Tables []TableBinding
}

// NewScope numbers tables in FROM-clause order, the same order
// exprTableAccessInfo's TableIndex values are later compared against.
func NewScope(bindings []TableBinding) *Scope {
	for i := range bindings {
		bindings[i].Index = i
	}
	return &Scope{Tables: bindings}
}

func (s *Scope) byAlias(alias string) (TableBinding, bool) {
	for _, b := range s.Tables {
		if b.Alias == alias {
			return b, true
		}
	}
	return TableBinding{}, false
}

// column looks up name as an unqualified column across every bound
// table. It returns an error if no table defines it or if more than one
// does (an ambiguous reference), matching standard SQL name resolution.
func (s *Scope) column(name string) (TableBinding, sqltypes.Attribute, int, error) {
	var found TableBinding
	var attr sqltypes.Attribute
	var idx int
	matches := 0
	for _, b := range s.Tables {
		if a, ok := b.Relation.Schema.AttributeByName(name); ok {
			found = b
			attr = a
			idx = b.Relation.Schema.IndexOf(name)
			matches++
		}
	}
	switch matches {
	case 0:
		return TableBinding{}, sqltypes.Attribute{}, 0, fmt.Errorf("plan: unknown column %q", name)
	case 1:
		return found, attr, idx, nil
	default:
		return TableBinding{}, sqltypes.Attribute{}, 0, fmt.Errorf("plan: ambiguous column %q", name)
	}
}

// ResolveSelect settles CanName on every table-column reference reachable
// from sel's Projection/Where/GroupBy/Having/OrderBy, in place, against
// scope. It must run before plan/expr.go's table-access marking pass and
// before exprgen.Derive (Derive has no notion of CanName at all — it
// resolves purely by the name TypeEnv key this package builds once
// resolution settles names with BuildTypeEnv).
func ResolveSelect(sel *sql.Select, scope *Scope) error {
	if sel.Projection != nil {
		for _, v := range sel.Projection.ValueList {
			if col, ok := v.(*sql.Col); ok {
				if err := resolveExpr(col.Value, scope); err != nil {
					return err
				}
			}
		}
	}
	if sel.Where != nil {
		if err := resolveExpr(sel.Where.Condition, scope); err != nil {
			return err
		}
	}
	if sel.GroupBy != nil {
		for _, e := range sel.GroupBy.Name {
			if err := resolveExpr(e, scope); err != nil {
				return err
			}
		}
	}
	if sel.Having != nil {
		if err := resolveExpr(sel.Having.Condition, scope); err != nil {
			return err
		}
	}
	if sel.OrderBy != nil {
		for _, e := range sel.OrderBy.Name {
			if err := resolveExpr(e, scope); err != nil {
				return err
			}
		}
	}
	return nil
}

// ResolveExpr resolves a single standalone expression (used by callers
// outside of a full SELECT, e.g. a REWRITE clause's condition).
func ResolveExpr(e sql.Expr, scope *Scope) error { return resolveExpr(e, scope) }

func resolveExpr(e sql.Expr, scope *Scope) error {
	if e == nil {
		return nil
	}
	switch e.Type() {
	case sql.ExprRef:
		return resolveRef(e.(*sql.Ref), scope)
	case sql.ExprPrimary:
		return resolvePrimary(e.(*sql.Primary), scope)
	case sql.ExprUnary:
		u := e.(*sql.Unary)
		return resolveExpr(u.Operand, scope)
	case sql.ExprBinary:
		b := e.(*sql.Binary)
		if err := resolveExpr(b.L, scope); err != nil {
			return err
		}
		return resolveExpr(b.R, scope)
	case sql.ExprTernary:
		t := e.(*sql.Ternary)
		if err := resolveExpr(t.Cond, scope); err != nil {
			return err
		}
		if err := resolveExpr(t.B0, scope); err != nil {
			return err
		}
		return resolveExpr(t.B1, scope)
	default:
		// sql.Const and the bare sql.Suffix case (never produced as a
		// standalone node by the parser, see sql.Primary) need no
		// resolution.
		return nil
	}
}

func resolveRef(ref *sql.Ref, scope *Scope) error {
	if ref.Id == "*" {
		// COUNT(*)'s argument placeholder; not a real column reference.
		return nil
	}
	if ref.CanName.IsSettled() {
		return nil
	}
	b, _, idx, err := scope.column(ref.Id)
	if err != nil {
		return err
	}
	ref.CanName.Set(b.Index, idx)
	return nil
}

func resolvePrimary(p *sql.Primary, scope *Scope) error {
	if len(p.Suffix) == 1 && p.Suffix[0].Ty == sql.SuffixDot {
		ref, ok := p.Leading.(*sql.Ref)
		if !ok {
			return fmt.Errorf("plan: qualified reference must be alias.column")
		}
		b, ok := scope.byAlias(ref.Id)
		if !ok {
			return fmt.Errorf("plan: unknown table alias %q", ref.Id)
		}
		attr, ok := b.Relation.Schema.AttributeByName(p.Suffix[0].Component)
		if !ok {
			return fmt.Errorf("plan: table %q has no column %q", ref.Id, p.Suffix[0].Component)
		}
		p.CanName.Set(b.Index, b.Relation.Schema.IndexOf(attr.Name))
		return nil
	}
	if len(p.Suffix) == 1 && p.Suffix[0].Ty == sql.SuffixCall {
		for _, param := range p.Suffix[0].Call.Parameters {
			if err := resolveExpr(param, scope); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("plan: unsupported expression shape (suffix chain of length %d)", len(p.Suffix))
}

// BuildTypeEnv builds the exprgen.TypeEnv for scope: every column of
// every bound table, keyed by "alias.column" (always) and additionally
// by the bare column name when it is unambiguous across the whole
// scope — mirroring unqualified references resolveRef accepts.
func BuildTypeEnv(scope *Scope) exprgen.TypeEnv {
	env := exprgen.TypeEnv{}
	counts := map[string]int{}
	for _, b := range scope.Tables {
		for _, a := range b.Relation.Schema.Attributes {
			env[b.Alias+"."+a.Name] = a.Type
			counts[a.Name]++
		}
	}
	for _, b := range scope.Tables {
		for _, a := range b.Relation.Schema.Attributes {
			if counts[a.Name] == 1 {
				env[a.Name] = a.Type
			}
		}
	}
	return env
}
