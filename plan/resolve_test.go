package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/resqljit/resql/sql"
	"github.com/resqljit/resql/sqltypes"
	"github.com/resqljit/resql/storage"
)

func ordersSchema() sqltypes.Schema {
	s := sqltypes.Schema{Attributes: []sqltypes.Attribute{
		{Name: "id", Type: sqltypes.Int64()},
		{Name: "amount", Type: sqltypes.Decimal(10, 2)},
		{Name: "customer_id", Type: sqltypes.Int64()},
	}}
	s.Build()
	return s
}

func customersSchema() sqltypes.Schema {
	s := sqltypes.Schema{Attributes: []sqltypes.Attribute{
		{Name: "id", Type: sqltypes.Int64()},
		{Name: "name", Type: sqltypes.Varchar(32)},
	}}
	s.Build()
	return s
}

func oneTableScope() *Scope {
	rel := storage.NewRelation("orders", ordersSchema(), 0)
	return NewScope([]TableBinding{{Alias: "orders", Relation: rel}})
}

func twoTableScope() *Scope {
	o := storage.NewRelation("orders", ordersSchema(), 0)
	c := storage.NewRelation("customers", customersSchema(), 0)
	return NewScope([]TableBinding{
		{Alias: "o", Relation: o},
		{Alias: "c", Relation: c},
	})
}

func TestResolveRefUnqualifiedColumn(t *testing.T) {
	assert := assert.New(t)
	scope := oneTableScope()
	ref := &sql.Ref{Id: "amount"}

	err := ResolveExpr(ref, scope)
	assert.NoError(err)
	assert.True(ref.CanName.IsTableColumn())
	assert.Equal(0, ref.CanName.TableIndex)
	assert.Equal(1, ref.CanName.ColumnIndex)
}

func TestResolveRefUnknownColumnErrors(t *testing.T) {
	assert := assert.New(t)
	scope := oneTableScope()
	ref := &sql.Ref{Id: "nope"}
	assert.Error(ResolveExpr(ref, scope))
}

func TestResolveRefAmbiguousAcrossJoinErrors(t *testing.T) {
	assert := assert.New(t)
	scope := twoTableScope()
	ref := &sql.Ref{Id: "id"} // both orders and customers have "id"
	assert.Error(ResolveExpr(ref, scope))
}

func TestResolveRefCountStarIsNotAColumn(t *testing.T) {
	assert := assert.New(t)
	scope := oneTableScope()
	ref := &sql.Ref{Id: "*"}
	assert.NoError(ResolveExpr(ref, scope))
	assert.False(ref.CanName.IsSettled())
}

func TestResolveQualifiedColumn(t *testing.T) {
	assert := assert.New(t)
	scope := twoTableScope()
	p := &sql.Primary{
		Leading: &sql.Ref{Id: "c"},
		Suffix:  []*sql.Suffix{{Ty: sql.SuffixDot, Component: "name"}},
	}
	err := ResolveExpr(p, scope)
	assert.NoError(err)
	assert.True(p.CanName.IsTableColumn())
	assert.Equal(1, p.CanName.TableIndex)
	assert.Equal(1, p.CanName.ColumnIndex)
}

func TestResolveQualifiedUnknownAliasErrors(t *testing.T) {
	assert := assert.New(t)
	scope := twoTableScope()
	p := &sql.Primary{
		Leading: &sql.Ref{Id: "z"},
		Suffix:  []*sql.Suffix{{Ty: sql.SuffixDot, Component: "name"}},
	}
	assert.Error(ResolveExpr(p, scope))
}

func TestResolveAggregateCallResolvesParameters(t *testing.T) {
	assert := assert.New(t)
	scope := oneTableScope()
	inner := &sql.Ref{Id: "amount"}
	p := &sql.Primary{
		Leading: &sql.Ref{Id: "sum"},
		Suffix: []*sql.Suffix{{
			Ty:   sql.SuffixCall,
			Call: &sql.Call{Parameters: []sql.Expr{inner}},
		}},
	}
	err := ResolveExpr(p, scope)
	assert.NoError(err)
	assert.True(inner.CanName.IsTableColumn())
	// the Primary itself names a function call, not a column.
	assert.False(p.CanName.IsSettled())
}

func TestResolveBinaryWalksBothSides(t *testing.T) {
	assert := assert.New(t)
	scope := oneTableScope()
	l := &sql.Ref{Id: "amount"}
	r := &sql.Const{Ty: sql.ConstInt, Int: 10}
	b := &sql.Binary{Op: sql.TkGt, L: l, R: r}

	assert.NoError(ResolveExpr(b, scope))
	assert.True(l.CanName.IsTableColumn())
}

func TestResolveSelectWalksProjectionWhereGroupByHavingOrderBy(t *testing.T) {
	assert := assert.New(t)
	scope := oneTableScope()

	projRef := &sql.Ref{Id: "amount"}
	whereRef := &sql.Ref{Id: "customer_id"}
	groupRef := &sql.Ref{Id: "id"}
	havingRef := &sql.Ref{Id: "amount"}
	orderRef := &sql.Ref{Id: "id"}

	sel := &sql.Select{
		Projection: &sql.Projection{ValueList: sql.SelectVarList{&sql.Col{Value: projRef}}},
		Where:      &sql.Where{Condition: whereRef},
		GroupBy:    &sql.GroupBy{Name: []sql.Expr{groupRef}},
		Having:     (*sql.Having)(&sql.Where{Condition: havingRef}),
		OrderBy:    &sql.OrderBy{Name: []sql.Expr{orderRef}},
	}

	err := ResolveSelect(sel, scope)
	assert.NoError(err)
	assert.True(projRef.CanName.IsTableColumn())
	assert.True(whereRef.CanName.IsTableColumn())
	assert.True(groupRef.CanName.IsTableColumn())
	assert.True(havingRef.CanName.IsTableColumn())
	assert.True(orderRef.CanName.IsTableColumn())
}

func TestBuildTypeEnvSingleTableHasBareAndQualifiedNames(t *testing.T) {
	assert := assert.New(t)
	scope := oneTableScope()
	env := BuildTypeEnv(scope)

	assert.Equal(sqltypes.Decimal(10, 2), env["amount"])
	assert.Equal(sqltypes.Decimal(10, 2), env["orders.amount"])
}

func TestBuildTypeEnvJoinOmitsAmbiguousBareName(t *testing.T) {
	assert := assert.New(t)
	scope := twoTableScope()
	env := BuildTypeEnv(scope)

	_, hasBareID := env["id"]
	assert.False(hasBareID)
	assert.Equal(sqltypes.Int64(), env["o.id"])
	assert.Equal(sqltypes.Int64(), env["c.id"])
	assert.Equal(sqltypes.Varchar(32), env["c.name"])
}
