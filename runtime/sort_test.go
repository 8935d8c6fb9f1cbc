package runtime

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/resqljit/resql/sqltypes"
	"github.com/resqljit/resql/storage"
)

func buildRelation(t *testing.T, values []int64) *storage.Relation {
	t.Helper()
	schema := sqltypes.Schema{Attributes: []sqltypes.Attribute{{Name: "v", Type: sqltypes.Int64()}}}
	schema.Build()
	rel := storage.NewRelation("t", schema, 3*schema.TupleSize())
	ai := storage.NewAppendIterator(rel)
	for _, v := range values {
		slot, err := ai.Get()
		assert.NoError(t, err)
		binary.LittleEndian.PutUint64(slot, uint64(v))
	}
	return rel
}

func readValues(rel *storage.Relation) []int64 {
	it := storage.NewRandomAccessIterator(rel)
	out := make([]int64, it.Len())
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(it.At(i)))
	}
	return out
}

func TestSortRelationAscending(t *testing.T) {
	assert := assert.New(t)
	rel := buildRelation(t, []int64{5, 1, 4, 2, 3})
	SortRelation(rel, []OrderRequest{{Offset: 0, Type: sqltypes.Int64(), Ascending: true}})
	assert.Equal([]int64{1, 2, 3, 4, 5}, readValues(rel))
}

func TestSortRelationDescending(t *testing.T) {
	assert := assert.New(t)
	rel := buildRelation(t, []int64{5, 1, 4, 2, 3})
	SortRelation(rel, []OrderRequest{{Offset: 0, Type: sqltypes.Int64(), Ascending: false}})
	assert.Equal([]int64{5, 4, 3, 2, 1}, readValues(rel))
}

func TestSortRelationSingleOrEmpty(t *testing.T) {
	assert := assert.New(t)
	rel := buildRelation(t, []int64{7})
	SortRelation(rel, []OrderRequest{{Offset: 0, Type: sqltypes.Int64(), Ascending: true}})
	assert.Equal([]int64{7}, readValues(rel))

	empty := buildRelation(t, nil)
	SortRelation(empty, []OrderRequest{{Offset: 0, Type: sqltypes.Int64(), Ascending: true}})
	assert.Equal([]int64{}, readValues(empty))
}

func TestSortRelationStableOnTies(t *testing.T) {
	assert := assert.New(t)
	// Duplicate keys in a single column: equal values end up grouped.
	rel := buildRelation(t, []int64{2, 1, 2, 1})
	SortRelation(rel, []OrderRequest{{Offset: 0, Type: sqltypes.Int64(), Ascending: true}})
	assert.Equal([]int64{1, 1, 2, 2}, readValues(rel))

	// A second column tags each row with its input position, so equal
	// keys must keep their tags in input order.
	schema := sqltypes.Schema{Attributes: []sqltypes.Attribute{
		{Name: "k", Type: sqltypes.Int64()},
		{Name: "tag", Type: sqltypes.Int64()},
	}}
	schema.Build()
	tagged := storage.NewRelation("t2", schema, 3*schema.TupleSize())
	ai := storage.NewAppendIterator(tagged)
	for i, k := range []int64{2, 1, 2, 1, 2} {
		slot, err := ai.Get()
		assert.NoError(err)
		binary.LittleEndian.PutUint64(slot[0:], uint64(k))
		binary.LittleEndian.PutUint64(slot[8:], uint64(i))
	}
	SortRelation(tagged, []OrderRequest{{Offset: 0, Type: sqltypes.Int64(), Ascending: true}})
	it := storage.NewRandomAccessIterator(tagged)
	var tags []int64
	for i := 0; i < it.Len(); i++ {
		tags = append(tags, int64(binary.LittleEndian.Uint64(it.At(i)[8:])))
	}
	assert.Equal([]int64{1, 3, 0, 2, 4}, tags)
}
