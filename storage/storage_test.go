package storage

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/resqljit/resql/sqltypes"
)

func int64Schema() sqltypes.Schema {
	s := sqltypes.Schema{Attributes: []sqltypes.Attribute{{Name: "a", Type: sqltypes.Int64()}}}
	s.Build()
	return s
}

func TestAppendGrowsNewBlockWhenFull(t *testing.T) {
	assert := assert.New(t)
	schema := int64Schema()
	// capacity fits exactly 2 tuples per block
	rel := NewRelation("t", schema, 2*schema.TupleSize())
	ai := NewAppendIterator(rel)

	for i := 0; i < 5; i++ {
		slot, err := ai.Get()
		assert.NoError(err)
		binary.LittleEndian.PutUint64(slot, uint64(i))
	}
	assert.Equal(3, rel.NumBlocks())
	assert.Equal(5, rel.Count())
}

func TestTupleTooLargeRejected(t *testing.T) {
	assert := assert.New(t)
	schema := int64Schema()
	rel := NewRelation("t", schema, 4) // smaller than one tuple (8 bytes)
	ai := NewAppendIterator(rel)
	_, err := ai.Get()
	assert.Equal(ErrTupleTooLarge, err)
}

func TestAppendReadDuality(t *testing.T) {
	assert := assert.New(t)
	schema := int64Schema()
	rel := NewRelation("t", schema, 2*schema.TupleSize())
	ai := NewAppendIterator(rel)
	for i := 0; i < 5; i++ {
		slot, _ := ai.Get()
		binary.LittleEndian.PutUint64(slot, uint64(i))
	}

	ri := NewReadIterator(rel)
	var got []uint64
	for {
		b := ri.GetBlock()
		if b == nil {
			break
		}
		bytes := b.Bytes()
		for off := 0; off+8 <= len(bytes); off += 8 {
			got = append(got, binary.LittleEndian.Uint64(bytes[off:off+8]))
		}
	}
	assert.Equal([]uint64{0, 1, 2, 3, 4}, got)
}

func TestRandomAccessIterator(t *testing.T) {
	assert := assert.New(t)
	schema := int64Schema()
	rel := NewRelation("t", schema, 2*schema.TupleSize())
	ai := NewAppendIterator(rel)
	for i := 0; i < 7; i++ {
		slot, _ := ai.Get()
		binary.LittleEndian.PutUint64(slot, uint64(i*10))
	}

	rai := NewRandomAccessIterator(rel)
	assert.Equal(7, rai.Len())
	for i := 0; i < 7; i++ {
		v := binary.LittleEndian.Uint64(rai.At(i))
		assert.Equal(uint64(i*10), v)
	}
}

func TestReadIteratorRefresh(t *testing.T) {
	assert := assert.New(t)
	schema := int64Schema()
	rel := NewRelation("t", schema, 2*schema.TupleSize())
	ai := NewAppendIterator(rel)
	for i := 0; i < 3; i++ {
		ai.Get()
	}
	ri := NewReadIterator(rel)
	count := 0
	for ri.GetBlock() != nil {
		count++
	}
	assert.True(count > 0)
	ri.Refresh()
	count2 := 0
	for ri.GetBlock() != nil {
		count2++
	}
	assert.Equal(count, count2)
}
