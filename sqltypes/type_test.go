package sqltypes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecimalEquality(t *testing.T) {
	assert := assert.New(t)
	assert.True(Decimal(5, 2).Equal(Decimal(5, 2)))
	assert.False(Decimal(5, 2).Equal(Decimal(5, 3)))
	assert.False(Decimal(5, 2).Equal(Decimal(6, 2)))
}

func TestPrecedenceOrder(t *testing.T) {
	assert := assert.New(t)
	assert.True(Precedence(FLOAT) > Precedence(DECIMAL))
	assert.True(Precedence(DECIMAL) > Precedence(INT64))
	assert.True(Precedence(INT64) > Precedence(DATE))
	assert.True(Precedence(DATE) > Precedence(INT32))
	assert.True(Precedence(INT32) > Precedence(BOOL))
}

func TestWider(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(INT64, Wider(Int64(), Int32()).Tag)
	assert.Equal(FLOAT, Wider(Decimal(5, 2), Float()).Tag)
}

func TestSchemaOffsets(t *testing.T) {
	assert := assert.New(t)
	s := &Schema{
		Attributes: []Attribute{
			{Name: "a", Type: Int64()},
			{Name: "b", Type: Char(4)},
			{Name: "c", Type: Bool()},
		},
		StringsByVal: true,
	}
	s.Build()
	off, ok := s.OffsetOf("b")
	assert.True(ok)
	assert.Equal(8, off)
	off, ok = s.OffsetOf("c")
	assert.True(ok)
	assert.Equal(8+5, off) // char(4) by-value reserves len+1
	assert.Equal(8+5+8, s.TupleSize())
}

func TestSchemaByReference(t *testing.T) {
	assert := assert.New(t)
	s := &Schema{
		Attributes: []Attribute{
			{Name: "k", Type: Varchar(40)},
			{Name: "v", Type: Int64()},
		},
		StringsByVal: false,
	}
	s.Build()
	off, _ := s.OffsetOf("v")
	assert.Equal(8, off) // by-reference reserves 8 bytes regardless of Len
	assert.Equal(16, s.TupleSize())
}

func TestDecimalScaleFactor(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(int64(1), DecimalScaleFactor(0))
	assert.Equal(int64(100000000), DecimalScaleFactor(8))
	assert.Panics(func() { DecimalScaleFactor(9) })
}
