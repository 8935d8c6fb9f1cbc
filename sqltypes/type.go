// Package sqltypes implements the tagged SQL type union and value model:
// the type precedence order that drives implicit typecast insertion,
// decimal precision/scale rules, and the fixed-width value cell that
// both hash-table payloads and result rows are built from.
package sqltypes

import "fmt"

// Tag identifies one variant of the SQL type union.
type Tag int

const (
	NT Tag = iota // undefined; must not survive type derivation
	INT32
	INT64 // BIGINT
	BOOL
	DATE // u32 encoded as yyyy*10000+mm*100+dd
	DECIMAL
	FLOAT
	CHAR    // fixed width
	VARCHAR // bounded width
)

func (t Tag) String() string {
	switch t {
	case NT:
		return "NT"
	case INT32:
		return "INT32"
	case INT64:
		return "BIGINT"
	case BOOL:
		return "BOOL"
	case DATE:
		return "DATE"
	case DECIMAL:
		return "DECIMAL"
	case FLOAT:
		return "FLOAT"
	case CHAR:
		return "CHAR"
	case VARCHAR:
		return "VARCHAR"
	default:
		return "?"
	}
}

// Type is the tagged union itself. Precision/Scale are meaningful only
// for DECIMAL; Len is meaningful only for CHAR/VARCHAR.
type Type struct {
	Tag       Tag
	Precision int
	Scale     int
	Len       int
}

func Int32() Type   { return Type{Tag: INT32} }
func Int64() Type   { return Type{Tag: INT64} }
func Bool() Type    { return Type{Tag: BOOL} }
func Date() Type    { return Type{Tag: DATE} }
func Float() Type   { return Type{Tag: FLOAT} }
func Decimal(precision, scale int) Type { return Type{Tag: DECIMAL, Precision: precision, Scale: scale} }
func Char(length int) Type              { return Type{Tag: CHAR, Len: length} }
func Varchar(maxLen int) Type           { return Type{Tag: VARCHAR, Len: maxLen} }

// Equal implements the "two decimals are equal iff both precision and
// scale match" rule; other types are equal iff tags match
// (Len is not compared for CHAR/VARCHAR identity purposes elsewhere in
// the pipeline, since typecast insertion is driven by category, not by
// exact width).
func (t Type) Equal(o Type) bool {
	if t.Tag != o.Tag {
		return false
	}
	if t.Tag == DECIMAL {
		return t.Precision == o.Precision && t.Scale == o.Scale
	}
	return true
}

func (t Type) String() string {
	switch t.Tag {
	case DECIMAL:
		return fmt.Sprintf("DECIMAL(%d,%d)", t.Precision, t.Scale)
	case CHAR:
		return fmt.Sprintf("CHAR(%d)", t.Len)
	case VARCHAR:
		return fmt.Sprintf("VARCHAR(%d)", t.Len)
	default:
		return t.Tag.String()
	}
}

// IsNumeric reports whether the type participates in arithmetic
// category precedence: BOOL/INT32/DATE/INT64/DECIMAL/FLOAT, but not
// CHAR/VARCHAR.
func (t Type) IsNumeric() bool {
	switch t.Tag {
	case BOOL, INT32, DATE, INT64, DECIMAL, FLOAT:
		return true
	default:
		return false
	}
}

func (t Type) IsString() bool {
	return t.Tag == CHAR || t.Tag == VARCHAR
}

// precedence gives the fixed numeric category order used to decide which
// side of a mismatched-category binary op gets an inserted typecast:
// the higher-precedence operand's type is imposed on the other.
var precedence = map[Tag]int{
	BOOL:    0,
	INT32:   1,
	DATE:    2,
	INT64:   3,
	DECIMAL: 4,
	FLOAT:   5,
}

// Precedence returns the fixed precedence rank of a numeric type tag.
// Higher ranks win when inserting an implicit typecast on a binary
// arithmetic/comparison node whose children have mismatched categories.
func Precedence(t Tag) int {
	p, ok := precedence[t]
	if !ok {
		return -1
	}
	return p
}

// Wider returns whichever of a, b has the higher type precedence; ties
// (equal tag) return a unchanged.
func Wider(a, b Type) Type {
	if Precedence(a.Tag) >= Precedence(b.Tag) {
		return a
	}
	return b
}

// ByteWidth is the in-register / in-vreg width used to carry a value of
// this type: BOOL/CHAR(1) -> 1 byte (vreg8),
// INT32/DATE -> 4 bytes (vreg32), everything else -> 8 bytes (vreg64).
func (t Type) ByteWidth() int {
	switch t.Tag {
	case BOOL:
		return 1
	case CHAR:
		if t.Len == 1 {
			return 1
		}
		return 8
	case INT32, DATE:
		return 4
	default:
		return 8
	}
}

// CellSize is the fixed size of a SQL value cell: always 8
// bytes; strings are pointers to externally owned bytes.
const CellSize = 8

// DecimalScaleFactor returns 10^scale for scale in [0,8], the fixed
// table of decimal scale factors.
var decimalScaleFactors = [...]int64{1, 10, 100, 1000, 10000, 100000, 1000000, 10000000, 100000000}

func DecimalScaleFactor(scale int) int64 {
	if scale < 0 || scale >= len(decimalScaleFactors) {
		panic(fmt.Sprintf("sqltypes: decimal scale out of range: %d", scale))
	}
	return decimalScaleFactors[scale]
}

// Attribute is (name, type).
type Attribute struct {
	Name string
	Type Type
}

// Schema is an ordered attribute sequence plus the by-value/by-reference
// string storage policy. The schema determines per-attribute
// offsets and total tuple size: inline ("by value") string storage
// reserves Len+1 bytes (terminator included); by-reference storage
// reserves 8 bytes (a pointer) regardless of Len.
type Schema struct {
	Attributes   []Attribute
	StringsByVal bool

	offsets   []int
	tupleSize int
}

// Build computes per-attribute offsets and the total tuple size. Must be
// called once before OffsetOf/TupleSize are used; schemas are small and
// rebuilt cheaply whenever an operator changes its output shape.
func (s *Schema) Build() {
	s.offsets = make([]int, len(s.Attributes))
	off := 0
	for i, a := range s.Attributes {
		s.offsets[i] = off
		off += s.attrSize(a)
	}
	s.tupleSize = off
}

func (s *Schema) attrSize(a Attribute) int {
	if a.Type.IsString() {
		if s.StringsByVal {
			return a.Type.Len + 1
		}
		return 8
	}
	return CellSize
}

func (s *Schema) TupleSize() int { return s.tupleSize }

func (s *Schema) OffsetOf(name string) (int, bool) {
	for i, a := range s.Attributes {
		if a.Name == name {
			return s.offsets[i], true
		}
	}
	return 0, false
}

func (s *Schema) IndexOf(name string) int {
	for i, a := range s.Attributes {
		if a.Name == name {
			return i
		}
	}
	return -1
}

func (s *Schema) AttributeByName(name string) (Attribute, bool) {
	idx := s.IndexOf(name)
	if idx < 0 {
		return Attribute{}, false
	}
	return s.Attributes[idx], true
}
