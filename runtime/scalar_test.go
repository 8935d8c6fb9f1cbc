package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashU64Deterministic(t *testing.T) {
	assert := assert.New(t)
	h1 := HashU64(42, 0)
	h2 := HashU64(42, 0)
	assert.Equal(h1, h2)
	assert.NotEqual(h1, HashU64(43, 0))
}

func TestHashVarcharTruncatesAtMaxLen(t *testing.T) {
	assert := assert.New(t)
	full := HashVarchar("hello world", 0, 5)
	truncated := HashVarchar("hello", 0, 5)
	assert.Equal(truncated, full)
}

func TestHashCharPadsWithSpaces(t *testing.T) {
	assert := assert.New(t)
	a := HashChar("ab", 0, 4)
	b := HashChar("ab  ", 0, 4)
	assert.Equal(b, a)
}

func TestCmpVarchar(t *testing.T) {
	assert := assert.New(t)
	assert.True(CmpVarchar("abc", "abc"))
	assert.False(CmpVarchar("abc", "abd"))
	assert.False(CmpVarchar("ab", "ab "))
}

func TestCmpChar(t *testing.T) {
	assert := assert.New(t)
	assert.True(CmpChar("ab", "ab  "))
	assert.True(CmpChar("ab  ", "ab"))
	assert.False(CmpChar("ab", "abc"))
}

func TestLikeLiteralPattern(t *testing.T) {
	assert := assert.New(t)
	assert.True(Like("abc", "abc"))
	assert.False(Like("abc", "abcd"))
	assert.False(Like("abcd", "abc"))
	assert.True(Like("", ""))
	assert.False(Like("a", ""))
}

func TestLikeAllWildcard(t *testing.T) {
	assert := assert.New(t)
	assert.True(Like("", "%"))
	assert.True(Like("anything at all", "%"))
	assert.True(Like("x", "%%"))
}

func TestLikePrefixSuffix(t *testing.T) {
	assert := assert.New(t)
	assert.True(Like("aXXb", "a%b"))
	assert.True(Like("ab", "a%b"))
	assert.False(Like("ba", "a%b"))
	assert.False(Like("a", "a%b"))
}

func TestLikeBoundaryLengths(t *testing.T) {
	assert := assert.New(t)
	assert.True(Like("abcd", "ab%cd"))
	assert.False(Like("abc", "ab%cd"))
	assert.True(Like("ab cd", "ab%cd"))
}

func TestLikeMultipleInfixSegments(t *testing.T) {
	assert := assert.New(t)
	assert.True(Like("xxabcyydefzz", "%abc%def%"))
	assert.False(Like("xxabcyyzzdefww", "%def%abc%"))
	assert.False(Like("xxabcyyww", "%abc%def%"))
}

func TestLikeUnderscoreWildcard(t *testing.T) {
	assert := assert.New(t)
	assert.True(Like("cat", "c_t"))
	assert.False(Like("ct", "c_t"))
	assert.True(Like("cats", "c_t%"))
}

func TestCheckedAddOverflow(t *testing.T) {
	assert := assert.New(t)
	_, err := CheckedAddI64(1<<62, 1<<62)
	assert.Equal(ErrOverflow, err)
	v, err := CheckedAddI64(2, 3)
	assert.NoError(err)
	assert.Equal(int64(5), v)
}

func TestCheckedSubOverflow(t *testing.T) {
	assert := assert.New(t)
	_, err := CheckedSubI64(-9223372036854775808, 1)
	assert.Equal(ErrOverflow, err)
	v, err := CheckedSubI64(5, 3)
	assert.NoError(err)
	assert.Equal(int64(2), v)
}

func TestCheckedMulOverflow(t *testing.T) {
	assert := assert.New(t)
	_, err := CheckedMulI64(1<<40, 1<<40)
	assert.Equal(ErrOverflow, err)
	v, err := CheckedMulI64(6, 7)
	assert.NoError(err)
	assert.Equal(int64(42), v)
	v, err = CheckedMulI64(0, 1<<62)
	assert.NoError(err)
	assert.Equal(int64(0), v)
}

func TestCheckedDivByZero(t *testing.T) {
	assert := assert.New(t)
	_, err := CheckedDivI64(10, 0)
	assert.Equal(ErrDivideByZero, err)
}

func TestCheckedDivMinInt64OverflowsOnNegOne(t *testing.T) {
	assert := assert.New(t)
	_, err := CheckedDivI64(-9223372036854775808, -1)
	assert.Equal(ErrOverflow, err)
	v, err := CheckedDivI64(10, 3)
	assert.NoError(err)
	assert.Equal(int64(3), v)
}

func TestRuntimeAbortPanics(t *testing.T) {
	assert := assert.New(t)
	assert.Panics(func() { RuntimeAbort(ErrOverflow) })
}
