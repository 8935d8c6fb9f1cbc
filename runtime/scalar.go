// Package runtime implements the scalar runtime: pure functions that
// generated code reaches through managed-call pseudo-ops rather than
// inlining, because they are either too large to duplicate per call
// site (LIKE, string compare) or need trap semantics the IR backend
// doesn't model directly (checked arithmetic).
package runtime

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Hash mixing constants.
const (
	hashMul1 uint64 = 1710227316115945415
	hashMul2 uint64 = 741332713408129251
)

// HashU64 mixes key into accumulator with a fixed sequence of
// shift/xor/add rounds using the two fixed odd multipliers.
func HashU64(key uint64, acc uint64) uint64 {
	h := acc
	h ^= key
	h *= hashMul1
	h ^= h >> 33
	h += hashMul2
	h ^= h << 13
	h *= hashMul1
	h ^= h >> 29
	return h
}

// HashVarchar hashes at most maxLen bytes of str, per-byte mixed into
// acc.
func HashVarchar(str string, acc uint64, maxLen int) uint64 {
	n := len(str)
	if n > maxLen {
		n = maxLen
	}
	h := acc
	for i := 0; i < n; i++ {
		h = HashU64(uint64(str[i]), h)
	}
	return h
}

// HashChar hashes a fixed-width CHAR(len) value: str is padded with
// spaces when it terminates before len bytes, matching fixed-width CHAR
// semantics.
func HashChar(str string, acc uint64, length int) uint64 {
	h := acc
	for i := 0; i < length; i++ {
		var b byte = ' '
		if i < len(str) {
			b = str[i]
		}
		h = HashU64(uint64(b), h)
	}
	return h
}

// CmpVarchar reports byte-for-byte equality of two VARCHAR values.
func CmpVarchar(a, b string) bool {
	return a == b
}

// CmpChar reports equality of two fixed-width CHAR values, treating
// trailing spaces as equivalent to end-of-string.
func CmpChar(a, b string) bool {
	return strings.TrimRight(a, " ") == strings.TrimRight(b, " ")
}

// Like implements SQL LIKE matching: '%' matches any sequence (including
// empty), '_' matches exactly one character. The algorithm matches a
// required prefix, then a required suffix, then slides the remaining
// '%'-delimited infix segments left-to-right over the middle — this is
// a direct string-walk matcher, not a regex compile, because it runs as
// a managed-call target invoked from JIT-compiled code rather than from
// a regex engine.
func Like(subject, pattern string) bool {
	segments, anchoredStart, anchoredEnd := splitLikePattern(pattern)

	pos := 0
	end := len(subject)

	if anchoredStart && len(segments) > 0 {
		first := segments[0]
		if !matchAt(subject, 0, first) {
			return false
		}
		pos = len(first)
		segments = segments[1:]
	}

	if anchoredEnd && len(segments) > 0 {
		last := segments[len(segments)-1]
		if len(last) > end-pos {
			return false
		}
		if !matchAt(subject, end-len(last), last) {
			return false
		}
		end -= len(last)
		segments = segments[:len(segments)-1]
	}

	// slide the remaining infix segments left-to-right over [pos, end)
	for _, seg := range segments {
		idx := slideFind(subject, pos, end, seg)
		if idx < 0 {
			return false
		}
		pos = idx + likeLen(seg)
	}

	// A pattern with no '%' at all requires the prefix/suffix anchors
	// (really just one segment, consumed as the prefix above) to cover
	// the whole subject, not merely a leading run of it.
	if !strings.Contains(pattern, "%") {
		return pos == end
	}
	return true
}

// likeChar is either a literal byte or the '_' single-char wildcard.
type likeChar struct {
	any bool
	b   byte
}

func likeLen(seg []likeChar) int { return len(seg) }

// splitLikePattern breaks pattern on '%' into a list of segments (each a
// sequence of literal bytes / '_' wildcards), and reports whether the
// pattern is anchored at the start/end (i.e. does not begin/end with
// '%').
func splitLikePattern(pattern string) (segments [][]likeChar, anchoredStart, anchoredEnd bool) {
	raw := strings.Split(pattern, "%")
	anchoredStart = !strings.HasPrefix(pattern, "%")
	anchoredEnd = !strings.HasSuffix(pattern, "%")

	for _, part := range raw {
		if part == "" {
			continue
		}
		seg := make([]likeChar, len(part))
		for i := 0; i < len(part); i++ {
			if part[i] == '_' {
				seg[i] = likeChar{any: true}
			} else {
				seg[i] = likeChar{b: part[i]}
			}
		}
		segments = append(segments, seg)
	}
	return
}

func matchAt(subject string, pos int, seg []likeChar) bool {
	if pos < 0 || pos+len(seg) > len(subject) {
		return false
	}
	for i, c := range seg {
		if !c.any && subject[pos+i] != c.b {
			return false
		}
	}
	return true
}

// slideFind finds the leftmost position in [from, to) where seg matches,
// sliding one byte at a time (the "sliding infix" step).
func slideFind(subject string, from, to int, seg []likeChar) int {
	for p := from; p+len(seg) <= to; p++ {
		if matchAt(subject, p, seg) {
			return p
		}
	}
	return -1
}

// ErrOverflow is returned by the checked-arithmetic helpers when the
// exact result does not fit in an int64.
var ErrOverflow = errors.New("resql: arithmetic overflow")

// ErrDivideByZero is raised by CheckedDivI64.
var ErrDivideByZero = errors.New("resql: division by zero")

func CheckedAddI64(a, b int64) (int64, error) {
	r := a + b
	if (b > 0 && r < a) || (b < 0 && r > a) {
		return 0, ErrOverflow
	}
	return r, nil
}

func CheckedSubI64(a, b int64) (int64, error) {
	r := a - b
	if (b < 0 && r < a) || (b > 0 && r > a) {
		return 0, ErrOverflow
	}
	return r, nil
}

func CheckedMulI64(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, ErrOverflow
	}
	r := a * b
	if r/b != a {
		return 0, ErrOverflow
	}
	return r, nil
}

func CheckedDivI64(a, b int64) (int64, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	if a == math.MinInt64 && b == -1 {
		return 0, ErrOverflow
	}
	return a / b, nil
}

// RuntimeAbort is what a managed call invokes when a checked-arithmetic
// helper (or hash-table insertion) fails irrecoverably mid-query: it
// never returns, it panics with a message naming err, so no error value
// is propagated back through generated code.
func RuntimeAbort(err error) {
	panic(fmt.Sprintf("resql: fatal runtime error: %v", err))
}
