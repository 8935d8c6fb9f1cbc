package runtime

import (
	"encoding/binary"
	"math"

	"github.com/resqljit/resql/sqltypes"
	"github.com/resqljit/resql/storage"
)

// OrderRequest is one ORDER BY key: the byte offset of the attribute
// within a materialized tuple, its SQL type (for the comparison rule),
// and sort direction.
type OrderRequest struct {
	Offset    int
	Type      sqltypes.Type
	Ascending bool
}

// SortRelation in-place sorts the tuples of rel's current contents
// according to orderBy, tie-broken by input order (a stable sort, as
// the spec requires). It is invoked as a managed call from order-by's
// post-materialize step, always under a SingleFlight guard so it runs
// on exactly one worker.
func SortRelation(rel *storage.Relation, orderBy []OrderRequest) {
	it := storage.NewRandomAccessIterator(rel)
	n := it.Len()
	if n < 2 {
		return
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rows := make([][]byte, n)
	for i := 0; i < n; i++ {
		rows[i] = it.At(i)
	}

	quicksort(idx, 0, n-1, func(a, b int) bool {
		if lessTuple(rows[idx[a]], rows[idx[b]], orderBy) {
			return true
		}
		if lessTuple(rows[idx[b]], rows[idx[a]], orderBy) {
			return false
		}
		// Every key tied: break by original input position so the
		// result matches a stable sort, as required.
		return idx[a] < idx[b]
	})

	// idx now holds, in sorted order, the original row indices. Apply
	// the permutation in place via a temp-buffer cycle-swap so no extra
	// full-relation copy is needed.
	tupleSize := len(rows[0])
	tmp := make([]byte, tupleSize)
	visited := make([]bool, n)
	for start := 0; start < n; start++ {
		if visited[start] || idx[start] == start {
			visited[start] = true
			continue
		}
		copy(tmp, rows[start])
		prev := start
		cur := idx[start]
		for cur != start {
			copy(rows[prev], rows[cur])
			visited[prev] = true
			prev = cur
			cur = idx[cur]
		}
		copy(rows[prev], tmp)
		visited[prev] = true
	}
}

// quicksort is a classic Lomuto-partition in-place quicksort over idx,
// comparing by the caller-supplied less function. Grounded on the
// partition/swap/recurse shape of the original Quicksorter.
func quicksort(idx []int, lo, hi int, less func(a, b int) bool) {
	if lo >= hi {
		return
	}
	p := partition(idx, lo, hi, less)
	quicksort(idx, lo, p-1, less)
	quicksort(idx, p+1, hi, less)
}

func partition(idx []int, lo, hi int, less func(a, b int) bool) int {
	pivot := hi
	i := lo
	for j := lo; j < hi; j++ {
		if less(j, pivot) {
			idx[i], idx[j] = idx[j], idx[i]
			i++
		}
	}
	idx[i], idx[hi] = idx[hi], idx[i]
	return i
}

// lessTuple reports whether tuple a sorts before tuple b under the
// given ordered list of keys, each compared per its SQL type and
// direction, falling through to the next key on a tie.
func lessTuple(a, b []byte, orderBy []OrderRequest) bool {
	for _, req := range orderBy {
		c := compareCell(req.Type, a[req.Offset:], b[req.Offset:])
		if req.Ascending {
			if c < 0 {
				return true
			}
			if c > 0 {
				return false
			}
		} else {
			if c > 0 {
				return true
			}
			if c < 0 {
				return false
			}
		}
	}
	return false
}

// compareCell compares the leading sqltypes.CellSize-or-less bytes of
// two tuple cells per tag, returning <0, 0, >0. Cells of any tag not
// handled below, including CHAR and VARCHAR, compare equal: string
// ORDER BY keys are not ordered by this function.
func compareCell(t sqltypes.Type, a, b []byte) int {
	switch t.Tag {
	case sqltypes.BOOL:
		if a[0] == b[0] {
			return 0
		}
		if a[0] < b[0] {
			return -1
		}
		return 1
	case sqltypes.INT32, sqltypes.DATE:
		av := int32(binary.LittleEndian.Uint32(a))
		bv := int32(binary.LittleEndian.Uint32(b))
		return cmpInt64(int64(av), int64(bv))
	case sqltypes.INT64, sqltypes.DECIMAL:
		av := int64(binary.LittleEndian.Uint64(a))
		bv := int64(binary.LittleEndian.Uint64(b))
		return cmpInt64(av, bv)
	case sqltypes.FLOAT:
		av := math.Float64frombits(binary.LittleEndian.Uint64(a))
		bv := math.Float64frombits(binary.LittleEndian.Uint64(b))
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	default:
		return 0
	}
}

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
