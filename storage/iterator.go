package storage

import "sort"

// AppendIterator hands out tuple-sized slots at the end of a relation,
// serialized by the relation's mutex. Get is the only call that takes
// the lock; this is the hot path for BULK INSERT and for materializing
// operators, so it stays as small as possible under contention.
type AppendIterator struct {
	rel *Relation
}

func NewAppendIterator(rel *Relation) *AppendIterator {
	return &AppendIterator{rel: rel}
}

// Get reserves and returns the next tuple slot, growing the relation
// with a fresh block if the current one has no room.
func (it *AppendIterator) Get() ([]byte, error) {
	return it.rel.Append()
}

// ReadIterator hands out whole blocks under the relation's mutex;
// iteration within a block is unsynchronized, matching a single-writer
// (build), single-or-many-reader (probe/scan) access pattern.
type ReadIterator struct {
	rel    *Relation
	cursor int
}

func NewReadIterator(rel *Relation) *ReadIterator {
	return &ReadIterator{rel: rel}
}

// GetBlock returns the next block in sequence, or nil when exhausted.
func (it *ReadIterator) GetBlock() *Block {
	it.rel.mu.Lock()
	defer it.rel.mu.Unlock()
	if it.cursor >= len(it.rel.blocks) {
		return nil
	}
	b := it.rel.blocks[it.cursor]
	it.cursor++
	return b
}

// Refresh resets the iterator to the first block.
func (it *ReadIterator) Refresh() {
	it.cursor = 0
}

// RandomAccessIterator maps a global tuple index to a (block, offset)
// location in O(log n) via binary search over a precomputed prefix sum
// of tuple counts per block. Built once over the relation's state at
// that instant; does not observe later appends.
type RandomAccessIterator struct {
	rel        *Relation
	tupleSize  int
	blocks     []*Block
	prefixEnds []int // inclusive-end tuple index covered by blocks[0..i]
}

// NewRandomAccessIterator snapshots the relation's current blocks and
// builds the prefix-sum index used by At.
func NewRandomAccessIterator(rel *Relation) *RandomAccessIterator {
	rel.mu.Lock()
	defer rel.mu.Unlock()
	tupleSize := rel.TupleSize()
	blocks := make([]*Block, len(rel.blocks))
	copy(blocks, rel.blocks)
	ends := make([]int, len(blocks))
	total := 0
	for i, b := range blocks {
		total += b.numTuples(tupleSize)
		ends[i] = total
	}
	return &RandomAccessIterator{rel: rel, tupleSize: tupleSize, blocks: blocks, prefixEnds: ends}
}

// Len returns the total tuple count captured at construction time.
func (it *RandomAccessIterator) Len() int {
	if len(it.prefixEnds) == 0 {
		return 0
	}
	return it.prefixEnds[len(it.prefixEnds)-1]
}

// At returns the tuple-sized slice for global tuple index i.
func (it *RandomAccessIterator) At(i int) []byte {
	blockIdx := sort.Search(len(it.prefixEnds), func(k int) bool {
		return it.prefixEnds[k] > i
	})
	start := 0
	if blockIdx > 0 {
		start = it.prefixEnds[blockIdx-1]
	}
	offsetInBlock := (i - start) * it.tupleSize
	return it.blocks[blockIdx].tupleAt(offsetInBlock, it.tupleSize)
}
