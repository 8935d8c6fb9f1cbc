package storage

import (
	"sync"

	"github.com/resqljit/resql/sqltypes"
)

// Relation is a growable chain of fixed-capacity blocks holding tuples
// of a single schema. All structural mutation (block allocation, the
// append-reserve step) is serialized by mu; reading an already-appended
// block's bytes is not further synchronized once the block reference
// has been handed out, matching the "serialize only the block-advance
// step" rule that keeps per-tuple writers from contending beyond what's
// needed.
type Relation struct {
	Name   string
	Schema sqltypes.Schema

	capacity int

	mu     sync.Mutex
	blocks []*Block
}

// NewRelation creates an empty relation for schema, using capacity
// bytes per block (DefaultBlockCapacity if capacity <= 0). Schema.Build
// must already have been called.
func NewRelation(name string, schema sqltypes.Schema, capacity int) *Relation {
	if capacity <= 0 {
		capacity = DefaultBlockCapacity
	}
	return &Relation{Name: name, Schema: schema, capacity: capacity}
}

// TupleSize returns the fixed tuple width in bytes for this relation's
// schema.
func (r *Relation) TupleSize() int { return r.Schema.TupleSize() }

// NumBlocks returns the current block count (for diagnostics/tests).
func (r *Relation) NumBlocks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.blocks)
}

// Count returns the total number of tuples appended so far.
func (r *Relation) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	tupleSize := r.TupleSize()
	n := 0
	for _, b := range r.blocks {
		n += b.numTuples(tupleSize)
	}
	return n
}

// Append reserves a tuple-sized slot at the end of the relation and
// returns it for the caller to fill in place. It allocates a new block
// if the current tail block cannot fit the tuple.
func (r *Relation) Append() ([]byte, error) {
	tupleSize := r.TupleSize()
	if tupleSize > r.capacity {
		return nil, ErrTupleTooLarge
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.blocks) == 0 || !r.blocks[len(r.blocks)-1].fits(tupleSize) {
		r.blocks = append(r.blocks, newBlock(r.capacity))
	}
	tail := r.blocks[len(r.blocks)-1]
	return tail.reserve(tupleSize), nil
}
