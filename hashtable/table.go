// Package hashtable implements the open-addressed, linear-probing hash
// table used by hash join and hash aggregation: entries are
// (status, hash, payload) triples, inserted via a CAS on a 32-bit
// status word. Each Put briefly takes the table's write lock to check
// the load threshold (and grow), then claims its slot by CAS under the
// read lock. Grounded on the
// original's allocate/put/get trio; generalized from the teacher's
// in-memory map-based grouping (plan/agg.go) into an explicit,
// growable, concurrency-safe structure.
package hashtable

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrFull is returned by Put when a full linear scan from the probe
// start finds no empty slot — this should be unreachable given the 60%
// load-factor grow threshold, and signals a bug in the grow path if it
// ever fires.
var ErrFull = errors.New("hashtable: HASH_TABLE_FULL")

const loadFactorThreshold = 0.60

// primeLadder is a fixed ladder of primes used to size the table:
// allocate always picks the smallest rung >= the requested minimum.
var primeLadder = []uint64{
	17, 37, 79, 163, 331, 673, 1361, 2729, 5471, 10949,
	21911, 43853, 87719, 175447, 350899, 701819, 1403641, 2807303,
	5614657, 11229331, 22458671, 44917381, 89834777, 179669557,
	359339171, 718678369, 1437356741, 2874713497, 5749427029,
	11498853991, 22997708033, 45995415979, 91990831979, 183981664001,
	367963327913, 735926655769, 1471853311517, 2943706623047,
	5887413246053, 11774826492113, 23549652984239, 47099305968461,
	94198611936943, 188397223873889, 376794447747829, 753588895495619,
	1507177790991253, 3014355581982419, 6028711163964851,
	12057422327929813, 18446744073709551557, // ceiling, ~1.8e19
}

func nextPrime(min uint64) uint64 {
	for _, p := range primeLadder {
		if p >= min {
			return p
		}
	}
	return primeLadder[len(primeLadder)-1]
}

// entry status values.
const (
	statusEmpty   uint32 = 0
	statusFilling uint32 = 1
)

// slot layout: status (atomic32, padded), hash (uint64), payload
// (payloadSize bytes). Kept as separate parallel slices rather than one
// packed byte buffer — this is the Go-native rendition of the original's
// packed-struct-array layout, since Go has no portable way to alias an
// atomic field inside a raw byte buffer.
type table struct {
	capacity    uint64
	payloadSize int
	status      []uint32
	hashes      []uint64
	payload     [][]byte
	count       uint64 // atomic insert counter
}

func newTable(minSize uint64, payloadSize int) *table {
	cap := nextPrime(minSize)
	t := &table{
		capacity:    cap,
		payloadSize: payloadSize,
		status:      make([]uint32, cap),
		hashes:      make([]uint64, cap),
		payload:     make([][]byte, cap),
	}
	for i := range t.payload {
		t.payload[i] = make([]byte, payloadSize)
	}
	return t
}

// Table is the externally visible, growable hash table. Growth happens
// inside Put, under the write lock, whenever the next insert would
// cross the load threshold. A grow copies payloads as they are at that
// moment, so a payload slice that an earlier Put returned and its
// caller has not yet filled is not carried over: Puts that may trigger
// a grow must not run concurrently with other Puts. Probe cursors read
// the table without the lock and must not run concurrently with Put.
type Table struct {
	mu          sync.RWMutex
	t           *table
	payloadSize int
}

// New allocates a table sized for at least minSize entries, each with
// payloadSize bytes following the (status, hash) header.
func New(minSize int, payloadSize int) *Table {
	if minSize < 1 {
		minSize = 1
	}
	return &Table{t: newTable(uint64(minSize), payloadSize), payloadSize: payloadSize}
}

// Capacity returns the current table capacity (a prime from the
// ladder).
func (h *Table) Capacity() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.t.capacity
}

// Put inserts a new entry for hash via linear probing from hash mod N,
// growing the table first if the 60% load threshold would be crossed.
// Returns the payload slice for the caller to fill; the hash is already
// recorded in the slot by the time Put returns.
func (h *Table) Put(hash uint64) ([]byte, error) {
	h.mu.Lock()
	if float64(h.t.count+1) > loadFactorThreshold*float64(h.t.capacity) {
		h.grow()
	}
	h.mu.Unlock()

	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.t.put(hash)
}

func (t *table) put(hash uint64) ([]byte, error) {
	start := hash % t.capacity
	for i := uint64(0); i < t.capacity; i++ {
		idx := (start + i) % t.capacity
		if atomic.CompareAndSwapUint32(&t.status[idx], statusEmpty, statusFilling) {
			t.hashes[idx] = hash
			atomic.AddUint64(&t.count, 1)
			return t.payload[idx], nil
		}
	}
	return nil, ErrFull
}

// Cursor walks the slots matching a given hash value, starting from
// hash mod N and wrapping, stopping at the first empty slot (the
// standard open-addressing "probe until miss" termination). Matching
// hashes are not necessarily matching keys: callers must dematerialize
// the payload and compare keys themselves (this is exactly what the
// probe-phase consume step of hash join/hash aggregation does).
type Cursor struct {
	t       *table
	hash    uint64
	idx     uint64
	visited uint64
	done    bool
}

// Probe returns a Cursor over the slots that could hold hash.
func (h *Table) Probe(hash uint64) *Cursor {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return &Cursor{t: h.t, hash: hash, idx: hash % h.t.capacity}
}

// Next advances the cursor to the next occupied slot whose recorded
// hash equals the probe hash, returning its payload, or ok=false once
// an empty slot is reached (end of the probe chain for this hash).
func (c *Cursor) Next() (payload []byte, ok bool) {
	if c.done {
		return nil, false
	}
	for c.visited < c.t.capacity {
		idx := c.idx
		c.idx = (c.idx + 1) % c.t.capacity
		c.visited++
		st := atomic.LoadUint32(&c.t.status[idx])
		if st == statusEmpty {
			c.done = true
			return nil, false
		}
		if c.t.hashes[idx] == c.hash {
			return c.t.payload[idx], true
		}
	}
	c.done = true
	return nil, false
}

// grow allocates a table at roughly double the current capacity and
// reinserts every live entry by payload copy, then hot-swaps the
// header. Must be called with h.mu held for writing.
func (h *Table) grow() {
	old := h.t
	next := newTable(old.capacity*2, h.payloadSize)
	for i := uint64(0); i < old.capacity; i++ {
		if atomic.LoadUint32(&old.status[i]) == statusEmpty {
			continue
		}
		dst, err := next.put(old.hashes[i])
		if err != nil {
			// Unreachable: next is sized well above old's live count.
			panic("hashtable: grow failed to reinsert: " + err.Error())
		}
		copy(dst, old.payload[i])
	}
	h.t = next
}

// ForEach walks every live slot (status != empty) in index order,
// calling fn(hash, payload) for each. Used by the hash-aggregation
// emit phase to scan out final group rows.
func (h *Table) ForEach(fn func(hash uint64, payload []byte)) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	t := h.t
	for i := uint64(0); i < t.capacity; i++ {
		if atomic.LoadUint32(&t.status[i]) == statusEmpty {
			continue
		}
		fn(t.hashes[i], t.payload[i])
	}
}

// Count returns the number of live entries.
func (h *Table) Count() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return atomic.LoadUint64(&h.t.count)
}
