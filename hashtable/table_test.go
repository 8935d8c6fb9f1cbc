package hashtable

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPutGetRoundTrip(t *testing.T) {
	assert := assert.New(t)
	ht := New(16, 8)

	slot, err := ht.Put(42)
	assert.NoError(err)
	binary.LittleEndian.PutUint64(slot, 100)

	cur := ht.Probe(42)
	payload, ok := cur.Next()
	assert.True(ok)
	assert.Equal(uint64(100), binary.LittleEndian.Uint64(payload))

	_, ok = cur.Next()
	assert.False(ok)
}

func TestProbeMissOnEmptySlot(t *testing.T) {
	assert := assert.New(t)
	ht := New(16, 8)
	cur := ht.Probe(999)
	_, ok := cur.Next()
	assert.False(ok)
}

func TestCollisionChaining(t *testing.T) {
	assert := assert.New(t)
	ht := New(4, 8) // small table forces linear probing collisions
	cap := ht.Capacity()

	// Insert several entries that share the same hash value so they
	// chain via linear probing.
	var slots [][]byte
	for i := 0; i < 3; i++ {
		slot, err := ht.Put(cap) // hash = capacity -> mod capacity = 0 for all
		assert.NoError(err)
		binary.LittleEndian.PutUint64(slot, uint64(i))
		slots = append(slots, slot)
	}

	cur := ht.Probe(cap)
	var got []uint64
	for {
		p, ok := cur.Next()
		if !ok {
			break
		}
		got = append(got, binary.LittleEndian.Uint64(p))
	}
	assert.ElementsMatch([]uint64{0, 1, 2}, got)
}

func TestGrowPreservesEntries(t *testing.T) {
	assert := assert.New(t)
	ht := New(4, 8)
	n := 50
	for i := 0; i < n; i++ {
		slot, err := ht.Put(uint64(i))
		assert.NoError(err)
		binary.LittleEndian.PutUint64(slot, uint64(i*2))
	}
	assert.True(ht.Capacity() > 4)
	assert.Equal(uint64(n), ht.Count())

	for i := 0; i < n; i++ {
		cur := ht.Probe(uint64(i))
		found := false
		for {
			p, ok := cur.Next()
			if !ok {
				break
			}
			if binary.LittleEndian.Uint64(p) == uint64(i*2) {
				found = true
			}
		}
		assert.True(found, "missing entry for hash %d", i)
	}
}

func TestForEachVisitsAllLive(t *testing.T) {
	assert := assert.New(t)
	ht := New(16, 8)
	inserted := map[uint64]bool{}
	for i := 0; i < 5; i++ {
		slot, _ := ht.Put(uint64(i))
		binary.LittleEndian.PutUint64(slot, uint64(i))
		inserted[uint64(i)] = true
	}

	seen := map[uint64]bool{}
	ht.ForEach(func(hash uint64, payload []byte) {
		seen[hash] = true
	})
	assert.Equal(inserted, seen)
}

func TestNextPrimeLadder(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(uint64(17), nextPrime(1))
	assert.Equal(uint64(17), nextPrime(17))
	assert.Equal(uint64(37), nextPrime(18))
}
