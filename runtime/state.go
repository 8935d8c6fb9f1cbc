package runtime

import (
	"unsafe"

	"github.com/resqljit/resql/hashtable"
)

// MaxSlots/MaxInts/MaxCursors bound how many pointer slots, integer
// scratch cells, and live hash-table cursors a single compiled query
// can address. jit.Context hands out indices below these ceilings at
// codegen time (one per scan/join/aggregate operator instance that
// needs Go-side state); QueryState itself is sized generously since it
// is cheap, stack-allocatable, per-thread scratch.
const (
	MaxSlots   = 256
	MaxInts    = 64
	MaxCursors = 64
)

// QueryState is the single block of memory a compiled query's entry
// point receives its pointer to (in rdi, per backend.Compiled.Call).
// Generated code never manipulates Go values directly — it only ever
// loads a Slots/Ints cell into a vreg and hands that raw bit pattern to
// a managed call, or receives one back. The struct is kept alive by
// whichever Go frame calls jit.Context.Execute, which is what makes
// every pointer living in Slots (and every *hashtable.Cursor parked in
// cursors) safe from the garbage collector despite JIT-compiled code
// only ever seeing the bits: the real reference keeping the pointee
// alive is this struct's own field, not the machine register that
// temporarily copies its value.
//
// Cursors are kept as a separate Go-typed array rather than handed to
// generated code as raw pointers: a *hashtable.Cursor created mid-probe
// has no other live reference, so stashing it as a plain uintptr in a
// vreg would leave it collectible out from under the still-running
// probe loop. Parking it here, indexed by a small compile-time-assigned
// handle, keeps it GC-visible for exactly as long as the probe is live.
type QueryState struct {
	Slots [MaxSlots]unsafe.Pointer
	Ints  [MaxInts]int64

	cursors [MaxCursors]*hashtable.Cursor
}

func (s *QueryState) SetSlot(i int32, p unsafe.Pointer) { s.Slots[i] = p }
func (s *QueryState) Slot(i int32) unsafe.Pointer       { return s.Slots[i] }

func (s *QueryState) SetInt(i int32, v int64) { s.Ints[i] = v }
func (s *QueryState) IntAt(i int32) int64     { return s.Ints[i] }

// Byte offsets of the Slots/Ints arrays within QueryState, computed
// once so codegen can build mem[state_vreg + SlotOffset(i)] operands
// without knowing the struct layout itself.
var (
	slotsBase = int32(unsafe.Offsetof(QueryState{}.Slots))
	intsBase  = int32(unsafe.Offsetof(QueryState{}.Ints))
)

func SlotOffset(i int32) int32 { return slotsBase + i*8 }
func IntOffset(i int32) int32  { return intsBase + i*8 }

// BridgeHashProbeStart begins a probe chain for hash over t, parking
// the cursor in state's handle-th slot. Returns 0 always; the return
// value exists only so the call shape matches every other bridge
// (callers ignore it).
func BridgeHashProbeStart(state *QueryState, handle int64, t *hashtable.Table, hash uint64) int64 {
	state.cursors[handle] = t.Probe(hash)
	return 0
}

// BridgeHashProbeNext advances the probe chain parked at handle,
// returning the next matching-hash payload's address, or 0 once the
// chain is exhausted (a nil Go pointer and the integer zero are the
// same bit pattern, so generated code tests the retval against zero
// exactly like every other optional-pointer bridge here).
func BridgeHashProbeNext(state *QueryState, handle int64) uintptr {
	payload, ok := state.cursors[handle].Next()
	if !ok {
		return 0
	}
	return uintptr(unsafe.Pointer(&payload[0]))
}

// BridgeHashPut inserts hash into t and returns the address of the
// fresh payload slot the caller should materialize into. Aborts the
// process on HASH_TABLE_FULL, matching the resource-error-terminates
// policy for a condition the 60%-load-factor grow makes unreachable in
// practice.
func BridgeHashPut(t *hashtable.Table, hash uint64) uintptr {
	payload, err := t.Put(hash)
	if err != nil {
		RuntimeAbort(err)
		return 0
	}
	return uintptr(unsafe.Pointer(&payload[0]))
}
