package runtime

import (
	"reflect"
	"unsafe"

	"github.com/resqljit/resql/storage"
)

// BridgeAppendGet reserves the next tuple slot on it and returns its
// address for the emitter to materialize a row into. Aborts on the one
// error AppendIterator.Get returns (a tuple that cannot fit any block,
// however large) — a condition the plan builder is expected to reject
// before compilation, so reaching it here signals a bug rather than a
// user-inducible state.
func BridgeAppendGet(it *storage.AppendIterator) uintptr {
	buf, err := it.Get()
	if err != nil {
		RuntimeAbort(err)
		return 0
	}
	return uintptr(unsafe.Pointer(&buf[0]))
}

// BridgeReadGetBlock advances it to the next block, recording the
// block's used byte count into state.Ints[sizeSlot] (so generated code
// can compute the scan's end address as begin + that many bytes) and
// returning the block's start address, or 0 once the relation is
// exhausted.
func BridgeReadGetBlock(state *QueryState, sizeSlot int64, it *storage.ReadIterator) uintptr {
	b := it.GetBlock()
	if b == nil {
		state.SetInt(int32(sizeSlot), 0)
		return 0
	}
	bytes := b.Bytes()
	state.SetInt(int32(sizeSlot), int64(len(bytes)))
	if len(bytes) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&bytes[0]))
}

// FuncAddr returns the entry address of a Go function, for use as a
// managed-call target (flounder.Arena.ConstAddress). Only the bridge*
// wrappers below are meant to be addressed this way: they take exactly
// the scalar pointer/int64 arguments the call-convention lowering
// places in the SysV integer argument registers, and they never
// allocate, defer, or otherwise touch anything that isn't safe for a
// leaf call from JIT-compiled code running on the calling goroutine's
// own stack.
func FuncAddr(fn interface{}) uintptr {
	return reflect.ValueOf(fn).Pointer()
}

// cStr reinterprets a NUL-terminated (or bound-exhausted) byte run at p
// as a Go string without copying — every VARCHAR/CHAR cell in this
// engine is a single 8-byte pointer into a NUL-terminated buffer (the
// schema always reserves Len+1 bytes for by-value storage precisely so
// the terminator fits), so a managed call never needs a separate
// runtime length argument: bound is the declared CHAR width or VARCHAR
// max length, a compile-time constant the emitter passes as an
// immediate.
func cStr(p unsafe.Pointer, bound int) string {
	if p == nil || bound <= 0 {
		return ""
	}
	b := (*byte)(p)
	buf := unsafe.Slice(b, bound)
	n := 0
	for n < bound && buf[n] != 0 {
		n++
	}
	return unsafe.String(b, n)
}

func b2i64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// BridgeCmpVarchar is the EQ-on-VARCHAR managed-call target.
func BridgeCmpVarchar(aPtr unsafe.Pointer, aMaxLen int64, bPtr unsafe.Pointer, bMaxLen int64) int64 {
	return b2i64(CmpVarchar(cStr(aPtr, int(aMaxLen)), cStr(bPtr, int(bMaxLen))))
}

// BridgeCmpChar is the EQ-on-CHAR(>1) managed-call target.
func BridgeCmpChar(aPtr unsafe.Pointer, aWidth int64, bPtr unsafe.Pointer, bWidth int64) int64 {
	return b2i64(CmpChar(cStr(aPtr, int(aWidth)), cStr(bPtr, int(bWidth))))
}

// BridgeLike is the LIKE managed-call target.
func BridgeLike(subjPtr unsafe.Pointer, subjBound int64, patPtr unsafe.Pointer, patBound int64) int64 {
	return b2i64(Like(cStr(subjPtr, int(subjBound)), cStr(patPtr, int(patBound))))
}

// BridgeHashVarchar is the VARCHAR hash managed-call target.
func BridgeHashVarchar(ptr unsafe.Pointer, maxLen int64, acc uint64) uint64 {
	return HashVarchar(cStr(ptr, int(maxLen)), acc, int(maxLen))
}

// BridgeHashChar is the CHAR hash managed-call target.
func BridgeHashChar(ptr unsafe.Pointer, width int64, acc uint64) uint64 {
	return HashChar(cStr(ptr, int(width)), acc, int(width))
}

// BridgeWriteString copies up to maxLen bytes of the NUL-terminated
// string at src into dst, zero-padding (and NUL-terminating) the rest
// of dst's maxLen+1-byte reservation — the by-value materialize path's
// "string-write runtime" the value helpers call into.
func BridgeWriteString(dst unsafe.Pointer, maxLen int64, src unsafe.Pointer) int64 {
	s := cStr(src, int(maxLen))
	out := unsafe.Slice((*byte)(dst), maxLen+1)
	n := copy(out, s)
	for i := n; i < len(out); i++ {
		out[i] = 0
	}
	return 0
}

// BridgeCheckedAddI64/SubI64/MulI64/DivI64 are the checked-arithmetic
// managed-call targets. Rather than an out-parameter pointer (which
// would need generated code to materialize the address of a vreg —
// not something a vreg-based value has), the overflow flag is written
// into the calling query's runtime.QueryState.Ints scratch cell at
// overflowSlot; generated code loads it back with a plain mem read and
// branches to a call into BridgeAbort on non-zero.
func BridgeCheckedAddI64(state *QueryState, overflowSlot int64, a, b int64) int64 {
	r, err := CheckedAddI64(a, b)
	state.SetInt(int32(overflowSlot), b2i64(err != nil))
	return r
}

func BridgeCheckedSubI64(state *QueryState, overflowSlot int64, a, b int64) int64 {
	r, err := CheckedSubI64(a, b)
	state.SetInt(int32(overflowSlot), b2i64(err != nil))
	return r
}

func BridgeCheckedMulI64(state *QueryState, overflowSlot int64, a, b int64) int64 {
	r, err := CheckedMulI64(a, b)
	state.SetInt(int32(overflowSlot), b2i64(err != nil))
	return r
}

func BridgeCheckedDivI64(state *QueryState, overflowSlot int64, a, b int64) int64 {
	r, err := CheckedDivI64(a, b)
	state.SetInt(int32(overflowSlot), b2i64(err != nil))
	return r
}

// BridgeAbort is the managed-call target generated code reaches when a
// checked-arithmetic overflow flag comes back set: it never returns.
func BridgeAbort() int64 {
	RuntimeAbort(ErrOverflow)
	return 0
}

// BridgeBarrierWait is the hash-join build/probe barrier managed-call
// target.
func BridgeBarrierWait(b *Barrier) int64 {
	b.Wait()
	return 0
}

// BridgeSortRelation is the order-by managed-call target: sorts *rel
// in place per the orderBy array of n requests.
func BridgeSortRelation(rel *storage.Relation, orderBy *OrderRequest, n int64) int64 {
	reqs := unsafe.Slice(orderBy, int(n))
	SortRelation(rel, reqs)
	return 0
}
