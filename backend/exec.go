package backend

import "unsafe"

// Compiled is a finished, callable machine-code body: it takes the
// address of a single context-block argument (the calling convention
// jit.Context's pipe lowers every managed call and the entry point to)
// and returns an int64 status/row-count.
type Compiled struct {
	page  *Page
	entry uintptr
}

// CompileEntry takes a Writer whose fixups have already been resolved,
// allocates a fresh page, copies the code in, and finalizes it RX. The
// returned Compiled's Call method is the only way back into Go.
func CompileEntry(w *Writer) (*Compiled, error) {
	page, err := NewPage(w.Len())
	if err != nil {
		return nil, err
	}
	copy(page.Bytes(), w.Bytes())
	if err := page.Finalize(); err != nil {
		return nil, err
	}
	return &Compiled{page: page, entry: page.Addr()}, nil
}

// Call invokes the compiled code, passing ctxPtr as its single
// argument per the SysV-derived single-pointer-argument convention
// package translate lowers every entry point to. The actual call
// crosses from Go's own calling convention into SysV via
// callTrampoline (trampoline_amd64.s) — the same no-cgo approach to
// invoking freshly JIT-compiled code used by other_examples' memcp JIT
// (JITEntryPoint.Native, jit_entry.go), done here with a hand-written
// assembly bridge instead of a reinterpreted func value so the call
// doesn't depend on the Go runtime's internal func-value layout.
func (c *Compiled) Call(ctxPtr unsafe.Pointer) int64 {
	return callTrampoline(c.entry, ctxPtr)
}

// Release frees the backing page. Must only be called once nothing can
// still invoke Call.
func (c *Compiled) Release() error {
	return c.page.Release()
}
