// Package backend turns translated Flounder IR into executable machine
// code: a paged mmap allocator (RW-mapped while writing, switched to RX
// before the page is ever called), an x86-64 instruction encoder for
// the fixed instruction subset package flounder models, and the
// function-pointer trampoline used to invoke a compiled query's entry
// point from Go. Grounded on the JITPage/JITWriter split and
// label/fixup scheme from other_examples' memcp JIT (jit_writer.go,
// jit_types.go), adapted from a dual RW/RX mapping per page to a
// single mprotect-toggled page per compiled query (this module compiles
// one query at a time rather than incrementally patching a live JIT
// cache, so a toggle is simpler than a dual mapping).
package backend

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Page is one mmap'd region of memory that holds compiled machine code.
// It starts out writable; Finalize() flips it to read+execute and the
// caller must not write to it again afterward.
type Page struct {
	mem      []byte
	size     int
	readonly bool
}

// NewPage mmaps a fresh page-aligned region of at least size bytes,
// anonymous and private, initially PROT_READ|PROT_WRITE.
func NewPage(size int) (*Page, error) {
	if size <= 0 {
		size = unix.Getpagesize()
	}
	size = roundUpToPageSize(size)
	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("backend: mmap failed: %w", err)
	}
	return &Page{mem: mem, size: size}, nil
}

func roundUpToPageSize(n int) int {
	ps := unix.Getpagesize()
	return (n + ps - 1) / ps * ps
}

// Bytes returns the writable backing slice. Panics after Finalize.
func (p *Page) Bytes() []byte {
	if p.readonly {
		panic("backend: page is already finalized read+execute")
	}
	return p.mem
}

// Finalize mprotects the page to PROT_READ|PROT_EXEC. After this call
// the page's code can be entered but never again written.
func (p *Page) Finalize() error {
	if p.readonly {
		return nil
	}
	if err := unix.Mprotect(p.mem, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return fmt.Errorf("backend: mprotect failed: %w", err)
	}
	p.readonly = true
	return nil
}

// Addr returns the address of the first byte of the page's memory.
func (p *Page) Addr() uintptr {
	if len(p.mem) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&p.mem[0]))
}

// Release unmaps the page. Must not be called while any compiled
// function still backed by this page could be invoked.
func (p *Page) Release() error {
	return unix.Munmap(p.mem)
}
