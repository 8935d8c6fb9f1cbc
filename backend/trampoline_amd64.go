package backend

import "unsafe"

// callTrampoline is implemented in trampoline_amd64.s: it bridges a
// normal Go call into the SysV-ABI entry point of a compiled query.
//
//go:noescape
func callTrampoline(entry uintptr, ctxPtr unsafe.Pointer) int64
