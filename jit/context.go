// Package jit is the compilation orchestrator (C6): it owns the
// Flounder arena for one query, the symbol table operator code
// generators read and write as they walk the plan, the pipeline
// splicing contract scan-like operators use to interleave
// initialization/teardown code around a produced loop body, and the
// compile()/execute() entry points that hand a finished tree to
// package translate and then package backend.
//
// Grounded on cg/cg.go's queryCodeGen (the teacher's single per-query
// state struct: symbol bookkeeping plus a Gen() orchestration method)
// generalized from string-keyed AWK variable names to IR-node-keyed
// Flounder values, and on other_examples' memcp JIT's JITContext
// (jit_types.go) for the idea of a single per-compilation struct owning
// both register/id bookkeeping and the eventual native entry point.
package jit

import (
	"fmt"
	"sync"
	"time"
	"unsafe"

	"github.com/resqljit/resql/backend"
	"github.com/resqljit/resql/flounder"
	"github.com/resqljit/resql/runtime"
	"github.com/resqljit/resql/sqltypes"
	"github.com/resqljit/resql/translate"
)

// Config is the per-query compilation/execution configuration.
type Config struct {
	// NumThreads is how many worker threads Execute spawns to invoke
	// the compiled entry point; each gets its own context pointer.
	NumThreads int
	// UseTextAssembler is carried in the configuration but not read:
	// Compile always encodes through backend.Assemble, and there is no
	// text+external-assembler path in this repository.
	UseTextAssembler bool
}

// Report carries compile/execute timings and sizes back to the caller
// (see cg/gen_format.go for the teacher's analogous timing-report
// shape).
type Report struct {
	CompileDuration time.Duration
	ExecuteDuration time.Duration
	CodeSizeBytes   int
	ThreadDurations []time.Duration
}

// Context is the single piece of state threaded through one query's
// code generation: the Flounder arena, the three top-level IR regions,
// the currently-open pipeline's header/footer, the symbol table, and
// the global id counters the generalized "global IR numbering" note
// requires be per-Context fields rather than package globals, so two
// queries can compile concurrently in one process.
type Context struct {
	Arena *flounder.Arena

	codeTree   flounder.NodeID // main body; Root() itself
	codeHeader flounder.NodeID // container spliced in front at Compile time
	codeFooter flounder.NodeID // container appended at the end at Compile time

	pipeHeader    flounder.NodeID // current pipeline's init code
	pipeFooter    flounder.NodeID // current pipeline's teardown code
	insPipeHeader flounder.NodeID // cursor: last child of codeTree when the pipeline opened
	pipelineOpen  bool

	symbols map[string]flounder.NodeID

	labelNextTuple string // current loop's "continue" label; "" if none is open

	requestAll bool // set when the query uses SELECT *

	nextVreg  int32
	nextLabel int32
	nextLoop  int32
	nextIf    int32

	nextSlot   int32 // runtime.QueryState.Slots allocation counter
	nextInt    int32 // runtime.QueryState.Ints allocation counter
	nextCursor int32 // runtime.QueryState cursor-handle allocation counter

	stateVreg flounder.NodeID // lazily materialized copy of the incoming rdi argument

	constStrings [][]byte // NUL-terminated literal data kept alive for ConstString's addresses

	Config Config
	Report Report
}

// NewContext allocates a fresh arena and the three top-level IR
// containers for one query compilation.
func NewContext(cfg Config) *Context {
	a := flounder.NewArena()
	ctx := &Context{
		Arena:      a,
		codeTree:   a.Root(),
		codeHeader: a.Section("code_header"),
		codeFooter: a.Section("code_footer"),
		symbols:    map[string]flounder.NodeID{},
		Config:     cfg,
		stateVreg:  flounder.InvalidNode,
	}
	return ctx
}

// CodeTree is the main body root; operators append generated
// instructions here as they run.
func (c *Context) CodeTree() flounder.NodeID { return c.codeTree }

// Emit appends id as the next instruction in the main body.
func (c *Context) Emit(id flounder.NodeID) flounder.NodeID {
	return c.Arena.AddChild(c.codeTree, id)
}

// EmitHeader appends id to code_header, run once before the main body.
func (c *Context) EmitHeader(id flounder.NodeID) flounder.NodeID {
	return c.Arena.AddChild(c.codeHeader, id)
}

// EmitFooter appends id to code_footer, run once after the main body.
func (c *Context) EmitFooter(id flounder.NodeID) flounder.NodeID {
	return c.Arena.AddChild(c.codeFooter, id)
}

// --- symbol table -------------------------------------------------

func (c *Context) SetSymbol(name string, v flounder.NodeID) {
	c.symbols[name] = v
}

func (c *Context) LookupSymbol(name string) (flounder.NodeID, bool) {
	v, ok := c.symbols[name]
	return v, ok
}

func (c *Context) DeleteSymbol(name string) {
	delete(c.symbols, name)
}

// RequestAll reports (and SetRequestAll sets) the SELECT * flag.
func (c *Context) RequestAll() bool       { return c.requestAll }
func (c *Context) SetRequestAll(all bool) { c.requestAll = all }

// LabelNextTuple is the current loop's "continue" label name; operators
// that skip the rest of a tuple's processing (a failed Selection
// predicate) branch here. Empty when no loop is open.
func (c *Context) LabelNextTuple() string       { return c.labelNextTuple }
func (c *Context) SetLabelNextTuple(name string) { c.labelNextTuple = name }

// --- id allocation --------------------------------------------------

// VregForType returns a new vreg of the width sqltypes.Type.ByteWidth
// dictates (BOOL/CHAR(1) -> 1 byte, INT32/DATE -> 4 bytes, else 8
// bytes) and, if explicit, immediately emits a request marker into the
// main body so the register allocator sees the request at the point
// the value logically becomes live.
func (c *Context) VregForType(t sqltypes.Type, explicit bool) flounder.NodeID {
	id := c.nextVreg
	c.nextVreg++
	v := c.Arena.Vreg(t.ByteWidth(), id)
	if explicit {
		c.Emit(c.Arena.ReqVreg(v))
	}
	return v
}

// NextLabel returns a fresh, query-unique label name built from prefix.
func (c *Context) NextLabel(prefix string) string {
	id := c.nextLabel
	c.nextLabel++
	return fmt.Sprintf("%s_%d", prefix, id)
}

// NextLoopID and NextIfID hand out stable ids for OpenLoop/CloseLoop
// pairs and if/else label groups respectively.
func (c *Context) NextLoopID() int32 {
	id := c.nextLoop
	c.nextLoop++
	return id
}

func (c *Context) NextIfID() int32 {
	id := c.nextIf
	c.nextIf++
	return id
}

// --- runtime.QueryState addressing -----------------------------------
//
// Every managed call that needs to reach a Go-owned object (a
// *storage.Relation's iterators, a *hashtable.Table, a join barrier)
// does so through a slot in the runtime.QueryState the compiled entry
// point receives as its sole argument (see backend.Compiled.Call,
// trampoline_amd64.s: the pointer arrives in rdi). AllocSlot/AllocInt/
// AllocCursor hand out the indices operators bind their Go-side state
// to at plan-build time, before compilation; the caller populates the
// actual QueryState.Slots/Ints once per worker immediately before
// calling Execute.

// AllocSlot reserves one runtime.QueryState.Slots index for a Go
// pointer (a relation, iterator, hash table, or barrier) this query's
// operator tree needs to reach from generated code.
func (c *Context) AllocSlot() int32 {
	id := c.nextSlot
	c.nextSlot++
	if int(id) >= runtime.MaxSlots {
		panic("jit: query exceeds runtime.MaxSlots")
	}
	return id
}

// AllocInt reserves one runtime.QueryState.Ints index for an
// integer scratch cell (e.g. a scan's current-block byte count, a
// materialize operator's LIMIT counter).
func (c *Context) AllocInt() int32 {
	id := c.nextInt
	c.nextInt++
	if int(id) >= runtime.MaxInts {
		panic("jit: query exceeds runtime.MaxInts")
	}
	return id
}

// AllocCursor reserves one runtime.QueryState hash-probe-cursor handle
// for a hash join or hash aggregation probe loop.
func (c *Context) AllocCursor() int32 {
	id := c.nextCursor
	c.nextCursor++
	if int(id) >= runtime.MaxCursors {
		panic("jit: query exceeds runtime.MaxCursors")
	}
	return id
}

// StateVreg returns the vreg holding the query's runtime.QueryState
// pointer, materializing it on first use by copying the raw incoming
// rdi argument (untouched by the register allocator, since it is a
// machine Reg operand, not a Vreg one) into a freshly requested vreg at
// the very start of code_header — which Compile prepends before
// code_tree, so this copy always runs before anything else.
func (c *Context) StateVreg() flounder.NodeID {
	if c.stateVreg == flounder.InvalidNode {
		id := c.nextVreg
		c.nextVreg++
		v := c.Arena.Vreg(8, id)
		tmp := c.Arena.Section("state_vreg")
		c.Arena.AddChild(tmp, c.Arena.ReqVreg(v))
		c.Arena.AddChild(tmp, c.Arena.Mov(v, c.Arena.Reg(8, flounder.RDI)))
		c.Arena.TransferChildren(c.codeHeader, flounder.InvalidNode, tmp)
		c.stateVreg = v
	}
	return c.stateVreg
}

// PtrVreg returns a fresh 8-byte vreg with a live request marker
// emitted at the current insertion point, for values that carry a raw
// address or Go-side handle rather than a sqltypes.Type-tagged SQL
// value.
func (c *Context) PtrVreg() flounder.NodeID {
	id := c.nextVreg
	c.nextVreg++
	v := c.Arena.Vreg(8, id)
	c.Emit(c.Arena.ReqVreg(v))
	return v
}

// LoadSlot emits a load of runtime.QueryState.Slots[slot] into a fresh
// pointer vreg.
func (c *Context) LoadSlot(slot int32) flounder.NodeID {
	addr := c.Arena.MemAdd(c.StateVreg(), runtime.SlotOffset(slot))
	v := c.PtrVreg()
	c.Emit(c.Arena.Mov(v, addr))
	return v
}

// LoadInt emits a load of runtime.QueryState.Ints[idx] into a fresh
// 8-byte vreg.
func (c *Context) LoadInt(idx int32) flounder.NodeID {
	addr := c.Arena.MemAdd(c.StateVreg(), runtime.IntOffset(idx))
	v := c.PtrVreg()
	c.Emit(c.Arena.Mov(v, addr))
	return v
}

// ConstString pins s as a NUL-terminated byte buffer for the lifetime
// of this Context and returns its address as a flounder constant,
// suitable for a CHAR/VARCHAR literal's CONSTANT node (see sql.Const's
// ConstStr case). The buffer is kept alive by c.constStrings, not by
// any reference generated code holds, since generated code only ever
// sees the raw address.
func (c *Context) ConstString(s string) flounder.NodeID {
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	c.constStrings = append(c.constStrings, buf)
	return c.Arena.ConstAddress(uintptr(unsafe.Pointer(&buf[0])))
}

// --- pipeline splicing ------------------------------------------------

// OpenPipeline records the current end of the main body as the
// insertion cursor and starts fresh header/footer containers. Scan-like
// operators that own a pipeline call this before producing their loop.
func (c *Context) OpenPipeline() {
	c.insPipeHeader = c.lastChild(c.codeTree)
	c.pipeHeader = c.Arena.Section("pipe_header")
	c.pipeFooter = c.Arena.Section("pipe_footer")
	c.pipelineOpen = true
}

// ClosePipeline splices pipe_header in at the recorded cursor (so its
// initialization code runs once, before the loop body that was appended
// to the main tree while the pipeline was open) and appends pipe_footer
// at the current end (so its teardown code runs once, after the loop).
func (c *Context) ClosePipeline() {
	c.Arena.TransferChildren(c.codeTree, c.insPipeHeader, c.pipeHeader)
	c.Arena.TransferChildren(c.codeTree, c.lastChild(c.codeTree), c.pipeFooter)
	c.pipelineOpen = false
}

// PipelineOpen reports whether a pipeline is currently open, so a
// nested scan-like operator (e.g. the restarted inner side of a
// nested-loops join) knows whether to open its own pipeline or just
// append to the one already in progress.
func (c *Context) PipelineOpen() bool { return c.pipelineOpen }

// PipeHeader and PipeFooter are the current pipeline's init/teardown
// containers; materialize-style operators append to these directly.
func (c *Context) PipeHeader() flounder.NodeID { return c.pipeHeader }
func (c *Context) PipeFooter() flounder.NodeID { return c.pipeFooter }

func (c *Context) lastChild(id flounder.NodeID) flounder.NodeID {
	children := c.Arena.Children(id)
	if len(children) == 0 {
		return flounder.InvalidNode
	}
	return children[len(children)-1]
}

// CallBridge emits a managed call to fn (one of package runtime's
// Bridge* functions, addressed via runtime.FuncAddr) with the given
// argument vregs, returning its result in retVal, which may be
// flounder.InvalidNode when the result is discarded.
func (c *Context) CallBridge(fn interface{}, retVal flounder.NodeID, args ...flounder.NodeID) flounder.NodeID {
	addr := c.Arena.ConstAddress(runtime.FuncAddr(fn))
	return c.Emit(c.Arena.ManagedCall(retVal, addr, args...))
}

// --- compile / execute ------------------------------------------------

// Compile prepends code_header, appends code_footer and a trailing
// ret, runs the Flounder->machine translation pipeline (optimize,
// register allocation, call-convention lowering, frame emission), then
// feeds the result to the assembler backend. Timings and code size are
// captured into c.Report.
func (c *Context) Compile() (*backend.Compiled, error) {
	start := time.Now()

	c.Arena.TransferChildren(c.codeTree, flounder.InvalidNode, c.codeHeader)
	c.Arena.TransferChildren(c.codeTree, c.lastChild(c.codeTree), c.codeFooter)
	c.Emit(c.Arena.Ret())

	translate.Optimize(c.Arena, c.codeTree)

	alloc := translate.NewAllocator(c.Arena)
	if err := alloc.Run(c.codeTree); err != nil {
		return nil, fmt.Errorf("jit: register allocation failed: %w", err)
	}
	if err := translate.LowerCalls(c.Arena, alloc, c.codeTree); err != nil {
		return nil, fmt.Errorf("jit: call-convention lowering failed: %w", err)
	}
	translate.EmitFrame(c.Arena, alloc, c.codeTree)

	w, err := backend.Assemble(c.Arena, c.codeTree)
	if err != nil {
		return nil, fmt.Errorf("jit: assembly failed: %w", err)
	}
	compiled, err := backend.CompileEntry(w)
	if err != nil {
		return nil, fmt.Errorf("jit: failed to finalize executable page: %w", err)
	}

	c.Report.CompileDuration = time.Since(start)
	c.Report.CodeSizeBytes = w.Len()
	return compiled, nil
}

// Execute spawns Config.NumThreads worker goroutines (standing in for
// the teacher's worker-thread model — Go's scheduler multiplexes these
// onto OS threads the same way a thread pool would), each invoking
// compiled with its own ctxPtrs[i], joins them all, and captures
// per-thread and overall timings into c.Report. len(ctxPtrs) must equal
// Config.NumThreads.
func (c *Context) Execute(compiled *backend.Compiled, ctxPtrs []unsafe.Pointer) ([]int64, error) {
	n := c.Config.NumThreads
	if n <= 0 {
		n = 1
	}
	if len(ctxPtrs) != n {
		return nil, fmt.Errorf("jit: Execute needs %d context pointers, got %d", n, len(ctxPtrs))
	}

	results := make([]int64, n)
	durations := make([]time.Duration, n)
	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			t0 := time.Now()
			results[i] = compiled.Call(ctxPtrs[i])
			durations[i] = time.Since(t0)
		}(i)
	}
	wg.Wait()

	c.Report.ExecuteDuration = time.Since(start)
	c.Report.ThreadDurations = durations
	return results, nil
}
