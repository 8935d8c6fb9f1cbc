package backend

import (
	"encoding/binary"
	"fmt"
)

// Writer accumulates encoded machine code bytes for a single compiled
// query, tracking label positions and forward-reference fixups so jump
// targets can be resolved once the whole body has been emitted.
// Grounded on JITWriter's Labels/Fixups arrays (other_examples' memcp
// jit_writer.go), generalized from fixed-size arrays to growable slices
// since a query body's instruction count isn't known at construction
// time the way a single Scheme lambda body's roughly is.
type Writer struct {
	buf []byte

	labels []int32 // byte offset of each defined label, -1 if reserved but undefined
	fixups []fixup
}

type fixup struct {
	codePos  int
	labelID  int
	size     int // 1 or 4 bytes
	relative bool
}

// NewWriter creates an empty code buffer.
func NewWriter() *Writer {
	return &Writer{}
}

// Len returns the current buffer length (the next write position).
func (w *Writer) Len() int { return len(w.buf) }

// Bytes returns the accumulated code; only valid after ResolveFixups.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) emit(bs ...byte) {
	w.buf = append(w.buf, bs...)
}

func (w *Writer) emit32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) emit64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// ReserveLabel allocates a label ID whose position will be fixed later
// via MarkLabel — used for forward jump targets.
func (w *Writer) ReserveLabel() int {
	id := len(w.labels)
	w.labels = append(w.labels, -1)
	return id
}

// DefineLabel allocates and immediately marks a label at the current
// write position — used for backward jump targets (e.g. loop heads).
func (w *Writer) DefineLabel() int {
	id := w.ReserveLabel()
	w.MarkLabel(id)
	return id
}

// MarkLabel fixes a previously reserved label at the current position.
func (w *Writer) MarkLabel(id int) {
	w.labels[id] = int32(len(w.buf))
}

// addFixup records that the 'size'-byte field starting at the current
// write position (about to be emitted) must be patched once id's
// target is known.
func (w *Writer) addFixup(labelID, size int, relative bool) {
	w.fixups = append(w.fixups, fixup{codePos: len(w.buf), labelID: labelID, size: size, relative: relative})
}

// ResolveFixups patches every recorded forward/backward reference.
// Must be called exactly once after all instructions are emitted.
func (w *Writer) ResolveFixups() error {
	for _, f := range w.fixups {
		target := w.labels[f.labelID]
		if target < 0 {
			return fmt.Errorf("backend: label %d never marked", f.labelID)
		}
		switch f.size {
		case 1:
			var off int32
			if f.relative {
				off = target - (int32(f.codePos) + 1)
			} else {
				off = target
			}
			if off < -128 || off > 127 {
				return fmt.Errorf("backend: rel8 fixup out of range (%d)", off)
			}
			w.buf[f.codePos] = byte(int8(off))
		case 4:
			var off int32
			if f.relative {
				off = target - (int32(f.codePos) + 4)
			} else {
				off = target
			}
			binary.LittleEndian.PutUint32(w.buf[f.codePos:f.codePos+4], uint32(off))
		default:
			return fmt.Errorf("backend: unsupported fixup size %d", f.size)
		}
	}
	return nil
}
