package rt

import (
	"fmt"

	"fortio.org/safecast"
)

// Handle is a stable, monotonically increasing reference to a heap block.
// Handle(0) is always invalid. Handles are never reused within a run, so
// a freed handle stays detectable as use-after-free.
type Handle uint32

// Heap stores all heap blocks for one runtime context.
type Heap struct {
	next        Handle
	nextAllocID uint64
	objs        map[Handle]*Block

	counters heapCounters
	tracer   *Tracer
}

func (h *Heap) initIfNeeded() {
	if h.objs == nil {
		h.objs = make(map[Handle]*Block, 128)
	}
	if h.next == 0 {
		h.next = 1
	}
	if h.nextAllocID == 0 {
		h.nextAllocID = 1
	}
}

// SetTracer attaches a tracer for heap events. A nil tracer disables tracing.
func (h *Heap) SetTracer(t *Tracer) {
	h.tracer = t
}

// Alloc allocates a block with the given tag whose leading fields are all
// owned children (scan size == len(fields)). The new block is unique.
func (h *Heap) Alloc(tag Tag, fields []Value) Handle {
	scan, err := safecast.Conv[uint32](len(fields))
	if err != nil {
		h.panic(PanicBadScanSize, fmt.Sprintf("field count overflow: %d", len(fields)))
	}
	handle, b := h.alloc(tag)
	b.Fields = append([]Value(nil), fields...)
	b.ScanSize = scan
	if h.tracer != nil {
		h.tracer.TraceHeapAlloc(handle, b)
	}
	return handle
}

// AllocCopy returns a fresh unique block that is a field-wise copy of the
// source: same tag and scan size, refcount zero. Each owned child handle
// is dup'd so both blocks are independently valid owners.
func (h *Heap) AllocCopy(src Handle) Handle {
	sb := h.Get(src)
	handle, b := h.alloc(sb.Tag)
	b.Fields = append([]Value(nil), sb.Fields...)
	b.ScanSize = sb.ScanSize
	for i := uint32(0); i < sb.ScanSize; i++ {
		h.DupValue(b.Fields[i])
	}
	h.counters.copyCount++
	if h.tracer != nil {
		h.tracer.TraceHeapCopy(src, handle, b)
	}
	return handle
}

func (h *Heap) alloc(tag Tag) (Handle, *Block) {
	h.initIfNeeded()
	handle := h.next
	h.next++
	allocID := h.nextAllocID
	h.nextAllocID++
	b := &Block{
		Tag:     tag,
		Alive:   true,
		AllocID: allocID,
	}
	h.objs[handle] = b
	h.counters.allocCount++
	return handle, b
}

// Get resolves a handle, panicking on invalid or freed handles.
func (h *Heap) Get(handle Handle) *Block {
	h.initIfNeeded()
	if handle == 0 {
		h.panic(PanicInvalidHandle, "invalid handle 0")
	}
	b, ok := h.objs[handle]
	if !ok || b == nil {
		h.panic(PanicInvalidHandle, fmt.Sprintf("invalid handle %d", handle))
	}
	if !b.Alive {
		h.panic(PanicUseAfterFree, fmt.Sprintf("use after free: handle %d (alloc=%d)", handle, b.AllocID))
	}
	return b
}

// Free releases the block's storage only. Remaining owned children are
// not touched: callers must have moved them out or released them first.
// The driver's indirection-follow path relies on this when it adopts
// field 0 and frees the husk.
func (h *Heap) Free(handle Handle) {
	h.initIfNeeded()
	if handle == 0 {
		h.panic(PanicInvalidHandle, "invalid handle 0")
	}
	b, ok := h.objs[handle]
	if !ok || b == nil {
		h.panic(PanicInvalidHandle, fmt.Sprintf("invalid handle %d", handle))
	}
	if !b.Alive {
		h.panic(PanicDoubleFree, fmt.Sprintf("double free: handle %d (alloc=%d)", handle, b.AllocID))
	}
	b.Alive = false
	b.Tag = TagInvalid
	b.Fields = nil
	b.ScanSize = 0
	h.counters.freeCount++
	if h.tracer != nil {
		h.tracer.TraceHeapFree(handle)
	}
}

// Dup registers one more owner of the block.
func (h *Heap) Dup(handle Handle) {
	b := h.Get(handle)
	b.rc++
	h.counters.rcIncrCount++
	if h.tracer != nil {
		h.tracer.TraceRC(handle, "dup", b.RefCount())
	}
}

// Decref removes one owner without freeing. The block must have at least
// one other live owner; decrementing a unique block is a refcount bug.
func (h *Heap) Decref(handle Handle) {
	b := h.Get(handle)
	if b.RefCount() == 0 {
		h.panic(PanicRCUnderflow, fmt.Sprintf("refcount underflow: handle %d", handle))
	}
	b.rc--
	h.counters.rcDecrCount++
	if h.tracer != nil {
		h.tracer.TraceRC(handle, "decref", b.RefCount())
	}
}

// Release drops one reference to the block. When the holder was the last
// owner the block's owned children are released and its storage freed.
// Uses an explicit worklist so deep child chains cannot grow the native
// stack.
func (h *Heap) Release(handle Handle) {
	work := []Handle{handle}
	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]
		b := h.Get(cur)
		if b.RefCount() > 0 {
			b.rc--
			h.counters.rcDecrCount++
			if h.tracer != nil {
				h.tracer.TraceRC(cur, "release", b.RefCount())
			}
			continue
		}
		for i := uint32(0); i < b.ScanSize; i++ {
			child := b.Fields[i]
			if child.IsBlock() && child.H != 0 {
				work = append(work, child.H)
			}
		}
		h.Free(cur)
	}
}

// DupValue dups v if it references a block; scalars are unboxed and need
// no counting.
func (h *Heap) DupValue(v Value) {
	if v.IsBlock() && v.H != 0 {
		h.Dup(v.H)
	}
}

// ReleaseValue releases v if it references a block.
func (h *Heap) ReleaseValue(v Value) {
	if v.IsBlock() && v.H != 0 {
		h.Release(v.H)
	}
}

// MarkThreadShared sets the shared sentinel bit. The surrounding runtime
// calls this when a block becomes reachable from more than one thread.
func (h *Heap) MarkThreadShared(handle Handle) {
	b := h.Get(handle)
	b.rc |= rcSharedBit
}

// Walk visits every live block in handle order.
func (h *Heap) Walk(visit func(Handle, *Block)) {
	h.initIfNeeded()
	for handle := Handle(1); handle < h.next; handle++ {
		b, ok := h.lookup(handle)
		if !ok || !b.Alive {
			continue
		}
		visit(handle, b)
	}
}

func (h *Heap) lookup(handle Handle) (*Block, bool) {
	if h == nil {
		return nil, false
	}
	h.initIfNeeded()
	b, ok := h.objs[handle]
	return b, ok && b != nil
}

func (h *Heap) panic(code PanicCode, msg string) {
	panic(&RTError{Code: code, Message: msg})
}
