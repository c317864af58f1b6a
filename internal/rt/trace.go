package rt

import (
	"fmt"
	"io"
)

// Tracer outputs heap and force events for debugging. All methods are
// nil-safe so call sites never guard.
type Tracer struct {
	w io.Writer

	heap  bool
	force bool
}

// NewTracer creates a tracer that writes to w with both event families
// enabled.
func NewTracer(w io.Writer) *Tracer {
	return &Tracer{w: w, heap: true, force: true}
}

// SetHeapEvents toggles [heap] and [rc] lines.
func (t *Tracer) SetHeapEvents(on bool) {
	if t != nil {
		t.heap = on
	}
}

// SetForceEvents toggles [force] lines.
func (t *Tracer) SetForceEvents(on bool) {
	if t != nil {
		t.force = on
	}
}

func (t *Tracer) TraceHeapAlloc(h Handle, b *Block) {
	if t == nil || t.w == nil || !t.heap {
		return
	}
	fmt.Fprintf(t.w, "[heap] alloc %s#%d scan=%d\n", b.Tag, h, b.ScanSize)
}

func (t *Tracer) TraceHeapCopy(src, dst Handle, b *Block) {
	if t == nil || t.w == nil || !t.heap {
		return
	}
	fmt.Fprintf(t.w, "[heap] copy %s#%d -> #%d\n", b.Tag, src, dst)
}

func (t *Tracer) TraceHeapFree(h Handle) {
	if t == nil || t.w == nil || !t.heap {
		return
	}
	fmt.Fprintf(t.w, "[heap] free handle#%d\n", h)
}

func (t *Tracer) TraceRC(h Handle, op string, rc uint32) {
	if t == nil || t.w == nil || !t.heap {
		return
	}
	fmt.Fprintf(t.w, "[rc] %s handle#%d rc=%d\n", op, h, rc)
}

// TraceForce traces one force-driver event. Format:
// [force] <event> <tag>#<handle>
func (t *Tracer) TraceForce(event string, h Handle, tag Tag) {
	if t == nil || t.w == nil || !t.force {
		return
	}
	fmt.Fprintf(t.w, "[force] %s %s#%d\n", event, tag, h)
}

// TraceForceDone traces the driver returning a non-lazy head.
func (t *Tracer) TraceForceDone(v Value) {
	if t == nil || t.w == nil || !t.force {
		return
	}
	fmt.Fprintf(t.w, "[force] done %s\n", v)
}
