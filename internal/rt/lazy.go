package rt

import "fmt"

// Ownership classes for a lazy block at force time, derived from the
// refcount word with plain loads.
type Ownership uint8

const (
	// OwnUnique: refcount zero, the forcer holds the only reference.
	OwnUnique Ownership = iota
	// OwnLocal: aliases exist, all within the current thread.
	OwnLocal
	// OwnThreadShared: the shared sentinel bit is set.
	OwnThreadShared
)

// String returns a human-readable name for the ownership class.
func (o Ownership) String() string {
	switch o {
	case OwnUnique:
		return "unique"
	case OwnLocal:
		return "local"
	case OwnThreadShared:
		return "thread-shared"
	default:
		return fmt.Sprintf("Ownership(%d)", o)
	}
}

func classify(b *Block) Ownership {
	if b.IsUnique() {
		return OwnUnique
	}
	if b.IsThreadShared() {
		return OwnThreadShared
	}
	return OwnLocal
}

// lazyEvalUnique forces a uniquely-owned thunk. No aliasing is possible,
// so no black hole and no indirection: the evaluator consumes the cell
// and its result is returned as-is.
func (ctx *Context) lazyEvalUnique(h Handle, eval *Evaluator) Value {
	b := ctx.Heap.Get(h)
	if b.IsBlackhole() {
		// Unreachable through the public API: a black hole always has
		// at least the in-progress forcer as a second holder.
		panic(ctx.eb.makeError(PanicForceNonLazy, fmt.Sprintf("unique black hole: handle %d", h)))
	}
	eval.Dup()
	return eval.Call(ctx, MakeBlock(h))
}

// lazyEvalLocal forces a thunk with same-thread aliases. The cell is
// copied, the original black-holed for the duration of the call, and
// rewritten to an indirection afterwards so every alias sees the result
// without re-evaluation.
func (ctx *Context) lazyEvalLocal(h Handle, eval *Evaluator) Value {
	b := ctx.Heap.Get(h)
	if b.IsBlackhole() {
		// Re-entrant force on a value already being forced. Return the
		// black hole as-is: the caller's pattern match fails downstream,
		// which is the designed surfacing of lazy cycles.
		ctx.Heap.tracer.TraceForce("blackhole", h, b.Tag)
		return MakeBlock(h)
	}

	// The copy dups every owned child; the original's claims are
	// released right away so the refcount ledger stays balanced once
	// the cell stops scanning them.
	x := ctx.Heap.AllocCopy(h)
	for i := uint32(0); i < b.ScanSize; i++ {
		child := b.Fields[i]
		if child.IsBlock() && child.H != 0 {
			ctx.Heap.Decref(child.H)
		}
	}
	b.Tag = TagLazyEval
	b.ScanSize = 0

	eval.Dup()
	res := eval.Call(ctx, MakeBlock(x))

	if ctx.Yielding() {
		ctx.Fatal(PanicNotSupported, "yielding from inside a lazy constructor is currently not supported")
	}

	if res.IsBlock() && res.H == h {
		// The evaluator's result is the black hole itself: the cycle
		// surfaced through value flow. Installing the indirection would
		// make the cell point at itself, so leave the black hole and
		// fold the two references into one.
		ctx.Heap.Decref(h)
		return res
	}

	// Rewrite the cell into an indirection; res moves into field 0.
	if len(b.Fields) == 0 {
		b.Fields = make([]Value, 1)
	}
	b.Fields[0] = res
	b.ScanSize = 1
	b.Tag = TagLazyIndirect
	ctx.Heap.tracer.TraceForce("indirect", h, b.Tag)
	return MakeBlock(h)
}

// lazyEvalThreadShared forces a thunk reachable from other threads.
//
// The full protocol would CAS the tag to TagLazyPrep while installing an
// intrusive wait-list head in field 0, evaluate a private copy, then CAS
// to TagLazyIndirect and wake blocked contexts. Until that lands this
// delegates to the local strategy; it stays a distinct entry point so the
// routing is already in place.
func (ctx *Context) lazyEvalThreadShared(h Handle, eval *Evaluator) Value {
	return ctx.lazyEvalLocal(h, eval)
}
