package rt

// EvalFunc converts a still-lazy block into its head-normal form. The
// cell arrives borrowed but the closure consumes it: it must move the
// fields out and either reuse the cell via MakeIndirect or release it.
// It must not retain the handle, and it must not read the cell's tag (the
// driver may have rewritten it to a black hole by the time user code sees
// aliases of the block).
type EvalFunc func(ctx *Context, v Value) Value

// Evaluator is the compiler-generated closure for one lazy datatype,
// modeled as an opaque handle with dup/drop/call. Statically-allocated
// evaluators (the common case) elide all reference counting.
type Evaluator struct {
	fn     EvalFunc
	static bool
	rc     uint32
	onDrop func()
}

// NewStaticEvaluator wraps fn as a statically-allocated evaluator:
// dup/drop are no-ops.
func NewStaticEvaluator(fn EvalFunc) *Evaluator {
	return &Evaluator{fn: fn, static: true}
}

// NewDynamicEvaluator wraps fn as a dynamically-allocated evaluator with
// one live reference. onDrop, if non-nil, runs when the last reference is
// consumed.
func NewDynamicEvaluator(fn EvalFunc, onDrop func()) *Evaluator {
	return &Evaluator{fn: fn, rc: 1, onDrop: onDrop}
}

// Dup registers one more reference. A strategy dups before calling so the
// closure survives the call.
func (e *Evaluator) Dup() {
	if e == nil || e.static {
		return
	}
	e.rc++
}

// Drop removes one reference.
func (e *Evaluator) Drop() {
	if e == nil || e.static {
		return
	}
	if e.rc == 0 {
		panic(&RTError{Code: PanicRCUnderflow, Message: "evaluator refcount underflow"})
	}
	e.rc--
	if e.rc == 0 && e.onDrop != nil {
		e.onDrop()
	}
}

// StaticDup is the entry-point dup: a no-op for static evaluators.
func (e *Evaluator) StaticDup() {
	e.Dup()
}

// StaticDrop balances the reference the driver holds across its loop.
func (e *Evaluator) StaticDrop() {
	e.Drop()
}

// Call invokes the closure on v and consumes one reference.
func (e *Evaluator) Call(ctx *Context, v Value) Value {
	res := e.fn(ctx, v)
	ctx.Heap.counters.evalCallCount++
	e.Drop()
	return res
}
