package rt

// IsLazy reports whether v is a handle to a block in the lazy family:
// a lazy constructor, black hole, indirection, or the reserved prep tag.
// The handle is borrowed.
func IsLazy(ctx *Context, v Value) bool {
	if !v.IsBlock() || v.H == 0 {
		return false
	}
	return ctx.Heap.Get(v.H).Tag.IsLazyOrReserved()
}

// Force drives a lazy value to weak-head-normal form. The input handle is
// owned, as is the result. Precondition: IsLazy(ctx, next).
//
// The driver is iterative: a chain of indirections or re-forceable
// results never grows the native stack. Recursive forcing triggered
// inside an evaluator is user code and is tolerated; the driver itself
// never calls itself. One reference to the evaluator is consumed.
func Force(ctx *Context, next Value, eval *Evaluator) Value {
	if !IsLazy(ctx, next) {
		panic(ctx.eb.forceNonLazy(next))
	}
	ctx.Heap.counters.forceCount++

	for {
		bh := next.H
		b := ctx.Heap.Get(bh)

		if b.IsIndirection() {
			// Consume the indirection: adopt the result, freeing the
			// husk when we were its last owner.
			res := b.Field(0)
			if b.RefCount() == 0 {
				b.TakeField(0)
				ctx.Heap.Free(bh)
			} else {
				ctx.Heap.DupValue(res)
				ctx.Heap.Decref(bh)
			}
			next = res
		} else {
			own := classify(b)
			ctx.Heap.tracer.TraceForce("dispatch "+own.String(), bh, b.Tag)
			switch own {
			case OwnUnique:
				next = ctx.lazyEvalUnique(bh, eval)
			case OwnThreadShared:
				next = ctx.lazyEvalThreadShared(bh, eval)
			default:
				next = ctx.lazyEvalLocal(bh, eval)
			}
			if ctx.Yielding() {
				ctx.Fatal(PanicNotSupported, "yielding from inside a lazy constructor is currently not supported")
			}
		}

		if !next.IsBlock() {
			break
		}
		nb := ctx.Heap.Get(next.H)
		if next.H == bh && nb.IsBlackhole() {
			// The strategy returned the block we were forcing, still
			// black-holed: a cycle. Hand it back; the caller's pattern
			// match surfaces the error.
			break
		}
		if !nb.Tag.IsLazyOrReserved() {
			break
		}
	}

	eval.StaticDrop()
	ctx.Heap.tracer.TraceForceDone(next)
	return next
}

// TryForce forces v if it is lazy; otherwise it drops the evaluator
// reference and returns v unchanged.
func TryForce(ctx *Context, v Value, eval *Evaluator) Value {
	if IsLazy(ctx, v) {
		return Force(ctx, v, eval)
	}
	eval.StaticDrop()
	return v
}

// MakeIndirect is for evaluators that choose not to reuse their input
// cell: when target is unique its cell is released and value returned
// directly; otherwise the cell is overwritten with an indirection to
// value so surviving aliases observe the result. Ownership of both
// arguments moves in; the returned handle is owned.
func MakeIndirect(ctx *Context, target Value, value Value) Value {
	b := ctx.Heap.Get(target.H)
	if b.RefCount() == 0 {
		ctx.Heap.Release(target.H)
		return value
	}
	for i := uint32(0); i < b.ScanSize; i++ {
		ctx.Heap.ReleaseValue(b.Fields[i])
	}
	if len(b.Fields) == 0 {
		b.Fields = make([]Value, 1)
	}
	b.Fields[0] = value
	b.ScanSize = 1
	b.Tag = TagLazyIndirect
	return target
}
