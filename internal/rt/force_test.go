package rt

import (
	"testing"
)

func TestTryForceNonLazyDropsEvaluator(t *testing.T) {
	ctx := NewContext()
	dropped := 0
	eval := NewDynamicEvaluator(func(ctx *Context, v Value) Value {
		t.Fatal("evaluator must not run")
		return Value{}
	}, func() { dropped++ })

	res := TryForce(ctx, MakeInt(3), eval)
	mustInt(t, res, 3)
	if dropped != 1 {
		t.Fatalf("expected evaluator dropped once, got %d", dropped)
	}

	// Non-lazy blocks short-circuit too.
	con := ctx.Heap.Alloc(tagJust, []Value{MakeInt(1)})
	eval2 := NewStaticEvaluator(func(ctx *Context, v Value) Value {
		t.Fatal("evaluator must not run")
		return Value{}
	})
	res2 := TryForce(ctx, MakeBlock(con), eval2)
	if !res2.IsBlock() || res2.H != con {
		t.Fatalf("expected handle unchanged, got %s", res2)
	}
	ctx.Heap.Release(con)
	ctx.Heap.CheckLeaksOrPanic()
}

func TestForceIdempotent(t *testing.T) {
	ctx := NewContext()
	calls := 0
	eval := fieldEval(&calls)

	inner := ctx.Heap.Alloc(tagThunk, []Value{MakeInt(42)})
	outer := ctx.Heap.Alloc(tagThunk, []Value{MakeBlock(inner)})

	v1 := Force(ctx, MakeBlock(outer), eval)
	mustInt(t, v1, 42)
	v2 := TryForce(ctx, v1, fieldEval(&calls))
	mustInt(t, v2, 42)
	if calls != 2 {
		t.Fatalf("re-forcing a forced value must not evaluate: %d calls", calls)
	}
	ctx.Heap.CheckLeaksOrPanic()
}

func TestForceAtMostOncePerSharedBlock(t *testing.T) {
	ctx := NewContext()
	calls := 0
	eval := NewStaticEvaluator(func(ctx *Context, v Value) Value {
		calls++
		return MakeIndirect(ctx, v, MakeInt(11))
	})

	th := ctx.Heap.Alloc(tagThunk, nil)
	ctx.Heap.Dup(th)
	ctx.Heap.Dup(th) // three aliases total

	for i := 0; i < 3; i++ {
		res := Force(ctx, MakeBlock(th), eval)
		mustInt(t, res, 11)
	}
	if calls != 1 {
		t.Fatalf("expected at-most-once evaluation, got %d calls", calls)
	}
	ctx.Heap.CheckLeaksOrPanic()
}

func TestForceLazyResultKeepsIterating(t *testing.T) {
	ctx := NewContext()
	calls := 0
	// The outer evaluator returns a fresh, still-lazy thunk; the driver
	// must keep iterating without recursing.
	var eval *Evaluator
	eval = NewStaticEvaluator(func(ctx *Context, v Value) Value {
		calls++
		b := ctx.Heap.Get(v.H)
		if b.ScanSize == 1 {
			res := b.TakeField(0)
			return MakeIndirect(ctx, v, res)
		}
		u := ctx.Heap.Alloc(tagThunk, []Value{MakeInt(63)})
		return MakeIndirect(ctx, v, MakeBlock(u))
	})

	th := ctx.Heap.Alloc(tagThunk, nil)
	ctx.Heap.Dup(th)

	res := Force(ctx, MakeBlock(th), eval)
	mustInt(t, res, 63)
	if calls != 2 {
		t.Fatalf("expected 2 evaluator calls, got %d", calls)
	}

	// The alias resolves through the indirection chain to the same value.
	res2 := Force(ctx, MakeBlock(th), eval)
	mustInt(t, res2, 63)
	if calls != 2 {
		t.Fatalf("alias force re-evaluated: %d calls", calls)
	}
	ctx.Heap.CheckLeaksOrPanic()
}

func TestForceLongUniqueChainIterative(t *testing.T) {
	ctx := NewContext()
	calls := 0
	eval := fieldEval(&calls)

	const depth = 100000
	next := ctx.Heap.Alloc(tagThunk, []Value{MakeInt(1)})
	for i := 1; i < depth; i++ {
		next = ctx.Heap.Alloc(tagThunk, []Value{MakeBlock(next)})
	}

	res := Force(ctx, MakeBlock(next), eval)
	mustInt(t, res, 1)
	if calls != depth {
		t.Fatalf("expected %d evaluator calls, got %d", depth, calls)
	}
	ctx.Heap.CheckLeaksOrPanic()
}

func TestForceDynamicEvaluatorBalanced(t *testing.T) {
	ctx := NewContext()
	dropped := 0
	calls := 0
	eval := NewDynamicEvaluator(func(ctx *Context, v Value) Value {
		calls++
		res := ctx.Heap.Get(v.H).TakeField(0)
		return MakeIndirect(ctx, v, res)
	}, func() { dropped++ })

	t1 := ctx.Heap.Alloc(tagThunk, []Value{MakeInt(9)})
	t0 := ctx.Heap.Alloc(tagThunk, []Value{MakeBlock(t1)})

	res := Force(ctx, MakeBlock(t0), eval)
	mustInt(t, res, 9)
	if calls != 2 {
		t.Fatalf("expected 2 evaluator calls, got %d", calls)
	}
	if dropped != 1 {
		t.Fatalf("expected last evaluator reference consumed exactly once, got %d", dropped)
	}
	ctx.Heap.CheckLeaksOrPanic()
}

func TestForcePreconditionViolated(t *testing.T) {
	ctx := NewContext()
	eval := NewStaticEvaluator(func(ctx *Context, v Value) Value { return v })
	expectPanicCode(t, PanicForceNonLazy, func() {
		Force(ctx, MakeInt(1), eval)
	})
}

func TestMakeIndirectAliasedTarget(t *testing.T) {
	ctx := NewContext()
	child := ctx.Heap.Alloc(tagJust, nil)
	target := ctx.Heap.Alloc(tagThunk, []Value{MakeBlock(child)})
	ctx.Heap.Dup(target)

	res := MakeIndirect(ctx, MakeBlock(target), MakeInt(4))
	if !res.IsBlock() || res.H != target {
		t.Fatalf("expected the aliased cell back, got %s", res)
	}
	b := ctx.Heap.Get(target)
	if !b.IsIndirection() || b.ScanSize != 1 {
		t.Fatalf("expected indirection with scan 1, got %s scan=%d", b.Tag, b.ScanSize)
	}
	mustInt(t, b.Field(0), 4)

	ctx.Heap.Release(target)
	ctx.Heap.Release(target)
	ctx.Heap.CheckLeaksOrPanic()
}

func TestIsLazyFamily(t *testing.T) {
	ctx := NewContext()
	cases := []struct {
		tag  Tag
		lazy bool
	}{
		{tagJust, false},
		{tagThunk, true},
		{TagLazyEval, true},
		{TagLazyIndirect, true},
		{TagLazyPrep, true},
	}
	for _, tc := range cases {
		h := ctx.Heap.Alloc(tc.tag, nil)
		if got := IsLazy(ctx, MakeBlock(h)); got != tc.lazy {
			t.Fatalf("IsLazy(%s) = %v, want %v", tc.tag, got, tc.lazy)
		}
		ctx.Heap.Release(h)
	}
	if IsLazy(ctx, MakeInt(0)) {
		t.Fatal("scalars are never lazy")
	}
}
