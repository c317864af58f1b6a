package rt

import (
	"strings"
	"testing"
)

const (
	tagJust   = TagConFirst
	tagThunk  = TagLazyConFirst
	tagThunk2 = TagLazyConFirst + 1
)

func mustInt(t *testing.T, v Value, want int64) {
	t.Helper()
	if v.Kind != VKInt || v.Int != want {
		t.Fatalf("expected int %d, got %s", want, v)
	}
}

func expectPanicCode(t *testing.T, code PanicCode, fn func()) *RTError {
	t.Helper()
	var got *RTError
	func() {
		defer func() {
			r := recover()
			if r == nil {
				t.Fatalf("expected panic %v, got none", code)
			}
			err, ok := r.(*RTError)
			if !ok {
				t.Fatalf("unexpected panic type: %T", r)
			}
			if err.Code != code {
				t.Fatalf("expected %v, got %v (%s)", code, err.Code, err.Message)
			}
			got = err
		}()
		fn()
	}()
	return got
}

// fieldEval is the shape of a generated evaluator for a single-field
// thunk: move the field out and retire the cell.
func fieldEval(calls *int) *Evaluator {
	return NewStaticEvaluator(func(ctx *Context, v Value) Value {
		*calls++
		res := ctx.Heap.Get(v.H).TakeField(0)
		return MakeIndirect(ctx, v, res)
	})
}

func TestForceUniqueChain(t *testing.T) {
	ctx := NewContext()
	calls := 0
	eval := fieldEval(&calls)

	t2 := ctx.Heap.Alloc(tagThunk, []Value{MakeInt(42)})
	t1 := ctx.Heap.Alloc(tagThunk, []Value{MakeBlock(t2)})
	t0 := ctx.Heap.Alloc(tagThunk, []Value{MakeBlock(t1)})

	res := Force(ctx, MakeBlock(t0), eval)
	mustInt(t, res, 42)
	if calls != 3 {
		t.Fatalf("expected 3 evaluator calls, got %d", calls)
	}
	// Unique thunks are consumed in place: nothing survives, no
	// indirections remain.
	ctx.Heap.CheckLeaksOrPanic()
}

func TestForceSharedThunkEvaluatesOnce(t *testing.T) {
	ctx := NewContext()
	calls := 0
	eval := NewStaticEvaluator(func(ctx *Context, v Value) Value {
		calls++
		return MakeIndirect(ctx, v, MakeInt(7))
	})

	th := ctx.Heap.Alloc(tagThunk, nil)
	ctx.Heap.Dup(th) // second alias survives the first force

	res := Force(ctx, MakeBlock(th), eval)
	mustInt(t, res, 7)
	if calls != 1 {
		t.Fatalf("expected 1 evaluator call, got %d", calls)
	}

	b := ctx.Heap.Get(th)
	if !b.IsIndirection() {
		t.Fatalf("expected indirection after shared force, got %s", b.Tag)
	}
	mustInt(t, b.Field(0), 7)

	// The surviving alias resolves through the indirection without
	// re-invoking the evaluator.
	res2 := Force(ctx, MakeBlock(th), eval)
	mustInt(t, res2, 7)
	if calls != 1 {
		t.Fatalf("evaluator re-invoked through indirection: %d calls", calls)
	}
	ctx.Heap.CheckLeaksOrPanic()
}

func TestForceSelfCycleReturnsBlackhole(t *testing.T) {
	ctx := NewContext()
	calls := 0

	th := ctx.Heap.Alloc(tagThunk, nil)
	ctx.Heap.Dup(th) // the evaluator's captured alias
	self := MakeBlock(th)

	var eval *Evaluator
	eval = NewStaticEvaluator(func(ctx *Context, v Value) Value {
		calls++
		ctx.Heap.ReleaseValue(v)
		ctx.Heap.DupValue(self)
		return Force(ctx, self, eval)
	})

	res := Force(ctx, MakeBlock(th), eval)
	if !res.IsBlock() || res.H != th {
		t.Fatalf("expected the black-holed block back, got %s", res)
	}
	if got := ctx.Heap.Get(th).Tag; got != TagLazyEval {
		t.Fatalf("expected %s, got %s", TagLazyEval, got)
	}
	if calls != 1 {
		t.Fatalf("expected 1 evaluator call, got %d", calls)
	}

	// Downstream pattern matching surfaces the cycle.
	err := expectPanicCode(t, PanicMatchFailed, func() {
		MatchCon(ctx, res, tagJust)
	})
	if !strings.Contains(err.Message, "depends on itself") {
		t.Fatalf("unexpected message: %q", err.Message)
	}

	ctx.Heap.ReleaseValue(res)
	ctx.Heap.ReleaseValue(self)
	ctx.Heap.CheckLeaksOrPanic()
}

func TestForceMutualCycle(t *testing.T) {
	ctx := NewContext()
	calls := 0

	a := ctx.Heap.Alloc(tagThunk, nil)
	b := ctx.Heap.Alloc(tagThunk2, nil)
	ctx.Heap.Dup(a)
	ctx.Heap.Dup(b)
	refA := MakeBlock(a) // captured by b's evaluator
	refB := MakeBlock(b) // captured by a's evaluator
	bKeep := MakeBlock(b)

	var eval *Evaluator
	eval = NewStaticEvaluator(func(ctx *Context, v Value) Value {
		calls++
		target := refB
		if ctx.Heap.Get(v.H).Tag == tagThunk2 {
			target = refA
		}
		ctx.Heap.ReleaseValue(v)
		ctx.Heap.DupValue(target)
		return Force(ctx, target, eval)
	})

	res := Force(ctx, MakeBlock(a), eval)
	if !res.IsBlock() || res.H != a {
		t.Fatalf("expected black-holed a back, got %s", res)
	}
	if calls != 2 {
		t.Fatalf("expected 2 evaluator calls, got %d", calls)
	}

	// Exactly one of the pair stays black-holed; the other resolved to
	// an indirection pointing at the black hole.
	ba := ctx.Heap.Get(a)
	bb := ctx.Heap.Get(b)
	if ba.Tag != TagLazyEval {
		t.Fatalf("expected a black-holed, got %s", ba.Tag)
	}
	if !bb.IsIndirection() {
		t.Fatalf("expected b forced to an indirection, got %s", bb.Tag)
	}
	if f := bb.Field(0); !f.IsBlock() || f.H != a {
		t.Fatalf("expected b to point at the black hole, got %s", f)
	}

	ctx.Heap.ReleaseValue(res)
	ctx.Heap.ReleaseValue(refA)
	ctx.Heap.ReleaseValue(bKeep)
	ctx.Heap.ReleaseValue(refB)
	ctx.Heap.CheckLeaksOrPanic()
}

func TestForceIndirectionChainFreesUnique(t *testing.T) {
	ctx := NewContext()
	eval := NewStaticEvaluator(func(ctx *Context, v Value) Value {
		t.Fatal("evaluator must not run on a pure indirection chain")
		return Value{}
	})

	i2 := ctx.Heap.Alloc(TagLazyIndirect, []Value{MakeInt(99)})
	i1 := ctx.Heap.Alloc(TagLazyIndirect, []Value{MakeBlock(i2)})
	i0 := ctx.Heap.Alloc(TagLazyIndirect, []Value{MakeBlock(i1)})

	res := Force(ctx, MakeBlock(i0), eval)
	mustInt(t, res, 99)
	ctx.Heap.CheckLeaksOrPanic()
}

func TestForceIndirectionChainKeepsAliased(t *testing.T) {
	ctx := NewContext()
	eval := NewStaticEvaluator(func(ctx *Context, v Value) Value {
		t.Fatal("evaluator must not run on a pure indirection chain")
		return Value{}
	})

	i2 := ctx.Heap.Alloc(TagLazyIndirect, []Value{MakeInt(99)})
	i1 := ctx.Heap.Alloc(TagLazyIndirect, []Value{MakeBlock(i2)})
	i0 := ctx.Heap.Alloc(TagLazyIndirect, []Value{MakeBlock(i1)})
	ctx.Heap.Dup(i0)
	ctx.Heap.Dup(i1)

	res := Force(ctx, MakeBlock(i0), eval)
	mustInt(t, res, 99)

	// Aliased indirections survive with one reference fewer.
	if rc := ctx.Heap.Get(i0).RefCount(); rc != 0 {
		t.Fatalf("expected i0 rc=0 after force, got %d", rc)
	}
	if rc := ctx.Heap.Get(i1).RefCount(); rc != 0 {
		t.Fatalf("expected i1 rc=0 after force, got %d", rc)
	}

	ctx.Heap.Release(i0)
	ctx.Heap.CheckLeaksOrPanic()
}

func TestForceYieldRejectedLocal(t *testing.T) {
	ctx := NewContext()
	fatalCalls := 0
	ctx.SetFatalHook(func(err *RTError) {
		fatalCalls++
		panic(err)
	})
	eval := NewStaticEvaluator(func(ctx *Context, v Value) Value {
		ctx.Heap.ReleaseValue(v)
		ctx.SetYielding(true)
		return MakeUnit()
	})

	th := ctx.Heap.Alloc(tagThunk, nil)
	ctx.Heap.Dup(th)

	err := expectPanicCode(t, PanicNotSupported, func() {
		Force(ctx, MakeBlock(th), eval)
	})
	if !strings.Contains(err.Message, "yielding from inside a lazy constructor") {
		t.Fatalf("unexpected message: %q", err.Message)
	}
	if fatalCalls != 1 {
		t.Fatalf("expected exactly one fatal, got %d", fatalCalls)
	}
}

func TestForceYieldRejectedUnique(t *testing.T) {
	ctx := NewContext()
	fatalCalls := 0
	ctx.SetFatalHook(func(err *RTError) {
		fatalCalls++
		panic(err)
	})
	eval := NewStaticEvaluator(func(ctx *Context, v Value) Value {
		ctx.Heap.ReleaseValue(v)
		ctx.SetYielding(true)
		return MakeUnit()
	})

	th := ctx.Heap.Alloc(tagThunk, nil)
	expectPanicCode(t, PanicNotSupported, func() {
		Force(ctx, MakeBlock(th), eval)
	})
	if fatalCalls != 1 {
		t.Fatalf("expected exactly one fatal, got %d", fatalCalls)
	}
}

func TestForceThreadSharedRoutesToLocal(t *testing.T) {
	ctx := NewContext()
	calls := 0
	eval := NewStaticEvaluator(func(ctx *Context, v Value) Value {
		calls++
		return MakeIndirect(ctx, v, MakeInt(5))
	})

	th := ctx.Heap.Alloc(tagThunk, nil)
	ctx.Heap.Dup(th)
	ctx.Heap.MarkThreadShared(th)

	res := Force(ctx, MakeBlock(th), eval)
	mustInt(t, res, 5)
	if calls != 1 {
		t.Fatalf("expected 1 evaluator call, got %d", calls)
	}
	b := ctx.Heap.Get(th)
	if !b.IsIndirection() {
		t.Fatalf("expected indirection, got %s", b.Tag)
	}
	if !b.IsThreadShared() {
		t.Fatal("shared sentinel must survive the force")
	}
	ctx.Heap.Release(th)
	ctx.Heap.CheckLeaksOrPanic()
}
