package stress

import (
	"fmt"

	"frost/internal/rt"
)

const (
	tagLeaf  = rt.TagLazyConFirst
	tagNode  = rt.TagLazyConFirst + 1
	tagOther = rt.TagLazyConFirst + 2
)

// Scenario is one executable lazy program: build thunks, force them,
// verify the observable outcome, release every handle. The runner audits
// the heap afterwards.
type Scenario struct {
	Name string
	Desc string
	Run  func(ctx *rt.Context) error
}

// Scenarios returns the scenario library in stable order.
func Scenarios() []Scenario {
	return []Scenario{
		{Name: "chain", Desc: "unique thunk chain consumed in place", Run: runChain},
		{Name: "shared", Desc: "aliased thunk evaluated at most once", Run: runShared},
		{Name: "dag", Desc: "shared subterm across a lazy tree fold", Run: runDAG},
		{Name: "ind-chain", Desc: "indirection chain collapsed by the driver", Run: runIndChain},
		{Name: "cycle-self", Desc: "self-referential thunk surfaces a black hole", Run: runCycleSelf},
		{Name: "cycle-mutual", Desc: "mutually recursive thunks", Run: runCycleMutual},
	}
}

// ByName resolves one scenario.
func ByName(name string) (Scenario, bool) {
	for _, sc := range Scenarios() {
		if sc.Name == name {
			return sc, true
		}
	}
	return Scenario{}, false
}

// Names lists the scenario names in stable order.
func Names() []string {
	all := Scenarios()
	names := make([]string, 0, len(all))
	for _, sc := range all {
		names = append(names, sc.Name)
	}
	return names
}

// takeFieldEval is the generated-evaluator shape for single-field thunks.
func takeFieldEval(calls *int) *rt.Evaluator {
	return rt.NewStaticEvaluator(func(ctx *rt.Context, v rt.Value) rt.Value {
		*calls++
		res := ctx.Heap.Get(v.H).TakeField(0)
		return rt.MakeIndirect(ctx, v, res)
	})
}

func runChain(ctx *rt.Context) error {
	const depth = 64
	calls := 0
	eval := takeFieldEval(&calls)

	next := ctx.Heap.Alloc(tagLeaf, []rt.Value{rt.MakeInt(42)})
	for i := 1; i < depth; i++ {
		next = ctx.Heap.Alloc(tagLeaf, []rt.Value{rt.MakeBlock(next)})
	}

	res := rt.Force(ctx, rt.MakeBlock(next), eval)
	if res.Kind != rt.VKInt || res.Int != 42 {
		return fmt.Errorf("chain: expected 42, got %s", res)
	}
	if calls != depth {
		return fmt.Errorf("chain: expected %d evaluator calls, got %d", depth, calls)
	}
	return nil
}

func runShared(ctx *rt.Context) error {
	calls := 0
	eval := rt.NewStaticEvaluator(func(ctx *rt.Context, v rt.Value) rt.Value {
		calls++
		return rt.MakeIndirect(ctx, v, rt.MakeInt(7))
	})

	th := ctx.Heap.Alloc(tagLeaf, nil)
	ctx.Heap.Dup(th)
	ctx.Heap.Dup(th)

	for i := 0; i < 3; i++ {
		res := rt.Force(ctx, rt.MakeBlock(th), eval)
		if res.Kind != rt.VKInt || res.Int != 7 {
			return fmt.Errorf("shared: expected 7 on force %d, got %s", i, res)
		}
	}
	if calls != 1 {
		return fmt.Errorf("shared: expected at-most-once evaluation, got %d calls", calls)
	}
	return nil
}

func runDAG(ctx *rt.Context) error {
	calls := 0
	sharedCalls := 0
	shared := ctx.Heap.Alloc(tagOther, []rt.Value{rt.MakeInt(5)})
	ctx.Heap.Dup(shared)

	var eval *rt.Evaluator
	eval = rt.NewStaticEvaluator(func(ctx *rt.Context, v rt.Value) rt.Value {
		calls++
		b := ctx.Heap.Get(v.H)
		if b.Tag == tagOther {
			sharedCalls++
		}
		if b.ScanSize == 2 {
			lv := rt.Force(ctx, b.TakeField(0), eval)
			rv := rt.Force(ctx, b.TakeField(1), eval)
			return rt.MakeIndirect(ctx, v, rt.MakeInt(lv.Int+rv.Int))
		}
		return rt.MakeIndirect(ctx, v, b.TakeField(0))
	})

	n1 := ctx.Heap.Alloc(tagNode, []rt.Value{rt.MakeBlock(shared), rt.MakeBlock(ctx.Heap.Alloc(tagLeaf, []rt.Value{rt.MakeInt(1)}))})
	n2 := ctx.Heap.Alloc(tagNode, []rt.Value{rt.MakeBlock(shared), rt.MakeBlock(ctx.Heap.Alloc(tagLeaf, []rt.Value{rt.MakeInt(2)}))})
	root := ctx.Heap.Alloc(tagNode, []rt.Value{rt.MakeBlock(n1), rt.MakeBlock(n2)})

	res := rt.Force(ctx, rt.MakeBlock(root), eval)
	if res.Kind != rt.VKInt || res.Int != 13 {
		return fmt.Errorf("dag: expected 13, got %s", res)
	}
	if sharedCalls != 1 {
		return fmt.Errorf("dag: shared subterm evaluated %d times", sharedCalls)
	}
	if calls != 6 {
		return fmt.Errorf("dag: expected 6 evaluator calls, got %d", calls)
	}
	return nil
}

func runIndChain(ctx *rt.Context) error {
	eval := rt.NewStaticEvaluator(func(ctx *rt.Context, v rt.Value) rt.Value {
		return rt.Value{}
	})

	i2 := ctx.Heap.Alloc(rt.TagLazyIndirect, []rt.Value{rt.MakeInt(99)})
	i1 := ctx.Heap.Alloc(rt.TagLazyIndirect, []rt.Value{rt.MakeBlock(i2)})
	i0 := ctx.Heap.Alloc(rt.TagLazyIndirect, []rt.Value{rt.MakeBlock(i1)})

	res := rt.Force(ctx, rt.MakeBlock(i0), eval)
	if res.Kind != rt.VKInt || res.Int != 99 {
		return fmt.Errorf("ind-chain: expected 99, got %s", res)
	}
	if ctx.Heap.EvalCalls() != 0 {
		return fmt.Errorf("ind-chain: evaluator ran %d times on pure indirections", ctx.Heap.EvalCalls())
	}
	return nil
}

func runCycleSelf(ctx *rt.Context) error {
	calls := 0
	th := ctx.Heap.Alloc(tagLeaf, nil)
	ctx.Heap.Dup(th)
	self := rt.MakeBlock(th)

	var eval *rt.Evaluator
	eval = rt.NewStaticEvaluator(func(ctx *rt.Context, v rt.Value) rt.Value {
		calls++
		ctx.Heap.ReleaseValue(v)
		ctx.Heap.DupValue(self)
		return rt.Force(ctx, self, eval)
	})

	res := rt.Force(ctx, rt.MakeBlock(th), eval)
	if !res.IsBlock() || res.H != th {
		return fmt.Errorf("cycle-self: expected the black hole back, got %s", res)
	}
	if got := ctx.Heap.Get(th).Tag; got != rt.TagLazyEval {
		return fmt.Errorf("cycle-self: expected %s, got %s", rt.TagLazyEval, got)
	}
	if calls != 1 {
		return fmt.Errorf("cycle-self: expected 1 evaluator call, got %d", calls)
	}
	if err := expectMatchFailure(ctx, res); err != nil {
		return fmt.Errorf("cycle-self: %w", err)
	}

	ctx.Heap.ReleaseValue(res)
	ctx.Heap.ReleaseValue(self)
	return nil
}

func runCycleMutual(ctx *rt.Context) error {
	calls := 0
	a := ctx.Heap.Alloc(tagLeaf, nil)
	b := ctx.Heap.Alloc(tagOther, nil)
	ctx.Heap.Dup(a)
	ctx.Heap.Dup(b)
	refA := rt.MakeBlock(a)
	refB := rt.MakeBlock(b)
	bKeep := rt.MakeBlock(b)

	var eval *rt.Evaluator
	eval = rt.NewStaticEvaluator(func(ctx *rt.Context, v rt.Value) rt.Value {
		calls++
		target := refB
		if ctx.Heap.Get(v.H).Tag == tagOther {
			target = refA
		}
		ctx.Heap.ReleaseValue(v)
		ctx.Heap.DupValue(target)
		return rt.Force(ctx, target, eval)
	})

	res := rt.Force(ctx, rt.MakeBlock(a), eval)
	if !res.IsBlock() || res.H != a {
		return fmt.Errorf("cycle-mutual: expected black-holed a back, got %s", res)
	}
	if got := ctx.Heap.Get(a).Tag; got != rt.TagLazyEval {
		return fmt.Errorf("cycle-mutual: expected a black-holed, got %s", got)
	}
	bb := ctx.Heap.Get(b)
	if !bb.IsIndirection() {
		return fmt.Errorf("cycle-mutual: expected b forced to an indirection, got %s", bb.Tag)
	}
	if f := bb.Field(0); !f.IsBlock() || f.H != a {
		return fmt.Errorf("cycle-mutual: expected b to point at the black hole, got %s", f)
	}
	if calls != 2 {
		return fmt.Errorf("cycle-mutual: expected 2 evaluator calls, got %d", calls)
	}

	ctx.Heap.ReleaseValue(res)
	ctx.Heap.ReleaseValue(refA)
	ctx.Heap.ReleaseValue(bKeep)
	ctx.Heap.ReleaseValue(refB)
	return nil
}

// expectMatchFailure asserts that pattern-matching a black-holed value
// raises the match-failure panic.
func expectMatchFailure(ctx *rt.Context, v rt.Value) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			err = fmt.Errorf("expected pattern-match failure on black hole")
			return
		}
		rtErr, ok := r.(*rt.RTError)
		if !ok || rtErr.Code != rt.PanicMatchFailed {
			err = fmt.Errorf("unexpected panic: %v", r)
		}
	}()
	rt.MatchCon(ctx, v, rt.TagConFirst)
	return nil
}
