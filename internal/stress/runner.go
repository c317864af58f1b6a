package stress

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"frost/internal/rt"
	"frost/internal/testkit"
)

// Options controls one stress run.
type Options struct {
	Iterations int
	Workers    int
	LeakCheck  bool
	Sink       ProgressSink
}

// Result summarizes one scenario across all iterations.
type Result struct {
	Scenario   string
	Iterations int
	Elapsed    time.Duration
	Err        error
}

// Run executes every scenario Iterations times, spreading scenarios
// across Workers goroutines. Each iteration gets its own runtime context:
// the core stays single-threaded per heap, the pipeline parallelizes
// across independent heaps. Scenario failures are collected per scenario;
// Run itself fails only on cancellation.
func Run(ctx context.Context, scenarios []Scenario, opts Options) ([]Result, error) {
	if opts.Iterations <= 0 {
		opts.Iterations = 1
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	results := make([]Result, len(scenarios))
	for i, sc := range scenarios {
		results[i] = Result{Scenario: sc.Name}
		emit(opts.Sink, Event{Scenario: sc.Name, Stage: StageForce, Status: StatusQueued})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range scenarios {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := runScenario(scenarios[i], opts)
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func runScenario(sc Scenario, opts Options) Result {
	res := Result{Scenario: sc.Name}
	start := time.Now()
	emit(opts.Sink, Event{Scenario: sc.Name, Stage: StageForce, Status: StatusWorking})

	for i := 0; i < opts.Iterations; i++ {
		if err := runIteration(sc, opts.LeakCheck); err != nil {
			res.Err = fmt.Errorf("iteration %d: %w", i, err)
			break
		}
		res.Iterations++
	}

	res.Elapsed = time.Since(start)
	status := StatusDone
	if res.Err != nil {
		status = StatusError
	}
	emit(opts.Sink, Event{Scenario: sc.Name, Stage: StageAudit, Status: status, Err: res.Err, Elapsed: res.Elapsed})
	return res
}

// runIteration runs one scenario against a fresh context and audits the
// heap behind it. Runtime panics are converted into iteration errors so
// one bad iteration does not kill the whole pipeline.
func runIteration(sc Scenario, leakCheck bool) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rtErr, ok := r.(*rt.RTError); ok {
				err = rtErr
				return
			}
			panic(r)
		}
	}()

	rctx := rt.NewContext()
	if err := sc.Run(rctx); err != nil {
		return err
	}
	if err := testkit.CheckHeapInvariants(rctx.Heap); err != nil {
		return err
	}
	if leakCheck {
		rctx.Heap.CheckLeaksOrPanic()
	}
	return nil
}

func emit(sink ProgressSink, evt Event) {
	if sink == nil {
		return
	}
	sink.OnEvent(evt)
}
