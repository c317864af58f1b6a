package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"frost/internal/rt"
	"frost/internal/stress"
	"frost/internal/testkit"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] <scenario>",
	Short: "Run one lazy-evaluation scenario",
	Long: `Run one scenario from the built-in library against a fresh runtime
context, then audit the heap. Available scenarios: ` + strings.Join(stress.Names(), ", "),
	Args: cobra.ExactArgs(1),
	RunE: runExecution,
}

func init() {
	runCmd.Flags().Bool("trace", false, "trace heap and force events to stderr")
	runCmd.Flags().Bool("heap-stats", false, "print heap counters after the run")
	runCmd.Flags().String("heap-dump", "", "write a post-run heap snapshot to this file")
}

func runExecution(cmd *cobra.Command, args []string) error {
	name := args[0]
	sc, ok := stress.ByName(name)
	if !ok {
		return fmt.Errorf("unknown scenario %q (available: %s)", name, strings.Join(stress.Names(), ", "))
	}

	trace, err := cmd.Flags().GetBool("trace")
	if err != nil {
		return fmt.Errorf("failed to get trace flag: %w", err)
	}
	heapStats, err := cmd.Flags().GetBool("heap-stats")
	if err != nil {
		return fmt.Errorf("failed to get heap-stats flag: %w", err)
	}
	dumpPath, err := cmd.Flags().GetString("heap-dump")
	if err != nil {
		return fmt.Errorf("failed to get heap-dump flag: %w", err)
	}

	cfg, manifestPath, err := loadToolConfig()
	if err != nil {
		return err
	}
	quiet, _ := cmd.Flags().GetBool("quiet")
	if manifestPath != "" && !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "using %s\n", manifestPath)
	}

	ctx := rt.NewContext()
	if trace || cfg.Runtime.TraceHeap || cfg.Runtime.TraceForce {
		tracer := rt.NewTracer(os.Stderr)
		if !trace {
			tracer.SetHeapEvents(cfg.Runtime.TraceHeap)
			tracer.SetForceEvents(cfg.Runtime.TraceForce)
		}
		ctx.Heap.SetTracer(tracer)
	}

	runErr := sc.Run(ctx)

	if dumpPath != "" {
		if err := rt.CaptureSnapshot(ctx.Heap).WriteFile(dumpPath); err != nil {
			return fmt.Errorf("heap dump: %w", err)
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "heap snapshot written to %s\n", dumpPath)
		}
	}
	if heapStats {
		fmt.Fprint(cmd.OutOrStdout(), ctx.Heap.Stats())
	}

	if runErr != nil {
		return fmt.Errorf("scenario %s: %w", name, runErr)
	}
	if err := testkit.CheckHeapInvariants(ctx.Heap); err != nil {
		return fmt.Errorf("scenario %s: %w", name, err)
	}
	if cfg.Runtime.LeakCheck {
		if err := auditLeaks(ctx.Heap); err != nil {
			return fmt.Errorf("scenario %s: %w", name, err)
		}
	}

	if !quiet {
		snap := ctx.Heap.Stats()
		fmt.Fprintf(cmd.OutOrStdout(), "scenario %s ok (%d forces, %d eval calls, %d allocs)\n",
			name, snap.Forces, snap.EvalCalls, snap.Allocs)
	}
	return nil
}

// auditLeaks converts the leak panic into a command error.
func auditLeaks(heap *rt.Heap) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if rtErr, ok := r.(*rt.RTError); ok {
				err = rtErr
				return
			}
			panic(r)
		}
	}()
	heap.CheckLeaksOrPanic()
	return nil
}
