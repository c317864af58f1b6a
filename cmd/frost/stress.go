package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"frost/internal/observ"
	"frost/internal/stress"
)

var stressCmd = &cobra.Command{
	Use:   "stress [flags] [scenario...]",
	Short: "Run the scenario library repeatedly and audit every heap",
	Long: `Run scenarios for many iterations across parallel workers, each on an
isolated runtime context. With no arguments the scenarios listed in
frost.toml run, or the whole library when none are listed.`,
	RunE: runStress,
}

func init() {
	stressCmd.Flags().Int("iterations", 0, "iterations per scenario (default from frost.toml)")
	stressCmd.Flags().Int("workers", 0, "parallel workers (default from frost.toml)")
	stressCmd.Flags().Bool("plain", false, "disable the progress UI")
}

func runStress(cmd *cobra.Command, args []string) error {
	cfg, manifestPath, err := loadToolConfig()
	if err != nil {
		return err
	}
	quiet, _ := cmd.Flags().GetBool("quiet")
	timings, _ := cmd.Flags().GetBool("timings")
	if manifestPath != "" && !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "using %s\n", manifestPath)
	}

	iterations, err := cmd.Flags().GetInt("iterations")
	if err != nil {
		return fmt.Errorf("failed to get iterations flag: %w", err)
	}
	if iterations <= 0 {
		iterations = cfg.Stress.Iterations
	}
	workers, err := cmd.Flags().GetInt("workers")
	if err != nil {
		return fmt.Errorf("failed to get workers flag: %w", err)
	}
	if workers <= 0 {
		workers = cfg.Stress.Workers
	}
	plain, err := cmd.Flags().GetBool("plain")
	if err != nil {
		return fmt.Errorf("failed to get plain flag: %w", err)
	}

	selected := args
	if len(selected) == 0 {
		selected = cfg.Stress.Scenarios
	}
	scenarios, err := resolveScenarios(selected)
	if err != nil {
		return err
	}

	opts := stress.Options{
		Iterations: iterations,
		Workers:    workers,
		LeakCheck:  cfg.Runtime.LeakCheck,
	}

	timer := observ.NewTimer()
	phase := timer.Begin("stress")

	var results []stress.Result
	title := fmt.Sprintf("stress %d scenario(s) x %d iteration(s)", len(scenarios), iterations)
	if !plain && isTerminal(os.Stdout) {
		results, err = runStressWithUI(cmd.Context(), title, scenarios, opts)
	} else {
		results, err = stress.Run(cmd.Context(), scenarios, opts)
	}
	timer.End(phase, fmt.Sprintf("%d workers", workers))
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", res.Scenario, res.Err)
			continue
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "ok   %-14s %d iteration(s) in %s\n", res.Scenario, res.Iterations, res.Elapsed.Round(timeRound))
		}
	}
	if timings {
		fmt.Fprint(cmd.OutOrStdout(), timer.Summary())
	}
	if failed > 0 {
		return fmt.Errorf("%d scenario(s) failed", failed)
	}
	return nil
}

func resolveScenarios(names []string) ([]stress.Scenario, error) {
	if len(names) == 0 {
		return stress.Scenarios(), nil
	}
	out := make([]stress.Scenario, 0, len(names))
	for _, name := range names {
		sc, ok := stress.ByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q (available: %s)", name, strings.Join(stress.Names(), ", "))
		}
		out = append(out, sc)
	}
	return out, nil
}
