package main

import (
	"context"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"frost/internal/stress"
	"frost/internal/ui"
)

const timeRound = time.Millisecond

type stressOutcome struct {
	results []stress.Result
	err     error
}

func runStressWithUI(ctx context.Context, title string, scenarios []stress.Scenario, opts stress.Options) ([]stress.Result, error) {
	events := make(chan stress.Event, 256)
	outcomeCh := make(chan stressOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Sink = stress.ChannelSink{Ch: events}
		res, err := stress.Run(ctx, scenarios, optsCopy)
		outcomeCh <- stressOutcome{results: res, err: err}
		close(events)
	}()

	names := make([]string, 0, len(scenarios))
	for _, sc := range scenarios {
		names = append(names, sc.Name)
	}
	model := ui.NewProgressModel(title, names, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
