// Package stress runs the scenario library against the runtime core,
// auditing the heap after every iteration.
package stress

import "time"

// Stage describes a high-level phase of one scenario run.
type Stage string

const (
	// StageForce is the build-and-force phase.
	StageForce Stage = "force"
	// StageAudit is the invariant-and-leak audit phase.
	StageAudit Stage = "audit"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the scenario is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the scenario is currently running.
	StatusWorking Status = "working"
	// StatusDone indicates the scenario finished cleanly.
	StatusDone Status = "done"
	// StatusError indicates the scenario failed.
	StatusError Status = "error"
)

// Event reports progress for one scenario (or for the overall pipeline
// when Scenario is empty).
type Event struct {
	Scenario string
	Stage    Stage
	Status   Status
	Err      error
	Elapsed  time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}
