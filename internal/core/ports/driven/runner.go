package driven

import (
	"context"
	"time"
)

// TrialRun describes one execution of the program under test.
type TrialRun struct {
	// Executable is the artifact produced by the Builder.
	Executable string

	// Dataset is passed as the sole positional argument.
	Dataset string

	// Timeout is the wall-clock limit. The process is killed when it elapses.
	Timeout time.Duration

	// Label identifies the trial in log output.
	Label string
}

// TrialResult is the captured output of a completed run.
type TrialResult struct {
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// TrialRunner executes the program under test.
type TrialRunner interface {
	// Run blocks until the program exits or the timeout elapses.
	// Returns domain.ErrTrialTimeout or domain.ErrTrialRuntime on failure; the
	// result is still returned with whatever output was captured.
	Run(ctx context.Context, run TrialRun) (*TrialResult, error)
}
