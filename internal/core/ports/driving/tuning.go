package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/anntune/internal/core/domain"
)

// SweepRequest selects what a sweep runs.
type SweepRequest struct {
	// Strategy selects the enumeration.
	Strategy domain.Strategy

	// Dataset is passed to every trial.
	Dataset string

	// Shortlist replaces the configured shortlist when non-empty.
	Shortlist []domain.ShortlistEntry

	// Resume skips configurations already present in the results table.
	Resume bool

	// Confirmed acknowledges the estimate of a sweep that requires confirmation.
	Confirmed bool

	// Progress, when set, is called after every stored trial.
	Progress ProgressFunc
}

// ProgressFunc reports a stored trial and its position in the sweep.
type ProgressFunc func(index, total int, outcome domain.TrialOutcome)

// SweepPlan is the enumeration of a sweep before it runs.
type SweepPlan struct {
	Strategy domain.Strategy

	// Configurations are the trials that will run, in order.
	Configurations []domain.Configuration

	// Skipped are configurations already stored (resume only).
	Skipped []domain.Configuration

	// Estimate is the expected wall-clock time of the whole sweep.
	Estimate time.Duration

	// Timeout is the per-trial wall-clock limit.
	Timeout time.Duration

	// RequiresConfirmation is true when the operator must acknowledge the estimate.
	RequiresConfirmation bool
}

// SweepSummary reports how a sweep went.
type SweepSummary struct {
	Strategy  domain.Strategy
	Attempted int
	Skipped   int
	ByStatus  map[domain.TrialStatus]int
	Usable    int
	Passing   int
	Elapsed   time.Duration

	// Outcomes are the trials stored by this sweep, in order.
	Outcomes []domain.TrialOutcome
}

// TuningService drives configuration sweeps.
type TuningService interface {
	// Plan enumerates a sweep without side effects.
	Plan(ctx context.Context, req SweepRequest) (*SweepPlan, error)

	// Run executes a sweep sequentially, storing every trial as it completes.
	// Returns domain.ErrConfirmationRequired if the plan needs confirmation
	// and req.Confirmed is false.
	Run(ctx context.Context, req SweepRequest) (*SweepSummary, error)

	// Knobs returns the knob definitions in declaration order.
	Knobs() []domain.Knob
}
