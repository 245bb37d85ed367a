package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/anntune/internal/core/domain"
)

// AnalysisService computes read-only views over the results table.
type AnalysisService interface {
	// Analyze loads the results table and computes the summary, parameter
	// impact, Pareto frontier and the top-k ranking by score.
	Analyze(ctx context.Context, topK int) (*domain.Analysis, error)

	// Report analyses the table and renders it with the given renderer.
	Report(ctx context.Context, w io.Writer, format string, topK int) error

	// Formats lists the report formats available to Report.
	Formats() []string

	// Extension returns the file extension, e.g. ".html", of the artifact
	// Report writes for format. Returns domain.ErrUnsupportedType for an
	// unknown format.
	Extension(format string) (string, error)

	// Trial finds a stored outcome by ID or unique ID prefix.
	// Returns domain.ErrNotFound if nothing matches and domain.ErrInvalidInput
	// if the prefix is ambiguous.
	Trial(ctx context.Context, idOrPrefix string) (*domain.TrialOutcome, error)

	// TrialOutput returns the archived output streams of a trial.
	TrialOutput(ctx context.Context, trialID string) ([]TrialStream, error)
}

// TrialStream is one archived output stream of a trial.
type TrialStream struct {
	Name string
	Data []byte
}
