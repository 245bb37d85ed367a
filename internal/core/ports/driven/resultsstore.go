package driven

import (
	"context"

	"github.com/custodia-labs/anntune/internal/core/domain"
)

// ResultsStore is the append-only, crash-resumable results table.
// It is the only durable state of the system and has a single writer.
type ResultsStore interface {
	// Append persists an outcome durably before returning.
	Append(ctx context.Context, outcome domain.TrialOutcome) error

	// All returns every stored outcome in append order, with Sequence assigned.
	All(ctx context.Context) ([]domain.TrialOutcome, error)

	// Path returns the location of the table, for display and file watching.
	Path() string

	// Close releases any underlying resources.
	Close() error
}
