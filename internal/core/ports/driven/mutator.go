package driven

import (
	"context"

	"github.com/custodia-labs/anntune/internal/core/domain"
)

// MutationResult reports which knobs were rewritten in the parameter block.
type MutationResult struct {
	// Path is the file that was rewritten.
	Path string

	// MarkerLine is the 1-based line number of the marker comment.
	MarkerLine int

	// Applied lists knobs whose assignment line was found and rewritten.
	Applied []string

	// Missing lists knobs with no assignment line inside the marker window.
	Missing []string
}

// SourceMutator rewrites the designated parameter block of the source under test.
type SourceMutator interface {
	// Apply writes the configuration into the source file in place.
	// Returns domain.ErrMarkerNotFound, leaving the file untouched, if the
	// marker comment is absent.
	Apply(ctx context.Context, cfg domain.Configuration) (*MutationResult, error)
}
