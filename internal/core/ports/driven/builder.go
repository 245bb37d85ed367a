package driven

import (
	"context"

	"github.com/custodia-labs/anntune/internal/core/domain"
)

// Builder compiles the mutated source into an executable.
type Builder interface {
	// Build invokes the toolchain and returns the artifact path.
	// Failures wrap domain.ErrBuildFailed and carry the compiler diagnostic;
	// use Diagnostic to extract it.
	Build(ctx context.Context, strategy domain.Strategy) (string, error)
}

// Diagnosed is implemented by adapter errors that carry captured tool output.
type Diagnosed interface {
	Diagnostic() string
}
