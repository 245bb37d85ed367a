package driven

import (
	"io"

	"github.com/custodia-labs/anntune/internal/core/domain"
)

// ReportRenderer writes an analysis as a durable artifact readable outside the process.
type ReportRenderer interface {
	// Render writes the report for the analysis.
	Render(w io.Writer, analysis *domain.Analysis) error

	// Extension returns the file extension of the artifact, e.g. ".html".
	Extension() string
}
