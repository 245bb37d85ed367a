// Package tui provides the live results dashboard.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/anntune/internal/core/ports/driving"
)

// Ports aggregates what the dashboard needs from the core.
type Ports struct {
	// Analysis computes the views over the results table.
	Analysis driving.AnalysisService

	// ResultsPath is the results file; writes to it trigger a reload.
	ResultsPath string

	// TopK bounds the ranking shown in the summary.
	TopK int
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Analysis == nil {
		return ErrMissingAnalysisService
	}
	if p.ResultsPath == "" {
		return ErrMissingResultsPath
	}
	return nil
}
