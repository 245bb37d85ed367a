// Package messages defines Bubbletea message types for the dashboard.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/anntune/internal/core/domain"
)

// ResultsLoaded carries a fresh analysis of the results table.
type ResultsLoaded struct {
	Analysis *domain.Analysis
	Err      error
}

// ResultsChanged is sent when the results file was written.
type ResultsChanged struct {
	Path string
}

// WatchFailed is sent when the file watcher stops.
type WatchFailed struct {
	Err error
}

// ViewChanged is sent when switching between tabs.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which tab is currently active.
type ViewType int

const (
	// ViewTrials lists every stored trial.
	ViewTrials ViewType = iota
	// ViewFrontier lists the Pareto-optimal trials.
	ViewFrontier
	// ViewImpact shows per-knob averages.
	ViewImpact
	// ViewSummary shows totals and the recommendation.
	ViewSummary
)

// Views lists the tabs in display order.
func Views() []ViewType {
	return []ViewType{ViewTrials, ViewFrontier, ViewImpact, ViewSummary}
}

// String returns the tab title.
func (v ViewType) String() string {
	switch v {
	case ViewTrials:
		return "Trials"
	case ViewFrontier:
		return "Frontier"
	case ViewImpact:
		return "Impact"
	case ViewSummary:
		return "Summary"
	default:
		return "unknown"
	}
}

// Next returns the tab after v, wrapping around.
func (v ViewType) Next() ViewType {
	views := Views()
	return views[(int(v)+1)%len(views)]
}

// Prev returns the tab before v, wrapping around.
func (v ViewType) Prev() ViewType {
	views := Views()
	return views[(int(v)+len(views)-1)%len(views)]
}
