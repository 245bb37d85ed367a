package tui

import "errors"

// ErrMissingAnalysisService is returned when the analysis service is not provided.
var ErrMissingAnalysisService = errors.New("tui: analysis service is required")

// ErrMissingResultsPath is returned when there is no results file to watch.
var ErrMissingResultsPath = errors.New("tui: results path is required")
