package domain

import "time"

// TrialStatus tags how a trial ended.
type TrialStatus string

// Trial statuses.
const (
	// StatusSuccess means metrics were extracted and scored.
	StatusSuccess TrialStatus = "success"

	// StatusMarkerNotFound means the source had no parameter marker.
	StatusMarkerNotFound TrialStatus = "marker-not-found"

	// StatusBuildFailed means the compiler did not produce an executable.
	StatusBuildFailed TrialStatus = "build-failed"

	// StatusTimeout means the program was killed at the wall-clock limit.
	StatusTimeout TrialStatus = "timeout"

	// StatusExtractionFailed means a mandatory metric was missing from stdout.
	StatusExtractionFailed TrialStatus = "extraction-failed"

	// StatusRuntimeError means the program terminated abnormally.
	StatusRuntimeError TrialStatus = "runtime-error"
)

// AllStatuses lists every status in reporting order.
func AllStatuses() []TrialStatus {
	return []TrialStatus{
		StatusSuccess,
		StatusMarkerNotFound,
		StatusBuildFailed,
		StatusTimeout,
		StatusExtractionFailed,
		StatusRuntimeError,
	}
}

// IsValid returns true if the status is recognised.
func (s TrialStatus) IsValid() bool {
	switch s {
	case StatusSuccess, StatusMarkerNotFound, StatusBuildFailed,
		StatusTimeout, StatusExtractionFailed, StatusRuntimeError:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s TrialStatus) String() string {
	return string(s)
}

// TrialOutcome is the immutable record of one trial.
// It is created once per (configuration, run) and appended to the results table.
type TrialOutcome struct {
	// ID uniquely identifies the trial.
	ID string

	// Sequence is the 1-based position in the results table. Assigned on read.
	Sequence int

	// Strategy is the enumeration strategy that produced the configuration.
	Strategy Strategy

	// Dataset is the dataset path passed to the program.
	Dataset string

	// Configuration is the knob tuple under test.
	Configuration Configuration

	// Status tags how the trial ended.
	Status TrialStatus

	// Metrics is nil unless extraction succeeded.
	Metrics *MetricsRecord

	// Score is nil unless Metrics is set.
	Score *Score

	// Timestamp is when the trial finished, in UTC.
	Timestamp time.Time

	// Duration is the wall-clock time of the whole trial.
	Duration time.Duration

	// Diagnostic holds the failure reason and any captured compiler or program output.
	Diagnostic string
}

// Usable reports whether the outcome carries a metrics record that can be ranked.
func (o TrialOutcome) Usable() bool {
	return o.Status == StatusSuccess && o.Metrics != nil && o.Score != nil
}

// Pass reports whether the outcome meets the scoring policy.
func (o TrialOutcome) Pass() bool {
	return o.Usable() && o.Score.Pass
}
