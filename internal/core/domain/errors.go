package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown strategy, status or backend.
	ErrUnsupportedType = errors.New("unsupported type")

	// Trial Errors.
	// Each one is fatal for a single trial only; the sweep records it and continues.

	// ErrMarkerNotFound indicates the parameter marker comment is missing from the source.
	// No build or run is attempted.
	ErrMarkerNotFound = errors.New("parameter marker not found")

	// ErrBuildFailed indicates the compiler did not produce an executable.
	ErrBuildFailed = errors.New("build failed")

	// ErrTrialTimeout indicates the trial exceeded its wall-clock budget and was killed.
	ErrTrialTimeout = errors.New("trial timed out")

	// ErrTrialRuntime indicates the program under test terminated abnormally.
	ErrTrialRuntime = errors.New("trial runtime error")

	// ErrExtractionFailed indicates a mandatory metric was missing from the program output.
	ErrExtractionFailed = errors.New("metrics extraction failed")

	// Sweep Errors.

	// ErrNoUsableConfiguration indicates no trial in a sweep produced a metrics record.
	ErrNoUsableConfiguration = errors.New("no usable configuration found")

	// ErrConfirmationRequired indicates a large sweep was started without explicit confirmation.
	ErrConfirmationRequired = errors.New("confirmation required")
)

// StatusForError maps a per-trial failure onto the status recorded in the results table.
// Returns StatusRuntimeError for errors that are not one of the trial sentinels.
func StatusForError(err error) TrialStatus {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrMarkerNotFound):
		return StatusMarkerNotFound
	case errors.Is(err, ErrBuildFailed):
		return StatusBuildFailed
	case errors.Is(err, ErrTrialTimeout):
		return StatusTimeout
	case errors.Is(err, ErrExtractionFailed):
		return StatusExtractionFailed
	default:
		return StatusRuntimeError
	}
}
