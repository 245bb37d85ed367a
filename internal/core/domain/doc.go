// Package domain defines the core business entities for anntune.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Knob: A named numeric tunable of the program under test
//   - Configuration: One concrete assignment of values to every knob
//   - MetricsRecord: Measurements printed by one trial
//   - TrialOutcome: The immutable record of one trial, appended to the results table
//   - TuningConfig: Grids, shortlist, scoring policy and toolchain settings
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
