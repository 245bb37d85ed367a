// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for a sweep to run:
//
//   - SourceMutator: Rewrites the parameter block of the source under test
//   - Builder: Compiles the mutated source into an executable
//   - TrialRunner: Executes the executable against a dataset with a timeout
//   - ResultsStore: Append-only persistence of every trial outcome
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - OutputArchive: Keeps compiler and program output for later inspection.
//   - ReportRenderer: Writes the browsable report artifact.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
