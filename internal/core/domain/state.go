package domain

// TrialState is a stage of the per-trial state machine.
type TrialState string

// Trial states.
const (
	StatePending          TrialState = "pending"
	StateMarkerNotFound   TrialState = "marker-not-found"
	StateMutated          TrialState = "mutated"
	StateBuilt            TrialState = "built"
	StateBuildFailed      TrialState = "build-failed"
	StateRan              TrialState = "ran"
	StateTimeout          TrialState = "timeout"
	StateRuntimeError     TrialState = "runtime-error"
	StateExtracted        TrialState = "extracted"
	StateExtractionFailed TrialState = "extraction-failed"
	StateScored           TrialState = "scored"
	StateStored           TrialState = "stored"
)

var trialTransitions = map[TrialState][]TrialState{
	StatePending:          {StateMutated, StateMarkerNotFound},
	StateMarkerNotFound:   {StateStored},
	StateMutated:          {StateBuilt, StateBuildFailed},
	StateBuildFailed:      {StateStored},
	StateBuilt:            {StateRan, StateTimeout, StateRuntimeError},
	StateTimeout:          {StateStored},
	StateRuntimeError:     {StateStored},
	StateRan:              {StateExtracted, StateExtractionFailed},
	StateExtractionFailed: {StateStored},
	StateExtracted:        {StateScored},
	StateScored:           {StateStored},
}

// CanTransition reports whether the state machine allows moving to next.
func (s TrialState) CanTransition(next TrialState) bool {
	for _, allowed := range trialTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether nothing further can happen in this state.
func (s TrialState) IsTerminal() bool {
	return s == StateStored
}
