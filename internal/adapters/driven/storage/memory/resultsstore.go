package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/anntune/internal/core/domain"
	"github.com/custodia-labs/anntune/internal/core/ports/driven"
)

// Ensure ResultsStore implements the interface.
var _ driven.ResultsStore = (*ResultsStore)(nil)

// ResultsStore is an in-memory implementation of driven.ResultsStore.
// Nothing survives the process; it backs tests and dry runs.
type ResultsStore struct {
	mu       sync.RWMutex
	outcomes []domain.TrialOutcome
}

// NewResultsStore creates a new in-memory results store.
func NewResultsStore() *ResultsStore {
	return &ResultsStore{}
}

// Append stores a copy of the outcome.
func (s *ResultsStore) Append(_ context.Context, outcome domain.TrialOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	outcome.Configuration = domain.NewConfiguration(outcome.Configuration.Values, outcome.Configuration.Rationale)
	s.outcomes = append(s.outcomes, outcome)
	return nil
}

// All returns every outcome in append order.
func (s *ResultsStore) All(_ context.Context) ([]domain.TrialOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.TrialOutcome, len(s.outcomes))
	copy(result, s.outcomes)
	for i := range result {
		result[i].Sequence = i + 1
	}
	return result, nil
}

// Path returns a placeholder location.
func (s *ResultsStore) Path() string {
	return ":memory:"
}

// Close is a no-op.
func (s *ResultsStore) Close() error {
	return nil
}
