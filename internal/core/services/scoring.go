package services

import (
	"math"

	"github.com/custodia-labs/anntune/internal/core/domain"
)

// ScoringEngine converts a metrics record into a score and a pass/fail verdict.
//
// The score is additive. A recall shortfall is weighted so heavily that it
// dominates build and search time, and one ascending sort ranks every record.
type ScoringEngine struct {
	policy domain.ScoringPolicy
}

// NewScoringEngine creates a scoring engine for the policy.
func NewScoringEngine(policy domain.ScoringPolicy) *ScoringEngine {
	return &ScoringEngine{policy: policy}
}

// Policy returns the scoring policy.
func (e *ScoringEngine) Policy() domain.ScoringPolicy {
	return e.policy
}

// Score computes the fitness of m. Lower is better.
func (e *ScoringEngine) Score(m domain.MetricsRecord) domain.Score {
	p := e.policy

	recallPenalty := math.Max(0, p.RecallTarget-m.Recall10) * p.RecallPenaltyWeight

	var timePenalty float64
	if overrun := m.BuildMs - p.BuildBudgetMs; overrun > 0 && p.TimePenaltyDivisor > 0 {
		timePenalty = float64(overrun) / p.TimePenaltyDivisor
	}

	recallOK := m.Recall10 >= p.RecallTarget
	buildOK := m.BuildMinutes() <= p.BuildBudgetMinutes()
	searchOK := p.SearchBudgetMs <= 0 || m.SearchMs <= p.SearchBudgetMs

	return domain.Score{
		Value:         m.BuildMinutes() + m.SearchSeconds() + recallPenalty + timePenalty,
		RecallPenalty: recallPenalty,
		TimePenalty:   timePenalty,
		Pass:          recallOK && buildOK,
		RecallOK:      recallOK,
		BuildOK:       buildOK,
		SearchOK:      searchOK,
	}
}
