package domain

// ScoringPolicy holds the constants of the multi-objective score.
// They were tuned empirically for one dataset and program; treat them as
// configuration, not law.
type ScoringPolicy struct {
	// RecallTarget is the recall@10 a configuration must reach to pass.
	RecallTarget float64

	// RecallPenaltyWeight multiplies the recall shortfall.
	RecallPenaltyWeight float64

	// BuildBudgetMs is the build duration a configuration must not exceed to pass.
	BuildBudgetMs int64

	// TimePenaltyDivisor scales the build overrun (in ms) into score units.
	TimePenaltyDivisor float64

	// SearchBudgetMs is the advisory total search budget. It is reported but
	// does not affect Pass.
	SearchBudgetMs int64
}

// DefaultScoringPolicy returns the policy used for the GloVe sweeps.
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		RecallTarget:        0.98,
		RecallPenaltyWeight: 10000,
		BuildBudgetMs:       1_800_000,
		TimePenaltyDivisor:  1000,
		SearchBudgetMs:      2000,
	}
}

// BuildBudgetMinutes returns the build budget in minutes.
func (p ScoringPolicy) BuildBudgetMinutes() float64 {
	return float64(p.BuildBudgetMs) / 60000
}

// Score is the scalar fitness of one metrics record. Lower is better.
type Score struct {
	// Value is build_minutes + search_seconds + RecallPenalty + TimePenalty.
	Value float64

	// RecallPenalty is the weighted recall shortfall.
	RecallPenalty float64

	// TimePenalty is the scaled build overrun.
	TimePenalty float64

	// Pass is true iff recall and build time both meet the policy.
	Pass bool

	// RecallOK, BuildOK and SearchOK are the per-criterion verdicts.
	RecallOK bool
	BuildOK  bool
	SearchOK bool
}
