package domain

// ImpactRow is the per-value average of one knob across every other knob combination.
type ImpactRow struct {
	Value       float64
	Count       int
	AvgRecall10 float64
	AvgSearchMs float64
	AvgBuildMs  float64
	PassRate    float64

	// AvgRecall1 is nil when no record in the group printed recall@1.
	AvgRecall1 *float64
}

// ParameterImpact quantifies the marginal sensitivity of one knob.
type ParameterImpact struct {
	Knob Knob
	Rows []ImpactRow
}

// Range is the closed interval covered by a metric.
type Range struct {
	Min float64
	Max float64
}

// Summary aggregates a results table.
type Summary struct {
	// Total is the number of outcomes in the table.
	Total int

	// ByStatus counts outcomes per status.
	ByStatus map[TrialStatus]int

	// Usable is the number of outcomes with a metrics record.
	Usable int

	// Passing is the number of usable outcomes meeting the policy.
	Passing int

	Recall10 Range
	SearchMs Range
	BuildMs  Range

	// BestRecall, Fastest and BestScore are nil when no outcome is usable.
	BestRecall *TrialOutcome
	Fastest    *TrialOutcome
	BestScore  *TrialOutcome

	// Recommended is the best passing outcome by score, or the best overall when none pass.
	Recommended *TrialOutcome
}

// Analysis is the derived, read-only view over a results table.
type Analysis struct {
	Knobs    []Knob
	Summary  Summary
	Impact   []ParameterImpact
	Frontier []TrialOutcome
	Top      []TrialOutcome

	// Outcomes is the full table in stored order, failed trials included.
	Outcomes []TrialOutcome
}
