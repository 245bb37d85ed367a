package domain

// MetricsRecord holds the measurements printed by one trial.
// Mandatory fields are plain values; optional fields are nil when the
// program did not print them.
type MetricsRecord struct {
	// BuildMs is the index build duration in milliseconds. Mandatory.
	BuildMs int64

	// SearchMs is the total search duration over all queries in milliseconds. Mandatory.
	SearchMs int64

	// Recall10 is recall@10 averaged over the query set. Mandatory.
	Recall10 float64

	// AvgSearchMs is the per-query average search duration. Optional.
	AvgSearchMs *float64

	// DistComps is the average number of distance computations per query. Optional.
	DistComps *float64

	// Recall1 is recall@1 averaged over the query set. Optional.
	Recall1 *float64
}

// BuildMinutes returns the build duration in minutes.
func (m MetricsRecord) BuildMinutes() float64 {
	return float64(m.BuildMs) / 60000
}

// SearchSeconds returns the total search duration in seconds.
func (m MetricsRecord) SearchSeconds() float64 {
	return float64(m.SearchMs) / 1000
}

// LatencyMs is the latency used for frontier and fastest-configuration views.
// Total search time is mandatory, so it is always comparable across records.
func (m MetricsRecord) LatencyMs() float64 {
	return float64(m.SearchMs)
}

// Float returns a pointer to v, for populating optional metric fields.
func Float(v float64) *float64 {
	return &v
}
