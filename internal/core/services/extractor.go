package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/anntune/internal/core/domain"
)

// Metric patterns. Each is searched independently over the whole output so
// surrounding text and line order do not matter.
var (
	buildTimePattern   = regexp.MustCompile(`Build time:\s*(-?\d+)\s*ms`)
	totalSearchPattern = regexp.MustCompile(`Total search time:\s*(-?\d+)\s*ms`)
	avgSearchPattern   = regexp.MustCompile(`Average search time:\s*(-?[\d.]+(?:[eE][-+]?\d+)?)\s*ms`)
	distCompsPattern   = regexp.MustCompile(`Average distance computations per query:\s*(-?[\d.]+(?:[eE][-+]?\d+)?)`)
	recall1Pattern     = regexp.MustCompile(`Recall@1:\s*(-?[\d.]+(?:[eE][-+]?\d+)?)`)
	recall10Pattern    = regexp.MustCompile(`Recall@10:\s*(-?[\d.]+(?:[eE][-+]?\d+)?)`)
)

// MetricsExtractor parses the program's free-form output into a metrics record.
// It checks presence and parseability only; values are passed through unchanged.
type MetricsExtractor struct{}

// NewMetricsExtractor creates a metrics extractor.
func NewMetricsExtractor() *MetricsExtractor {
	return &MetricsExtractor{}
}

// Extract returns the metrics printed in output.
// Fails with domain.ErrExtractionFailed naming every missing mandatory field.
func (e *MetricsExtractor) Extract(output string) (*domain.MetricsRecord, error) {
	var missing []string

	buildMs, ok := findInt(buildTimePattern, output)
	if !ok {
		missing = append(missing, "build time")
	}
	searchMs, ok := findInt(totalSearchPattern, output)
	if !ok {
		missing = append(missing, "total search time")
	}
	recall10 := findFloat(recall10Pattern, output)
	if recall10 == nil {
		missing = append(missing, "recall@10")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", domain.ErrExtractionFailed, strings.Join(missing, ", "))
	}

	return &domain.MetricsRecord{
		BuildMs:     buildMs,
		SearchMs:    searchMs,
		Recall10:    *recall10,
		AvgSearchMs: findFloat(avgSearchPattern, output),
		DistComps:   findFloat(distCompsPattern, output),
		Recall1:     findFloat(recall1Pattern, output),
	}, nil
}

// Plausibility lists values that parsed but cannot be real measurements.
// It never alters the record.
func (e *MetricsExtractor) Plausibility(m *domain.MetricsRecord) []string {
	var warnings []string
	if m.BuildMs < 0 {
		warnings = append(warnings, fmt.Sprintf("negative build time %d ms", m.BuildMs))
	}
	if m.SearchMs < 0 {
		warnings = append(warnings, fmt.Sprintf("negative search time %d ms", m.SearchMs))
	}
	if m.Recall10 < 0 || m.Recall10 > 1 {
		warnings = append(warnings, fmt.Sprintf("recall@10 %v outside [0, 1]", m.Recall10))
	}
	if m.Recall1 != nil && (*m.Recall1 < 0 || *m.Recall1 > 1) {
		warnings = append(warnings, fmt.Sprintf("recall@1 %v outside [0, 1]", *m.Recall1))
	}
	if m.AvgSearchMs != nil && *m.AvgSearchMs < 0 {
		warnings = append(warnings, fmt.Sprintf("negative average search time %v ms", *m.AvgSearchMs))
	}
	if m.DistComps != nil && *m.DistComps < 0 {
		warnings = append(warnings, fmt.Sprintf("negative distance computations %v", *m.DistComps))
	}
	return warnings
}

// findInt returns the first integer capture of re. A capture that does not
// parse counts as absent.
func findInt(re *regexp.Regexp, s string) (int64, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// findFloat returns the first float capture of re, or nil.
func findFloat(re *regexp.Regexp, s string) *float64 {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}
