package services

import (
	"context"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/custodia-labs/anntune/internal/core/domain"
	"github.com/custodia-labs/anntune/internal/core/ports/driven"
	"github.com/custodia-labs/anntune/internal/core/ports/driving"
	"github.com/custodia-labs/anntune/internal/logger"
)

// Ensure AnalysisService implements the interface.
var _ driving.AnalysisService = (*AnalysisService)(nil)

// DefaultTopK is the ranking depth used when the caller does not pick one.
const DefaultTopK = 10

// AnalysisService derives summaries, impact tables, the Pareto frontier and
// rankings from the results table. It never writes to the store.
type AnalysisService struct {
	knobs     []domain.Knob
	store     driven.ResultsStore
	archive   driven.OutputArchive
	renderers map[string]driven.ReportRenderer
}

// NewAnalysisService creates an analysis service. Renderers are keyed by
// format name ("html", "csv"). archive may be nil.
func NewAnalysisService(
	knobs []domain.Knob,
	store driven.ResultsStore,
	archive driven.OutputArchive,
	renderers map[string]driven.ReportRenderer,
) *AnalysisService {
	if renderers == nil {
		renderers = make(map[string]driven.ReportRenderer)
	}
	return &AnalysisService{
		knobs:     knobs,
		store:     store,
		archive:   archive,
		renderers: renderers,
	}
}

// Analyze loads the table and computes every derived view.
func (s *AnalysisService) Analyze(ctx context.Context, topK int) (*domain.Analysis, error) {
	outcomes, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}
	logger.Debug("Analysing %d outcomes from %s", len(outcomes), s.store.Path())

	return Analyze(s.knobs, outcomes, topK), nil
}

// Report analyses the table and writes it with the renderer for format.
func (s *AnalysisService) Report(ctx context.Context, w io.Writer, format string, topK int) error {
	r, err := s.renderer(format)
	if err != nil {
		return err
	}
	analysis, err := s.Analyze(ctx, topK)
	if err != nil {
		return err
	}
	if err := r.Render(w, analysis); err != nil {
		return fmt.Errorf("render %s report: %w", format, err)
	}
	return nil
}

// Extension returns the file extension of the artifact written for format.
func (s *AnalysisService) Extension(format string) (string, error) {
	r, err := s.renderer(format)
	if err != nil {
		return "", err
	}
	return r.Extension(), nil
}

func (s *AnalysisService) renderer(format string) (driven.ReportRenderer, error) {
	r, ok := s.renderers[strings.ToLower(format)]
	if !ok {
		return nil, fmt.Errorf("%w: report format %q (available: %s)",
			domain.ErrUnsupportedType, format, strings.Join(s.Formats(), ", "))
	}
	return r, nil
}

// Formats lists the registered report formats, sorted.
func (s *AnalysisService) Formats() []string {
	formats := make([]string, 0, len(s.renderers))
	for name := range s.renderers {
		formats = append(formats, name)
	}
	sort.Strings(formats)
	return formats
}

// Trial finds one outcome by full ID or unique prefix.
func (s *AnalysisService) Trial(ctx context.Context, idOrPrefix string) (*domain.TrialOutcome, error) {
	if idOrPrefix == "" {
		return nil, fmt.Errorf("%w: trial id is empty", domain.ErrInvalidInput)
	}
	outcomes, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load results: %w", err)
	}

	var matches []domain.TrialOutcome
	for _, o := range outcomes {
		if o.ID == idOrPrefix {
			return &o, nil
		}
		if strings.HasPrefix(o.ID, idOrPrefix) {
			matches = append(matches, o)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("trial %s: %w", idOrPrefix, domain.ErrNotFound)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%w: prefix %q matches %d trials", domain.ErrInvalidInput, idOrPrefix, len(matches))
	}
}

// TrialOutput returns every archived stream of a trial in archive order.
func (s *AnalysisService) TrialOutput(ctx context.Context, trialID string) ([]driving.TrialStream, error) {
	if s.archive == nil {
		return nil, fmt.Errorf("output archive: %w", domain.ErrNotFound)
	}
	names, err := s.archive.Streams(ctx, trialID)
	if err != nil {
		return nil, fmt.Errorf("list streams: %w", err)
	}

	streams := make([]driving.TrialStream, 0, len(names))
	for _, name := range names {
		data, err := s.archive.Load(ctx, trialID, name)
		if err != nil {
			return nil, fmt.Errorf("load %s stream: %w", name, err)
		}
		streams = append(streams, driving.TrialStream{Name: name, Data: data})
	}
	return streams, nil
}

// Analyze computes the derived views over outcomes. knobs gives the column
// order; knobs that only appear in stored configurations follow in first-seen order.
func Analyze(knobs []domain.Knob, outcomes []domain.TrialOutcome, topK int) *domain.Analysis {
	if topK <= 0 {
		topK = DefaultTopK
	}

	usable := make([]domain.TrialOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Usable() {
			usable = append(usable, o)
		}
	}

	all := knobColumns(knobs, outcomes)
	return &domain.Analysis{
		Knobs:    all,
		Summary:  Summarize(outcomes),
		Impact:   ParameterImpact(all, usable),
		Frontier: ParetoFrontier(usable),
		Top:      TopK(usable, topK),
		Outcomes: outcomes,
	}
}

func knobColumns(knobs []domain.Knob, outcomes []domain.TrialOutcome) []domain.Knob {
	cols := append([]domain.Knob{}, knobs...)
	seen := make(map[string]bool, len(knobs))
	for _, k := range knobs {
		seen[k.Name] = true
	}
	for _, o := range outcomes {
		for _, v := range o.Configuration.Values {
			if !seen[v.Name] {
				seen[v.Name] = true
				cols = append(cols, domain.Knob{Name: v.Name, Precision: -1})
			}
		}
	}
	return cols
}

// ParameterImpact groups usable outcomes by each knob's value and averages
// the metrics across every other knob combination. Knobs with no recorded
// values are omitted.
func ParameterImpact(knobs []domain.Knob, usable []domain.TrialOutcome) []domain.ParameterImpact {
	var impact []domain.ParameterImpact

	for _, k := range knobs {
		type acc struct {
			count, passing, recall1N int
			recall10, search, build  float64
			recall1                  float64
		}
		groups := make(map[float64]*acc)

		for _, o := range usable {
			v, ok := o.Configuration.Get(k.Name)
			if !ok {
				continue
			}
			a := groups[v]
			if a == nil {
				a = &acc{}
				groups[v] = a
			}
			a.count++
			a.recall10 += o.Metrics.Recall10
			a.search += float64(o.Metrics.SearchMs)
			a.build += float64(o.Metrics.BuildMs)
			if o.Metrics.Recall1 != nil {
				a.recall1 += *o.Metrics.Recall1
				a.recall1N++
			}
			if o.Pass() {
				a.passing++
			}
		}
		if len(groups) == 0 {
			continue
		}

		values := make([]float64, 0, len(groups))
		for v := range groups {
			values = append(values, v)
		}
		sort.Float64s(values)

		rows := make([]domain.ImpactRow, 0, len(values))
		for _, v := range values {
			a := groups[v]
			n := float64(a.count)
			row := domain.ImpactRow{
				Value:       v,
				Count:       a.count,
				AvgRecall10: a.recall10 / n,
				AvgSearchMs: a.search / n,
				AvgBuildMs:  a.build / n,
				PassRate:    float64(a.passing) / n,
			}
			if a.recall1N > 0 {
				row.AvgRecall1 = domain.Float(a.recall1 / float64(a.recall1N))
			}
			rows = append(rows, row)
		}
		impact = append(impact, domain.ParameterImpact{Knob: k, Rows: rows})
	}
	return impact
}

// ParetoFrontier returns the passing outcomes for which no other passing
// outcome has recall at least as high and strictly lower latency, ordered by
// recall descending. Domination needs strictly lower latency, so outcomes that
// tie a better one on latency are kept.
func ParetoFrontier(outcomes []domain.TrialOutcome) []domain.TrialOutcome {
	passing := make([]domain.TrialOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Pass() {
			passing = append(passing, o)
		}
	}
	sort.SliceStable(passing, func(i, j int) bool {
		ri, rj := passing[i].Metrics.Recall10, passing[j].Metrics.Recall10
		if ri != rj {
			return ri > rj
		}
		return passing[i].Metrics.LatencyMs() < passing[j].Metrics.LatencyMs()
	})

	var frontier []domain.TrialOutcome
	bestHigher := math.Inf(1)
	for i := 0; i < len(passing); {
		// Equal-recall group; sorted by latency so passing[i] holds its minimum.
		j := i
		for j < len(passing) && passing[j].Metrics.Recall10 == passing[i].Metrics.Recall10 {
			j++
		}
		groupMin := passing[i].Metrics.LatencyMs()
		if groupMin <= bestHigher {
			for _, o := range passing[i:j] {
				if o.Metrics.LatencyMs() == groupMin {
					frontier = append(frontier, o)
				}
			}
			bestHigher = groupMin
		}
		i = j
	}
	return frontier
}

// TopK ranks usable outcomes by ascending score. Equal scores keep table order.
func TopK(outcomes []domain.TrialOutcome, k int) []domain.TrialOutcome {
	ranked := make([]domain.TrialOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Usable() {
			ranked = append(ranked, o)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score.Value < ranked[j].Score.Value
	})
	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// Summarize computes totals, ranges and the standout outcomes of a table.
func Summarize(outcomes []domain.TrialOutcome) domain.Summary {
	sum := domain.Summary{
		Total:    len(outcomes),
		ByStatus: make(map[domain.TrialStatus]int),
	}

	var bestPassing *domain.TrialOutcome
	for i := range outcomes {
		o := &outcomes[i]
		sum.ByStatus[o.Status]++
		if !o.Usable() {
			continue
		}

		m := o.Metrics
		if sum.Usable == 0 {
			sum.Recall10 = domain.Range{Min: m.Recall10, Max: m.Recall10}
			sum.SearchMs = domain.Range{Min: float64(m.SearchMs), Max: float64(m.SearchMs)}
			sum.BuildMs = domain.Range{Min: float64(m.BuildMs), Max: float64(m.BuildMs)}
		}
		sum.Usable++
		widen(&sum.Recall10, m.Recall10)
		widen(&sum.SearchMs, float64(m.SearchMs))
		widen(&sum.BuildMs, float64(m.BuildMs))

		if sum.BestRecall == nil || m.Recall10 > sum.BestRecall.Metrics.Recall10 {
			sum.BestRecall = o
		}
		if sum.Fastest == nil || m.SearchMs < sum.Fastest.Metrics.SearchMs {
			sum.Fastest = o
		}
		if sum.BestScore == nil || o.Score.Value < sum.BestScore.Score.Value {
			sum.BestScore = o
		}
		if o.Pass() {
			sum.Passing++
			if bestPassing == nil || o.Score.Value < bestPassing.Score.Value {
				bestPassing = o
			}
		}
	}

	sum.Recommended = bestPassing
	if sum.Recommended == nil {
		sum.Recommended = sum.BestScore
	}
	return sum
}

func widen(r *domain.Range, v float64) {
	r.Min = math.Min(r.Min, v)
	r.Max = math.Max(r.Max, v)
}
