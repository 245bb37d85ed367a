package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/anntune/internal/core/domain"
	"github.com/custodia-labs/anntune/internal/core/ports/driven"
	"github.com/custodia-labs/anntune/internal/core/ports/driving"
	"github.com/custodia-labs/anntune/internal/logger"
)

// Ensure TuningService implements the interface.
var _ driving.TuningService = (*TuningService)(nil)

// maxDiagnosticBytes bounds the diagnostic text kept on an outcome.
// The full output goes to the archive.
const maxDiagnosticBytes = 4096

// TuningService is the search orchestrator. It runs every configuration of a
// sweep through mutate, build, run, extract, score and store, strictly one
// trial at a time: the source file and the executable are shared, and the
// program under test needs the machine to itself for its timings to mean anything.
type TuningService struct {
	cfg       domain.TuningConfig
	mutator   driven.SourceMutator
	builder   driven.Builder
	runner    driven.TrialRunner
	store     driven.ResultsStore
	archive   driven.OutputArchive
	extractor *MetricsExtractor
	scorer    *ScoringEngine

	now   func() time.Time
	newID func() string
}

// TuningOption configures a TuningService.
type TuningOption func(*TuningService)

// WithArchive keeps compiler and program output of every trial.
func WithArchive(archive driven.OutputArchive) TuningOption {
	return func(s *TuningService) {
		s.archive = archive
	}
}

// WithClock replaces the wall clock, for deterministic tests.
func WithClock(now func() time.Time) TuningOption {
	return func(s *TuningService) {
		s.now = now
	}
}

// WithIDGenerator replaces the trial ID generator.
func WithIDGenerator(newID func() string) TuningOption {
	return func(s *TuningService) {
		s.newID = newID
	}
}

// NewTuningService creates a tuning service.
func NewTuningService(
	cfg domain.TuningConfig,
	mutator driven.SourceMutator,
	builder driven.Builder,
	runner driven.TrialRunner,
	store driven.ResultsStore,
	opts ...TuningOption,
) *TuningService {
	s := &TuningService{
		cfg:       cfg,
		mutator:   mutator,
		builder:   builder,
		runner:    runner,
		store:     store,
		extractor: NewMetricsExtractor(),
		scorer:    NewScoringEngine(cfg.Scoring),
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Knobs returns the knob definitions in declaration order.
func (s *TuningService) Knobs() []domain.Knob {
	return s.cfg.Knobs
}

// Plan enumerates a sweep without side effects.
func (s *TuningService) Plan(ctx context.Context, req driving.SweepRequest) (*driving.SweepPlan, error) {
	if !req.Strategy.IsValid() {
		return nil, fmt.Errorf("%w: strategy %q", domain.ErrUnsupportedType, req.Strategy)
	}

	configs, err := Enumerate(&s.cfg, req.Strategy, req.Shortlist)
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", req.Strategy, err)
	}

	plan := &driving.SweepPlan{
		Strategy: req.Strategy,
		Timeout:  s.cfg.Trial.TimeoutFor(req.Strategy),
	}

	if req.Resume {
		stored, err := s.store.All(ctx)
		if err != nil {
			return nil, fmt.Errorf("load results: %w", err)
		}
		seen := make(map[string]bool, len(stored))
		for _, o := range stored {
			seen[o.Configuration.Key()] = true
		}
		for _, c := range configs {
			if seen[c.Key()] {
				plan.Skipped = append(plan.Skipped, c)
				continue
			}
			plan.Configurations = append(plan.Configurations, c)
		}
	} else {
		plan.Configurations = configs
	}

	plan.Estimate = time.Duration(len(plan.Configurations)) * s.cfg.Trial.Estimate
	plan.RequiresConfirmation = len(plan.Configurations) > 0 &&
		(req.Strategy == domain.StrategyFull ||
			(s.cfg.Trial.ConfirmAbove > 0 && plan.Estimate > s.cfg.Trial.ConfirmAbove))

	return plan, nil
}

// Run executes a sweep. Per-trial failures are recorded and the sweep moves on;
// only a context cancellation or a results-store failure stops it early.
func (s *TuningService) Run(ctx context.Context, req driving.SweepRequest) (*driving.SweepSummary, error) {
	if strings.TrimSpace(req.Dataset) == "" {
		return nil, fmt.Errorf("%w: dataset path is empty", domain.ErrInvalidInput)
	}

	plan, err := s.Plan(ctx, req)
	if err != nil {
		return nil, err
	}
	if plan.RequiresConfirmation && !req.Confirmed {
		return nil, fmt.Errorf("%w: %d configurations, estimated %s",
			domain.ErrConfirmationRequired, len(plan.Configurations), plan.Estimate)
	}

	summary := &driving.SweepSummary{
		Strategy: req.Strategy,
		Skipped:  len(plan.Skipped),
		ByStatus: make(map[domain.TrialStatus]int),
	}
	start := s.now()

	logger.Section(fmt.Sprintf("Sweep: %s", req.Strategy.Description()))
	logger.Info("Configurations: %d (skipped %d), timeout per trial: %s",
		len(plan.Configurations), len(plan.Skipped), plan.Timeout)

	for i, cfg := range plan.Configurations {
		if err := ctx.Err(); err != nil {
			summary.Elapsed = s.now().Sub(start)
			return summary, err
		}

		outcome, err := s.runTrial(ctx, req, plan.Timeout, cfg)
		if err != nil {
			summary.Elapsed = s.now().Sub(start)
			return summary, err
		}

		if err := s.store.Append(ctx, outcome); err != nil {
			summary.Elapsed = s.now().Sub(start)
			return summary, fmt.Errorf("append outcome: %w", err)
		}

		summary.Attempted++
		summary.ByStatus[outcome.Status]++
		if outcome.Usable() {
			summary.Usable++
		}
		if outcome.Pass() {
			summary.Passing++
		}
		summary.Outcomes = append(summary.Outcomes, outcome)

		if req.Progress != nil {
			req.Progress(i+1, len(plan.Configurations), outcome)
		}
	}

	summary.Elapsed = s.now().Sub(start)
	logger.Info("Sweep finished: %d attempted, %d usable, %d passing in %s",
		summary.Attempted, summary.Usable, summary.Passing, summary.Elapsed.Round(time.Second))

	return summary, nil
}

// trial tracks one configuration through the per-trial state machine.
type trial struct {
	state   domain.TrialState
	outcome domain.TrialOutcome
	notes   []string
}

func (t *trial) advance(next domain.TrialState) {
	if !t.state.CanTransition(next) {
		logger.Warn("Trial %s: unexpected transition %s -> %s", t.outcome.ID, t.state, next)
	}
	t.state = next
	logger.Debug("Trial %s: %s", t.outcome.ID, next)
}

func (t *trial) note(format string, args ...any) {
	t.notes = append(t.notes, fmt.Sprintf(format, args...))
}

// runTrial executes one configuration. The returned error is non-nil only when
// the sweep itself must stop; trial failures are reported through the outcome.
//
//nolint:funlen // Sequential pipeline stages read best in one place
func (s *TuningService) runTrial(
	ctx context.Context,
	req driving.SweepRequest,
	timeout time.Duration,
	cfg domain.Configuration,
) (domain.TrialOutcome, error) {
	start := s.now()
	t := &trial{
		state: domain.StatePending,
		outcome: domain.TrialOutcome{
			ID:            s.newID(),
			Strategy:      req.Strategy,
			Dataset:       req.Dataset,
			Configuration: cfg,
		},
	}
	label := cfg.Describe(s.cfg.Knobs)
	logger.Section("Trial " + label)
	if cfg.Rationale != "" {
		logger.Info("Rationale: %s", cfg.Rationale)
	}

	// 1. Mutate source
	res, err := s.mutator.Apply(ctx, cfg)
	if err != nil {
		if !errors.Is(err, domain.ErrMarkerNotFound) {
			return domain.TrialOutcome{}, fmt.Errorf("mutate source: %w", err)
		}
		t.advance(domain.StateMarkerNotFound)
		return s.finish(t, start, domain.StatusMarkerNotFound, err.Error()), nil
	}
	if len(res.Missing) > 0 {
		logger.Warn("Knobs without an assignment in the marker window: %s", strings.Join(res.Missing, ", "))
		t.note("knobs not found in marker window: %s", strings.Join(res.Missing, ", "))
	}
	t.advance(domain.StateMutated)

	// 2. Build
	exe, err := s.builder.Build(ctx, req.Strategy)
	if err != nil {
		if ctx.Err() != nil {
			return domain.TrialOutcome{}, ctx.Err()
		}
		diag := diagnosticOf(err)
		s.save(ctx, t.outcome.ID, driven.StreamBuild, diag)
		t.advance(domain.StateBuildFailed)
		logger.Warn("Build failed: %v", err)
		return s.finish(t, start, domain.StatusBuildFailed, err.Error(), diag), nil
	}
	t.advance(domain.StateBuilt)

	// 3. Run
	result, err := s.runner.Run(ctx, driven.TrialRun{
		Executable: exe,
		Dataset:    req.Dataset,
		Timeout:    timeout,
		Label:      label,
	})
	if result != nil {
		s.save(ctx, t.outcome.ID, driven.StreamStdout, result.Stdout)
		s.save(ctx, t.outcome.ID, driven.StreamStderr, result.Stderr)
	}
	if err != nil {
		if ctx.Err() != nil {
			return domain.TrialOutcome{}, ctx.Err()
		}
		status := domain.StatusForError(err)
		if status == domain.StatusTimeout {
			t.advance(domain.StateTimeout)
		} else {
			status = domain.StatusRuntimeError
			t.advance(domain.StateRuntimeError)
		}
		logger.Warn("Trial failed: %v", err)
		var stderr string
		if result != nil {
			stderr = result.Stderr
		}
		return s.finish(t, start, status, err.Error(), stderr), nil
	}
	t.advance(domain.StateRan)

	// 4. Extract
	metrics, err := s.extractor.Extract(result.Stdout)
	if err != nil {
		t.advance(domain.StateExtractionFailed)
		logger.Warn("Extraction failed: %v", err)
		return s.finish(t, start, domain.StatusExtractionFailed, err.Error(), result.Stdout), nil
	}
	for _, w := range s.extractor.Plausibility(metrics) {
		logger.Warn("Implausible metric: %s", w)
		t.note("implausible: %s", w)
	}
	t.advance(domain.StateExtracted)

	// 5. Score
	score := s.scorer.Score(*metrics)
	t.advance(domain.StateScored)
	logger.Info("Build %.2f min, search %d ms, recall@10 %.4f, score %.2f, pass %t",
		metrics.BuildMinutes(), metrics.SearchMs, metrics.Recall10, score.Value, score.Pass)

	t.outcome.Metrics = metrics
	t.outcome.Score = &score
	return s.finish(t, start, domain.StatusSuccess), nil
}

// finish stamps the outcome and moves the trial to its terminal state.
func (s *TuningService) finish(t *trial, start time.Time, status domain.TrialStatus, details ...string) domain.TrialOutcome {
	t.outcome.Status = status
	t.outcome.Timestamp = s.now().UTC()
	t.outcome.Duration = s.now().Sub(start)

	parts := append([]string{}, t.notes...)
	for _, d := range details {
		if d = strings.TrimSpace(d); d != "" {
			parts = append(parts, d)
		}
	}
	t.outcome.Diagnostic = tail(strings.Join(parts, "\n"), maxDiagnosticBytes)

	t.advance(domain.StateStored)
	return t.outcome
}

// save archives a stream. Archive failures are logged, never fatal.
func (s *TuningService) save(ctx context.Context, trialID, stream, data string) {
	if s.archive == nil || data == "" {
		return
	}
	if err := s.archive.Save(ctx, trialID, stream, []byte(data)); err != nil {
		logger.Warn("Archiving %s output of trial %s: %v", stream, trialID, err)
	}
}

// diagnosticOf extracts captured tool output from an adapter error.
func diagnosticOf(err error) string {
	var d driven.Diagnosed
	if errors.As(err, &d) {
		return d.Diagnostic()
	}
	return ""
}

// tail keeps the last n bytes of s, where failures usually show up.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
