package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/anntune/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/anntune/internal/core/domain"
	"github.com/custodia-labs/anntune/internal/core/ports/driven"
	"github.com/custodia-labs/anntune/internal/core/ports/driving"
)

// mockMutator records applied configurations.
type mockMutator struct {
	err     error
	missing []string
	applied []domain.Configuration
}

func (m *mockMutator) Apply(_ context.Context, cfg domain.Configuration) (*driven.MutationResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.applied = append(m.applied, cfg)
	return &driven.MutationResult{Path: "MySolution.cpp", MarkerLine: 3, Missing: m.missing}, nil
}

// mockBuildError carries a compiler diagnostic.
type mockBuildError struct{ diag string }

func (e *mockBuildError) Error() string      { return "build failed: exit status 1" }
func (e *mockBuildError) Unwrap() error      { return domain.ErrBuildFailed }
func (e *mockBuildError) Diagnostic() string { return e.diag }

type mockBuilder struct {
	err    error
	builds int
}

func (m *mockBuilder) Build(_ context.Context, strategy domain.Strategy) (string, error) {
	m.builds++
	if m.err != nil {
		return "", m.err
	}
	return "./test_tune_" + string(strategy), nil
}

// mockRunner answers per trial label.
type mockRunner struct {
	respond func(run driven.TrialRun) (*driven.TrialResult, error)
	runs    []driven.TrialRun
}

func (m *mockRunner) Run(_ context.Context, run driven.TrialRun) (*driven.TrialResult, error) {
	m.runs = append(m.runs, run)
	return m.respond(run)
}

type mockArchive struct {
	saved map[string]string
}

func (m *mockArchive) Save(_ context.Context, trialID, stream string, data []byte) error {
	if m.saved == nil {
		m.saved = make(map[string]string)
	}
	m.saved[trialID+"."+stream] = string(data)
	return nil
}

func (m *mockArchive) Load(_ context.Context, trialID, stream string) ([]byte, error) {
	data, ok := m.saved[trialID+"."+stream]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return []byte(data), nil
}

func (m *mockArchive) Streams(_ context.Context, trialID string) ([]string, error) {
	var names []string
	for _, s := range []string{driven.StreamBuild, driven.StreamStdout, driven.StreamStderr} {
		if _, ok := m.saved[trialID+"."+s]; ok {
			names = append(names, s)
		}
	}
	return names, nil
}

// failingStore fails every append.
type failingStore struct{ *memory.ResultsStore }

func (f failingStore) Append(context.Context, domain.TrialOutcome) error {
	return errors.New("disk full")
}

func programOutput(buildMs, searchMs int64, recall float64) string {
	return fmt.Sprintf("Build time: %d ms\nTotal search time: %d ms\nRecall@10: %.4f\n", buildMs, searchMs, recall)
}

func succeed(recall float64) func(driven.TrialRun) (*driven.TrialResult, error) {
	return func(driven.TrialRun) (*driven.TrialResult, error) {
		return &driven.TrialResult{Stdout: programOutput(1320000, 1800, recall)}, nil
	}
}

type tuningFixture struct {
	service *TuningService
	mutator *mockMutator
	builder *mockBuilder
	runner  *mockRunner
	store   *memory.ResultsStore
	archive *mockArchive
}

func newTuningFixture(t *testing.T, respond func(driven.TrialRun) (*driven.TrialResult, error)) *tuningFixture {
	t.Helper()
	f := &tuningFixture{
		mutator: &mockMutator{},
		builder: &mockBuilder{},
		runner:  &mockRunner{respond: respond},
		store:   memory.NewResultsStore(),
		archive: &mockArchive{},
	}
	ids := 0
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.service = NewTuningService(domain.DefaultTuningConfig(), f.mutator, f.builder, f.runner, f.store,
		WithArchive(f.archive),
		WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
		WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("trial-%d", ids)
		}),
	)
	return f
}

func shortlistRequest(entries ...domain.ShortlistEntry) driving.SweepRequest {
	return driving.SweepRequest{
		Strategy:  domain.StrategyShortlist,
		Dataset:   "/data/glove",
		Shortlist: entries,
	}
}

var m16 = domain.ShortlistEntry{Values: map[string]float64{"M": 16, "ef_construction": 150, "ef_search": 2400}}

func TestTuningService_Run_Success(t *testing.T) {
	f := newTuningFixture(t, succeed(0.982))
	ctx := context.Background()

	summary, err := f.service.Run(ctx, shortlistRequest(m16))

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Attempted)
	assert.Equal(t, 1, summary.Usable)
	assert.Equal(t, 1, summary.Passing)
	assert.Equal(t, 1, summary.ByStatus[domain.StatusSuccess])

	stored, err := f.store.All(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	o := stored[0]
	assert.Equal(t, "trial-1", o.ID)
	assert.Equal(t, domain.StatusSuccess, o.Status)
	assert.Equal(t, "/data/glove", o.Dataset)
	require.NotNil(t, o.Metrics)
	assert.Equal(t, int64(1320000), o.Metrics.BuildMs)
	require.NotNil(t, o.Score)
	assert.InDelta(t, 23.8, o.Score.Value, 1e-9)
	assert.True(t, o.Score.Pass)
	assert.Equal(t, time.UTC, o.Timestamp.Location())

	require.Len(t, f.runner.runs, 1)
	assert.Equal(t, "./test_tune_shortlist", f.runner.runs[0].Executable)
	assert.Equal(t, 30*time.Minute, f.runner.runs[0].Timeout)
	assert.Contains(t, f.archive.saved["trial-1.stdout"], "Recall@10: 0.9820")
}

func TestTuningService_Run_FailingRecall(t *testing.T) {
	f := newTuningFixture(t, succeed(0.95))

	summary, err := f.service.Run(context.Background(), shortlistRequest(m16))

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Usable)
	assert.Zero(t, summary.Passing)
	o := summary.Outcomes[0]
	assert.InDelta(t, 323.8, o.Score.Value, 1e-9)
	assert.False(t, o.Score.Pass)
}

func TestTuningService_Run_TimeoutIsStoredButNotRanked(t *testing.T) {
	m18 := domain.ShortlistEntry{Values: map[string]float64{"M": 18}}
	f := newTuningFixture(t, func(run driven.TrialRun) (*driven.TrialResult, error) {
		if strings.HasPrefix(run.Label, "M=18") {
			return &driven.TrialResult{Stdout: "Build time: 1320000 ms\n"},
				fmt.Errorf("%w: killed after %s", domain.ErrTrialTimeout, run.Timeout)
		}
		return &driven.TrialResult{Stdout: programOutput(1320000, 1800, 0.982)}, nil
	})
	ctx := context.Background()

	summary, err := f.service.Run(ctx, shortlistRequest(m16, m18))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, 1, summary.ByStatus[domain.StatusTimeout])

	stored, err := f.store.All(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	timedOut := stored[1]
	assert.Equal(t, domain.StatusTimeout, timedOut.Status)
	assert.Nil(t, timedOut.Metrics)
	assert.Nil(t, timedOut.Score)
	assert.Contains(t, timedOut.Diagnostic, "timed out")

	analysis := Analyze(f.service.Knobs(), stored, 10)
	require.Len(t, analysis.Top, 1)
	assert.Equal(t, stored[0].ID, analysis.Top[0].ID)
	for _, o := range analysis.Frontier {
		assert.NotEqual(t, timedOut.ID, o.ID)
	}
	assert.Len(t, analysis.Outcomes, 2)
}

func TestTuningService_Run_StageFailures(t *testing.T) {
	tests := []struct {
		name       string
		mutatorErr error
		builderErr error
		respond    func(driven.TrialRun) (*driven.TrialResult, error)
		status     domain.TrialStatus
		builds     int
		runs       int
	}{
		{
			name:       "marker not found skips build",
			mutatorErr: fmt.Errorf("MySolution.cpp: %w", domain.ErrMarkerNotFound),
			status:     domain.StatusMarkerNotFound,
		},
		{
			name:       "build failure skips run",
			builderErr: &mockBuildError{diag: "error: expected ';'"},
			status:     domain.StatusBuildFailed,
			builds:     1,
		},
		{
			name: "runtime error",
			respond: func(driven.TrialRun) (*driven.TrialResult, error) {
				return &driven.TrialResult{Stdout: programOutput(1, 1, 0.99), Stderr: "segfault"},
					fmt.Errorf("%w: exit status 139", domain.ErrTrialRuntime)
			},
			status: domain.StatusRuntimeError,
			builds: 1,
			runs:   1,
		},
		{
			name: "extraction failure",
			respond: func(driven.TrialRun) (*driven.TrialResult, error) {
				return &driven.TrialResult{Stdout: "Build time: 5 ms\n"}, nil
			},
			status: domain.StatusExtractionFailed,
			builds: 1,
			runs:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			respond := tt.respond
			if respond == nil {
				respond = succeed(0.99)
			}
			f := newTuningFixture(t, respond)
			f.mutator.err = tt.mutatorErr
			f.builder.err = tt.builderErr

			summary, err := f.service.Run(context.Background(), shortlistRequest(m16))

			require.NoError(t, err)
			require.Len(t, summary.Outcomes, 1)
			o := summary.Outcomes[0]
			assert.Equal(t, tt.status, o.Status)
			assert.False(t, o.Usable())
			assert.NotEmpty(t, o.Diagnostic)
			assert.Equal(t, tt.builds, f.builder.builds)
			assert.Len(t, f.runner.runs, tt.runs)
			assert.Zero(t, summary.Usable)
		})
	}
}

func TestTuningService_Run_BuildDiagnosticArchived(t *testing.T) {
	f := newTuningFixture(t, succeed(0.99))
	f.builder.err = &mockBuildError{diag: "MySolution.cpp:12: error: expected ';'"}

	summary, err := f.service.Run(context.Background(), shortlistRequest(m16))

	require.NoError(t, err)
	o := summary.Outcomes[0]
	assert.Contains(t, o.Diagnostic, "expected ';'")
	assert.Equal(t, "MySolution.cpp:12: error: expected ';'", f.archive.saved[o.ID+".build"])
}

func TestTuningService_Run_MissingKnobIsNoted(t *testing.T) {
	f := newTuningFixture(t, succeed(0.99))
	f.mutator.missing = []string{"gamma"}

	summary, err := f.service.Run(context.Background(), shortlistRequest(m16))

	require.NoError(t, err)
	o := summary.Outcomes[0]
	assert.Equal(t, domain.StatusSuccess, o.Status)
	assert.Contains(t, o.Diagnostic, "gamma")
}

func TestTuningService_Run_MutatorIOErrorAborts(t *testing.T) {
	f := newTuningFixture(t, succeed(0.99))
	f.mutator.err = errors.New("permission denied")

	_, err := f.service.Run(context.Background(), shortlistRequest(m16))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	stored, _ := f.store.All(context.Background())
	assert.Empty(t, stored)
}

func TestTuningService_Run_AppendFailureAborts(t *testing.T) {
	store := failingStore{memory.NewResultsStore()}
	svc := NewTuningService(domain.DefaultTuningConfig(), &mockMutator{}, &mockBuilder{},
		&mockRunner{respond: succeed(0.99)}, store)

	_, err := svc.Run(context.Background(), shortlistRequest(m16, m16))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestTuningService_Run_RequiresConfirmation(t *testing.T) {
	f := newTuningFixture(t, succeed(0.99))
	req := driving.SweepRequest{Strategy: domain.StrategyFull, Dataset: "/data/glove"}

	_, err := f.service.Run(context.Background(), req)

	require.ErrorIs(t, err, domain.ErrConfirmationRequired)
	assert.Empty(t, f.mutator.applied)
	assert.Zero(t, f.builder.builds)
}

func TestTuningService_Run_EmptyDataset(t *testing.T) {
	f := newTuningFixture(t, succeed(0.99))
	req := shortlistRequest(m16)
	req.Dataset = "  "

	_, err := f.service.Run(context.Background(), req)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestTuningService_Run_CancelledContext(t *testing.T) {
	f := newTuningFixture(t, succeed(0.99))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.Run(ctx, shortlistRequest(m16))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.mutator.applied)
}

func TestTuningService_Run_ResumeSkipsStored(t *testing.T) {
	m18 := domain.ShortlistEntry{Values: map[string]float64{"M": 18}}
	f := newTuningFixture(t, succeed(0.99))
	ctx := context.Background()

	_, err := f.service.Run(ctx, shortlistRequest(m16))
	require.NoError(t, err)

	req := shortlistRequest(m16, m18)
	req.Resume = true
	summary, err := f.service.Run(ctx, req)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Attempted)
	require.Len(t, f.mutator.applied, 2)
	m, _ := f.mutator.applied[1].Get("M")
	assert.Equal(t, 18.0, m)

	stored, _ := f.store.All(ctx)
	assert.Len(t, stored, 2)
}

func TestTuningService_Run_Progress(t *testing.T) {
	f := newTuningFixture(t, succeed(0.99))
	req := shortlistRequest()
	req.Strategy = domain.StrategyQuick
	req.Confirmed = true

	var calls []int
	req.Progress = func(index, total int, outcome domain.TrialOutcome) {
		assert.Equal(t, 18, total)
		assert.Equal(t, domain.StatusSuccess, outcome.Status)
		calls = append(calls, index)
	}

	_, err := f.service.Run(context.Background(), req)

	require.NoError(t, err)
	require.Len(t, calls, 18)
	assert.Equal(t, 1, calls[0])
	assert.Equal(t, 18, calls[17])
	assert.Equal(t, 20*time.Minute, f.runner.runs[0].Timeout)
}

func TestTuningService_Plan(t *testing.T) {
	f := newTuningFixture(t, succeed(0.99))
	ctx := context.Background()

	tests := []struct {
		strategy domain.Strategy
		count    int
		confirm  bool
		timeout  time.Duration
	}{
		{domain.StrategyFull, 100, true, 20 * time.Minute},
		{domain.StrategyQuick, 18, true, 20 * time.Minute},
		{domain.StrategyShortlist, 4, false, 30 * time.Minute},
		{domain.StrategySweep, 7, false, 60 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			plan, err := f.service.Plan(ctx, driving.SweepRequest{Strategy: tt.strategy})

			require.NoError(t, err)
			assert.Len(t, plan.Configurations, tt.count)
			assert.Equal(t, time.Duration(tt.count)*20*time.Minute, plan.Estimate)
			assert.Equal(t, tt.confirm, plan.RequiresConfirmation)
			assert.Equal(t, tt.timeout, plan.Timeout)
		})
	}

	t.Run("unknown strategy", func(t *testing.T) {
		_, err := f.service.Plan(ctx, driving.SweepRequest{Strategy: "random"})
		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})

	assert.Empty(t, f.mutator.applied, "planning has no side effects")
}

func TestTail(t *testing.T) {
	assert.Equal(t, "short", tail("short", 10))
	assert.Equal(t, "...6789", tail("0123456789", 4))
}
