package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/anntune/internal/core/domain"
	"github.com/custodia-labs/anntune/internal/core/ports/driving"
	"github.com/custodia-labs/anntune/internal/logger"
)

// MockTuningService implements driving.TuningService for CLI tests.
type MockTuningService struct {
	PlanFunc func(ctx context.Context, req driving.SweepRequest) (*driving.SweepPlan, error)
	RunFunc  func(ctx context.Context, req driving.SweepRequest) (*driving.SweepSummary, error)
	KnobList []domain.Knob

	PlanRequests []driving.SweepRequest
	RunRequests  []driving.SweepRequest
}

func (m *MockTuningService) Plan(ctx context.Context, req driving.SweepRequest) (*driving.SweepPlan, error) {
	m.PlanRequests = append(m.PlanRequests, req)
	if m.PlanFunc != nil {
		return m.PlanFunc(ctx, req)
	}
	return &driving.SweepPlan{Strategy: req.Strategy}, nil
}

func (m *MockTuningService) Run(ctx context.Context, req driving.SweepRequest) (*driving.SweepSummary, error) {
	m.RunRequests = append(m.RunRequests, req)
	if m.RunFunc != nil {
		return m.RunFunc(ctx, req)
	}
	return &driving.SweepSummary{Strategy: req.Strategy}, nil
}

func (m *MockTuningService) Knobs() []domain.Knob {
	return m.KnobList
}

// MockAnalysisService implements driving.AnalysisService for CLI tests.
type MockAnalysisService struct {
	AnalyzeFunc     func(ctx context.Context, topK int) (*domain.Analysis, error)
	ReportFunc      func(ctx context.Context, w io.Writer, format string, topK int) error
	TrialFunc       func(ctx context.Context, idOrPrefix string) (*domain.TrialOutcome, error)
	TrialOutputFunc func(ctx context.Context, id string) ([]driving.TrialStream, error)
}

func (m *MockAnalysisService) Analyze(ctx context.Context, topK int) (*domain.Analysis, error) {
	if m.AnalyzeFunc != nil {
		return m.AnalyzeFunc(ctx, topK)
	}
	return &domain.Analysis{}, nil
}

func (m *MockAnalysisService) Report(ctx context.Context, w io.Writer, format string, topK int) error {
	if m.ReportFunc != nil {
		return m.ReportFunc(ctx, w, format, topK)
	}
	_, err := fmt.Fprintf(w, "%s report top %d\n", format, topK)
	return err
}

func (m *MockAnalysisService) Formats() []string {
	return []string{"csv", "html"}
}

func (m *MockAnalysisService) Extension(format string) (string, error) {
	if !slices.Contains(m.Formats(), format) {
		return "", fmt.Errorf("%w: report format %q (available: %s)",
			domain.ErrUnsupportedType, format, strings.Join(m.Formats(), ", "))
	}
	return "." + format, nil
}

func (m *MockAnalysisService) Trial(ctx context.Context, idOrPrefix string) (*domain.TrialOutcome, error) {
	if m.TrialFunc != nil {
		return m.TrialFunc(ctx, idOrPrefix)
	}
	return nil, domain.ErrNotFound
}

func (m *MockAnalysisService) TrialOutput(ctx context.Context, id string) ([]driving.TrialStream, error) {
	if m.TrialOutputFunc != nil {
		return m.TrialOutputFunc(ctx, id)
	}
	return nil, domain.ErrNotFound
}

// MockConfigLoader implements driven.ConfigLoader on a single file path.
type MockConfigLoader struct {
	FilePath string
	Config   *domain.TuningConfig
	LoadErr  error
	Saved    *domain.TuningConfig
}

func (m *MockConfigLoader) Load() (*domain.TuningConfig, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if m.Config != nil {
		return m.Config, nil
	}
	cfg := domain.DefaultTuningConfig()
	return &cfg, nil
}

func (m *MockConfigLoader) Save(cfg *domain.TuningConfig) error {
	m.Saved = cfg
	return os.WriteFile(m.FilePath, []byte("# saved\n"), 0600)
}

func (m *MockConfigLoader) Path() string {
	return m.FilePath
}

var testKnobs = []domain.Knob{
	{Name: "M", Values: []float64{16, 18}, Default: 18},
	{Name: "ef_search", Label: "ef_s", Values: []float64{100, 200}, Default: 100},
}

func testConfiguration(m, ef float64) domain.Configuration {
	return domain.NewConfiguration([]domain.KnobValue{
		{Name: "M", Value: m},
		{Name: "ef_search", Value: ef},
	}, "")
}

func passingOutcome(seq int, m, ef float64) domain.TrialOutcome {
	return domain.TrialOutcome{
		ID:            fmt.Sprintf("%08d-0000-0000-0000-000000000000", seq),
		Sequence:      seq,
		Strategy:      domain.StrategyQuick,
		Dataset:       "glove",
		Configuration: testConfiguration(m, ef),
		Status:        domain.StatusSuccess,
		Metrics:       &domain.MetricsRecord{BuildMs: 300000, SearchMs: 1200, Recall10: 0.965},
		Score:         &domain.Score{Value: 6.2, Pass: true},
	}
}

// withApp installs a as the wired application for the duration of the test.
func withApp(t *testing.T, a *App) {
	t.Helper()
	prev := app
	app = a
	t.Cleanup(func() { app = prev })
}

// resetFlags puts every flag back to its default; cobra keeps parsed values
// between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args and returns what it printed,
// progress lines included.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

func executeWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() {
		resetFlags(rootCmd)
		logger.SetVerbose(false)
	})

	prevLog := logger.Output()
	logs := new(bytes.Buffer)
	logger.SetOutput(logs)
	t.Cleanup(func() { logger.SetOutput(prevLog) })

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String() + logs.String(), err
}
