package file

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/anntune/internal/core/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "anntune.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestNewConfigStore_DefaultPath(t *testing.T) {
	store := NewConfigStore("")
	assert.Equal(t, DefaultFileName, store.Path())
}

func TestConfigStore_Load_MissingFileYieldsDefaults(t *testing.T) {
	store := NewConfigStore(filepath.Join(t.TempDir(), "absent.toml"))

	cfg, err := store.Load()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultTuningConfig(), *cfg)
}

func TestConfigStore_SaveReload_PreservesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "anntune.toml")
	store := NewConfigStore(path)

	want := domain.DefaultTuningConfig()
	require.NoError(t, store.Save(&want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestConfigStore_Save_Nil(t *testing.T) {
	store := NewConfigStore(filepath.Join(t.TempDir(), "anntune.toml"))
	assert.ErrorIs(t, store.Save(nil), domain.ErrInvalidInput)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not enforced on windows")
	}
	path := filepath.Join(t.TempDir(), "anntune.toml")
	store := NewConfigStore(path)
	cfg := domain.DefaultTuningConfig()
	require.NoError(t, store.Save(&cfg))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Load_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
[build]
compiler = "clang++"

[trial]
grid_timeout_min = 45
`)

	cfg, err := NewConfigStore(path).Load()
	require.NoError(t, err)

	defaults := domain.DefaultTuningConfig()
	assert.Equal(t, "clang++", cfg.Build.Compiler)
	assert.Equal(t, defaults.Build.Flags, cfg.Build.Flags)
	assert.Equal(t, defaults.Build.Units, cfg.Build.Units)
	assert.Equal(t, 45*time.Minute, cfg.Trial.GridTimeout)
	assert.Equal(t, defaults.Trial.ShortlistTimeout, cfg.Trial.ShortlistTimeout)
	assert.Equal(t, defaults.Knobs, cfg.Knobs)
	assert.Equal(t, defaults.Scoring, cfg.Scoring)
}

func TestConfigStore_Load_ScoringTable(t *testing.T) {
	path := writeConfig(t, `
[scoring]
recall_target = 0.95
build_budget_ms = 600000
`)

	cfg, err := NewConfigStore(path).Load()
	require.NoError(t, err)

	assert.InDelta(t, 0.95, cfg.Scoring.RecallTarget, 1e-12)
	assert.Equal(t, int64(600000), cfg.Scoring.BuildBudgetMs)
	assert.InDelta(t, 10000.0, cfg.Scoring.RecallPenaltyWeight, 1e-12)
}

func TestConfigStore_Load_RedefinedKnobsDropDefaultShortlist(t *testing.T) {
	path := writeConfig(t, `
[[knob]]
name = "ef_search"
label = "ef"
values = [100.0, 200.0, 400.0]
quick = [200.0]
default = 200.0
`)

	cfg, err := NewConfigStore(path).Load()
	require.NoError(t, err)

	require.Len(t, cfg.Knobs, 1)
	assert.Equal(t, domain.Knob{
		Name:    "ef_search",
		Label:   "ef",
		Values:  []float64{100, 200, 400},
		Quick:   []float64{200},
		Default: 200,
	}, cfg.Knobs[0])
	assert.Empty(t, cfg.Shortlist)
	assert.Empty(t, cfg.Sweep.Knob)
}

func TestConfigStore_Load_ShortlistAndSweep(t *testing.T) {
	path := writeConfig(t, `
[sweep]
knob = "gamma"
values = [0.1, 0.2]

[sweep.fixed]
M = 16.0

[[shortlist]]
rationale = "small graph"

[shortlist.values]
M = 14.0
`)

	cfg, err := NewConfigStore(path).Load()
	require.NoError(t, err)

	assert.Equal(t, domain.SweepDefinition{
		Knob:   "gamma",
		Values: []float64{0.1, 0.2},
		Fixed:  map[string]float64{"M": 16},
	}, cfg.Sweep)
	assert.Equal(t, []domain.ShortlistEntry{
		{Values: map[string]float64{"M": 14}, Rationale: "small graph"},
	}, cfg.Shortlist)
}

func TestConfigStore_Load_InvalidTOML(t *testing.T) {
	path := writeConfig(t, "this is not valid TOML {{{[[")

	cfg, err := NewConfigStore(path).Load()

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, cfg)
}

func TestConfigStore_Load_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "unknown backend",
			content: "[results]\nbackend = \"csv\"\n",
			wantErr: domain.ErrUnsupportedType,
		},
		{
			name:    "negative window",
			content: "[target]\nwindow = -1\n",
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "marker comment without marker",
			content: "[target]\nmarker_comment = \"// tuned\"\n",
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "fractional knob without precision",
			content: "[[knob]]\nname = \"gamma\"\ndefault = 0.19\nvalues = [0.10, 0.15, 0.19]\n",
			wantErr: domain.ErrInvalidInput,
		},
		{
			name:    "sweep over unknown knob",
			content: "[sweep]\nknob = \"nprobe\"\nvalues = [1.0]\n",
			wantErr: domain.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfigStore(writeConfig(t, tt.content)).Load()
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConfigStore_Load_ReadError(t *testing.T) {
	// A directory cannot be read as a file.
	store := NewConfigStore(t.TempDir())

	_, err := store.Load()
	assert.Error(t, err)
}

func TestConfigStore_Load_EnvironmentOverrides(t *testing.T) {
	path := writeConfig(t, "[build]\ncompiler = \"clang++\"\n")
	t.Setenv("ANNTUNE_COMPILER", "g++-13")
	t.Setenv("ANNTUNE_SOURCE", "solution.cpp")
	t.Setenv("ANNTUNE_WORKDIR", "/work")
	t.Setenv("ANNTUNE_RESULTS_DIR", "/tmp/results")
	t.Setenv("ANNTUNE_RESULTS_BACKEND", "sqlite")
	t.Setenv("ANNTUNE_TRIAL_TIMEOUT", "45m")

	cfg, err := NewConfigStore(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "g++-13", cfg.Build.Compiler)
	assert.Equal(t, "solution.cpp", cfg.Target.Source)
	assert.Equal(t, "/work", cfg.Target.WorkDir)
	assert.Equal(t, "/tmp/results", cfg.Results.Dir)
	assert.Equal(t, domain.BackendSQLite, cfg.Results.Backend)
	assert.Equal(t, 45*time.Minute, cfg.Trial.GridTimeout)
	assert.Equal(t, 45*time.Minute, cfg.Trial.ShortlistTimeout)
	assert.Equal(t, 45*time.Minute, cfg.Trial.SweepTimeout)
}

func TestConfigStore_Load_InvalidEnvironment(t *testing.T) {
	t.Setenv("ANNTUNE_TRIAL_TIMEOUT", "soon")

	_, err := NewConfigStore(filepath.Join(t.TempDir(), "absent.toml")).Load()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoadEnv_Verbose(t *testing.T) {
	t.Setenv("ANNTUNE_VERBOSE", "true")

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.True(t, env.Verbose)
}
