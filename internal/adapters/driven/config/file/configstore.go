package file

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/anntune/internal/core/domain"
	"github.com/custodia-labs/anntune/internal/core/ports/driven"
)

// DefaultFileName is the configuration file looked up in the working directory.
const DefaultFileName = "anntune.toml"

// Ensure ConfigStore implements the interface.
var _ driven.ConfigLoader = (*ConfigStore)(nil)

// ConfigStore is a file-based implementation of driven.ConfigLoader using TOML.
// Tables present in the file replace the matching defaults; anything the
// file leaves out keeps its built-in value. Environment overrides are
// applied last.
type ConfigStore struct {
	mu       sync.RWMutex
	filePath string
	lookup   func() (Env, error)
}

// NewConfigStore creates a TOML-based config store.
// If path is empty, defaults to ./anntune.toml.
func NewConfigStore(path string) *ConfigStore {
	if path == "" {
		path = DefaultFileName
	}
	return &ConfigStore{
		filePath: path,
		lookup:   LoadEnv,
	}
}

// Load reads the configuration file, applies environment overrides and
// validates the result. A missing file yields the defaults.
func (s *ConfigStore) Load() (*domain.TuningConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg := domain.DefaultTuningConfig()

	data, err := os.ReadFile(s.filePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// No config file yet - that's fine, run with defaults
	case err != nil:
		return nil, err
	default:
		var fc fileConfig
		if err := toml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, s.filePath, err)
		}
		fc.merge(&cfg)
	}

	env, err := s.lookup()
	if err != nil {
		return nil, fmt.Errorf("%w: environment: %v", domain.ErrInvalidInput, err)
	}
	env.apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", s.filePath, err)
	}
	return &cfg, nil
}

// Save writes the configuration to the TOML file.
func (s *ConfigStore) Save(cfg *domain.TuningConfig) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil configuration", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(fromDomain(cfg)); err != nil {
		return err
	}

	if dir := filepath.Dir(s.filePath); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}

	// Write with restricted permissions
	return os.WriteFile(s.filePath, buf.Bytes(), 0600)
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// fileConfig is the on-disk layout. Durations are whole minutes.
type fileConfig struct {
	Target    *targetTable     `toml:"target,omitempty"`
	Build     *buildTable      `toml:"build,omitempty"`
	Trial     *trialTable      `toml:"trial,omitempty"`
	Results   *resultsTable    `toml:"results,omitempty"`
	Scoring   *scoringTable    `toml:"scoring,omitempty"`
	Sweep     *sweepTable      `toml:"sweep,omitempty"`
	Knobs     []knobTable      `toml:"knob,omitempty"`
	Shortlist []shortlistTable `toml:"shortlist,omitempty"`
}

type targetTable struct {
	WorkDir       string   `toml:"workdir,omitempty"`
	Source        string   `toml:"source,omitempty" comment:"file rewritten before each build, relative to workdir"`
	Markers       []string `toml:"markers,omitempty"`
	MarkerComment string   `toml:"marker_comment,omitempty"`
	Window        int      `toml:"window,omitempty" comment:"lines after the marker searched for assignments"`
}

type buildTable struct {
	Compiler string   `toml:"compiler,omitempty"`
	Flags    []string `toml:"flags"`
	Units    []string `toml:"units,omitempty"`
	Output   string   `toml:"output,omitempty" comment:"artifact prefix, the strategy is appended"`
}

type trialTable struct {
	GridTimeout      int `toml:"grid_timeout_min,omitempty"`
	ShortlistTimeout int `toml:"shortlist_timeout_min,omitempty"`
	SweepTimeout     int `toml:"sweep_timeout_min,omitempty"`
	Estimate         int `toml:"estimate_min,omitempty"`
	ConfirmAbove     int `toml:"confirm_above_min,omitempty"`
	Heartbeat        int `toml:"heartbeat_min,omitempty"`
}

type resultsTable struct {
	Dir     string `toml:"dir,omitempty"`
	Backend string `toml:"backend,omitempty" comment:"jsonl or sqlite"`
}

type scoringTable struct {
	RecallTarget        float64 `toml:"recall_target,omitempty"`
	RecallPenaltyWeight float64 `toml:"recall_penalty_weight,omitempty"`
	BuildBudgetMs       int64   `toml:"build_budget_ms,omitempty"`
	TimePenaltyDivisor  float64 `toml:"time_penalty_divisor,omitempty"`
	SearchBudgetMs      int64   `toml:"search_budget_ms,omitempty"`
}

type sweepTable struct {
	Knob   string             `toml:"knob"`
	Values []float64          `toml:"values"`
	Fixed  map[string]float64 `toml:"fixed,omitempty"`
}

type knobTable struct {
	Name      string    `toml:"name"`
	Label     string    `toml:"label,omitempty"`
	Values    []float64 `toml:"values,omitempty"`
	Quick     []float64 `toml:"quick,omitempty"`
	Default   float64   `toml:"default"`
	Precision int       `toml:"precision,omitempty"`
}

type shortlistTable struct {
	Values    map[string]float64 `toml:"values"`
	Rationale string             `toml:"rationale,omitempty"`
}

// merge overlays the tables present in the file onto cfg.
// Within a table, zero values keep the default.
func (fc *fileConfig) merge(cfg *domain.TuningConfig) {
	if len(fc.Knobs) > 0 {
		cfg.Knobs = make([]domain.Knob, len(fc.Knobs))
		for i, k := range fc.Knobs {
			cfg.Knobs[i] = domain.Knob(k)
		}
		// Curated entries and the sweep refer to the default knobs
		// unless the file redefines them too.
		if fc.Shortlist == nil {
			cfg.Shortlist = nil
		}
		if fc.Sweep == nil {
			cfg.Sweep = domain.SweepDefinition{}
		}
	}

	if fc.Shortlist != nil {
		cfg.Shortlist = make([]domain.ShortlistEntry, len(fc.Shortlist))
		for i, e := range fc.Shortlist {
			cfg.Shortlist[i] = domain.ShortlistEntry(e)
		}
	}

	if t := fc.Sweep; t != nil {
		cfg.Sweep = domain.SweepDefinition(*t)
	}

	if t := fc.Target; t != nil {
		setString(&cfg.Target.WorkDir, t.WorkDir)
		setString(&cfg.Target.Source, t.Source)
		setString(&cfg.Target.MarkerComment, t.MarkerComment)
		if len(t.Markers) > 0 {
			cfg.Target.Markers = t.Markers
		}
		if t.Window != 0 {
			cfg.Target.Window = t.Window
		}
	}

	if t := fc.Build; t != nil {
		setString(&cfg.Build.Compiler, t.Compiler)
		setString(&cfg.Build.Output, t.Output)
		if t.Flags != nil {
			cfg.Build.Flags = t.Flags
		}
		if len(t.Units) > 0 {
			cfg.Build.Units = t.Units
		}
	}

	if t := fc.Trial; t != nil {
		setMinutes(&cfg.Trial.GridTimeout, t.GridTimeout)
		setMinutes(&cfg.Trial.ShortlistTimeout, t.ShortlistTimeout)
		setMinutes(&cfg.Trial.SweepTimeout, t.SweepTimeout)
		setMinutes(&cfg.Trial.Estimate, t.Estimate)
		setMinutes(&cfg.Trial.ConfirmAbove, t.ConfirmAbove)
		setMinutes(&cfg.Trial.Heartbeat, t.Heartbeat)
	}

	if t := fc.Results; t != nil {
		setString(&cfg.Results.Dir, t.Dir)
		setString(&cfg.Results.Backend, t.Backend)
	}

	if t := fc.Scoring; t != nil {
		p := &cfg.Scoring
		if t.RecallTarget != 0 {
			p.RecallTarget = t.RecallTarget
		}
		if t.RecallPenaltyWeight != 0 {
			p.RecallPenaltyWeight = t.RecallPenaltyWeight
		}
		if t.BuildBudgetMs != 0 {
			p.BuildBudgetMs = t.BuildBudgetMs
		}
		if t.TimePenaltyDivisor != 0 {
			p.TimePenaltyDivisor = t.TimePenaltyDivisor
		}
		if t.SearchBudgetMs != 0 {
			p.SearchBudgetMs = t.SearchBudgetMs
		}
	}
}

// fromDomain converts cfg into the on-disk layout with every table present.
func fromDomain(cfg *domain.TuningConfig) fileConfig {
	fc := fileConfig{
		Target: &targetTable{
			WorkDir:       cfg.Target.WorkDir,
			Source:        cfg.Target.Source,
			Markers:       cfg.Target.Markers,
			MarkerComment: cfg.Target.MarkerComment,
			Window:        cfg.Target.Window,
		},
		Build: &buildTable{
			Compiler: cfg.Build.Compiler,
			Flags:    cfg.Build.Flags,
			Units:    cfg.Build.Units,
			Output:   cfg.Build.Output,
		},
		Trial: &trialTable{
			GridTimeout:      minutes(cfg.Trial.GridTimeout),
			ShortlistTimeout: minutes(cfg.Trial.ShortlistTimeout),
			SweepTimeout:     minutes(cfg.Trial.SweepTimeout),
			Estimate:         minutes(cfg.Trial.Estimate),
			ConfirmAbove:     minutes(cfg.Trial.ConfirmAbove),
			Heartbeat:        minutes(cfg.Trial.Heartbeat),
		},
		Results: &resultsTable{
			Dir:     cfg.Results.Dir,
			Backend: cfg.Results.Backend,
		},
		Scoring: &scoringTable{
			RecallTarget:        cfg.Scoring.RecallTarget,
			RecallPenaltyWeight: cfg.Scoring.RecallPenaltyWeight,
			BuildBudgetMs:       cfg.Scoring.BuildBudgetMs,
			TimePenaltyDivisor:  cfg.Scoring.TimePenaltyDivisor,
			SearchBudgetMs:      cfg.Scoring.SearchBudgetMs,
		},
	}

	if cfg.Sweep.Knob != "" {
		sweep := sweepTable(cfg.Sweep)
		fc.Sweep = &sweep
	}
	for _, k := range cfg.Knobs {
		fc.Knobs = append(fc.Knobs, knobTable(k))
	}
	for _, e := range cfg.Shortlist {
		fc.Shortlist = append(fc.Shortlist, shortlistTable(e))
	}
	return fc
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setMinutes(dst *time.Duration, m int) {
	if m != 0 {
		*dst = time.Duration(m) * time.Minute
	}
}

func minutes(d time.Duration) int {
	return int(d / time.Minute)
}
