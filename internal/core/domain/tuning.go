package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// ShortlistEntry is one curated configuration with the reason it was chosen.
// Knobs missing from Values take their Default.
type ShortlistEntry struct {
	Values    map[string]float64
	Rationale string
}

// SweepDefinition describes a single-dimension sweep.
type SweepDefinition struct {
	// Knob is the name of the knob that varies.
	Knob string

	// Values are the candidates for Knob, tested in order.
	Values []float64

	// Fixed overrides the Default of the other knobs for this sweep.
	Fixed map[string]float64
}

// TargetSettings locates the parameter block in the source under test.
type TargetSettings struct {
	// WorkDir is where the compiler and the program run.
	WorkDir string

	// Source is the file rewritten before each build, relative to WorkDir.
	Source string

	// Markers are substrings identifying the marker comment line.
	Markers []string

	// MarkerComment is the prefix written back to the marker line, followed by the values.
	MarkerComment string

	// Window is the number of lines after the marker searched for assignments.
	Window int
}

// BuildSettings is the fixed compiler invocation.
type BuildSettings struct {
	Compiler string
	Flags    []string
	Units    []string

	// Output is the artifact name prefix; the strategy is appended to it.
	Output string
}

// TrialSettings bounds trial execution.
type TrialSettings struct {
	// GridTimeout applies to full and quick grids.
	GridTimeout time.Duration

	// ShortlistTimeout applies to curated shortlists.
	ShortlistTimeout time.Duration

	// SweepTimeout applies to single-dimension validation sweeps.
	SweepTimeout time.Duration

	// Estimate is the expected wall-clock time of one trial, used for planning.
	Estimate time.Duration

	// ConfirmAbove requires confirmation for any sweep whose estimate exceeds it.
	ConfirmAbove time.Duration

	// Heartbeat is how often a running trial reports elapsed time.
	Heartbeat time.Duration
}

// TimeoutFor returns the wall-clock limit for a strategy.
func (t TrialSettings) TimeoutFor(s Strategy) time.Duration {
	switch s {
	case StrategyShortlist:
		return t.ShortlistTimeout
	case StrategySweep:
		return t.SweepTimeout
	default:
		return t.GridTimeout
	}
}

// ResultsSettings selects the results backend.
type ResultsSettings struct {
	// Dir holds the results table, the output archive and the report.
	Dir string

	// Backend is "jsonl" or "sqlite".
	Backend string
}

// Results backends.
const (
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
)

// TuningConfig is the explicit configuration passed to the orchestrator.
type TuningConfig struct {
	Knobs     []Knob
	Shortlist []ShortlistEntry
	Sweep     SweepDefinition
	Scoring   ScoringPolicy
	Target    TargetSettings
	Build     BuildSettings
	Trial     TrialSettings
	Results   ResultsSettings
}

// DefaultTuningConfig returns the GloVe tuning setup.
func DefaultTuningConfig() TuningConfig {
	return TuningConfig{
		Knobs: []Knob{
			{
				Name:    "M",
				Values:  []float64{14, 16, 18, 20},
				Quick:   []float64{16, 18},
				Default: 18,
			},
			{
				Name:    "ef_construction",
				Label:   "ef_c",
				Values:  []float64{120, 140, 150, 160, 170},
				Quick:   []float64{140, 150, 160},
				Default: 150,
			},
			{
				Name:    "ef_search",
				Label:   "ef_s",
				Values:  []float64{2000, 2200, 2400, 2600, 2800},
				Quick:   []float64{2200, 2400, 2600},
				Default: 2400,
			},
			{
				Name:      "gamma",
				Default:   0.19,
				Precision: 2,
			},
		},
		Shortlist: []ShortlistEntry{
			{
				Values:    map[string]float64{"M": 18, "ef_construction": 150, "ef_search": 2400},
				Rationale: "Current optimized - expected 98%+, 22-24min build",
			},
			{
				Values:    map[string]float64{"M": 18, "ef_construction": 160, "ef_search": 2500},
				Rationale: "Higher quality - expected 98.5%+, 24-26min build",
			},
			{
				Values:    map[string]float64{"M": 16, "ef_construction": 150, "ef_search": 2400},
				Rationale: "Faster build - expected 98%, 20-22min build",
			},
			{
				Values:    map[string]float64{"M": 20, "ef_construction": 150, "ef_search": 2400},
				Rationale: "Best connectivity - expected 98.5%+, 25-27min build",
			},
		},
		Sweep: SweepDefinition{
			Knob:   "gamma",
			Values: []float64{0.0, 0.10, 0.15, 0.19, 0.22, 0.25, 0.30},
			Fixed:  map[string]float64{"M": 20, "ef_construction": 165, "ef_search": 2800},
		},
		Scoring: DefaultScoringPolicy(),
		Target: TargetSettings{
			WorkDir:       ".",
			Source:        "MySolution.cpp",
			Markers:       []string{"GLOVE: Fine-tuned", "GLOVE: Test config"},
			MarkerComment: "// GLOVE: Test config",
			Window:        10,
		},
		Build: BuildSettings{
			Compiler: "g++",
			Flags:    []string{"-std=c++11", "-O3", "-mavx2", "-mfma", "-march=native", "-fopenmp"},
			Units:    []string{"test_solution.cpp", "MySolution.cpp"},
			Output:   "test_tune",
		},
		Trial: TrialSettings{
			GridTimeout:      20 * time.Minute,
			ShortlistTimeout: 30 * time.Minute,
			SweepTimeout:     60 * time.Minute,
			Estimate:         20 * time.Minute,
			ConfirmAbove:     4 * time.Hour,
			Heartbeat:        5 * time.Minute,
		},
		Results: ResultsSettings{
			Dir:     ".anntune",
			Backend: BackendJSONL,
		},
	}
}

// Knob returns the named knob definition.
func (c *TuningConfig) Knob(name string) (Knob, bool) {
	for _, k := range c.Knobs {
		if k.Name == name {
			return k, true
		}
	}
	return Knob{}, false
}

// Validate checks the configuration for structural errors.
func (c *TuningConfig) Validate() error {
	if len(c.Knobs) == 0 {
		return fmt.Errorf("%w: no knobs defined", ErrInvalidInput)
	}

	seen := make(map[string]bool, len(c.Knobs))
	for _, k := range c.Knobs {
		if err := k.Validate(); err != nil {
			return err
		}
		if seen[k.Name] {
			return fmt.Errorf("%w: duplicate knob %s", ErrInvalidInput, k.Name)
		}
		seen[k.Name] = true
	}

	for i, entry := range c.Shortlist {
		for name, v := range entry.Values {
			if !seen[name] {
				return fmt.Errorf("%w: shortlist entry %d references unknown knob %s", ErrInvalidInput, i+1, name)
			}
			k, _ := c.Knob(name)
			if err := k.CheckValue(fmt.Sprintf("shortlist entry %d value", i+1), v); err != nil {
				return err
			}
		}
	}

	if c.Sweep.Knob != "" {
		if !seen[c.Sweep.Knob] {
			return fmt.Errorf("%w: sweep knob %s is not defined", ErrInvalidInput, c.Sweep.Knob)
		}
		k, _ := c.Knob(c.Sweep.Knob)
		for _, v := range c.Sweep.Values {
			if err := k.CheckValue("sweep value", v); err != nil {
				return err
			}
		}
		for name, v := range c.Sweep.Fixed {
			if !seen[name] {
				return fmt.Errorf("%w: sweep fixes unknown knob %s", ErrInvalidInput, name)
			}
			fixed, _ := c.Knob(name)
			if err := fixed.CheckValue("sweep fixed value", v); err != nil {
				return err
			}
		}
	}

	if c.Target.Source == "" {
		return fmt.Errorf("%w: target source is empty", ErrInvalidInput)
	}
	if len(c.Target.Markers) == 0 {
		return fmt.Errorf("%w: no marker patterns", ErrInvalidInput)
	}
	if !slices.ContainsFunc(c.Target.Markers, func(m string) bool {
		return m != "" && strings.Contains(c.Target.MarkerComment, m)
	}) {
		return fmt.Errorf("%w: marker comment %q does not contain a marker, so the block cannot be found again",
			ErrInvalidInput, c.Target.MarkerComment)
	}
	if c.Target.Window <= 0 {
		return fmt.Errorf("%w: marker window must be positive", ErrInvalidInput)
	}

	if c.Build.Compiler == "" {
		return fmt.Errorf("%w: compiler is empty", ErrInvalidInput)
	}
	if c.Build.Output == "" {
		return fmt.Errorf("%w: build output is empty", ErrInvalidInput)
	}

	for _, d := range []time.Duration{c.Trial.GridTimeout, c.Trial.ShortlistTimeout, c.Trial.SweepTimeout} {
		if d <= 0 {
			return fmt.Errorf("%w: trial timeouts must be positive", ErrInvalidInput)
		}
	}

	if !slices.Contains([]string{BackendJSONL, BackendSQLite}, c.Results.Backend) {
		return fmt.Errorf("%w: results backend %q", ErrUnsupportedType, c.Results.Backend)
	}

	return nil
}
