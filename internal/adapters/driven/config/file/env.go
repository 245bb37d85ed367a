package file

import (
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/custodia-labs/anntune/internal/core/domain"
)

// Env holds the environment overrides. Unset variables leave the file
// configuration alone.
type Env struct {
	ResultsDir     string        `envconfig:"ANNTUNE_RESULTS_DIR"`
	ResultsBackend string        `envconfig:"ANNTUNE_RESULTS_BACKEND"`
	Compiler       string        `envconfig:"ANNTUNE_COMPILER"`
	Source         string        `envconfig:"ANNTUNE_SOURCE"`
	WorkDir        string        `envconfig:"ANNTUNE_WORKDIR"`
	TrialTimeout   time.Duration `envconfig:"ANNTUNE_TRIAL_TIMEOUT"`
	Verbose        bool          `envconfig:"ANNTUNE_VERBOSE"`
}

// LoadEnv reads the ANNTUNE_* variables.
func LoadEnv() (Env, error) {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return Env{}, err
	}
	return env, nil
}

// apply overlays the set variables onto cfg.
// A trial timeout replaces the limit of every strategy.
func (e Env) apply(cfg *domain.TuningConfig) {
	setString(&cfg.Results.Dir, e.ResultsDir)
	setString(&cfg.Results.Backend, e.ResultsBackend)
	setString(&cfg.Build.Compiler, e.Compiler)
	setString(&cfg.Target.Source, e.Source)
	setString(&cfg.Target.WorkDir, e.WorkDir)

	if e.TrialTimeout > 0 {
		cfg.Trial.GridTimeout = e.TrialTimeout
		cfg.Trial.ShortlistTimeout = e.TrialTimeout
		cfg.Trial.SweepTimeout = e.TrialTimeout
	}
}
