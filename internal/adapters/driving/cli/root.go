// Package cli provides the anntune command surface.
// Commands drive the core through driving ports; the composition root
// supplies them through SetBootstrap.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/anntune/internal/core/domain"
	"github.com/custodia-labs/anntune/internal/core/ports/driven"
	"github.com/custodia-labs/anntune/internal/core/ports/driving"
	"github.com/custodia-labs/anntune/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

// skipBootstrap marks commands that run without loading the configuration.
const skipBootstrap = "skip-bootstrap"

var (
	configPath string
	verbose    bool
)

// App holds what the commands drive once the configuration is loaded.
type App struct {
	Tuning   driving.TuningService
	Analysis driving.AnalysisService

	// Config is the effective configuration.
	Config *domain.TuningConfig

	// ResultsPath is the results table, watched by the dashboard.
	ResultsPath string

	// LoadShortlist reads a curated shortlist file.
	LoadShortlist func(path string) ([]domain.ShortlistEntry, error)

	// Close releases the results store.
	Close func() error
}

// Bootstrap loads the configuration at path and wires the services.
type Bootstrap func(path string) (*App, error)

// ConfigLoaderFactory opens the configuration file at path.
type ConfigLoaderFactory func(path string) driven.ConfigLoader

var (
	bootstrap     Bootstrap
	configLoaders ConfigLoaderFactory
	app           *App
)

// SetBootstrap sets the function that wires services before a command runs.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetConfigLoaderFactory sets how the config commands open the configuration file.
func SetConfigLoaderFactory(f ConfigLoaderFactory) {
	configLoaders = f
}

var rootCmd = &cobra.Command{
	Use:   "anntune",
	Short: "Tune approximate nearest neighbour index parameters",
	Long: `anntune sweeps the parameters of an ANN index implementation.

For every configuration it rewrites the parameter block of the source,
rebuilds the program, runs it on a dataset under a time limit, extracts
the recall and timing it prints, scores the result and appends it to a
durable results table. Analysis commands read that table.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "configuration file (default ./anntune.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show stage transitions and program output")
}

// Execute runs the root command and releases the services afterwards.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if app != nil && app.Close != nil {
		if cerr := app.Close(); cerr != nil {
			logger.Warn("closing results store: %v", cerr)
		}
	}
	app = nil
	return err
}

func setup(cmd *cobra.Command, _ []string) error {
	if verbose {
		logger.SetVerbose(true)
	}
	if cmd.Annotations[skipBootstrap] == "true" || app != nil {
		return nil
	}
	if bootstrap == nil {
		return errors.New("services not configured")
	}

	a, err := bootstrap(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	app = a
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
