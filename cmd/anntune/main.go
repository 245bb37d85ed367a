// Command anntune tunes the build and search parameters of an ANN index.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/anntune/internal/adapters/driven/archive"
	"github.com/custodia-labs/anntune/internal/adapters/driven/config/file"
	"github.com/custodia-labs/anntune/internal/adapters/driven/report"
	"github.com/custodia-labs/anntune/internal/adapters/driven/source"
	"github.com/custodia-labs/anntune/internal/adapters/driven/storage/jsonl"
	"github.com/custodia-labs/anntune/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/anntune/internal/adapters/driven/toolchain"
	"github.com/custodia-labs/anntune/internal/adapters/driven/trial"
	"github.com/custodia-labs/anntune/internal/adapters/driving/cli"
	"github.com/custodia-labs/anntune/internal/core/domain"
	"github.com/custodia-labs/anntune/internal/core/ports/driven"
	"github.com/custodia-labs/anntune/internal/core/services"
	"github.com/custodia-labs/anntune/internal/logger"
)

// archiveDir is the directory under the results directory holding trial output.
const archiveDir = "logs"

func main() {
	env, err := file.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "anntune: %v\n", err)
		os.Exit(1)
	}
	logger.SetVerbose(env.Verbose)

	cli.SetConfigLoaderFactory(func(path string) driven.ConfigLoader {
		return file.NewConfigStore(path)
	})
	cli.SetBootstrap(bootstrap)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// bootstrap loads the configuration at path and wires the services over it.
func bootstrap(path string) (*cli.App, error) {
	cfg, err := file.NewConfigStore(path).Load()
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg.Results)
	if err != nil {
		return nil, err
	}

	arch, err := archive.New(filepath.Join(cfg.Results.Dir, archiveDir))
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}

	tuning := services.NewTuningService(
		*cfg,
		source.NewMutator(cfg.Target, cfg.Knobs),
		toolchain.NewBuilder(cfg.Build, cfg.Target.WorkDir),
		trial.NewRunner(cfg.Trial.Heartbeat),
		store,
		services.WithArchive(arch),
	)
	analysis := services.NewAnalysisService(cfg.Knobs, store, arch, map[string]driven.ReportRenderer{
		"html": report.NewHTMLRenderer(""),
		"csv":  report.NewCSVRenderer(),
	})

	logger.Debug("Results in %s (%s backend)", store.Path(), cfg.Results.Backend)
	return &cli.App{
		Tuning:        tuning,
		Analysis:      analysis,
		Config:        cfg,
		ResultsPath:   store.Path(),
		LoadShortlist: file.LoadShortlist,
		Close:         store.Close,
	}, nil
}

func openStore(settings domain.ResultsSettings) (driven.ResultsStore, error) {
	switch settings.Backend {
	case domain.BackendSQLite:
		s, err := sqlite.NewStore(settings.Dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case domain.BackendJSONL, "":
		s, err := jsonl.NewResultsStore(settings.Dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: results backend %q", domain.ErrUnsupportedType, settings.Backend)
	}
}
