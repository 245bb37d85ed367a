package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/anntune/internal/core/domain"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the tuning configuration",
	Long: `Writes or shows the TOML configuration. Without a file every setting
takes its built-in default; ANNTUNE_* environment variables override both.`,
	Annotations: map[string]string{skipBootstrap: "true"},
	RunE:        runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write the default configuration",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipBootstrap: "true"},
	RunE:        runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show the effective configuration",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipBootstrap: "true"},
	RunE:        runConfigShow,
}

func init() {
	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if configLoaders == nil {
		return errors.New("config loader not configured")
	}
	loader := configLoaders(configPath)

	if _, err := os.Stat(loader.Path()); err == nil && !configForce {
		return fmt.Errorf("%s already exists; use --force to overwrite", loader.Path())
	}

	cfg := domain.DefaultTuningConfig()
	if err := loader.Save(&cfg); err != nil {
		return fmt.Errorf("write configuration: %w", err)
	}
	cmd.Printf("Wrote %s\n", loader.Path())
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if configLoaders == nil {
		return errors.New("config loader not configured")
	}
	loader := configLoaders(configPath)

	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	source := loader.Path()
	if _, err := os.Stat(source); err != nil {
		source += " (not found, using defaults)"
	}
	fmt.Fprintf(out, "Configuration: %s\n", source)
	printConfig(out, cfg)
	return nil
}

func printConfig(out io.Writer, cfg *domain.TuningConfig) {
	section(out, "Knobs")
	rows := make([][]string, len(cfg.Knobs))
	for i, k := range cfg.Knobs {
		rows[i] = []string{k.Name, k.DisplayLabel(), formatValues(k, k.Values), formatValues(k, k.Quick), k.Format(k.Default)}
	}
	fmt.Fprintln(out, newTable([]string{"Name", "Label", "Values", "Quick", "Default"}, rows))

	section(out, "Settings")
	t, b, tr, s := cfg.Target, cfg.Build, cfg.Trial, cfg.Scoring
	fmt.Fprintln(out, newTable([]string{"Setting", "Value"}, [][]string{
		{"target.workdir", t.WorkDir},
		{"target.source", t.Source},
		{"target.markers", strings.Join(t.Markers, " | ")},
		{"target.window", fmt.Sprint(t.Window)},
		{"build.command", strings.Join(slices.Concat([]string{b.Compiler}, b.Flags, b.Units), " ")},
		{"build.output", b.Output},
		{"trial.timeouts", fmt.Sprintf("grid %s, shortlist %s, sweep %s",
			formatDuration(tr.GridTimeout), formatDuration(tr.ShortlistTimeout), formatDuration(tr.SweepTimeout))},
		{"trial.estimate", formatDuration(tr.Estimate)},
		{"trial.confirm_above", formatDuration(tr.ConfirmAbove)},
		{"results", cfg.Results.Backend + " in " + cfg.Results.Dir},
		{"scoring.recall_target", fmt.Sprint(s.RecallTarget)},
		{"scoring.build_budget", fmt.Sprintf("%.0f min", s.BuildBudgetMinutes())},
		{"scoring.search_budget_ms", fmt.Sprint(s.SearchBudgetMs)},
		{"shortlist", fmt.Sprintf("%d entries", len(cfg.Shortlist))},
		{"sweep", sweepLine(cfg)},
	}))
}

func formatValues(k domain.Knob, values []float64) string {
	if len(values) == 0 {
		return "-"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = k.Format(v)
	}
	return strings.Join(parts, ", ")
}

func sweepLine(cfg *domain.TuningConfig) string {
	if cfg.Sweep.Knob == "" {
		return "-"
	}
	k, ok := cfg.Knob(cfg.Sweep.Knob)
	if !ok {
		k = domain.Knob{Name: cfg.Sweep.Knob}
	}
	return k.DisplayLabel() + " over " + formatValues(k, cfg.Sweep.Values)
}
