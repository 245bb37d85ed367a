package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/anntune/internal/adapters/driving/tui"
	"github.com/custodia-labs/anntune/internal/logger"
)

var dashboardTop int

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"ui"},
	Short:   "Watch the results table in a terminal dashboard",
	Long: `Opens a live view of the results table. The dashboard reloads whenever a
running sweep appends a trial, so it can be left open next to anntune tune.

Controls:
  tab, shift+tab  switch between trials, frontier, impact and summary
  ↑/k, ↓/j        move through the table
  s               change the sort order of the trials tab
  r               reload now
  ?               toggle help
  q               quit`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

func init() {
	dashboardCmd.Flags().IntVarP(&dashboardTop, "top", "n", 10, "configurations in the ranking")
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	if app == nil || app.Analysis == nil {
		return errors.New("analysis service not configured")
	}

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in dashboard: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	dash, err := tui.NewApp(&tui.Ports{
		Analysis:    app.Analysis,
		ResultsPath: app.ResultsPath,
		TopK:        dashboardTop,
	})
	if err != nil {
		return fmt.Errorf("failed to create dashboard: %w", err)
	}

	restore := muteLogger()
	defer restore()

	if err := dash.WithContext(commandContext(cmd)).Run(); err != nil {
		return fmt.Errorf("dashboard error: %w", err)
	}
	return nil
}

// muteLogger discards log lines while the dashboard owns the terminal and
// returns a func that restores the previous writer.
func muteLogger() func() {
	prev := logger.Output()
	logger.SetOutput(io.Discard)
	return func() { logger.SetOutput(prev) }
}
