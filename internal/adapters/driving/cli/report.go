package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	reportOutput string
	reportFormat string
	reportCSV    string
	reportTop    int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the HTML report",
	Long: `Writes a self-contained HTML page with a sortable table of every trial,
failed ones included, plus the summary, top configurations, parameter
impact and Pareto frontier. Use --format csv to write the table as CSV
instead, or --csv to export it alongside the page.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "report file (default <results dir>/report.<format>)")
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "html", "report format (html, csv)")
	reportCmd.Flags().StringVar(&reportCSV, "csv", "", "also write the table as CSV")
	reportCmd.Flags().IntVarP(&reportTop, "top", "n", 10, "number of configurations to rank")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	if app == nil || app.Analysis == nil {
		return errors.New("analysis service not configured")
	}

	ext, err := app.Analysis.Extension(reportFormat)
	if err != nil {
		return err
	}

	output := reportOutput
	if output == "" {
		dir := "."
		if app.Config != nil {
			dir = app.Config.Results.Dir
		}
		output = filepath.Join(dir, "report"+ext)
	}

	if err := writeReport(cmd, output, reportFormat); err != nil {
		return err
	}
	if reportCSV != "" {
		return writeReport(cmd, reportCSV, "csv")
	}
	return nil
}

func writeReport(cmd *cobra.Command, path, format string) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := app.Analysis.Report(commandContext(cmd), f, format, reportTop); err != nil {
		return fmt.Errorf("render %s report: %w", format, err)
	}
	cmd.Printf("Wrote %s\n", path)
	return nil
}
