package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/anntune/internal/core/domain"
)

var analyzeTop int

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Summarise the results table",
	Long: `Prints the summary, the top configurations by score (lower is better),
the parameter impact of every knob and the Pareto frontier of recall
against search time.`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVarP(&analyzeTop, "top", "n", 10, "number of configurations to rank")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	if app == nil || app.Analysis == nil {
		return errors.New("analysis service not configured")
	}

	a, err := app.Analysis.Analyze(commandContext(cmd), analyzeTop)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	out := cmd.OutOrStdout()
	if a.Summary.Total == 0 {
		fmt.Fprintln(out, "No trials recorded yet.")
		return nil
	}

	printSummary(out, a)
	if a.Summary.Usable == 0 {
		return nil
	}

	section(out, fmt.Sprintf("Top %d by score", len(a.Top)))
	fmt.Fprintln(out, outcomeTable(a.Knobs, a.Top))

	for _, imp := range a.Impact {
		section(out, "Impact of "+imp.Knob.DisplayLabel())
		fmt.Fprintln(out, impactTable(imp))
	}

	section(out, "Pareto frontier (recall@10 vs search time)")
	if len(a.Frontier) == 0 {
		fmt.Fprintln(out, "No configuration meets the targets.")
		return nil
	}
	fmt.Fprintln(out, outcomeTable(a.Knobs, a.Frontier))
	return nil
}

func printSummary(out io.Writer, a *domain.Analysis) {
	s := a.Summary
	section(out, "Summary")

	rows := [][]string{
		{"trials", strconv.Itoa(s.Total)},
		{"usable", strconv.Itoa(s.Usable)},
		{"passing", strconv.Itoa(s.Passing)},
	}
	for _, st := range domain.AllStatuses() {
		if n := s.ByStatus[st]; n > 0 {
			rows = append(rows, []string{st.String(), strconv.Itoa(n)})
		}
	}
	if s.Usable > 0 {
		rows = append(rows,
			[]string{"recall@10", fmt.Sprintf("%.4f - %.4f", s.Recall10.Min, s.Recall10.Max)},
			[]string{"search ms", fmt.Sprintf("%.0f - %.0f", s.SearchMs.Min, s.SearchMs.Max)},
			[]string{"build s", fmt.Sprintf("%.1f - %.1f", s.BuildMs.Min/1000, s.BuildMs.Max/1000)},
		)
	}
	if o := s.BestRecall; o != nil {
		rows = append(rows, []string{"best recall", fmt.Sprintf("%.4f  %s", o.Metrics.Recall10, o.Configuration.Describe(a.Knobs))})
	}
	if o := s.Fastest; o != nil {
		rows = append(rows, []string{"fastest", fmt.Sprintf("%d ms  %s", o.Metrics.SearchMs, o.Configuration.Describe(a.Knobs))})
	}
	if o := s.BestScore; o != nil {
		rows = append(rows, []string{"best score", fmt.Sprintf("%.2f  %s", o.Score.Value, o.Configuration.Describe(a.Knobs))})
	}
	fmt.Fprintln(out, newTable([]string{"Metric", "Value"}, rows))

	if o := s.Recommended; o != nil {
		fmt.Fprintf(out, "Recommended: %s\n", o.Configuration.Describe(a.Knobs))
		if !o.Pass() {
			fmt.Fprintln(out, warnStyle.Render("Recommended configuration does not meet the recall and build targets."))
		}
	}
}

func impactTable(imp domain.ParameterImpact) string {
	headers := []string{imp.Knob.DisplayLabel(), "Trials", "Recall@10", "Recall@1", "Search ms", "Build s", "Pass rate"}
	rows := make([][]string, len(imp.Rows))
	for i, r := range imp.Rows {
		recall1 := "-"
		if r.AvgRecall1 != nil {
			recall1 = strconv.FormatFloat(*r.AvgRecall1, 'f', 4, 64)
		}
		rows[i] = []string{
			imp.Knob.Format(r.Value),
			strconv.Itoa(r.Count),
			strconv.FormatFloat(r.AvgRecall10, 'f', 4, 64),
			recall1,
			strconv.FormatFloat(r.AvgSearchMs, 'f', 1, 64),
			strconv.FormatFloat(r.AvgBuildMs/1000, 'f', 1, 64),
			strconv.FormatFloat(r.PassRate*100, 'f', 0, 64) + "%",
		}
	}
	return newTable(headers, rows)
}

func section(out io.Writer, title string) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, titleStyle.Render(title))
}
