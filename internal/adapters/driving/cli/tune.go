package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/anntune/internal/core/domain"
	"github.com/custodia-labs/anntune/internal/core/ports/driving"
	"github.com/custodia-labs/anntune/internal/logger"
)

var (
	tuneStrategy  string
	tuneShortlist string
	tuneResume    bool
	tuneYes       bool
)

// stdinIsTerminal reports whether the confirmation prompt can be answered.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

var tuneCmd = &cobra.Command{
	Use:   "tune <dataset>",
	Short: "Run a parameter sweep",
	Long: `Runs every configuration of a strategy against a dataset, one trial at a time.

Strategies:
  full       Cartesian product of every knob's candidate values
  quick      reduced grid over each knob's quick values
  shortlist  curated configurations (from the config or --shortlist)
  sweep      one knob over its sweep values, the others fixed

Each trial is appended to the results table as soon as it finishes, so an
interrupted sweep keeps its progress; rerun with --resume to continue.
Sweeps estimated above the confirmation threshold ask before starting;
pass --yes to skip the prompt in scripts.`,
	Args: cobra.ExactArgs(1),
	RunE: runTune,
}

func init() {
	tuneCmd.Flags().StringVarP(&tuneStrategy, "strategy", "s", string(domain.StrategyQuick), "full, quick, shortlist or sweep")
	tuneCmd.Flags().StringVar(&tuneShortlist, "shortlist", "", "YAML file replacing the configured shortlist")
	tuneCmd.Flags().BoolVar(&tuneResume, "resume", false, "skip configurations already in the results table")
	tuneCmd.Flags().BoolVarP(&tuneYes, "yes", "y", false, "start without asking for confirmation")
	rootCmd.AddCommand(tuneCmd)
}

func runTune(cmd *cobra.Command, args []string) error {
	if app == nil || app.Tuning == nil {
		return errors.New("tuning service not configured")
	}
	ctx := commandContext(cmd)

	req, err := sweepRequest(tuneStrategy, tuneShortlist, tuneResume)
	if err != nil {
		return err
	}
	req.Dataset = args[0]

	plan, err := app.Tuning.Plan(ctx, req)
	if err != nil {
		return fmt.Errorf("plan sweep: %w", err)
	}
	printPlanHeader(cmd, plan)

	if len(plan.Configurations) == 0 {
		cmd.Println("Nothing to run.")
		return nil
	}

	if plan.RequiresConfirmation && !tuneYes {
		ok, err := confirm(cmd, plan)
		if err != nil {
			return err
		}
		if !ok {
			cmd.Println("Aborted.")
			return nil
		}
	}
	req.Confirmed = true

	knobs := app.Tuning.Knobs()
	req.Progress = func(index, total int, o domain.TrialOutcome) {
		logger.Progress("[%d/%d] %s: %s", index, total, o.Configuration.Describe(knobs), trialLine(o))
	}

	summary, err := app.Tuning.Run(ctx, req)
	if summary != nil {
		printSweepSummary(cmd, knobs, summary)
	}
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}
	if summary.Usable == 0 {
		return fmt.Errorf("%w: %d trials attempted", domain.ErrNoUsableConfiguration, summary.Attempted)
	}
	return nil
}

// sweepRequest builds a request from the shared sweep flags.
func sweepRequest(strategy, shortlistPath string, resume bool) (driving.SweepRequest, error) {
	s, err := domain.ParseStrategy(strategy)
	if err != nil {
		return driving.SweepRequest{}, err
	}

	req := driving.SweepRequest{Strategy: s, Resume: resume}
	if shortlistPath != "" {
		if s != domain.StrategyShortlist {
			return req, fmt.Errorf("%w: --shortlist requires --strategy shortlist", domain.ErrInvalidInput)
		}
		if app.LoadShortlist == nil {
			return req, errors.New("shortlist loader not configured")
		}
		entries, err := app.LoadShortlist(shortlistPath)
		if err != nil {
			return req, fmt.Errorf("load shortlist: %w", err)
		}
		req.Shortlist = entries
	}
	return req, nil
}

func confirm(cmd *cobra.Command, plan *driving.SweepPlan) (bool, error) {
	if !stdinIsTerminal() {
		return false, fmt.Errorf("%w: estimated %s for %d configurations; rerun with --yes",
			domain.ErrConfirmationRequired, formatDuration(plan.Estimate), len(plan.Configurations))
	}

	cmd.Printf("This sweep is estimated to take %s. Proceed? [y/N]: ", formatDuration(plan.Estimate))
	answer := readLine(bufio.NewReader(cmd.InOrStdin()))
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func printPlanHeader(cmd *cobra.Command, plan *driving.SweepPlan) {
	cmd.Printf("Strategy %s: %d configurations", plan.Strategy, len(plan.Configurations))
	if n := len(plan.Skipped); n > 0 {
		cmd.Printf(", %d already stored", n)
	}
	cmd.Printf("\nEstimated %s, limit %s per trial\n", formatDuration(plan.Estimate), formatDuration(plan.Timeout))
}

func trialLine(o domain.TrialOutcome) string {
	if o.Metrics == nil || o.Score == nil {
		return fmt.Sprintf("%s after %s", o.Status, formatDuration(o.Duration))
	}
	verdict := "fail"
	if o.Score.Pass {
		verdict = "pass"
	}
	return fmt.Sprintf("recall@10=%.4f search=%dms build=%.1fs score=%.2f %s",
		o.Metrics.Recall10, o.Metrics.SearchMs, float64(o.Metrics.BuildMs)/1000, o.Score.Value, verdict)
}

func printSweepSummary(cmd *cobra.Command, knobs []domain.Knob, s *driving.SweepSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Sweep %s finished in %s", s.Strategy, formatDuration(s.Elapsed))))

	rows := [][]string{
		{"attempted", fmt.Sprint(s.Attempted)},
		{"skipped", fmt.Sprint(s.Skipped)},
		{"usable", fmt.Sprint(s.Usable)},
		{"passing", fmt.Sprint(s.Passing)},
	}
	for _, st := range domain.AllStatuses() {
		if n := s.ByStatus[st]; n > 0 {
			rows = append(rows, []string{st.String(), fmt.Sprint(n)})
		}
	}
	fmt.Fprintln(out, newTable([]string{"Trials", "Count"}, rows))

	if best := bestOf(s.Outcomes); best != nil {
		fmt.Fprintf(out, "Best: %s (%s)\n", best.Configuration.Describe(knobs), trialLine(*best))
		if !best.Score.Pass {
			fmt.Fprintln(out, warnStyle.Render("No configuration met the recall and build targets."))
		}
	}
}

// bestOf returns the best passing outcome by score, or the best usable one.
func bestOf(outcomes []domain.TrialOutcome) *domain.TrialOutcome {
	var best *domain.TrialOutcome
	for i := range outcomes {
		o := &outcomes[i]
		if !o.Usable() {
			continue
		}
		switch {
		case best == nil:
			best = o
		case o.Pass() && !best.Pass():
			best = o
		case o.Pass() == best.Pass() && o.Score.Value < best.Score.Value:
			best = o
		}
	}
	return best
}

func formatDuration(d time.Duration) string {
	if d >= time.Minute {
		return d.Round(time.Second).String()
	}
	return d.Round(time.Millisecond).String()
}
