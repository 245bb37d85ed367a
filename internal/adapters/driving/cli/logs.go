package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/anntune/internal/core/domain"
)

var logsStream string

var logsCmd = &cobra.Command{
	Use:   "logs <trial-id>",
	Short: "Print the archived output of a trial",
	Long: `Prints the compiler diagnostics and program output archived for a trial.
The ID may be abbreviated to any unique prefix, as shown by analyze.`,
	Args: cobra.ExactArgs(1),
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().StringVar(&logsStream, "stream", "", "only print one stream (build, stdout or stderr)")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	if app == nil || app.Analysis == nil {
		return errors.New("analysis service not configured")
	}
	ctx := commandContext(cmd)

	trial, err := app.Analysis.Trial(ctx, args[0])
	if err != nil {
		return fmt.Errorf("find trial: %w", err)
	}

	var knobs []domain.Knob
	if app.Config != nil {
		knobs = app.Config.Knobs
	}
	cmd.Printf("Trial %s (%s): %s\n", trial.ID, trial.Configuration.Describe(knobs), trial.Status)
	if trial.Diagnostic != "" {
		cmd.Printf("Diagnostic:\n%s\n", trial.Diagnostic)
	}

	streams, err := app.Analysis.TrialOutput(ctx, trial.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("load output: %w", err)
	}

	printed := 0
	for _, s := range streams {
		if logsStream != "" && s.Name != logsStream {
			continue
		}
		cmd.Println(titleStyle.Render("== " + s.Name + " =="))
		cmd.Print(string(s.Data))
		if n := len(s.Data); n > 0 && s.Data[n-1] != '\n' {
			cmd.Println()
		}
		printed++
	}
	if printed == 0 {
		cmd.Println("No archived output.")
	}
	return nil
}
