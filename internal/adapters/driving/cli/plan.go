package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/anntune/internal/core/domain"
)

var (
	planStrategy  string
	planShortlist string
	planResume    bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "List the configurations a sweep would run",
	Long: `Enumerates a strategy and prints every configuration with the estimated
wall-clock time of the sweep. Nothing is built or run.`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planStrategy, "strategy", "s", string(domain.StrategyQuick), "full, quick, shortlist or sweep")
	planCmd.Flags().StringVar(&planShortlist, "shortlist", "", "YAML file replacing the configured shortlist")
	planCmd.Flags().BoolVar(&planResume, "resume", false, "leave out configurations already in the results table")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	if app == nil || app.Tuning == nil {
		return errors.New("tuning service not configured")
	}

	req, err := sweepRequest(planStrategy, planShortlist, planResume)
	if err != nil {
		return err
	}
	plan, err := app.Tuning.Plan(commandContext(cmd), req)
	if err != nil {
		return fmt.Errorf("plan sweep: %w", err)
	}

	knobs := app.Tuning.Knobs()
	headers := []string{"#"}
	for _, k := range knobs {
		headers = append(headers, k.DisplayLabel())
	}
	headers = append(headers, "Rationale")

	rows := make([][]string, len(plan.Configurations))
	for i, c := range plan.Configurations {
		row := []string{strconv.Itoa(i + 1)}
		for _, k := range knobs {
			v, _ := c.Get(k.Name)
			row = append(row, k.Format(v))
		}
		rows[i] = append(row, c.Rationale)
	}

	cmd.Println(plan.Strategy.Description())
	if len(rows) > 0 {
		cmd.Println(newTable(headers, rows))
	}
	printPlanHeader(cmd, plan)
	if plan.RequiresConfirmation {
		cmd.Println(warnStyle.Render("tune will ask for confirmation before starting (or pass --yes)."))
	}
	return nil
}
