package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/validation"
)

var cronRuns int

var cronCmd = &cobra.Command{
	Use:   "cron",
	Short: "Cron expression helpers",
}

var cronExplainCmd = &cobra.Command{
	Use:   "explain <expression>",
	Short: "Describe a cron expression and list its next runs",
	Long: `Describe a 5-field cron expression in plain words and list the next
activations in local time. The expression may be given as one quoted
argument or as five separate fields.

Examples:
  icp cron explain "0 */6 * * *"
  icp cron explain 30 2 * * 1-5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCronExplain,
}

type cronExplanation struct {
	Expression  string      `json:"expression"`
	Description string      `json:"description"`
	NextRuns    []time.Time `json:"next_runs"`
}

func init() {
	cronExplainCmd.Flags().IntVarP(&cronRuns, "next", "n", 5, "number of upcoming runs to list")
	cronCmd.AddCommand(cronExplainCmd)
}

func runCronExplain(cmd *cobra.Command, args []string) error {
	expr := strings.Join(args, " ")
	if err := validation.ValidateCron(expr); err != nil {
		return err
	}

	out := cronExplanation{Expression: expr, Description: validation.CronToHuman(expr)}
	at := time.Now()
	for range max(cronRuns, 0) {
		next, err := validation.NextRun(expr, at)
		if err != nil {
			return err
		}
		out.NextRuns = append(out.NextRuns, next)
		at = next
	}

	if structured() {
		return printStructured(os.Stdout, out)
	}
	fmt.Printf("%s\n  %s\n", out.Expression, out.Description)
	if len(out.NextRuns) > 0 {
		fmt.Println("\nNext runs:")
		for _, t := range out.NextRuns {
			fmt.Printf("  %s\n", t.Local().Format("Mon 2006-01-02 15:04"))
		}
	}
	return nil
}
