package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/validation"
)

var schedulesForce bool

var schedulesCmd = &cobra.Command{
	Use:     "schedules",
	Aliases: []string{"schedule"},
	Short:   "List and run scheduler jobs",
}

var schedulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedules with their cron in plain words",
	Args:  cobra.NoArgs,
	RunE:  runSchedulesList,
}

var schedulesExecuteCmd = &cobra.Command{
	Use:   "execute <id>",
	Short: "Trigger a schedule run now",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchedulesExecute,
}

func init() {
	schedulesExecuteCmd.Flags().BoolVarP(&schedulesForce, "force", "f", false, "skip confirmation")

	schedulesCmd.AddCommand(schedulesListCmd)
	schedulesCmd.AddCommand(schedulesExecuteCmd)
}

func runSchedulesList(cmd *cobra.Command, args []string) error {
	schedules, err := apiClient.ListSchedules(cmd.Context())
	if err != nil {
		return err
	}
	if structured() {
		return printStructured(os.Stdout, schedules)
	}
	if len(schedules) == 0 {
		fmt.Println("No schedules found.")
		return nil
	}

	fmt.Printf("Schedules (%d):\n\n", len(schedules))
	fmt.Printf("%-24s %-28s %-30s %-8s %-10s %s\n", "ID", "NAME", "WHEN", "ENABLED", "RUNS", "LAST RUN")
	fmt.Println("----------------------------------------------------------------------------------------------------------------------")
	for _, s := range schedules {
		lastRun := "-"
		if s.LastRunAt != nil {
			lastRun = s.LastRunAt.Local().Format(time.DateTime)
		}
		fmt.Printf("%-24s %-28s %-30s %-8t %-10s %s\n",
			truncate(s.ID, 24), truncate(s.Name, 28), truncate(validation.CronToHuman(s.Cron), 30),
			s.Enabled, fmt.Sprintf("%d/%d", s.RunCount-s.ErrorCount, s.RunCount), lastRun)
		if verbose && s.LastError != nil && *s.LastError != "" {
			fmt.Printf("  last error: %s\n", *s.LastError)
		}
	}
	return nil
}

func runSchedulesExecute(cmd *cobra.Command, args []string) error {
	id := args[0]
	if !schedulesForce && isTerminal() && !confirm(fmt.Sprintf("Run schedule %s now?", id)) {
		fmt.Println("Cancelled.")
		return nil
	}

	exec, err := apiClient.ExecuteSchedule(cmd.Context(), id)
	if err != nil {
		return err
	}
	if structured() {
		return printStructured(os.Stdout, exec)
	}
	fmt.Printf("Schedule %s: %s\n", id, orDash(exec.Status))
	if exec.JobID != "" {
		fmt.Printf("  job:     %s\n", exec.JobID)
	}
	if exec.Message != "" {
		fmt.Printf("  message: %s\n", exec.Message)
	}
	return nil
}
