package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/rules"
)

var (
	rulesFeed   string
	rulesType   string
	rulesFile   string
	rulesDryRun bool
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List, edit and reorder ingestion rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list --feed KEY --type TYPE",
	Short: "List the rules of a feed and rule type in priority order",
	Args:  cobra.NoArgs,
	RunE:  runRulesList,
}

var rulesApplyCmd = &cobra.Command{
	Use:   "apply -f plan.yaml",
	Short: "Stage a plan of rule edits and save them as one batch",
	Long: `Apply a plan file of creates, updates, deletes and moves to one
(feed, rule type) table, then save every change in one batch.

For pricing rules, changing max_price sets min_price of the next rule to
max_price + 1 unless the plan sets that min_price itself.

The batch is not atomic: if any call fails the command reports the failure
and rules that were already written stay written.

Example plan:
  feed: acme
  type: pricing
  create:
    - config: {min_price: 1001, max_price: 5000, percent: 8}
  update:
    - id: 12
      config: {max_price: 1000}
  delete: [15]
  move:
    - {id: 14, to: 0}`,
	Args: cobra.NoArgs,
	RunE: runRulesApply,
}

var rulesMoveCmd = &cobra.Command{
	Use:   "move --feed KEY --type TYPE <from> <to>",
	Short: "Move a rule to another position and renumber priorities",
	Args:  cobra.ExactArgs(2),
	RunE:  runRulesMove,
}

func init() {
	for _, c := range []*cobra.Command{rulesListCmd, rulesMoveCmd} {
		c.Flags().StringVar(&rulesFeed, "feed", "", "feed key")
		c.Flags().StringVar(&rulesType, "type", "", "rule type (pricing, origin, scoring, filter, generic)")
		_ = c.MarkFlagRequired("feed")
		_ = c.MarkFlagRequired("type")
	}
	rulesMoveCmd.Flags().BoolVar(&rulesDryRun, "dry-run", false, "show the new order without saving")

	rulesApplyCmd.Flags().StringVarP(&rulesFile, "file", "f", "", "plan file (- for stdin)")
	rulesApplyCmd.Flags().BoolVar(&rulesDryRun, "dry-run", false, "show the staged result without saving")
	_ = rulesApplyCmd.MarkFlagRequired("file")

	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesApplyCmd)
	rulesCmd.AddCommand(rulesMoveCmd)
}

func runRulesList(cmd *cobra.Command, args []string) error {
	rows, err := apiClient.ListRules(cmd.Context(), rulesFeed, rulesType)
	if err != nil {
		return err
	}
	editor := rules.NewEditor(rulesFeed, rulesType, rows)
	if structured() {
		return printStructured(os.Stdout, editor.Displayed())
	}
	printRules(editor)
	return nil
}

func runRulesApply(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	data, err := readInput(rulesFile)
	if err != nil {
		return fmt.Errorf("read plan: %w", err)
	}
	var plan rules.Plan
	if err := decodeDocument(data, &plan); err != nil {
		return err
	}
	if err := plan.Validate(); err != nil {
		return fmt.Errorf("invalid plan: %w", err)
	}

	rows, err := apiClient.ListRules(ctx, plan.Feed, plan.Type)
	if err != nil {
		return err
	}
	editor := rules.NewEditor(plan.Feed, plan.Type, rows)
	if err := plan.Apply(editor); err != nil {
		return fmt.Errorf("apply plan: %w", err)
	}

	return stageAndSave(cmd, editor)
}

func runRulesMove(cmd *cobra.Command, args []string) error {
	from, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid from index %q", args[0])
	}
	to, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid to index %q", args[1])
	}

	rows, err := apiClient.ListRules(cmd.Context(), rulesFeed, rulesType)
	if err != nil {
		return err
	}
	editor := rules.NewEditor(rulesFeed, rulesType, rows)
	if err := editor.Move(from, to); err != nil {
		return err
	}
	return stageAndSave(cmd, editor)
}

// stageAndSave prints the staged table and, unless --dry-run, saves it.
func stageAndSave(cmd *cobra.Command, editor *rules.Editor) error {
	if !editor.HasPendingChanges() {
		fmt.Println("No changes.")
		return nil
	}

	counts := editor.Counts()
	if !structured() {
		printRules(editor)
		fmt.Printf("\nPending: %d creates, %d updates, %d deletes\n", counts.Creates, counts.Changes, counts.Deletes)
		if editor.RuleType() == models.RuleTypePricing {
			for _, b := range editor.PriceBands() {
				if !b.Valid() {
					fmt.Printf("Warning: rule %s has an invalid price range\n", ruleLabel(b.RuleID))
				}
			}
		}
	}

	if rulesDryRun {
		if structured() {
			return printStructured(os.Stdout, editor.Displayed())
		}
		fmt.Println("Dry run, nothing saved.")
		return nil
	}

	result, err := editor.Save(cmd.Context(), apiClient)
	if err != nil {
		return fmt.Errorf("%w (%d changes still pending, no rollback was attempted)", err, counts.Total())
	}
	if structured() {
		return printStructured(os.Stdout, result)
	}
	fmt.Printf("Saved: %d created, %d updated, %d deleted\n", len(result.Created), len(result.Updated), len(result.Deleted))
	return nil
}

func printRules(editor *rules.Editor) {
	display := editor.Displayed()
	if len(display) == 0 {
		fmt.Println("No rules found.")
		return
	}

	fmt.Printf("Rules for %s/%s (%d):\n\n", editor.FeedKey(), editor.RuleType(), len(display))
	fmt.Printf("%-5s %-8s %-8s %-8s %s\n", "PRI", "ID", "ENABLED", "STATE", "CONFIG")
	fmt.Println("--------------------------------------------------------------------------------")
	for _, r := range display {
		state := ""
		switch {
		case r.IsTemp():
			state = "new"
		case editor.IsManuallyEdited(r.ID):
			state = "edited"
		}
		cfgJSON, _ := json.Marshal(r.Config)
		fmt.Printf("%-5d %-8s %-8t %-8s %s\n", r.Priority, ruleLabel(r.ID), r.Enabled, orDash(state), truncate(string(cfgJSON), 60))
		if verbose && r.Notes != nil && *r.Notes != "" {
			fmt.Printf("      %s\n", *r.Notes)
		}
	}

	if deleted := editor.Deleted(); len(deleted) > 0 {
		fmt.Printf("\nTo be deleted (%d):\n", len(deleted))
		for _, r := range deleted {
			fmt.Printf("- %s\n", ruleLabel(r.ID))
		}
	}
}

func ruleLabel(id int64) string {
	if id < 0 {
		return "new" + strconv.FormatInt(-id, 10)
	}
	return strconv.FormatInt(id, 10)
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
