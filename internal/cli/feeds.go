package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/client"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/feedrules"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
	"github.com/HebesbyChloe/ingestion-control-sub001/internal/validation"
)

var (
	feedsTenant    string
	feedsFile      string
	feedsForce     bool
	feedsDryRun    bool
	feedsSaveHeads bool
)

var feedsCmd = &cobra.Command{
	Use:   "feeds",
	Short: "Manage feed configurations",
}

var feedsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List feeds",
	Args:  cobra.NoArgs,
	RunE:  runFeedsList,
}

var feedsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Show one feed",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeedsGet,
}

var feedsCreateCmd = &cobra.Command{
	Use:   "create -f feed.yaml",
	Short: "Create a feed from a YAML or JSON file",
	Long: `Create a feed from a YAML or JSON document using the API field names.

If key is omitted it is derived from the label.

Examples:
  icp feeds create -f acme.yaml
  cat acme.json | icp feeds create -f -`,
	Args: cobra.NoArgs,
	RunE: runFeedsCreate,
}

var feedsDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete a feed that has no rules",
	Long: `Delete a feed. Feeds that still have ingestion rules cannot be deleted.
Requires confirmation unless --force is used.`,
	Args: cobra.ExactArgs(1),
	RunE: runFeedsDelete,
}

var feedsRulesCmd = &cobra.Command{
	Use:   "rules <key> -f rules.yaml",
	Short: "Replace a feed's filters, mappings and calculated fields",
	Long: `Replace the feed rules config (filters, fieldMappings, fieldTransformations,
calculatedFields, shardRules) with the content of a YAML or JSON file.
Only the sections present in the file are replaced.

Examples:
  icp feeds rules acme -f acme-rules.yaml --dry-run
  icp feeds rules acme -f acme-rules.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runFeedsRules,
}

var feedsHeadersCmd = &cobra.Command{
	Use:   "headers <key>",
	Short: "Probe a feed source for its column headers",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeedsHeaders,
}

func init() {
	feedsListCmd.Flags().StringVar(&feedsTenant, "tenant", "", "only feeds of this tenant")
	feedsCreateCmd.Flags().StringVarP(&feedsFile, "file", "f", "", "feed document (- for stdin)")
	_ = feedsCreateCmd.MarkFlagRequired("file")
	feedsDeleteCmd.Flags().BoolVar(&feedsForce, "force", false, "skip confirmation")
	feedsRulesCmd.Flags().StringVarP(&feedsFile, "file", "f", "", "rules document (- for stdin)")
	feedsRulesCmd.Flags().BoolVar(&feedsDryRun, "dry-run", false, "show changed sections without saving")
	_ = feedsRulesCmd.MarkFlagRequired("file")
	feedsHeadersCmd.Flags().StringVar(&feedsTenant, "tenant", "", "tenant ID passed to the source")
	feedsHeadersCmd.Flags().BoolVar(&feedsSaveHeads, "save", false, "store the headers on the feed")

	feedsCmd.AddCommand(feedsListCmd)
	feedsCmd.AddCommand(feedsGetCmd)
	feedsCmd.AddCommand(feedsCreateCmd)
	feedsCmd.AddCommand(feedsDeleteCmd)
	feedsCmd.AddCommand(feedsRulesCmd)
	feedsCmd.AddCommand(feedsHeadersCmd)
}

func runFeedsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	feeds, err := apiClient.ListFeeds(ctx, feedsTenant)
	if err != nil {
		return err
	}
	if structured() {
		return printStructured(os.Stdout, feeds)
	}

	if len(feeds) == 0 {
		fmt.Println("No feeds found.")
		return nil
	}

	fmt.Printf("%-24s %-28s %-24s %-8s %s\n", "KEY", "LABEL", "COLLECTION", "ENABLED", "TENANT")
	fmt.Println("--------------------------------------------------------------------------------------------------")
	for _, f := range feeds {
		fmt.Printf("%-24s %-28s %-24s %-8t %s\n", f.Key, f.Label, orDash(f.Collection), f.Enabled, orDash(f.TenantID))
	}
	return nil
}

func runFeedsGet(cmd *cobra.Command, args []string) error {
	feed, err := apiClient.GetFeed(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return fmt.Errorf("feed not found: %s", args[0])
		}
		return err
	}
	if structured() {
		return printStructured(os.Stdout, feed)
	}

	fmt.Printf("Feed: %s\n", feed.Key)
	fmt.Printf("  Label: %s\n", feed.Label)
	fmt.Printf("  Collection: %s\n", orDash(feed.Collection))
	fmt.Printf("  Enabled: %t\n", feed.Enabled)
	if feed.FetchURL != "" {
		fmt.Printf("  Fetch: %s %s\n", orDash(feed.FetchMethod), feed.FetchURL)
	}
	if feed.ShardStrategy != "" {
		fmt.Printf("  Sharding: %s\n", feed.ShardStrategy)
	}
	if len(feed.Schema) > 0 {
		fmt.Printf("  Fields (%d):\n", len(feed.Schema))
		for _, f := range feed.Schema {
			fmt.Printf("    - %s (%s)\n", f.Name, f.Type)
		}
	}
	if r := feed.Rules; r != nil {
		fmt.Printf("  Rules: %d filters, %d mappings, %d transformations, %d calculated, %d shard\n",
			len(r.Filters), len(r.FieldMappings), len(r.FieldTransformations), len(r.CalculatedFields), len(r.ShardRules))
	}
	if m := feed.Markup; m != nil && len(m.Rules) > 0 {
		fmt.Printf("  Markup tiers (%d) on %v:\n", len(m.Rules), m.PriceFields)
		for _, t := range m.Rules {
			fmt.Printf("    - %.2f..%.2f +%.1f%%\n", t.MinPrice, t.MaxPrice, t.Percent)
		}
	}
	return nil
}

func runFeedsCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	data, err := readInput(feedsFile)
	if err != nil {
		return fmt.Errorf("read feed file: %w", err)
	}
	var feed models.Feed
	if err := decodeDocument(data, &feed); err != nil {
		return err
	}
	if feed.Key == "" {
		feed.Key = models.FeedKeyFromLabel(feed.Label)
	}

	existing, err := apiClient.ListFeeds(ctx, "")
	if err != nil {
		return err
	}
	keys := make([]string, len(existing))
	for i, f := range existing {
		keys[i] = f.Key
	}
	if err := validation.ValidateFeedKey(feed.Key, keys); err != nil {
		return err
	}
	if feed.Markup != nil {
		if err := validation.ValidateMarkup(*feed.Markup); err != nil {
			return fmt.Errorf("invalid markup rules: %w", err)
		}
	}

	created, err := apiClient.CreateFeed(ctx, feed)
	if err != nil {
		return err
	}
	if structured() {
		return printStructured(os.Stdout, created)
	}
	fmt.Printf("Created feed %s\n", created.Key)
	return nil
}

func runFeedsDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	key := args[0]

	count, err := apiClient.CountRules(ctx, key)
	if err != nil {
		return err
	}
	if !validation.CanDeleteFeed(count) {
		return fmt.Errorf("feed %s still has %d rules; delete them first", key, count)
	}

	if !feedsForce && !confirm(fmt.Sprintf("About to delete feed %s. Continue?", key)) {
		fmt.Println("Cancelled.")
		return nil
	}

	if err := apiClient.DeleteFeed(ctx, key); err != nil {
		return err
	}
	fmt.Printf("Deleted feed %s\n", key)
	return nil
}

// rulesDocument is the file format of `icp feeds rules`. Absent sections
// leave the current config untouched.
type rulesDocument struct {
	Filters              *[]models.FilterRule          `json:"filters"`
	FieldMappings        *[]models.FieldMapping        `json:"fieldMappings"`
	FieldTransformations *[]models.FieldTransformation `json:"fieldTransformations"`
	CalculatedFields     *[]models.CalculatedField     `json:"calculatedFields"`
	ShardRules           *[]models.ShardRule           `json:"shardRules"`
}

func (d rulesDocument) applyTo(cfg *models.FeedRulesConfig) {
	if d.Filters != nil {
		cfg.Filters = *d.Filters
	}
	if d.FieldMappings != nil {
		cfg.FieldMappings = *d.FieldMappings
	}
	if d.FieldTransformations != nil {
		cfg.FieldTransformations = *d.FieldTransformations
	}
	if d.CalculatedFields != nil {
		cfg.CalculatedFields = *d.CalculatedFields
	}
	if d.ShardRules != nil {
		cfg.ShardRules = *d.ShardRules
	}
}

func runFeedsRules(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	data, err := readInput(feedsFile)
	if err != nil {
		return fmt.Errorf("read rules file: %w", err)
	}
	var doc rulesDocument
	if err := decodeDocument(data, &doc); err != nil {
		return err
	}

	feed, err := apiClient.GetFeed(ctx, args[0])
	if err != nil {
		return err
	}

	session := feedrules.NewSession(*feed, feedrules.WithCache(apiClient.Cache()), feedrules.WithLogger(logger))
	session.Edit(doc.applyTo)

	if !session.IsDirty() {
		fmt.Println("No changes.")
		return nil
	}
	fmt.Printf("Changed sections: %v\n", session.DirtySections())

	if err := session.Validate(); err != nil {
		return err
	}
	if feedsDryRun {
		fmt.Println("Dry run, nothing saved.")
		return nil
	}

	if _, err := session.Save(ctx, apiClient); err != nil {
		return err
	}
	fmt.Printf("Saved rules of feed %s\n", feed.Key)
	return nil
}

func runFeedsHeaders(cmd *cobra.Command, args []string) error {
	heads, err := apiClient.FetchHeaders(cmd.Context(), args[0], feedsTenant, feedsSaveHeads)
	if err != nil {
		return err
	}
	if structured() {
		return printStructured(os.Stdout, heads)
	}
	fmt.Printf("Headers of %s (%d):\n", args[0], len(heads.Headers))
	for _, h := range heads.Headers {
		fmt.Printf("- %s\n", h)
	}
	if heads.Saved {
		fmt.Println("Saved to feed schema.")
	}
	return nil
}
