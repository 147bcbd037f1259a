package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/HebesbyChloe/ingestion-control-sub001/internal/models"
)

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List search collections (-v adds last update times)",
	Args:  cobra.NoArgs,
	RunE:  runCollections,
}

type collectionRow struct {
	models.Collection
	LastUpdate *time.Time `json:"last_update,omitempty"`
}

func runCollections(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	collections, err := apiClient.ListCollections(ctx)
	if err != nil {
		return err
	}

	rows := make([]collectionRow, len(collections))
	for i, c := range collections {
		rows[i] = collectionRow{Collection: c}
		if !verbose {
			continue
		}
		upd, err := apiClient.CollectionLastUpdate(ctx, c.Name)
		if err != nil {
			logger.Warn("collection last update failed", "collection", c.Name, "error", err)
			continue
		}
		rows[i].LastUpdate = upd.LastUpdate
	}

	if structured() {
		return printStructured(os.Stdout, rows)
	}
	if len(rows) == 0 {
		fmt.Println("No collections found.")
		return nil
	}

	fmt.Printf("Collections (%d):\n\n", len(rows))
	if verbose {
		fmt.Printf("%-40s %12s  %s\n", "NAME", "DOCUMENTS", "LAST UPDATE")
	} else {
		fmt.Printf("%-40s %12s\n", "NAME", "DOCUMENTS")
	}
	fmt.Println("----------------------------------------------------------------------")
	for _, r := range rows {
		if !verbose {
			fmt.Printf("%-40s %12d\n", truncate(r.Name, 40), r.NumDocuments)
			continue
		}
		last := "-"
		if r.LastUpdate != nil {
			last = r.LastUpdate.Local().Format(time.DateTime)
		}
		fmt.Printf("%-40s %12d  %s\n", truncate(r.Name, 40), r.NumDocuments, last)
	}
	return nil
}
