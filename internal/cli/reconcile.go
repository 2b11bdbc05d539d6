package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"satforge/internal/dataset"
	"satforge/internal/models"
	"satforge/internal/reconcile"
)

var reconcileOutput string

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <raw-records.json>",
	Short: "Run the merge/dedupe/link passes over previously extracted raw records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read raw records %s: %w", args[0], err)
		}
		var records []models.RawRecord
		if err := json.Unmarshal(raw, &records); err != nil {
			return fmt.Errorf("decode raw records %s: %w", args[0], err)
		}

		ds, stats := reconcile.New().Run(records)
		ds.Metadata.ExtractionDate = time.Now().UTC().Format("2006-01-02 15:04:05")

		if err := dataset.Save(reconcileOutput, &ds); err != nil {
			return err
		}

		fmt.Printf("%s %d questions written to %s\n", successLabel("done"), ds.TotalCount, reconcileOutput)
		fmt.Printf("  raw records: %d, merged: %d, duplicates removed: %d, explanations matched: %d\n",
			stats.Processed, stats.Merged, stats.Deduplicated, stats.Matched)
		if stats.Unmatched > 0 {
			fmt.Printf("  %s %d explanations had no matching question\n", warnLabel("note:"), stats.Unmatched)
		}
		return nil
	},
}

func init() {
	reconcileCmd.Flags().StringVarP(&reconcileOutput, "output", "o", "sat_questions.json", "output dataset path")
	rootCmd.AddCommand(reconcileCmd)
}
