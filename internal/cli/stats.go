package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"satforge/internal/dataset"
)

var statsFile string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show question bank statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if statsFile != "" {
			return fileStats(statsFile)
		}

		conn, questions, reviews, err := openStore()
		if err != nil {
			return err
		}
		defer conn.Close()

		ctx := cmd.Context()
		total, err := questions.CountQuestions(ctx)
		if err != nil {
			return err
		}
		breakdown, err := questions.DomainBreakdown(ctx)
		if err != nil {
			return err
		}
		due, err := reviews.DueCount(ctx, time.Now().UTC())
		if err != nil {
			return err
		}

		fmt.Printf("Questions: %s\n", successLabel(total))
		for _, dc := range breakdown {
			fmt.Printf("  %-28s %d\n", dc.Domain, dc.Count)
		}
		fmt.Printf("Due for review: %s\n", stepLabel(due))
		return nil
	},
}

func fileStats(path string) error {
	ds, err := dataset.Load(path)
	if err != nil {
		return err
	}

	domains := map[string]int{}
	flagged := 0
	withExplanation := 0
	for _, q := range ds.Questions {
		if q.Domain != "" {
			domains[q.Domain]++
		}
		if q.NeedsReview {
			flagged++
		}
		if q.Explanation != "" {
			withExplanation++
		}
	}

	fmt.Printf("Questions: %s (extracted %s with %s)\n",
		successLabel(ds.TotalCount), ds.Metadata.ExtractionDate, ds.Metadata.ModelUsed)
	for domain, n := range domains {
		fmt.Printf("  %-28s %d\n", domain, n)
	}
	fmt.Printf("With explanations: %d\n", withExplanation)
	if flagged > 0 {
		fmt.Printf("%s %d questions flagged for review\n", warnLabel("note:"), flagged)
	}
	return nil
}

func init() {
	statsCmd.Flags().StringVarP(&statsFile, "file", "f", "", "read stats from a dataset file instead of the database")
	rootCmd.AddCommand(statsCmd)
}
