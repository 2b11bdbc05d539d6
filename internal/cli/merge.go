package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"satforge/internal/dataset"
)

var mergeOutput string

var mergeCmd = &cobra.Command{
	Use:   "merge <questions.json> <explanations.json>",
	Short: "Merge a standalone explanations document into a question dataset by id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := dataset.Load(args[0])
		if err != nil {
			return err
		}
		doc, err := dataset.LoadExplanations(args[1])
		if err != nil {
			return err
		}

		matched := dataset.MergeExplanations(ds, doc, time.Now())

		out := mergeOutput
		if out == "" {
			out = args[0]
		}
		if err := dataset.Save(out, ds); err != nil {
			return err
		}

		fmt.Printf("%s matched %d of %d explanations, wrote %s\n",
			successLabel("done"), matched, len(doc.Explanations), out)
		if unmatched := len(doc.Explanations) - matched; unmatched > 0 {
			fmt.Printf("  %s %d explanations had no question with a matching id\n", warnLabel("note:"), unmatched)
		}
		return nil
	},
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "output path (default: overwrite the questions file)")
	rootCmd.AddCommand(mergeCmd)
}
