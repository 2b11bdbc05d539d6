package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"satforge/internal/dataset"
)

var importCmd = &cobra.Command{
	Use:   "import <questions.json>",
	Short: "Import a question dataset into the local database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := dataset.Load(args[0])
		if err != nil {
			return err
		}

		conn, questions, _, err := openStore()
		if err != nil {
			return err
		}
		defer conn.Close()

		if _, err := questions.ImportDataset(cmd.Context(), ds); err != nil {
			return err
		}
		fmt.Printf("%s imported %d questions into %s\n", successLabel("done"), len(ds.Questions), cfg.Database)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
