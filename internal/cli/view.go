package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"satforge/internal/dataset"
	"satforge/internal/models"
	"satforge/internal/ui/quiz"
)

var viewFile string

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Browse and practice the question bank in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var questions []models.QuestionRecord

		if viewFile != "" {
			ds, err := dataset.Load(viewFile)
			if err != nil {
				return err
			}
			questions = ds.Questions
		} else {
			conn, store, _, err := openStore()
			if err != nil {
				return err
			}
			defer conn.Close()
			questions, err = store.ListQuestions(cmd.Context())
			if err != nil {
				return err
			}
		}

		if len(questions) == 0 {
			return fmt.Errorf("no questions to show; run 'satforge extract' first")
		}

		model := quiz.NewModel(questions, quiz.Options{})
		_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
		return err
	},
}

func init() {
	viewCmd.Flags().StringVarP(&viewFile, "file", "f", "", "read questions from a dataset file instead of the database")
	rootCmd.AddCommand(viewCmd)
}
