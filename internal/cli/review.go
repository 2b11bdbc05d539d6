package cli

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	fsrs "github.com/open-spaced-repetition/go-fsrs"
	"github.com/spf13/cobra"

	"satforge/internal/ui/quiz"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Practice due questions with spaced repetition",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, _, reviews, err := openStore()
		if err != nil {
			return err
		}
		defer conn.Close()

		ctx := cmd.Context()
		if _, err := reviews.EnsureCards(ctx); err != nil {
			return err
		}

		due, err := reviews.ListDue(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		if len(due) == 0 {
			fmt.Println("No questions due. Come back later!")
			return nil
		}

		rate := func(questionID string, rating fsrs.Rating) error {
			_, err := reviews.SubmitReview(ctx, questionID, rating)
			return err
		}

		model := quiz.NewModel(due, quiz.Options{Rate: rate})
		_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}
