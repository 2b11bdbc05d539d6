package cli

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"satforge/internal/dataset"
	"satforge/internal/models"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <questions.json>",
	Short: "Export a question dataset to CSV for spreadsheet review",
	Long: `Export writes one row per question. Option lists are serialized
with the bracket-token encoding (ARRAY_START/OBJ_START) so spreadsheet
tools do not mangle the JSON structure; 'satforge import' understands
datasets only, so edit the CSV for review, not as a storage format.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := dataset.Load(args[0])
		if err != nil {
			return err
		}

		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOutput, err)
		}
		defer f.Close()

		w := csv.NewWriter(f)
		header := []string{
			"id", "question_text", "options", "correct_answer", "explanation",
			"question_type", "domain", "skill", "difficulty_level",
			"has_figure", "is_complete", "needs_review", "source_file",
		}
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}

		for _, q := range ds.Questions {
			options, err := models.EncodeOptionsTokens(q.Options)
			if err != nil {
				return fmt.Errorf("encode options for %s: %w", q.ID, err)
			}
			row := []string{
				q.ID, q.QuestionText, options, q.CorrectAnswer, q.Explanation,
				q.QuestionType, q.Domain, q.Skill, q.Difficulty,
				strconv.FormatBool(q.HasFigure),
				strconv.FormatBool(q.IsComplete),
				strconv.FormatBool(q.NeedsReview),
				q.SourceFile,
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("write row %s: %w", q.ID, err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("flush csv: %w", err)
		}

		fmt.Printf("%s exported %d questions to %s\n", successLabel("done"), len(ds.Questions), exportOutput)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "sat_questions.csv", "output CSV path")
	rootCmd.AddCommand(exportCmd)
}
