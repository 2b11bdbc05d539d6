package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"satforge/internal/dataset"
	"satforge/internal/models"
)

var (
	extractQuestionsDir    string
	extractExplanationsDir string
	extractCombined        bool
	extractOutput          string
	extractImport          bool
)

var stepLabel = color.New(color.FgCyan).SprintFunc()
var successLabel = color.New(color.FgGreen).SprintFunc()
var warnLabel = color.New(color.FgYellow).SprintFunc()

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract questions from split PDF files and build the question bank",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		svc := newExtractionService()
		progress := func(step, message string, current, total int) {
			fmt.Printf("%s [%d/%d] %s\n", stepLabel(step), current, total, message)
		}

		records, report, err := svc.ExtractDirectory(ctx, extractQuestionsDir, models.RecordQuestion, progress)
		if err != nil {
			return err
		}

		explanationsDir := extractExplanationsDir
		if extractCombined {
			// Combined sets carry questions and explanations in the
			// same PDFs, so scan the question files a second time.
			explanationsDir = extractQuestionsDir
		}
		if explanationsDir != "" {
			expRecords, expReport, err := svc.ExtractDirectory(ctx, explanationsDir, models.RecordExplanation, progress)
			if err != nil {
				return err
			}
			records = append(records, expRecords...)
			if !extractCombined {
				report.Files = append(report.Files, expReport.Files...)
				report.Successful = append(report.Successful, expReport.Successful...)
				report.Failed = append(report.Failed, expReport.Failed...)
			}
		}

		fmt.Printf("%s merging, deduplicating, and linking records\n", stepLabel("reconcile"))
		ds, stats := svc.Reconcile(records, report, time.Now())

		if err := dataset.Save(extractOutput, &ds); err != nil {
			return err
		}

		fmt.Printf("%s %d questions written to %s\n", successLabel("done"), ds.TotalCount, extractOutput)
		fmt.Printf("  raw records: %d, merged: %d, duplicates removed: %d\n", stats.Processed, stats.Merged, stats.Deduplicated)
		if stats.Unmatched > 0 {
			fmt.Printf("  %s %d explanations had no matching question\n", warnLabel("note:"), stats.Unmatched)
		}
		if stats.Flagged > 0 {
			fmt.Printf("  %s %d incomplete questions flagged for review\n", warnLabel("note:"), stats.Flagged)
		}
		if len(report.Failed) > 0 {
			fmt.Printf("  %s failed files: %v\n", warnLabel("warning:"), report.Failed)
		}

		if !extractImport {
			return nil
		}
		conn, questions, _, err := openStore()
		if err != nil {
			return err
		}
		defer conn.Close()
		if _, err := questions.ImportDataset(ctx, &ds); err != nil {
			return err
		}
		fmt.Printf("%s imported into %s\n", successLabel("done"), cfg.Database)
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractQuestionsDir, "questions", "q", "", "directory of question PDF files (required)")
	extractCmd.Flags().StringVarP(&extractExplanationsDir, "explanations", "e", "", "directory of explanation PDF files")
	extractCmd.Flags().BoolVar(&extractCombined, "combined", false, "question PDFs also contain the explanations")
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "sat_questions.json", "output dataset path")
	extractCmd.Flags().BoolVar(&extractImport, "import", false, "import the result into the question database")
	_ = extractCmd.MarkFlagRequired("questions")
	extractCmd.MarkFlagsMutuallyExclusive("explanations", "combined")
	rootCmd.AddCommand(extractCmd)
}
