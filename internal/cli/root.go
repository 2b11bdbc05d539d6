// Package cli defines the satforge command tree.
package cli

import (
	"database/sql"
	"os"

	"github.com/spf13/cobra"

	"satforge/internal/config"
	"satforge/internal/db"
	"satforge/internal/services"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "satforge",
	Short: "Extract, reconcile, and practice SAT questions from PDF sets",
	Long: `satforge turns directories of split SAT PDF files into a clean,
deduplicated question bank. Question and explanation records are
extracted per file, merged across page boundaries, deduplicated, and
linked back together. The resulting bank can be browsed, practiced
with spaced repetition, or served over HTTP.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore opens the configured database and returns the services
// bound to it. The caller owns the connection.
func openStore() (*sql.DB, *services.QuestionService, *services.ReviewService, error) {
	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, nil, err
	}
	return conn, services.NewQuestionService(conn), services.NewReviewService(conn), nil
}

func newExtractionService() *services.ExtractionService {
	pdfService := services.NewPDFService()
	aiService := services.NewAIService(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIEndpoint)
	return services.NewExtractionService(pdfService, aiService, cfg.ChunkPages, cfg.MaxConcurrent, cfg.MaxRetries)
}
