package cli

import (
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"satforge/internal/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the extraction and question bank API over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, questions, reviews, err := openStore()
		if err != nil {
			return err
		}
		defer conn.Close()

		server := api.NewServer(newExtractionService(), questions, reviews, cfg.UploadDir, cfg.DataDir)

		log.Printf("listening on %s", serveAddr)
		srv := &http.Server{
			Addr:         serveAddr,
			Handler:      server.Handler(),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
		}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	rootCmd.AddCommand(serveCmd)
}
