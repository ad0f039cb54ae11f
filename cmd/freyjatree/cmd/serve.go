package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/ssargent/freyjatree/pkg/httpapi"
)

var serveBind string

// serveCmd starts the read-only HTTP inspection server over the database
// opened by rootCmd's PersistentPreRunE.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only HTTP inspection API",
	Long: `Serve starts an HTTP server exposing /healthz, /metrics, and a
read-only key byte-range endpoint over this data directory.

Example:
  freyjatree serve --data-dir ./data --bind :8080`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := dbFromContext(cmd)
		if err != nil {
			return err
		}
		server := httpapi.NewServer(db)
		cmd.Printf("listening on %s\n", serveBind)
		return fmt.Errorf("serve failed: %w", http.ListenAndServe(serveBind, server.Router()))
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveBind, "bind", ":8080", "address to bind the HTTP server to")
}
