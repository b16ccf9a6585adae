// Package commands implements the sparkctl CLI commands.
package commands

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// httpClient is the plain HTTP client used against sparkd's debug
	// endpoint. There is no generated RPC client here: sparkd exposes no
	// ConnectRPC service schema (see DESIGN.md), only a JSON debug surface.
	httpClient = &http.Client{Timeout: 5 * time.Second}

	// outputFormat controls the output format for all commands (table or json).
	outputFormat string

	// serverAddr is the daemon address (host:port) for the debug HTTP endpoint.
	serverAddr string
)

// rootCmd is the top-level cobra command for sparkctl.
var rootCmd = &cobra.Command{
	Use:   "sparkctl",
	Short: "CLI client for the sparkd daemon",
	Long:  "sparkctl queries the sparkd daemon's debug HTTP endpoint to inspect Spark2 adjacency and FIB state.",
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "localhost:50051",
		"sparkd daemon address (host:port)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table",
		"output format: table, json")

	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
