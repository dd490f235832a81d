package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"boardsync/internal/db"
)

var (
	Version    = "0.1.0"
	jsonOutput bool
	verbose    bool
)

// commandsExemptFromDB lists commands that don't require database initialization
var commandsExemptFromDB = map[string]bool{
	"init":       true,
	"version":    true,
	"help":       true,
	"completion": true,
}

var rootCmd = &cobra.Command{
	Use:   "boardsync",
	Short: "Sync kanban board history and per-stage cycle times to a local database",
	Long: `boardsync reconstructs how issues move across a ZenHub board.

It merges the board's transfer events with GitHub's creation and close
timestamps into a durable per-issue transfer history, and computes how long
each issue spent in every stage. Runs are idempotent: re-syncing never
duplicates history.

QUICK START:
  boardsync init                    # Create the local database
  boardsync config github           # Store GitHub owner and token
  boardsync config zenhub           # Store ZenHub token
  boardsync setup                   # Register repositories and run first sync
  boardsync sync                    # Periodic reconciliation pass
  boardsync issues --repo myrepo    # Browse synced issues

JSON OUTPUT: Add --json flag to any command for machine-readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging()
		if commandsExemptFromDB[cmd.Name()] {
			return nil
		}
		return db.EnsureInitialized()
	},
}

func Execute() {
	defer db.CloseDB()

	if err := rootCmd.Execute(); err != nil {
		if jsonOutput {
			OutputJSON(map[string]interface{}{"error": true, "message": err.Error()})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log engine activity to stderr")
	rootCmd.Version = Version
}

// setupLogging routes engine logs to stderr; quiet unless --verbose
func setupLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func OutputJSON(data interface{}) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(data)
}

func IsJSONOutput() bool {
	return jsonOutput
}
