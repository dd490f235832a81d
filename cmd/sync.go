package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"boardsync/internal/db"
	"boardsync/internal/fetcher"
	"boardsync/internal/models"
	"boardsync/internal/remote"
)

var (
	syncRepos      []string
	syncFix        bool
	syncInferClose bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one reconciliation pass over the tracked repositories",
	Long: `Run one reconciliation pass: refresh pipelines from the live board,
rebuild each live issue's transfer history, recompute its per-stage
durations, and close issues that vanished from the board.

Passes are idempotent; running sync twice over unchanged remote state
records nothing new. Designed to be invoked periodically (e.g. from cron).

With --fix the pass also walks the tracker's closed-issue listing and
unresolved historical stage names prompt for an operator choice instead of
failing. Never use --fix from a scheduler; it may block on input.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().StringSliceVarP(&syncRepos, "repo", "r", nil, "Only sync these repositories (default: all)")
	syncCmd.Flags().BoolVar(&syncFix, "fix", false, "Interactive repair run")
	syncCmd.Flags().BoolVar(&syncInferClose, "infer-close", false, "Close vanished issues at observation time when the tracker has no close timestamp")
}

func runSync(cmd *cobra.Command, args []string) error {
	github, zenhub, err := buildRemoteClients()
	if err != nil {
		return err
	}

	opts := fetcher.Options{
		Fix:            syncFix,
		InferCloseTime: syncInferClose,
		Log:            slog.Default(),
	}
	if syncFix {
		opts.Resolver = &fetcher.PromptOperator{In: os.Stdin, Out: os.Stdout}
	}

	f := fetcher.New(github, zenhub, opts)
	summary, err := f.Sync(context.Background(), syncRepos)
	if err != nil {
		return err
	}

	printSummary(summary)
	return nil
}

func printSummary(summary *fetcher.Summary) {
	if IsJSONOutput() {
		OutputJSON(summary)
		return
	}
	fmt.Printf("Synced %d repositories: %d issues processed, %d new transfers\n",
		summary.Repositories, summary.Processed, summary.NewTransfers)
	if summary.FailedRepositories > 0 {
		fmt.Printf("%d repositories failed\n", summary.FailedRepositories)
	}
	if summary.Skipped > 0 {
		fmt.Printf("%d issues skipped (retried next pass)\n", summary.Skipped)
	}
	if summary.Failed > 0 {
		fmt.Printf("%d issues failed\n", summary.Failed)
	}
	for _, msg := range summary.Errors {
		fmt.Fprintf(os.Stderr, "  %s\n", msg)
	}
}

// buildRemoteClients wires both API clients from stored configuration.
// BOARDSYNC_ZENHUB_URL overrides the ZenHub endpoint for testing against a
// local server.
func buildRemoteClients() (*remote.GitHubClient, *remote.ZenhubClient, error) {
	owner, err := db.GetConfig(models.ConfigGitHubOwner)
	if err != nil || owner == "" {
		return nil, nil, fmt.Errorf("GitHub owner not set. Run 'boardsync config github' first")
	}

	githubToken, err := GetGitHubToken()
	if err != nil {
		return nil, nil, err
	}
	zenhubToken, err := GetZenhubToken()
	if err != nil {
		return nil, nil, err
	}

	log := slog.Default()
	github := remote.NewGitHubClient(owner, githubToken, log)
	zenhub := remote.NewZenhubClient(os.Getenv("BOARDSYNC_ZENHUB_URL"), zenhubToken, log)
	return github, zenhub, nil
}
