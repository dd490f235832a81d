package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"boardsync/internal/db"
	"boardsync/internal/fetcher"
	"boardsync/internal/output"
)

var (
	durationsRepo  string
	durationsIssue int
)

var durationsCmd = &cobra.Command{
	Use:   "durations",
	Short: "Recompute one issue's per-stage durations",
	Long: `Print an issue's ordered transfer history and its per-stage durations
recomputed from scratch at the current time. Diagnostic counterpart of the
computation every sync pass performs; nothing is persisted.`,
	RunE: runDurations,
}

func init() {
	rootCmd.AddCommand(durationsCmd)
	durationsCmd.Flags().StringVarP(&durationsRepo, "repo", "r", "", "Repository name")
	durationsCmd.Flags().IntVarP(&durationsIssue, "issue", "i", 0, "Issue number")
	durationsCmd.MarkFlagRequired("repo")
	durationsCmd.MarkFlagRequired("issue")
}

func runDurations(cmd *cobra.Command, args []string) error {
	repo, err := db.GetRepositoryByName(durationsRepo)
	if err != nil {
		return err
	}
	issue, err := db.GetIssue(repo.ID, durationsIssue)
	if err != nil {
		return fmt.Errorf("issue #%d not tracked for %s: %w", durationsIssue, durationsRepo, err)
	}

	transfers, err := db.TransfersForIssue(issue.ID)
	if err != nil {
		return err
	}
	durations, err := fetcher.AccumulateDurations(transfers, issue.Number, time.Now())
	if err != nil {
		return err
	}

	formatter := output.New(IsJSONOutput())
	if IsJSONOutput() {
		formatter.JSON(map[string]interface{}{
			"issue":     issue.Number,
			"transfers": transfers,
			"durations": durations,
		})
		return nil
	}
	formatter.Transfers(transfers)
	formatter.Durations(durations)
	return nil
}
