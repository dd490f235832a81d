package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"boardsync/internal/db"
	"boardsync/internal/output"
)

var (
	issuesRepo     string
	issuesPipeline string
	issuesNumber   int
	issuesOpenOnly bool
)

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "Browse synced issues and their stage durations",
	RunE:  runIssues,
}

func init() {
	rootCmd.AddCommand(issuesCmd)
	issuesCmd.Flags().StringVarP(&issuesRepo, "repo", "r", "", "Repository name")
	issuesCmd.Flags().StringVarP(&issuesPipeline, "pipeline", "p", "", "Only issues currently in this pipeline")
	issuesCmd.Flags().IntVarP(&issuesNumber, "number", "n", 0, "Show one issue in full")
	issuesCmd.Flags().BoolVar(&issuesOpenOnly, "open", false, "Exclude closed issues")
	issuesCmd.MarkFlagRequired("repo")
}

func runIssues(cmd *cobra.Command, args []string) error {
	repo, err := db.GetRepositoryByName(issuesRepo)
	if err != nil {
		return err
	}
	formatter := output.New(IsJSONOutput())

	if issuesNumber != 0 {
		issue, err := db.GetIssue(repo.ID, issuesNumber)
		if err != nil {
			return fmt.Errorf("issue #%d not tracked for %s: %w", issuesNumber, issuesRepo, err)
		}
		formatter.Issue(issue)
		return nil
	}

	issues, err := db.ListIssues(repo.ID)
	if err != nil {
		return err
	}

	filtered := issues[:0]
	for _, issue := range issues {
		if issuesOpenOnly && issue.IsClosed() {
			continue
		}
		if issuesPipeline != "" && issue.LatestPipelineName != issuesPipeline {
			continue
		}
		filtered = append(filtered, issue)
	}
	formatter.IssueList(filtered, repo.Name)
	return nil
}
