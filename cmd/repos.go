package cmd

import (
	"github.com/spf13/cobra"

	"boardsync/internal/db"
	"boardsync/internal/output"
)

var reposCmd = &cobra.Command{
	Use:   "repos [name]",
	Short: "List tracked repositories, or show one in detail",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRepos,
}

func init() {
	rootCmd.AddCommand(reposCmd)
}

func runRepos(cmd *cobra.Command, args []string) error {
	formatter := output.New(IsJSONOutput())

	if len(args) == 1 {
		repo, err := db.GetRepositoryByName(args[0])
		if err != nil {
			return err
		}
		formatter.Repository(repo)
		return nil
	}

	repos, err := db.ListRepositories()
	if err != nil {
		return err
	}
	formatter.RepositoryList(repos)
	return nil
}
