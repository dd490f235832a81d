package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"boardsync/internal/db"
	"boardsync/internal/fetcher"
	"boardsync/internal/models"
	"boardsync/internal/output"
)

var setupRepos []string

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Register repositories and run the first sync",
	Long: `Register repositories to track and run the initial sync over them.

Each name is looked up on GitHub under the configured owner and stored with
its stable repository id. The first pass runs in fix mode so that stage
names appearing in old events can be mapped interactively.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
	setupCmd.Flags().StringSliceVarP(&setupRepos, "repo", "r", nil, "Repository names to track (skips the prompt)")
}

func runSetup(cmd *cobra.Command, args []string) error {
	github, zenhub, err := buildRemoteClients()
	if err != nil {
		return err
	}

	names := setupRepos
	if len(names) == 0 {
		fmt.Println("Please fill in your repository names to fetch.")
		fmt.Print("Repository names separated by commas: ")
		reader := bufio.NewReader(os.Stdin)
		raw, _ := reader.ReadString('\n')
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	if len(names) == 0 {
		return fmt.Errorf("no repositories given")
	}

	ctx := context.Background()
	formatter := output.New(IsJSONOutput())
	var tracked []string
	for _, name := range names {
		remoteRepo, err := github.GetRepository(ctx, name)
		if err != nil {
			return err
		}
		repo := models.Repository{
			RepoID: remoteRepo.ID,
			Name:   remoteRepo.Name,
		}
		err = db.GetDB().Where("repo_id = ?", remoteRepo.ID).FirstOrCreate(&repo).Error
		if err != nil {
			return fmt.Errorf("failed to track repository %s: %w", name, err)
		}
		tracked = append(tracked, repo.Name)
		formatter.Info("tracking " + repo.Name)
	}

	// First pass runs interactively so legacy stage names can be mapped
	f := fetcher.New(github, zenhub, fetcher.Options{
		Fix:      true,
		Resolver: &fetcher.PromptOperator{In: os.Stdin, Out: os.Stdout},
		Log:      slog.Default(),
	})
	summary, err := f.Sync(ctx, tracked)
	if err != nil {
		return err
	}

	printSummary(summary)
	return nil
}
