package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"

	"boardsync/internal/db"
	"boardsync/internal/models"
	"boardsync/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage boardsync configuration",
}

var configGitHubCmd = &cobra.Command{
	Use:   "github",
	Short: "Configure GitHub integration",
	Long: `Configure GitHub access for the issue tracker side of the sync.

This command will prompt you for:
  - GitHub owner (user or organization owning the tracked repositories)
  - GitHub Personal Access Token (stored securely in system keyring)

To create a token:
  1. Go to GitHub Settings → Developer settings → Personal access tokens
  2. Generate a token with repository access
  3. Set permissions: Issues → Read
  4. Copy token immediately (shown only once)`,
	RunE: runConfigGitHub,
}

var configZenhubCmd = &cobra.Command{
	Use:   "zenhub",
	Short: "Configure ZenHub integration",
	Long: `Configure ZenHub access for the board side of the sync.

The API token is created from the ZenHub dashboard (API Tokens section)
and stored securely in the system keyring.`,
	RunE: runConfigZenhub,
}

var (
	configOwner string
	configToken string
	configShow  bool
	configClear bool
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGitHubCmd)
	configCmd.AddCommand(configZenhubCmd)

	configGitHubCmd.Flags().StringVar(&configOwner, "owner", "", "GitHub owner (user or organization)")
	configGitHubCmd.Flags().StringVar(&configToken, "token", "", "GitHub token (use stdin for security)")
	configGitHubCmd.Flags().BoolVar(&configShow, "show", false, "Show current configuration")
	configGitHubCmd.Flags().BoolVar(&configClear, "clear", false, "Clear GitHub configuration")

	configZenhubCmd.Flags().StringVar(&configToken, "token", "", "ZenHub token (use stdin for security)")
	configZenhubCmd.Flags().BoolVar(&configShow, "show", false, "Show current configuration")
	configZenhubCmd.Flags().BoolVar(&configClear, "clear", false, "Clear ZenHub configuration")
}

func runConfigGitHub(cmd *cobra.Command, args []string) error {
	if configShow {
		owner, _ := db.GetConfig(models.ConfigGitHubOwner)
		tokenSet, _ := db.GetConfig(models.ConfigGitHubTokenSet)
		showConfig("GitHub", owner, tokenSet == "true")
		return nil
	}
	if configClear {
		db.GetDB().Where("key = ?", models.ConfigGitHubOwner).Delete(&models.Config{})
		db.GetDB().Where("key = ?", models.ConfigGitHubTokenSet).Delete(&models.Config{})
		keyring.Delete(models.KeyringServiceName, models.KeyringGitHubTokenKey)
		return reportCleared("GitHub")
	}

	if configOwner != "" || configToken != "" {
		if configOwner != "" {
			if err := db.SetConfig(models.ConfigGitHubOwner, configOwner); err != nil {
				return fmt.Errorf("failed to save owner: %w", err)
			}
		}
		if configToken != "" {
			if err := storeToken(models.KeyringGitHubTokenKey, models.ConfigGitHubTokenSet, configToken); err != nil {
				return err
			}
		}
		return reportUpdated("GitHub")
	}

	// Interactive mode
	reader := bufio.NewReader(os.Stdin)
	currentOwner, _ := db.GetConfig(models.ConfigGitHubOwner)

	if currentOwner != "" {
		fmt.Printf("Owner [%s]: ", currentOwner)
	} else {
		fmt.Print("Owner (user or organization): ")
	}
	ownerInput, _ := reader.ReadString('\n')
	ownerInput = strings.TrimSpace(ownerInput)
	if ownerInput == "" {
		ownerInput = currentOwner
	}
	if ownerInput == "" {
		return fmt.Errorf("owner is required")
	}
	if err := db.SetConfig(models.ConfigGitHubOwner, ownerInput); err != nil {
		return fmt.Errorf("failed to save owner: %w", err)
	}

	if err := promptToken(reader, "GitHub", models.KeyringGitHubTokenKey, models.ConfigGitHubTokenSet); err != nil {
		return err
	}

	fmt.Println("\nGitHub integration configured")
	return nil
}

func runConfigZenhub(cmd *cobra.Command, args []string) error {
	if configShow {
		tokenSet, _ := db.GetConfig(models.ConfigZenhubTokenSet)
		showConfig("ZenHub", "", tokenSet == "true")
		return nil
	}
	if configClear {
		db.GetDB().Where("key = ?", models.ConfigZenhubTokenSet).Delete(&models.Config{})
		keyring.Delete(models.KeyringServiceName, models.KeyringZenhubTokenKey)
		return reportCleared("ZenHub")
	}

	if configToken != "" {
		if err := storeToken(models.KeyringZenhubTokenKey, models.ConfigZenhubTokenSet, configToken); err != nil {
			return err
		}
		return reportUpdated("ZenHub")
	}

	reader := bufio.NewReader(os.Stdin)
	if err := promptToken(reader, "ZenHub", models.KeyringZenhubTokenKey, models.ConfigZenhubTokenSet); err != nil {
		return err
	}
	fmt.Println("\nZenHub integration configured")
	return nil
}

func showConfig(service, owner string, tokenSet bool) {
	if IsJSONOutput() {
		result := map[string]interface{}{"token_set": tokenSet}
		if owner != "" {
			result["owner"] = owner
		}
		OutputJSON(result)
		return
	}
	fmt.Printf("%s Configuration:\n", service)
	if owner != "" {
		fmt.Printf("  Owner: %s\n", owner)
	}
	if tokenSet {
		fmt.Println("  Token: (stored in system keyring)")
	} else {
		fmt.Println("  Token: (not configured)")
	}
}

func storeToken(keyringKey, flagKey, token string) error {
	if err := keyring.Set(models.KeyringServiceName, keyringKey, token); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	if err := db.SetConfig(flagKey, "true"); err != nil {
		return fmt.Errorf("failed to save token flag: %w", err)
	}
	return nil
}

func promptToken(reader *bufio.Reader, service, keyringKey, flagKey string) error {
	fmt.Printf("%s token (paste and press Enter): ", service)
	tokenInput, _ := reader.ReadString('\n')
	tokenInput = strings.TrimSpace(tokenInput)

	if tokenInput == "" {
		if _, err := keyring.Get(models.KeyringServiceName, keyringKey); err != nil {
			return fmt.Errorf("token is required")
		}
		fmt.Println("(keeping existing token)")
		return nil
	}
	if err := storeToken(keyringKey, flagKey, tokenInput); err != nil {
		return err
	}
	fmt.Println("(token stored in system keyring)")
	return nil
}

func reportCleared(service string) error {
	output.New(IsJSONOutput()).Success(service + " configuration cleared")
	return nil
}

func reportUpdated(service string) error {
	output.New(IsJSONOutput()).Success(service + " configuration updated")
	return nil
}

// GetGitHubToken retrieves the GitHub token from environment or keyring
func GetGitHubToken() (string, error) {
	if token := os.Getenv("BOARDSYNC_GITHUB_TOKEN"); token != "" {
		return token, nil
	}
	token, err := keyring.Get(models.KeyringServiceName, models.KeyringGitHubTokenKey)
	if err != nil {
		return "", fmt.Errorf("GitHub token not found. Run 'boardsync config github' or set BOARDSYNC_GITHUB_TOKEN")
	}
	return token, nil
}

// GetZenhubToken retrieves the ZenHub token from environment or keyring
func GetZenhubToken() (string, error) {
	if token := os.Getenv("BOARDSYNC_ZENHUB_TOKEN"); token != "" {
		return token, nil
	}
	token, err := keyring.Get(models.KeyringServiceName, models.KeyringZenhubTokenKey)
	if err != nil {
		return "", fmt.Errorf("ZenHub token not found. Run 'boardsync config zenhub' or set BOARDSYNC_ZENHUB_TOKEN")
	}
	return token, nil
}
