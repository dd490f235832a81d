package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"boardsync/internal/db"
	"boardsync/internal/models"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the boardsync database",
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Force reinitialize")
}

func runInit(cmd *cobra.Command, args []string) error {
	dbPath, err := db.GetDefaultDBPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(dbPath); err == nil {
		if !forceInit {
			return fmt.Errorf("already initialized at %s. Use --force to reinitialize", dbPath)
		}
		if err := os.Remove(dbPath); err != nil {
			return fmt.Errorf("failed to remove existing database: %w", err)
		}
	}

	database, err := db.InitDB(dbPath)
	if err != nil {
		return err
	}

	if err := database.Create(&models.Config{Key: models.ConfigSchemaVersion, Value: db.SchemaVersion}).Error; err != nil {
		return fmt.Errorf("failed to save schema version: %w", err)
	}
	if err := database.Create(&models.Config{Key: models.ConfigInitializedAt, Value: time.Now().Format(time.RFC3339)}).Error; err != nil {
		return fmt.Errorf("failed to save initialization time: %w", err)
	}

	if IsJSONOutput() {
		OutputJSON(map[string]interface{}{"success": true, "path": dbPath})
		return nil
	}

	fmt.Printf("boardsync initialized in %s\n", filepath.Dir(dbPath))
	fmt.Println("\nNext steps:")
	fmt.Println("  boardsync config github         Store GitHub owner and token")
	fmt.Println("  boardsync config zenhub         Store ZenHub token")
	fmt.Println("  boardsync setup                 Register repositories to track")

	return nil
}
