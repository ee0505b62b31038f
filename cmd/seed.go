package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mynotaurus/gostreaming/internal/database"
)

var seedsPath string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Migrate, then apply database/seeds/*.sql",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVar(
		&seedsPath, "seeds", "database/seeds", "seed source directory",
	)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := database.MigrateUp(cfg.DatabaseURL, migrationsPath); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	return db.Seed(context.Background(), seedsPath)
}
