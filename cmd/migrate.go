package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Mynotaurus/gostreaming/internal/config"
	"github.com/Mynotaurus/gostreaming/internal/database"
)

var migrationsPath string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE:  runMigrateDown,
}

func init() {
	migrateCmd.PersistentFlags().StringVar(
		&migrationsPath, "path", "database/migrations", "migration source directory",
	)
	migrateCmd.AddCommand(migrateDownCmd)
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return database.MigrateUp(cfg.DatabaseURL, migrationsPath)
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return database.MigrateDown(cfg.DatabaseURL, migrationsPath)
}

func loadConfig() (*config.Config, error) {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
