package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gostreaming",
	Short: "Self-hosted streaming site: HLS playlists, chat, presence",
	Long:  `HTTP + WebSocket server for a small streaming community. Commands: serve, migrate, seed.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

// Execute runs the root command and returns the error for main to
// report.
func Execute() error {
	return rootCmd.Execute()
}
