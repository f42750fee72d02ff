package commands

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mnemod",
	Short: "Persistent semantic-memory store",
	Long: `mnemod — a persistent semantic-memory store.

Commands:
  serve     Start the memory index service
  version   Print build version`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.mnemo/config.yaml)")
}
