package main

import (
	"fmt"
	"os"

	"github.com/biodoia/agriconnect/cmd/backend/commands"
	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "agriconnect",
		Short: "AgriConnect - Multi-agent agricultural marketplace",
		Long: `AgriConnect - Multi-agent agricultural marketplace

A conversational backend that connects producers, consumers, exporters
and logistics operators through specialized LLM agents coordinated by
a supervisor.

Features:
  • Six specialized marketplace agents plus a supervisor
  • Structured extraction with JSON Schema validation
  • Human review queue for high-value and flagged outcomes
  • Multi-provider LLM registry with task-based routing
  • REST gateway with Prometheus metrics`,
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "Log level (debug, info, warn, error)")

	// Add all commands
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.AgentsCmd)
	rootCmd.AddCommand(commands.MigrateCmd)
	rootCmd.AddCommand(commands.DoctorCmd)

	// Add version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("AgriConnect version %s\n", version)
			fmt.Printf("Commit: %s\n", commit)
		},
	})

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
