package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lizzy-schoen/claude-approve/internal/config"
)

var version = "0.1.0"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "approve",
		Short: "Remote approvals for agent permission requests",
		Long: `claude-approve lets you approve or deny agent permission requests away
from the terminal, by voice assistant or chat, and relay follow-up prompts
back to the agent.`,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "config file path")

	rootCmd.AddCommand(
		newServeCmd(),
		newRelayCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show claude-approve version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("claude-approve v%s\n", version)
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
