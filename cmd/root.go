package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/logiclamp/leadscout/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "leadscout",
	Short: "Find and score energy-efficiency retrofit leads",
	Long:  "Searches business directories and listing feeds for commercial buildings, scores their retrofit potential, and optionally enriches the best ones with Claude analysis and outreach drafts.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
