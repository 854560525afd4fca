package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show lead totals, score averages, and recent searches",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		stats, err := st.Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "load stats")
		}

		formatStats(os.Stdout, stats)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
