package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var topN int

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Show the highest-scoring leads",
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

		leads, err := st.TopLeads(ctx, topN)
		if err != nil {
			return eris.Wrap(err, "top leads")
		}

		if len(leads) == 0 {
			fmt.Fprintln(os.Stderr, "No leads found.")
			return nil
		}

		formatLeadTable(os.Stdout, leads)
		return nil
	},
}

func init() {
	topCmd.Flags().IntVar(&topN, "n", 10, "number of leads to show")
	rootCmd.AddCommand(topCmd)
}
