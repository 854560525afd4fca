package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var viewJSON bool

var viewCmd = &cobra.Command{
	Use:   "view ID",
	Short: "Show full details of a lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		lead, err := st.GetLead(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "view lead")
		}
		if lead == nil {
			return eris.Errorf("no lead with id %s", args[0])
		}

		if viewJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(lead)
		}

		formatLeadDetail(os.Stdout, lead)
		return nil
	},
}

func init() {
	viewCmd.Flags().BoolVar(&viewJSON, "json", false, "print the lead as JSON")
	rootCmd.AddCommand(viewCmd)
}
