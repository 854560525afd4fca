package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/logiclamp/leadscout/internal/model"
	"github.com/logiclamp/leadscout/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored leads, best score first",
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

		city, _ := cmd.Flags().GetString("city")
		state, _ := cmd.Flags().GetString("state")
		category, _ := cmd.Flags().GetString("category")
		minScore, _ := cmd.Flags().GetInt("min-score")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.Filter{
			City:     city,
			State:    state,
			Category: category,
			MinScore: minScore,
			Limit:    limit,
		}
		if cmd.Flags().Changed("territory") {
			inside, _ := cmd.Flags().GetBool("territory")
			filter.InTerritory = model.BoolPtr(inside)
		}

		leads, err := st.ListLeads(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "list leads")
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
	listCmd.Flags().String("city", "", "filter by city")
	listCmd.Flags().String("state", "", "filter by state")
	listCmd.Flags().String("category", "", "filter by category substring")
	listCmd.Flags().Int("min-score", 0, "minimum effective score")
	listCmd.Flags().Bool("territory", false, "only leads inside (or with =false, outside) the service territory")
	listCmd.Flags().Int("limit", 50, "max number of leads to display")
	rootCmd.AddCommand(listCmd)
}
