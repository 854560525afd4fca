package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/logiclamp/leadscout/internal/export"
	"github.com/logiclamp/leadscout/internal/store"
)

var (
	exportFormat   string
	exportOut      string
	exportCity     string
	exportState    string
	exportCategory string
	exportMinScore int
	exportLimit    int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write leads to a CSV, HubSpot, or XLSX file",
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

		dir := exportOut
		if dir == "" {
			dir = cfg.Export.Dir
		}
		w, err := export.New(exportFormat, dir)
		if err != nil {
			return eris.Wrapf(err, "formats: %s", strings.Join(export.Formats(), ", "))
		}

		leads, err := st.ListLeads(ctx, store.Filter{
			City:     exportCity,
			State:    exportState,
			Category: exportCategory,
			MinScore: exportMinScore,
			Limit:    exportLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list leads")
		}
		if len(leads) == 0 {
			fmt.Fprintln(os.Stderr, "No leads match the filter.")
			return nil
		}

		rec, err := export.Run(ctx, st, w, leads)
		if err != nil {
			return eris.Wrap(err, "export")
		}

		fmt.Printf("Wrote %d lead(s) to %s\n", rec.Count, rec.Path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "export format: csv, hubspot, xlsx, or outreach")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output directory (default from config)")
	exportCmd.Flags().StringVar(&exportCity, "city", "", "filter by city")
	exportCmd.Flags().StringVar(&exportState, "state", "", "filter by state")
	exportCmd.Flags().StringVar(&exportCategory, "category", "", "filter by category substring")
	exportCmd.Flags().IntVar(&exportMinScore, "min-score", 0, "minimum effective score")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 1000, "max leads to export")
	rootCmd.AddCommand(exportCmd)
}
