package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/logiclamp/leadscout/internal/territory"
	"github.com/logiclamp/leadscout/pkg/geocode"
)

var geoCmd = &cobra.Command{
	Use:   "geo",
	Short: "Geocode leads and tag them against the service territory",
}

// -- geo tag --

var geoTagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Backfill coordinates and territory flags on stored leads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		shapefile, _ := cmd.Flags().GetString("shapefile")
		if shapefile != "" {
			cfg.Geo.TerritoryShapefile = shapefile
		}
		if err := cfg.Validate("geo"); err != nil {
			return err
		}

		terr, err := territory.Load(cfg.Geo.TerritoryShapefile)
		if err != nil {
			return eris.Wrap(err, "load territory")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		gc := geocode.NewClient(geocode.WithRateLimit(cfg.Geo.GeocodeRPS))
		limit, _ := cmd.Flags().GetInt("limit")

		res, err := territory.NewTagger(st, gc, terr).Tag(ctx, limit)
		if res != nil {
			fmt.Printf("Scanned %d, geocoded %d, tagged %d (%d in territory), skipped %d\n",
				res.Scanned, res.Geocoded, res.Tagged, res.InArea, res.Skipped)
		}
		if err != nil {
			return eris.Wrap(err, "territory tag")
		}
		return nil
	},
}

func init() {
	geoTagCmd.Flags().String("shapefile", "", "territory shapefile or zip (default from config)")
	geoTagCmd.Flags().Int("limit", 0, "max leads to scan (0 = default cap)")

	geoCmd.AddCommand(geoTagCmd)
	rootCmd.AddCommand(geoCmd)
}
