package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/logiclamp/leadscout/internal/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List registered source adapters",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Adapter names are static, so no fetch layer is needed here.
		reg := source.NewRegistry(
			source.NewYellowPages(nil),
			source.NewGoogleMaps(nil),
		)
		if cfg.Sources.FeedURL != "" {
			reg.Register(source.NewFeed(nil, nil, source.FeedOptions{URL: cfg.Sources.FeedURL}))
		}

		for _, name := range reg.Names() {
			marker := " "
			if slices.Contains(cfg.Sources.Enabled, name) {
				marker = "*"
			}
			fmt.Printf("%s %s\n", marker, name)
		}
		fmt.Println("\n* enabled in config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
