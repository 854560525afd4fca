package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/logiclamp/leadscout/internal/model"
	"github.com/logiclamp/leadscout/internal/pipeline"
	"github.com/logiclamp/leadscout/internal/source"
	"github.com/logiclamp/leadscout/internal/store"
)

var (
	findCategory string
	findCount    int
	findSource   string
	findNoAI     bool
	findDetails  bool
)

var findCmd = &cobra.Command{
	Use:   "find CITY STATE",
	Short: "Search directories for leads in a city and score them",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if findNoAI {
			cfg.AI.Enabled = false
		}

		env, err := initPipeline(ctx, "find")
		if err != nil {
			return err
		}
		defer env.Close()

		adapters, err := selectAdapters(env, findSource)
		if err != nil {
			return err
		}

		opts := pipeline.Options{
			Adapters: adapters,
			Scorer:   env.Scorer,
			Store:    env.Store,
			Details:  findDetails,
			OnStage: func(sr model.StageResult) {
				fmt.Println(stageLine(sr))
			},
		}
		if env.Enricher != nil {
			opts.Enricher = env.Enricher
		}

		q := model.Query{
			City:     args[0],
			State:    args[1],
			Category: findCategory,
			Limit:    findCount,
		}

		if q.Category != "" {
			fmt.Printf("Searching %s for %s leads...\n", q.Location(), q.Category)
		} else {
			fmt.Printf("Searching %s for leads...\n", q.Location())
		}
		summary, err := pipeline.New(opts).Run(ctx, q)
		if err != nil {
			printSummary(summary)
			return eris.Wrap(err, "pipeline run")
		}
		printSummary(summary)

		leads, err := env.Store.ListLeads(ctx, store.Filter{
			City:     q.City,
			State:    q.State,
			Category: q.Category,
			Limit:    q.Limit,
		})
		if err != nil {
			return eris.Wrap(err, "list results")
		}
		if len(leads) == 0 {
			fmt.Fprintln(os.Stderr, "No leads found.")
			return nil
		}

		fmt.Println()
		formatLeadTable(os.Stdout, leads)
		return nil
	},
}

func init() {
	findCmd.Flags().StringVar(&findCategory, "category", "", "business category to search for (default all)")
	findCmd.Flags().IntVar(&findCount, "count", 20, "max listings to request per source")
	findCmd.Flags().StringVar(&findSource, "source", "all", "source adapter to use, or \"all\"")
	findCmd.Flags().BoolVar(&findNoAI, "no-enrich", false, "skip Claude enrichment for this run")
	findCmd.Flags().BoolVar(&findDetails, "details", false, "fetch provider detail pages before extraction")
	rootCmd.AddCommand(findCmd)
}

// selectAdapters resolves the --source flag against the registry,
// falling back to the sources enabled in config.
func selectAdapters(env *pipelineEnv, flag string) ([]source.Adapter, error) {
	switch flag {
	case "", "all":
		return env.Registry.Select(cfg.Sources.Enabled)
	default:
		a, err := env.Registry.Get(flag)
		if err != nil {
			return nil, err
		}
		return []source.Adapter{a}, nil
	}
}

// printSummary writes the per-run counters after the stage lines.
func printSummary(s *model.RunSummary) {
	if s == nil {
		return
	}
	fmt.Printf("\nFound %d, stored %d (%d merged), enriched %d in %s\n",
		s.Found, s.Stored, s.Merged, s.Enriched, s.Duration.Round(100*time.Millisecond))
	if s.Skipped > 0 || s.Failed > 0 {
		fmt.Printf("Skipped %d, failed %d\n", s.Skipped, s.Failed)
	}
	if s.Aborted {
		fmt.Fprintln(os.Stderr, "Run aborted before completion; stored leads are kept.")
	}
}
