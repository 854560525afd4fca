package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/logiclamp/leadscout/internal/export"
	"github.com/logiclamp/leadscout/internal/model"
	"github.com/logiclamp/leadscout/internal/store"
)

var (
	outreachID       string
	outreachCount    int
	outreachMinScore int
	outreachExport   bool
)

// outreachWindow is how many candidates are listed when picking leads
// that still lack an email.
const outreachWindow = 500

var outreachCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Draft outreach emails for top leads",
	Long:  "Runs Claude enrichment with email drafting for one lead (--id) or for the best-scoring leads that have no outreach email yet.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("outreach"); err != nil {
			return err
		}

		enricher := initEnricher(true)
		if enricher == nil {
			return eris.New("outreach requires enrichment; set ai.enabled=true and LEADSCOUT_AI_KEY")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		leads, err := pickOutreachLeads(ctx, st)
		if err != nil {
			return err
		}
		if len(leads) == 0 {
			fmt.Fprintln(os.Stderr, "No leads need an outreach email.")
			return nil
		}

		fmt.Printf("Drafting emails for %d lead(s)...\n", len(leads))
		res := enricher.Enrich(ctx, leads)

		drafted := make([]model.Lead, 0, len(leads))
		for i := range leads {
			if leads[i].OutreachEmail == "" {
				continue
			}
			if err := st.UpsertLead(ctx, &leads[i]); err != nil {
				if store.IsStoreError(err) {
					return eris.Wrap(err, "save outreach email")
				}
				zap.L().Warn("lead not saved", zap.String("lead", leads[i].Name), zap.Error(err))
				continue
			}
			drafted = append(drafted, leads[i])

			fmt.Printf("\n--- %s (score %d) ---\n", leads[i].Name, leads[i].EffectiveScore())
			fmt.Println(leads[i].OutreachEmail)
		}

		fmt.Printf("\nDrafted %d email(s), %d lead(s) skipped\n", len(drafted), res.Skipped)

		if outreachExport && len(drafted) > 0 {
			w, err := export.New("outreach", cfg.Export.Dir)
			if err != nil {
				return err
			}
			rec, err := export.Run(ctx, st, w, drafted)
			if err != nil {
				return eris.Wrap(err, "export outreach emails")
			}
			fmt.Printf("Exported to %s\n", rec.Path)
		}
		return nil
	},
}

func init() {
	outreachCmd.Flags().StringVar(&outreachID, "id", "", "draft for one lead, regenerating any existing email")
	outreachCmd.Flags().IntVar(&outreachCount, "count", 5, "number of leads to draft for")
	outreachCmd.Flags().IntVar(&outreachMinScore, "min-score", 50, "minimum effective score when picking leads")
	outreachCmd.Flags().BoolVar(&outreachExport, "export", false, "write drafted emails to an export file")
	rootCmd.AddCommand(outreachCmd)
}

// pickOutreachLeads resolves the --id/--count/--min-score selection.
func pickOutreachLeads(ctx context.Context, st store.Store) ([]model.Lead, error) {
	if outreachID != "" {
		lead, err := st.GetLead(ctx, outreachID)
		if err != nil {
			return nil, eris.Wrap(err, "get lead")
		}
		if lead == nil {
			return nil, eris.Errorf("no lead with id %s", outreachID)
		}
		return []model.Lead{*lead}, nil
	}

	candidates, err := st.ListLeads(ctx, store.Filter{
		MinScore: outreachMinScore,
		Limit:    outreachWindow,
	})
	if err != nil {
		return nil, eris.Wrap(err, "list leads")
	}
	return selectMissingOutreach(candidates, outreachCount), nil
}

// selectMissingOutreach keeps the first n leads without an email draft.
// The input is already ordered best score first.
func selectMissingOutreach(leads []model.Lead, n int) []model.Lead {
	if n <= 0 {
		return nil
	}
	out := make([]model.Lead, 0, n)
	for _, l := range leads {
		if l.OutreachEmail != "" {
			continue
		}
		out = append(out, l)
		if len(out) == n {
			break
		}
	}
	return out
}
