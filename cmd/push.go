package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/logiclamp/leadscout/internal/crm"
	"github.com/logiclamp/leadscout/internal/model"
	"github.com/logiclamp/leadscout/internal/store"
	notionpkg "github.com/logiclamp/leadscout/pkg/notion"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Send leads to a CRM",
	Long:  "Commands for pushing scored leads to Salesforce or Notion.",
}

// -- push salesforce --

var pushSalesforceCmd = &cobra.Command{
	Use:   "salesforce",
	Short: "Push leads to Salesforce",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("push-salesforce"); err != nil {
			return err
		}

		sf, err := initSalesforce()
		if err != nil {
			return err
		}

		return runPush(cmd, crm.NewSalesforce(sf))
	},
}

// -- push notion --

var pushNotionCmd = &cobra.Command{
	Use:   "notion",
	Short: "Push leads to a Notion database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("push-notion"); err != nil {
			return err
		}

		client := notionpkg.NewClient(cfg.Notion.Token)
		return runPush(cmd, crm.NewNotion(client, cfg.Notion.LeadDB))
	},
}

func init() {
	pushCmd.PersistentFlags().Int("min-score", 40, "minimum effective score to push")
	pushCmd.PersistentFlags().Int("limit", 100, "max leads to push")

	pushCmd.AddCommand(pushSalesforceCmd)
	pushCmd.AddCommand(pushNotionCmd)
	rootCmd.AddCommand(pushCmd)
}

// runPush lists leads per the shared flags and pushes them.
func runPush(cmd *cobra.Command, pusher crm.Pusher) error {
	ctx := cmd.Context()

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	minScore, _ := cmd.Flags().GetInt("min-score")
	limit, _ := cmd.Flags().GetInt("limit")

	leads, err := listPushable(ctx, st, minScore, limit)
	if err != nil {
		return err
	}
	if len(leads) == 0 {
		fmt.Fprintln(os.Stderr, "No leads to push.")
		return nil
	}

	fmt.Printf("Pushing %d lead(s) to %s...\n", len(leads), pusher.Name())
	res, err := pusher.Push(ctx, leads)
	printPushResult(res)
	if err != nil {
		return eris.Wrapf(err, "push %s", pusher.Name())
	}
	return nil
}

func listPushable(ctx context.Context, st store.Store, minScore, limit int) ([]model.Lead, error) {
	leads, err := st.ListLeads(ctx, store.Filter{MinScore: minScore, Limit: limit})
	if err != nil {
		return nil, eris.Wrap(err, "list leads")
	}
	return leads, nil
}

func printPushResult(res crm.PushResult) {
	fmt.Printf("Created %d, updated %d, skipped %d, failed %d\n",
		res.Created, res.Updated, res.Skipped, res.Failed)
	for _, msg := range res.Errors {
		fmt.Fprintln(os.Stderr, "  "+msg)
	}
}
