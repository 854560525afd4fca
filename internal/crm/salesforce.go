package crm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/logiclamp/leadscout/internal/model"
	"github.com/logiclamp/leadscout/pkg/salesforce"
)

// SalesforcePusher inserts leads as Lead sObjects.
type SalesforcePusher struct {
	client salesforce.Client
}

// NewSalesforce builds a pusher around an authenticated client.
func NewSalesforce(client salesforce.Client) *SalesforcePusher {
	return &SalesforcePusher{client: client}
}

func (p *SalesforcePusher) Name() string { return "salesforce" }

// Push inserts leads through the Collections API in batches of 200.
// Failed records are reported individually; a batch error still returns
// the outcomes collected before it.
func (p *SalesforcePusher) Push(ctx context.Context, leads []model.Lead) (PushResult, error) {
	var res PushResult
	if len(leads) == 0 {
		return res, nil
	}

	records := make([]map[string]any, len(leads))
	for i := range leads {
		records[i] = salesforceRecord(&leads[i])
	}

	results, err := salesforce.BulkInsert(ctx, p.client, "Lead", records)
	for i, r := range results {
		if r.Success {
			res.Created++
			continue
		}
		res.Failed++
		res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", leads[i].Name, strings.Join(r.Errors, "; ")))
	}
	if err != nil {
		res.Skipped = len(leads) - len(results)
		return res, err
	}

	zap.L().Info("crm: salesforce push complete",
		zap.Int("created", res.Created),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// PushOne inserts a single lead, skipping it when a Lead for the same
// company already exists.
func (p *SalesforcePusher) PushOne(ctx context.Context, lead *model.Lead) (bool, error) {
	existing, err := salesforce.FindLeadByCompany(ctx, p.client, lead.Name)
	if err != nil {
		return false, err
	}
	if existing != nil {
		zap.L().Info("crm: salesforce lead exists, skipping",
			zap.String("company", lead.Name),
			zap.String("sf_id", existing.ID),
		)
		return false, nil
	}

	if _, err := p.client.InsertOne(ctx, "Lead", salesforceRecord(lead)); err != nil {
		return false, err
	}
	return true, nil
}

// salesforceRecord maps a lead to Lead sObject fields. Salesforce
// requires Company and LastName on every Lead, so a missing contact
// falls back to "Unknown".
func salesforceRecord(lead *model.Lead) map[string]any {
	first, last := contactNameParts(lead.ContactName)
	if last == "" {
		last = "Unknown"
	}

	description := lead.Description
	if lead.AINotes != "" {
		if description != "" {
			description += "\n\n"
		}
		description += lead.AINotes
	}

	rec := map[string]any{
		"Company":     lead.Name,
		"LastName":    last,
		"Street":      lead.Street,
		"City":        lead.City,
		"State":       lead.State,
		"PostalCode":  lead.Zip,
		"Phone":       lead.Phone,
		"Email":       lead.Email,
		"Website":     lead.Website,
		"Industry":    lead.Category,
		"Rating":      ratingForScore(lead.EffectiveScore()),
		"LeadSource":  lead.Source,
		"Description": description,
	}
	if first != "" {
		rec["FirstName"] = first
	}
	return rec
}
