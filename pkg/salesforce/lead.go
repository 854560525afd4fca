package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Lead represents a Salesforce Lead record.
type Lead struct {
	ID          string `json:"Id" salesforce:"Id"`
	Company     string `json:"Company" salesforce:"Company"`
	FirstName   string `json:"FirstName" salesforce:"FirstName"`
	LastName    string `json:"LastName" salesforce:"LastName"`
	Street      string `json:"Street" salesforce:"Street"`
	City        string `json:"City" salesforce:"City"`
	State       string `json:"State" salesforce:"State"`
	PostalCode  string `json:"PostalCode" salesforce:"PostalCode"`
	Phone       string `json:"Phone" salesforce:"Phone"`
	Email       string `json:"Email" salesforce:"Email"`
	Website     string `json:"Website" salesforce:"Website"`
	Industry    string `json:"Industry" salesforce:"Industry"`
	Rating      string `json:"Rating" salesforce:"Rating"`
	LeadSource  string `json:"LeadSource" salesforce:"LeadSource"`
	Description string `json:"Description" salesforce:"Description"`
}

// leadFields are the SOQL fields selected for Lead queries.
var leadFields = []string{
	"Id", "Company", "FirstName", "LastName",
	"Street", "City", "State", "PostalCode",
	"Phone", "Email", "Website", "Industry",
	"Rating", "LeadSource", "Description",
}

// FindLeadByCompany queries Salesforce for a Lead matching the given
// company name. Returns nil if no lead is found.
func FindLeadByCompany(ctx context.Context, c Client, company string) (*Lead, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Lead WHERE Company = '%s' LIMIT 1",
		strings.Join(leadFields, ", "),
		escapeSoql(company),
	)

	var leads []Lead
	if err := c.Query(ctx, soql, &leads); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find lead by company %s", company))
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return &leads[0], nil
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
