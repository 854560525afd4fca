package export

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/logiclamp/leadscout/internal/model"
)

// hubspotColumns matches HubSpot's contact/company import template.
var hubspotColumns = []string{
	"Company",
	"First Name",
	"Last Name",
	"Email",
	"Phone",
	"Address",
	"City",
	"State/Region",
	"Postal Code",
	"Website",
	"Industry",
	"Lead Score",
	"Description",
	"Notes",
}

// HubSpot writes leads as a CSV ready for HubSpot's importer.
type HubSpot struct {
	dir string
}

// NewHubSpot writes into dir, creating it on first use.
func NewHubSpot(dir string) *HubSpot { return &HubSpot{dir: dir} }

func (e *HubSpot) Format() string { return "hubspot" }

func (e *HubSpot) Write(leads []model.Lead) (string, error) {
	if err := ensureDir(e.dir); err != nil {
		return "", err
	}
	path := timestampedPath(e.dir, "hubspot", "csv")

	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrap(err, "export: create file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(hubspotColumns); err != nil {
		return "", eris.Wrap(err, "export: write header")
	}
	for i := range leads {
		if err := w.Write(hubspotRow(&leads[i])); err != nil {
			return "", eris.Wrapf(err, "export: write row for %s", leads[i].Name)
		}
	}
	return path, nil
}

// hubspotRow maps a lead to a row in hubspotColumns order. The score
// column carries the effective score, AI override included.
func hubspotRow(lead *model.Lead) []string {
	first, last := splitContactName(lead.ContactName)
	return []string{
		lead.Name,
		first,
		last,
		lead.Email,
		lead.Phone,
		lead.Street,
		lead.City,
		lead.State,
		lead.Zip,
		lead.Website,
		lead.Category,
		strconv.Itoa(lead.EffectiveScore()),
		lead.Description,
		lead.Notes,
	}
}

// splitContactName splits a full contact name into HubSpot's first and
// last name columns on the first space.
func splitContactName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	parts := strings.SplitN(full, " ", 2)
	first = parts[0]
	if len(parts) > 1 {
		last = strings.TrimSpace(parts[1])
	}
	return first, last
}
