package export

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/logiclamp/leadscout/internal/model"
)

// csvColumns defines the ordered lead CSV output columns, shared with
// the XLSX writer.
var csvColumns = []string{
	"name",
	"street",
	"city",
	"state",
	"zip",
	"phone",
	"email",
	"website",
	"contact_name",
	"contact_title",
	"category",
	"sqft",
	"year_built",
	"raw_score",
	"ai_score",
	"effective_score",
	"description",
	"source",
	"notes",
}

// CSV writes leads as a flat CSV file.
type CSV struct {
	dir string
}

// NewCSV writes into dir, creating it on first use.
func NewCSV(dir string) *CSV { return &CSV{dir: dir} }

func (e *CSV) Format() string { return "csv" }

func (e *CSV) Write(leads []model.Lead) (string, error) {
	if err := ensureDir(e.dir); err != nil {
		return "", err
	}
	path := timestampedPath(e.dir, "leads", "csv")

	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrap(err, "export: create file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(csvColumns); err != nil {
		return "", eris.Wrap(err, "export: write header")
	}
	for i := range leads {
		if err := w.Write(csvRow(&leads[i])); err != nil {
			return "", eris.Wrapf(err, "export: write row for %s", leads[i].Name)
		}
	}
	return path, nil
}

// csvRow maps a lead to a row in csvColumns order.
func csvRow(lead *model.Lead) []string {
	return []string{
		lead.Name,
		lead.Street,
		lead.City,
		lead.State,
		lead.Zip,
		lead.Phone,
		lead.Email,
		lead.Website,
		lead.ContactName,
		lead.ContactTitle,
		lead.Category,
		intStr(lead.Sqft),
		intStr(lead.YearBuilt),
		strconv.Itoa(lead.RawScore),
		intStr(lead.AIScore),
		strconv.Itoa(lead.EffectiveScore()),
		lead.Description,
		lead.Source,
		lead.Notes,
	}
}

// intStr renders an optional measurement, empty when unknown.
func intStr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
