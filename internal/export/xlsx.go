package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/logiclamp/leadscout/internal/model"
)

// XLSX writes leads as a single-sheet workbook with the CSV column set.
type XLSX struct {
	dir string
}

// NewXLSX writes into dir, creating it on first use.
func NewXLSX(dir string) *XLSX { return &XLSX{dir: dir} }

func (e *XLSX) Format() string { return "xlsx" }

func (e *XLSX) Write(leads []model.Lead) (string, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return "", eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range csvColumns {
		header.AddCell().SetString(col)
	}
	for i := range leads {
		row := sheet.AddRow()
		for _, v := range csvRow(&leads[i]) {
			row.AddCell().SetString(v)
		}
	}

	if err := ensureDir(e.dir); err != nil {
		return "", err
	}
	path := timestampedPath(e.dir, "leads", "xlsx")
	if err := f.Save(path); err != nil {
		return "", eris.Wrap(err, "export: save workbook")
	}
	return path, nil
}
