// Package export writes stored leads to handoff files: a plain CSV, a
// HubSpot import CSV, an XLSX workbook, and an outreach-email review
// file. Every successful export is recorded in export history.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/logiclamp/leadscout/internal/model"
	"github.com/logiclamp/leadscout/internal/store"
)

// Writer renders a batch of leads to a file and returns its path.
type Writer interface {
	Format() string
	Write(leads []model.Lead) (string, error)
}

// New returns the Writer for a format name.
func New(format, dir string) (Writer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return NewCSV(dir), nil
	case "hubspot":
		return NewHubSpot(dir), nil
	case "xlsx":
		return NewXLSX(dir), nil
	case "outreach":
		return NewOutreach(dir), nil
	default:
		return nil, eris.Errorf("export: unknown format %q", format)
	}
}

// Formats lists the format names New accepts.
func Formats() []string { return []string{"csv", "hubspot", "xlsx", "outreach"} }

// Run writes leads with w and lands the export in history. A history
// failure is logged but does not undo a file already on disk.
func Run(ctx context.Context, s store.Store, w Writer, leads []model.Lead) (*model.ExportRecord, error) {
	path, err := w.Write(leads)
	if err != nil {
		return nil, err
	}
	rec := &model.ExportRecord{Format: w.Format(), Path: path, Count: len(leads)}
	if err := s.RecordExport(ctx, rec); err != nil {
		zap.L().Warn("export: history not recorded",
			zap.String("path", path), zap.Error(err))
	}
	zap.L().Info("export: file written",
		zap.String("format", rec.Format),
		zap.String("path", path),
		zap.Int("leads", rec.Count),
	)
	return rec, nil
}

func timestampedPath(dir, prefix, ext string) string {
	name := fmt.Sprintf("%s_%s.%s", prefix, time.Now().Format("20060102_150405"), ext)
	return filepath.Join(dir, name)
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "export: create output dir")
	}
	return nil
}
