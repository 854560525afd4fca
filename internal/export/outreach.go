package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/logiclamp/leadscout/internal/model"
)

const outreachRule = "======================================================================"

// Outreach writes drafted outreach emails as a plain-text review file.
// Leads without a drafted email are left out.
type Outreach struct {
	dir string
}

// NewOutreach writes into dir, creating it on first use.
func NewOutreach(dir string) *Outreach { return &Outreach{dir: dir} }

func (e *Outreach) Format() string { return "outreach" }

func (e *Outreach) Write(leads []model.Lead) (string, error) {
	var b strings.Builder
	n := 0
	for i := range leads {
		if leads[i].OutreachEmail == "" {
			continue
		}
		n++
		fmt.Fprintf(&b, "EMAIL #%d: %s\n", n, leads[i].Name)
		b.WriteString(outreachRule + "\n\n")
		b.WriteString(strings.TrimRight(leads[i].OutreachEmail, "\n") + "\n\n")
		b.WriteString(outreachRule + "\n\n")
	}
	if n == 0 {
		return "", eris.New("export: no outreach emails drafted")
	}

	if err := ensureDir(e.dir); err != nil {
		return "", err
	}
	path := timestampedPath(e.dir, "outreach", "txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", eris.Wrap(err, "export: write file")
	}
	return path, nil
}
