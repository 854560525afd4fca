package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/logiclamp/leadscout/internal/model"
)

// formatLeadTable writes a tabular list of leads to out, best first.
func formatLeadTable(out io.Writer, leads []model.Lead) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSCORE\tNAME\tCATEGORY\tLOCATION\tYEAR\tSQFT\tSOURCE")
	_, _ = fmt.Fprintln(w, "--\t-----\t----\t--------\t--------\t----\t----\t------")

	for _, l := range leads {
		score := strconv.Itoa(l.EffectiveScore())
		if l.AIScore != nil {
			score += "*"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(l.ID),
			score,
			truncate(l.Name, 30),
			truncate(l.Category, 24),
			l.City+", "+l.State,
			yearCell(l),
			sqftCell(l),
			l.Source,
		)
	}
	_ = w.Flush()
}

// formatLeadDetail writes one lead in full, including the AI analysis
// and outreach draft when present.
func formatLeadDetail(out io.Writer, l *model.Lead) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Name:\t%s\n", l.Name)
	_, _ = fmt.Fprintf(w, "ID:\t%s\n", l.ID)
	_, _ = fmt.Fprintf(w, "Address:\t%s\n", formatAddress(l))
	if l.Phone != "" {
		_, _ = fmt.Fprintf(w, "Phone:\t%s\n", l.Phone)
	}
	if l.Email != "" {
		_, _ = fmt.Fprintf(w, "Email:\t%s\n", l.Email)
	}
	if l.Website != "" {
		_, _ = fmt.Fprintf(w, "Website:\t%s\n", l.Website)
	}
	if l.ContactName != "" {
		contact := l.ContactName
		if l.ContactTitle != "" {
			contact += ", " + l.ContactTitle
		}
		_, _ = fmt.Fprintf(w, "Contact:\t%s\n", contact)
	}
	if l.Category != "" {
		_, _ = fmt.Fprintf(w, "Category:\t%s\n", l.Category)
	}
	if l.YearBuilt != nil {
		_, _ = fmt.Fprintf(w, "Year built:\t%d (%s)\n", *l.YearBuilt, l.YearBuiltConfidence)
	}
	if l.Sqft != nil {
		_, _ = fmt.Fprintf(w, "Size:\t%d sq ft (%s)\n", *l.Sqft, l.SqftConfidence)
	}
	if l.InTerritory != nil {
		_, _ = fmt.Fprintf(w, "In territory:\t%t\n", *l.InTerritory)
	}

	_, _ = fmt.Fprintf(w, "Score:\t%d (age %d, size %d, type %d, website %d, contact %d)\n",
		l.RawScore, l.Scores.Age, l.Scores.Size, l.Scores.BusinessType, l.Scores.Website, l.Scores.Contact)
	if l.AIScore != nil {
		_, _ = fmt.Fprintf(w, "AI score:\t%d\n", *l.AIScore)
	}

	_, _ = fmt.Fprintf(w, "Source:\t%s\n", sourceLine(l))
	_, _ = fmt.Fprintf(w, "Scraped:\t%s\n", l.ScrapedAt.Format("2006-01-02 15:04"))
	if l.EnrichedAt != nil {
		_, _ = fmt.Fprintf(w, "Enriched:\t%s\n", l.EnrichedAt.Format("2006-01-02 15:04"))
	}
	_ = w.Flush()

	if l.AINotes != "" {
		_, _ = fmt.Fprintf(out, "\nAI Analysis:\n%s\n", indent(l.AINotes))
	}
	if l.OutreachEmail != "" {
		_, _ = fmt.Fprintf(out, "\nOutreach Email:\n%s\n", indent(l.OutreachEmail))
	}
}

// formatStats writes the dashboard summary to out.
func formatStats(out io.Writer, stats *model.Stats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total leads:\t%d\n", stats.TotalLeads)
	pct := 0.0
	if stats.TotalLeads > 0 {
		pct = 100 * float64(stats.EnrichedLeads) / float64(stats.TotalLeads)
	}
	_, _ = fmt.Fprintf(w, "Enriched:\t%d (%.0f%%)\n", stats.EnrichedLeads, pct)
	_, _ = fmt.Fprintf(w, "Average score:\t%.1f\n", stats.AverageScore)
	_ = w.Flush()

	writeCountTable(out, "TOP CITIES", stats.ByCity)
	writeCountTable(out, "TOP CATEGORIES", stats.ByCategory)

	if len(stats.Recent) > 0 {
		_, _ = fmt.Fprintln(out, "\nRECENT SEARCHES")
		formatSearches(out, stats.Recent)
	}
}

// writeCountTable prints a name/count map sorted by count descending.
func writeCountTable(out io.Writer, header string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	type entry struct {
		name  string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, entry{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})

	_, _ = fmt.Fprintf(out, "\n%s\n", header)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", truncate(e.name, 30), e.count)
	}
	_ = w.Flush()
}

// formatSearches writes a tabular search history to out.
func formatSearches(out io.Writer, searches []model.Search) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "WHEN\tLOCATION\tCATEGORY\tSOURCE\tFOUND\tSTORED")
	_, _ = fmt.Fprintln(w, "----\t--------\t--------\t------\t-----\t------")
	for _, s := range searches {
		_, _ = fmt.Fprintf(w, "%s\t%s, %s\t%s\t%s\t%d\t%d\n",
			s.CreatedAt.Format("2006-01-02 15:04"),
			s.City, s.State,
			truncate(s.Category, 24),
			s.Source,
			s.Found,
			s.Stored,
		)
	}
	_ = w.Flush()
}

// stageLine renders one pipeline stage report for progress output.
func stageLine(sr model.StageResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %-11s %d processed", sr.Stage, sr.Processed)
	if sr.Skipped > 0 {
		fmt.Fprintf(&b, ", %d skipped", sr.Skipped)
	}
	if sr.Failed > 0 {
		fmt.Fprintf(&b, ", %d failed", sr.Failed)
	}
	fmt.Fprintf(&b, "  (%s)", sr.Duration.Round(10*time.Millisecond))
	if sr.Error != "" {
		fmt.Fprintf(&b, "  %s", sr.Error)
	}
	return b.String()
}

// sourceLine lists the primary source and any merged extras once each.
// Sources usually repeats the primary, so duplicates are dropped.
func sourceLine(l *model.Lead) string {
	seen := make(map[string]bool, len(l.Sources)+1)
	names := make([]string, 0, len(l.Sources)+1)
	for _, s := range append([]string{l.Source}, l.Sources...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		names = append(names, s)
	}
	return strings.Join(names, ", ")
}

func formatAddress(l *model.Lead) string {
	parts := make([]string, 0, 3)
	if l.Street != "" {
		parts = append(parts, l.Street)
	}
	if l.City != "" {
		parts = append(parts, l.City)
	}
	tail := l.State
	if l.Zip != "" {
		tail = strings.TrimSpace(tail + " " + l.Zip)
	}
	if tail != "" {
		parts = append(parts, tail)
	}
	return strings.Join(parts, ", ")
}

// yearCell renders the year column, marking inferred values with a tilde.
func yearCell(l model.Lead) string {
	if l.YearBuilt == nil {
		return ""
	}
	s := strconv.Itoa(*l.YearBuilt)
	if l.YearBuiltConfidence == model.ConfidenceInferred {
		s = "~" + s
	}
	return s
}

func sqftCell(l model.Lead) string {
	if l.Sqft == nil {
		return ""
	}
	s := strconv.Itoa(*l.Sqft)
	if l.SqftConfidence == model.ConfidenceInferred {
		s = "~" + s
	}
	return s
}

// truncate shortens s to max characters with an ellipsis.
func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max-3] + "..."
	}
	return s
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func indent(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}
