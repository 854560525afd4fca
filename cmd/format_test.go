//go:build !integration

package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/logiclamp/leadscout/internal/model"
)

func tableLead() model.Lead {
	return model.Lead{
		ID:                  "8d7f41c2-5f09-4a4a-9f3e-121212121212",
		Name:                "Maple Grove Shopping Center",
		Street:              "4200 Morse Rd",
		City:                "Columbus",
		State:               "OH",
		Zip:                 "43230",
		Category:            "Shopping Centers & Malls",
		Source:              "yellowpages",
		RawScore:            61,
		YearBuilt:           model.IntPtr(1987),
		YearBuiltConfidence: model.ConfidenceMeasured,
		Sqft:                model.IntPtr(85000),
		SqftConfidence:      model.ConfidenceInferred,
		ScrapedAt:           time.Date(2025, 6, 12, 9, 30, 0, 0, time.UTC),
	}
}

func TestFormatLeadTable(t *testing.T) {
	lead := tableLead()
	long := tableLead()
	long.ID = "0199aa00-0000-0000-0000-000000000000"
	long.Name = "The Greater Columbus Convention and Exhibition Center"
	long.AIScore = model.IntPtr(78)

	var buf bytes.Buffer
	formatLeadTable(&buf, []model.Lead{lead, long})
	out := buf.String()

	assert.Contains(t, out, "SCORE")
	assert.Contains(t, out, "8d7f41c2")
	assert.Contains(t, out, "Maple Grove Shopping Center")
	assert.Contains(t, out, "Columbus, OH")

	// AI-refined scores are starred, plain raw scores are not.
	assert.Contains(t, out, "78*")
	assert.NotContains(t, out, "61*")

	// Long names are truncated with an ellipsis.
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, "Exhibition Center")
}

func TestFormatLeadTable_MarksInferredValues(t *testing.T) {
	lead := tableLead()

	var buf bytes.Buffer
	formatLeadTable(&buf, []model.Lead{lead})

	assert.Contains(t, buf.String(), "1987")
	assert.NotContains(t, buf.String(), "~1987")
	assert.Contains(t, buf.String(), "~85000")
}

func TestFormatLeadDetail(t *testing.T) {
	lead := tableLead()
	lead.Phone = "(614) 555-0142"
	lead.ContactName = "Dana Whitfield"
	lead.ContactTitle = "Property Manager"
	lead.AIScore = model.IntPtr(82)
	lead.AINotes = "Aging retail stock with long nightly lighting hours."
	lead.OutreachEmail = "Subject: Cut lighting costs at Maple Grove\n\nHi Dana,"
	lead.Sources = []string{"yellowpages", "googlemaps"}

	var buf bytes.Buffer
	formatLeadDetail(&buf, &lead)
	out := buf.String()

	assert.Contains(t, out, "Maple Grove Shopping Center")
	assert.Contains(t, out, "4200 Morse Rd, Columbus, OH 43230")
	assert.Contains(t, out, "Dana Whitfield, Property Manager")
	assert.Contains(t, out, "Year built:")
	assert.Contains(t, out, "1987 (measured)")
	assert.Contains(t, out, "85000 sq ft (inferred)")
	assert.Contains(t, out, "AI score:")
	assert.Contains(t, out, "yellowpages, googlemaps")
	assert.NotContains(t, out, "yellowpages, yellowpages")
	assert.Contains(t, out, "AI Analysis:\n  Aging retail stock")
	assert.Contains(t, out, "Outreach Email:\n  Subject: Cut lighting costs")
}

func TestFormatLeadDetail_OmitsEmptySections(t *testing.T) {
	lead := model.Lead{ID: "x", Name: "Bare Lead", Source: "feed"}

	var buf bytes.Buffer
	formatLeadDetail(&buf, &lead)
	out := buf.String()

	assert.NotContains(t, out, "Phone:")
	assert.NotContains(t, out, "Year built:")
	assert.NotContains(t, out, "AI Analysis:")
	assert.NotContains(t, out, "Outreach Email:")
}

func TestFormatStats(t *testing.T) {
	stats := &model.Stats{
		TotalLeads:    40,
		EnrichedLeads: 10,
		AverageScore:  58.4,
		ByCity:        map[string]int{"Columbus": 25, "Cleveland": 15},
		ByCategory:    map[string]int{"Office Buildings": 30, "Warehouses": 10},
		Recent: []model.Search{{
			City:      "Columbus",
			State:     "OH",
			Category:  "Office Buildings",
			Source:    "yellowpages",
			Found:     32,
			Stored:    28,
			CreatedAt: time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC),
		}},
	}

	var buf bytes.Buffer
	formatStats(&buf, stats)
	out := buf.String()

	assert.Contains(t, out, "Total leads:")
	assert.Contains(t, out, "10 (25%)")
	assert.Contains(t, out, "58.4")
	assert.Contains(t, out, "TOP CITIES")
	assert.Contains(t, out, "RECENT SEARCHES")
	assert.Contains(t, out, "2025-06-12 10:00")

	// Cities are listed by count, largest first.
	assert.Less(t, strings.Index(out, "Columbus"), strings.Index(out, "Cleveland"))
}

func TestFormatStats_Empty(t *testing.T) {
	var buf bytes.Buffer
	formatStats(&buf, &model.Stats{})
	out := buf.String()

	assert.Contains(t, out, "0 (0%)")
	assert.NotContains(t, out, "TOP CITIES")
	assert.NotContains(t, out, "RECENT SEARCHES")
}

func TestStageLine(t *testing.T) {
	line := stageLine(model.StageResult{
		Stage:     model.StageExtracting,
		Processed: 30,
		Skipped:   2,
		Duration:  1230 * time.Millisecond,
	})
	assert.Contains(t, line, "extracting")
	assert.Contains(t, line, "30 processed")
	assert.Contains(t, line, "2 skipped")
	assert.Contains(t, line, "1.23s")
	assert.NotContains(t, line, "failed")

	line = stageLine(model.StageResult{
		Stage:     model.StageSearching,
		Processed: 0,
		Failed:    1,
		Error:     "source yellowpages unavailable",
	})
	assert.Contains(t, line, "1 failed")
	assert.Contains(t, line, "source yellowpages unavailable")
}

func TestFormatAddress(t *testing.T) {
	lead := tableLead()
	assert.Equal(t, "4200 Morse Rd, Columbus, OH 43230", formatAddress(&lead))

	lead.Zip = ""
	assert.Equal(t, "4200 Morse Rd, Columbus, OH", formatAddress(&lead))

	bare := model.Lead{City: "Columbus", State: "OH"}
	assert.Equal(t, "Columbus, OH", formatAddress(&bare))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 30))
	assert.Equal(t, "exactly-ten", truncate("exactly-ten", 11))
	assert.Equal(t, "a long ...", truncate("a long string here", 10))
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "8d7f41c2", truncateID("8d7f41c2-5f09-4a4a-9f3e-121212121212"))
	assert.Equal(t, "short", truncateID("short"))
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "  one\n  two", indent("one\ntwo\n"))
}
