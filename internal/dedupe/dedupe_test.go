package dedupe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logiclamp/leadscout/internal/model"
)

func TestKeyNormalization(t *testing.T) {
	t.Parallel()

	same := []struct {
		name         string
		aName, aAddr string
		bName, bAddr string
	}{
		{"case and legal suffix", "Acme Offices, Inc.", "123 Main Street", "ACME OFFICES", "123 Main St"},
		{"accents and directions", "Café Río LLC", "456 North Avenue", "Cafe Rio", "456 N Ave"},
		{"ampersand", "A & B Properties", "78 West Blvd", "A and B Properties", "78 W Boulevard"},
		{"stacked suffixes", "Summit Holdings Co Ltd", "9 Oak Dr", "Summit Holdings", "9 Oak Drive"},
		{"punctuation", "O'Brien's Storage", "12 Elm Ct.", "obriens storage", "12 Elm Court"},
	}
	for _, tt := range same {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, Key(tt.aName, tt.aAddr), Key(tt.bName, tt.bAddr))
		})
	}

	assert.NotEqual(t, Key("Acme Offices", "123 Main St"), Key("Acme Offices", "500 Summit Ave"))
	assert.NotEqual(t, Key("Acme Offices", "123 Main St"), Key("Apex Offices", "123 Main St"))

	// The separator keeps name and street tokens from bleeding together.
	assert.NotEqual(t, Key("Acme St", ""), Key("Acme", "St"))
}

func TestKeyKeepsSuffixOnlyNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "co|1ast", Key("Co", "1 A St"))
}

func TestDedupeMergesCollisions(t *testing.T) {
	t.Parallel()

	t1 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	year := 1990

	leads := []model.Lead{
		{
			ID: "a", Name: "Acme Offices Inc", Street: "123 Main Street",
			City: "Columbus", State: "OH",
			Source: "yellowpages", Sources: []string{"yellowpages"},
			YearBuiltConfidence: model.ConfidenceNone,
			SqftConfidence:      model.ConfidenceNone,
			ScrapedAt:           t1,
		},
		{
			ID: "b", Name: "ACME OFFICES", Street: "123 Main St",
			Phone:     "(614) 555-0142",
			YearBuilt: &year, YearBuiltConfidence: model.ConfidenceInferred,
			SqftConfidence: model.ConfidenceNone,
			Source:         "googlemaps", Sources: []string{"googlemaps"},
			ScrapedAt: t2,
		},
		{
			ID: "c", Name: "Other Co", Street: "9 Oak Ave",
			Source: "yellowpages", Sources: []string{"yellowpages"},
			ScrapedAt: t1,
		},
	}

	out := Dedupe(leads)
	require.Len(t, out, 2)

	merged := out[0]
	assert.Equal(t, "a", merged.ID)
	assert.Equal(t, "Acme Offices Inc", merged.Name)
	assert.Equal(t, Key("Acme Offices Inc", "123 Main Street"), merged.DedupeKey)
	assert.Equal(t, "(614) 555-0142", merged.Phone)
	assert.Equal(t, "Columbus", merged.City)
	require.NotNil(t, merged.YearBuilt)
	assert.Equal(t, 1990, *merged.YearBuilt)
	assert.Equal(t, model.ConfidenceInferred, merged.YearBuiltConfidence)
	assert.True(t, merged.HasSource("yellowpages"))
	assert.True(t, merged.HasSource("googlemaps"))
	assert.Equal(t, t2, merged.ScrapedAt)

	assert.Equal(t, "Other Co", out[1].Name)
}

func TestDedupeIsIdempotent(t *testing.T) {
	t.Parallel()

	year := 1985
	leads := []model.Lead{
		{ID: "a", Name: "Acme Offices", Street: "123 Main St", Sources: []string{"yellowpages"}},
		{ID: "b", Name: "Acme Offices Inc", Street: "123 Main Street", YearBuilt: &year,
			YearBuiltConfidence: model.ConfidenceMeasured, Sources: []string{"feed"}},
		{ID: "c", Name: "Other Co", Street: "9 Oak Ave", Sources: []string{"feed"}},
	}

	once := Dedupe(leads)
	twice := Dedupe(once)
	assert.Equal(t, once, twice)
}

func TestMergeConfidenceBeatsRecency(t *testing.T) {
	t.Parallel()

	t1 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	measured, inferred := 1980, 1999

	a := model.Lead{YearBuilt: &measured, YearBuiltConfidence: model.ConfidenceMeasured, ScrapedAt: t1}
	b := model.Lead{YearBuilt: &inferred, YearBuiltConfidence: model.ConfidenceInferred, ScrapedAt: t2}

	got := Merge(a, b)
	require.NotNil(t, got.YearBuilt)
	assert.Equal(t, 1980, *got.YearBuilt)
	assert.Equal(t, model.ConfidenceMeasured, got.YearBuiltConfidence)

	// Reversed roles: the newer measured value replaces the inferred one.
	got = Merge(b, a)
	require.NotNil(t, got.YearBuilt)
	assert.Equal(t, 1980, *got.YearBuilt)
	assert.Equal(t, model.ConfidenceMeasured, got.YearBuiltConfidence)
}

func TestMergeEqualConfidenceTakesNewer(t *testing.T) {
	t.Parallel()

	t1 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	older, newer := 1990, 1985

	a := model.Lead{Sqft: intp(10000), SqftConfidence: model.ConfidenceInferred,
		YearBuilt: &older, YearBuiltConfidence: model.ConfidenceInferred, ScrapedAt: t1}
	b := model.Lead{YearBuilt: &newer, YearBuiltConfidence: model.ConfidenceInferred, ScrapedAt: t2}

	got := Merge(a, b)
	require.NotNil(t, got.YearBuilt)
	assert.Equal(t, 1985, *got.YearBuilt)

	// b has no sqft; the populated value survives.
	require.NotNil(t, got.Sqft)
	assert.Equal(t, 10000, *got.Sqft)
	assert.Equal(t, model.ConfidenceInferred, got.SqftConfidence)
}

func TestMergeNeverDropsPopulatedFields(t *testing.T) {
	t.Parallel()

	t1 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	a := model.Lead{Phone: "(614) 555-0100", Email: "old@acme.example.com", ScrapedAt: t1}
	b := model.Lead{Email: "new@acme.example.com", Website: "https://acme.example.com", ScrapedAt: t2}

	got := Merge(a, b)
	assert.Equal(t, "(614) 555-0100", got.Phone)
	assert.Equal(t, "new@acme.example.com", got.Email)
	assert.Equal(t, "https://acme.example.com", got.Website)
}

func TestMergeCoordinates(t *testing.T) {
	t.Parallel()

	t1 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	a := model.Lead{ScrapedAt: t1}
	b := model.Lead{Latitude: fp(39.96), Longitude: fp(-82.99), ScrapedAt: t2}

	got := Merge(a, b)
	require.NotNil(t, got.Latitude)
	assert.InDelta(t, 39.96, *got.Latitude, 1e-6)

	// An older fix never overwrites a newer one.
	c := model.Lead{Latitude: fp(40.0), Longitude: fp(-83.0), ScrapedAt: t2}
	d := model.Lead{Latitude: fp(41.0), Longitude: fp(-84.0), ScrapedAt: t1}
	got = Merge(c, d)
	assert.InDelta(t, 40.0, *got.Latitude, 1e-6)
}

func intp(v int) *int       { return &v }
func fp(v float64) *float64 { return &v }
