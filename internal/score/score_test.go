package score

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logiclamp/leadscout/internal/model"
)

const refYear = 2025

func intp(v int) *int { return &v }

func fullLead() model.Lead {
	return model.Lead{
		Name:      "Acme Offices",
		Category:  "Office Buildings",
		Website:   "https://acme.example.com",
		Email:     "info@acme.example.com",
		Phone:     "(614) 555-0142",
		YearBuilt: intp(refYear - 35),
		Sqft:      intp(60000),
	}
}

func TestScoreFullyAttributedLead(t *testing.T) {
	t.Parallel()

	s := NewAt(DefaultWeights(), refYear)
	cs := s.Score(fullLead())

	assert.Equal(t, 30, cs.Age)
	assert.Equal(t, 25, cs.Size)
	assert.Equal(t, 20, cs.BusinessType)
	assert.Equal(t, 10, cs.Website)
	assert.Equal(t, 15, cs.Contact)
	assert.Equal(t, 100, cs.Total())
}

func TestScoreEmptyLead(t *testing.T) {
	t.Parallel()

	s := NewAt(DefaultWeights(), refYear)
	cs := s.Score(model.Lead{Name: "Mystery Holdings"})

	assert.Equal(t, 0, cs.Age)
	assert.Equal(t, 0, cs.Size)
	assert.Equal(t, 4, cs.BusinessType)
	assert.Equal(t, 0, cs.Website)
	assert.Equal(t, 0, cs.Contact)
	assert.Equal(t, 4, cs.Total())
}

func TestAgePoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		yearBuilt *int
		want      int
	}{
		{nil, 0},
		{intp(refYear - 45), 30},
		{intp(refYear - 30), 30},
		{intp(refYear - 25), 22},
		{intp(refYear - 20), 22},
		{intp(refYear - 15), 14},
		{intp(refYear - 10), 14},
		{intp(refYear - 5), 6},
		{intp(refYear), 6},
		{intp(refYear + 5), 0},
	}

	s := NewAt(DefaultWeights(), refYear)
	for _, tt := range tests {
		cs := s.Score(model.Lead{Name: "X", YearBuilt: tt.yearBuilt})
		assert.Equal(t, tt.want, cs.Age, "year %v", tt.yearBuilt)
	}
}

func TestSizePoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sqft *int
		want int
	}{
		{nil, 0},
		{intp(0), 0},
		{intp(120000), 25},
		{intp(50000), 25},
		{intp(30000), 19},
		{intp(20000), 19},
		{intp(15000), 13},
		{intp(10000), 13},
		{intp(5000), 6},
	}

	s := NewAt(DefaultWeights(), refYear)
	for _, tt := range tests {
		cs := s.Score(model.Lead{Name: "X", Sqft: tt.sqft})
		assert.Equal(t, tt.want, cs.Size, "sqft %v", tt.sqft)
	}
}

func TestBusinessTypePoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		category string
		want     int
	}{
		{"Office Buildings", 20},
		{"Commercial Real Estate", 20},
		{"Property Management", 20},
		{"Manufacturing", 16},
		{"Industrial Parks", 16},
		{"Warehouses & Storage", 16},
		{"Hospitals", 12},
		{"Hotels", 12},
		{"Retail Centers", 10},
		{"Restaurants", 10},
		{"Consulting Services", 8},
		{"", 4},
		{"   ", 4},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, typePoints(tt.category), "category %q", tt.category)
	}
}

func TestContactPoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		lead model.Lead
		want int
	}{
		{model.Lead{Email: "x@example.com", ContactName: "Jane", Phone: "555"}, 15},
		{model.Lead{ContactName: "Jane", Phone: "555"}, 8},
		{model.Lead{Phone: "555"}, 5},
		{model.Lead{}, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, contactPoints(tt.lead))
	}
}

func TestWebsitePoints(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 10, websitePoints("https://acme.example.com"))
	assert.Equal(t, 0, websitePoints(""))
	assert.Equal(t, 0, websitePoints("   "))
}

func TestScoreClipsToConfiguredWeights(t *testing.T) {
	t.Parallel()

	w := Weights{Age: 10, Size: 45, BusinessType: 20, Website: 10, Contact: 15}
	require.NoError(t, w.Validate())

	cs := NewAt(w, refYear).Score(fullLead())
	assert.Equal(t, 10, cs.Age, "thirty base points clip to the lowered ceiling")
	assert.Equal(t, 25, cs.Size, "base points do not grow past their table values")
}

func TestScoreIsDeterministic(t *testing.T) {
	t.Parallel()

	s := NewAt(DefaultWeights(), refYear)
	lead := fullLead()

	first := s.Score(lead)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, s.Score(lead))
	}

	// Prior enrichment must not leak into the raw score.
	enriched := lead
	enriched.AIScore = intp(99)
	enriched.AINotes = "great prospect"
	assert.Equal(t, first, s.Score(enriched))
}

func TestScoreNeverLeavesRange(t *testing.T) {
	t.Parallel()

	s := NewAt(DefaultWeights(), refYear)
	leads := []model.Lead{
		{},
		fullLead(),
		{Name: "X", Category: "office office office", Email: "a@b.c", Website: "x", YearBuilt: intp(1800), Sqft: intp(1 << 30)},
	}
	for i, lead := range leads {
		cs := s.Score(lead)
		total := cs.Total()
		assert.GreaterOrEqual(t, total, 0, "lead %d", i)
		assert.LessOrEqual(t, total, 100, "lead %d", i)
	}
}

func TestApplyTouchesOnlyScoringFields(t *testing.T) {
	t.Parallel()

	lead := fullLead()
	lead.AIScore = intp(88)

	NewAt(DefaultWeights(), refYear).Apply(&lead)

	assert.Equal(t, 100, lead.RawScore)
	assert.Equal(t, 100, lead.Scores.Total())
	assert.Equal(t, "Acme Offices", lead.Name)
	require.NotNil(t, lead.AIScore)
	assert.Equal(t, 88, *lead.AIScore)
}

func TestWeightsValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultWeights().Validate())

	bad := Weights{Age: 30, Size: 25, BusinessType: 20, Website: 10, Contact: 10}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 100")
	assert.Contains(t, err.Error(), "95")

	negative := Weights{Age: -5, Size: 60, BusinessType: 20, Website: 10, Contact: 15}
	err = negative.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative")
}

func TestScoreOrderIndependence(t *testing.T) {
	t.Parallel()

	s := NewAt(DefaultWeights(), refYear)
	leads := []model.Lead{fullLead(), {Name: "B", Phone: "555"}, {Name: "C", Category: "Retail"}}

	var forward, backward []int
	for _, l := range leads {
		forward = append(forward, s.Score(l).Total())
	}
	for i := len(leads) - 1; i >= 0; i-- {
		backward = append(backward, s.Score(leads[i]).Total())
	}
	for i := range leads {
		assert.Equal(t, forward[i], backward[len(leads)-1-i], fmt.Sprintf("lead %d", i))
	}
}
