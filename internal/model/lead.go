package model

import "time"

// Confidence describes how a lead attribute value was obtained.
type Confidence string

const (
	ConfidenceMeasured Confidence = "measured" // structured field reported by the source
	ConfidenceInferred Confidence = "inferred" // pattern-matched out of free text
	ConfidenceNone     Confidence = "none"     // no signal, value unknown
)

// Rank orders confidences for merge decisions. Higher wins.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceMeasured:
		return 2
	case ConfidenceInferred:
		return 1
	default:
		return 0
	}
}

// ComponentScores holds the five rule-based sub-scores. Each is clipped to
// its configured maximum; the maxima sum to 100.
type ComponentScores struct {
	Age          int `json:"age"`
	Size         int `json:"size"`
	BusinessType int `json:"business_type"`
	Website      int `json:"website"`
	Contact      int `json:"contact"`
}

// Total returns the composite raw score.
func (c ComponentScores) Total() int {
	return c.Age + c.Size + c.BusinessType + c.Website + c.Contact
}

// Lead is the persisted candidate-business record.
type Lead struct {
	ID        string `json:"id"`
	DedupeKey string `json:"dedupe_key"`

	Name         string `json:"name"`
	Street       string `json:"street,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Zip          string `json:"zip,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Email        string `json:"email,omitempty"`
	Website      string `json:"website,omitempty"`
	ContactName  string `json:"contact_name,omitempty"`
	ContactTitle string `json:"contact_title,omitempty"`
	Category     string `json:"category,omitempty"`
	Description  string `json:"description,omitempty"`
	Notes        string `json:"notes,omitempty"`

	// Building estimates. A nil value means unknown; the confidence flag
	// records whether a non-nil value was reported or inferred.
	YearBuilt           *int       `json:"year_built,omitempty"`
	YearBuiltConfidence Confidence `json:"year_built_confidence"`
	Sqft                *int       `json:"sqft,omitempty"`
	SqftConfidence      Confidence `json:"sqft_confidence"`

	Scores        ComponentScores `json:"component_scores"`
	RawScore      int             `json:"raw_score"`
	AIScore       *int            `json:"ai_score,omitempty"`
	AINotes       string          `json:"ai_notes,omitempty"`
	OutreachEmail string          `json:"outreach_email,omitempty"`

	// Filled by the geo backfill, never by the discovery pipeline.
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	InTerritory *bool    `json:"in_territory,omitempty"`

	Source     string     `json:"source"`
	Sources    []string   `json:"sources,omitempty"`
	ScrapedAt  time.Time  `json:"scraped_at"`
	EnrichedAt *time.Time `json:"enriched_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// EffectiveScore is the score used for ranking and display: the AI-refined
// score when enrichment produced one, otherwise the rule-based raw score.
// RawScore is never altered by enrichment.
func (l *Lead) EffectiveScore() int {
	if l.AIScore != nil {
		return *l.AIScore
	}
	return l.RawScore
}

// HasSource reports whether the lead's provenance already includes src.
func (l *Lead) HasSource(src string) bool {
	if l.Source == src {
		return true
	}
	for _, s := range l.Sources {
		if s == src {
			return true
		}
	}
	return false
}

// AddSource appends src to the provenance list if not already present.
func (l *Lead) AddSource(src string) {
	if src == "" || l.HasSource(src) {
		return
	}
	l.Sources = append(l.Sources, src)
}

// BuildingAge returns the building age in years relative to refYear, or
// -1 when the construction year is unknown.
func (l *Lead) BuildingAge(refYear int) int {
	if l.YearBuilt == nil {
		return -1
	}
	age := refYear - *l.YearBuilt
	if age < 0 {
		return 0
	}
	return age
}

// IntPtr, Float64Ptr and BoolPtr are conveniences for optional fields.
func IntPtr(v int) *int             { return &v }
func Float64Ptr(v float64) *float64 { return &v }
func BoolPtr(v bool) *bool          { return &v }
