package model

import "time"

// Stage identifies a pipeline stage. Stages run strictly in the order
// declared below; a batch never revisits an earlier stage.
type Stage string

const (
	StageSearching  Stage = "searching"
	StageExtracting Stage = "extracting"
	StageDeduping   Stage = "deduping"
	StageScoring    Stage = "scoring"
	StageEnriching  Stage = "enriching"
	StageStored     Stage = "stored"
)

// StageResult reports what one stage did with its batch.
type StageResult struct {
	Stage     Stage         `json:"stage"`
	Processed int           `json:"processed"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration_ms"`
	Error     string        `json:"error,omitempty"`
}

// RunSummary is the outcome of one pipeline batch.
type RunSummary struct {
	Query     Query         `json:"query"`
	Stages    []StageResult `json:"stages"`
	Found     int           `json:"found"`
	Stored    int           `json:"stored"`
	Merged    int           `json:"merged"`
	Enriched  int           `json:"enriched"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Aborted   bool          `json:"aborted"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ms"`
}

// Search is one recorded pipeline run, kept for the dashboard history.
type Search struct {
	ID        string    `json:"id"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Category  string    `json:"category,omitempty"`
	Source    string    `json:"source"`
	Requested int       `json:"requested"`
	Found     int       `json:"found"`
	Stored    int       `json:"stored"`
	CreatedAt time.Time `json:"created_at"`
}

// ExportRecord is one recorded export, kept for the dashboard history.
type ExportRecord struct {
	ID        string    `json:"id"`
	Format    string    `json:"format"`
	Path      string    `json:"path"`
	Count     int       `json:"count"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats aggregates store contents for the dashboard.
type Stats struct {
	TotalLeads    int            `json:"total_leads"`
	EnrichedLeads int            `json:"enriched_leads"`
	AverageScore  float64        `json:"average_score"`
	ByCity        map[string]int `json:"by_city"`
	ByCategory    map[string]int `json:"by_category"`
	Recent        []Search       `json:"recent_searches"`
}
