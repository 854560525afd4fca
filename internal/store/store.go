// Package store persists leads, search history, export records, and the
// fetched-page cache behind a backend-neutral interface. Two backends
// ship: a single-file SQLite database (the default) and Postgres.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/logiclamp/leadscout/internal/model"
)

// Store is the persistence contract shared by both backends. Lookups
// return (nil, nil) when no row matches.
type Store interface {
	// Migrate creates or updates the schema. Safe to run on every start.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error

	// UpsertLead inserts the lead or, when a row with the same dedupe
	// key already exists, updates that row in place. The stored row
	// keeps its id and created_at, and lead.ID/lead.CreatedAt are
	// rewritten to match. Enrichment and geocoding fields survive a
	// re-scrape: an absent incoming value never clears a stored one.
	UpsertLead(ctx context.Context, lead *model.Lead) error
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	GetByDedupeKey(ctx context.Context, key string) (*model.Lead, error)
	ListLeads(ctx context.Context, f Filter) ([]model.Lead, error)
	// TopLeads returns the n best leads by effective score descending,
	// oldest row first among ties.
	TopLeads(ctx context.Context, n int) ([]model.Lead, error)
	CountLeads(ctx context.Context, f Filter) (int, error)
	Stats(ctx context.Context) (*model.Stats, error)

	RecordSearch(ctx context.Context, search *model.Search) error
	RecentSearches(ctx context.Context, n int) ([]model.Search, error)
	RecordExport(ctx context.Context, rec *model.ExportRecord) error

	GetCachedPage(ctx context.Context, url string) ([]byte, bool, error)
	SetCachedPage(ctx context.Context, url string, body []byte, ttl time.Duration) error
	DeleteExpiredPages(ctx context.Context) (int64, error)
}

// Filter narrows lead listings and counts. Zero values mean "any".
// City and state match case-insensitively, category as a substring.
type Filter struct {
	City        string
	State       string
	Category    string
	MinScore    int
	InTerritory *bool
	Limit       int
	Offset      int
}

const (
	defaultListLimit = 100
	defaultTopN      = 10
)

func (f Filter) limit() int {
	if f.Limit > 0 {
		return f.Limit
	}
	return defaultListLimit
}

// StoreError marks a persistence failure. The pipeline treats it as
// fatal to the remainder of a batch: leads already written stay valid,
// the rest of the batch is abandoned.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// IsStoreError reports whether err wraps a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// leadColumns is the column order both backends select and scan.
const leadColumns = `id, dedupe_key, name, street, city, state, zip,
	phone, email, website, contact_name, contact_title,
	category, description, notes,
	year_built, year_built_confidence, sqft, sqft_confidence,
	scores, raw_score, ai_score, ai_notes, outreach_email,
	latitude, longitude, in_territory,
	source, sources, scraped_at, enriched_at, created_at, updated_at`

type scannable interface {
	Scan(dest ...any) error
}

// urlHash keys the page cache by the SHA-256 of the URL.
func urlHash(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}
