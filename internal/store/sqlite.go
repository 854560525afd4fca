package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/logiclamp/leadscout/internal/model"
)

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id                    TEXT PRIMARY KEY,
	dedupe_key            TEXT NOT NULL UNIQUE,
	name                  TEXT NOT NULL,
	street                TEXT NOT NULL DEFAULT '',
	city                  TEXT NOT NULL DEFAULT '',
	state                 TEXT NOT NULL DEFAULT '',
	zip                   TEXT NOT NULL DEFAULT '',
	phone                 TEXT NOT NULL DEFAULT '',
	email                 TEXT NOT NULL DEFAULT '',
	website               TEXT NOT NULL DEFAULT '',
	contact_name          TEXT NOT NULL DEFAULT '',
	contact_title         TEXT NOT NULL DEFAULT '',
	category              TEXT NOT NULL DEFAULT '',
	description           TEXT NOT NULL DEFAULT '',
	notes                 TEXT NOT NULL DEFAULT '',
	year_built            INTEGER,
	year_built_confidence TEXT NOT NULL DEFAULT 'none',
	sqft                  INTEGER,
	sqft_confidence       TEXT NOT NULL DEFAULT 'none',
	scores                TEXT NOT NULL DEFAULT '{}',
	raw_score             INTEGER NOT NULL DEFAULT 0,
	ai_score              INTEGER,
	ai_notes              TEXT NOT NULL DEFAULT '',
	outreach_email        TEXT NOT NULL DEFAULT '',
	latitude              REAL,
	longitude             REAL,
	in_territory          INTEGER,
	source                TEXT NOT NULL DEFAULT '',
	sources               TEXT NOT NULL DEFAULT '[]',
	scraped_at            DATETIME,
	enriched_at           DATETIME,
	created_at            DATETIME NOT NULL,
	updated_at            DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_city ON leads(city);
CREATE INDEX IF NOT EXISTS idx_leads_category ON leads(category);
CREATE INDEX IF NOT EXISTS idx_leads_score ON leads(ai_score, raw_score);

CREATE TABLE IF NOT EXISTS search_history (
	id         TEXT PRIMARY KEY,
	city       TEXT NOT NULL DEFAULT '',
	state      TEXT NOT NULL DEFAULT '',
	category   TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT '',
	requested  INTEGER NOT NULL DEFAULT 0,
	found      INTEGER NOT NULL DEFAULT 0,
	stored     INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS exports (
	id         TEXT PRIMARY KEY,
	format     TEXT NOT NULL,
	path       TEXT NOT NULL,
	lead_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS page_cache (
	url_hash   TEXT PRIMARY KEY,
	body       BLOB NOT NULL,
	fetched_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_page_cache_expires ON page_cache(expires_at);
`

const upsertLeadSQLite = `
INSERT INTO leads (
	id, dedupe_key, name, street, city, state, zip,
	phone, email, website, contact_name, contact_title,
	category, description, notes,
	year_built, year_built_confidence, sqft, sqft_confidence,
	scores, raw_score, ai_score, ai_notes, outreach_email,
	latitude, longitude, in_territory,
	source, sources, scraped_at, enriched_at, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (dedupe_key) DO UPDATE SET
	name = excluded.name,
	street = excluded.street,
	city = excluded.city,
	state = excluded.state,
	zip = excluded.zip,
	phone = excluded.phone,
	email = excluded.email,
	website = excluded.website,
	contact_name = excluded.contact_name,
	contact_title = excluded.contact_title,
	category = excluded.category,
	description = excluded.description,
	notes = excluded.notes,
	year_built = excluded.year_built,
	year_built_confidence = excluded.year_built_confidence,
	sqft = excluded.sqft,
	sqft_confidence = excluded.sqft_confidence,
	scores = excluded.scores,
	raw_score = excluded.raw_score,
	ai_score = COALESCE(excluded.ai_score, leads.ai_score),
	ai_notes = CASE WHEN excluded.ai_score IS NOT NULL THEN excluded.ai_notes ELSE leads.ai_notes END,
	outreach_email = CASE WHEN excluded.outreach_email <> '' THEN excluded.outreach_email ELSE leads.outreach_email END,
	latitude = COALESCE(excluded.latitude, leads.latitude),
	longitude = COALESCE(excluded.longitude, leads.longitude),
	in_territory = COALESCE(excluded.in_territory, leads.in_territory),
	source = excluded.source,
	sources = excluded.sources,
	scraped_at = COALESCE(excluded.scraped_at, leads.scraped_at),
	enriched_at = COALESCE(excluded.enriched_at, leads.enriched_at),
	updated_at = excluded.updated_at
RETURNING id, created_at`

// SQLiteStore is the default single-file backend. WAL mode serializes
// writes while readers keep a consistent snapshot.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens (creating if needed) the database file at path.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(err, "store: open sqlite %s", path)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: %s", pragma)
		}
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return storeErr("migrate", err)
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return storeErr("ping", s.db.PingContext(ctx))
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertLead(ctx context.Context, lead *model.Lead) error {
	if lead.DedupeKey == "" {
		return eris.New("store: upsert lead: missing dedupe key")
	}
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	lead.UpdatedAt = now

	scoresJSON, sourcesJSON, err := marshalLeadJSON(lead)
	if err != nil {
		return err
	}

	row := s.db.QueryRowContext(ctx, upsertLeadSQLite,
		lead.ID, lead.DedupeKey, lead.Name, lead.Street, lead.City, lead.State, lead.Zip,
		lead.Phone, lead.Email, lead.Website, lead.ContactName, lead.ContactTitle,
		lead.Category, lead.Description, lead.Notes,
		lead.YearBuilt, string(lead.YearBuiltConfidence), lead.Sqft, string(lead.SqftConfidence),
		string(scoresJSON), lead.RawScore, lead.AIScore, lead.AINotes, lead.OutreachEmail,
		lead.Latitude, lead.Longitude, lead.InTerritory,
		lead.Source, string(sourcesJSON), nullTime(lead.ScrapedAt), lead.EnrichedAt,
		lead.CreatedAt, lead.UpdatedAt,
	)
	return storeErr("upsert lead", row.Scan(&lead.ID, &lead.CreatedAt))
}

func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)
	lead, err := scanSQLiteLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get lead", err)
	}
	return lead, nil
}

func (s *SQLiteStore) GetByDedupeKey(ctx context.Context, key string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE dedupe_key = ?`, key)
	lead, err := scanSQLiteLead(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get lead by dedupe key", err)
	}
	return lead, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, f Filter) ([]model.Lead, error) {
	clause, args := sqliteFilterClause(f)
	query := `SELECT ` + leadColumns + ` FROM leads` + clause +
		` ORDER BY COALESCE(ai_score, raw_score) DESC, created_at ASC LIMIT ? OFFSET ?`
	args = append(args, f.limit(), f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list leads", err)
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanSQLiteLead(rows)
		if err != nil {
			return nil, storeErr("list leads", err)
		}
		leads = append(leads, *lead)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list leads", err)
	}
	return leads, nil
}

func (s *SQLiteStore) TopLeads(ctx context.Context, n int) ([]model.Lead, error) {
	if n <= 0 {
		n = defaultTopN
	}
	return s.ListLeads(ctx, Filter{Limit: n})
}

func (s *SQLiteStore) CountLeads(ctx context.Context, f Filter) (int, error) {
	clause, args := sqliteFilterClause(f)
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`+clause, args...).Scan(&n)
	if err != nil {
		return 0, storeErr("count leads", err)
	}
	return n, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (*model.Stats, error) {
	stats := &model.Stats{ByCity: map[string]int{}, ByCategory: map[string]int{}}

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(ai_score), COALESCE(AVG(COALESCE(ai_score, raw_score)), 0) FROM leads`)
	if err := row.Scan(&stats.TotalLeads, &stats.EnrichedLeads, &stats.AverageScore); err != nil {
		return nil, storeErr("stats", err)
	}

	for _, group := range []struct {
		column string
		dest   map[string]int
	}{
		{"city", stats.ByCity},
		{"category", stats.ByCategory},
	} {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+group.column+`, COUNT(*) FROM leads WHERE `+group.column+` <> ''
			 GROUP BY `+group.column+` ORDER BY COUNT(*) DESC, `+group.column+` ASC LIMIT 10`)
		if err != nil {
			return nil, storeErr("stats", err)
		}
		for rows.Next() {
			var key string
			var n int
			if err := rows.Scan(&key, &n); err != nil {
				rows.Close()
				return nil, storeErr("stats", err)
			}
			group.dest[key] = n
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, storeErr("stats", err)
		}
		rows.Close()
	}

	recent, err := s.RecentSearches(ctx, 5)
	if err != nil {
		return nil, err
	}
	stats.Recent = recent
	return stats, nil
}

func (s *SQLiteStore) RecordSearch(ctx context.Context, search *model.Search) error {
	if search.ID == "" {
		search.ID = uuid.New().String()
	}
	if search.CreatedAt.IsZero() {
		search.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_history (id, city, state, category, source, requested, found, stored, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		search.ID, search.City, search.State, search.Category, search.Source,
		search.Requested, search.Found, search.Stored, search.CreatedAt)
	return storeErr("record search", err)
}

func (s *SQLiteStore) RecentSearches(ctx context.Context, n int) ([]model.Search, error) {
	if n <= 0 {
		n = defaultTopN
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, city, state, category, source, requested, found, stored, created_at
		 FROM search_history ORDER BY created_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, storeErr("recent searches", err)
	}
	defer rows.Close()

	var searches []model.Search
	for rows.Next() {
		var sr model.Search
		if err := rows.Scan(&sr.ID, &sr.City, &sr.State, &sr.Category, &sr.Source,
			&sr.Requested, &sr.Found, &sr.Stored, &sr.CreatedAt); err != nil {
			return nil, storeErr("recent searches", err)
		}
		searches = append(searches, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("recent searches", err)
	}
	return searches, nil
}

func (s *SQLiteStore) RecordExport(ctx context.Context, rec *model.ExportRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exports (id, format, path, lead_count, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Format, rec.Path, rec.Count, rec.CreatedAt)
	return storeErr("record export", err)
}

func (s *SQLiteStore) GetCachedPage(ctx context.Context, url string) ([]byte, bool, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM page_cache WHERE url_hash = ? AND expires_at > ?`,
		urlHash(url), time.Now().UTC()).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storeErr("get cached page", err)
	}
	return body, true, nil
}

func (s *SQLiteStore) SetCachedPage(ctx context.Context, url string, body []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO page_cache (url_hash, body, fetched_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (url_hash) DO UPDATE SET
			body = excluded.body,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at`,
		urlHash(url), body, now, now.Add(ttl))
	return storeErr("set cached page", err)
}

func (s *SQLiteStore) DeleteExpiredPages(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM page_cache WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, storeErr("delete expired pages", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("delete expired pages", err)
	}
	return n, nil
}

func sqliteFilterClause(f Filter) (string, []any) {
	clause := ` WHERE 1=1`
	var args []any
	if f.City != "" {
		clause += ` AND city = ? COLLATE NOCASE`
		args = append(args, f.City)
	}
	if f.State != "" {
		clause += ` AND state = ? COLLATE NOCASE`
		args = append(args, f.State)
	}
	if f.Category != "" {
		clause += ` AND category LIKE ?`
		args = append(args, "%"+f.Category+"%")
	}
	if f.MinScore > 0 {
		clause += ` AND COALESCE(ai_score, raw_score) >= ?`
		args = append(args, f.MinScore)
	}
	if f.InTerritory != nil {
		clause += ` AND in_territory = ?`
		args = append(args, *f.InTerritory)
	}
	return clause, args
}

func scanSQLiteLead(row scannable) (*model.Lead, error) {
	var (
		lead        model.Lead
		yearBuilt   sql.NullInt64
		sqft        sql.NullInt64
		aiScore     sql.NullInt64
		ybConf      string
		sqConf      string
		scoresJSON  string
		sourcesJSON string
		lat         sql.NullFloat64
		lng         sql.NullFloat64
		inTerritory sql.NullBool
		scrapedAt   sql.NullTime
		enrichedAt  sql.NullTime
	)
	err := row.Scan(
		&lead.ID, &lead.DedupeKey, &lead.Name, &lead.Street, &lead.City, &lead.State, &lead.Zip,
		&lead.Phone, &lead.Email, &lead.Website, &lead.ContactName, &lead.ContactTitle,
		&lead.Category, &lead.Description, &lead.Notes,
		&yearBuilt, &ybConf, &sqft, &sqConf,
		&scoresJSON, &lead.RawScore, &aiScore, &lead.AINotes, &lead.OutreachEmail,
		&lat, &lng, &inTerritory,
		&lead.Source, &sourcesJSON, &scrapedAt, &enrichedAt, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	lead.YearBuiltConfidence = model.Confidence(ybConf)
	lead.SqftConfidence = model.Confidence(sqConf)
	if yearBuilt.Valid {
		lead.YearBuilt = model.IntPtr(int(yearBuilt.Int64))
	}
	if sqft.Valid {
		lead.Sqft = model.IntPtr(int(sqft.Int64))
	}
	if aiScore.Valid {
		lead.AIScore = model.IntPtr(int(aiScore.Int64))
	}
	if lat.Valid {
		lead.Latitude = model.Float64Ptr(lat.Float64)
	}
	if lng.Valid {
		lead.Longitude = model.Float64Ptr(lng.Float64)
	}
	if inTerritory.Valid {
		lead.InTerritory = model.BoolPtr(inTerritory.Bool)
	}
	if scrapedAt.Valid {
		lead.ScrapedAt = scrapedAt.Time
	}
	if enrichedAt.Valid {
		t := enrichedAt.Time
		lead.EnrichedAt = &t
	}
	if err := unmarshalLeadJSON(&lead, []byte(scoresJSON), []byte(sourcesJSON)); err != nil {
		return nil, err
	}
	return &lead, nil
}

// marshalLeadJSON encodes the component scores and source list for
// storage. A nil source list stores as an empty array.
func marshalLeadJSON(lead *model.Lead) (scores, sources []byte, err error) {
	scores, err = json.Marshal(lead.Scores)
	if err != nil {
		return nil, nil, eris.Wrap(err, "store: marshal scores")
	}
	list := lead.Sources
	if list == nil {
		list = []string{}
	}
	sources, err = json.Marshal(list)
	if err != nil {
		return nil, nil, eris.Wrap(err, "store: marshal sources")
	}
	return scores, sources, nil
}

func unmarshalLeadJSON(lead *model.Lead, scores, sources []byte) error {
	if len(scores) > 0 {
		if err := json.Unmarshal(scores, &lead.Scores); err != nil {
			return eris.Wrap(err, "store: unmarshal scores")
		}
	}
	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &lead.Sources); err != nil {
			return eris.Wrap(err, "store: unmarshal sources")
		}
	}
	return nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
