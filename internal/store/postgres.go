package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/logiclamp/leadscout/internal/db"
	"github.com/logiclamp/leadscout/internal/model"
)

// PoolConfig tunes the pgx connection pool.
type PoolConfig struct {
	MaxConns int32 `mapstructure:"max_conns" yaml:"max_conns"`
	MinConns int32 `mapstructure:"min_conns" yaml:"min_conns"`
}

const postgresMigration = `
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
	scores                JSONB NOT NULL DEFAULT '{}'::jsonb,
	raw_score             INTEGER NOT NULL DEFAULT 0,
	ai_score              INTEGER,
	ai_notes              TEXT NOT NULL DEFAULT '',
	outreach_email        TEXT NOT NULL DEFAULT '',
	latitude              DOUBLE PRECISION,
	longitude             DOUBLE PRECISION,
	in_territory          BOOLEAN,
	source                TEXT NOT NULL DEFAULT '',
	sources               JSONB NOT NULL DEFAULT '[]'::jsonb,
	scraped_at            TIMESTAMPTZ,
	enriched_at           TIMESTAMPTZ,
	created_at            TIMESTAMPTZ NOT NULL,
	updated_at            TIMESTAMPTZ NOT NULL
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
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS exports (
	id         TEXT PRIMARY KEY,
	format     TEXT NOT NULL,
	path       TEXT NOT NULL,
	lead_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS page_cache (
	url_hash   TEXT PRIMARY KEY,
	body       BYTEA NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_page_cache_expires ON page_cache(expires_at);
`

const upsertLeadPG = `
INSERT INTO leads (
	id, dedupe_key, name, street, city, state, zip,
	phone, email, website, contact_name, contact_title,
	category, description, notes,
	year_built, year_built_confidence, sqft, sqft_confidence,
	scores, raw_score, ai_score, ai_notes, outreach_email,
	latitude, longitude, in_territory,
	source, sources, scraped_at, enriched_at, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
	$18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33
)
ON CONFLICT (dedupe_key) DO UPDATE SET
	name = EXCLUDED.name,
	street = EXCLUDED.street,
	city = EXCLUDED.city,
	state = EXCLUDED.state,
	zip = EXCLUDED.zip,
	phone = EXCLUDED.phone,
	email = EXCLUDED.email,
	website = EXCLUDED.website,
	contact_name = EXCLUDED.contact_name,
	contact_title = EXCLUDED.contact_title,
	category = EXCLUDED.category,
	description = EXCLUDED.description,
	notes = EXCLUDED.notes,
	year_built = EXCLUDED.year_built,
	year_built_confidence = EXCLUDED.year_built_confidence,
	sqft = EXCLUDED.sqft,
	sqft_confidence = EXCLUDED.sqft_confidence,
	scores = EXCLUDED.scores,
	raw_score = EXCLUDED.raw_score,
	ai_score = COALESCE(EXCLUDED.ai_score, leads.ai_score),
	ai_notes = CASE WHEN EXCLUDED.ai_score IS NOT NULL THEN EXCLUDED.ai_notes ELSE leads.ai_notes END,
	outreach_email = CASE WHEN EXCLUDED.outreach_email <> '' THEN EXCLUDED.outreach_email ELSE leads.outreach_email END,
	latitude = COALESCE(EXCLUDED.latitude, leads.latitude),
	longitude = COALESCE(EXCLUDED.longitude, leads.longitude),
	in_territory = COALESCE(EXCLUDED.in_territory, leads.in_territory),
	source = EXCLUDED.source,
	sources = EXCLUDED.sources,
	scraped_at = COALESCE(EXCLUDED.scraped_at, leads.scraped_at),
	enriched_at = COALESCE(EXCLUDED.enriched_at, leads.enriched_at),
	updated_at = EXCLUDED.updated_at
RETURNING id, created_at`

const (
	getLeadPG        = `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	getByDedupeKeyPG = `SELECT ` + leadColumns + ` FROM leads WHERE dedupe_key = $1`

	recordSearchPG = `INSERT INTO search_history (id, city, state, category, source, requested, found, stored, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	recentSearchesPG = `SELECT id, city, state, category, source, requested, found, stored, created_at
	FROM search_history ORDER BY created_at DESC LIMIT $1`
	recordExportPG = `INSERT INTO exports (id, format, path, lead_count, created_at) VALUES ($1, $2, $3, $4, $5)`

	getCachedPagePG = `SELECT body FROM page_cache WHERE url_hash = $1 AND expires_at > now()`
	setCachedPagePG = `INSERT INTO page_cache (url_hash, body, fetched_at, expires_at) VALUES ($1, $2, $3, $4)
	ON CONFLICT (url_hash) DO UPDATE SET
		body = EXCLUDED.body,
		fetched_at = EXCLUDED.fetched_at,
		expires_at = EXCLUDED.expires_at`
	deleteExpiredPagesPG = `DELETE FROM page_cache WHERE expires_at <= now()`
)

// preparedStatements are declared once per connection in AfterConnect so
// the hot paths skip the parse round trip.
var preparedStatements = map[string]string{
	"upsert_lead":          upsertLeadPG,
	"get_lead":             getLeadPG,
	"get_by_dedupe_key":    getByDedupeKeyPG,
	"record_search":        recordSearchPG,
	"recent_searches":      recentSearchesPG,
	"record_export":        recordExportPG,
	"get_cached_page":      getCachedPagePG,
	"set_cached_page":      setCachedPagePG,
	"delete_expired_pages": deleteExpiredPagesPG,
}

// PostgresStore backs the lead database with a shared Postgres instance.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

var _ Store = (*PostgresStore)(nil)

// NewPostgres connects to Postgres and verifies the connection.
func NewPostgres(ctx context.Context, connString string, cfg *PoolConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "store: parse postgres config")
	}

	maxConns, minConns := int32(10), int32(2)
	if cfg != nil {
		if cfg.MaxConns > 0 {
			maxConns = cfg.MaxConns
		}
		if cfg.MinConns > 0 {
			minConns = cfg.MinConns
		}
	}
	poolCfg.MaxConns = maxConns
	poolCfg.MinConns = minConns
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, stmt := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, stmt); err != nil {
				return eris.Wrapf(err, "store: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "store: connect postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "store: ping postgres")
	}

	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return storeErr("migrate", err)
}

// Ping goes through Exec so the mock pool can assert it.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return storeErr("ping", err)
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertLead(ctx context.Context, lead *model.Lead) error {
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

	row := s.pool.QueryRow(ctx, upsertLeadPG,
		lead.ID, lead.DedupeKey, lead.Name, lead.Street, lead.City, lead.State, lead.Zip,
		lead.Phone, lead.Email, lead.Website, lead.ContactName, lead.ContactTitle,
		lead.Category, lead.Description, lead.Notes,
		lead.YearBuilt, string(lead.YearBuiltConfidence), lead.Sqft, string(lead.SqftConfidence),
		scoresJSON, lead.RawScore, lead.AIScore, lead.AINotes, lead.OutreachEmail,
		lead.Latitude, lead.Longitude, lead.InTerritory,
		lead.Source, sourcesJSON, nullTime(lead.ScrapedAt), lead.EnrichedAt,
		lead.CreatedAt, lead.UpdatedAt,
	)
	return storeErr("upsert lead", row.Scan(&lead.ID, &lead.CreatedAt))
}

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	lead, err := scanPostgresLead(s.pool.QueryRow(ctx, getLeadPG, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get lead", err)
	}
	return lead, nil
}

func (s *PostgresStore) GetByDedupeKey(ctx context.Context, key string) (*model.Lead, error) {
	lead, err := scanPostgresLead(s.pool.QueryRow(ctx, getByDedupeKeyPG, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get lead by dedupe key", err)
	}
	return lead, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, f Filter) ([]model.Lead, error) {
	clause, args := postgresFilterClause(f, nil)
	args = append(args, f.limit(), f.Offset)
	query := `SELECT ` + leadColumns + ` FROM leads` + clause + fmt.Sprintf(
		` ORDER BY COALESCE(ai_score, raw_score) DESC, created_at ASC LIMIT $%d OFFSET $%d`,
		len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list leads", err)
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanPostgresLead(rows)
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

func (s *PostgresStore) TopLeads(ctx context.Context, n int) ([]model.Lead, error) {
	if n <= 0 {
		n = defaultTopN
	}
	return s.ListLeads(ctx, Filter{Limit: n})
}

func (s *PostgresStore) CountLeads(ctx context.Context, f Filter) (int, error) {
	clause, args := postgresFilterClause(f, nil)
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`+clause, args...).Scan(&n)
	if err != nil {
		return 0, storeErr("count leads", err)
	}
	return n, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (*model.Stats, error) {
	stats := &model.Stats{ByCity: map[string]int{}, ByCategory: map[string]int{}}

	row := s.pool.QueryRow(ctx,
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
		rows, err := s.pool.Query(ctx,
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

func (s *PostgresStore) RecordSearch(ctx context.Context, search *model.Search) error {
	if search.ID == "" {
		search.ID = uuid.New().String()
	}
	if search.CreatedAt.IsZero() {
		search.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, recordSearchPG,
		search.ID, search.City, search.State, search.Category, search.Source,
		search.Requested, search.Found, search.Stored, search.CreatedAt)
	return storeErr("record search", err)
}

func (s *PostgresStore) RecentSearches(ctx context.Context, n int) ([]model.Search, error) {
	if n <= 0 {
		n = defaultTopN
	}
	rows, err := s.pool.Query(ctx, recentSearchesPG, n)
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

func (s *PostgresStore) RecordExport(ctx context.Context, rec *model.ExportRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, recordExportPG, rec.ID, rec.Format, rec.Path, rec.Count, rec.CreatedAt)
	return storeErr("record export", err)
}

func (s *PostgresStore) GetCachedPage(ctx context.Context, url string) ([]byte, bool, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, getCachedPagePG, urlHash(url)).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storeErr("get cached page", err)
	}
	return body, true, nil
}

func (s *PostgresStore) SetCachedPage(ctx context.Context, url string, body []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx, setCachedPagePG, urlHash(url), body, now, now.Add(ttl))
	return storeErr("set cached page", err)
}

func (s *PostgresStore) DeleteExpiredPages(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, deleteExpiredPagesPG)
	if err != nil {
		return 0, storeErr("delete expired pages", err)
	}
	return tag.RowsAffected(), nil
}

func postgresFilterClause(f Filter, args []any) (string, []any) {
	clause := ` WHERE 1=1`
	if f.City != "" {
		args = append(args, f.City)
		clause += fmt.Sprintf(` AND city ILIKE $%d`, len(args))
	}
	if f.State != "" {
		args = append(args, f.State)
		clause += fmt.Sprintf(` AND state ILIKE $%d`, len(args))
	}
	if f.Category != "" {
		args = append(args, "%"+f.Category+"%")
		clause += fmt.Sprintf(` AND category ILIKE $%d`, len(args))
	}
	if f.MinScore > 0 {
		args = append(args, f.MinScore)
		clause += fmt.Sprintf(` AND COALESCE(ai_score, raw_score) >= $%d`, len(args))
	}
	if f.InTerritory != nil {
		args = append(args, *f.InTerritory)
		clause += fmt.Sprintf(` AND in_territory = $%d`, len(args))
	}
	return clause, args
}

func scanPostgresLead(row scannable) (*model.Lead, error) {
	var (
		lead        model.Lead
		ybConf      string
		sqConf      string
		scoresJSON  []byte
		sourcesJSON []byte
		scrapedAt   *time.Time
	)
	err := row.Scan(
		&lead.ID, &lead.DedupeKey, &lead.Name, &lead.Street, &lead.City, &lead.State, &lead.Zip,
		&lead.Phone, &lead.Email, &lead.Website, &lead.ContactName, &lead.ContactTitle,
		&lead.Category, &lead.Description, &lead.Notes,
		&lead.YearBuilt, &ybConf, &lead.Sqft, &sqConf,
		&scoresJSON, &lead.RawScore, &lead.AIScore, &lead.AINotes, &lead.OutreachEmail,
		&lead.Latitude, &lead.Longitude, &lead.InTerritory,
		&lead.Source, &sourcesJSON, &scrapedAt, &lead.EnrichedAt, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	lead.YearBuiltConfidence = model.Confidence(ybConf)
	lead.SqftConfidence = model.Confidence(sqConf)
	if scrapedAt != nil {
		lead.ScrapedAt = *scrapedAt
	}
	if err := unmarshalLeadJSON(&lead, scoresJSON, sourcesJSON); err != nil {
		return nil, err
	}
	return &lead, nil
}
