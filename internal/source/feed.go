package source

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/logiclamp/leadscout/internal/fetcher"
	"github.com/logiclamp/leadscout/internal/model"
)

// FeedOptions points the feed adapter at a bulk listing file.
type FeedOptions struct {
	// URL of the feed, http(s) or ftp. Empty disables the adapter.
	URL string
	// Format overrides extension-based detection: csv, xlsx, or json.
	Format string
}

// Feed loads listings from a bulk file published by a data provider,
// typically a county assessor or chamber-of-commerce export. Column
// names vary wildly between publishers, so headers are canonicalized
// before mapping.
type Feed struct {
	http fetcher.Fetcher
	ftp  fetcher.Fetcher
	opts FeedOptions
}

// NewFeed creates the adapter. The http fetcher serves http(s) URLs and
// the ftp fetcher serves ftp URLs.
func NewFeed(httpf, ftpf fetcher.Fetcher, opts FeedOptions) *Feed {
	return &Feed{http: httpf, ftp: ftpf, opts: opts}
}

func (f *Feed) Name() string { return "feed" }

// Search downloads the configured feed, maps its rows into listings,
// and filters them against the query location when the feed carries
// city or state columns.
func (f *Feed) Search(ctx context.Context, q model.Query) ([]model.RawListing, error) {
	if f.opts.URL == "" {
		return nil, Unavailable(f.Name(), "no feed url configured", nil)
	}

	u, err := url.Parse(f.opts.URL)
	if err != nil {
		return nil, Unavailable(f.Name(), "invalid feed url", err)
	}

	fetch := f.http
	if u.Scheme == "ftp" {
		fetch = f.ftp
	}
	data, err := fetch.Fetch(ctx, f.opts.URL)
	if err != nil {
		return nil, Unavailable(f.Name(), "feed download failed", err)
	}

	format := f.opts.Format
	if format == "" {
		format = strings.TrimPrefix(path.Ext(u.Path), ".")
	}

	var records []map[string]string
	switch strings.ToLower(format) {
	case "csv":
		rows, err := fetcher.ParseCSV(bytes.NewReader(data), fetcher.CSVOptions{TrimSpace: true})
		if err != nil {
			return nil, Unavailable(f.Name(), "feed parse failed", err)
		}
		records = tabularRecords(rows)
	case "xlsx":
		rows, err := fetcher.ParseXLSX(data, fetcher.XLSXOptions{})
		if err != nil {
			return nil, Unavailable(f.Name(), "feed parse failed", err)
		}
		records = tabularRecords(rows)
	case "json":
		objs, err := fetcher.DecodeJSONArray[map[string]any](bytes.NewReader(data))
		if err != nil {
			return nil, Unavailable(f.Name(), "feed parse failed", err)
		}
		records = jsonRecords(objs)
	default:
		return nil, Unavailable(f.Name(), fmt.Sprintf("unrecognized feed format %q", format), nil)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var out []model.RawListing
	skipped := 0
	for _, rec := range records {
		if len(out) >= limit {
			break
		}
		l, ok := f.listingFromRecord(rec, q)
		if !ok {
			skipped++
			continue
		}
		out = append(out, l)
	}

	zap.L().Debug("feed mapped",
		zap.String("source", f.Name()),
		zap.Int("records", len(records)),
		zap.Int("kept", len(out)),
		zap.Int("skipped", skipped))
	return out, nil
}

// feedFields maps canonicalized header names to listing fields.
var feedFields = map[string]string{
	"name":            "name",
	"company":         "name",
	"companyname":     "name",
	"business":        "name",
	"businessname":    "name",
	"address":         "street",
	"street":          "street",
	"streetaddress":   "street",
	"city":            "city",
	"state":           "state",
	"st":              "state",
	"region":          "state",
	"zip":             "zip",
	"zipcode":         "zip",
	"postalcode":      "zip",
	"phone":           "phone",
	"telephone":       "phone",
	"phonenumber":     "phone",
	"website":         "website",
	"url":             "website",
	"web":             "website",
	"email":           "email",
	"category":        "category",
	"industry":        "category",
	"type":            "category",
	"description":     "description",
	"notes":           "description",
	"yearbuilt":       "yearbuilt",
	"built":           "yearbuilt",
	"yearestablished": "yearbuilt",
	"sqft":            "sqft",
	"squarefeet":      "sqft",
	"buildingsize":    "sqft",
	"size":            "sqft",
	"lat":             "lat",
	"latitude":        "lat",
	"lng":             "lng",
	"lon":             "lng",
	"longitude":       "lng",
}

// canonKey lowercases a header and strips everything but letters and
// digits, so "Postal Code", "postal_code", and "PostalCode" collide.
func canonKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// tabularRecords turns header-plus-rows data into field maps.
func tabularRecords(rows [][]string) []map[string]string {
	if len(rows) < 2 {
		return nil
	}
	fields := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		fields[i] = feedFields[canonKey(h)]
	}

	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(map[string]string)
		for i, cell := range row {
			if i >= len(fields) || fields[i] == "" || cell == "" {
				continue
			}
			rec[fields[i]] = cell
		}
		if len(rec) > 0 {
			records = append(records, rec)
		}
	}
	return records
}

func jsonRecords(objs []map[string]any) []map[string]string {
	records := make([]map[string]string, 0, len(objs))
	for _, obj := range objs {
		rec := make(map[string]string)
		for k, v := range obj {
			field := feedFields[canonKey(k)]
			if field == "" {
				continue
			}
			if s := feedValue(v); s != "" {
				rec[field] = s
			}
		}
		if len(rec) > 0 {
			records = append(records, rec)
		}
	}
	return records
}

func feedValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// listingFromRecord builds a listing and applies the query's location
// filter. Records without a name are dropped.
func (f *Feed) listingFromRecord(rec map[string]string, q model.Query) (model.RawListing, bool) {
	if rec["name"] == "" {
		return model.RawListing{}, false
	}
	if city := rec["city"]; city != "" && q.City != "" && !strings.EqualFold(city, q.City) {
		return model.RawListing{}, false
	}
	if state := rec["state"]; state != "" && q.State != "" && !strings.EqualFold(state, q.State) {
		return model.RawListing{}, false
	}

	l := model.RawListing{
		Name:        rec["name"],
		Street:      rec["street"],
		City:        rec["city"],
		State:       strings.ToUpper(rec["state"]),
		Zip:         rec["zip"],
		Phone:       rec["phone"],
		Website:     rec["website"],
		Email:       rec["email"],
		Category:    rec["category"],
		Description: rec["description"],
		Source:      f.Name(),
		ScrapedAt:   time.Now(),
	}
	if l.City == "" {
		l.City = q.City
	}
	if l.State == "" {
		l.State = q.State
	}
	if l.Category == "" {
		l.Category = q.Category
	}

	if year, err := strconv.Atoi(strings.TrimSpace(rec["yearbuilt"])); err == nil && year > 0 {
		l.YearBuilt = &year
	}
	if n := parseDigits(rec["sqft"]); n > 0 {
		l.Sqft = &n
	}
	if lat, err := strconv.ParseFloat(rec["lat"], 64); err == nil {
		if lng, err := strconv.ParseFloat(rec["lng"], 64); err == nil {
			l.Latitude = &lat
			l.Longitude = &lng
		}
	}

	return l, true
}
