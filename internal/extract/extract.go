// Package extract normalizes raw listings into lead candidates. Missing
// building attributes are filled from free-text heuristics and tagged
// with the confidence of how they were obtained.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/logiclamp/leadscout/internal/model"
	"github.com/logiclamp/leadscout/internal/source"
)

var (
	yearPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)built in ((?:19|20)\d{2})`),
		regexp.MustCompile(`(?i)established (?:in )?((?:19|20)\d{2})`),
		regexp.MustCompile(`(?i)since ((?:19|20)\d{2})`),
		regexp.MustCompile(`(?i)\best\.?\s*((?:19|20)\d{2})`),
	}
	yearsOpenRe = regexp.MustCompile(`(?i)(\d{1,3})\+?\s*years in business`)
	sqftRe      = regexp.MustCompile(`(?i)([\d,]+)\s*(?:sq\.?\s*ft|square\s+feet|sf)\b`)

	// "123 Main St, Columbus, OH 43215" with the zip optional.
	addressRe = regexp.MustCompile(`^(.*?),\s*(.*?),\s*([A-Za-z]{2})\b\s*(\d{5})?`)
)

// sizeClasses maps building-type keywords to a typical floor area when
// no explicit figure is present. First match wins.
var sizeClasses = []struct {
	keyword string
	sqft    int
}{
	{"warehouse", 50000},
	{"tower", 100000},
	{"complex", 60000},
	{"plaza", 40000},
	{"suite", 5000},
}

// Extractor builds lead candidates from raw listings.
type Extractor struct {
	refYear int
}

// New anchors years-in-business arithmetic to the current year.
func New() *Extractor { return NewAt(time.Now().Year()) }

// NewAt anchors years-in-business arithmetic to a fixed reference year.
func NewAt(refYear int) *Extractor { return &Extractor{refYear: refYear} }

// Extract normalizes one listing into a lead candidate. Listings without
// a usable name are rejected with a ParseError. A panic while scanning
// free text downgrades the listing to a minimal record instead of
// dropping it.
func (e *Extractor) Extract(listing model.RawListing, q model.Query) (lead model.Lead, err error) {
	name := strings.TrimSpace(listing.Name)
	if name == "" {
		return model.Lead{}, &source.ParseError{
			Source: listing.Source,
			URL:    listing.DetailURL,
			Reason: "listing without a name",
		}
	}

	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("extraction failed, keeping minimal record",
				zap.String("name", name),
				zap.String("source", listing.Source),
				zap.Any("panic", r))
			lead = e.minimal(name, listing)
			err = nil
		}
	}()

	lead = model.Lead{
		ID:           uuid.NewString(),
		Name:         name,
		Street:       strings.TrimSpace(listing.Street),
		City:         strings.TrimSpace(listing.City),
		State:        strings.ToUpper(strings.TrimSpace(listing.State)),
		Zip:          strings.TrimSpace(listing.Zip),
		Phone:        strings.TrimSpace(listing.Phone),
		Email:        strings.TrimSpace(listing.Email),
		Website:      strings.TrimSpace(listing.Website),
		ContactName:  strings.TrimSpace(listing.ContactName),
		ContactTitle: strings.TrimSpace(listing.ContactTitle),
		Category:     strings.TrimSpace(listing.Category),
		Description:  strings.TrimSpace(listing.Description),
		Latitude:     listing.Latitude,
		Longitude:    listing.Longitude,
		Source:       listing.Source,
		Sources:      []string{listing.Source},
		ScrapedAt:    listing.ScrapedAt,
	}
	if lead.ScrapedAt.IsZero() {
		lead.ScrapedAt = time.Now()
	}
	if lead.Category == "" {
		lead.Category = q.Category
	}

	e.fillAddress(&lead, listing, q)
	e.fillYear(&lead, listing)
	e.fillSize(&lead, listing)
	return lead, nil
}

// fillAddress splits a combined address line when the source gave no
// separate fields, and falls back to the query's location.
func (e *Extractor) fillAddress(lead *model.Lead, listing model.RawListing, q model.Query) {
	if lead.Street == "" && listing.AddressText != "" {
		text := strings.TrimSpace(listing.AddressText)
		if m := addressRe.FindStringSubmatch(text); m != nil {
			lead.Street = strings.TrimSpace(m[1])
			if lead.City == "" {
				lead.City = strings.TrimSpace(m[2])
			}
			if lead.State == "" {
				lead.State = strings.ToUpper(m[3])
			}
			if lead.Zip == "" {
				lead.Zip = m[4]
			}
		} else {
			lead.Street = text
		}
	}
	if lead.City == "" {
		lead.City = q.City
	}
	if lead.State == "" {
		lead.State = strings.ToUpper(q.State)
	}
}

func (e *Extractor) fillYear(lead *model.Lead, listing model.RawListing) {
	if listing.YearBuilt != nil && *listing.YearBuilt > 0 {
		lead.YearBuilt = listing.YearBuilt
		lead.YearBuiltConfidence = model.ConfidenceMeasured
		return
	}
	if year := e.inferYear(freeText(listing)); year != nil {
		lead.YearBuilt = year
		lead.YearBuiltConfidence = model.ConfidenceInferred
		return
	}
	lead.YearBuiltConfidence = model.ConfidenceNone
}

func (e *Extractor) fillSize(lead *model.Lead, listing model.RawListing) {
	if listing.Sqft != nil && *listing.Sqft > 0 {
		lead.Sqft = listing.Sqft
		lead.SqftConfidence = model.ConfidenceMeasured
		return
	}

	text := freeText(listing)
	if m := sqftRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil && n > 0 {
			lead.Sqft = &n
			lead.SqftConfidence = model.ConfidenceInferred
			return
		}
	}

	lower := strings.ToLower(text)
	for _, class := range sizeClasses {
		if strings.Contains(lower, class.keyword) {
			sqft := class.sqft
			lead.Sqft = &sqft
			lead.SqftConfidence = model.ConfidenceInferred
			return
		}
	}
	lead.SqftConfidence = model.ConfidenceNone
}

// inferYear scans free text for a construction or founding year. A
// years-in-business count converts relative to the reference year.
func (e *Extractor) inferYear(text string) *int {
	for _, re := range yearPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if y, err := strconv.Atoi(m[1]); err == nil && y <= e.refYear {
				return &y
			}
		}
	}
	if m := yearsOpenRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			y := e.refYear - n
			return &y
		}
	}
	return nil
}

// minimal keeps just enough of a failed listing to audit its origin.
func (e *Extractor) minimal(name string, listing model.RawListing) model.Lead {
	scraped := listing.ScrapedAt
	if scraped.IsZero() {
		scraped = time.Now()
	}
	return model.Lead{
		ID:                  uuid.NewString(),
		Name:                name,
		Source:              listing.Source,
		Sources:             []string{listing.Source},
		ScrapedAt:           scraped,
		YearBuiltConfidence: model.ConfidenceNone,
		SqftConfidence:      model.ConfidenceNone,
	}
}

func freeText(listing model.RawListing) string {
	return listing.Name + " " + listing.Category + " " + listing.Description
}
