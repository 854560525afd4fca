// Package dedupe canonicalizes lead identity and merges duplicates.
// Two candidates are the same business when their normalized name and
// street address collide; merging keeps the better-attested value of
// every field.
package dedupe

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/logiclamp/leadscout/internal/model"
)

// accentFold strips diacritics so "Café" and "Cafe" collide.
var accentFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// abbrev maps spelled-out address words to their postal short forms.
var abbrev = map[string]string{
	"street":    "st",
	"avenue":    "ave",
	"boulevard": "blvd",
	"drive":     "dr",
	"road":      "rd",
	"lane":      "ln",
	"court":     "ct",
	"place":     "pl",
	"parkway":   "pkwy",
	"highway":   "hwy",
	"suite":     "ste",
	"north":     "n",
	"south":     "s",
	"east":      "e",
	"west":      "w",
}

// legalSuffixes are trailing company-form tokens dropped from names.
var legalSuffixes = map[string]bool{
	"inc":          true,
	"llc":          true,
	"corp":         true,
	"co":           true,
	"ltd":          true,
	"lp":           true,
	"llp":          true,
	"pllc":         true,
	"pc":           true,
	"company":      true,
	"incorporated": true,
	"corporation":  true,
	"limited":      true,
}

// Key computes the canonical identity of a business at an address. Keys
// are stable across casing, punctuation, accents, postal abbreviations,
// and legal suffixes.
func Key(name, street string) string {
	return strings.Join(tokens(name, true), "") + "|" + strings.Join(tokens(street, false), "")
}

func tokens(s string, dropLegal bool) []string {
	if folded, _, err := transform.String(accentFold, s); err == nil {
		s = folded
	}
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "&", " and ")

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}

	parts := strings.Fields(b.String())
	for i, p := range parts {
		if short, ok := abbrev[p]; ok {
			parts[i] = short
		}
	}
	if dropLegal {
		for len(parts) > 1 && legalSuffixes[parts[len(parts)-1]] {
			parts = parts[:len(parts)-1]
		}
	}
	return parts
}

// Dedupe collapses candidates that share a canonical key, preserving
// first-seen order. Every returned lead carries its DedupeKey. Running
// it again over its own output changes nothing.
func Dedupe(leads []model.Lead) []model.Lead {
	byKey := make(map[string]int, len(leads))
	out := make([]model.Lead, 0, len(leads))
	for _, lead := range leads {
		lead.DedupeKey = Key(lead.Name, lead.Street)
		if idx, ok := byKey[lead.DedupeKey]; ok {
			out[idx] = Merge(out[idx], lead)
			continue
		}
		byKey[lead.DedupeKey] = len(out)
		out = append(out, lead)
	}
	return out
}

// Merge folds b into a and returns the combined lead. a's identity
// fields win; for the rest, a populated value beats an empty one,
// higher confidence beats lower, and the more recently scraped value
// breaks ties. No populated field is ever replaced by an unknown.
func Merge(a, b model.Lead) model.Lead {
	newer := b.ScrapedAt.After(a.ScrapedAt)

	pick := func(av, bv string) string {
		if av == "" {
			return bv
		}
		if bv == "" {
			return av
		}
		if newer {
			return bv
		}
		return av
	}

	a.Street = pick(a.Street, b.Street)
	a.City = pick(a.City, b.City)
	a.State = pick(a.State, b.State)
	a.Zip = pick(a.Zip, b.Zip)
	a.Phone = pick(a.Phone, b.Phone)
	a.Email = pick(a.Email, b.Email)
	a.Website = pick(a.Website, b.Website)
	a.ContactName = pick(a.ContactName, b.ContactName)
	a.ContactTitle = pick(a.ContactTitle, b.ContactTitle)
	a.Category = pick(a.Category, b.Category)
	a.Description = pick(a.Description, b.Description)
	a.Notes = pick(a.Notes, b.Notes)

	a.YearBuilt, a.YearBuiltConfidence = mergeMeasure(
		a.YearBuilt, a.YearBuiltConfidence, b.YearBuilt, b.YearBuiltConfidence, newer)
	a.Sqft, a.SqftConfidence = mergeMeasure(
		a.Sqft, a.SqftConfidence, b.Sqft, b.SqftConfidence, newer)

	if a.Latitude == nil || (b.Latitude != nil && newer) {
		a.Latitude = b.Latitude
		a.Longitude = b.Longitude
	}

	for _, s := range b.Sources {
		a.AddSource(s)
	}
	if b.ScrapedAt.After(a.ScrapedAt) {
		a.ScrapedAt = b.ScrapedAt
	}
	return a
}

// mergeMeasure resolves two confidence-tagged measurements.
func mergeMeasure(av *int, ac model.Confidence, bv *int, bc model.Confidence, newer bool) (*int, model.Confidence) {
	if bv == nil {
		return av, ac
	}
	if av == nil {
		return bv, bc
	}
	switch {
	case bc.Rank() > ac.Rank():
		return bv, bc
	case bc.Rank() < ac.Rank():
		return av, ac
	case newer:
		return bv, bc
	default:
		return av, ac
	}
}
