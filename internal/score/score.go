// Package score assigns the deterministic rule-based lead score. The
// composite is the sum of five sub-scores, each clipped to its
// configured ceiling, so identical attributes always produce identical
// results no matter when or how often a lead is re-scored.
package score

import (
	"strings"
	"time"

	"github.com/logiclamp/leadscout/internal/model"
)

// categoryTiers maps business-category keywords to base points. Tiers
// are scanned in order; first match wins.
var categoryTiers = []struct {
	points   int
	keywords []string
}{
	{20, []string{"office", "commercial", "property", "building"}},
	{16, []string{"industrial", "manufacturing", "factory", "warehouse", "energy", "utilities"}},
	{12, []string{"hospital", "medical", "hotel", "school"}},
	{10, []string{"retail", "restaurant", "mall"}},
}

// Scorer computes component scores against a fixed reference year, so a
// batch scored across a year boundary stays internally consistent.
type Scorer struct {
	weights Weights
	refYear int
}

// New creates a scorer anchored to the current year.
func New(w Weights) *Scorer { return NewAt(w, time.Now().Year()) }

// NewAt creates a scorer with a fixed reference year for age math.
func NewAt(w Weights, refYear int) *Scorer {
	return &Scorer{weights: w, refYear: refYear}
}

// Score computes the five component scores for a lead. It never mutates
// the lead; callers store the result and its Total as raw_score.
func (s *Scorer) Score(lead model.Lead) model.ComponentScores {
	return model.ComponentScores{
		Age:          clip(s.agePoints(lead), s.weights.Age),
		Size:         clip(sizePoints(lead), s.weights.Size),
		BusinessType: clip(typePoints(lead.Category), s.weights.BusinessType),
		Website:      clip(websitePoints(lead.Website), s.weights.Website),
		Contact:      clip(contactPoints(lead), s.weights.Contact),
	}
}

// Apply scores the lead in place, touching only its scoring fields.
func (s *Scorer) Apply(lead *model.Lead) {
	lead.Scores = s.Score(*lead)
	lead.RawScore = lead.Scores.Total()
}

// agePoints rewards older buildings: the retrofit opportunity grows
// with age and saturates at thirty years.
func (s *Scorer) agePoints(lead model.Lead) int {
	age := lead.BuildingAge(s.refYear)
	switch {
	case age < 0:
		return 0
	case age >= 30:
		return 30
	case age >= 20:
		return 22
	case age >= 10:
		return 14
	default:
		return 6
	}
}

func sizePoints(lead model.Lead) int {
	if lead.Sqft == nil || *lead.Sqft <= 0 {
		return 0
	}
	switch sqft := *lead.Sqft; {
	case sqft >= 50000:
		return 25
	case sqft >= 20000:
		return 19
	case sqft >= 10000:
		return 13
	default:
		return 6
	}
}

func typePoints(category string) int {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		return 4
	}
	for _, tier := range categoryTiers {
		for _, kw := range tier.keywords {
			if strings.Contains(category, kw) {
				return tier.points
			}
		}
	}
	return 8
}

func websitePoints(website string) int {
	if strings.TrimSpace(website) == "" {
		return 0
	}
	return 10
}

// contactPoints grades reachability: a direct email beats a named
// contact, which beats a bare phone number.
func contactPoints(lead model.Lead) int {
	switch {
	case lead.Email != "":
		return 15
	case lead.ContactName != "":
		return 8
	case lead.Phone != "":
		return 5
	default:
		return 0
	}
}

func clip(points, max int) int {
	if points > max {
		return max
	}
	return points
}
