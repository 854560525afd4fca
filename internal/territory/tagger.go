package territory

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/logiclamp/leadscout/internal/model"
	"github.com/logiclamp/leadscout/internal/store"
	"github.com/logiclamp/leadscout/pkg/geocode"
)

// Tagger backfills coordinates and territory membership on stored leads.
// It runs outside the scraping pipeline, against leads already persisted.
type Tagger struct {
	store    store.Store
	geocoder geocode.Client
	terr     *Territory
}

// TagResult summarizes one backfill run.
type TagResult struct {
	Scanned  int // leads missing coordinates or a territory flag
	Geocoded int // addresses newly resolved
	Tagged   int // leads whose territory flag was set
	InArea   int // tagged leads inside the territory
	Skipped  int // leads whose address could not be resolved
}

func NewTagger(s store.Store, gc geocode.Client, terr *Territory) *Tagger {
	return &Tagger{store: s, geocoder: gc, terr: terr}
}

// defaultTagLimit caps a run with no explicit limit.
const defaultTagLimit = 10000

// Tag annotates up to limit stored leads that lack coordinates or a
// territory flag. A limit of zero or less scans up to 10,000 leads. Leads
// the geocoder cannot resolve are counted as skipped and left untouched.
func (t *Tagger) Tag(ctx context.Context, limit int) (*TagResult, error) {
	if limit <= 0 {
		limit = defaultTagLimit
	}
	leads, err := t.store.ListLeads(ctx, store.Filter{Limit: limit})
	if err != nil {
		return nil, eris.Wrap(err, "territory: list leads")
	}

	res := &TagResult{}
	var pending []*model.Lead
	for i := range leads {
		l := &leads[i]
		if l.Latitude != nil && l.Longitude != nil && l.InTerritory != nil {
			continue
		}
		pending = append(pending, l)
	}
	res.Scanned = len(pending)
	if len(pending) == 0 {
		return res, nil
	}

	// Geocode the subset without coordinates in one batch, keyed by lead ID.
	var (
		inputs []geocode.AddressInput
		byID   = make(map[string]*model.Lead)
	)
	for _, l := range pending {
		if l.Latitude != nil && l.Longitude != nil {
			continue
		}
		if l.Street == "" || l.City == "" {
			res.Skipped++
			continue
		}
		byID[l.ID] = l
		inputs = append(inputs, geocode.AddressInput{
			ID:      l.ID,
			Street:  l.Street,
			City:    l.City,
			State:   l.State,
			ZipCode: l.Zip,
		})
	}

	if len(inputs) > 0 {
		geocoded, err := t.geocoder.BatchGeocode(ctx, inputs)
		if err != nil {
			return res, eris.Wrap(err, "territory: geocode leads")
		}
		for _, g := range geocoded {
			l, ok := byID[g.ID]
			if !ok {
				continue
			}
			if !g.Matched {
				res.Skipped++
				continue
			}
			l.Latitude = model.Float64Ptr(g.Latitude)
			l.Longitude = model.Float64Ptr(g.Longitude)
			res.Geocoded++
		}
	}

	for _, l := range pending {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "territory: tagging cancelled")
		}
		if l.Latitude == nil || l.Longitude == nil {
			continue
		}

		inside := t.terr.Contains(*l.Latitude, *l.Longitude)
		l.InTerritory = model.BoolPtr(inside)
		if err := t.store.UpsertLead(ctx, l); err != nil {
			if store.IsStoreError(err) {
				return res, err
			}
			zap.L().Warn("territory: failed to update lead",
				zap.String("id", l.ID),
				zap.String("name", l.Name),
				zap.Error(err))
			continue
		}
		res.Tagged++
		if inside {
			res.InArea++
		}
	}

	zap.L().Info("territory: backfill complete",
		zap.Int("scanned", res.Scanned),
		zap.Int("geocoded", res.Geocoded),
		zap.Int("tagged", res.Tagged),
		zap.Int("in_area", res.InArea),
		zap.Int("skipped", res.Skipped))
	return res, nil
}
