// Package pipeline runs one search batch through the fixed stage
// sequence: searching, extracting, deduping, scoring, optional
// enriching, stored. Stages never run out of order and a batch never
// revisits an earlier stage.
package pipeline

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/logiclamp/leadscout/internal/dedupe"
	"github.com/logiclamp/leadscout/internal/enrich"
	"github.com/logiclamp/leadscout/internal/extract"
	"github.com/logiclamp/leadscout/internal/model"
	"github.com/logiclamp/leadscout/internal/score"
	"github.com/logiclamp/leadscout/internal/source"
	"github.com/logiclamp/leadscout/internal/store"
)

// Enricher annotates scored leads in place. The pipeline treats it as
// optional: a nil Enricher skips the enriching stage entirely.
type Enricher interface {
	Enrich(ctx context.Context, leads []model.Lead) enrich.Result
}

// Options wires a Pipeline. Adapters and Store are required; a nil
// Extractor or Scorer falls back to the defaults.
type Options struct {
	Adapters  []source.Adapter
	Extractor *extract.Extractor
	Scorer    *score.Scorer
	Enricher  Enricher
	Store     store.Store

	// Details fetches provider detail pages for every listing whose
	// adapter supports them, before extraction.
	Details bool

	// OnStage receives each stage result as it completes, for progress
	// display. Called from the pipeline goroutine.
	OnStage func(model.StageResult)
}

// Pipeline orchestrates one batch per Run call. It is safe to reuse
// across runs but runs must not overlap.
type Pipeline struct {
	opts Options
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	if opts.Extractor == nil {
		opts.Extractor = extract.New()
	}
	if opts.Scorer == nil {
		opts.Scorer = score.New(score.DefaultWeights())
	}
	return &Pipeline{opts: opts}
}

// Run executes the batch for one query. Per-record failures are counted
// and skipped; a store failure or cancellation aborts the remainder of
// the batch, leaving already-written leads persisted. The summary is
// always returned, and the search lands in history either way.
func (p *Pipeline) Run(ctx context.Context, q model.Query) (*model.RunSummary, error) {
	log := zap.L().With(
		zap.String("location", q.Location()),
		zap.String("category", q.Category),
	)
	log.Info("pipeline: starting batch")

	summary := &model.RunSummary{Query: q, StartedAt: time.Now().UTC()}

	// stage times fn, folds its counts into the summary, and notifies
	// the progress callback. A non-nil error is fatal to the batch.
	stage := func(name model.Stage, fn func() (processed, skipped, failed int, err error)) error {
		start := time.Now()
		processed, skipped, failed, err := fn()
		res := model.StageResult{
			Stage:     name,
			Processed: processed,
			Skipped:   skipped,
			Failed:    failed,
			Duration:  time.Since(start),
		}
		if err != nil {
			res.Error = err.Error()
			log.Error("pipeline: stage aborted",
				zap.String("stage", string(name)),
				zap.Duration("duration", res.Duration),
				zap.Error(err),
			)
		} else {
			log.Info("pipeline: stage complete",
				zap.String("stage", string(name)),
				zap.Int("processed", processed),
				zap.Int("skipped", skipped),
				zap.Int("failed", failed),
				zap.Duration("duration", res.Duration),
			)
		}
		summary.Stages = append(summary.Stages, res)
		if p.opts.OnStage != nil {
			p.opts.OnStage(res)
		}
		return err
	}

	err := p.runStages(ctx, q, summary, stage)

	for _, st := range summary.Stages {
		summary.Skipped += st.Skipped
		summary.Failed += st.Failed
	}
	summary.Duration = time.Since(summary.StartedAt)
	if err != nil {
		summary.Aborted = true
	}

	p.recordSearch(ctx, summary)

	log.Info("pipeline: batch finished",
		zap.Int("found", summary.Found),
		zap.Int("stored", summary.Stored),
		zap.Int("merged", summary.Merged),
		zap.Int("enriched", summary.Enriched),
		zap.Int("failed", summary.Failed),
		zap.Bool("aborted", summary.Aborted),
		zap.Duration("duration", summary.Duration),
	)
	return summary, err
}

func (p *Pipeline) runStages(
	ctx context.Context,
	q model.Query,
	summary *model.RunSummary,
	stage func(model.Stage, func() (int, int, int, error)) error,
) error {
	var listings []model.RawListing
	if err := stage(model.StageSearching, func() (int, int, int, error) {
		if err := ctx.Err(); err != nil {
			return 0, 0, 0, err
		}
		results := source.Discover(ctx, p.opts.Adapters, q)
		if p.opts.Details {
			p.fillDetails(ctx, results)
		}
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
				continue
			}
			listings = append(listings, r.Listings...)
		}
		summary.Found = len(listings)
		return len(listings), 0, failed, nil
	}); err != nil {
		return err
	}

	var leads []model.Lead
	if err := stage(model.StageExtracting, func() (int, int, int, error) {
		failed := 0
		for _, listing := range listings {
			if err := ctx.Err(); err != nil {
				return len(leads), 0, failed, err
			}
			lead, err := p.opts.Extractor.Extract(listing, q)
			if err != nil {
				failed++
				continue
			}
			leads = append(leads, lead)
		}
		return len(leads), 0, failed, nil
	}); err != nil {
		return err
	}

	if err := stage(model.StageDeduping, func() (int, int, int, error) {
		if err := ctx.Err(); err != nil {
			return 0, 0, 0, err
		}
		before := len(leads)
		leads = dedupe.Dedupe(leads)
		summary.Merged = before - len(leads)
		return len(leads), summary.Merged, 0, nil
	}); err != nil {
		return err
	}

	if err := stage(model.StageScoring, func() (int, int, int, error) {
		for i := range leads {
			if err := ctx.Err(); err != nil {
				return i, 0, 0, err
			}
			p.opts.Scorer.Apply(&leads[i])
		}
		return len(leads), 0, 0, nil
	}); err != nil {
		return err
	}

	if p.opts.Enricher != nil {
		if err := stage(model.StageEnriching, func() (int, int, int, error) {
			if err := ctx.Err(); err != nil {
				return 0, 0, 0, err
			}
			res := p.opts.Enricher.Enrich(ctx, leads)
			summary.Enriched = res.Enriched
			return res.Enriched, res.Skipped, 0, nil
		}); err != nil {
			return err
		}
	}

	return stage(model.StageStored, func() (int, int, int, error) {
		failed := 0
		for i := range leads {
			if err := ctx.Err(); err != nil {
				return summary.Stored, len(leads) - i, failed, err
			}
			existing, err := p.opts.Store.GetByDedupeKey(ctx, leads[i].DedupeKey)
			if err != nil {
				if store.IsStoreError(err) {
					return summary.Stored, len(leads) - i - 1, failed, err
				}
				failed++
				zap.L().Warn("pipeline: lead not stored",
					zap.String("lead", leads[i].Name), zap.Error(err))
				continue
			}
			if existing != nil {
				// Fold the stored row's fields into the fresh scrape so
				// a thinner re-scrape can only add information, then
				// re-score the combined record.
				leads[i] = dedupe.Merge(leads[i], *existing)
				p.opts.Scorer.Apply(&leads[i])
			}
			if err := p.opts.Store.UpsertLead(ctx, &leads[i]); err != nil {
				if store.IsStoreError(err) {
					// Leads already written stay persisted; the rest of
					// the batch is abandoned.
					return summary.Stored, len(leads) - i - 1, failed, err
				}
				failed++
				zap.L().Warn("pipeline: lead not stored",
					zap.String("lead", leads[i].Name), zap.Error(err))
				continue
			}
			summary.Stored++
		}
		return summary.Stored, 0, failed, nil
	})
}

// fillDetails upgrades listings in place from provider detail pages.
// Detail failures keep the search listing and are not counted against
// the batch.
func (p *Pipeline) fillDetails(ctx context.Context, results []source.Result) {
	byName := make(map[string]source.Adapter, len(p.opts.Adapters))
	for _, a := range p.opts.Adapters {
		byName[a.Name()] = a
	}
	for ri := range results {
		d, ok := byName[results[ri].Source].(source.Detailer)
		if !ok {
			continue
		}
		for li := range results[ri].Listings {
			if ctx.Err() != nil {
				return
			}
			full, err := d.Details(ctx, results[ri].Listings[li])
			if err != nil {
				zap.L().Debug("pipeline: detail fetch failed",
					zap.String("source", results[ri].Source),
					zap.String("listing", results[ri].Listings[li].Name),
					zap.Error(err),
				)
				continue
			}
			results[ri].Listings[li] = full
		}
	}
}

// recordSearch lands the batch in search history, surviving cancellation
// so aborted runs still show up on the dashboard.
func (p *Pipeline) recordSearch(ctx context.Context, summary *model.RunSummary) {
	names := make([]string, 0, len(p.opts.Adapters))
	for _, a := range p.opts.Adapters {
		names = append(names, a.Name())
	}
	search := &model.Search{
		City:      summary.Query.City,
		State:     summary.Query.State,
		Category:  summary.Query.Category,
		Source:    strings.Join(names, ","),
		Requested: summary.Query.Limit,
		Found:     summary.Found,
		Stored:    summary.Stored,
	}
	if err := p.opts.Store.RecordSearch(context.WithoutCancel(ctx), search); err != nil {
		zap.L().Warn("pipeline: search history not recorded", zap.Error(err))
	}
}
