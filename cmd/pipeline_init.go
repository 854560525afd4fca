package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/logiclamp/leadscout/internal/enrich"
	"github.com/logiclamp/leadscout/internal/fetcher"
	"github.com/logiclamp/leadscout/internal/score"
	"github.com/logiclamp/leadscout/internal/source"
	"github.com/logiclamp/leadscout/internal/store"
	anthropicpkg "github.com/logiclamp/leadscout/pkg/anthropic"
)

// pipelineEnv holds the store, source registry, and clients the
// find/serve commands assemble a pipeline from.
type pipelineEnv struct {
	Store    store.Store
	Registry *source.Registry
	Enricher *enrich.Enricher // nil when enrichment is disabled
	Scorer   *score.Scorer

	browser *fetcher.BrowserFetcher
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.browser != nil {
		pe.browser.Close()
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates config for the named command, opens and
// migrates the store, and wires the fetch layer, source adapters,
// scorer, and (when enabled) the enricher. Callers should defer
// env.Close().
func initPipeline(ctx context.Context, command string) (*pipelineEnv, error) {
	if err := cfg.Validate(command); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	if n, err := st.DeleteExpiredPages(ctx); err != nil {
		zap.L().Warn("page cache sweep failed", zap.Error(err))
	} else if n > 0 {
		zap.L().Debug("page cache swept", zap.Int64("expired", n))
	}

	httpf := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    cfg.Scrape.UserAgent,
		Timeout:      cfg.Scrape.Timeout(),
		MaxRetries:   cfg.Scrape.MaxRetries,
		DelayMin:     cfg.Scrape.DelayMin(),
		DelayMax:     cfg.Scrape.DelayMax(),
		MaxBodyBytes: cfg.Scrape.MaxBodyBytes,
		Cache:        store.NewPageCache(st, cfg.Scrape.CacheTTL()),
	})
	browser := fetcher.NewBrowserFetcher(fetcher.BrowserOptions{
		Headless: cfg.Scrape.Headless,
		DelayMin: cfg.Scrape.DelayMin(),
		DelayMax: cfg.Scrape.DelayMax(),
	})

	reg := source.NewRegistry(
		source.NewYellowPages(httpf),
		source.NewGoogleMaps(browser),
	)
	if cfg.Sources.FeedURL != "" {
		ftpf := fetcher.NewFTPFetcher(fetcher.FTPOptions{
			Timeout:      cfg.Scrape.Timeout(),
			MaxBodyBytes: cfg.Scrape.MaxBodyBytes,
		})
		reg.Register(source.NewFeed(httpf, ftpf, source.FeedOptions{
			URL:    cfg.Sources.FeedURL,
			Format: cfg.Sources.FeedFormat,
		}))
	}

	scorer, err := initScorer()
	if err != nil {
		browser.Close()
		_ = st.Close()
		return nil, err
	}

	return &pipelineEnv{
		Store:    st,
		Registry: reg,
		Enricher: initEnricher(false),
		Scorer:   scorer,
		browser:  browser,
	}, nil
}

// initScorer builds the scorer from the weights file when one is
// configured, otherwise from the per-component maxima in config.
func initScorer() (*score.Scorer, error) {
	if cfg.Score.WeightsFile != "" {
		w, err := score.LoadWeights(cfg.Score.WeightsFile)
		if err != nil {
			return nil, eris.Wrap(err, "load score weights")
		}
		return score.New(w), nil
	}
	w := score.Weights{
		Age:          cfg.Score.Age,
		Size:         cfg.Score.Size,
		BusinessType: cfg.Score.BusinessType,
		Website:      cfg.Score.Website,
		Contact:      cfg.Score.Contact,
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return score.New(w), nil
}

// initEnricher builds the Claude enricher, or returns nil when
// enrichment is disabled or unkeyed. With outreach set, every enriched
// lead also gets an email draft.
func initEnricher(outreach bool) *enrich.Enricher {
	if !cfg.AI.Enabled || cfg.AI.Key == "" {
		if cfg.AI.Enabled {
			zap.L().Warn("ai.key not set, enrichment disabled")
		}
		return nil
	}
	return enrich.New(anthropicpkg.NewClient(cfg.AI.Key), enrich.Options{
		Model:       cfg.AI.Model,
		MaxTokens:   int64(cfg.AI.MaxTokens),
		Concurrency: cfg.AI.Workers,
		Outreach:    outreach,
		Sender: enrich.Sender{
			Name:    cfg.Outreach.SenderName,
			Title:   cfg.Outreach.SenderTitle,
			Company: cfg.Outreach.CompanyName,
		},
	})
}
