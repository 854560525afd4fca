package source

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/logiclamp/leadscout/internal/model"
)

// Result is one adapter's contribution to a search.
type Result struct {
	Source   string
	Listings []model.RawListing
	Err      error
}

// Discover runs the adapters concurrently and collects their results in
// adapter order. A failing adapter lands its error in its own Result
// and never stops the others.
func Discover(ctx context.Context, adapters []Adapter, q model.Query) []Result {
	results := make([]Result, len(adapters))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, a := range adapters {
		g.Go(func() error {
			log := zap.L().With(zap.String("source", a.Name()), zap.String("location", q.Location()))

			log.Info("searching")
			listings, err := a.Search(gctx, q)
			results[i] = Result{Source: a.Name(), Listings: listings, Err: err}

			switch {
			case IsUnavailable(err):
				log.Warn("source unavailable, continuing without it", zap.Error(err))
			case err != nil:
				log.Warn("search failed", zap.Error(err))
			default:
				log.Info("search complete", zap.Int("listings", len(listings)))
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
