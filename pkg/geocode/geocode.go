// Package geocode resolves street addresses to coordinates using the US
// Census Bureau geocoder. The service is free and needs no API key, which
// makes it the default provider for backfilling lead coordinates.
package geocode

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// AddressInput is one address to resolve. ID correlates batch responses
// back to their inputs; BatchGeocode assigns positional IDs when empty.
type AddressInput struct {
	ID      string
	Street  string
	City    string
	State   string
	ZipCode string
}

// Result is the outcome of geocoding a single address. An address the
// provider could not match has Matched false and zero coordinates.
type Result struct {
	ID        string
	Latitude  float64
	Longitude float64
	Source    string
	Quality   string
	Matched   bool
}

// Client geocodes addresses one at a time or in batches.
type Client interface {
	// Geocode resolves a single address. An unmatched address is not an
	// error; the returned Result has Matched false.
	Geocode(ctx context.Context, addr AddressInput) (*Result, error)

	// BatchGeocode resolves addresses through the batch endpoint and
	// returns one Result per input, in input order. If a batch request
	// fails it retries that chunk address by address.
	BatchGeocode(ctx context.Context, addrs []AddressInput) ([]Result, error)
}

// ClientOption configures the geocoding client.
type ClientOption func(*geocoder)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(g *geocoder) {
		if hc != nil {
			g.httpClient = hc
		}
	}
}

// WithRateLimit sets the maximum request rate in requests per second.
// Zero or negative disables rate limiting.
func WithRateLimit(rps float64) ClientOption {
	return func(g *geocoder) {
		if rps <= 0 {
			g.limiter = nil
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type geocoder struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// NewClient returns a Client backed by the Census geocoder, limited to
// 2 req/s by default.
func NewClient(opts ...ClientOption) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(2), 2),
		baseURL:    censusBaseURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *geocoder) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "geocode: rate limit wait")
	}
	return nil
}
