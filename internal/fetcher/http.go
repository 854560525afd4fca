package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/logiclamp/leadscout/internal/resilience"
)

// defaultUserAgent matches a current desktop Chrome; several directory
// sites serve stripped pages to non-browser agents.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// HTTPOptions configures the HTTP fetcher. Zero values take the noted
// defaults.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration // per-request, default 30s
	MaxRetries   int           // attempts per fetch including the first, default 3
	DelayMin     time.Duration // courtesy gap between same-host requests, default 500ms
	DelayMax     time.Duration // default 1500ms
	MaxBodyBytes int64         // response size cap, default 2 MiB
	HostRPS      rate.Limit    // steady per-host ceiling, default 2
	Cache        Cache         // optional page cache
}

// adaptiveLimiter is a per-host rate.Limiter that tunes itself from
// responses: +20% on success up to 2x the initial rate, halved on 429
// down to a quarter of it.
type adaptiveLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	current rate.Limit
	max     rate.Limit
	min     rate.Limit
}

func newAdaptiveLimiter(initial rate.Limit, burst int) *adaptiveLimiter {
	return &adaptiveLimiter{
		limiter: rate.NewLimiter(initial, burst),
		current: initial,
		max:     initial * 2,
		min:     initial / 4,
	}
}

func (a *adaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

func (a *adaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	r := a.current * 1.2
	if r > a.max {
		r = a.max
	}
	a.current = r
	a.limiter.SetLimit(r)
}

func (a *adaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	r := a.current * 0.5
	if r < a.min {
		r = a.min
	}
	a.current = r
	a.limiter.SetLimit(r)
	zap.L().Warn("halving request rate after 429", zap.Float64("rps", float64(r)))
}

func (a *adaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// HTTPFetcher fetches pages over plain HTTP with per-host rate limiting,
// courtesy delays, bounded retries, and an optional page cache.
type HTTPFetcher struct {
	client   *http.Client
	opts     HTTPOptions
	policy   resilience.Policy
	throttle *Throttle

	mu       sync.Mutex
	limiters map[string]*adaptiveLimiter
}

// NewHTTPFetcher creates an HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.DelayMin == 0 {
		opts.DelayMin = 500 * time.Millisecond
	}
	if opts.DelayMax == 0 {
		opts.DelayMax = 1500 * time.Millisecond
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = 2 << 20
	}
	if opts.HostRPS == 0 {
		opts.HostRPS = 2
	}

	policy := resilience.DefaultPolicy()
	policy.MaxAttempts = opts.MaxRetries

	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		policy:   policy,
		throttle: NewThrottle(opts.DelayMin, opts.DelayMax),
		limiters: make(map[string]*adaptiveLimiter),
	}
}

// limiterFor returns the host's adaptive limiter, creating it on first use.
func (f *HTTPFetcher) limiterFor(host string) *adaptiveLimiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		burst := int(f.opts.HostRPS)
		if burst < 1 {
			burst = 1
		}
		lim = newAdaptiveLimiter(f.opts.HostRPS, burst)
		f.limiters[host] = lim
	}
	return lim
}

// Fetch retrieves the URL, serving from the page cache when possible.
// Server errors and 429s are retried with backoff; other client errors
// fail immediately.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if f.opts.Cache != nil {
		body, ok, err := f.opts.Cache.Get(ctx, rawURL)
		if err != nil {
			zap.L().Warn("page cache read failed", zap.String("url", rawURL), zap.Error(err))
		} else if ok {
			zap.L().Debug("page cache hit", zap.String("url", rawURL))
			return body, nil
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "parse url %q", rawURL)
	}

	policy := f.policy
	policy.OnRetry = resilience.LogRetries("fetcher", "GET "+u.Host)

	body, err := resilience.DoVal(ctx, policy, func(ctx context.Context) ([]byte, error) {
		return f.fetchOnce(ctx, rawURL, u.Host)
	})
	if err != nil {
		return nil, err
	}

	if f.opts.Cache != nil {
		if err := f.opts.Cache.Put(ctx, rawURL, body); err != nil {
			zap.L().Warn("page cache write failed", zap.String("url", rawURL), zap.Error(err))
		}
	}
	return body, nil
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, rawURL, host string) ([]byte, error) {
	lim := f.limiterFor(host)
	if err := lim.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rate limiter wait")
	}
	if err := f.throttle.Wait(ctx, host); err != nil {
		return nil, eris.Wrap(err, "throttle wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, resilience.NewNetworkError(err, 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		lim.OnRateLimit()
		return nil, &resilience.RateLimitError{Source: host, RetryAfter: resilience.RetryAfterHint(resp)}
	case resp.StatusCode != http.StatusOK:
		err := eris.Errorf("http %d from %s", resp.StatusCode, rawURL)
		if resilience.RetryableStatus(resp.StatusCode) {
			return nil, resilience.NewNetworkError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := readCapped(resp.Body, f.opts.MaxBodyBytes)
	if err != nil {
		return nil, eris.Wrapf(err, "read body from %s", rawURL)
	}

	lim.OnSuccess()
	zap.L().Debug("fetched",
		zap.String("url", rawURL),
		zap.Int("bytes", len(body)),
		zap.Duration("took", time.Since(start)),
	)
	return body, nil
}

// readCapped reads r fully, failing if the content exceeds max bytes.
func readCapped(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, eris.Errorf("response body exceeds %d bytes", max)
	}
	return data, nil
}
