package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = "leadscout-test"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.DelayMin == 0 {
		opts.DelayMin = time.Millisecond
		opts.DelayMax = 2 * time.Millisecond
	}
	if opts.HostRPS == 0 {
		opts.HostRPS = 1000
	}
	f := NewHTTPFetcher(opts)
	f.policy.BaseDelay = time.Millisecond
	f.policy.MaxDelay = 5 * time.Millisecond
	return f
}

func TestFetchSendsUserAgent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "leadscout-test", r.Header.Get("User-Agent"))
		w.Write([]byte("<html>hello</html>"))
	}))
	defer srv.Close()

	f := newTestHTTPFetcher(HTTPOptions{})
	body, err := f.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, "<html>hello</html>", string(body))
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestHTTPFetcher(HTTPOptions{MaxRetries: 3})
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestHTTPFetcher(HTTPOptions{MaxRetries: 3})
	_, err := f.Fetch(context.Background(), srv.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchRecoversFromRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	f := newTestHTTPFetcher(HTTPOptions{MaxRetries: 3})
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(body))
	assert.Equal(t, int32(2), calls.Load())

	// The 429 must have pushed the host's rate below its starting point.
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	assert.Less(t, float64(f.limiterFor(u.Host).Limit()), float64(1000))
}

func TestFetchBodyCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer srv.Close()

	f := newTestHTTPFetcher(HTTPOptions{MaxBodyBytes: 16})
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 16 bytes")
}

type memCache struct {
	mu    sync.Mutex
	pages map[string][]byte
	puts  int
}

func (c *memCache) Get(_ context.Context, url string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.pages[url]
	return b, ok, nil
}

func (c *memCache) Put(_ context.Context, url string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pages == nil {
		c.pages = make(map[string][]byte)
	}
	c.pages[url] = append([]byte(nil), body...)
	c.puts++
	return nil
}

func TestFetchServesFromCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("cached fetch must not hit the network")
	}))
	defer srv.Close()

	cache := &memCache{pages: map[string][]byte{srv.URL + "/page": []byte("cached body")}}
	f := newTestHTTPFetcher(HTTPOptions{Cache: cache})

	body, err := f.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, "cached body", string(body))
}

func TestFetchFillsCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fresh body"))
	}))
	defer srv.Close()

	cache := &memCache{}
	f := newTestHTTPFetcher(HTTPOptions{Cache: cache})

	_, err := f.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.puts)
	assert.Equal(t, []byte("fresh body"), cache.pages[srv.URL+"/page"])
}

func TestFetchContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("unreachable"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newTestHTTPFetcher(HTTPOptions{})
	_, err := f.Fetch(ctx, srv.URL)
	require.Error(t, err)
}

func TestAdaptiveLimiterTuning(t *testing.T) {
	lim := newAdaptiveLimiter(10, 10)

	lim.OnRateLimit()
	assert.InDelta(t, 5.0, float64(lim.Limit()), 0.001)

	// Repeated 429s bottom out at a quarter of the initial rate.
	for range 10 {
		lim.OnRateLimit()
	}
	assert.InDelta(t, 2.5, float64(lim.Limit()), 0.001)

	// Sustained success climbs back up, capped at twice the initial rate.
	for range 50 {
		lim.OnSuccess()
	}
	assert.InDelta(t, 20.0, float64(lim.Limit()), 0.001)
}

func TestReadCappedUnlimited(t *testing.T) {
	data, err := readCapped(strings.NewReader("abc"), 0)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}
