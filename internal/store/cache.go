package store

import (
	"context"
	"time"
)

// DefaultPageTTL is how long a fetched page stays reusable.
const DefaultPageTTL = 24 * time.Hour

// PageCache adapts a Store to the fetcher cache interface, stamping
// every entry with a fixed time-to-live.
type PageCache struct {
	store Store
	ttl   time.Duration
}

// NewPageCache wraps s. A non-positive ttl falls back to DefaultPageTTL.
func NewPageCache(s Store, ttl time.Duration) *PageCache {
	if ttl <= 0 {
		ttl = DefaultPageTTL
	}
	return &PageCache{store: s, ttl: ttl}
}

func (c *PageCache) Get(ctx context.Context, url string) ([]byte, bool, error) {
	return c.store.GetCachedPage(ctx, url)
}

func (c *PageCache) Put(ctx context.Context, url string, body []byte) error {
	return c.store.SetCachedPage(ctx, url, body, c.ttl)
}
