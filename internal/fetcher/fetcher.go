// Package fetcher retrieves pages and feed files over HTTP, headless
// Chrome, and FTP, pacing requests per host and parsing the feed
// formats lead sources publish.
package fetcher

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// Fetcher retrieves the raw content of a remote page or file.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Cache stores fetched pages so repeated runs skip the network.
// Implementations decide expiry; Get returns false for missing or
// stale entries.
type Cache interface {
	Get(ctx context.Context, url string) ([]byte, bool, error)
	Put(ctx context.Context, url string, body []byte) error
}

// Throttle spaces consecutive requests to the same host by a randomized
// courtesy delay. Callers reserve slots in order, so two requests to one
// host are never closer than the minimum delay even when concurrent.
type Throttle struct {
	mu   sync.Mutex
	min  time.Duration
	max  time.Duration
	next map[string]time.Time
}

// NewThrottle creates a throttle whose delays are drawn from [min, max].
func NewThrottle(min, max time.Duration) *Throttle {
	if max < min {
		max = min
	}
	return &Throttle{min: min, max: max, next: make(map[string]time.Time)}
}

// Wait blocks until the host's next slot arrives or ctx is done.
func (t *Throttle) Wait(ctx context.Context, host string) error {
	at := t.reserve(host)
	d := time.Until(at)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (t *Throttle) reserve(host string) time.Time {
	gap := t.min
	if t.max > t.min {
		gap += time.Duration(rand.Int64N(int64(t.max - t.min)))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	at, ok := t.next[host]
	if !ok || at.Before(now) {
		// The first request to a host goes straight out; the gap
		// applies to the one after it.
		t.next[host] = now.Add(gap)
		return now
	}
	t.next[host] = at.Add(gap)
	return at
}
