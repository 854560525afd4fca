// Package resilience provides retry and circuit-breaker patterns for
// calls against scrape targets and external providers.
package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// BreakerState is the state of a Breaker.
type BreakerState int

const (
	// BreakerClosed is the normal state: requests flow through.
	BreakerClosed BreakerState = iota
	// BreakerOpen means the target looks unavailable: requests are
	// rejected immediately.
	BreakerOpen
	// BreakerHalfOpen allows one probe request to test recovery.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned when a call is rejected because the breaker
// tripped. Source adapters translate it into a source-unavailable failure.
var ErrBreakerOpen = eris.New("breaker open: target unavailable")

// Breaker trips after a run of consecutive failures against one target,
// so a blocked or downed provider stops consuming the batch's time.
type Breaker struct {
	threshold int
	resetWait time.Duration

	mu       sync.Mutex
	state    BreakerState
	failures int
	lastFail time.Time

	now func() time.Time
}

// NewBreaker creates a Breaker that opens after threshold consecutive
// failures and probes again after resetWait.
func NewBreaker(threshold int, resetWait time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if resetWait <= 0 {
		resetWait = 30 * time.Second
	}
	return &Breaker{
		threshold: threshold,
		resetWait: resetWait,
		state:     BreakerClosed,
		now:       time.Now,
	}
}

// Allow reports whether a request may proceed. In the open state it returns
// ErrBreakerOpen until resetWait has elapsed, then lets one probe through.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.lastFail) >= b.resetWait {
			b.state = BreakerHalfOpen
			return nil
		}
		return ErrBreakerOpen
	default:
		return nil
	}
}

// Record feeds the outcome of a request into the breaker. A nil error
// closes a half-open breaker and clears the failure run.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		b.state = BreakerClosed
		return
	}

	b.failures++
	b.lastFail = b.now()

	switch b.state {
	case BreakerHalfOpen:
		b.state = BreakerOpen
	case BreakerClosed:
		if b.failures >= b.threshold {
			b.state = BreakerOpen
		}
	}
}

// State returns the current state, accounting for reset expiry.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.lastFail) >= b.resetWait {
		return BreakerHalfOpen
	}
	return b.state
}
