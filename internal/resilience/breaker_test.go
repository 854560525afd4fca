package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	for i := 0; i < 2; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("breaker rejected request %d while closed", i)
		}
		b.Record(errors.New("fail"))
	}
	if b.State() != BreakerClosed {
		t.Fatal("breaker opened before threshold")
	}

	b.Record(errors.New("fail"))
	if b.State() != BreakerOpen {
		t.Fatal("breaker did not open at threshold")
	}
	if err := b.Allow(); !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("expected ErrBreakerOpen, got %v", err)
	}
}

func TestBreaker_SuccessResetsRun(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	b.Record(errors.New("fail"))
	b.Record(errors.New("fail"))
	b.Record(nil)
	b.Record(errors.New("fail"))
	b.Record(errors.New("fail"))

	if b.State() != BreakerClosed {
		t.Fatal("non-consecutive failures should not open the breaker")
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	now := time.Now()
	b.now = func() time.Time { return now }

	b.Record(errors.New("fail"))
	if b.State() != BreakerOpen {
		t.Fatal("expected open")
	}

	// Before the reset window the breaker rejects.
	if err := b.Allow(); !errors.Is(err, ErrBreakerOpen) {
		t.Fatal("expected rejection before reset window")
	}

	// After the reset window one probe is allowed.
	now = now.Add(2 * time.Minute)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected probe to be allowed, got %v", err)
	}

	// A failed probe reopens immediately.
	b.Record(errors.New("still down"))
	if err := b.Allow(); !errors.Is(err, ErrBreakerOpen) {
		t.Fatal("expected reopen after failed probe")
	}

	// A successful probe closes the breaker.
	now = now.Add(2 * time.Minute)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected probe, got %v", err)
	}
	b.Record(nil)
	if b.State() != BreakerClosed {
		t.Fatal("expected closed after successful probe")
	}
}

func TestBreakerState_String(t *testing.T) {
	if BreakerClosed.String() != "closed" || BreakerOpen.String() != "open" || BreakerHalfOpen.String() != "half-open" {
		t.Error("unexpected state strings")
	}
}
