package resilience

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// NetworkError wraps a transport-level failure that is safe to retry
// (timeouts, resets, 5xx responses).
type NetworkError struct {
	Err        error
	StatusCode int
}

func (e *NetworkError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("network error (status %d): %v", e.StatusCode, e.Err)
	}
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NewNetworkError wraps err as retryable with an optional HTTP status code.
func NewNetworkError(err error, statusCode int) *NetworkError {
	return &NetworkError{Err: err, StatusCode: statusCode}
}

// RateLimitError reports a 429 (or equivalent throttle) from a provider.
// RetryAfter, when known, overrides the computed backoff delay.
type RateLimitError struct {
	Source     string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited by %s, retry after %s", e.Source, e.RetryAfter)
	}
	return "rate limited by " + e.Source
}

// RetryAfterHint extracts a Retry-After duration from an HTTP response,
// handling both delta-seconds and HTTP-date forms. Zero when absent.
func RetryAfterHint(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// Retryable reports whether the error (or anything in its chain) is worth
// another attempt: an explicit NetworkError or RateLimitError, a network
// timeout, or a connection-level failure.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var ne *NetworkError
	if errors.As(err, &ne) {
		return true
	}
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// Wrapped client errors lose their type; fall back to message patterns.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// RetryableStatus reports whether an HTTP status code indicates a
// server-side condition that is safe to retry.
func RetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
