package source

import (
	"errors"
	"fmt"
)

// SourceUnavailableError means a provider cannot be used at all this
// run: blocked, auth-walled, or its index page kept failing. Fatal to
// that adapter's contribution only; other adapters continue.
type SourceUnavailableError struct {
	Source string
	Reason string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source %s unavailable: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("source %s unavailable: %s", e.Source, e.Reason)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// Unavailable wraps err as a provider-wide failure for the named source.
func Unavailable(source, reason string, err error) *SourceUnavailableError {
	return &SourceUnavailableError{Source: source, Reason: reason, Err: err}
}

// IsUnavailable reports whether err marks a provider-wide failure.
func IsUnavailable(err error) bool {
	var e *SourceUnavailableError
	return errors.As(err, &e)
}

// ParseError marks a single malformed record or page region. The record
// is skipped or downgraded; the batch continues.
type ParseError struct {
	Source string
	URL    string
	Reason string
}

func (e *ParseError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("parse error in %s (%s): %s", e.Source, e.URL, e.Reason)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Source, e.Reason)
}

// IsParse reports whether err marks a single-record parse failure.
func IsParse(err error) bool {
	var e *ParseError
	return errors.As(err, &e)
}
