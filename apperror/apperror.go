// Package apperror defines the error kinds shared across the fetch,
// scrape and subscription layers. Retry and compensation logic branch on
// these kinds with errors.Is rather than on concrete error types.
package apperror

import (
	"errors"
	"fmt"
)

// Authentication failures (session login protocol).
var (
	ErrAuthSkeletonFetch  = errors.New("api skeleton fetch failed")
	ErrAuthLoginTransport = errors.New("login request failed")
	ErrAuthEmptyBody      = errors.New("login response has no body")
	ErrAuthBadResponse    = errors.New("login response missing success marker")
)

// Fetch failures (notice APIs).
var (
	ErrFetchTransport    = errors.New("notice fetch failed")
	ErrFetchAuthRejected = errors.New("notice fetch rejected after credential renewal")
)

// Scrape failures (department staff pages).
var (
	ErrScrapeNoPageCount = errors.New("page count marker not found")
	ErrScrapeBadDocument = errors.New("expected markup structure not found")
	ErrScrapeNoRecords   = errors.New("no staff records scraped")
)

// Normalization, validation and reconciliation failures.
var (
	ErrNormalization   = errors.New("source record missing required field")
	ErrUnknownCategory = errors.New("unknown category")
	ErrReconciliation  = errors.New("subscription reconciliation failed mid-plan")
)

// Error wraps a cause with one of the kinds above. Unwrap exposes both,
// so errors.Is matches the kind and the underlying cause.
type Error struct {
	Kind    error
	Err     error
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Err.Error())
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// New builds an Error of the given kind.
func New(kind error, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap builds an Error of the given kind around a cause.
func Wrap(kind error, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// transientKinds are the kinds the retry policy may retry. A permanently
// wrong answer (bad credentials, broken markup, unknown category) will not
// change on retry.
var transientKinds = []error{
	ErrAuthSkeletonFetch,
	ErrAuthLoginTransport,
	ErrFetchTransport,
}

// IsTransient reports whether err is classified as a transient fault.
func IsTransient(err error) bool {
	for _, kind := range transientKinds {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
