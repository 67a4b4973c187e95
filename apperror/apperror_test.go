package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorMatchesKindAndCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(ErrFetchTransport, cause)

	if !errors.Is(err, ErrFetchTransport) {
		t.Error("expected error to match its kind")
	}
	if !errors.Is(err, cause) {
		t.Error("expected error to match its cause")
	}
	if errors.Is(err, ErrAuthBadResponse) {
		t.Error("error matched an unrelated kind")
	}
}

func TestErrorMatchesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("fetch bachelor: %w", New(ErrFetchAuthRejected, "bachelor"))

	if !errors.Is(err, ErrFetchAuthRejected) {
		t.Error("expected kind to match through fmt wrapping")
	}
}

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "with message",
			err:  New(ErrUnknownCategory, "sports"),
			want: "unknown category: sports",
		},
		{
			name: "with cause",
			err:  Wrap(ErrAuthSkeletonFetch, errors.New("timeout")),
			want: "api skeleton fetch failed: timeout",
		},
		{
			name: "bare kind",
			err:  &Error{Kind: ErrScrapeNoRecords},
			want: "no staff records scraped",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"skeleton fetch", Wrap(ErrAuthSkeletonFetch, errors.New("eof")), true},
		{"login transport", New(ErrAuthLoginTransport, "HTTP 502"), true},
		{"fetch transport", New(ErrFetchTransport, "HTTP 500"), true},
		{"bad credentials", New(ErrAuthBadResponse, "rejected"), false},
		{"empty body", New(ErrAuthEmptyBody, "login"), false},
		{"auth rejected", New(ErrFetchAuthRejected, "bachelor"), false},
		{"broken markup", New(ErrScrapeNoPageCount, "missing"), false},
		{"plain error", errors.New("something"), false},
		{"wrapped transient", fmt.Errorf("outer: %w", New(ErrFetchTransport, "HTTP 503")), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}
