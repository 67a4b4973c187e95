package retrier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/KU-Stacks/ku-ring-backend-web/apperror"
)

func testPolicy() Policy {
	return Policy{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Attempts: 3,
		Delay:    time.Millisecond,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), "op", func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return apperror.New(apperror.ErrFetchTransport, "HTTP 502")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoExhaustsTransientRetries(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), "kuis_login", func() error {
		calls++
		return apperror.New(apperror.ErrAuthSkeletonFetch, "HTTP 503")
	})
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
	if !errors.Is(err, apperror.ErrAuthSkeletonFetch) {
		t.Errorf("expected wrapped kind to survive, got %v", err)
	}
	if !strings.Contains(err.Error(), "kuis_login failed after 3 attempts") {
		t.Errorf("expected attempt count in error, got %q", err.Error())
	}
}

func TestDoDoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	permanent := apperror.New(apperror.ErrAuthBadResponse, "credentials rejected")
	err := testPolicy().Do(context.Background(), "op", func() error {
		calls++
		return permanent
	})
	if calls != 1 {
		t.Errorf("expected 1 call for a permanent error, got %d", calls)
	}
	if !errors.Is(err, apperror.ErrAuthBadResponse) {
		t.Errorf("expected permanent error surfaced unchanged, got %v", err)
	}
}

func TestDoStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := testPolicy().Do(ctx, "op", func() error {
		calls++
		cancel()
		return apperror.New(apperror.ErrFetchTransport, "HTTP 502")
	})
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if calls != 1 {
		t.Errorf("expected no further attempts after cancel, got %d", calls)
	}
}
