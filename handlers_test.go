package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/KU-Stacks/ku-ring-backend-web/pkg/kuring"
	"github.com/KU-Stacks/ku-ring-backend-web/push"
	"github.com/KU-Stacks/ku-ring-backend-web/storage"
	"github.com/KU-Stacks/ku-ring-backend-web/subscription"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := testLogger()

	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	if err := store.SeedCategories(ctx, kuring.DefaultCategories); err != nil {
		t.Fatalf("seed categories: %v", err)
	}
	categories, err := store.AllCategories(ctx)
	if err != nil {
		t.Fatalf("load categories: %v", err)
	}

	pusher := push.New(push.NewMockProvider(logger), "dev", "http://n", "http://l", logger)
	reconciler := subscription.New(store, pusher, categories, nil, logger)

	return &Server{
		reconciler: reconciler,
		store:      store,
		pusher:     pusher,
		logger:     logger,
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodPost, "/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", rec.Code)
	}
}

func TestHandleHealthDegradedStore(t *testing.T) {
	srv := newTestServer(t)
	if err := srv.store.Close(); err != nil {
		t.Fatalf("close storage: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "degraded") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandleCategories(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handleCategories(rec, httptest.NewRequest(http.MethodGet, "/categories", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Categories) != len(kuring.DefaultCategories) {
		t.Errorf("expected %d categories, got %v", len(kuring.DefaultCategories), body.Categories)
	}
}

func TestHandleSubscriptions(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPut, "/subscriptions",
		strings.NewReader(`{"token":"device-1","categories":["bachelor","library"]}`))
	rec := httptest.NewRecorder()
	srv.handleSubscriptions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	var body struct {
		Added   []string `json:"added"`
		Removed []string `json:"removed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Added) != 2 || len(body.Removed) != 0 {
		t.Errorf("unexpected delta: %+v", body)
	}

	// Persisted rows reflect the applied plan.
	categories, err := srv.store.CategoriesByToken(context.Background(), "device-1")
	if err != nil {
		t.Fatalf("load subscriptions: %v", err)
	}
	if len(categories) != 2 {
		t.Errorf("expected 2 persisted subscriptions, got %v", categories)
	}

	// Shrinking the desired set removes the difference.
	req = httptest.NewRequest(http.MethodPut, "/subscriptions",
		strings.NewReader(`{"token":"device-1","categories":["library"]}`))
	rec = httptest.NewRecorder()
	srv.handleSubscriptions(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	categories, err = srv.store.CategoriesByToken(context.Background(), "device-1")
	if err != nil {
		t.Fatalf("load subscriptions: %v", err)
	}
	if len(categories) != 1 || categories[0] != "library" {
		t.Errorf("expected only library to remain, got %v", categories)
	}
}

func TestHandleSubscriptionsRejections(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"unknown category", `{"token":"device-1","categories":["sports"]}`, http.StatusBadRequest},
		{"missing token", `{"categories":["bachelor"]}`, http.StatusBadRequest},
		{"invalid json", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/subscriptions", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			srv.handleSubscriptions(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandleStaff(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	records := []kuring.StaffRecord{
		{Name: "김민수", Major: "인공지능", Email: "mskim@konkuk.ac.kr", Dept: "computer_science", College: "engineering"},
	}
	if err := srv.store.ReplaceStaff(ctx, "computer_science", records); err != nil {
		t.Fatalf("seed staff: %v", err)
	}

	rec := httptest.NewRecorder()
	srv.handleStaff(rec, httptest.NewRequest(http.MethodGet, "/staff?dept=computer_science", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "김민수") {
		t.Errorf("expected staff member in body: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.handleStaff(rec, httptest.NewRequest(http.MethodGet, "/staff?dept=astrology", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown dept status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.handleStaff(rec, httptest.NewRequest(http.MethodGet, "/staff", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing dept status = %d, want 400", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(3)
	for i := range 3 {
		if !rl.allow("1.2.3.4") {
			t.Fatalf("request %d unexpectedly limited", i)
		}
	}
	if rl.allow("1.2.3.4") {
		t.Error("expected fourth request to be limited")
	}
	if !rl.allow("5.6.7.8") {
		t.Error("limits must be per IP")
	}
}
