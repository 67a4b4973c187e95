// Package main implements the ku-ring backend service: it polls university
// notice sources on a schedule, pushes new notices to category topics, keeps
// department staff snapshots fresh, and serves the subscription API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/robfig/cron/v3"

	"github.com/KU-Stacks/ku-ring-backend-web/auth"
	"github.com/KU-Stacks/ku-ring-backend-web/config"
	"github.com/KU-Stacks/ku-ring-backend-web/fetch"
	"github.com/KU-Stacks/ku-ring-backend-web/notice"
	"github.com/KU-Stacks/ku-ring-backend-web/pkg/kuring"
	"github.com/KU-Stacks/ku-ring-backend-web/poll"
	"github.com/KU-Stacks/ku-ring-backend-web/push"
	"github.com/KU-Stacks/ku-ring-backend-web/retrier"
	"github.com/KU-Stacks/ku-ring-backend-web/scrape"
	"github.com/KU-Stacks/ku-ring-backend-web/storage"
	"github.com/KU-Stacks/ku-ring-backend-web/subscription"
)

// Server holds the wired application for the HTTP handlers.
type Server struct {
	monitor    *poll.Monitor
	reconciler *subscription.Reconciler
	store      *storage.Store
	pusher     *push.Service
	logger     *slog.Logger
}

func main() {
	ctx := context.Background()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("Configuration loaded",
		"deploy_env", cfg.DeployEnv,
		"database_path", cfg.DatabasePath,
		"fetch_interval_minutes", cfg.FetchIntervalMinutes,
		"scrape_interval_hours", cfg.ScrapeIntervalHours)

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close storage", "error", err)
		}
	}()

	if err := store.SeedCategories(ctx, kuring.DefaultCategories); err != nil {
		logger.Error("Failed to seed categories", "error", err)
		os.Exit(1)
	}
	categories, err := store.AllCategories(ctx)
	if err != nil {
		logger.Error("Failed to load categories", "error", err)
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	policy := retrier.Default(logger)

	sessions := auth.New(httpClient, cfg.APISkeletonURL, cfg.LoginURL,
		cfg.KuisID, cfg.KuisPassword, policy, logger)

	kuisClient := fetch.NewKuisClient(httpClient, sessions, cfg.KuisNoticeURL, policy, logger)
	libraryClient := fetch.NewLibraryClient(httpClient, cfg.LibraryURL, policy, logger)

	staffScraper := scrape.New(
		[]scrape.Fetcher{
			scrape.NewPagedFetcher(httpClient, cfg.StaffBaseURL, policy, logger),
			scrape.NewSinglePageFetcher(httpClient, policy, logger),
		},
		[]scrape.Parser{
			scrape.NewTableParser(logger),
			scrape.NewDetailListParser(logger),
			scrape.NewRealEstateParser(logger),
		},
		logger,
	)

	pusher := push.New(push.NewMockProvider(logger), cfg.DeployEnv,
		cfg.NormalBaseURL, cfg.LibraryBaseURL, logger)

	detector := notice.NewDetector(store, logger)
	monitor := poll.New(kuisClient, libraryClient, detector, store, pusher, staffScraper, categories, logger)

	reconciler := subscription.New(store, pusher, categories, func(ledger *subscription.Ledger) {
		logger.Info("Reconciliation ledger opened",
			"to_add", len(ledger.Plan.ToAdd),
			"to_remove", len(ledger.Plan.ToRemove))
	}, logger)

	srv := &Server{
		monitor:    monitor,
		reconciler: reconciler,
		store:      store,
		pusher:     pusher,
		logger:     logger,
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(fmt.Sprintf("@every %dm", cfg.FetchIntervalMinutes), func() {
		if err := monitor.CheckAll(ctx); err != nil {
			logger.Error("Scheduled notice cycle failed", "error", err)
		}
	}); err != nil {
		logger.Error("Failed to schedule notice cycle", "error", err)
		os.Exit(1)
	}
	if _, err := scheduler.AddFunc(fmt.Sprintf("@every %dh", cfg.ScrapeIntervalHours), func() {
		if err := monitor.ScrapeAll(ctx); err != nil {
			logger.Error("Scheduled staff cycle failed", "error", err)
		}
	}); err != nil {
		logger.Error("Failed to schedule staff cycle", "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// First cycles run immediately; cron only handles the steady state.
	go func() {
		if err := monitor.CheckAll(ctx); err != nil {
			logger.Error("Initial notice cycle failed", "error", err)
		}
		if err := monitor.ScrapeAll(ctx); err != nil {
			logger.Error("Initial staff cycle failed", "error", err)
		}
	}()

	startServer(srv, cfg.Port, logger)
}

func startServer(srv *Server, port string, logger *slog.Logger) {
	http.HandleFunc("/health", srv.handleHealth)
	http.HandleFunc("/pollz", srv.handlePoll)
	http.HandleFunc("/scrapez", srv.handleScrape)
	http.HandleFunc("/categories", srv.handleCategories)
	http.HandleFunc("/staff", srv.handleStaff)
	http.HandleFunc("/subscriptions", srv.handleSubscriptions)

	logger.Info("Starting HTTP server", "port", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.logger.Info("Poll endpoint triggered")

	if err := s.monitor.CheckAll(r.Context()); err != nil {
		s.logger.Error("Notice cycle failed", "error", err)
		http.Error(w, "Cycle failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"}, s.logger)
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.logger.Info("Scrape endpoint triggered")

	if err := s.monitor.ScrapeAll(r.Context()); err != nil {
		s.logger.Error("Staff cycle failed", "error", err)
		http.Error(w, "Cycle failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "completed"}, s.logger)
}
