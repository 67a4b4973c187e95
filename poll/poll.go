// Package poll orchestrates the scheduled cycles: fetch each category's
// notices, normalize them, detect the genuinely new ones, push them to the
// category topic, and persist them; and refresh each department's staff
// snapshot. One failing category or department never aborts its siblings.
package poll

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/KU-Stacks/ku-ring-backend-web/fetch"
	"github.com/KU-Stacks/ku-ring-backend-web/notice"
	"github.com/KU-Stacks/ku-ring-backend-web/pkg/kuring"
	"github.com/KU-Stacks/ku-ring-backend-web/scrape"
)

// KuisSource fetches raw notices for one KUIS category.
type KuisSource interface {
	Notices(ctx context.Context, category kuring.Category) ([]fetch.KuisNotice, error)
}

// LibrarySource fetches raw library bulletins.
type LibrarySource interface {
	Notices(ctx context.Context) ([]fetch.LibraryNotice, error)
}

// Detector yields the new subset of a fetched batch.
type Detector interface {
	DetectNew(ctx context.Context, fetched []kuring.Notice, category string) ([]kuring.Notice, error)
}

// Store persists notices and staff snapshots.
type Store interface {
	SaveNotice(ctx context.Context, n kuring.Notice) error
	ReplaceStaff(ctx context.Context, dept string, records []kuring.StaffRecord) error
}

// Sender delivers a notice to its category topic.
type Sender interface {
	SendToTopic(ctx context.Context, n kuring.Notice) error
}

// StaffScraper runs a full staff scrape for one department.
type StaffScraper interface {
	Scrape(ctx context.Context, dept scrape.Dept) ([]kuring.StaffRecord, error)
}

// Monitor drives the fetch and scrape cycles.
type Monitor struct {
	kuis       KuisSource
	library    LibrarySource
	detector   Detector
	store      Store
	sender     Sender
	scraper    StaffScraper
	logger     *slog.Logger
	categories []kuring.Category
}

// New creates a poll monitor over the loaded category reference set.
func New(kuis KuisSource, library LibrarySource, detector Detector, store Store, sender Sender, scraper StaffScraper, categories []kuring.Category, logger *slog.Logger) *Monitor {
	return &Monitor{
		kuis:       kuis,
		library:    library,
		detector:   detector,
		store:      store,
		sender:     sender,
		scraper:    scraper,
		logger:     logger,
		categories: categories,
	}
}

// CheckAll runs one notice cycle across every category. Categories are
// independent and run concurrently; within one category everything is
// sequential and order-preserving.
func (m *Monitor) CheckAll(ctx context.Context) error {
	now := time.Now()
	m.logger.Info("Notice cycle starting",
		"categories", len(m.categories),
		"timestamp", now.Format(time.RFC3339))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed int

	for _, category := range m.categories {
		wg.Add(1)
		go func(category kuring.Category) {
			defer wg.Done()
			if err := m.checkCategory(ctx, category); err != nil {
				m.logger.Warn("Category cycle failed", "category", category.Name, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(category)
	}
	wg.Wait()

	m.logger.Info("Notice cycle completed",
		"categories", len(m.categories),
		"failed", failed)

	if failed == len(m.categories) && len(m.categories) > 0 {
		return fmt.Errorf("all %d category cycles failed", failed)
	}
	return nil
}

func (m *Monitor) checkCategory(ctx context.Context, category kuring.Category) error {
	fetched, err := m.fetchNormalized(ctx, category)
	if err != nil {
		return err
	}

	fresh, err := m.detector.DetectNew(ctx, fetched, category.Name)
	if err != nil {
		return fmt.Errorf("detect new notices: %w", err)
	}
	if len(fresh) == 0 {
		return nil
	}

	m.logger.Info("New notices detected", "category", category.Name, "count", len(fresh))

	// Deliver before persisting: a failed delivery leaves the notice
	// unseen, so the next cycle reports it again (at-least-once).
	for _, n := range fresh {
		if err := m.sender.SendToTopic(ctx, n); err != nil {
			return fmt.Errorf("push notice %s: %w", n.ArticleID, err)
		}
		if err := m.store.SaveNotice(ctx, n); err != nil {
			return fmt.Errorf("save notice %s: %w", n.ArticleID, err)
		}
	}

	return nil
}

// fetchNormalized pulls one category's raw records from the right source
// and maps them to canonical notices, preserving source order.
func (m *Monitor) fetchNormalized(ctx context.Context, category kuring.Category) ([]kuring.Notice, error) {
	if category.Name == kuring.LibraryCategory {
		raws, err := m.library.Notices(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch library notices: %w", err)
		}
		notices := make([]kuring.Notice, 0, len(raws))
		for _, raw := range raws {
			n, err := notice.FromLibrary(raw, category.Name)
			if err != nil {
				return nil, err
			}
			notices = append(notices, n)
		}
		return notices, nil
	}

	raws, err := m.kuis.Notices(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("fetch kuis notices: %w", err)
	}
	notices := make([]kuring.Notice, 0, len(raws))
	for _, raw := range raws {
		n, err := notice.FromKuis(raw, category.Name)
		if err != nil {
			return nil, err
		}
		notices = append(notices, n)
	}
	return notices, nil
}

// ScrapeAll refreshes every department's staff snapshot. Departments run
// concurrently; a failed department is logged and skipped so its siblings
// still refresh.
func (m *Monitor) ScrapeAll(ctx context.Context) error {
	m.logger.Info("Staff cycle starting", "departments", len(scrape.Depts))

	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed int

	for _, dept := range scrape.Depts {
		wg.Add(1)
		go func(dept scrape.Dept) {
			defer wg.Done()

			records, err := m.scraper.Scrape(ctx, dept)
			if err != nil {
				m.logger.Warn("Staff scrape failed", "dept", dept.Name, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}

			if err := m.store.ReplaceStaff(ctx, dept.Name, records); err != nil {
				m.logger.Warn("Staff snapshot save failed", "dept", dept.Name, "error", err)
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}(dept)
	}
	wg.Wait()

	m.logger.Info("Staff cycle completed",
		"departments", len(scrape.Depts),
		"failed", failed)

	if failed == len(scrape.Depts) && len(scrape.Depts) > 0 {
		return fmt.Errorf("all %d department scrapes failed", failed)
	}
	return nil
}
