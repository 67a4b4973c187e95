package notice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/KU-Stacks/ku-ring-backend-web/pkg/kuring"
)

// Store is the persisted-notice lookup the detector needs.
type Store interface {
	NoticeExists(ctx context.Context, category, articleID string) (bool, error)
}

// Detector yields the subset of a fetched batch that has no persisted row
// with the same (category, articleId) identity. It never writes; persisting
// newly-seen notices is the caller's job after downstream delivery, so a
// delivery failure cannot silently swallow a notice.
type Detector struct {
	store  Store
	logger *slog.Logger
}

// NewDetector creates a novelty detector over the given store.
func NewDetector(store Store, logger *slog.Logger) *Detector {
	return &Detector{store: store, logger: logger}
}

// DetectNew returns the new notices in fetch order. Consumers treat the
// order as significant for display and notification sequencing.
func (d *Detector) DetectNew(ctx context.Context, fetched []kuring.Notice, category string) ([]kuring.Notice, error) {
	var fresh []kuring.Notice

	for _, n := range fetched {
		seen, err := d.store.NoticeExists(ctx, category, n.ArticleID)
		if err != nil {
			return nil, fmt.Errorf("look up notice %s/%s: %w", category, n.ArticleID, err)
		}
		if seen {
			continue
		}
		fresh = append(fresh, n)
	}

	d.logger.Info("Novelty detection completed",
		"category", category,
		"fetched", len(fetched),
		"new", len(fresh))

	return fresh, nil
}
