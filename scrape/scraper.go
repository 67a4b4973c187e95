package scrape

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"github.com/KU-Stacks/ku-ring-backend-web/apperror"
	"github.com/KU-Stacks/ku-ring-backend-web/pkg/kuring"
)

// Scraper runs a full staff scrape for one department: pick the one
// fetcher and the one parser that claim it, parse every fetched document,
// and fail hard when nothing was extracted. Staff listings are expected to
// be non-empty, so zero rows means the layout changed under us.
type Scraper struct {
	fetchers []Fetcher
	parsers  []Parser
	logger   *slog.Logger
}

// New creates a scraper over the closed strategy sets.
func New(fetchers []Fetcher, parsers []Parser, logger *slog.Logger) *Scraper {
	return &Scraper{fetchers: fetchers, parsers: parsers, logger: logger}
}

// Scrape fetches and parses one department's staff listing.
func (s *Scraper) Scrape(ctx context.Context, dept Dept) ([]kuring.StaffRecord, error) {
	fetcher, err := s.fetcherFor(dept)
	if err != nil {
		return nil, err
	}
	parser, err := s.parserFor(dept)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Staff scrape starting", "dept", dept.Name, "college", dept.College)

	documents, err := fetcher.Fetch(ctx, dept)
	if err != nil {
		return nil, fmt.Errorf("fetch %s staff pages: %w", dept.Name, err)
	}

	var records []kuring.StaffRecord
	for _, doc := range documents {
		for _, row := range parser.Parse(doc) {
			records = append(records, kuring.StaffRecord{
				Name:    row.Name,
				Major:   row.Major,
				Lab:     row.Lab,
				Phone:   row.Phone,
				Email:   row.Email,
				Dept:    dept.Name,
				College: dept.College,
			})
		}
	}

	if len(records) == 0 {
		return nil, apperror.New(apperror.ErrScrapeNoRecords, dept.Name)
	}

	s.logger.Info("Staff scrape completed",
		"dept", dept.Name,
		"documents", len(documents),
		"records", len(records))

	return records, nil
}

func (s *Scraper) fetcherFor(dept Dept) (Fetcher, error) {
	var matched Fetcher
	for _, f := range s.fetchers {
		if !f.Support(dept) {
			continue
		}
		if matched != nil {
			return nil, apperror.New(apperror.ErrScrapeBadDocument,
				fmt.Sprintf("multiple fetchers claim department %s", dept.Name))
		}
		matched = f
	}
	if matched == nil {
		return nil, apperror.New(apperror.ErrScrapeBadDocument,
			fmt.Sprintf("no fetcher claims department %s", dept.Name))
	}
	return matched, nil
}

func (s *Scraper) parserFor(dept Dept) (Parser, error) {
	var matched Parser
	for _, p := range s.parsers {
		if !p.Support(dept) {
			continue
		}
		if matched != nil {
			return nil, apperror.New(apperror.ErrScrapeBadDocument,
				fmt.Sprintf("multiple parsers claim department %s", dept.Name))
		}
		matched = p
	}
	if matched == nil {
		return nil, apperror.New(apperror.ErrScrapeBadDocument,
			fmt.Sprintf("no parser claims department %s", dept.Name))
	}
	return matched, nil
}

// ParseDocuments is a helper for callers that already hold documents (test
// fixtures, replayed pages): it applies the department's parser without
// network access.
func (s *Scraper) ParseDocuments(dept Dept, documents []*goquery.Document) ([]kuring.StaffRecord, error) {
	parser, err := s.parserFor(dept)
	if err != nil {
		return nil, err
	}

	var records []kuring.StaffRecord
	for _, doc := range documents {
		for _, row := range parser.Parse(doc) {
			records = append(records, kuring.StaffRecord{
				Name:    row.Name,
				Major:   row.Major,
				Lab:     row.Lab,
				Phone:   row.Phone,
				Email:   row.Email,
				Dept:    dept.Name,
				College: dept.College,
			})
		}
	}
	if len(records) == 0 {
		return nil, apperror.New(apperror.ErrScrapeNoRecords, dept.Name)
	}
	return records, nil
}
